package siwe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc1271ABI = `[{"type":"function","name":"isValidSignature","stateMutability":"view",
"inputs":[{"name":"hash","type":"bytes32"},{"name":"signature","type":"bytes"}],
"outputs":[{"name":"magicValue","type":"bytes4"}]}]`

// erc1271MagicValue is bytes4(keccak256("isValidSignature(bytes32,bytes)"))
var erc1271MagicValue = []byte{0x16, 0x26, 0xba, 0x7e}

var parsedERC1271 = mustParseABI(erc1271ABI)

// ContractSignatureChecker validates signatures made by smart-contract wallets
type ContractSignatureChecker struct {
	caller ethereum.ContractCaller
}

// NewContractSignatureChecker uses caller (usually an *ethclient.Client) for eth_call
func NewContractSignatureChecker(caller ethereum.ContractCaller) *ContractSignatureChecker {
	return &ContractSignatureChecker{caller: caller}
}

// IsValidSignature asks the wallet contract at account whether sig signs hash
func (c *ContractSignatureChecker) IsValidSignature(ctx context.Context, account common.Address, hash common.Hash, sig []byte) (bool, error) {
	data, err := parsedERC1271.Pack("isValidSignature", hash, sig)
	if err != nil {
		return false, fmt.Errorf("failed to pack isValidSignature: %w", err)
	}

	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &account, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("isValidSignature call failed: %w", err)
	}
	if len(out) < len(erc1271MagicValue) {
		return false, nil
	}

	return bytes.Equal(out[:len(erc1271MagicValue)], erc1271MagicValue), nil
}

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
