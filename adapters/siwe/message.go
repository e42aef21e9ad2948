// Package siwe implements the EIP-4361 Sign-In With Ethereum message format
// and verification of signed SIWE payloads.
package siwe

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/trusttag/core"
)

const (
	headerSuffix = " wants you to sign in with your Ethereum account:"

	tagURI            = "URI: "
	tagVersion        = "Version: "
	tagChainID        = "Chain ID: "
	tagNonce          = "Nonce: "
	tagIssuedAt       = "Issued At: "
	tagExpirationTime = "Expiration Time: "
	tagNotBefore      = "Not Before: "
	tagRequestID      = "Request ID: "
	tagResources      = "Resources:"

	minNonceLength = 8
)

// fieldOrder lists the tagged fields in the order EIP-4361 requires
var fieldOrder = []string{
	tagURI,
	tagVersion,
	tagChainID,
	tagNonce,
	tagIssuedAt,
	tagExpirationTime,
	tagNotBefore,
	tagRequestID,
	tagResources,
}

func fieldIndex(line string) int {
	for k, tag := range fieldOrder {
		if tag == tagResources {
			if line == tagResources {
				return k
			}
			continue
		}
		if strings.HasPrefix(line, tag) {
			return k
		}
	}
	return -1
}

// ParseMessage parses an EIP-4361 message
func ParseMessage(raw string) (*core.SiweMessage, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return nil, invalid("message too short")
	}

	header := lines[0]
	if !strings.HasSuffix(header, headerSuffix) {
		return nil, invalid("missing preamble")
	}
	domain := strings.TrimSuffix(header, headerSuffix)
	if i := strings.Index(domain, "://"); i >= 0 {
		domain = domain[i+3:]
	}
	if domain == "" {
		return nil, invalid("missing domain")
	}

	address := strings.TrimSpace(lines[1])
	if !common.IsHexAddress(address) {
		return nil, invalid("invalid address")
	}
	if common.HexToAddress(address).Hex() != address {
		return nil, invalid("address is not EIP-55 checksummed")
	}

	msg := &core.SiweMessage{
		Domain:  domain,
		Address: address,
	}

	i := 2
	// Everything up to the first tagged line is the optional statement
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(line, tagURI) {
			break
		}
		if line == "" {
			continue
		}
		if msg.Statement != "" {
			return nil, invalid("statement must be a single line")
		}
		msg.Statement = line
	}

	var (
		issuedAt    string
		inResources bool
		last        = -1
	)
	for ; i < len(lines); i++ {
		line := lines[i]
		if inResources && strings.HasPrefix(line, "- ") {
			msg.Resources = append(msg.Resources, strings.TrimPrefix(line, "- "))
			continue
		}
		if line == "" {
			continue
		}

		k := fieldIndex(line)
		if k < 0 {
			return nil, invalid(fmt.Sprintf("unexpected line %q", line))
		}
		if k <= last {
			return nil, invalid(fmt.Sprintf("field %q repeated or out of order", strings.TrimSpace(fieldOrder[k])))
		}
		last = k

		value := strings.TrimPrefix(line, fieldOrder[k])
		switch fieldOrder[k] {
		case tagURI:
			msg.URI = value
		case tagVersion:
			msg.Version = value
		case tagChainID:
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil || id <= 0 {
				return nil, invalid("invalid chain id")
			}
			msg.ChainID = id
		case tagNonce:
			msg.Nonce = value
		case tagIssuedAt:
			issuedAt = value
		case tagExpirationTime:
			t, err := parseTime(value)
			if err != nil {
				return nil, invalid("invalid expiration time")
			}
			msg.ExpirationTime = &t
		case tagNotBefore:
			t, err := parseTime(value)
			if err != nil {
				return nil, invalid("invalid not before")
			}
			msg.NotBefore = &t
		case tagRequestID:
			msg.RequestID = value
		case tagResources:
			inResources = true
		}
	}

	if msg.URI == "" {
		return nil, invalid("missing uri")
	}
	if msg.Version != "1" {
		return nil, invalid("unsupported version")
	}
	if msg.ChainID == 0 {
		return nil, invalid("missing chain id")
	}
	if len(msg.Nonce) < minNonceLength || !isAlphanumeric(msg.Nonce) {
		return nil, invalid("invalid nonce")
	}
	t, err := parseTime(issuedAt)
	if err != nil {
		return nil, invalid("invalid issued at")
	}
	msg.IssuedAt = t

	return msg, nil
}

// FormatMessage renders a message in EIP-4361 form, ready to be signed
func FormatMessage(msg *core.SiweMessage) string {
	var b strings.Builder

	b.WriteString(msg.Domain + headerSuffix + "\n")
	b.WriteString(msg.Address + "\n\n")
	if msg.Statement != "" {
		b.WriteString(msg.Statement + "\n")
	}
	b.WriteString("\n")

	version := msg.Version
	if version == "" {
		version = "1"
	}
	fields := []string{
		tagURI + msg.URI,
		tagVersion + version,
		tagChainID + strconv.FormatInt(msg.ChainID, 10),
		tagNonce + msg.Nonce,
		tagIssuedAt + formatTime(msg.IssuedAt),
	}
	if msg.ExpirationTime != nil {
		fields = append(fields, tagExpirationTime+formatTime(*msg.ExpirationTime))
	}
	if msg.NotBefore != nil {
		fields = append(fields, tagNotBefore+formatTime(*msg.NotBefore))
	}
	if msg.RequestID != "" {
		fields = append(fields, tagRequestID+msg.RequestID)
	}
	if len(msg.Resources) > 0 {
		fields = append(fields, tagResources)
		for _, r := range msg.Resources {
			fields = append(fields, "- "+r)
		}
	}
	b.WriteString(strings.Join(fields, "\n"))

	return b.String()
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", core.ErrInvalidMessage, reason)
}
