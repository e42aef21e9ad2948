package trusttag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/layer-3/trusttag/adapters/siwe"
	"github.com/layer-3/trusttag/core"
)

// AccountConfig describes the SIWE message an Account signs
type AccountConfig struct {
	Domain    string
	URI       string
	ChainID   int64
	Statement string
	// ExpiresIn sets Expiration Time on the message when non-zero
	ExpiresIn time.Duration
}

// Account holds the signed-in wallet and notifies subscribers when it changes.
type Account struct {
	client Client
	signer Signer
	cfg    AccountConfig
	now    func() time.Time

	mu      sync.Mutex
	current *Identity
	subs    map[int]func(*Identity)
	nextSub int
}

// NewAccount creates a signed-out account
func NewAccount(client Client, signer Signer, cfg AccountConfig) *Account {
	return &Account{
		client: client,
		signer: signer,
		cfg:    cfg,
		now:    time.Now,
		subs:   make(map[int]func(*Identity)),
	}
}

// Current returns the signed-in identity, or nil
func (a *Account) Current() *Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil
	}
	id := *a.current
	return &id
}

// Subscribe registers fn for account changes. A nil identity means signed out.
func (a *Account) Subscribe(fn func(*Identity)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// SignIn runs the full handshake: nonce, sign, complete
func (a *Account) SignIn(ctx context.Context) (*Identity, error) {
	nonce, err := a.client.Nonce(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	msg := a.buildMessage(nonce)
	text := siwe.FormatMessage(msg)

	sig, err := a.signer.SignText([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}

	res, err := a.client.CompleteSiwe(ctx, core.SiwePayload{
		Status:    "success",
		Message:   text,
		Signature: hexutil.Encode(sig),
		Address:   msg.Address,
		Version:   1,
	}, nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to complete sign-in: %w", err)
	}

	id := &Identity{Address: res.Address, Token: res.Token}
	a.set(id)
	return id, nil
}

// SignOut logs out on the server and clears the account
func (a *Account) SignOut(ctx context.Context) error {
	current := a.Current()
	if current == nil {
		return ErrNotSignedIn
	}

	if err := a.client.Logout(ctx, current.Token); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}

	a.set(nil)
	return nil
}

func (a *Account) buildMessage(nonce string) *core.SiweMessage {
	issuedAt := a.now().UTC()
	msg := &core.SiweMessage{
		Domain:    a.cfg.Domain,
		Address:   a.signer.Address().Hex(),
		Statement: a.cfg.Statement,
		URI:       a.cfg.URI,
		Version:   "1",
		ChainID:   a.cfg.ChainID,
		Nonce:     nonce,
		IssuedAt:  issuedAt,
	}
	if a.cfg.ExpiresIn > 0 {
		exp := issuedAt.Add(a.cfg.ExpiresIn)
		msg.ExpirationTime = &exp
	}
	return msg
}

func (a *Account) set(id *Identity) {
	a.mu.Lock()
	a.current = id
	subs := make([]func(*Identity), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, fn := range subs {
		var cp *Identity
		if id != nil {
			v := *id
			cp = &v
		}
		fn(cp)
	}
}
