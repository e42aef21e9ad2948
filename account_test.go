package trusttag

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/trusttag/adapters/siwe"
	"github.com/layer-3/trusttag/adapters/store"
	"github.com/layer-3/trusttag/adapters/tokenizer"
	"github.com/layer-3/trusttag/core"
	"github.com/layer-3/trusttag/service"
	transport "github.com/layer-3/trusttag/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDomain = "app.trusttag.test"

type nopPublisher struct{}

func (nopPublisher) PublishSignIn(ctx context.Context, session *core.Session) error  { return nil }
func (nopPublisher) PublishSignOut(ctx context.Context, session *core.Session) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := tokenizer.LoadSigningKey("")
	require.NoError(t, err)

	mem := store.NewMemoryStore()
	logger := log.New(io.Discard)
	verifier := siwe.NewVerifier(siwe.WithDomains(testDomain), siwe.WithChainID(1))

	svc := service.NewAuthService(mem, mem, verifier, tokenizer.NewJWTTokenizer(key, "trusttag"), nopPublisher{}, logger, service.DefaultConfig())
	router := transport.SetupRouter(svc, transport.RouterConfig{
		Cookie: transport.CookieConfig{Name: "siwe", ClearOnFailure: true},
	}, logger)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func newTestSigner(t *testing.T) *KeySigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return NewKeySigner(key)
}

func newTestClient(t *testing.T, srv *httptest.Server) *HTTPClient {
	t.Helper()
	client, err := NewHTTPClient(srv.URL + "/api")
	require.NoError(t, err)
	return client
}

func testAccountConfig() AccountConfig {
	return AccountConfig{
		Domain:    testDomain,
		URI:       "https://" + testDomain,
		ChainID:   1,
		Statement: "Sign in to TrustTag",
	}
}

func TestAccount_SignInAndOut(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t, srv)
	signer := newTestSigner(t)
	account := NewAccount(client, signer, testAccountConfig())
	ctx := context.Background()

	var (
		mu      sync.Mutex
		updates []*Identity
	)
	unsubscribe := account.Subscribe(func(id *Identity) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, id)
	})

	assert.Nil(t, account.Current())

	id, err := account.SignIn(ctx)
	require.NoError(t, err)
	assert.Equal(t, signer.Address().Hex(), id.Address)
	assert.NotEmpty(t, id.Token)
	assert.Equal(t, id, account.Current())

	profile, err := client.Me(ctx, id.Token)
	require.NoError(t, err)
	assert.Equal(t, signer.Address().Hex(), profile.Address)
	assert.False(t, profile.ExpiresAt.IsZero())

	require.NoError(t, account.SignOut(ctx))
	assert.Nil(t, account.Current())

	_, err = client.Me(ctx, id.Token)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	mu.Lock()
	require.Len(t, updates, 2)
	assert.Equal(t, id.Address, updates[0].Address)
	assert.Nil(t, updates[1])
	mu.Unlock()

	unsubscribe()
	_, err = account.SignIn(ctx)
	require.NoError(t, err)

	mu.Lock()
	assert.Len(t, updates, 2)
	mu.Unlock()
}

func TestAccount_SignOutWhenSignedOut(t *testing.T) {
	srv := newTestServer(t)
	account := NewAccount(newTestClient(t, srv), newTestSigner(t), testAccountConfig())

	assert.ErrorIs(t, account.SignOut(context.Background()), ErrNotSignedIn)
}

func TestAccount_ForeignDomainRejected(t *testing.T) {
	srv := newTestServer(t)
	cfg := testAccountConfig()
	cfg.Domain = "evil.example"
	account := NewAccount(newTestClient(t, srv), newTestSigner(t), cfg)

	called := false
	account.Subscribe(func(*Identity) { called = true })

	_, err := account.SignIn(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.False(t, IsInvalidNonce(err))
	assert.Nil(t, account.Current())
	assert.False(t, called)
}

func TestHTTPClient_NonceBoundToCookie(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	alice := newTestClient(t, srv)
	mallory := newTestClient(t, srv)
	signer := newTestSigner(t)

	nonce, err := alice.Nonce(ctx)
	require.NoError(t, err)

	account := NewAccount(mallory, signer, testAccountConfig())
	text := siwe.FormatMessage(account.buildMessage(nonce))
	sig, err := signer.SignText([]byte(text))
	require.NoError(t, err)

	_, err = mallory.CompleteSiwe(ctx, core.SiwePayload{
		Status:    "success",
		Message:   text,
		Signature: hexutil.Encode(sig),
	}, nonce)
	require.Error(t, err)
	assert.True(t, IsInvalidNonce(err))
}

func TestHTTPClient_ReplayRejected(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	client := newTestClient(t, srv)
	signer := newTestSigner(t)
	account := NewAccount(client, signer, testAccountConfig())

	nonce, err := client.Nonce(ctx)
	require.NoError(t, err)

	text := siwe.FormatMessage(account.buildMessage(nonce))
	sig, err := signer.SignText([]byte(text))
	require.NoError(t, err)
	payload := core.SiwePayload{
		Status:    "success",
		Message:   text,
		Signature: hexutil.Encode(sig),
		Address:   signer.Address().Hex(),
	}

	res, err := client.CompleteSiwe(ctx, payload, nonce)
	require.NoError(t, err)
	assert.Equal(t, signer.Address().Hex(), res.Address)

	_, err = client.CompleteSiwe(ctx, payload, nonce)
	assert.True(t, IsInvalidNonce(err))
}

func TestHTTPClient_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(srv.URL)
	require.NoError(t, err)

	_, err = client.Nonce(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Message)
}
