package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/trusttag/adapters/store"
	"github.com/layer-3/trusttag/adapters/tokenizer"
	"github.com/layer-3/trusttag/core"
	"github.com/layer-3/trusttag/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWorldID struct {
	calls []core.WorldIDProof
	err   error
}

func (s *stubWorldID) VerifyProof(ctx context.Context, proof core.WorldIDProof) error {
	s.calls = append(s.calls, proof)
	return s.err
}

func newWorldIDRouter(t *testing.T, worldID *stubWorldID) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := tokenizer.LoadSigningKey("")
	require.NoError(t, err)
	mem := store.NewMemoryStore()
	logger := log.New(io.Discard)

	svc := service.NewAuthService(mem, mem, success("0xabc"), tokenizer.NewJWTTokenizer(key, "trusttag"), nopPublisher{}, logger, service.DefaultConfig())
	router := SetupRouter(svc, RouterConfig{Cookie: defaultCookie(), WorldID: worldID}, logger)

	n1, cookie := issueNonce(t, router, "/api/nonce")
	_, resp := complete(t, router, "/api/complete-siwe", cookie, n1)
	return router, resp["token"].(string)
}

func verifyHuman(router *gin.Engine, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/verify-human", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const proofBody = `{"verifyPayload":{"nullifier_hash":"0x2bf8","proof":"0x0a","merkle_root":"0x1f","verification_level":"orb","action":"propose-tag"}}`

func TestVerifyHuman_Accepted(t *testing.T) {
	worldID := &stubWorldID{}
	router, token := newWorldIDRouter(t, worldID)

	w := verifyHuman(router, token, proofBody)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["verified"])
	assert.Equal(t, "0xabc", resp["address"])
	assert.Equal(t, "0x2bf8", resp["nullifier_hash"])

	require.Len(t, worldID.calls, 1)
	assert.Equal(t, "propose-tag", worldID.calls[0].Action)
}

func TestVerifyHuman_GuardRejections(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"invalid json", "{", nil, http.StatusBadRequest, "Invalid JSON body"},
		{"missing payload", `{"other":1}`, nil, http.StatusBadRequest, "Missing verifyPayload"},
		{"proof rejected", proofBody, core.ErrWorldIDRejected, http.StatusBadRequest, "WorldID verification failed"},
		{"api down", proofBody, errors.New("connection refused"), http.StatusBadGateway, "WorldID verification unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, token := newWorldIDRouter(t, &stubWorldID{err: tt.err})

			w := verifyHuman(router, token, tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, `{"error":"`+tt.wantMsg+`"}`, w.Body.String())
		})
	}
}

func TestVerifyHuman_RequiresSession(t *testing.T) {
	worldID := &stubWorldID{}
	router, _ := newWorldIDRouter(t, worldID)

	assert.Equal(t, http.StatusUnauthorized, verifyHuman(router, "", proofBody).Code)
	assert.Empty(t, worldID.calls)
}

func TestVerifyHuman_DisabledWithoutVerifier(t *testing.T) {
	router := newRouter(t, success("0xabc"), defaultCookie())
	assert.Equal(t, http.StatusNotFound, verifyHuman(router, "", proofBody).Code)
}
