package http

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mijinummi/Lumenpulse/adapters/horizon"
	"github.com/mijinummi/Lumenpulse/adapters/store/memory"
	"github.com/mijinummi/Lumenpulse/adapters/tokenizer"
	"github.com/mijinummi/Lumenpulse/core"
	"github.com/mijinummi/Lumenpulse/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.NewStore()
	log := zap.NewNop()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tok := tokenizer.NewJWTTokenizer(key)

	challenges := service.NewChallengeStore(service.DefaultSweepInterval, log)
	refresh := service.NewRefreshManager(store.RefreshTokens(), store.Users(), tok, log)
	reset := service.NewResetManager(store.Users(), store.ResetTokens(), noopMailer{}, nil, log)
	auth := service.NewAuthService(challenges, store.Users(), refresh, tok, nil,
		keypair.MustRandom(), "lumenpulse.test", log)

	handlers := NewAuthHandlers(auth, refresh, reset, horizon.NewClient("http://horizon.invalid"), nil, log)
	return &testServer{
		router: SetupRouter(handlers, tok, nil, log),
		store:  store,
	}
}

type noopMailer struct{}

func (noopMailer) SendPasswordReset(ctx context.Context, address, rawToken string) error {
	return nil
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// login runs the challenge-response flow and returns the session pair.
func (s *testServer) login(t *testing.T, kp *keypair.Full) (accessToken, refreshToken string) {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/auth/challenge", gin.H{"public_key": kp.Address()}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	challenge := decodeBody(t, rec)["challenge"].(string)

	rec = s.do(t, http.MethodPost, "/auth/verify", gin.H{
		"public_key":     kp.Address(),
		"signed_payload": signChallenge(t, kp, challenge),
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	return body["access_token"].(string), body["refresh_token"].(string)
}

func signChallenge(t *testing.T, kp *keypair.Full, challenge string) string {
	t.Helper()

	raw, err := base64.StdEncoding.DecodeString(challenge)
	require.NoError(t, err)

	var envelope core.ChallengeEnvelope
	require.NoError(t, json.Unmarshal(raw, &envelope))

	payloadBytes, err := json.Marshal(envelope.Payload)
	require.NoError(t, err)

	sig, err := kp.Sign(payloadBytes)
	require.NoError(t, err)

	envelope.Signatures = append(envelope.Signatures, core.ChallengeSignature{
		PublicKey: kp.Address(),
		Signature: base64.StdEncoding.EncodeToString(sig),
	})

	out, err := json.Marshal(envelope)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(out)
}

func TestChallengeVerifyFlow(t *testing.T) {
	server := newTestServer(t)
	kp := keypair.MustRandom()

	access, refresh := server.login(t, kp)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
}

func TestChallengeRejectsBadKey(t *testing.T) {
	server := newTestServer(t)

	rec := server.do(t, http.MethodPost, "/auth/challenge", gin.H{"public_key": "nope"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyWithoutChallenge(t *testing.T) {
	server := newTestServer(t)
	kp := keypair.MustRandom()

	rec := server.do(t, http.MethodPost, "/auth/verify", gin.H{
		"public_key":     kp.Address(),
		"signed_payload": "aW5pdGlhbA==",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeRequiresToken(t *testing.T) {
	server := newTestServer(t)

	rec := server.do(t, http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = server.do(t, http.MethodGet, "/api/me", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeReturnsSessionIdentity(t *testing.T) {
	server := newTestServer(t)
	kp := keypair.MustRandom()

	access, _ := server.login(t, kp)

	rec := server.do(t, http.MethodGet, "/api/me", nil, map[string]string{
		"Authorization": "Bearer " + access,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, kp.Address(), body["public_key"])
	assert.NotEmpty(t, body["user_id"])
}

func TestRefreshRotation(t *testing.T) {
	server := newTestServer(t)
	kp := keypair.MustRandom()

	_, refresh := server.login(t, kp)

	rec := server.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": refresh}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decodeBody(t, rec)["refresh_token"].(string)
	assert.NotEqual(t, refresh, rotated)

	// The old token died with the rotation.
	rec = server.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": refresh}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = server.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": rotated}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	server := newTestServer(t)
	kp := keypair.MustRandom()

	_, refresh := server.login(t, kp)

	rec := server.do(t, http.MethodPost, "/auth/logout", gin.H{"refresh_token": refresh}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = server.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": refresh}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logging out again reveals nothing.
	rec = server.do(t, http.MethodPost, "/auth/logout", gin.H{"refresh_token": refresh}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	server := newTestServer(t)
	kp := keypair.MustRandom()

	access, first := server.login(t, kp)
	_, second := server.login(t, kp)

	rec := server.do(t, http.MethodPost, "/api/logout_all", nil, map[string]string{
		"Authorization": "Bearer " + access,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, token := range []string{first, second} {
		rec = server.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": token}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestForgotPasswordIsGeneric(t *testing.T) {
	server := newTestServer(t)

	known := server.do(t, http.MethodPost, "/auth/password/forgot", gin.H{"email": "known@example.com"}, nil)
	unknown := server.do(t, http.MethodPost, "/auth/password/forgot", gin.H{"email": "unknown@example.com"}, nil)

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.JSONEq(t, known.Body.String(), unknown.Body.String(),
		"registered and unregistered emails must be indistinguishable")
}

func TestResetPasswordRejectionsAreUniform(t *testing.T) {
	server := newTestServer(t)

	rec := server.do(t, http.MethodPost, "/auth/password/reset", gin.H{
		"token":        "never-issued",
		"new_password": "long enough password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResetPasswordValidatesLength(t *testing.T) {
	server := newTestServer(t)

	rec := server.do(t, http.MethodPost, "/auth/password/reset", gin.H{
		"token":        "whatever",
		"new_password": "short",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
