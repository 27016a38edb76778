package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devforum/api/internal/config"
	"github.com/devforum/api/internal/domain"
	jwtinfra "github.com/devforum/api/internal/infrastructure/jwt"
	"github.com/devforum/api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockVoteSvc struct{ mock.Mock }

func (m *mockVoteSvc) Apply(ctx context.Context, kind domain.EntityKind, entityID, userID string, direction domain.VoteDirection) (*domain.VoteResult, error) {
	args := m.Called(ctx, kind, entityID, userID, direction)
	if r, _ := args.Get(0).(*domain.VoteResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

// newTestJWT generates a fresh key pair, returns a verify-only provider and
// the private key for signing test tokens.
func newTestJWT(t *testing.T) (*jwtinfra.Provider, *rsa.PrivateKey) {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pubPath := filepath.Join(t.TempDir(), "public.pem")
	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := jwtinfra.NewProvider(&config.Config{JWTPublicKeyPath: pubPath})
	require.NoError(t, err)
	return p, privKey
}

// bearerReq builds a request carrying a signed Bearer token for userID.
func bearerReq(t *testing.T, key *rsa.PrivateKey, method, target, userID string, body []byte) *http.Request {
	t.Helper()
	claims := &jwtinfra.Claims{
		UserID: userID,
		Role:   domain.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)

	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// withChiID injects a chi URL param "id" into the request context.
func withChiID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// serveAuthed wraps the handler with middleware.Auth before serving.
func serveAuthed(p *jwtinfra.Provider, h http.HandlerFunc, w http.ResponseWriter, r *http.Request) {
	middleware.Auth(p)(h).ServeHTTP(w, r)
}

// --- tests ---

func TestVoteThread_NoToken(t *testing.T) {
	p, _ := newTestJWT(t)
	h := NewVoteHandler(&mockVoteSvc{})

	r := httptest.NewRequest(http.MethodPost, "/v1/threads/t1/vote", bytes.NewBufferString(`{"direction":"up"}`))
	rr := httptest.NewRecorder()
	serveAuthed(p, h.VoteThread, rr, r)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestVoteThread_InvalidBody(t *testing.T) {
	p, key := newTestJWT(t)
	h := NewVoteHandler(&mockVoteSvc{})

	r := withChiID(bearerReq(t, key, http.MethodPost, "/v1/threads/t1/vote", "u1", []byte("not-json")), "t1")
	rr := httptest.NewRecorder()
	serveAuthed(p, h.VoteThread, rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVoteThread_BadDirection(t *testing.T) {
	p, key := newTestJWT(t)
	h := NewVoteHandler(&mockVoteSvc{})

	body, _ := json.Marshal(voteRequest{Direction: "sideways"})
	r := withChiID(bearerReq(t, key, http.MethodPost, "/v1/threads/t1/vote", "u1", body), "t1")
	rr := httptest.NewRecorder()
	serveAuthed(p, h.VoteThread, rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVoteThread_HappyPath(t *testing.T) {
	p, key := newTestJWT(t)

	svc := &mockVoteSvc{}
	svc.On("Apply", mock.Anything, domain.KindThread, "t1", "u1", domain.VoteUp).
		Return(&domain.VoteResult{UpvoteCount: 4, DownvoteCount: 1}, nil)
	h := NewVoteHandler(svc)

	body, _ := json.Marshal(voteRequest{Direction: "up"})
	r := withChiID(bearerReq(t, key, http.MethodPost, "/v1/threads/t1/vote", "u1", body), "t1")
	rr := httptest.NewRecorder()
	serveAuthed(p, h.VoteThread, rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var result domain.VoteResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&result))
	assert.Equal(t, 4, result.UpvoteCount)
	assert.Equal(t, 1, result.DownvoteCount)
	svc.AssertExpectations(t)
}

func TestVoteThread_NotFound(t *testing.T) {
	p, key := newTestJWT(t)

	svc := &mockVoteSvc{}
	svc.On("Apply", mock.Anything, domain.KindThread, "missing", "u1", domain.VoteDown).
		Return(nil, domain.ErrNotFound)
	h := NewVoteHandler(svc)

	body, _ := json.Marshal(voteRequest{Direction: "down"})
	r := withChiID(bearerReq(t, key, http.MethodPost, "/v1/threads/missing/vote", "u1", body), "missing")
	rr := httptest.NewRecorder()
	serveAuthed(p, h.VoteThread, rr, r)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestVoteThread_ConflictAfterRetries(t *testing.T) {
	p, key := newTestJWT(t)

	svc := &mockVoteSvc{}
	svc.On("Apply", mock.Anything, domain.KindThread, "t1", "u1", domain.VoteUp).
		Return(nil, domain.ErrConflict)
	h := NewVoteHandler(svc)

	body, _ := json.Marshal(voteRequest{Direction: "up"})
	r := withChiID(bearerReq(t, key, http.MethodPost, "/v1/threads/t1/vote", "u1", body), "t1")
	rr := httptest.NewRecorder()
	serveAuthed(p, h.VoteThread, rr, r)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestVoteComment_RoutesToCommentKind(t *testing.T) {
	p, key := newTestJWT(t)

	svc := &mockVoteSvc{}
	svc.On("Apply", mock.Anything, domain.KindComment, "c1", "u1", domain.VoteUp).
		Return(&domain.VoteResult{UpvoteCount: 1}, nil)
	h := NewVoteHandler(svc)

	body, _ := json.Marshal(voteRequest{Direction: "up"})
	r := withChiID(bearerReq(t, key, http.MethodPost, "/v1/comments/c1/vote", "u1", body), "c1")
	rr := httptest.NewRecorder()
	serveAuthed(p, h.VoteComment, rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}
