package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T, now func() time.Time) Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewService(Config{
		Secret:            []byte("test-secret"),
		AdminEmail:        "Admin@Printa.io",
		AdminPasswordHash: string(hash),
		TokenTTL:          time.Hour,
		Now:               now,
	})
}

func TestLoginAndVerify(t *testing.T) {
	svc := newTestService(t, nil)

	token, err := svc.Login(context.Background(), " admin@printa.io ", "hunter2")
	require.NoError(t, err)

	subject, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@printa.io", subject)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.Login(context.Background(), "admin@printa.io", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), "someone@else.io", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	disabled := NewService(Config{Secret: []byte("x")})
	_, err = disabled.Login(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	past := func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := newTestService(t, past).Login(context.Background(), "admin@printa.io", "hunter2")
	require.NoError(t, err)

	svc := newTestService(t, nil)
	_, err = svc.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.StandardClaims{
		Subject:   "admin@printa.io",
		Issuer:    issuer,
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	signed, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLoginHandler(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(newTestService(t, nil)).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"admin@printa.io","password":"hunter2"}`))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotEmpty(t, body["token"])

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"admin@printa.io","password":"nope"}`))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{`))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMiddleware(t *testing.T) {
	svc := newTestService(t, nil)
	token, err := svc.Login(context.Background(), "admin@printa.io", "hunter2")
	require.NoError(t, err)

	protected := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := SubjectFrom(r.Context())
		assert.True(t, ok)
		_, _ = w.Write([]byte(subject))
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin@printa.io", rec.Body.String())
}
