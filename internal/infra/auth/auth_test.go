package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func sign(t *testing.T, key *rsa.PrivateKey, issuer string, ttl time.Duration, scopes map[string]bool) string {
	t.Helper()
	claims := &domain.CustomClaims{
		UserID: "admin",
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestVerifyToken(t *testing.T) {
	key := newKey(t)
	v := NewVerifier(&key.PublicKey)

	claims, err := v.VerifyToken("Bearer " + sign(t, key, Issuer, time.Hour, map[string]bool{"reload": true}))
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.UserID)
	assert.True(t, claims.Scopes[domain.ScopeReload])

	_, err = v.VerifyToken(sign(t, key, Issuer, -time.Minute, nil))
	assert.Error(t, err, "expired")

	_, err = v.VerifyToken(sign(t, key, "someone-else", time.Hour, nil))
	assert.Error(t, err, "wrong issuer")

	_, err = v.VerifyToken(sign(t, newKey(t), Issuer, time.Hour, nil))
	assert.Error(t, err, "foreign key")

	_, err = v.VerifyToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.VerifyToken("Bearer ")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// схема в заголовке регистронезависима
	_, err = v.VerifyToken("bearer " + sign(t, key, Issuer, time.Hour, nil))
	assert.NoError(t, err)

	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &domain.CustomClaims{
		UserID:           "admin",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = v.VerifyToken(hs)
	assert.ErrorIs(t, err, ErrInvalidToken, "only RS256 is accepted")
}

func pemPair(t *testing.T, key *rsa.PrivateKey) ([]byte, []byte) {
	t.Helper()
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), privPEM
}

func TestLoadKeyPair(t *testing.T) {
	key := newKey(t)
	pubPEM, privPEM := pemPair(t, key)

	pub, priv, err := LoadKeyPair(pubPEM, privPEM)
	require.NoError(t, err)
	assert.Equal(t, key.N, pub.N)
	assert.Equal(t, key.N, priv.N)

	otherPub, _ := pemPair(t, newKey(t))
	_, _, err = LoadKeyPair(otherPub, privPEM)
	assert.ErrorContains(t, err, "does not match")

	_, _, err = LoadKeyPair(nil, privPEM)
	assert.Error(t, err)
	_, _, err = LoadKeyPair(pubPEM, []byte("not a key"))
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	key := newKey(t)
	mw := NewMiddleware(NewVerifier(&key.PublicKey), domain.ScopeReload, zap.NewNop())

	var user string
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		user = claims.UserID
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"invalid", "Bearer nope", http.StatusUnauthorized},
		{"no scope", "Bearer " + sign(t, key, Issuer, time.Hour, map[string]bool{"view": true}), http.StatusForbidden},
		{"ok", "Bearer " + sign(t, key, Issuer, time.Hour, map[string]bool{"reload": true}), http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/dataset/reload", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
			if tc.want != http.StatusNoContent {
				assert.Contains(t, rec.Body.String(), `"error_code"`)
			}
		})
	}
	assert.Equal(t, "admin", user)
}
