package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

// Issuer: значение iss в токенах дашборда.
const Issuer = "cintia-dashboard"

// leeway на расхождение часов между инстансами
const leeway = 30 * time.Second

var ErrInvalidToken = errors.New("invalid token")

// Verifier проверяет токены, выданные POST /auth/token.
type Verifier struct {
	publicKey *rsa.PublicKey
	parser    *jwt.Parser
}

func NewVerifier(pub *rsa.PublicKey) *Verifier {
	return &Verifier{
		publicKey: pub,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(leeway),
		),
	}
}

// VerifyToken принимает значение заголовка Authorization или сам токен.
func (v *Verifier) VerifyToken(header string) (*domain.CustomClaims, error) {
	raw := strings.TrimSpace(header)
	if scheme, rest, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, "Bearer") {
		raw = strings.TrimSpace(rest)
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	claims := &domain.CustomClaims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.publicKey, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: no user", ErrInvalidToken)
	}
	return claims, nil
}

// LoadKeyPair разбирает PEM ключи из auth.public_key и auth.private_key
// и проверяет, что это одна пара: иначе выданные токены не пройдут проверку.
func LoadKeyPair(publicPEM, privatePEM []byte) (*rsa.PublicKey, *rsa.PrivateKey, error) {
	if len(publicPEM) == 0 || len(privatePEM) == 0 {
		return nil, nil, errors.New("auth keys are not configured")
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("parse public key: %w", err)
	}
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, nil, fmt.Errorf("parse private key: %w", err)
	}
	if !priv.PublicKey.Equal(pub) {
		return nil, nil, errors.New("public key does not match private key")
	}
	return pub, priv, nil
}
