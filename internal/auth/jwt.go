package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/aircheckin/internal/clock"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims carry the user id in sub and the contact email used for booking
// ownership.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Identity struct {
	UserID string
	Email  string
}

// Verifier checks HS256 access tokens.
type Verifier struct {
	secret []byte
	clock  clock.Clock
}

func NewVerifier(secret string, c clock.Clock) *Verifier {
	if c == nil {
		c = clock.Real()
	}
	return &Verifier{secret: []byte(secret), clock: c}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(raw), nil
}

func (v *Verifier) Verify(raw string) (Identity, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.clock.Now))
	if err != nil || !tok.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}
