package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the fixed validity window of an issued token.
const TokenTTL = time.Hour

// Option customises an Issuer or Verifier.
type Option func(*clock)

type clock struct {
	now func() time.Time
}

// WithClock overrides the time source used for iat/exp handling.
func WithClock(now func() time.Time) Option {
	return func(c *clock) {
		if now != nil {
			c.now = now
		}
	}
}

func newClock(opts []Option) clock {
	c := clock{now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Issuer signs HS256 session tokens.
type Issuer struct {
	secret []byte
	clock  clock
}

// NewIssuer constructs an Issuer. An empty secret is a configuration error.
func NewIssuer(secret []byte, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	return &Issuer{secret: secret, clock: newClock(opts)}, nil
}

// Issue signs the caller-supplied claims. iat and exp are always set by the
// issuer, overriding any values present in claims.
func (i *Issuer) Issue(claims map[string]any) (string, error) {
	now := i.clock.now()
	payload := make(jwt.MapClaims, len(claims)+2)
	for k, v := range claims {
		payload[k] = v
	}
	payload["iat"] = now.Unix()
	payload["exp"] = now.Add(TokenTTL).Unix()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verifier validates tokens produced by Issuer.
type Verifier struct {
	secret []byte
	clock  clock
}

// NewVerifier constructs a Verifier. An empty secret is a configuration error.
func NewVerifier(secret []byte, opts ...Option) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	return &Verifier{secret: secret, clock: newClock(opts)}, nil
}

// Verify checks signature, algorithm and expiry and returns the identity
// carried by the token.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrMissingCredentials
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	email, ok := claims[EmailClaim].(string)
	if !ok || email == "" {
		return Identity{}, fmt.Errorf("%w: %s", ErrMissingClaim, EmailClaim)
	}

	copied := make(map[string]any, len(claims))
	for k, val := range claims {
		copied[k] = val
	}
	return Identity{Email: email, Claims: copied}, nil
}
