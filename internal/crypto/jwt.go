package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "catalog"
	tokenAudience = "catalog-api"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims represents the JWT claims issued at login. Subject holds the user's email.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies access tokens with a shared HMAC secret.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
	expiry time.Duration
	now    func() time.Time
}

// NewTokenCodec creates a codec for the named HMAC algorithm (HS256, HS384 or HS512).
func NewTokenCodec(secret, algorithm string, expiry time.Duration) (*TokenCodec, error) {
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}

	return &TokenCodec{
		secret: []byte(secret),
		method: method,
		expiry: expiry,
		now:    time.Now,
	}, nil
}

// WithClock returns a copy of the codec that reads the current time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// Encode creates a signed token asserting subject, expiring after the codec's expiry.
func (c *TokenCodec) Encode(subject string) (string, error) {
	return c.EncodeWithExpiry(subject, c.now().Add(c.expiry))
}

// EncodeWithExpiry creates a signed token asserting subject with an explicit expiry instant.
func (c *TokenCodec) EncodeWithExpiry(subject string, expiresAt time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(c.now()),
		},
	}

	token := jwt.NewWithClaims(c.method, claims)
	return token.SignedString(c.secret)
}

// Decode parses and validates a token string.
// It returns ErrTokenExpired when the signature is valid but the expiry has passed,
// and ErrInvalidToken for every other failure.
func (c *TokenCodec) Decode(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
