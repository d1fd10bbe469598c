// Package relayauth issues and validates the bearer tokens used to
// authenticate against relays that require it. Tokens are HS256 JWTs scoped
// to a relay address via the audience claim.
package relayauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long issued tokens stay valid when no TTL is given.
const DefaultTTL = 24 * time.Hour

// Claims represents the relay token claims
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// TokenAuth handles relay token creation and validation
type TokenAuth struct {
	secretKey []byte
	clientID  string
	ttl       time.Duration
}

// NewTokenAuth creates a new token handler for the given client identity.
func NewTokenAuth(secretKey, clientID string) (*TokenAuth, error) {
	if secretKey == "" {
		return nil, errors.New("secret key cannot be empty")
	}
	if clientID == "" {
		return nil, errors.New("client ID cannot be empty")
	}
	return &TokenAuth{
		secretKey: []byte(secretKey),
		clientID:  clientID,
		ttl:       DefaultTTL,
	}, nil
}

// WithTTL overrides the token lifetime.
func (a *TokenAuth) WithTTL(ttl time.Duration) *TokenAuth {
	if ttl > 0 {
		a.ttl = ttl
	}
	return a
}

// GenerateToken creates a new token scoped to the given relay address.
func (a *TokenAuth) GenerateToken(relayAddress string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(a.ttl)

	claims := Claims{
		ClientID: a.clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{relayAddress},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(a.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken parses and validates a token, returning its claims. When
// relayAddress is non-empty the token's audience must match it.
func (a *TokenAuth) ValidateToken(tokenString, relayAddress string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if relayAddress != "" {
		opts = append(opts, jwt.WithAudience(relayAddress))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.secretKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.ClientID == "" {
		return nil, errors.New("token missing client ID")
	}
	return claims, nil
}

// Token implements the transport's TokenProvider contract: a fresh token per
// relay address.
func (a *TokenAuth) Token(relayAddress string) (string, error) {
	token, _, err := a.GenerateToken(relayAddress)
	return token, err
}
