package auth

import (
	"fmt"
	"time"

	"github.com/fivetwenty-io/octokit/internal/constants"
	"github.com/golang-jwt/jwt/v5"
)

// NewJWT signs an RS256 app assertion issued by appID at now. It is valid
// for constants.AppTokenLifetime.
func NewJWT(appID string, key []byte, now time.Time) (string, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", constants.ErrPrivateKeyUnreadable, err)
	}

	claims := jwt.RegisteredClaims{
		Issuer:    appID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(constants.AppTokenLifetime)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign app assertion: %w", err)
	}

	return signed, nil
}

// appToken mints a fresh assertion as a bearer token.
func appToken(appID string, key []byte, now time.Time) (*Token, error) {
	signed, err := NewJWT(appID, key, now)
	if err != nil {
		return nil, err
	}

	return &Token{
		AccessToken: signed,
		TokenType:   constants.TokenTypeBearer,
		ExpiresAt:   now.Add(constants.AppTokenLifetime),
	}, nil
}
