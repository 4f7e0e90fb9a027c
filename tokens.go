package pnba

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiryAccess is the default lifetime of an access token.
const TokenExpiryAccess = 1 * time.Hour

// TokenIssuer mints and verifies the signed access tokens handed out by the
// HTTP surface once a handshake completes. The token subject is the
// authenticated phone number.
type TokenIssuer struct {
	SecretKey string
	Issuer    string
	Expiry    time.Duration // defaults to TokenExpiryAccess
}

// CreateAccessToken creates a signed JWT access token for the account.
// Returns the token and its lifetime in seconds.
func (t *TokenIssuer) CreateAccessToken(accountID string) (string, int64, error) {
	expiry := t.Expiry
	if expiry == 0 {
		expiry = TokenExpiryAccess
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  accountID,
		"type": "access",
		"iat":  now.Unix(),
		"exp":  now.Add(expiry).Unix(),
	}
	if t.Issuer != "" {
		claims["iss"] = t.Issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(t.SecretKey))
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, int64(expiry.Seconds()), nil
}

// ValidateAccessToken validates a JWT access token and returns the account
// it was issued to.
func (t *TokenIssuer) ValidateAccessToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(t.SecretKey), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid claims")
	}

	if tokenType, ok := claims["type"].(string); !ok || tokenType != "access" {
		return "", fmt.Errorf("invalid token type")
	}
	if t.Issuer != "" {
		if iss, ok := claims["iss"].(string); !ok || iss != t.Issuer {
			return "", fmt.Errorf("invalid issuer")
		}
	}

	accountID, ok := claims["sub"].(string)
	if !ok || accountID == "" {
		return "", fmt.Errorf("missing subject")
	}

	return accountID, nil
}
