// ABOUTME: Signed session cookie values using HS256 JWTs
// ABOUTME: A token names the account (sub) and the server-side session (sid)

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// SessionClaims is what a verified session cookie carries.
type SessionClaims struct {
	AccountID string
	SessionID string
	ExpiresAt time.Time
}

// CookieSigner signs and verifies session cookie values.
type CookieSigner struct {
	secret []byte
}

// NewCookieSigner creates a signer with the given HMAC secret.
func NewCookieSigner(secret []byte) *CookieSigner {
	return &CookieSigner{secret: secret}
}

// Sign returns a token for the given session.
func (c *CookieSigner) Sign(accountID, sessionID string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": accountID,
		"sid": sessionID,
		"iat": time.Now().Unix(),
		"exp": expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify validates the signature and expiry and extracts the session claims.
func (c *CookieSigner) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return nil, fmt.Errorf("%w: sid", ErrMissingClaim)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: exp", ErrMissingClaim)
	}

	return &SessionClaims{AccountID: sub, SessionID: sid, ExpiresAt: exp.Time}, nil
}
