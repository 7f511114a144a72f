// Package auth issues and verifies bearer tokens and carries the verified
// identity through the request context.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenInvalid        = errors.New("token invalid")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 tokens with a single shared secret.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// SetClock replaces the time source used for issuing and verifying tokens.
func (m *TokenManager) SetClock(now func() time.Time) {
	m.now = now
}

func (m *TokenManager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// IssueAccessToken returns a signed access token and its expiry.
func (m *TokenManager) IssueAccessToken(userID, role string) (string, time.Time, error) {
	token, _, exp, err := m.issue(userID, role, TokenTypeAccess, m.accessTTL)
	return token, exp, err
}

// IssueRefreshToken returns a signed refresh token together with its unique
// id, which the refresh store tracks for rotation and revocation.
func (m *TokenManager) IssueRefreshToken(userID, role string) (token, jti string, exp time.Time, err error) {
	return m.issue(userID, role, TokenTypeRefresh, m.refreshTTL)
}

func (m *TokenManager) issue(userID, role, typ string, ttl time.Duration) (string, string, time.Time, error) {
	now := m.now()
	exp := now.Add(ttl)
	jti := uuid.NewString()
	claims := Claims{
		UserID: userID,
		Role:   role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, jti, exp, nil
}

func (m *TokenManager) VerifyAccessToken(token string) (*Claims, error) {
	return m.verify(token, TokenTypeAccess)
}

func (m *TokenManager) VerifyRefreshToken(token string) (*Claims, error) {
	return m.verify(token, TokenTypeRefresh)
}

// verify distinguishes expiry from every other failure; callers answer both
// with 401 but report them differently.
func (m *TokenManager) verify(token, typ string) (*Claims, error) {
	claims := &Claims{}
	keyFunc := func(*jwt.Token) (any, error) {
		return m.secret, nil
	}
	_, err := jwt.ParseWithClaims(token, claims, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Type != typ || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
