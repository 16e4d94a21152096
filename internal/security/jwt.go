package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionTokenType = "form_session"

var ErrInvalidSession = errors.New("invalid session token")

type SessionClaims struct {
	SessionID string `json:"sid"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// SessionTokenManager signs the cookie that proves the password gate was passed.
type SessionTokenManager struct {
	issuer string
	secret []byte
	now    func() time.Time
}

func NewSessionTokenManager(issuer, secret string) *SessionTokenManager {
	return &SessionTokenManager{issuer: issuer, secret: []byte(secret), now: time.Now}
}

func (m *SessionTokenManager) Sign(sessionID string, ttl time.Duration) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("sign session: empty session id")
	}
	now := m.now()
	claims := SessionClaims{
		SessionID: sessionID,
		TokenType: sessionTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   "operator",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *SessionTokenManager) Parse(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	if claims.TokenType != sessionTokenType || claims.SessionID == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
