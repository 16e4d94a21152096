package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

var ErrInvalidCSRFToken = errors.New("invalid csrf token")

const CSRFFormField = "csrf_token"

func NewRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func SignState(state, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(state))
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	return state + "." + sig
}

func VerifySignedState(raw, secret string) (string, bool) {
	parts := strings.Split(raw, ".")
	if len(parts) != 2 {
		return "", false
	}
	expected := SignState(parts[0], secret)
	if !hmac.Equal([]byte(expected), []byte(raw)) {
		return "", false
	}
	return parts[0], true
}

// CSRFToken binds a form token to the browser session it was rendered for.
func CSRFToken(sessionID, secret string) string {
	return SignState(sessionID, secret)
}

// RequireCSRF checks the submitted form token against the session id.
func RequireCSRF(r *http.Request, sessionID, secret string) error {
	raw := r.PostFormValue(CSRFFormField)
	if raw == "" || sessionID == "" {
		return ErrInvalidCSRFToken
	}
	state, ok := VerifySignedState(raw, secret)
	if !ok || state != sessionID {
		return ErrInvalidCSRFToken
	}
	return nil
}
