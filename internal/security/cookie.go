package security

import (
	"net/http"
	"time"
)

const SessionCookieName = "entrega_session"

type CookieManager struct {
	Secure   bool
	SameSite http.SameSite
}

func NewCookieManager(secure bool) *CookieManager {
	return &CookieManager{Secure: secure, SameSite: http.SameSiteLaxMode}
}

func (c *CookieManager) SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
		MaxAge:   int(ttl.Seconds()),
	})
}

func (c *CookieManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Path: "/", Value: "", MaxAge: -1, HttpOnly: true, Secure: c.Secure, SameSite: c.SameSite})
}

func GetCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
