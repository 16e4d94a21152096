package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/security"
)

func TestRequireSessionRedirectsWithoutCookie(t *testing.T) {
	tokens := security.NewSessionTokenManager("entrega", strings.Repeat("k", 32))
	h := RequireSession(tokens, "/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, cookie := range []string{"", "garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: cookie})
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
			t.Fatalf("cookie %q: expected redirect to /login, got %d %q", cookie, rr.Code, rr.Header().Get("Location"))
		}
	}
}

func TestRequireSessionStoresSessionID(t *testing.T) {
	tokens := security.NewSessionTokenManager("entrega", strings.Repeat("k", 32))
	raw, err := tokens.Sign("sid-1", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	var got string
	h := RequireSession(tokens, "/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: raw})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || got != "sid-1" {
		t.Fatalf("expected session sid-1 to pass, got %d %q", rr.Code, got)
	}
}
