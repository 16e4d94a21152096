package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/http/middleware"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/http/response"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/observability"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/security"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/service"
)

const MessageWrongPassword = "Contraseña incorrecta."

type AuthHandler struct {
	password   string
	csrfSecret string
	tokens     *security.SessionTokenManager
	cookies    *security.CookieManager
	sessions   service.SessionStore
	ttl        time.Duration
	logger     *slog.Logger
}

func NewAuthHandler(
	password, csrfSecret string,
	tokens *security.SessionTokenManager,
	cookies *security.CookieManager,
	sessions service.SessionStore,
	ttl time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		password:   password,
		csrfSecret: csrfSecret,
		tokens:     tokens,
		cookies:    cookies,
		sessions:   sessions,
		ttl:        ttl,
		logger:     logger,
	}
}

type loginPage struct {
	Flash *flash
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	response.Page(w, r, http.StatusOK, pages, "login", loginPage{})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		response.Page(w, r, http.StatusBadRequest, pages, "login", loginPage{Flash: failure(MessageWrongPassword)})
		return
	}
	if !security.PasswordMatches(r.PostFormValue("password"), h.password) {
		observability.RecordLoginAttempt(r.Context(), "failure")
		h.logger.WarnContext(r.Context(), "login rejected", "remote_addr", r.RemoteAddr)
		response.Page(w, r, http.StatusUnauthorized, pages, "login", loginPage{Flash: failure(MessageWrongPassword)})
		return
	}
	sid, err := security.NewRandomString(24)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "session id generation failed", "error", err)
		response.Message(w, r, http.StatusInternalServerError, "Error", "No se pudo iniciar la sesión.")
		return
	}
	raw, err := h.tokens.Sign(sid, h.ttl)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "session sign failed", "error", err)
		response.Message(w, r, http.StatusInternalServerError, "Error", "No se pudo iniciar la sesión.")
		return
	}
	h.cookies.SetSessionCookie(w, raw, h.ttl)
	observability.RecordLoginAttempt(r.Context(), "success")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid, _ := middleware.SessionIDFromContext(r.Context())
	if err := security.RequireCSRF(r, sid, h.csrfSecret); err != nil {
		response.Message(w, r, http.StatusForbidden, "Solicitud no válida", "El formulario ha caducado. Vuelve a cargar la página.")
		return
	}
	if err := h.sessions.Delete(r.Context(), sid); err != nil {
		h.logger.WarnContext(r.Context(), "session state delete failed", "error", err)
	}
	h.cookies.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
