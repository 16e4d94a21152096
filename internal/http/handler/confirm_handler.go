package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/http/middleware"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/http/response"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/receipt"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/security"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/service"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/workflow"
)

const (
	MessageIncorrectCode      = "Código incorrecto. Revisa el correo e inténtalo de nuevo."
	MessageFinalizeInProgress = "La confirmación ya se está procesando. Vuelve a intentarlo en unos minutos."
	MessageFinalizeFailed     = "Ocurrió un error al procesar la confirmación. Inténtalo de nuevo."
)

// ConfirmHandler accepts the emailed code for the record held in the
// browser session.
type ConfirmHandler struct {
	wf         Workflow
	sessions   service.SessionStore
	csrfSecret string
	logger     *slog.Logger
}

func NewConfirmHandler(wf Workflow, sessions service.SessionStore, csrfSecret string, logger *slog.Logger) *ConfirmHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmHandler{wf: wf, sessions: sessions, csrfSecret: csrfSecret, logger: logger}
}

type confirmPage struct {
	CSRF  string
	Flash *flash
	State service.FormState
}

type donePage struct {
	CSRF        string
	Result      workflow.FinalizeResult
	GeneratedAt string
}

func (h *ConfirmHandler) Page(w http.ResponseWriter, r *http.Request) {
	sid, _ := middleware.SessionIDFromContext(r.Context())
	state, ok := h.loadState(w, r, sid)
	if !ok {
		return
	}
	response.Page(w, r, http.StatusOK, pages, "confirm", confirmPage{
		CSRF:  security.CSRFToken(sid, h.csrfSecret),
		State: state,
	})
}

func (h *ConfirmHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sid, _ := middleware.SessionIDFromContext(r.Context())
	if err := security.RequireCSRF(r, sid, h.csrfSecret); err != nil {
		response.Message(w, r, http.StatusForbidden, "Solicitud no válida", MessageFormExpired)
		return
	}
	state, ok := h.loadState(w, r, sid)
	if !ok {
		return
	}
	csrf := security.CSRFToken(sid, h.csrfSecret)

	res, err := h.wf.Confirm(r.Context(), state.RecordID, strings.TrimSpace(r.PostFormValue("code")))
	switch {
	case err == nil:
		h.forget(r, sid)
		response.Page(w, r, http.StatusOK, pages, "done", donePage{
			CSRF:        csrf,
			Result:      res,
			GeneratedAt: res.GeneratedAt.UTC().Format(receipt.TimestampLayout),
		})
	case errors.Is(err, workflow.ErrIncorrectCode):
		response.Page(w, r, http.StatusUnprocessableEntity, pages, "confirm", confirmPage{
			CSRF:  csrf,
			Flash: failure(MessageIncorrectCode),
			State: state,
		})
	case errors.Is(err, workflow.ErrAlreadyVerified):
		h.forget(r, sid)
		response.Message(w, r, http.StatusConflict, "Registro verificado", MessageAlreadyVerified)
	case errors.Is(err, workflow.ErrFinalizeInProgress):
		response.Message(w, r, http.StatusConflict, "En proceso", MessageFinalizeInProgress)
	default:
		h.logger.ErrorContext(r.Context(), "confirmation failed", "record_id", state.RecordID, "error", err)
		response.Page(w, r, http.StatusBadGateway, pages, "confirm", confirmPage{
			CSRF:  csrf,
			Flash: failure(MessageFinalizeFailed),
			State: state,
		})
	}
}

func (h *ConfirmHandler) loadState(w http.ResponseWriter, r *http.Request, sid string) (service.FormState, bool) {
	state, ok, err := h.sessions.Load(r.Context(), sid)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "session state load failed", "error", err)
		response.Message(w, r, http.StatusInternalServerError, "Error", MessageFinalizeFailed)
		return service.FormState{}, false
	}
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return service.FormState{}, false
	}
	return state, true
}

func (h *ConfirmHandler) forget(r *http.Request, sid string) {
	if err := h.sessions.Delete(r.Context(), sid); err != nil {
		h.logger.WarnContext(r.Context(), "session state delete failed", "error", err)
	}
}
