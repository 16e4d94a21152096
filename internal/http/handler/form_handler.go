package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/http/middleware"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/http/response"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/repository"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/security"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/service"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/workflow"
)

const (
	MessageRecordNotFound  = "No se encontraron registros para el partido seleccionado."
	MessageAlreadyVerified = "Este registro ya ha sido verificado."
	MessageSendFailed      = "Ocurrió un error al enviar el correo. El registro ha quedado 'Pendiente'; puedes volver a enviarlo."
	MessageStoreFailed     = "No se pudo leer o actualizar la tabla de entregas. Inténtalo de nuevo."
	MessageFormExpired     = "El formulario ha caducado. Vuelve a cargar la página."
)

// FormHandler serves the password-gated record selection and analyst form.
type FormHandler struct {
	wf         Workflow
	sessions   service.SessionStore
	csrfSecret string
	stateTTL   time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewFormHandler(wf Workflow, sessions service.SessionStore, csrfSecret string, stateTTL time.Duration, logger *slog.Logger) *FormHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FormHandler{
		wf:         wf,
		sessions:   sessions,
		csrfSecret: csrfSecret,
		stateTTL:   stateTTL,
		logger:     logger,
		now:        time.Now,
	}
}

type selectPage struct {
	CSRF    string
	Flash   *flash
	Records []recordView
}

type formPage struct {
	CSRF         string
	Flash        *flash
	Mode         string
	Record       recordView
	AnalystName  string
	AnalystEmail string
}

type linkSentPage struct {
	CSRF   string
	Record recordView
}

func (h *FormHandler) Index(w http.ResponseWriter, r *http.Request) {
	sid, _ := middleware.SessionIDFromContext(r.Context())
	page := selectPage{CSRF: security.CSRFToken(sid, h.csrfSecret)}
	records, err := h.wf.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list records failed", "error", err)
		page.Flash = failure(MessageStoreFailed)
		response.Page(w, r, http.StatusBadGateway, pages, "select", page)
		return
	}
	page.Records = uniqueByMatch(records)
	response.Page(w, r, http.StatusOK, pages, "select", page)
}

func (h *FormHandler) Record(w http.ResponseWriter, r *http.Request) {
	sid, _ := middleware.SessionIDFromContext(r.Context())
	rec, err := h.wf.Get(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		h.recordError(w, r, err)
		return
	}
	response.Page(w, r, http.StatusOK, pages, "form", formPage{
		CSRF:         security.CSRFToken(sid, h.csrfSecret),
		Mode:         string(h.wf.Mode()),
		Record:       viewOf(*rec),
		AnalystName:  rec.AnalystName,
		AnalystEmail: rec.AnalystEmail,
	})
}

func (h *FormHandler) Issue(w http.ResponseWriter, r *http.Request) {
	sid, _ := middleware.SessionIDFromContext(r.Context())
	if err := security.RequireCSRF(r, sid, h.csrfSecret); err != nil {
		response.Message(w, r, http.StatusForbidden, "Solicitud no válida", MessageFormExpired)
		return
	}
	recordID := chi.URLParam(r, "recordID")
	name := r.PostFormValue("analyst_name")
	email := r.PostFormValue("analyst_email")

	res, err := h.wf.Issue(r.Context(), recordID, name, email)
	if err != nil {
		var verr *workflow.ValidationError
		switch {
		case errors.As(err, &verr):
			h.renderForm(w, r, sid, http.StatusUnprocessableEntity, recordID, name, email, warning(verr.Message))
		case errors.Is(err, workflow.ErrNotificationFailed):
			h.renderForm(w, r, sid, http.StatusBadGateway, recordID, name, email, failure(MessageSendFailed))
		default:
			h.recordError(w, r, err)
		}
		return
	}

	if res.Mode == domain.ModeLink {
		response.Page(w, r, http.StatusOK, pages, "link_sent", linkSentPage{
			CSRF:   security.CSRFToken(sid, h.csrfSecret),
			Record: viewOf(res.Record),
		})
		return
	}
	state := service.FormState{
		RecordID:     res.Record.ID,
		MatchID:      res.Record.MatchID,
		AnalystName:  res.Record.AnalystName,
		AnalystEmail: res.Record.AnalystEmail,
		Mode:         res.Mode,
		IssuedAt:     h.now().UTC(),
	}
	if err := h.sessions.Save(r.Context(), sid, state, h.stateTTL); err != nil {
		h.logger.ErrorContext(r.Context(), "session state save failed", "record_id", res.Record.ID, "error", err)
		response.Message(w, r, http.StatusInternalServerError, "Error", "El código se ha enviado pero no se pudo guardar la sesión. Vuelve a enviarlo.")
		return
	}
	http.Redirect(w, r, "/confirm", http.StatusSeeOther)
}

// renderForm redisplays the form with what the user typed.
func (h *FormHandler) renderForm(w http.ResponseWriter, r *http.Request, sid string, status int, recordID, name, email string, f *flash) {
	rec, err := h.wf.Get(r.Context(), recordID)
	if err != nil {
		h.recordError(w, r, err)
		return
	}
	response.Page(w, r, status, pages, "form", formPage{
		CSRF:         security.CSRFToken(sid, h.csrfSecret),
		Flash:        f,
		Mode:         string(h.wf.Mode()),
		Record:       viewOf(*rec),
		AnalystName:  name,
		AnalystEmail: email,
	})
}

func (h *FormHandler) recordError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrRecordNotFound):
		response.Message(w, r, http.StatusNotFound, "Registro no encontrado", MessageRecordNotFound)
	case errors.Is(err, workflow.ErrAlreadyVerified):
		response.Message(w, r, http.StatusConflict, "Registro verificado", MessageAlreadyVerified)
	default:
		h.logger.ErrorContext(r.Context(), "record operation failed", "error", err)
		response.Message(w, r, http.StatusBadGateway, "Error", MessageStoreFailed)
	}
}
