package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/http/response"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/workflow"
)

const (
	MessageLinkInvalid   = "Enlace de confirmación no válido."
	MessageTokenNotFound = "Token no encontrado o ya ha sido utilizado."
	MessageLinkConfirmed = "¡La entrega ha sido confirmada exitosamente! Ya puedes cerrar esta ventana."
	MessageLinkFailed    = "Ocurrió un error al procesar la confirmación."
)

// LinkHandler is the unauthenticated callback reached from the emailed
// confirmation link. Possession of the token is the credential.
type LinkHandler struct {
	wf     Workflow
	logger *slog.Logger
}

func NewLinkHandler(wf Workflow, logger *slog.Logger) *LinkHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkHandler{wf: wf, logger: logger}
}

func (h *LinkHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		response.Message(w, r, http.StatusBadRequest, "Confirmación de entrega", MessageLinkInvalid)
		return
	}
	res, err := h.wf.ConfirmLink(r.Context(), token)
	switch {
	case err == nil:
		h.logger.InfoContext(r.Context(), "delivery confirmed by link",
			"record_id", res.Record.ID, "match_id", res.Record.MatchID)
		response.Message(w, r, http.StatusOK, "Confirmación de entrega", MessageLinkConfirmed)
	case errors.Is(err, workflow.ErrTokenNotFound):
		response.Message(w, r, http.StatusNotFound, "Confirmación de entrega", MessageTokenNotFound)
	case errors.Is(err, workflow.ErrAlreadyVerified):
		response.Message(w, r, http.StatusOK, "Confirmación de entrega", MessageAlreadyVerified)
	case errors.Is(err, workflow.ErrFinalizeInProgress):
		response.Message(w, r, http.StatusConflict, "Confirmación de entrega", MessageFinalizeInProgress)
	default:
		h.logger.ErrorContext(r.Context(), "link confirmation failed", "error", err)
		response.Message(w, r, http.StatusInternalServerError, "Confirmación de entrega", MessageLinkFailed)
	}
}
