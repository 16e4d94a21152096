// Package workflow sequences the SD card custody confirmation: issue a code
// or link, accept the confirmation, then seal, publish, mail and record the
// receipt.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/observability"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/receipt"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/repository"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/security"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/service"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Form validation messages shown to the operator.
const (
	MessageFieldsRequired = "El nombre del analista y el correo son obligatorios."
	MessageInvalidEmail   = "Por favor, introduce una dirección de correo electrónico válida."
)

// Options configures a Workflow.
type Options struct {
	Mode            domain.ConfirmationMode
	PublicBaseURL   string
	Logo            []byte
	FinalizeLockTTL time.Duration
}

// Workflow drives a record from pending through confirmation to verified.
type Workflow struct {
	store     repository.RecordStore
	notifier  service.Notifier
	renderer  receipt.Renderer
	publisher service.Publisher
	guard     service.FinalizeGuard
	opts      Options
	logger    *slog.Logger

	now      func() time.Time
	newCode  func() (string, error)
	newToken func() (string, error)
}

// New wires a Workflow; zero Options fields fall back to code mode and a
// two minute finalize lock.
func New(
	store repository.RecordStore,
	notifier service.Notifier,
	renderer receipt.Renderer,
	publisher service.Publisher,
	guard service.FinalizeGuard,
	opts Options,
	logger *slog.Logger,
) *Workflow {
	if opts.Mode == "" {
		opts.Mode = domain.ModeCode
	}
	if opts.FinalizeLockTTL <= 0 {
		opts.FinalizeLockTTL = 2 * time.Minute
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		store:     store,
		notifier:  notifier,
		renderer:  renderer,
		publisher: publisher,
		guard:     guard,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		newCode:   security.NewConfirmationCode,
		newToken:  security.NewConfirmationToken,
	}
}

// Mode reports the configured confirmation mode.
func (w *Workflow) Mode() domain.ConfirmationMode { return w.opts.Mode }

// List returns every record in the store.
func (w *Workflow) List(ctx context.Context) ([]domain.DeliveryRecord, error) {
	return w.store.List(ctx)
}

// Get returns one record by id.
func (w *Workflow) Get(ctx context.Context, recordID string) (*domain.DeliveryRecord, error) {
	return w.store.Get(ctx, recordID)
}

// IssueResult is the record as written by Issue.
type IssueResult struct {
	Record domain.DeliveryRecord
	Mode   domain.ConfirmationMode
}

// Issue validates the analyst fields, stores a fresh secret with the record
// set to pending and mails the secret. A mail failure after the store write
// returns ErrNotificationFailed and leaves the record pending.
func (w *Workflow) Issue(ctx context.Context, recordID, analystName, analystEmail string) (res IssueResult, err error) {
	started := w.now()
	ctx, span := observability.StartSpan(ctx, "workflow.issue",
		attribute.String("record.id", recordID),
		attribute.String("confirmation.mode", string(w.opts.Mode)),
	)
	defer func() {
		observability.EndSpan(span, err)
		observability.RecordWorkflowOperation(ctx, "issue", outcome(err), started)
	}()

	analystName = strings.TrimSpace(analystName)
	analystEmail = strings.TrimSpace(analystEmail)
	if err := ValidateAnalyst(analystName, analystEmail); err != nil {
		return IssueResult{}, err
	}

	rec, err := w.store.Get(ctx, recordID)
	if err != nil {
		return IssueResult{}, err
	}
	if rec.IsVerified() {
		return IssueResult{}, ErrAlreadyVerified
	}

	update := domain.PendingUpdate{AnalystName: analystName, AnalystEmail: analystEmail}
	var msg service.Message
	switch w.opts.Mode {
	case domain.ModeLink:
		if update.Token, err = w.newToken(); err != nil {
			return IssueResult{}, err
		}
	default:
		if update.Code, err = w.newCode(); err != nil {
			return IssueResult{}, err
		}
	}
	if err := w.store.MarkPending(ctx, rec.ID, update); err != nil {
		return IssueResult{}, fmt.Errorf("store pending state: %w", err)
	}

	rec.AnalystName = analystName
	rec.AnalystEmail = analystEmail
	rec.Status = domain.StatusPending
	rec.Code = update.Code
	rec.Token = update.Token

	if w.opts.Mode == domain.ModeLink {
		msg, err = service.LinkMessage(*rec, w.ConfirmationURL(update.Token))
	} else {
		msg, err = service.CodeMessage(*rec, update.Code)
	}
	if err == nil {
		err = w.notifier.Send(ctx, msg)
	}
	if err != nil {
		w.logger.ErrorContext(ctx, "confirmation email failed, record left pending",
			"record_id", rec.ID, "match_id", rec.MatchID, "error", err)
		return IssueResult{Record: *rec, Mode: w.opts.Mode}, fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	w.logger.InfoContext(ctx, "confirmation issued",
		"record_id", rec.ID, "match_id", rec.MatchID, "mode", w.opts.Mode)
	return IssueResult{Record: *rec, Mode: w.opts.Mode}, nil
}

// ConfirmationURL is the link mailed in link mode.
func (w *Workflow) ConfirmationURL(token string) string {
	return w.opts.PublicBaseURL + "/confirmacion?token=" + url.QueryEscape(token)
}

// ValidateAnalyst checks the editable form fields.
func ValidateAnalyst(name, email string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		field := "analyst_name"
		if strings.TrimSpace(name) != "" {
			field = "analyst_email"
		}
		return &ValidationError{Field: field, Message: MessageFieldsRequired}
	}
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return &ValidationError{Field: "analyst_email", Message: MessageInvalidEmail}
	}
	return nil
}

// Confirm checks an entered code against the one stored for the record and
// finalizes on an exact match.
func (w *Workflow) Confirm(ctx context.Context, recordID, code string) (res FinalizeResult, err error) {
	started := w.now()
	ctx, span := observability.StartSpan(ctx, "workflow.confirm", attribute.String("record.id", recordID))
	defer func() {
		observability.EndSpan(span, err)
		observability.RecordWorkflowOperation(ctx, "confirm", outcome(err), started)
	}()

	rec, err := w.store.Get(ctx, recordID)
	if err != nil {
		return FinalizeResult{}, err
	}
	if rec.IsVerified() {
		return FinalizeResult{}, ErrAlreadyVerified
	}
	if rec.Code == "" || code != rec.Code {
		w.logger.InfoContext(ctx, "confirmation code rejected", "record_id", rec.ID)
		return FinalizeResult{}, ErrIncorrectCode
	}
	return w.Finalize(ctx, *rec)
}

// ConfirmLink resolves an emailed token and finalizes its record.
func (w *Workflow) ConfirmLink(ctx context.Context, token string) (res FinalizeResult, err error) {
	started := w.now()
	ctx, span := observability.StartSpan(ctx, "workflow.confirm_link")
	defer func() {
		observability.EndSpan(span, err)
		observability.RecordWorkflowOperation(ctx, "confirm_link", outcome(err), started)
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return FinalizeResult{}, ErrTokenNotFound
	}
	rec, err := w.store.FindByToken(ctx, token)
	if err != nil {
		if isNotFound(err) {
			return FinalizeResult{}, ErrTokenNotFound
		}
		return FinalizeResult{}, err
	}
	if rec.IsVerified() {
		return FinalizeResult{}, ErrAlreadyVerified
	}
	return w.Finalize(ctx, *rec)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case isValidation(err):
		return "invalid"
	case isRejected(err):
		return "rejected"
	default:
		return "error"
	}
}
