package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/observability"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/receipt"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/repository"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/security"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/service"
)

// FinalizeResult describes a completed finalize.
type FinalizeResult struct {
	Record      domain.DeliveryRecord
	PDFURL      string
	PDFHash     string
	Filename    string
	GeneratedAt time.Time
}

// Finalize renders the receipt twice, hashing the unsealed pass and printing
// that hash and the seal time on the second, then publishes and mails the
// sealed PDF and marks the record verified. The status is written last, so
// any earlier failure leaves it unchanged.
func (w *Workflow) Finalize(ctx context.Context, rec domain.DeliveryRecord) (res FinalizeResult, err error) {
	started := w.now()
	ctx, span := observability.StartSpan(ctx, "workflow.finalize",
		attribute.String("record.id", rec.ID),
		attribute.String("match.id", rec.MatchID),
	)
	defer func() {
		observability.EndSpan(span, err)
		observability.RecordWorkflowOperation(ctx, "finalize", outcome(err), started)
	}()

	if rec.IsVerified() {
		return FinalizeResult{}, ErrAlreadyVerified
	}
	release, acquired, err := w.guard.Acquire(ctx, rec.ID, w.opts.FinalizeLockTTL)
	if err != nil {
		return FinalizeResult{}, err
	}
	if !acquired {
		return FinalizeResult{}, ErrFinalizeInProgress
	}
	defer release()

	// rec may have been read before another finalize released the guard.
	current, err := w.store.Get(ctx, rec.ID)
	if err != nil {
		return FinalizeResult{}, err
	}
	if current.IsVerified() {
		return FinalizeResult{}, ErrAlreadyVerified
	}

	sealedAt := w.now().UTC().Truncate(time.Second)
	data := receipt.Data{
		MatchID:      rec.MatchID,
		Analyst:      rec.AnalystName,
		Pilot:        rec.PilotName,
		MatchDate:    rec.MatchDate,
		EventType:    rec.EventType,
		Logo:         w.opts.Logo,
		DocumentDate: sealedAt,
	}
	unsealed, err := w.renderer.Render(ctx, data)
	if err != nil {
		return FinalizeResult{}, fmt.Errorf("render receipt: %w", err)
	}
	hash := security.HashBytes(unsealed)

	data.Seal = &receipt.Seal{Hash: hash, GeneratedAt: sealedAt}
	sealed, err := w.renderer.Render(ctx, data)
	if err != nil {
		return FinalizeResult{}, fmt.Errorf("render sealed receipt: %w", err)
	}

	filename := service.ReceiptFilename(rec.MatchID)
	pdfURL, err := w.publisher.Publish(ctx, filename, sealed)
	if err != nil {
		return FinalizeResult{}, fmt.Errorf("publish receipt: %w", err)
	}

	msg, err := service.ReceiptMessage(rec, filename, sealed)
	if err != nil {
		return FinalizeResult{}, err
	}
	if err := w.notifier.Send(ctx, msg); err != nil {
		return FinalizeResult{}, fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}

	if err := w.store.MarkVerified(ctx, rec.ID, domain.VerifiedUpdate{PDFURL: pdfURL, PDFHash: hash}); err != nil {
		w.logger.ErrorContext(ctx, "receipt published and mailed but record not updated",
			"record_id", rec.ID, "pdf_url", pdfURL, "error", err)
		return FinalizeResult{}, fmt.Errorf("store verified state: %w", err)
	}

	rec.Status = domain.StatusVerified
	rec.PDFURL = pdfURL
	rec.PDFHash = hash
	w.logger.InfoContext(ctx, "delivery verified",
		"record_id", rec.ID, "match_id", rec.MatchID, "pdf_hash", hash)
	return FinalizeResult{
		Record:      rec,
		PDFURL:      pdfURL,
		PDFHash:     hash,
		Filename:    filename,
		GeneratedAt: sealedAt,
	}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrRecordNotFound)
}

func isValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

func isRejected(err error) bool {
	return errors.Is(err, ErrIncorrectCode) ||
		errors.Is(err, ErrTokenNotFound) ||
		errors.Is(err, ErrAlreadyVerified) ||
		errors.Is(err, ErrFinalizeInProgress)
}
