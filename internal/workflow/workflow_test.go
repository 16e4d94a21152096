package workflow

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/receipt"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/repository"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/security"
)

var (
	sixDigits = regexp.MustCompile(`^[0-9]{6}$`)
	hex64     = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

func TestCodeScenarioEndToEnd(t *testing.T) {
	h := newHarness(t, domain.ModeCode, scenarioRecord())
	ctx := context.Background()

	res, err := h.wf.Issue(ctx, "rec42", "Analyst", "bob@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec := h.store.record(t, "rec42")
	if rec.Status != domain.StatusPending || !sixDigits.MatchString(rec.Code) || rec.Token != "" {
		t.Fatalf("unexpected record after issue: %+v", rec)
	}
	if res.Record.Code != rec.Code || res.Mode != domain.ModeCode {
		t.Fatalf("unexpected issue result: %+v", res)
	}
	if h.notifier.count() != 1 || h.notifier.sent[0].To != "bob@example.com" {
		t.Fatalf("expected one email to bob, got %+v", h.notifier.sent)
	}
	if !strings.Contains(h.notifier.sent[0].HTMLBody, rec.Code) {
		t.Fatal("expected code in email body")
	}

	wrong := "000000"
	if _, err := h.wf.Confirm(ctx, "rec42", wrong); !errors.Is(err, ErrIncorrectCode) {
		t.Fatalf("expected ErrIncorrectCode, got %v", err)
	}
	if got := h.store.record(t, "rec42").Status; got != domain.StatusPending {
		t.Fatalf("expected pending after wrong code, got %s", got)
	}

	fin, err := h.wf.Confirm(ctx, "rec42", rec.Code)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	rec = h.store.record(t, "rec42")
	if rec.Status != domain.StatusVerified || rec.PDFURL == "" || !hex64.MatchString(rec.PDFHash) {
		t.Fatalf("unexpected verified record: %+v", rec)
	}
	if fin.PDFHash != rec.PDFHash || fin.Filename != "reporte_verificado_M-42.pdf" {
		t.Fatalf("unexpected finalize result: %+v", fin)
	}
	if h.notifier.count() != 2 {
		t.Fatalf("expected exactly one extra email, got %d total", h.notifier.count())
	}
	receiptMail := h.notifier.sent[1]
	if len(receiptMail.Attachments) != 1 || receiptMail.Attachments[0].ContentType != "application/pdf" {
		t.Fatalf("expected pdf attachment, got %+v", receiptMail.Attachments)
	}
	if !bytes.Equal(receiptMail.Attachments[0].Data, h.publisher.published[fin.Filename]) {
		t.Fatal("mailed pdf must be the published pdf")
	}
}

func TestFinalizeHashCoversUnsealedPass(t *testing.T) {
	h := newHarness(t, domain.ModeCode, scenarioRecord())
	fin, err := h.wf.Finalize(context.Background(), scenarioRecord())
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(h.renderer.calls) != 2 {
		t.Fatalf("expected two render passes, got %d", len(h.renderer.calls))
	}
	first, second := h.renderer.calls[0], h.renderer.calls[1]
	if first.Seal != nil {
		t.Fatal("first pass must be unsealed")
	}
	if second.Seal == nil || second.Seal.Hash != fin.PDFHash {
		t.Fatalf("second pass must carry the hash, got %+v", second.Seal)
	}
	if got := second.Seal.GeneratedAt.Format(receipt.TimestampLayout); got != "2024-05-01 18:04:05 UTC" {
		t.Fatalf("unexpected seal time %q", got)
	}
	if !first.DocumentDate.Equal(second.Seal.GeneratedAt) || !second.DocumentDate.Equal(second.Seal.GeneratedAt) {
		t.Fatalf("both passes must pin document dates to the seal time, got %v and %v", first.DocumentDate, second.DocumentDate)
	}

	unsealed, err := receipt.NewDocumentRenderer().Render(context.Background(), first)
	if err != nil {
		t.Fatalf("re-render: %v", err)
	}
	if security.HashBytes(unsealed) != fin.PDFHash {
		t.Fatal("stored hash must equal SHA-256 of the unsealed render")
	}
}

func TestIssueRejectsInvalidInputWithoutStateChange(t *testing.T) {
	tests := []struct {
		name, analyst, email string
	}{
		{"empty name", "", "bob@example.com"},
		{"empty email", "Bob", "  "},
		{"missing at", "Bob", "bob.example.com"},
		{"missing tld", "Bob", "bob@example"},
		{"short tld", "Bob", "bob@example.c"},
		{"space", "Bob", "bob smith@example.com"},
		{"non ascii", "Bob", "bób@example.com"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, domain.ModeCode, scenarioRecord())
			_, err := h.wf.Issue(context.Background(), "rec42", tc.analyst, tc.email)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if h.store.pendingWrites != 0 || h.notifier.count() != 0 {
				t.Fatal("validation failure must not write or send")
			}
			if got := h.store.record(t, "rec42").Status; got != domain.StatusUnset {
				t.Fatalf("expected unset, got %s", got)
			}
		})
	}
}

func TestReissueSupersedesPreviousCode(t *testing.T) {
	h := newHarness(t, domain.ModeCode, scenarioRecord())
	codes := []string{"111111", "222222"}
	h.wf.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	ctx := context.Background()

	if _, err := h.wf.Issue(ctx, "rec42", "A", "bob@example.com"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := h.wf.Issue(ctx, "rec42", "A", "bob@example.com"); err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if _, err := h.wf.Confirm(ctx, "rec42", "111111"); !errors.Is(err, ErrIncorrectCode) {
		t.Fatalf("superseded code must fail, got %v", err)
	}
	if _, err := h.wf.Confirm(ctx, "rec42", "222222"); err != nil {
		t.Fatalf("latest code must succeed: %v", err)
	}
}

func TestConfirmRequiresExactMatch(t *testing.T) {
	rec := scenarioRecord()
	rec.Status = domain.StatusPending
	rec.Code = "123456"
	for _, entered := range []string{"123456 ", " 123456", "12345", ""} {
		h := newHarness(t, domain.ModeCode, rec)
		if _, err := h.wf.Confirm(context.Background(), "rec42", entered); !errors.Is(err, ErrIncorrectCode) {
			t.Fatalf("Confirm(%q) expected ErrIncorrectCode, got %v", entered, err)
		}
	}
	unissued := scenarioRecord()
	h := newHarness(t, domain.ModeCode, unissued)
	if _, err := h.wf.Confirm(context.Background(), "rec42", ""); !errors.Is(err, ErrIncorrectCode) {
		t.Fatalf("empty stored code must never match, got %v", err)
	}
}

func TestIssueRefusesVerifiedRecord(t *testing.T) {
	rec := scenarioRecord()
	rec.Status = domain.StatusVerified
	h := newHarness(t, domain.ModeCode, rec)
	if _, err := h.wf.Issue(context.Background(), "rec42", "A", "bob@example.com"); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
	if _, err := h.wf.Confirm(context.Background(), "rec42", "x"); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified on confirm, got %v", err)
	}
}

func TestIssueUnknownRecord(t *testing.T) {
	h := newHarness(t, domain.ModeCode)
	if _, err := h.wf.Issue(context.Background(), "ghost", "A", "bob@example.com"); !errors.Is(err, repository.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestIssueStoreFailureSendsNothing(t *testing.T) {
	h := newHarness(t, domain.ModeCode, scenarioRecord())
	h.store.failPending = true
	if _, err := h.wf.Issue(context.Background(), "rec42", "A", "bob@example.com"); !errors.Is(err, errInjected) {
		t.Fatalf("expected store error, got %v", err)
	}
	if h.notifier.count() != 0 {
		t.Fatal("no email may be sent when the store write fails")
	}
}

func TestIssueSendFailureLeavesPending(t *testing.T) {
	h := newHarness(t, domain.ModeCode, scenarioRecord())
	h.notifier.failing = true
	_, err := h.wf.Issue(context.Background(), "rec42", "A", "bob@example.com")
	if !errors.Is(err, ErrNotificationFailed) {
		t.Fatalf("expected ErrNotificationFailed, got %v", err)
	}
	if got := h.store.record(t, "rec42").Status; got != domain.StatusPending {
		t.Fatalf("expected record left pending, got %s", got)
	}
}

func TestFinalizeFailureAtEachStageLeavesPending(t *testing.T) {
	stages := map[string]func(h *harness){
		"first render":  func(h *harness) { h.renderer.failAt = 1 },
		"second render": func(h *harness) { h.renderer.failAt = 2 },
		"publish":       func(h *harness) { h.publisher.failing = true },
		"notify":        func(h *harness) { h.notifier.failOnReceipt = true },
		"store update":  func(h *harness) { h.store.failVerified = true },
	}
	for name, inject := range stages {
		t.Run(name, func(t *testing.T) {
			rec := scenarioRecord()
			rec.Status = domain.StatusPending
			rec.Code = "123456"
			h := newHarness(t, domain.ModeCode, rec)
			inject(h)

			if _, err := h.wf.Confirm(context.Background(), "rec42", "123456"); err == nil {
				t.Fatal("expected finalize error")
			}
			got := h.store.record(t, "rec42")
			if got.Status != domain.StatusPending || got.PDFURL != "" || got.PDFHash != "" {
				t.Fatalf("record must stay pending and untouched, got %+v", got)
			}
			if _, acquired, _ := h.wf.guard.Acquire(context.Background(), "rec42", 0); !acquired {
				t.Fatal("finalize guard must be released after failure")
			}
		})
	}
}

func TestLinkScenario(t *testing.T) {
	h := newHarness(t, domain.ModeLink, scenarioRecord())
	ctx := context.Background()

	if _, err := h.wf.Issue(ctx, "rec42", "Analyst", "bob@example.com"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec := h.store.record(t, "rec42")
	if rec.Status != domain.StatusPending || rec.Token == "" || rec.Code != "" {
		t.Fatalf("unexpected record after link issue: %+v", rec)
	}
	wantLink := "https://entregas.example.com/confirmacion?token=" + rec.Token
	if !strings.Contains(h.notifier.sent[0].HTMLBody, wantLink) {
		t.Fatalf("expected %s in email body", wantLink)
	}

	if _, err := h.wf.ConfirmLink(ctx, "unknown-token"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
	if h.store.verifiedWrite != 0 {
		t.Fatal("unknown token must not mutate the store")
	}

	if _, err := h.wf.ConfirmLink(ctx, rec.Token); err != nil {
		t.Fatalf("confirm link: %v", err)
	}
	if _, err := h.wf.ConfirmLink(ctx, rec.Token); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified on reuse, got %v", err)
	}
	if h.store.verifiedWrite != 1 || h.notifier.count() != 2 {
		t.Fatalf("expected one store update and one receipt email, got %d/%d", h.store.verifiedWrite, h.notifier.count())
	}
}

func TestConfirmLinkEmptyToken(t *testing.T) {
	h := newHarness(t, domain.ModeLink, scenarioRecord())
	if _, err := h.wf.ConfirmLink(context.Background(), "   "); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestConcurrentFinalizeRunsOnce(t *testing.T) {
	rec := scenarioRecord()
	rec.Status = domain.StatusPending
	rec.Token = "tok"
	h := newHarness(t, domain.ModeLink, rec)
	h.publisher.block = make(chan struct{})
	h.publisher.entered = make(chan struct{}, 2)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = h.wf.ConfirmLink(context.Background(), "tok")
	}()
	<-h.publisher.entered

	if _, err := h.wf.ConfirmLink(context.Background(), "tok"); !errors.Is(err, ErrFinalizeInProgress) {
		t.Fatalf("expected ErrFinalizeInProgress, got %v", err)
	}
	close(h.publisher.block)
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("first finalize: %v", firstErr)
	}
	if h.store.verifiedWrite != 1 {
		t.Fatalf("expected one verified write, got %d", h.store.verifiedWrite)
	}
}

func TestLateClickWithStaleReadDoesNotFinalizeTwice(t *testing.T) {
	rec := scenarioRecord()
	rec.Status = domain.StatusPending
	rec.Token = "tok"
	h := newHarness(t, domain.ModeLink, rec)

	found := make(chan struct{})
	resume := make(chan struct{})
	var finds atomic.Int32
	h.store.afterFind = func() {
		if finds.Add(1) == 1 {
			close(found)
			<-resume
		}
	}

	lateErr := make(chan error, 1)
	go func() {
		_, err := h.wf.ConfirmLink(context.Background(), "tok")
		lateErr <- err
	}()
	<-found

	if _, err := h.wf.ConfirmLink(context.Background(), "tok"); err != nil {
		t.Fatalf("first click: %v", err)
	}
	close(resume)

	if err := <-lateErr; !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified for the late click, got %v", err)
	}
	if h.store.verifiedWrite != 1 {
		t.Fatalf("expected one verified write, got %d", h.store.verifiedWrite)
	}
	if h.notifier.count() != 1 {
		t.Fatalf("expected one receipt email, got %d", h.notifier.count())
	}
}

func TestFinalizeStaleRecordIsRejected(t *testing.T) {
	rec := scenarioRecord()
	rec.Status = domain.StatusVerified
	h := newHarness(t, domain.ModeCode, rec)

	stale := scenarioRecord()
	stale.Status = domain.StatusPending
	if _, err := h.wf.Finalize(context.Background(), stale); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
	if h.store.verifiedWrite != 0 || h.notifier.count() != 0 || len(h.publisher.published) != 0 {
		t.Fatal("expected no side effects for a stale record")
	}
}

func TestConfirmationURLEscapesToken(t *testing.T) {
	h := newHarness(t, domain.ModeLink)
	if got := h.wf.ConfirmationURL("a b&c"); got != "https://entregas.example.com/confirmacion?token=a+b%26c" {
		t.Fatalf("unexpected url %q", got)
	}
}
