package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/receipt"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/repository"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/service"
)

var errInjected = errors.New("injected failure")

type memoryStore struct {
	mu            sync.Mutex
	afterFind     func()
	records       map[string]domain.DeliveryRecord
	pendingWrites int
	verifiedWrite int
	failPending   bool
	failVerified  bool
}

func newMemoryStore(recs ...domain.DeliveryRecord) *memoryStore {
	s := &memoryStore{records: map[string]domain.DeliveryRecord{}}
	for _, r := range recs {
		if r.Status == "" {
			r.Status = domain.StatusUnset
		}
		s.records[r.ID] = r
	}
	return s
}

func (s *memoryStore) List(context.Context) ([]domain.DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DeliveryRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (*domain.DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &r, nil
}

func (s *memoryStore) FindByToken(_ context.Context, token string) (*domain.DeliveryRecord, error) {
	rec, err := s.findByToken(token)
	if s.afterFind != nil {
		s.afterFind()
	}
	return rec, err
}

func (s *memoryStore) findByToken(token string) (*domain.DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if token != "" && r.Token == token {
			r := r
			return &r, nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

func (s *memoryStore) MarkPending(_ context.Context, id string, u domain.PendingUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPending {
		return errInjected
	}
	r, ok := s.records[id]
	if !ok {
		return repository.ErrRecordNotFound
	}
	r.AnalystName, r.AnalystEmail = u.AnalystName, u.AnalystEmail
	r.Status = domain.StatusPending
	r.Code, r.Token = u.Code, u.Token
	s.records[id] = r
	s.pendingWrites++
	return nil
}

func (s *memoryStore) MarkVerified(_ context.Context, id string, u domain.VerifiedUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failVerified {
		return errInjected
	}
	r, ok := s.records[id]
	if !ok {
		return repository.ErrRecordNotFound
	}
	r.Status = domain.StatusVerified
	r.PDFURL, r.PDFHash = u.PDFURL, u.PDFHash
	s.records[id] = r
	s.verifiedWrite++
	return nil
}

func (s *memoryStore) record(t *testing.T, id string) domain.DeliveryRecord {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		t.Fatalf("record %s missing", id)
	}
	return r
}

type recordingNotifier struct {
	mu      sync.Mutex
	sent    []service.Message
	failing bool
	// failOn makes only messages with attachments fail when set.
	failOnReceipt bool
}

func (n *recordingNotifier) Send(_ context.Context, msg service.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failing || (n.failOnReceipt && len(msg.Attachments) > 0) {
		return errInjected
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type recordingPublisher struct {
	mu        sync.Mutex
	published map[string][]byte
	failing   bool
	block     chan struct{}
	entered   chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, filename string, data []byte) (string, error) {
	if p.entered != nil {
		p.entered <- struct{}{}
	}
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing {
		return "", errInjected
	}
	if p.published == nil {
		p.published = map[string][]byte{}
	}
	p.published[filename] = append([]byte(nil), data...)
	return "https://files.example.com/" + filename, nil
}

type scriptedRenderer struct {
	inner  receipt.Renderer
	mu     sync.Mutex
	calls  []receipt.Data
	failAt int
}

func (r *scriptedRenderer) Render(ctx context.Context, data receipt.Data) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, data)
	n := len(r.calls)
	r.mu.Unlock()
	if r.failAt == n {
		return nil, errInjected
	}
	return r.inner.Render(ctx, data)
}

type harness struct {
	wf        *Workflow
	store     *memoryStore
	notifier  *recordingNotifier
	publisher *recordingPublisher
	renderer  *scriptedRenderer
}

func scenarioRecord() domain.DeliveryRecord {
	return domain.DeliveryRecord{
		ID:           "rec42",
		MatchID:      "M-42",
		PilotName:    "Alice",
		AnalystName:  "Analyst",
		AnalystEmail: "bob@example.com",
		MatchDate:    "2024-05-01",
		EventType:    "liga",
	}
}

func newHarness(t *testing.T, mode domain.ConfirmationMode, recs ...domain.DeliveryRecord) *harness {
	t.Helper()
	h := &harness{
		store:     newMemoryStore(recs...),
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
		renderer:  &scriptedRenderer{inner: receipt.NewDocumentRenderer()},
	}
	h.wf = New(h.store, h.notifier, h.renderer, h.publisher, service.NewInMemoryFinalizeGuard(), Options{
		Mode:          mode,
		PublicBaseURL: "https://entregas.example.com/",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.wf.now = func() time.Time { return time.Date(2024, 5, 1, 18, 4, 5, 123, time.UTC) }
	return h
}
