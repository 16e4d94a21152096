package handler

import (
	"context"
	"embed"
	"html/template"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/workflow"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Workflow is the part of the confirmation workflow the handlers drive.
type Workflow interface {
	Mode() domain.ConfirmationMode
	List(ctx context.Context) ([]domain.DeliveryRecord, error)
	Get(ctx context.Context, recordID string) (*domain.DeliveryRecord, error)
	Issue(ctx context.Context, recordID, analystName, analystEmail string) (workflow.IssueResult, error)
	Confirm(ctx context.Context, recordID, code string) (workflow.FinalizeResult, error)
	ConfirmLink(ctx context.Context, token string) (workflow.FinalizeResult, error)
}

type flash struct {
	Kind string
	Text string
}

func warning(text string) *flash { return &flash{Kind: "warning", Text: text} }
func failure(text string) *flash { return &flash{Kind: "error", Text: text} }

type recordView struct {
	ID           string
	MatchID      string
	PilotName    string
	MatchDate    string
	EventType    string
	AnalystEmail string
	PDFURL       string
	Verified     bool
	Pending      bool
}

func viewOf(rec domain.DeliveryRecord) recordView {
	return recordView{
		ID:           rec.ID,
		MatchID:      rec.MatchID,
		PilotName:    rec.PilotName,
		MatchDate:    rec.MatchDate,
		EventType:    rec.EventType,
		AnalystEmail: rec.AnalystEmail,
		PDFURL:       rec.PDFURL,
		Verified:     rec.Status == domain.StatusVerified,
		Pending:      rec.Status == domain.StatusPending,
	}
}

// uniqueByMatch keeps the first record of each match id, in store order.
func uniqueByMatch(records []domain.DeliveryRecord) []recordView {
	seen := make(map[string]struct{}, len(records))
	out := make([]recordView, 0, len(records))
	for _, rec := range records {
		if rec.MatchID == "" {
			continue
		}
		if _, ok := seen[rec.MatchID]; ok {
			continue
		}
		seen[rec.MatchID] = struct{}{}
		out = append(out, viewOf(rec))
	}
	return out
}
