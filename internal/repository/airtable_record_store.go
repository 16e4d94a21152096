package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/mehanizm/airtable"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/config"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/observability"
)

const airtableStoreName = "airtable"

// airtableTable is the slice of the Airtable REST API the store needs.
type airtableTable interface {
	ListPage(ctx context.Context, offset string) ([]*airtable.Record, string, error)
	Get(ctx context.Context, id string) (*airtable.Record, error)
	Patch(ctx context.Context, id string, fields map[string]any) error
}

// AirtableRecordStore maps rows of the deliveries table onto DeliveryRecord.
// Reads are full-table scans filtered in process; the token never ends up
// inside a filterByFormula expression.
type AirtableRecordStore struct {
	table  airtableTable
	fields config.FieldMap
}

// NewAirtableRecordStore reads and patches one table through the Airtable REST API.
func NewAirtableRecordStore(apiKey, baseID, tableName, view string, fields config.FieldMap) *AirtableRecordStore {
	client := airtable.NewClient(apiKey)
	return &AirtableRecordStore{
		table:  &airtableTableAPI{table: client.GetTable(baseID, tableName), view: view},
		fields: fields,
	}
}

func newAirtableRecordStoreWithTable(table airtableTable, fields config.FieldMap) *AirtableRecordStore {
	return &AirtableRecordStore{table: table, fields: fields}
}

// List returns all records in the configured view.
func (s *AirtableRecordStore) List(ctx context.Context) ([]domain.DeliveryRecord, error) {
	rows, err := s.scan(ctx)
	if err != nil {
		observability.RecordStoreOperation(ctx, airtableStoreName, "list", "error")
		return nil, err
	}
	out := make([]domain.DeliveryRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := s.decode(row)
		if err != nil {
			observability.RecordStoreOperation(ctx, airtableStoreName, "list", "schema_mismatch")
			return nil, err
		}
		out = append(out, *rec)
	}
	observability.RecordStoreOperation(ctx, airtableStoreName, "list", "success")
	return out, nil
}

// Get fetches one record; an unknown id yields ErrRecordNotFound.
func (s *AirtableRecordStore) Get(ctx context.Context, id string) (*domain.DeliveryRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrRecordNotFound
	}
	row, err := s.table.Get(ctx, id)
	if err != nil {
		observability.RecordStoreOperation(ctx, airtableStoreName, "get", "error")
		return nil, fmt.Errorf("airtable get %s: %w", id, err)
	}
	if row == nil {
		observability.RecordStoreOperation(ctx, airtableStoreName, "get", "not_found")
		return nil, ErrRecordNotFound
	}
	rec, err := s.decode(row)
	if err != nil {
		observability.RecordStoreOperation(ctx, airtableStoreName, "get", "schema_mismatch")
		return nil, err
	}
	observability.RecordStoreOperation(ctx, airtableStoreName, "get", "success")
	return rec, nil
}

// FindByToken returns the record whose stored token equals token.
func (s *AirtableRecordStore) FindByToken(ctx context.Context, token string) (*domain.DeliveryRecord, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrRecordNotFound
	}
	rows, err := s.scan(ctx)
	if err != nil {
		observability.RecordStoreOperation(ctx, airtableStoreName, "find_by_token", "error")
		return nil, err
	}
	for _, row := range rows {
		raw, err := textField(row.Fields, s.fields.Token)
		if err != nil || raw != token {
			continue
		}
		rec, err := s.decode(row)
		if err != nil {
			observability.RecordStoreOperation(ctx, airtableStoreName, "find_by_token", "schema_mismatch")
			return nil, err
		}
		observability.RecordStoreOperation(ctx, airtableStoreName, "find_by_token", "success")
		return rec, nil
	}
	observability.RecordStoreOperation(ctx, airtableStoreName, "find_by_token", "not_found")
	return nil, ErrRecordNotFound
}

// MarkPending writes the analyst, secret and pending status.
func (s *AirtableRecordStore) MarkPending(ctx context.Context, id string, update domain.PendingUpdate) error {
	return s.patch(ctx, "mark_pending", id, map[string]any{
		s.fields.AnalystForm: strings.TrimSpace(update.AnalystName),
		s.fields.EmailForm:   strings.TrimSpace(update.AnalystEmail),
		s.fields.Status:      domain.StatusPending.StoreLabel(),
		s.fields.Code:        update.Code,
		s.fields.Token:       update.Token,
	})
}

// MarkVerified writes the verified status, receipt link and hash.
func (s *AirtableRecordStore) MarkVerified(ctx context.Context, id string, update domain.VerifiedUpdate) error {
	return s.patch(ctx, "mark_verified", id, map[string]any{
		s.fields.Status:  domain.StatusVerified.StoreLabel(),
		s.fields.PDF:     []map[string]any{{"url": update.PDFURL}},
		s.fields.PDFHash: update.PDFHash,
	})
}

func (s *AirtableRecordStore) patch(ctx context.Context, op, id string, fields map[string]any) error {
	if strings.TrimSpace(id) == "" {
		return ErrRecordNotFound
	}
	if err := s.table.Patch(ctx, id, fields); err != nil {
		observability.RecordStoreOperation(ctx, airtableStoreName, op, "error")
		return fmt.Errorf("airtable %s %s: %w", op, id, err)
	}
	observability.RecordStoreOperation(ctx, airtableStoreName, op, "success")
	return nil
}

func (s *AirtableRecordStore) scan(ctx context.Context) ([]*airtable.Record, error) {
	var all []*airtable.Record
	offset := ""
	for {
		page, next, err := s.table.ListPage(ctx, offset)
		if err != nil {
			return nil, fmt.Errorf("airtable list: %w", err)
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		offset = next
	}
}

type airtableTableAPI struct {
	table *airtable.Table
	view  string
}

func (a *airtableTableAPI) ListPage(ctx context.Context, offset string) ([]*airtable.Record, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	q := a.table.GetRecords()
	if a.view != "" {
		q = q.FromView(a.view)
	}
	if offset != "" {
		q = q.WithOffset(offset)
	}
	res, err := q.Do()
	if err != nil {
		return nil, "", err
	}
	return res.Records, res.Offset, nil
}

func (a *airtableTableAPI) Get(ctx context.Context, id string) (*airtable.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := a.table.GetRecord(id)
	if err != nil && strings.Contains(err.Error(), "404") {
		return nil, nil
	}
	return rec, err
}

func (a *airtableTableAPI) Patch(ctx context.Context, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.table.UpdateRecordsPartial(&airtable.Records{
		Records: []*airtable.Record{{ID: id, Fields: fields}},
	})
	return err
}
