package repository

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mehanizm/airtable"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
)

// lookupNoise are the characters Airtable leaves around linked lookup values
// when they are rendered as text.
const lookupNoise = "[]'\""

func (s *AirtableRecordStore) decode(row *airtable.Record) (*domain.DeliveryRecord, error) {
	f := s.fields
	rec := &domain.DeliveryRecord{ID: row.ID}

	text := []struct {
		col string
		dst *string
	}{
		{f.MatchID, &rec.MatchID},
		{f.Pilot, &rec.PilotName},
		{f.MatchDate, &rec.MatchDate},
		{f.EventType, &rec.EventType},
		{f.Code, &rec.Code},
		{f.Token, &rec.Token},
		{f.PDFHash, &rec.PDFHash},
	}
	for _, t := range text {
		v, err := textField(row.Fields, t.col)
		if err != nil {
			return nil, fmt.Errorf("%w: record %s: %v", ErrSchemaMismatch, row.ID, err)
		}
		*t.dst = v
	}

	analyst, err := preferredField(row.Fields, f.AnalystForm, f.Analyst)
	if err != nil {
		return nil, fmt.Errorf("%w: record %s: %v", ErrSchemaMismatch, row.ID, err)
	}
	email, err := preferredField(row.Fields, f.EmailForm, f.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: record %s: %v", ErrSchemaMismatch, row.ID, err)
	}
	rec.AnalystName = analyst
	rec.AnalystEmail = email

	label, err := textField(row.Fields, f.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: record %s: %v", ErrSchemaMismatch, row.ID, err)
	}
	status, err := domain.ParseStatusLabel(label)
	if err != nil {
		return nil, fmt.Errorf("%w: record %s: %v", ErrSchemaMismatch, row.ID, err)
	}
	rec.Status = status

	url, err := attachmentURL(row.Fields[f.PDF])
	if err != nil {
		return nil, fmt.Errorf("%w: record %s: column %q: %v", ErrSchemaMismatch, row.ID, f.PDF, err)
	}
	rec.PDFURL = url
	return rec, nil
}

// preferredField reads the writable form column and falls back to the lookup
// column, stripping the list punctuation lookups carry.
func preferredField(fields map[string]any, formCol, lookupCol string) (string, error) {
	v, err := textField(fields, formCol)
	if err != nil {
		return "", err
	}
	if v != "" {
		return v, nil
	}
	v, err = textField(fields, lookupCol)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if strings.ContainsRune(lookupNoise, r) {
			return -1
		}
		return r
	}, v)), nil
}

// textField flattens a cell to text. Lists collapse to their first element
// and numbers drop trailing zeros.
func textField(fields map[string]any, col string) (string, error) {
	raw, ok := fields[col]
	if !ok {
		return "", nil
	}
	return scalarText(col, raw)
}

func scalarText(col string, raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case []any:
		if len(v) == 0 {
			return "", nil
		}
		return scalarText(col, v[0])
	case []string:
		if len(v) == 0 {
			return "", nil
		}
		return strings.TrimSpace(v[0]), nil
	default:
		return "", fmt.Errorf("column %q has unsupported type %T", col, raw)
	}
}

// attachmentURL reads the first url of an attachment cell.
func attachmentURL(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case []any:
		if len(v) == 0 {
			return "", nil
		}
		return attachmentURL(v[0])
	case []map[string]any:
		if len(v) == 0 {
			return "", nil
		}
		return attachmentURL(v[0])
	case map[string]any:
		u, _ := v["url"].(string)
		return u, nil
	default:
		return "", fmt.Errorf("unsupported attachment type %T", raw)
	}
}
