package database

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jszwec/csvutil"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
)

type SeedReport struct {
	Created int
	Skipped int
	Noop    bool
}

// seedRow is the CSV layout accepted by SeedSync. Status and secrets are not
// importable; seeded records always start unset.
type seedRow struct {
	ID           string `csv:"record_id"`
	MatchID      string `csv:"match_id"`
	PilotName    string `csv:"pilot_name"`
	AnalystName  string `csv:"analyst_name"`
	AnalystEmail string `csv:"analyst_email"`
	MatchDate    string `csv:"match_date"`
	EventType    string `csv:"event_type"`
}

// ParseSeed decodes and validates the seed CSV without touching the
// database. An empty input yields no records.
func ParseSeed(r io.Reader) ([]domain.DeliveryRecord, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	switch {
	case errors.Is(err, io.EOF):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("read seed csv header: %w", err)
	}
	var out []domain.DeliveryRecord
	for i := 1; ; i++ {
		var row seedRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("decode seed csv: %w", err)
		}
		if strings.TrimSpace(row.ID) == "" || strings.TrimSpace(row.MatchID) == "" {
			return nil, fmt.Errorf("seed row %d: record_id and match_id are required", i)
		}
		out = append(out, domain.DeliveryRecord{
			ID:           strings.TrimSpace(row.ID),
			MatchID:      strings.TrimSpace(row.MatchID),
			PilotName:    strings.TrimSpace(row.PilotName),
			AnalystName:  strings.TrimSpace(row.AnalystName),
			AnalystEmail: strings.TrimSpace(row.AnalystEmail),
			MatchDate:    strings.TrimSpace(row.MatchDate),
			EventType:    strings.TrimSpace(row.EventType),
			Status:       domain.StatusUnset,
		})
	}
}

// SeedSync inserts the delivery records read from r, skipping ids that
// already exist. A second run over the same input is a no-op.
func SeedSync(db *gorm.DB, r io.Reader) (SeedReport, error) {
	records, err := ParseSeed(r)
	if err != nil {
		return SeedReport{}, err
	}
	if len(records) == 0 {
		return SeedReport{Noop: true}, nil
	}

	report := SeedReport{}
	err = db.Transaction(func(tx *gorm.DB) error {
		for i := range records {
			rec := records[i]
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
			if res.Error != nil {
				return fmt.Errorf("seed record %s: %w", rec.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				report.Skipped++
				continue
			}
			report.Created++
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, err
	}
	report.Noop = report.Created == 0
	return report, nil
}
