package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldMap names the record store columns backing each DeliveryRecord field.
// AnalystForm and EmailForm are the writable copies; Analyst and Email are
// the lookup columns read when the form copies are still empty.
type FieldMap struct {
	MatchID     string `yaml:"match_id"`
	Pilot       string `yaml:"pilot"`
	Analyst     string `yaml:"analyst"`
	AnalystForm string `yaml:"analyst_form"`
	Email       string `yaml:"email"`
	EmailForm   string `yaml:"email_form"`
	MatchDate   string `yaml:"match_date"`
	EventType   string `yaml:"event_type"`
	Status      string `yaml:"status"`
	Code        string `yaml:"code"`
	Token       string `yaml:"token"`
	PDF         string `yaml:"pdf"`
	PDFHash     string `yaml:"pdf_hash"`
}

func DefaultFieldMap() FieldMap {
	return FieldMap{
		MatchID:     "ID-partido",
		Pilot:       "Piloto",
		Analyst:     "Analista",
		AnalystForm: "Analista(Form)",
		Email:       "Mail",
		EmailForm:   "Mail(Form)",
		MatchDate:   "Fecha partido",
		EventType:   "Tipo",
		Status:      "Verificado",
		Code:        "Codigo_unico",
		Token:       "Token_unico",
		PDF:         "PDF",
		PDFHash:     "Hash_PDF",
	}
}

// LoadFieldMap reads a YAML override. Keys left out keep their defaults.
func LoadFieldMap(path string) (FieldMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FieldMap{}, fmt.Errorf("read field map %s: %w", path, err)
	}
	fm := DefaultFieldMap()
	if err := yaml.Unmarshal(raw, &fm); err != nil {
		return FieldMap{}, fmt.Errorf("parse field map %s: %w", path, err)
	}
	return fm, nil
}

func (m FieldMap) Validate() error {
	cols := map[string]string{
		"match_id":     m.MatchID,
		"pilot":        m.Pilot,
		"analyst":      m.Analyst,
		"analyst_form": m.AnalystForm,
		"email":        m.Email,
		"email_form":   m.EmailForm,
		"match_date":   m.MatchDate,
		"event_type":   m.EventType,
		"status":       m.Status,
		"code":         m.Code,
		"token":        m.Token,
		"pdf":          m.PDF,
		"pdf_hash":     m.PDFHash,
	}
	var missing []string
	for key, col := range cols {
		if strings.TrimSpace(col) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return errors.New("field map has empty columns: " + strings.Join(missing, ", "))
	}
	return nil
}
