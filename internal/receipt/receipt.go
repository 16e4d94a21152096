// Package receipt renders the delivery confirmation PDF.
package receipt

import (
	"context"
	"time"
)

// TimestampLayout is how the seal time is printed on the receipt.
const TimestampLayout = "2006-01-02 15:04:05 UTC"

// Data is everything printed on a receipt. Seal is nil for the first pass
// whose bytes are hashed, and set for the final document.
type Data struct {
	MatchID   string
	Analyst   string
	Pilot     string
	MatchDate string
	EventType string
	Logo      []byte
	// DocumentDate pins the PDF metadata dates so identical Data renders to
	// identical bytes.
	DocumentDate time.Time
	Seal         *Seal
}

type Seal struct {
	Hash        string
	GeneratedAt time.Time
}

type Renderer interface {
	Render(ctx context.Context, data Data) ([]byte, error)
}

const (
	title = "Confirmación de Entrega"

	legalAcceptance = "La confirmación de su recepción constituye una aceptación expresa de la entrega física del material " +
		"identificado en este documento, así como la asunción de su custodia."
	legalSignature = "Esta confirmación constituye una firma electrónica simple y queda asociada a la identidad " +
		"del receptor, la fecha y hora de confirmación y la descripción del material entregado. " +
		"El registro se conserva para fines de auditoría y resolución de disputas."

	labelGeneratedAt = "Fecha/hora UTC de generación:"
	labelHash        = "Hash (SHA256) del PDF final:"
)

// fallbackDocumentDate is used when Data.DocumentDate is zero.
var fallbackDocumentDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

type field struct {
	Label string
	Value string
}

func (d Data) fields() []field {
	return []field{
		{"ID-partido:", d.MatchID},
		{"Analista:", d.Analyst},
		{"Piloto:", d.Pilot},
		{"Fecha Partido:", d.MatchDate},
		{"Tipo:", d.EventType},
	}
}

func (d Data) documentDate() time.Time {
	if d.DocumentDate.IsZero() {
		return fallbackDocumentDate
	}
	return d.DocumentDate.UTC()
}
