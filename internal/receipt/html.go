package receipt

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
)

//go:embed templates/receipt.html
var templateFS embed.FS

var receiptTemplate = template.Must(template.ParseFS(templateFS, "templates/receipt.html"))

type htmlView struct {
	Title            string
	Fields           []field
	LogoBase64       string
	LegalAcceptance  string
	LegalSignature   string
	LabelGeneratedAt string
	LabelHash        string
	GeneratedAt      string
	Hash             string
	Sealed           bool
}

// RenderHTML produces the HTML version of the receipt. Every field goes
// through html/template escaping.
func RenderHTML(data Data) (string, error) {
	view := htmlView{
		Title:            title,
		Fields:           data.fields(),
		LegalAcceptance:  legalAcceptance,
		LegalSignature:   legalSignature,
		LabelGeneratedAt: labelGeneratedAt,
		LabelHash:        labelHash,
	}
	if len(data.Logo) > 0 {
		view.LogoBase64 = base64.StdEncoding.EncodeToString(data.Logo)
	}
	if data.Seal != nil {
		view.Sealed = true
		view.Hash = data.Seal.Hash
		view.GeneratedAt = data.Seal.GeneratedAt.UTC().Format(TimestampLayout)
	}
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render receipt html: %w", err)
	}
	return buf.String(), nil
}
