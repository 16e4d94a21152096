package receipt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// DocumentRenderer lays the receipt out directly with fpdf. Output is
// byte-for-byte reproducible for identical Data.
type DocumentRenderer struct{}

func NewDocumentRenderer() *DocumentRenderer {
	return &DocumentRenderer{}
}

func (r *DocumentRenderer) Render(ctx context.Context, data Data) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(data.documentDate())
	pdf.SetModificationDate(data.documentDate())
	pdf.SetTitle(title, true)
	pdf.SetCreator("entrega-imagenes", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentW := pageW - left - right

	if len(data.Logo) > 0 {
		pdf.RegisterImageOptionsReader("logo", fpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}, bytes.NewReader(data.Logo))
		if pdf.Ok() {
			logoW := 80.0
			pdf.ImageOptions("logo", (pageW-logoW)/2, pdf.GetY(), logoW, 0, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
			pdf.Ln(4)
		}
	}

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(51, 51, 51)
	pdf.CellFormat(contentW, 12, tr(title), "", 1, "C", false, 0, "")
	pdf.SetDrawColor(51, 51, 51)
	pdf.SetLineWidth(0.6)
	pdf.Line(left, pdf.GetY()+2, pageW-right, pdf.GetY()+2)
	pdf.Ln(10)

	for _, f := range data.fields() {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(85, 85, 85)
		pdf.CellFormat(40, 8, tr(f.Label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(51, 51, 51)
		pdf.MultiCell(contentW-40, 8, tr(f.Value), "", "L", false)
	}

	pdf.Ln(6)
	pdf.SetLineWidth(0.2)
	pdf.Line(left, pdf.GetY(), pageW-right, pdf.GetY())
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(102, 102, 102)
	pdf.MultiCell(contentW, 5, tr(legalAcceptance), "", "J", false)
	pdf.Ln(3)
	pdf.MultiCell(contentW, 5, tr(legalSignature), "", "J", false)

	if data.Seal != nil {
		pdf.Ln(5)
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(contentW, 5, tr(labelGeneratedAt), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(contentW, 5, data.Seal.GeneratedAt.UTC().Format(TimestampLayout), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(contentW, 5, tr(labelHash), "", 1, "L", false, 0, "")
		pdf.SetFont("Courier", "", 8)
		pdf.MultiCell(contentW, 5, data.Seal.Hash, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
