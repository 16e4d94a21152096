package service

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
)

//go:embed templates/*.html
var mailTemplateFS embed.FS

var mailTemplates = template.Must(template.ParseFS(mailTemplateFS, "templates/*.html"))

const LegalContact = "legal@fly-fut.com"

type issueMailData struct {
	Analyst   string
	Pilot     string
	MatchID   string
	MatchDate string
	EventType string
	Code      string
	Link      string
	Contact   string
}

// CodeMessage is the email carrying a numeric confirmation code.
func CodeMessage(rec domain.DeliveryRecord, code string) (Message, error) {
	return issueMessage(rec, "mail_code.html", issueMailData{Code: code})
}

// LinkMessage is the email carrying the one-click confirmation link.
func LinkMessage(rec domain.DeliveryRecord, link string) (Message, error) {
	return issueMessage(rec, "mail_link.html", issueMailData{Link: link})
}

func issueMessage(rec domain.DeliveryRecord, tmpl string, data issueMailData) (Message, error) {
	event := capitalize(rec.EventType)
	data.Analyst = rec.AnalystName
	data.Pilot = rec.PilotName
	data.MatchID = rec.MatchID
	data.MatchDate = rec.MatchDate
	data.EventType = event
	data.Contact = LegalContact

	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", tmpl, err)
	}
	return Message{
		To:       rec.AnalystEmail,
		Subject:  fmt.Sprintf("[Fly-Fut] Confirmación de entrega de tarjeta SD - %s: %s", event, rec.MatchID),
		HTMLBody: buf.String(),
	}, nil
}

// ReceiptMessage is the final email with the sealed PDF attached.
func ReceiptMessage(rec domain.DeliveryRecord, filename string, pdf []byte) (Message, error) {
	var buf bytes.Buffer
	err := mailTemplates.ExecuteTemplate(&buf, "mail_receipt.html", issueMailData{
		Analyst: rec.AnalystName,
		Pilot:   rec.PilotName,
		MatchID: rec.MatchID,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render mail_receipt.html: %w", err)
	}
	return Message{
		To:       rec.AnalystEmail,
		Subject:  "Confirmación de entrega de imágenes - PDF adjunto para " + rec.MatchID,
		HTMLBody: buf.String(),
		Attachments: []Attachment{{
			Filename:    filename,
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}, nil
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
