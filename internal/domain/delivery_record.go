package domain

import (
	"fmt"
	"strings"
	"time"
)

type DeliveryStatus string

const (
	StatusUnset    DeliveryStatus = "unset"
	StatusPending  DeliveryStatus = "pending"
	StatusVerified DeliveryStatus = "verified"
)

// Labels written to the external store's status column.
const (
	StatusLabelPending  = "Pendiente"
	StatusLabelVerified = "Verificado"
)

// StoreLabel returns the value the record store keeps for the status.
func (s DeliveryStatus) StoreLabel() string {
	switch s {
	case StatusPending:
		return StatusLabelPending
	case StatusVerified:
		return StatusLabelVerified
	default:
		return ""
	}
}

// ParseStatusLabel maps a store label back to a status. Unknown labels are an
// error so schema drift in the store surfaces at the adapter boundary.
func ParseStatusLabel(label string) (DeliveryStatus, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "unset":
		return StatusUnset, nil
	case strings.ToLower(StatusLabelPending), string(StatusPending):
		return StatusPending, nil
	case strings.ToLower(StatusLabelVerified), string(StatusVerified):
		return StatusVerified, nil
	default:
		return "", fmt.Errorf("unknown delivery status %q", label)
	}
}

type ConfirmationMode string

const (
	ModeCode ConfirmationMode = "code"
	ModeLink ConfirmationMode = "link"
)

func ParseConfirmationMode(raw string) (ConfirmationMode, error) {
	switch ConfirmationMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeCode:
		return ModeCode, nil
	case ModeLink:
		return ModeLink, nil
	default:
		return "", fmt.Errorf("unknown confirmation mode %q", raw)
	}
}

// DeliveryRecord is one SD card handoff as held by the record store.
type DeliveryRecord struct {
	ID           string         `gorm:"primaryKey;size:64" json:"id" csv:"record_id"`
	MatchID      string         `gorm:"size:128;index;not null" json:"match_id" csv:"match_id"`
	PilotName    string         `gorm:"size:256" json:"pilot_name" csv:"pilot_name"`
	AnalystName  string         `gorm:"size:256" json:"analyst_name" csv:"analyst_name"`
	AnalystEmail string         `gorm:"size:320" json:"analyst_email" csv:"analyst_email"`
	MatchDate    string         `gorm:"size:64" json:"match_date" csv:"match_date"`
	EventType    string         `gorm:"size:64" json:"event_type" csv:"event_type"`
	Status       DeliveryStatus `gorm:"size:16;index;not null;default:unset" json:"status" csv:"status"`
	Code         string         `gorm:"size:16" json:"-" csv:"-"`
	Token        string         `gorm:"size:64;index" json:"-" csv:"-"`
	PDFURL       string         `gorm:"column:pdf_url;size:1024" json:"pdf_url,omitempty" csv:"pdf_url"`
	PDFHash      string         `gorm:"column:pdf_hash;size:64" json:"pdf_hash,omitempty" csv:"pdf_hash"`
	CreatedAt    time.Time      `json:"created_at" csv:"-"`
	UpdatedAt    time.Time      `json:"updated_at" csv:"-"`
}

func (r *DeliveryRecord) IsVerified() bool {
	return r != nil && r.Status == StatusVerified
}

// PendingUpdate is the partial patch written when a confirmation is issued.
// Exactly one of Code and Token is set; the other secret column is cleared.
type PendingUpdate struct {
	AnalystName  string
	AnalystEmail string
	Code         string
	Token        string
}

// VerifiedUpdate is the partial patch written after a receipt is published.
type VerifiedUpdate struct {
	PDFURL  string
	PDFHash string
}
