package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var (
	ErrPublishFailed       = errors.New("failed to publish receipt")
	ErrURLGenerationFailed = errors.New("failed to generate receipt URL")
)

// Publisher stores a finished receipt and returns a URL anyone with the link
// can open.
type Publisher interface {
	Publish(ctx context.Context, filename string, data []byte) (string, error)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ReceiptFilename is the published name for the receipt of one match.
func ReceiptFilename(matchID string) string {
	id := strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(matchID), "_"), "_")
	if id == "" {
		id = "sin_id"
	}
	return "reporte_verificado_" + id + ".pdf"
}
