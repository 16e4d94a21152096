package service

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/observability"
)

// DrivePublisher uploads receipts into one Drive folder and shares each file
// with anyone holding the link.
type DrivePublisher struct {
	svc      *drive.Service
	folderID string
}

func NewDrivePublisher(ctx context.Context, tokens oauth2.TokenSource, folderID string, opts ...option.ClientOption) (*DrivePublisher, error) {
	opts = append([]option.ClientOption{option.WithTokenSource(tokens)}, opts...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive client: %w", err)
	}
	return &DrivePublisher{svc: svc, folderID: folderID}, nil
}

func (p *DrivePublisher) Publish(ctx context.Context, filename string, data []byte) (string, error) {
	file, err := p.svc.Files.Create(&drive.File{
		Name:     filename,
		Parents:  []string{p.folderID},
		MimeType: "application/pdf",
	}).Media(bytes.NewReader(data)).Fields("id, webContentLink").Context(ctx).Do()
	observability.RecordIntegrationCall(ctx, "drive", err)
	if err != nil {
		return "", fmt.Errorf("%w: upload %s: %v", ErrPublishFailed, filename, err)
	}

	_, err = p.svc.Permissions.Create(file.Id, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).Fields("id").Context(ctx).Do()
	observability.RecordIntegrationCall(ctx, "drive", err)
	if err != nil {
		return "", fmt.Errorf("%w: share %s: %v", ErrPublishFailed, file.Id, err)
	}
	if file.WebContentLink == "" {
		return "", fmt.Errorf("%w: drive returned no link for %s", ErrURLGenerationFailed, file.Id)
	}
	return file.WebContentLink, nil
}
