package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/jordan-wright/email"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/observability"
)

var ErrInvalidRecipient = errors.New("email recipient is required")

// GmailNotifier sends mail as the authenticated account through the Gmail
// API. The message is composed as MIME locally and uploaded raw.
type GmailNotifier struct {
	svc    *gmail.Service
	sender string
}

func NewGmailNotifier(ctx context.Context, tokens oauth2.TokenSource, sender string, opts ...option.ClientOption) (*GmailNotifier, error) {
	opts = append([]option.ClientOption{option.WithTokenSource(tokens)}, opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail client: %w", err)
	}
	if sender == "" {
		sender = "me"
	}
	return &GmailNotifier{svc: svc, sender: sender}, nil
}

func (n *GmailNotifier) Send(ctx context.Context, msg Message) error {
	raw, err := composeMIME(n.sender, msg)
	if err != nil {
		return err
	}
	_, err = n.svc.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	observability.RecordIntegrationCall(ctx, "gmail", err)
	if err != nil {
		return fmt.Errorf("gmail send to %s: %w", msg.To, err)
	}
	return nil
}

func composeMIME(sender string, msg Message) ([]byte, error) {
	if strings.TrimSpace(msg.To) == "" {
		return nil, ErrInvalidRecipient
	}
	e := email.NewEmail()
	// "me" is a Gmail alias, not an address; Gmail fills From itself.
	if strings.Contains(sender, "@") {
		e.From = sender
	}
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTMLBody)
	for _, a := range msg.Attachments {
		if _, err := e.Attach(bytes.NewReader(a.Data), a.Filename, a.ContentType); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}
	raw, err := e.Bytes()
	if err != nil {
		return nil, fmt.Errorf("compose mime: %w", err)
	}
	return raw, nil
}
