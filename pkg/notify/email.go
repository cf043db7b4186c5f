package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/resend/resend-go/v2"
)

// emailSender is the subset of the Resend client used here
type emailSender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// EmailNotifier mails notifications through Resend
type EmailNotifier struct {
	emails emailSender
	from   string
	to     []string
}

// NewEmailNotifier returns nil when no API key or recipient is configured.
// Check for nil before adding it to Multi.
func NewEmailNotifier(apiKey, from string, to []string) *EmailNotifier {
	if apiKey == "" || len(to) == 0 {
		return nil
	}
	client := resend.NewClient(apiKey)
	return &EmailNotifier{emails: client.Emails, from: from, to: to}
}

// Notify implements Notifier
func (e *EmailNotifier) Notify(ctx context.Context, n Notification) error {
	if e == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.emails == nil {
		return errors.New("email client not configured")
	}

	_, err := e.emails.Send(&resend.SendEmailRequest{
		From:    e.from,
		To:      e.to,
		Subject: n.Title,
		Text:    n.Message,
		Html:    renderHTML(n),
	})
	if err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	return nil
}

func renderHTML(n Notification) string {
	lines := strings.Split(n.Message, "\n")
	for i, l := range lines {
		lines[i] = html.EscapeString(l)
	}
	return fmt.Sprintf("<h2>%s</h2><p>%s</p>", html.EscapeString(n.Title), strings.Join(lines, "<br>"))
}
