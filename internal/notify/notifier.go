// Package notify delivers the digest of new reactions.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/reactionwatch/internal/reactions"
)

// Transport names accepted by New.
const (
	TransportSMTP   = "smtp"
	TransportResend = "resend"
	TransportLog    = "log"
)

// Notifier delivers one batch. It is called at most once per run and never
// with an empty batch.
type Notifier interface {
	Notify(ctx context.Context, batch *reactions.Batch) error
}

// Message is a rendered email.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Sender hands a message to a mail transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config selects and configures the transport.
type Config struct {
	Transport     string
	From          string
	To            []string
	SubjectPrefix string
	SMTP          SMTPConfig
	ResendAPIKey  string
}

// MailNotifier renders a batch into a digest and sends it.
type MailNotifier struct {
	sender        Sender
	from          string
	to            []string
	subjectPrefix string
	now           func() time.Time
}

// NewMailNotifier wraps sender.
func NewMailNotifier(sender Sender, from string, to []string, subjectPrefix string) *MailNotifier {
	return &MailNotifier{
		sender:        sender,
		from:          from,
		to:            to,
		subjectPrefix: subjectPrefix,
		now:           time.Now,
	}
}

// Notify implements Notifier.
func (n *MailNotifier) Notify(ctx context.Context, batch *reactions.Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	digest, err := Render(batch, n.subjectPrefix, n.now())
	if err != nil {
		return err
	}

	msg := Message{
		From:    n.from,
		To:      n.to,
		Subject: digest.Subject,
		Text:    digest.Text,
		HTML:    digest.HTML,
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	log.Info().Int("count", batch.Len()).Strs("to", n.to).Msg("Sent reaction digest")
	return nil
}

// New builds the notifier for cfg.Transport.
func New(cfg Config) (Notifier, error) {
	var sender Sender
	switch strings.ToLower(cfg.Transport) {
	case "", TransportSMTP:
		sender = NewSMTPSender(cfg.SMTP)
	case TransportResend:
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("resend transport requires an api key")
		}
		sender = NewResendSender(cfg.ResendAPIKey)
	case TransportLog:
		sender = NewLogSender(nil)
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
	return NewMailNotifier(sender, cfg.From, cfg.To, cfg.SubjectPrefix), nil
}

// SplitAddresses parses a comma or semicolon separated recipient list.
func SplitAddresses(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
