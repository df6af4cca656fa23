package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-gomail/gomail"
)

// ---------------------------------------------------------------------------
// Email
// ---------------------------------------------------------------------------

// Attachment is an in-memory file attached to a mail.
type Attachment struct {
	Filename string
	Data     []byte
}

// Notifier is told about every generated letter.
type Notifier interface {
	Notify(ctx context.Context, letter *Letter) error
}

type noNotify struct{}

func (noNotify) Notify(context.Context, *Letter) error { return nil }

// mailNotifier sends a copy of each letter to the office mailbox via SMTP.
type mailNotifier struct {
	cfg  MailConfig
	send func(...*gomail.Message) error
}

// newNotifier returns noNotify unless copy mails are configured.
func newNotifier(cfg MailConfig) Notifier {
	if !cfg.Enabled() {
		return noNotify{}
	}
	dialer := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	return &mailNotifier{cfg: cfg, send: dialer.DialAndSend}
}

func (n *mailNotifier) Notify(ctx context.Context, letter *Letter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject := fmt.Sprintf(n.cfg.Subject, letter.Address.Recipient())
	body := fmt.Sprintf("Brief erstellt (Schriftgröße %.1f pt).<br>", letter.Fit.FontSize)
	msg := buildMessage(n.cfg, subject, body, Attachment{Filename: letter.FileName, Data: letter.PDF})

	// gomail cannot be cancelled; a send that outlives ctx finishes unobserved.
	done := make(chan error, 1)
	go func() {
		done <- n.send(msg)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send copy mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to send copy mail: %w", ctx.Err())
	}
}

// buildMessage assembles an HTML mail with in-memory attachments.
func buildMessage(cfg MailConfig, subject, body string, attachments ...Attachment) *gomail.Message {
	msg := gomail.NewMessage()
	from := cfg.From
	if from == "" {
		from = cfg.SMTP.Username
	}
	msg.SetHeader("From", from)
	msg.SetHeader("To", cfg.To)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	for _, a := range attachments {
		data := a.Data
		msg.Attach(a.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	return msg
}
