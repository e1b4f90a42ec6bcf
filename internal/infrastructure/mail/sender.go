package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"ArxivDigest/internal/config"
	"ArxivDigest/internal/ports"
)

// Sender delivers digests over SMTP with a plain text body and an HTML
// alternative rendered from the markdown source.
type Sender struct {
	cfg      config.EmailConfig
	renderer goldmark.Markdown
	logger   *slog.Logger
}

var _ ports.Mailer = (*Sender)(nil)

// NewSender builds a sender from email configuration.
func NewSender(cfg config.EmailConfig, log *slog.Logger) *Sender {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Sender{
		cfg: cfg,
		renderer: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
		logger: log,
	}
}

// SendDigest sends the markdown digest to every recipient in one message.
func (s *Sender) SendDigest(ctx context.Context, subject, markdown string, recipients []string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients configured")
	}

	html, err := s.renderHTML(markdown)
	if err != nil {
		return fmt.Errorf("render digest html: %w", err)
	}

	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.Sender); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(recipients...); err != nil {
		return fmt.Errorf("set recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, markdown)
	msg.AddAlternativeString(gomail.TypeTextHTML, html)

	client, err := gomail.NewClient(s.cfg.SMTPServer,
		gomail.WithPort(s.cfg.SMTPPort),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.Sender),
		gomail.WithPassword(s.cfg.Password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}

	s.logger.Info("digest sent", "recipients", len(recipients), "subject", subject)
	return nil
}

func (s *Sender) renderHTML(markdown string) (string, error) {
	var body bytes.Buffer
	if err := s.renderer.Convert([]byte(markdown), &body); err != nil {
		return "", err
	}

	var page bytes.Buffer
	page.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; max-width: 800px; margin: 0 auto; padding: 24px; color: #1f2328; }
h1, h2, h3 { color: #0b3d66; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #d0d7de; padding: 6px 10px; text-align: left; }
th { background: #f6f8fa; }
a { color: #0969da; }
</style></head><body>`)
	page.Write(body.Bytes())
	page.WriteString(`</body></html>`)
	return page.String(), nil
}
