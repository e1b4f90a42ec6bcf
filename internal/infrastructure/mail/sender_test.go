package mail

import (
	"strings"
	"testing"

	"ArxivDigest/internal/config"
)

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	s := NewSender(config.EmailConfig{}, nil)

	markdown := strings.Join([]string{
		"# Daily Digest",
		"",
		"| # | Title |",
		"|---|-------|",
		"| 1 | Retrieval Paper |",
		"",
		"[abstract](https://arxiv.org/abs/1234)",
	}, "\n")

	html, err := s.renderHTML(markdown)
	if err != nil {
		t.Fatalf("renderHTML error: %v", err)
	}

	for _, want := range []string{
		"<h1",
		"Daily Digest",
		"<table>",
		"Retrieval Paper",
		`<a href="https://arxiv.org/abs/1234"`,
		"</body></html>",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered html missing %q:\n%s", want, html)
		}
	}
}

func TestSendDigestRequiresRecipients(t *testing.T) {
	t.Parallel()

	s := NewSender(config.EmailConfig{SMTPServer: "localhost", Sender: "a@b.c", Password: "x"}, nil)
	if err := s.SendDigest(t.Context(), "subject", "body", nil); err == nil {
		t.Fatal("expected error for empty recipients")
	}
}
