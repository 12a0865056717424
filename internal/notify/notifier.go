package notify

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"strings"

	"github.com/lambethcyclists/mailroom/internal/logging"
)

// Message is one notification with plain-text and HTML renderings.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Notifier sends committee notifications over SMTP. Without
// credentials it runs disabled: sends are logged and dropped, so the
// rest of the system works in a partial deployment.
type Notifier struct {
	host       string
	port       int
	username   string
	password   string
	recipients []string
	logger     *slog.Logger
	send       sendFunc
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithSendFunc overrides the SMTP send call (tests).
func WithSendFunc(fn sendFunc) Option {
	return func(n *Notifier) { n.send = fn }
}

// NewNotifier builds a Notifier. username doubles as the From address.
func NewNotifier(host string, port int, username, password string, recipients []string, opts ...Option) *Notifier {
	n := &Notifier{
		host:       host,
		port:       port,
		username:   username,
		password:   password,
		recipients: recipients,
		logger:     logging.WithService(slog.Default(), "notify"),
		send:       smtp.SendMail,
	}
	for _, opt := range opts {
		opt(n)
	}
	if !n.Enabled() {
		n.logger.Warn("smtp credentials not configured, notifications disabled")
	}
	return n
}

// Enabled reports whether SMTP credentials are configured.
func (n *Notifier) Enabled() bool {
	return n.username != "" && n.password != "" && len(n.recipients) > 0
}

// Send delivers a message to every configured recipient. A disabled
// notifier logs and returns nil.
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	if !n.Enabled() {
		n.logger.Info("notification skipped (disabled)", slog.String("subject", msg.Subject))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	auth := smtp.PlainAuth("", n.username, n.password, n.host)
	body := buildMIME(n.username, n.recipients, msg)

	if err := n.send(addr, auth, n.username, n.recipients, body); err != nil {
		return fmt.Errorf("send notification %q: %w", msg.Subject, err)
	}
	n.logger.Info("notification sent",
		slog.String("subject", msg.Subject),
		slog.Int("recipients", len(n.recipients)))
	return nil
}

const mimeBoundary = "=_mailroom_alt"

// buildMIME assembles a multipart/alternative message so clients can
// pick between the plain and HTML renderings.
func buildMIME(from string, to []string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", encodeHeader(msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", mimeBoundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Text)
	b.WriteString("\r\n")

	if msg.HTML != "" {
		fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
		b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		b.WriteString(msg.HTML)
		b.WriteString("\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return []byte(b.String())
}

// encodeHeader RFC 2047-encodes a header value when it carries
// non-ASCII characters.
func encodeHeader(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}
