package publisher

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ryosukesatoh/discord-digest/internal/sentiment"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailPublisher mails the report as HTML via SMTP.
type EmailPublisher struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	sendMail sendMailFunc
}

func NewEmailPublisher(host string, port int, username, password, from string, to []string) *EmailPublisher {
	return &EmailPublisher{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		sendMail: smtp.SendMail,
	}
}

func (p *EmailPublisher) Publish(_ context.Context, r *sentiment.Report) error {
	subject := fmt.Sprintf("Crypto Fear & Greed: %d (%s)", r.Value, r.Band.Label)
	if !r.Timestamp.IsZero() {
		subject += " - " + r.Timestamp.UTC().Format("2006-01-02")
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		p.from,
		strings.Join(p.to, ","),
		subject,
		buildHTMLBody(r),
	)

	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	if err := p.sendMail(addr, auth, p.from, p.to, []byte(msg)); err != nil {
		return fmt.Errorf("email: failed to send: %w", err)
	}
	return nil
}

func buildHTMLBody(r *sentiment.Report) string {
	var sb strings.Builder

	sb.WriteString(`<!DOCTYPE html><html><head><style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; color: #333; }
.value { font-size: 2.5em; font-weight: bold; }
.bar { font-family: monospace; font-size: 1.4em; letter-spacing: 2px; }
.meta { color: #666; font-size: 0.9em; }
</style></head><body>`)

	sb.WriteString("<h1>Crypto Fear &amp; Greed Index</h1>")
	sb.WriteString(fmt.Sprintf(`<p class="value" style="color: #%06X">%s %d/100 %s</p>`, r.Band.Color, r.Band.Emoji, r.Value, r.Band.Label))
	sb.WriteString(fmt.Sprintf(`<p class="bar">%s</p>`, sentiment.Bar(r.Value)))

	if delta, ok := r.Change(); ok {
		sb.WriteString(fmt.Sprintf("<p>Change vs yesterday: <strong>%+d</strong> (%d &rarr; %d)</p>", delta, *r.Previous, r.Value))
	}
	if !r.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf(`<p class="meta">Updated %s UTC</p>`, r.Timestamp.UTC().Format("2006-01-02 15:04")))
	}

	sb.WriteString("</body></html>")
	return sb.String()
}
