package mailer

import (
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Mailer sends plain-text notification mail over SMTP. Delivery failures
// are returned to the caller so it can log them; there is no retry here,
// notification mail is best-effort.
type Mailer struct {
	addr       string
	from       string
	returnPath string
	log        zerolog.Logger
}

// New creates a Mailer for the given SMTP address ("host:port").
// returnPath may be empty, in which case no Return-Path header is set.
func New(addr, from, returnPath string, log zerolog.Logger) *Mailer {
	return &Mailer{
		addr:       addr,
		from:       from,
		returnPath: returnPath,
		log:        log.With().Str("component", "mailer").Logger(),
	}
}

// Send delivers one message. Custom headers are emitted in sorted order so
// the output is deterministic.
func (m *Mailer) Send(to []string, subject, body string, headers map[string]string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	var msg strings.Builder
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	if m.returnPath != "" {
		fmt.Fprintf(&msg, "Return-Path: %s\r\n", m.returnPath)
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&msg, "%s: %s\r\n", k, headers[k])
	}

	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(m.addr, nil, m.from, to, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	m.log.Debug().Strs("to", to).Str("subject", subject).Msg("Mail sent")
	return nil
}
