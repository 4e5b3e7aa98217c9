// Package notifier delivers supervisor-released decision emails and
// reports a delivery receipt per attempt.
package notifier

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"
)

// Receipt statuses. They map one to one onto the delivery_status
// column of the supervision queue.
const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusBounced = "bounced"
)

// Receipt describes the result of one delivery attempt.
type Receipt struct {
	Status      string    `json:"status"`
	Detail      string    `json:"detail,omitempty"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// Notifier sends one decision email. Implementations return a Receipt
// even on failure; the error mirrors a failed status for callers that
// branch on it.
type Notifier interface {
	Deliver(ctx context.Context, to, subject, body string) (Receipt, error)
}

// SMTPNotifier delivers over plain SMTP with AUTH when credentials are
// configured.
type SMTPNotifier struct {
	host string
	port int
	user string
	pass string
	from string
}

// NewSMTPNotifier builds a notifier for the given relay. from is the
// envelope and header sender.
func NewSMTPNotifier(host string, port int, user, pass, from string) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, user: user, pass: pass, from: from}
}

// Deliver implements Notifier. A rejected recipient address yields a
// bounced receipt; every other SMTP failure yields failed.
func (n *SMTPNotifier) Deliver(ctx context.Context, to, subject, body string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{Status: StatusFailed, Detail: err.Error(), DeliveredAt: time.Now().UTC()}, err
	}

	msg := buildMessage(n.from, to, subject, body)
	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	var auth smtp.Auth
	if n.user != "" {
		auth = smtp.PlainAuth("", n.user, n.pass, n.host)
	}

	if err := smtp.SendMail(addr, auth, n.from, []string{to}, msg); err != nil {
		status := StatusFailed
		if isRecipientRejected(err) {
			status = StatusBounced
		}
		log.Printf("notifier: delivery to %s %s: %v", to, status, err)
		return Receipt{Status: status, Detail: err.Error(), DeliveredAt: time.Now().UTC()}, err
	}
	return Receipt{Status: StatusSent, DeliveredAt: time.Now().UTC()}, nil
}

func buildMessage(from, to, subject, body string) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return []byte(sb.String())
}

// isRecipientRejected spots the 5xx mailbox errors that mean the
// address itself is bad rather than the relay being down.
func isRecipientRejected(err error) bool {
	msg := err.Error()
	for _, code := range []string{"550", "551", "553"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}
