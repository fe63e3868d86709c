package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
)

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailConfig configures SMTP delivery.
type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       string
	BaseURL  string
}

// EmailNotifier sends an HTML approval email with APPROVE and REJECT links.
type EmailNotifier struct {
	cfg  EmailConfig
	send SendMailFunc
	now  func() time.Time
}

// NewEmailNotifier builds an SMTP notifier. send defaults to smtp.SendMail.
func NewEmailNotifier(cfg EmailConfig, send SendMailFunc) *EmailNotifier {
	if send == nil {
		send = smtp.SendMail
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &EmailNotifier{cfg: cfg, send: send, now: time.Now}
}

var emailBody = template.Must(template.New("approval").Parse(`<html>
<body>
    <h2>Software Installation Request</h2>
    <p><strong>Ticket ID:</strong> {{.Ticket.ID}}</p>
    <p><strong>User:</strong> {{.Ticket.Requester}}</p>
    <p><strong>Software:</strong> {{.Ticket.Software}} {{.Ticket.Version}}</p>
    <p><strong>Request Time:</strong> {{.Requested}}</p>
    <h3>Actions Required:</h3>
    <p>Please click one of the following links to approve or reject this request:</p>
    <div style="margin: 20px 0;">
        <a href="{{.Links.Approve}}" style="background-color: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; margin-right: 10px;">APPROVE</a>
        <a href="{{.Links.Reject}}" style="background-color: #f44336; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">REJECT</a>
    </div>
    <p><em>This is an automated message from the provisioning assistant.</em></p>
</body>
</html>
`))

func (n *EmailNotifier) Notify(ctx context.Context, ticket domain.Ticket, token string) error {
	if n.cfg.Host == "" || n.cfg.User == "" || n.cfg.Password == "" || n.cfg.To == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := n.render(ticket, token)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)
	if err := n.send(addr, auth, n.cfg.From, []string{n.cfg.To}, msg); err != nil {
		return fmt.Errorf("send approval email: %w", err)
	}
	return nil
}

func (n *EmailNotifier) render(ticket domain.Ticket, token string) ([]byte, error) {
	var body bytes.Buffer
	err := emailBody.Execute(&body, struct {
		Ticket    domain.Ticket
		Links     Links
		Requested string
	}{
		Ticket:    ticket,
		Links:     BuildLinks(n.cfg.BaseURL, token),
		Requested: ticket.CreatedAt.Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", n.cfg.To)
	fmt.Fprintf(&msg, "Subject: Software Installation Request - Ticket %s\r\n", ticket.ID)
	fmt.Fprintf(&msg, "Date: %s\r\n", n.now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}
