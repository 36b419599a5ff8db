// Package email delivers counsellor notifications over SMTP.
package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"admissions_crm/platform/config"

	gomail "github.com/wneessen/go-mail"
)

const sendTimeout = 15 * time.Second

// Sender is the outbound mail surface used by the notification module.
type Sender interface {
	SendLeadAssignedEmail(ctx context.Context, toEmail string, data LeadAssignedData) error
	SendLeadTransferredEmail(ctx context.Context, toEmail string, data LeadTransferredData) error
}

// NoopSender drops every message. It is used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendLeadAssignedEmail(context.Context, string, LeadAssignedData) error {
	return nil
}

func (NoopSender) SendLeadTransferredEmail(context.Context, string, LeadTransferredData) error {
	return nil
}

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSender returns an SMTPSender when cfg enables SMTP, and a NoopSender otherwise.
func NewSender(cfg config.SMTPConfig) Sender {
	if cfg == nil || !cfg.IsSMTPEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(), cfg.GetEmailFromName())
}

func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) SendLeadAssignedEmail(ctx context.Context, toEmail string, data LeadAssignedData) error {
	data.Title = "New student assigned"
	data.Heading = "A new student has been assigned to you"
	content, err := renderEmailTemplate("lead_assigned.html", data)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectLeadAssignedFmt, data.StudentName), content)
}

func (s *SMTPSender) SendLeadTransferredEmail(ctx context.Context, toEmail string, data LeadTransferredData) error {
	data.Title = "Lead transferred"
	data.Heading = "A student has been transferred to you"
	content, err := renderEmailTemplate("lead_transferred.html", data)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectLeadTransferredFmt, data.StudentName), content)
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg, err := s.message(toEmail, subject, htmlContent)
	if err != nil {
		return err
	}

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(sendTimeout),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) message(toEmail, subject, htmlContent string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)
	return msg, nil
}
