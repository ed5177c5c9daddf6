package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
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

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
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

func (s *SMTPSender) SendLeadClosedEmail(ctx context.Context, toEmail string, data LeadClosed) error {
	converted := data.Status == "converted"
	subject := fmt.Sprintf(subjectLeadClosedFmt, data.CustomerName)
	heading := "Your request has been closed"
	if converted {
		subject = fmt.Sprintf(subjectLeadConvertedFmt, data.CustomerName)
		heading = "Your request is confirmed"
	}

	content, err := renderEmailTemplate("lead_closed.html", leadClosedEmailData{
		baseEmailData: baseEmailData{
			Title:   heading,
			Heading: heading,
		},
		CustomerName: data.CustomerName,
		Converted:    converted,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendInquiryReplyEmail(ctx context.Context, toEmail string, data InquiryReply) error {
	content, err := renderEmailTemplate("inquiry_reply.html", inquiryReplyEmailData{
		baseEmailData: baseEmailData{
			Title:   "New reply to your message",
			Heading: "New reply to your message",
		},
		CustomerName: data.CustomerName,
		Subject:      data.Subject,
		Message:      data.Message,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectInquiryReplyFmt, data.Subject), content)
}
