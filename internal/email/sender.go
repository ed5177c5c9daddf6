package email

import (
	"context"

	"marketplace_backend/platform/config"
)

// LeadClosed describes a lead that reached a terminal status.
type LeadClosed struct {
	CustomerName string
	BrandID      string
	Status       string
	DashboardURL string
}

// InquiryReply describes a customer-facing reply to an inquiry.
type InquiryReply struct {
	CustomerName string
	Subject      string
	Message      string
}

type Sender interface {
	SendLeadClosedEmail(ctx context.Context, toEmail string, data LeadClosed) error
	SendInquiryReplyEmail(ctx context.Context, toEmail string, data InquiryReply) error
}

type NoopSender struct{}

func (NoopSender) SendLeadClosedEmail(ctx context.Context, toEmail string, data LeadClosed) error {
	return nil
}

func (NoopSender) SendInquiryReplyEmail(ctx context.Context, toEmail string, data InquiryReply) error {
	return nil
}

// NewSender returns an SMTP sender when SMTP is configured, a NoopSender otherwise.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.IsEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
