// Package notification turns lifecycle events into customer emails.
// Domain modules publish events on the bus and never talk to email
// providers directly.
package notification

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"marketplace_backend/internal/email"
	"marketplace_backend/internal/events"
	"marketplace_backend/internal/scheduler"
	"marketplace_backend/platform/config"
	"marketplace_backend/platform/logger"
)

const defaultCustomerName = "there"

// Module subscribes to lead and inquiry events. With a queue the work is
// enqueued for cmd/scheduler, otherwise it is delivered inline on the bus
// goroutine.
type Module struct {
	deliverer *Deliverer
	queue     scheduler.NotificationQueue
	log       *logger.Logger
}

// New creates the notification module. queue may be nil.
func New(sender email.Sender, queue scheduler.NotificationQueue, cfg config.NotificationConfig, log *logger.Logger) *Module {
	if log == nil {
		log = logger.Discard()
	}
	return &Module{
		deliverer: NewDeliverer(sender, cfg, log),
		queue:     queue,
		log:       log,
	}
}

func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes to the events that produce customer emails.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadTerminalReached{}.EventName(), m)
	bus.Subscribe(events.InquiryReplyPosted{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method. Delivery problems
// are logged and never returned: a failed email must not look like a failed
// mutation.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadTerminalReached:
		m.handleLeadTerminal(ctx, e)
	case events.InquiryReplyPosted:
		m.handleInquiryReply(ctx, e)
	}
	return nil
}

func (m *Module) handleLeadTerminal(ctx context.Context, e events.LeadTerminalReached) {
	payload := scheduler.LeadTerminalPayload{
		LeadID:        e.LeadID.String(),
		BrandID:       e.BrandID,
		Status:        e.Status,
		CustomerName:  e.CustomerName,
		CustomerEmail: e.CustomerEmail,
	}

	if m.queue != nil {
		if err := m.queue.EnqueueLeadTerminal(ctx, payload); err != nil {
			m.log.Warn("failed to enqueue lead terminal notification", "leadId", e.LeadID, "error", err)
		}
		return
	}

	if err := m.deliverer.HandleLeadTerminal(ctx, payload); err != nil {
		m.log.Warn("failed to send lead terminal notification", "leadId", e.LeadID, "error", err)
	}
}

func (m *Module) handleInquiryReply(ctx context.Context, e events.InquiryReplyPosted) {
	payload := scheduler.InquiryReplyPayload{
		InquiryID:     e.InquiryID.String(),
		ReplyID:       e.ReplyID.String(),
		BrandID:       e.BrandID,
		CustomerName:  e.CustomerName,
		CustomerEmail: e.CustomerEmail,
		Subject:       e.Subject,
		Message:       e.Message,
	}

	if m.queue != nil {
		if err := m.queue.EnqueueInquiryReply(ctx, payload); err != nil {
			m.log.Warn("failed to enqueue inquiry reply notification", "inquiryId", e.InquiryID, "error", err)
		}
		return
	}

	if err := m.deliverer.HandleInquiryReply(ctx, payload); err != nil {
		m.log.Warn("failed to send inquiry reply notification", "inquiryId", e.InquiryID, "error", err)
	}
}

// Deliverer renders and sends notification emails. It implements
// scheduler.NotificationHandler so the worker and the inline path share it.
type Deliverer struct {
	sender  email.Sender
	baseURL string
	log     *logger.Logger
}

func NewDeliverer(sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Deliverer {
	if sender == nil {
		sender = email.NoopSender{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Deliverer{
		sender:  sender,
		baseURL: strings.TrimRight(cfg.GetAppBaseURL(), "/"),
		log:     log,
	}
}

func (d *Deliverer) HandleLeadTerminal(ctx context.Context, p scheduler.LeadTerminalPayload) error {
	to, ok := recipient(p.CustomerEmail)
	if !ok {
		d.log.Info("lead has no deliverable email, skipping notification", "leadId", p.LeadID)
		return nil
	}

	return d.sender.SendLeadClosedEmail(ctx, to, email.LeadClosed{
		CustomerName: defaultName(p.CustomerName, defaultCustomerName),
		BrandID:      p.BrandID,
		Status:       p.Status,
		DashboardURL: d.buildURL("/leads/%s", p.LeadID),
	})
}

func (d *Deliverer) HandleInquiryReply(ctx context.Context, p scheduler.InquiryReplyPayload) error {
	to, ok := recipient(p.CustomerEmail)
	if !ok {
		d.log.Info("inquiry has no deliverable email, skipping notification", "inquiryId", p.InquiryID)
		return nil
	}

	return d.sender.SendInquiryReplyEmail(ctx, to, email.InquiryReply{
		CustomerName: defaultName(p.CustomerName, defaultCustomerName),
		Subject:      p.Subject,
		Message:      p.Message,
	})
}

func (d *Deliverer) buildURL(format string, args ...any) string {
	return d.baseURL + fmt.Sprintf(format, args...)
}

func recipient(raw string) (string, bool) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return addr.Address, true
}

func defaultName(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
