package notification

import (
	"context"
	"errors"
	"testing"

	"marketplace_backend/internal/email"
	"marketplace_backend/internal/events"
	"marketplace_backend/internal/scheduler"
	"marketplace_backend/platform/logger"

	"github.com/google/uuid"
)

const errUnexpected = "unexpected error: %v"

type testNotificationConfig struct{}

func (testNotificationConfig) GetAppBaseURL() string { return "https://app.example.com/" }

type sentEmail struct {
	to      string
	closed  email.LeadClosed
	reply   email.InquiryReply
	isReply bool
}

type testSender struct {
	sent []sentEmail
	err  error
}

func (s *testSender) SendLeadClosedEmail(_ context.Context, to string, data email.LeadClosed) error {
	s.sent = append(s.sent, sentEmail{to: to, closed: data})
	return s.err
}

func (s *testSender) SendInquiryReplyEmail(_ context.Context, to string, data email.InquiryReply) error {
	s.sent = append(s.sent, sentEmail{to: to, reply: data, isReply: true})
	return s.err
}

type testQueue struct {
	leads   []scheduler.LeadTerminalPayload
	replies []scheduler.InquiryReplyPayload
	err     error
}

func (q *testQueue) EnqueueLeadTerminal(_ context.Context, p scheduler.LeadTerminalPayload) error {
	q.leads = append(q.leads, p)
	return q.err
}

func (q *testQueue) EnqueueInquiryReply(_ context.Context, p scheduler.InquiryReplyPayload) error {
	q.replies = append(q.replies, p)
	return q.err
}

func newBus(t *testing.T, m *Module) *events.InMemoryBus {
	t.Helper()
	bus := events.NewInMemoryBus(logger.Discard())
	m.RegisterHandlers(bus)
	return bus
}

func TestLeadTerminalSendsInline(t *testing.T) {
	sender := &testSender{}
	m := New(sender, nil, testNotificationConfig{}, logger.Discard())
	bus := newBus(t, m)
	leadID := uuid.New()

	err := bus.PublishSync(context.Background(), events.LeadTerminalReached{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        leadID,
		BrandID:       "brand-a",
		Status:        "converted",
		CustomerName:  "  ",
		CustomerEmail: "Dana <dana@example.com>",
	})
	if err != nil {
		t.Fatalf(errUnexpected, err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	got := sender.sent[0]
	if got.to != "dana@example.com" {
		t.Fatalf("expected bare address, got %q", got.to)
	}
	if got.closed.CustomerName != defaultCustomerName {
		t.Fatalf("expected fallback name, got %q", got.closed.CustomerName)
	}
	if want := "https://app.example.com/leads/" + leadID.String(); got.closed.DashboardURL != want {
		t.Fatalf("expected %q, got %q", want, got.closed.DashboardURL)
	}
}

func TestInquiryReplyEnqueuedWhenQueueConfigured(t *testing.T) {
	sender := &testSender{}
	queue := &testQueue{}
	m := New(sender, queue, testNotificationConfig{}, logger.Discard())
	bus := newBus(t, m)

	err := bus.PublishSync(context.Background(), events.InquiryReplyPosted{
		BaseEvent:     events.NewBaseEvent(),
		InquiryID:     uuid.New(),
		ReplyID:       uuid.New(),
		CustomerEmail: "sam@example.com",
		Subject:       "Custom ring",
		Message:       "Yes we can",
	})
	if err != nil {
		t.Fatalf(errUnexpected, err)
	}

	if len(queue.replies) != 1 || queue.replies[0].Message != "Yes we can" {
		t.Fatalf("expected enqueued reply, got %+v", queue.replies)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("queued mode must not send inline, sent %d", len(sender.sent))
	}
}

func TestDeliveryFailuresAreNotReturned(t *testing.T) {
	tests := []struct {
		name   string
		sender *testSender
		queue  *testQueue
	}{
		{name: "sender error", sender: &testSender{err: errors.New("smtp down")}},
		{name: "queue error", sender: &testSender{}, queue: &testQueue{err: errors.New("redis down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var queue scheduler.NotificationQueue
			if tt.queue != nil {
				queue = tt.queue
			}
			m := New(tt.sender, queue, testNotificationConfig{}, logger.Discard())
			bus := newBus(t, m)

			err := bus.PublishSync(context.Background(), events.LeadTerminalReached{
				LeadID:        uuid.New(),
				Status:        "lost",
				CustomerEmail: "a@example.com",
			})
			if err != nil {
				t.Fatalf("expected nil, got %v", err)
			}
		})
	}
}

func TestDelivererSkipsUndeliverableAddress(t *testing.T) {
	sender := &testSender{}
	d := NewDeliverer(sender, testNotificationConfig{}, logger.Discard())

	if err := d.HandleInquiryReply(context.Background(), scheduler.InquiryReplyPayload{CustomerEmail: "not-an-email"}); err != nil {
		t.Fatalf(errUnexpected, err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no email, got %d", len(sender.sent))
	}
}

func TestDelivererPropagatesSenderErrorForRetry(t *testing.T) {
	boom := errors.New("smtp down")
	d := NewDeliverer(&testSender{err: boom}, testNotificationConfig{}, logger.Discard())

	err := d.HandleLeadTerminal(context.Background(), scheduler.LeadTerminalPayload{CustomerEmail: "a@example.com"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected sender error, got %v", err)
	}
}
