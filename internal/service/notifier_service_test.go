package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"contract-review-be/internal/pkg/logger"
	"contract-review-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, kind, title, detail string
}

type fakeEmail struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeEmail) SendAccessLink(toEmail, recipientName, documentTitle, link string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to: toEmail, kind: "access", title: documentTitle, detail: link})
	return nil
}

func (f *fakeEmail) SendDocumentOutcome(toEmail, documentTitle, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to: toEmail, kind: "outcome", title: documentTitle, detail: status})
	return nil
}

func (f *fakeEmail) all() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

type fakeBus struct {
	mu     sync.Mutex
	fail   bool
	events []events.Event
}

func (b *fakeBus) Publish(ctx context.Context, e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("nats: no responders")
	}
	b.events = append(b.events, e)
	return nil
}

func (b *fakeBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func startNotifications(t *testing.T, bus EventPublisher, email *fakeEmail) INotifier {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := logger.NewNopLogger()
	consumer := NewNotificationConsumer(pubSub, "notifications", bus, email, log)
	require.NoError(t, consumer.Consume(ctx))
	return NewQueueNotifier(pubSub, "notifications", log)
}

func TestNotifications_DirectMailWithoutBus(t *testing.T) {
	email := &fakeEmail{}
	notifier := startNotifications(t, nil, email)

	notifier.RecipientEligible(context.Background(), RecipientEligibleNotice{
		DocumentId:    uuid.New(),
		DocumentTitle: "MSA",
		RecipientId:   uuid.New(),
		Email:         "r1@example.com",
		Name:          "R1",
		AccessLink:    "https://app.example.com/sign?token=abc",
		ExpiresAt:     epoch.Add(72 * time.Hour),
	})
	notifier.DocumentTerminal(context.Background(), DocumentTerminalNotice{
		DocumentId:      uuid.New(),
		DocumentTitle:   "MSA",
		Status:          "declined",
		RecipientEmails: []string{"r1@example.com", "r2@example.com"},
		OccurredAt:      epoch,
	})

	require.Eventually(t, func() bool { return len(email.all()) == 3 }, time.Second, 10*time.Millisecond)
	sent := email.all()
	assert.Equal(t, sentMail{to: "r1@example.com", kind: "access", title: "MSA", detail: "https://app.example.com/sign?token=abc"}, sent[0])
	assert.Equal(t, "declined", sent[1].detail)
	assert.Equal(t, "r2@example.com", sent[2].to)
}

func TestNotifications_PreferBusAndFallBackToMail(t *testing.T) {
	bus := &fakeBus{}
	email := &fakeEmail{}
	notifier := startNotifications(t, bus, email)

	notice := DocumentTerminalNotice{DocumentId: uuid.New(), DocumentTitle: "NDA", Status: "completed", RecipientEmails: []string{"a@example.com"}}
	notifier.DocumentTerminal(context.Background(), notice)
	require.Eventually(t, func() bool { return bus.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Empty(t, email.all())

	bus.mu.Lock()
	bus.fail = true
	bus.mu.Unlock()
	notifier.DocumentTerminal(context.Background(), notice)
	require.Eventually(t, func() bool { return len(email.all()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestToEvent(t *testing.T) {
	docId := uuid.New()
	e, err := toEvent(notificationMessage{Kind: noticeRecipientEligible, Eligible: &RecipientEligibleNotice{
		DocumentId: docId,
		Email:      "r@example.com",
		ExpiresAt:  epoch,
	}})
	require.NoError(t, err)
	assert.Equal(t, events.SignatureRecipientEligible, e.EventType())
	assert.Equal(t, docId.String(), events.StringField(e, "document_id"))
	assert.Equal(t, "2026-03-02T09:00:00Z", events.StringField(e, "expires_at"))

	_, err = toEvent(notificationMessage{Kind: "bogus"})
	assert.Error(t, err)
}
