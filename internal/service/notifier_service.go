package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"contract-review-be/internal/pkg/logger"
	"contract-review-be/internal/pkg/mailer"
	"contract-review-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

type RecipientEligibleNotice struct {
	DocumentId    uuid.UUID `json:"document_id"`
	DocumentTitle string    `json:"document_title"`
	RecipientId   uuid.UUID `json:"recipient_id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	AccessLink    string    `json:"access_link"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type DocumentTerminalNotice struct {
	DocumentId      uuid.UUID `json:"document_id"`
	DocumentTitle   string    `json:"document_title"`
	OwnerId         uuid.UUID `json:"owner_id"`
	Status          string    `json:"status"`
	RecipientEmails []string  `json:"recipient_emails"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// INotifier is fire-and-forget: delivery problems are logged, never
// returned, so they cannot undo committed state.
type INotifier interface {
	RecipientEligible(ctx context.Context, n RecipientEligibleNotice)
	DocumentTerminal(ctx context.Context, n DocumentTerminalNotice)
}

// EventPublisher is satisfied by the NATS publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

const (
	noticeRecipientEligible = "recipient_eligible"
	noticeDocumentTerminal  = "document_terminal"
)

type notificationMessage struct {
	Kind     string                   `json:"kind"`
	Eligible *RecipientEligibleNotice `json:"eligible,omitempty"`
	Terminal *DocumentTerminalNotice  `json:"terminal,omitempty"`
}

type queueNotifier struct {
	publisher message.Publisher
	topicName string
	logger    logger.ILogger
}

func NewQueueNotifier(publisher message.Publisher, topicName string, log logger.ILogger) INotifier {
	return &queueNotifier{
		publisher: publisher,
		topicName: topicName,
		logger:    log,
	}
}

func (n *queueNotifier) RecipientEligible(ctx context.Context, notice RecipientEligibleNotice) {
	n.enqueue(notificationMessage{Kind: noticeRecipientEligible, Eligible: &notice})
}

func (n *queueNotifier) DocumentTerminal(ctx context.Context, notice DocumentTerminalNotice) {
	n.enqueue(notificationMessage{Kind: noticeDocumentTerminal, Terminal: &notice})
}

func (n *queueNotifier) enqueue(m notificationMessage) {
	payload, err := json.Marshal(m)
	if err != nil {
		n.logger.Error("NOTIFIER", "Failed to encode notification", map[string]interface{}{"kind": m.Kind, "error": err.Error()})
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := n.publisher.Publish(n.topicName, msg); err != nil {
		n.logger.Warn("NOTIFIER", "Failed to enqueue notification", map[string]interface{}{"kind": m.Kind, "error": err.Error()})
	}
}

type INotificationConsumer interface {
	Consume(ctx context.Context) error
}

// notificationConsumer drains the in-process queue. With an event bus the
// notices become NATS events and the mail dispatcher picks them up;
// without one, mail goes out directly.
type notificationConsumer struct {
	subscriber message.Subscriber
	topicName  string
	events     EventPublisher
	email      mailer.IEmailService
	logger     logger.ILogger
}

func NewNotificationConsumer(
	subscriber message.Subscriber,
	topicName string,
	eventPublisher EventPublisher,
	email mailer.IEmailService,
	log logger.ILogger,
) INotificationConsumer {
	return &notificationConsumer{
		subscriber: subscriber,
		topicName:  topicName,
		events:     eventPublisher,
		email:      email,
		logger:     log,
	}
}

func (c *notificationConsumer) Consume(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			c.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (c *notificationConsumer) processMessage(ctx context.Context, msg *message.Message) {
	// Delivery is best effort: every message is acked.
	defer msg.Ack()

	var m notificationMessage
	if err := json.Unmarshal(msg.Payload, &m); err != nil {
		c.logger.Error("NOTIFIER", "Dropping undecodable notification", map[string]interface{}{"error": err.Error()})
		return
	}

	event, err := toEvent(m)
	if err != nil {
		c.logger.Error("NOTIFIER", "Dropping notification", map[string]interface{}{"error": err.Error()})
		return
	}

	if c.events != nil {
		err := c.events.Publish(ctx, event)
		if err == nil {
			return
		}
		c.logger.Warn("NOTIFIER", "Event bus publish failed, mailing directly", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}

	if err := DeliverByEmail(c.email, event); err != nil {
		c.logger.Warn("NOTIFIER", "Notification delivery failed", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}

func toEvent(m notificationMessage) (events.BaseEvent, error) {
	switch {
	case m.Kind == noticeRecipientEligible && m.Eligible != nil:
		n := m.Eligible
		return events.BaseEvent{
			Type: events.SignatureRecipientEligible,
			Data: map[string]interface{}{
				"document_id":    n.DocumentId.String(),
				"document_title": n.DocumentTitle,
				"recipient_id":   n.RecipientId.String(),
				"email":          n.Email,
				"name":           n.Name,
				"access_link":    n.AccessLink,
				"expires_at":     n.ExpiresAt.UTC().Format(time.RFC3339),
			},
			OccurredAt: time.Now().UTC(),
		}, nil
	case m.Kind == noticeDocumentTerminal && m.Terminal != nil:
		n := m.Terminal
		emails := make([]interface{}, len(n.RecipientEmails))
		for i, e := range n.RecipientEmails {
			emails[i] = e
		}
		return events.BaseEvent{
			Type: events.SignatureDocumentTerminal,
			Data: map[string]interface{}{
				"document_id":      n.DocumentId.String(),
				"document_title":   n.DocumentTitle,
				"owner_id":         n.OwnerId.String(),
				"status":           n.Status,
				"recipient_emails": emails,
			},
			OccurredAt: n.OccurredAt,
		}, nil
	}
	return events.BaseEvent{}, fmt.Errorf("unknown notification kind %q", m.Kind)
}

// DeliverByEmail sends the e-mail that belongs to a lifecycle event. It is
// shared by the direct path and the NATS mail dispatcher.
func DeliverByEmail(email mailer.IEmailService, event events.Event) error {
	switch event.EventType() {
	case events.SignatureRecipientEligible:
		expiresAt, _ := time.Parse(time.RFC3339, events.StringField(event, "expires_at"))
		return email.SendAccessLink(
			events.StringField(event, "email"),
			events.StringField(event, "name"),
			events.StringField(event, "document_title"),
			events.StringField(event, "access_link"),
			expiresAt,
		)
	case events.SignatureDocumentTerminal:
		raw, _ := event.Payload()["recipient_emails"].([]interface{})
		title := events.StringField(event, "document_title")
		status := events.StringField(event, "status")
		var firstErr error
		for _, v := range raw {
			to, ok := v.(string)
			if !ok || to == "" {
				continue
			}
			if err := email.SendDocumentOutcome(to, title, status); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	return nil
}
