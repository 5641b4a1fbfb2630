package service

import (
	"context"
	"fmt"

	"contract-review-be/internal/pkg/logger"
	"contract-review-be/internal/pkg/mailer"
	"contract-review-be/pkg/events"
	pktNats "contract-review-be/pkg/nats"
)

// MailDispatcher turns lifecycle events on the NATS bus into e-mails.
type MailDispatcher struct {
	subscriber *pktNats.Subscriber
	email      mailer.IEmailService
	logger     logger.ILogger
}

func NewMailDispatcher(subscriber *pktNats.Subscriber, email mailer.IEmailService, log logger.ILogger) *MailDispatcher {
	return &MailDispatcher{subscriber: subscriber, email: email, logger: log}
}

func (d *MailDispatcher) Start() error {
	subscriptions := map[string]string{
		events.SignatureRecipientEligible: "access-link-mailer",
		events.SignatureDocumentTerminal:  "outcome-mailer",
	}
	for eventType, durable := range subscriptions {
		subject := fmt.Sprintf("events.%s", eventType)
		if err := d.subscriber.Subscribe(subject, durable, d.handle); err != nil {
			return err
		}
	}
	return nil
}

func (d *MailDispatcher) handle(ctx context.Context, event events.Event) error {
	if err := DeliverByEmail(d.email, event); err != nil {
		d.logger.Warn("MAILER", "Mail delivery failed, will retry", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
		return err
	}
	return nil
}
