package notifications

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	"github.com/angelmondragon/surplusx-backend/pkg/logger"
	"github.com/angelmondragon/surplusx-backend/pkg/outbox"
	"github.com/angelmondragon/surplusx-backend/pkg/outbox/payloads"
)

const inboxConsumer = "notification-inbox"

type inboxWriter interface {
	Insert(ctx context.Context, rows ...models.Notification) (int64, error)
}

type claimer interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer turns notification_requested events into one inbox row per recipient.
type Consumer struct {
	repo         inboxWriter
	subscription *pubsub.Subscriber
	idempotency  claimer
	logg         *logger.Logger
}

// NewConsumer builds the inbox consumer. subscription may be nil when only
// Handle is used.
func NewConsumer(repo inboxWriter, subscription *pubsub.Subscriber, manager claimer, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("notification subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.Handle(ctx, msg.ID, msg.Attributes, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Handle processes one delivery and reports whether it should be acked.
// Malformed messages are acked so they do not redeliver forever.
func (c *Consumer) Handle(ctx context.Context, messageID string, attrs map[string]string, data []byte) bool {
	eventType := attrs["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventNotificationRequested) {
		c.logg.Debug(logCtx, "notification.skip_event")
		return true
	}

	envelope, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "notification.decode_envelope_failed", err)
		return true
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "notification.invalid_event_id", err)
		return true
	}
	var payload payloads.NotificationRequestedEvent
	if err := envelope.DecodeData(&payload); err != nil {
		c.logg.Error(logCtx, "notification.decode_payload_failed", err)
		return true
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	first, err := c.idempotency.Claim(ctx, inboxConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "notification.idempotency_failed", err)
		return false
	}
	if !first {
		c.logg.Info(logCtx, "notification.already_processed")
		return true
	}

	if err := c.write(ctx, eventID, payload); err != nil {
		c.logg.Error(logCtx, "notification.inbox_write_failed", err)
		if releaseErr := c.idempotency.Release(ctx, inboxConsumer, eventID); releaseErr != nil {
			c.logg.Error(logCtx, "notification.idempotency_release_failed", releaseErr)
		}
		return false
	}

	c.logg.Info(c.logg.WithField(logCtx, "recipients", len(payload.UserIDs)), "notification.inbox_written")
	return true
}

// write stores each recipient's row independently and reports every
// failure. Rows already present for the event are skipped on retry.
func (c *Consumer) write(ctx context.Context, eventID uuid.UUID, payload payloads.NotificationRequestedEvent) error {
	var relatedType *string
	if payload.RelatedEntityType != "" {
		v := payload.RelatedEntityType
		relatedType = &v
	}

	var errs error
	for _, userID := range payload.UserIDs {
		row := models.Notification{
			EventID:           eventID,
			UserID:            userID,
			OrganizationID:    payload.OrganizationID,
			Type:              payload.Type,
			Priority:          payload.Priority,
			Title:             payload.Title,
			Message:           payload.Message,
			RelatedEntityType: relatedType,
			RelatedEntityID:   payload.RelatedEntityID,
		}
		if _, err := c.repo.Insert(ctx, row); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("user %s: %w", userID, err))
		}
	}
	return errs
}
