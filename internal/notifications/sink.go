package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/internal/organizations"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	"github.com/angelmondragon/surplusx-backend/pkg/outbox"
	"github.com/angelmondragon/surplusx-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OutboxSink resolves recipients and records a notification_requested event
// in its own short transaction. The worker turns the event into inbox rows.
type OutboxSink struct {
	tx        txRunner
	outbox    outboxEmitter
	directory organizations.Directory
}

func NewOutboxSink(tx txRunner, emitter outboxEmitter, directory organizations.Directory) (*OutboxSink, error) {
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if emitter == nil {
		return nil, errors.New("outbox emitter required")
	}
	if directory == nil {
		return nil, errors.New("organization directory required")
	}
	return &OutboxSink{tx: tx, outbox: emitter, directory: directory}, nil
}

func (s *OutboxSink) Deliver(ctx context.Context, n Notification) error {
	if !n.Type.IsValid() {
		return fmt.Errorf("invalid notification type %q", n.Type)
	}
	recipients, err := s.recipients(ctx, n)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	priority := n.Priority
	if !priority.IsValid() {
		priority = enums.NotificationPriorityNormal
	}
	orgID := n.OrganizationID
	if orgID == nil && n.Audience != nil {
		id := n.Audience.OrganizationID
		orgID = &id
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   uuid.New(),
			Data: payloads.NotificationRequestedEvent{
				UserIDs:           recipients,
				OrganizationID:    orgID,
				Type:              n.Type,
				Priority:          priority,
				Title:             n.Title,
				Message:           n.Message,
				RelatedEntityType: n.RelatedEntityType,
				RelatedEntityID:   n.RelatedEntityID,
			},
		})
	})
}

// recipients merges explicit user ids with the audience, keeping first-seen order.
func (s *OutboxSink) recipients(ctx context.Context, n Notification) ([]uuid.UUID, error) {
	ids := append([]uuid.UUID(nil), n.UserIDs...)
	if n.Audience != nil {
		members, err := s.directory.MemberUserIDs(ctx, n.Audience.OrganizationID, n.Audience.Roles...)
		if err != nil {
			return nil, fmt.Errorf("resolve audience: %w", err)
		}
		ids = append(ids, members...)
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
