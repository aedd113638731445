package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/surplusx-backend/internal/repo"
	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/pagination"
)

// Repository persists the per-user inbox.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

type inboxQuery struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type readOutcome int

const (
	readMissing readOutcome = iota
	readMarked
	readAlready
)

// Insert stores rows, ignoring any (event_id, user_id) pair already present
// so a redelivered event cannot duplicate an entry. It returns the number of
// rows actually written.
func (r *Repository) Insert(ctx context.Context, rows ...models.Notification) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&rows)
	return res.RowsAffected, res.Error
}

func (r *Repository) inbox(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.DB(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
}

// Page returns one page of the inbox, newest first, and the cursor of the
// following page when there is one.
func (r *Repository) Page(ctx context.Context, q inboxQuery) ([]models.Notification, string, error) {
	query := r.inbox(ctx, q.UserID)
	if q.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if c := q.Cursor; c != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
	}

	var rows []models.Notification
	err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(q.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}
	page, next := pagination.Trim(rows, q.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (r *Repository) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.inbox(ctx, userID).Where("read_at IS NULL").Count(&n).Error
	return n, err
}

// MarkRead stamps one notification owned by userID. A notification owned by
// someone else is reported as missing.
func (r *Repository) MarkRead(ctx context.Context, userID, id uuid.UUID, at time.Time) (readOutcome, error) {
	res := r.inbox(ctx, userID).
		Where("id = ? AND read_at IS NULL", id).
		UpdateColumn("read_at", at)
	if res.Error != nil {
		return readMissing, res.Error
	}
	if res.RowsAffected > 0 {
		return readMarked, nil
	}

	var n int64
	if err := r.inbox(ctx, userID).Where("id = ?", id).Count(&n).Error; err != nil {
		return readMissing, err
	}
	if n == 0 {
		return readMissing, nil
	}
	return readAlready, nil
}

func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res := r.inbox(ctx, userID).Where("read_at IS NULL").UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

// DeleteReadBefore removes notifications read before cutoff. Unread rows
// are kept regardless of age.
func (r *Repository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
