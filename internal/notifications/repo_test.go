package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/internal/repo/repotest"
	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	"github.com/angelmondragon/surplusx-backend/pkg/pagination"
)

func seedInbox(t *testing.T, repo *Repository, userID uuid.UUID, n int) []models.Notification {
	t.Helper()
	start := time.Now().UTC().Add(-time.Hour)
	rows := make([]models.Notification, n)
	for i := range rows {
		rows[i] = models.Notification{
			EventID:   uuid.New(),
			UserID:    userID,
			Type:      enums.NotificationTypeSystem,
			Priority:  enums.NotificationPriorityLow,
			Title:     "Inventory update",
			Message:   "A material changed",
			CreatedAt: start.Add(time.Duration(i) * time.Minute),
		}
	}
	written, err := repo.Insert(context.Background(), rows...)
	require.NoError(t, err)
	require.EqualValues(t, n, written)
	return rows
}

func TestRepositoryInsertSkipsRedelivery(t *testing.T) {
	repo := NewRepository(repotest.Open(t))
	ctx := context.Background()
	rows := seedInbox(t, repo, uuid.New(), 1)

	dup := rows[0]
	dup.ID = uuid.Nil
	written, err := repo.Insert(ctx, dup)
	require.NoError(t, err)
	assert.Zero(t, written)

	written, err = repo.Insert(ctx)
	require.NoError(t, err)
	assert.Zero(t, written)
}

func TestRepositoryPageWalksNewestFirst(t *testing.T) {
	repo := NewRepository(repotest.Open(t))
	ctx := context.Background()

	user := uuid.New()
	seedInbox(t, repo, user, 3)
	seedInbox(t, repo, uuid.New(), 2)

	first, next, err := repo.Page(ctx, inboxQuery{UserID: user, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotEmpty(t, next)
	assert.True(t, first[0].CreatedAt.After(first[1].CreatedAt))

	cursor, err := pagination.ParseCursor(next)
	require.NoError(t, err)
	rest, next, err := repo.Page(ctx, inboxQuery{UserID: user, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Empty(t, next)
	assert.NotContains(t, []uuid.UUID{first[0].ID, first[1].ID}, rest[0].ID)
}

func TestRepositoryMarkReadOutcomes(t *testing.T) {
	repo := NewRepository(repotest.Open(t))
	ctx := context.Background()
	now := time.Now().UTC()

	user := uuid.New()
	rows := seedInbox(t, repo, user, 2)

	outcome, err := repo.MarkRead(ctx, uuid.New(), rows[0].ID, now)
	require.NoError(t, err)
	assert.Equal(t, readMissing, outcome)

	outcome, err = repo.MarkRead(ctx, user, rows[0].ID, now)
	require.NoError(t, err)
	assert.Equal(t, readMarked, outcome)

	outcome, err = repo.MarkRead(ctx, user, rows[0].ID, now)
	require.NoError(t, err)
	assert.Equal(t, readAlready, outcome)

	unread, _, err := repo.Page(ctx, inboxQuery{UserID: user, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, rows[1].ID, unread[0].ID)

	count, err := repo.UnreadCount(ctx, user)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	marked, err := repo.MarkAllRead(ctx, user, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, marked)

	count, err = repo.UnreadCount(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRepositoryDeleteReadBeforeKeepsUnread(t *testing.T) {
	conn := repotest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := uuid.New()
	seedInbox(t, repo, user, 3)
	_, err := repo.MarkAllRead(ctx, user, time.Now().UTC().Add(-48*time.Hour))
	require.NoError(t, err)
	seedInbox(t, repo, user, 1)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		deleted, err := repo.WithTx(tx).DeleteReadBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
		assert.EqualValues(t, 3, deleted)
		return err
	}))

	remaining, _, err := repo.Page(ctx, inboxQuery{UserID: user})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
