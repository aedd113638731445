package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/surplusx-backend/pkg/logger"
	"github.com/angelmondragon/surplusx-backend/pkg/metrics"
)

const (
	outboxRetentionDays       = 30
	notificationRetentionDays = 30
)

// outboxPruner deletes published outbox rows older than cutoff.
type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// inboxPruner deletes read notifications older than cutoff.
type inboxPruner interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionParams configure a retention job.
type RetentionParams struct {
	Logger  *logger.Logger
	Metrics *metrics.CronJobMetrics
	Days    int
}

// NewOutboxRetentionJob prunes outbox rows that were published more than
// Days ago. Unpublished rows are never touched.
func NewOutboxRetentionJob(params RetentionParams, repo outboxPruner) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	return newRetentionJob("outbox-retention", params, outboxRetentionDays, repo.DeletePublishedBefore)
}

// NewNotificationCleanupJob prunes notifications that were read more than
// Days ago.
func NewNotificationCleanupJob(params RetentionParams, repo inboxPruner) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return newRetentionJob("notification-cleanup", params, notificationRetentionDays, repo.DeleteReadBefore)
}

type retentionJob struct {
	name    string
	logg    *logger.Logger
	metrics *metrics.CronJobMetrics
	days    int
	prune   func(ctx context.Context, cutoff time.Time) (int64, error)
	now     func() time.Time
}

func newRetentionJob(name string, params RetentionParams, fallbackDays int, prune func(context.Context, time.Time) (int64, error)) (*retentionJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	days := params.Days
	if days <= 0 {
		days = fallbackDays
	}
	return &retentionJob{
		name:    name,
		logg:    params.Logger,
		metrics: params.Metrics,
		days:    days,
		prune:   prune,
		now:     time.Now,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.days) * 24 * time.Hour)
	deleted, err := j.prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	j.metrics.AddAffected(j.name, deleted)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "cron.retention_complete")
	return nil
}
