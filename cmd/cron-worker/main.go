package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/surplusx-backend/internal/bootstrap"
	"github.com/angelmondragon/surplusx-backend/internal/cron"
	"github.com/angelmondragon/surplusx-backend/internal/notifications"
	"github.com/angelmondragon/surplusx-backend/pkg/metrics"
	"github.com/angelmondragon/surplusx-backend/pkg/outbox"
)

const serviceName = "cron-worker"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, bootstrap.Options{Service: serviceName, Redis: true})
	if err != nil {
		bootstrap.Fail(serviceName, err)
	}
	defer rt.Close()

	jobMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(rt.Redis, rt.Redis.LockKey("cron"), rt.Config.Cron.LockTTL)
	if err != nil {
		rt.Fatal(ctx, "failed to create cron lock", err)
	}
	registry, err := buildRegistry(rt, jobMetrics)
	if err != nil {
		rt.Fatal(ctx, "failed to register cron jobs", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     rt.Logger,
		Registry:   registry,
		Lock:       lock,
		Metrics:    jobMetrics,
		Interval:   rt.Config.Cron.Interval,
		JobTimeout: rt.Config.Cron.JobTimeout,
	})
	if err != nil {
		rt.Fatal(ctx, "failed to create cron service", err)
	}

	rt.ServeMetrics(ctx)
	ctx = rt.Context(ctx, map[string]any{
		"jobs":     registry.Len(),
		"interval": rt.Config.Cron.Interval.String(),
	})
	rt.Logger.Info(ctx, "cron.started")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Fatal(ctx, "cron worker stopped unexpectedly", err)
	}
}

func buildRegistry(rt *bootstrap.Runtime, jobMetrics *metrics.CronJobMetrics) (*cron.Registry, error) {
	conn := rt.DB.DB()
	params := func(days int) cron.RetentionParams {
		return cron.RetentionParams{Logger: rt.Logger, Metrics: jobMetrics, Days: days}
	}

	outboxJob, err := cron.NewOutboxRetentionJob(params(rt.Config.Cron.OutboxRetentionDays), outbox.NewRepository(conn))
	if err != nil {
		return nil, err
	}
	inboxJob, err := cron.NewNotificationCleanupJob(params(rt.Config.Cron.NotificationRetentionDays), notifications.NewRepository(conn))
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry()
	for _, job := range []cron.Job{outboxJob, inboxJob} {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
