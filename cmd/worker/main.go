package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/surplusx-backend/internal/bootstrap"
	"github.com/angelmondragon/surplusx-backend/internal/notifications"
	"github.com/angelmondragon/surplusx-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/surplusx-backend/pkg/pubsub"
)

const serviceName = "worker"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, bootstrap.Options{Service: serviceName, Redis: true})
	if err != nil {
		bootstrap.Fail(serviceName, err)
	}
	defer rt.Close()

	pubsubClient, err := pubsub.NewClient(ctx, rt.Config.GCP, rt.Config.PubSub, rt.Logger)
	if err != nil {
		rt.Fatal(ctx, "failed to connect pubsub", err)
	}
	rt.OnClose("pubsub", pubsubClient)

	claims, err := idempotency.NewClaims(rt.Redis, rt.Config.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		rt.Fatal(ctx, "failed to create event claims", err)
	}
	consumer, err := notifications.NewConsumer(
		notifications.NewRepository(rt.DB.DB()),
		pubsubClient.NotificationSubscription(),
		claims,
		rt.Logger,
	)
	if err != nil {
		rt.Fatal(ctx, "failed to create notification consumer", err)
	}

	service, err := NewService(ServiceParams{
		Logger:               rt.Logger,
		DB:                   rt.DB,
		Redis:                rt.Redis,
		PubSub:               pubsubClient,
		NotificationConsumer: consumer,
	})
	if err != nil {
		rt.Fatal(ctx, "failed to create worker", err)
	}

	rt.ServeMetrics(ctx)
	ctx = rt.Context(ctx, map[string]any{"subscription": rt.Config.PubSub.NotificationSubscription})
	rt.Logger.Info(ctx, "worker.started")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Fatal(ctx, "worker stopped unexpectedly", err)
	}
}
