package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/surplusx-backend/internal/bootstrap"
	"github.com/angelmondragon/surplusx-backend/pkg/metrics"
	"github.com/angelmondragon/surplusx-backend/pkg/outbox"
	"github.com/angelmondragon/surplusx-backend/pkg/outbox/registry"
	"github.com/angelmondragon/surplusx-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, bootstrap.Options{Service: serviceName})
	if err != nil {
		bootstrap.Fail(serviceName, err)
	}
	defer rt.Close()

	pubsubClient, err := pubsub.NewClient(ctx, rt.Config.GCP, rt.Config.PubSub, rt.Logger)
	if err != nil {
		rt.Fatal(ctx, "failed to connect pubsub", err)
	}
	rt.OnClose("pubsub", pubsubClient)

	eventRegistry, err := registry.NewEventRegistry(rt.Config.PubSub)
	if err != nil {
		rt.Fatal(ctx, "failed to build event registry", err)
	}

	conn := rt.DB.DB()
	service, err := NewService(ServiceParams{
		Config:        rt.Config,
		Logger:        rt.Logger,
		DB:            rt.DB,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(conn),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(conn),
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		rt.Fatal(ctx, "failed to create outbox publisher", err)
	}

	rt.ServeMetrics(ctx)
	ctx = rt.Context(ctx, map[string]any{"topics": eventRegistry.Topics()})
	rt.Logger.Info(ctx, "outbox.publisher_started")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Fatal(ctx, "outbox publisher stopped unexpectedly", err)
	}
}
