package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/surplusx-backend/api/routes"
	"github.com/angelmondragon/surplusx-backend/internal/allocation"
	"github.com/angelmondragon/surplusx-backend/internal/bootstrap"
	"github.com/angelmondragon/surplusx-backend/internal/materials"
	"github.com/angelmondragon/surplusx-backend/internal/notifications"
	"github.com/angelmondragon/surplusx-backend/internal/organizations"
	"github.com/angelmondragon/surplusx-backend/internal/surplus"
	"github.com/angelmondragon/surplusx-backend/internal/transfers"
	"github.com/angelmondragon/surplusx-backend/pkg/env"
	"github.com/angelmondragon/surplusx-backend/pkg/metrics"
	"github.com/angelmondragon/surplusx-backend/pkg/outbox"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()
	rt, err := bootstrap.Start(ctx, bootstrap.Options{Service: "api", Redis: true})
	if err != nil {
		bootstrap.Fail("api", err)
	}
	defer rt.Close()
	logg := rt.Logger

	conn := rt.DB.DB()
	directory := organizations.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	transferMetrics := metrics.NewTransferMetrics(prometheus.DefaultRegisterer)

	materialsService, err := materials.NewService(materials.NewRepository(conn), rt.DB, directory, allocation.NewRepository(conn), emitter, logg)
	if err != nil {
		rt.Fatal(ctx, "failed to create materials service", err)
	}
	surplusIndex, err := surplus.NewIndex(conn, directory)
	if err != nil {
		rt.Fatal(ctx, "failed to create surplus index", err)
	}

	sink, err := notifications.NewOutboxSink(rt.DB, emitter, directory)
	if err != nil {
		rt.Fatal(ctx, "failed to create notification sink", err)
	}
	dispatcher, err := notifications.NewDispatcher(sink, rt.Config.Dispatcher, transferMetrics, logg)
	if err != nil {
		rt.Fatal(ctx, "failed to create notification dispatcher", err)
	}
	dispatcher.Start(ctx)

	transfersService, err := transfers.NewService(
		transfers.NewRepository(conn),
		rt.DB,
		directory,
		allocation.NewLedger(logg),
		emitter,
		dispatcher,
		transferMetrics,
		logg,
	)
	if err != nil {
		rt.Fatal(ctx, "failed to create transfers service", err)
	}
	inbox, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		rt.Fatal(ctx, "failed to create notifications service", err)
	}

	addr := ":" + env.First(rt.Config.App.Port, "PORT")
	ctx = rt.Context(ctx, map[string]any{"addr": addr})
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			rt.Config,
			logg,
			rt.DB,
			rt.Redis,
			promhttp.Handler(),
			materialsService,
			surplusIndex,
			transfersService,
			inbox,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "api.listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = dispatcher.Stop(ctx)
			rt.Fatal(ctx, "api server stopped unexpectedly", err)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "api.shutting_down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "api.shutdown_failed", err)
	}
	// no handler is running, so nothing can enqueue past this point
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logg.Warn(ctx, "api.dispatcher_not_drained")
	}
	logg.Info(ctx, "api.stopped")
}
