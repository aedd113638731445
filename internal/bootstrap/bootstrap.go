// Package bootstrap brings up the pieces every binary shares: environment,
// config, logger, database and, on request, redis. Resources are released
// in reverse order by Close.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/surplusx-backend/pkg/config"
	"github.com/angelmondragon/surplusx-backend/pkg/db"
	"github.com/angelmondragon/surplusx-backend/pkg/instance"
	"github.com/angelmondragon/surplusx-backend/pkg/logger"
	"github.com/angelmondragon/surplusx-backend/pkg/migrate"
	"github.com/angelmondragon/surplusx-backend/pkg/redis"
)

type Options struct {
	// Service names the binary in logs and in config.Service.Kind.
	Service string
	// Redis connects the shared redis client.
	Redis bool
	// SkipAutoMigrate disables the dev-only goose run on boot.
	SkipAutoMigrate bool
}

type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client

	closers []closer
}

type closer struct {
	name string
	c    io.Closer
}

// Start loads .env when present, then config, then opens each dependency.
// On failure anything already opened is closed before returning.
func Start(ctx context.Context, opts Options) (*Runtime, error) {
	boot := logger.New(logger.Options{ServiceName: opts.Service})
	if err := godotenv.Load(); err != nil {
		boot.Debug(ctx, "bootstrap.dotenv_missing")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = opts.Service

	rt := &Runtime{
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: opts.Service,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
			Format:      cfg.App.LogFormat,
		}),
	}

	if err := rt.open(ctx, opts); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) open(ctx context.Context, opts Options) error {
	dbClient, err := db.New(ctx, rt.Config.DB, rt.Logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	rt.DB = dbClient
	rt.OnClose("database", dbClient)

	if !opts.SkipAutoMigrate {
		if err := migrate.MaybeRunDev(ctx, rt.Config, rt.Logger, dbClient); err != nil {
			return fmt.Errorf("dev migrations: %w", err)
		}
	}

	if opts.Redis {
		redisClient, err := redis.New(ctx, rt.Config.Redis, rt.Logger)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		rt.Redis = redisClient
		rt.OnClose("redis", redisClient)
	}
	return nil
}

// OnClose registers c to be closed by Close, after anything registered later.
func (rt *Runtime) OnClose(name string, c io.Closer) {
	rt.closers = append(rt.closers, closer{name: name, c: c})
}

// Close releases every registered resource and reports all failures.
func (rt *Runtime) Close() error {
	var errs error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		cl := rt.closers[i]
		if err := cl.c.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", cl.name, err))
		}
	}
	rt.closers = nil
	if errs != nil && rt.Logger != nil {
		rt.Logger.Error(context.Background(), "bootstrap.close_failed", errs)
	}
	return errs
}

// Context tags ctx with the fields every binary logs on startup.
func (rt *Runtime) Context(ctx context.Context, extra map[string]any) context.Context {
	fields := map[string]any{
		"env":         rt.Config.App.Env,
		"serviceKind": rt.Config.Service.Kind,
		"instance":    instance.GetID(),
	}
	for k, v := range extra {
		fields[k] = v
	}
	return rt.Logger.WithFields(ctx, fields)
}

// Fatal logs err, releases resources and exits non-zero.
func (rt *Runtime) Fatal(ctx context.Context, msg string, err error) {
	rt.Logger.Error(ctx, msg, err)
	rt.Close()
	os.Exit(1)
}

// ServeMetrics exposes the default Prometheus registry on
// Config.App.MetricsAddr until ctx ends. It is a no-op without an address.
func (rt *Runtime) ServeMetrics(ctx context.Context) {
	addr := rt.Config.App.MetricsAddr
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		logCtx := rt.Logger.WithField(ctx, "metrics_addr", addr)
		rt.Logger.Info(logCtx, "metrics.listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.Logger.Error(logCtx, "metrics.server_failed", err)
		}
	}()
}

// Fail is for errors before a Runtime exists.
func Fail(service string, err error) {
	logger.New(logger.Options{ServiceName: service}).Error(context.Background(), "bootstrap.failed", err)
	os.Exit(1)
}
