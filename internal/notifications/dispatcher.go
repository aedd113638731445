package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/surplusx-backend/pkg/config"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	"github.com/angelmondragon/surplusx-backend/pkg/logger"
	"github.com/angelmondragon/surplusx-backend/pkg/metrics"
)

// Audience addresses the active members of one organization, optionally
// restricted to a set of roles.
type Audience struct {
	OrganizationID uuid.UUID
	Roles          []enums.MemberRole
}

// Notification is what the workflow hands the dispatcher after a transition
// commits. Recipients are UserIDs plus whoever Audience resolves to.
type Notification struct {
	UserIDs           []uuid.UUID
	Audience          *Audience
	OrganizationID    *uuid.UUID
	Type              enums.NotificationType
	Priority          enums.NotificationPriority
	Title             string
	Message           string
	RelatedEntityType string
	RelatedEntityID   *uuid.UUID
}

// Sink performs the actual delivery of a queued notification.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

const (
	outcomeQueued    = "queued"
	outcomeDropped   = "dropped"
	outcomeDelivered = "delivered"
	outcomeFailed    = "failed"
)

// Dispatcher queues notifications on a bounded channel and delivers them
// from a fixed worker pool. Notify never returns an error to the caller.
type Dispatcher struct {
	sink    Sink
	queue   chan Notification
	workers int
	enqueue time.Duration
	deliver time.Duration
	metrics *metrics.TransferMetrics
	logg    *logger.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewDispatcher(sink Sink, cfg config.DispatcherConfig, m *metrics.TransferMetrics, logg *logger.Logger) (*Dispatcher, error) {
	if sink == nil {
		return nil, errors.New("notification sink required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	deliver := cfg.DeliverTimeout
	if deliver <= 0 {
		deliver = 5 * time.Second
	}
	return &Dispatcher{
		sink:    sink,
		queue:   make(chan Notification, size),
		workers: workers,
		enqueue: cfg.EnqueueTimeout,
		deliver: deliver,
		metrics: m,
		logg:    logg,
	}, nil
}

// Start launches the workers. Deliveries run on a context detached from
// ctx's cancellation so in-flight notifications survive request teardown.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	base := context.WithoutCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(base)
	}
}

// Notify enqueues n, waiting at most the configured enqueue timeout when the
// queue is full. Overflow is dropped and counted.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ctx, n, "dispatcher stopped")
		return
	}

	select {
	case d.queue <- n:
		d.queued()
		return
	default:
	}
	if d.enqueue <= 0 {
		d.drop(ctx, n, "queue full")
		return
	}

	timer := time.NewTimer(d.enqueue)
	defer timer.Stop()
	select {
	case d.queue <- n:
		d.queued()
	case <-timer.C:
		d.drop(ctx, n, "queue full")
	case <-ctx.Done():
		d.drop(ctx, n, "caller context done")
	}
}

// Stop refuses new notifications and waits for queued ones to drain.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for n := range d.queue {
		d.metrics.SetQueueDepth(len(d.queue))
		d.handle(ctx, n)
	}
}

func (d *Dispatcher) handle(ctx context.Context, n Notification) {
	deliverCtx, cancel := context.WithTimeout(ctx, d.deliver)
	defer cancel()

	logCtx := d.logg.WithFields(deliverCtx, fields(n))
	if err := d.sink.Deliver(deliverCtx, n); err != nil {
		d.metrics.ObserveNotify(outcomeFailed)
		d.logg.Error(logCtx, "notification.deliver_failed", err)
		return
	}
	d.metrics.ObserveNotify(outcomeDelivered)
	d.logg.Debug(logCtx, "notification.delivered")
}

func (d *Dispatcher) queued() {
	d.metrics.ObserveNotify(outcomeQueued)
	d.metrics.SetQueueDepth(len(d.queue))
}

func (d *Dispatcher) drop(ctx context.Context, n Notification, reason string) {
	d.metrics.ObserveNotify(outcomeDropped)
	f := fields(n)
	f["reason"] = reason
	d.logg.Warn(d.logg.WithFields(ctx, f), "notification.dropped")
}

func fields(n Notification) map[string]any {
	f := map[string]any{
		"notification_type": string(n.Type),
		"priority":          string(n.Priority),
	}
	if n.RelatedEntityID != nil {
		f["related_entity_id"] = n.RelatedEntityID.String()
	}
	return f
}
