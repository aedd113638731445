package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// TransferMetrics tracks the surplus transfer workflow.
type TransferMetrics struct {
	transitions     *prometheus.CounterVec
	allocated       prometheus.Counter
	ledgerBreaches  prometheus.Counter
	notifyOutcomes  *prometheus.CounterVec
	notifyQueueSize prometheus.Gauge
}

// NewTransferMetrics registers the transfer metrics on the provided registerer.
// A nil registerer yields a no-op collector.
func NewTransferMetrics(reg prometheus.Registerer) *TransferMetrics {
	if reg == nil {
		return &TransferMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transfers",
		Name:      "transitions_total",
		Help:      "Transfer request transitions by resulting status and outcome.",
	}, []string{"status", "outcome"})
	allocated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "allocated_quantity_total",
		Help:      "Quantity moved between organizations by approved transfers.",
	})
	breaches := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "integrity_breaches_total",
		Help:      "Approvals whose rollback failed after a ledger error.",
	})
	notify := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "dispatch_total",
		Help:      "Notification dispatch attempts by outcome.",
	}, []string{"outcome"})
	queue := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "dispatch_queue_depth",
		Help:      "Notifications waiting in the in-process dispatch queue.",
	})
	reg.MustRegister(transitions, allocated, breaches, notify, queue)
	return &TransferMetrics{
		transitions:     transitions,
		allocated:       allocated,
		ledgerBreaches:  breaches,
		notifyOutcomes:  notify,
		notifyQueueSize: queue,
	}
}

// ObserveTransition counts a transition attempt; outcome is "ok" or an error code.
func (m *TransferMetrics) ObserveTransition(status, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status), normalizeLabel(outcome)).Inc()
}

// AddAllocated records quantity moved by an approval.
func (m *TransferMetrics) AddAllocated(qty decimal.Decimal) {
	if m == nil || m.allocated == nil || !qty.IsPositive() {
		return
	}
	m.allocated.Add(qty.InexactFloat64())
}

// IncLedgerBreach counts a failed rollback of an approval transaction.
func (m *TransferMetrics) IncLedgerBreach() {
	if m == nil || m.ledgerBreaches == nil {
		return
	}
	m.ledgerBreaches.Inc()
}

// ObserveNotify counts a dispatcher outcome: queued, dropped, delivered or failed.
func (m *TransferMetrics) ObserveNotify(outcome string) {
	if m == nil || m.notifyOutcomes == nil {
		return
	}
	m.notifyOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// SetQueueDepth reports the dispatcher backlog.
func (m *TransferMetrics) SetQueueDepth(depth int) {
	if m == nil || m.notifyQueueSize == nil {
		return
	}
	m.notifyQueueSize.Set(float64(depth))
}
