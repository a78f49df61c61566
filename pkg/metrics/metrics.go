package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Ledger
	LedgerAppends     prometheus.Counter
	LedgerAppendsFail prometheus.Counter
	IntegrityChecks   *prometheus.CounterVec

	// Inventory and prescriptions
	StockAdjustments *prometheus.CounterVec
	Dispenses        *prometheus.CounterVec

	// Outbox
	OutboxEventsProcessed prometheus.Counter
	OutboxEventsFailed    prometheus.Counter
	OutboxQueueSize       prometheus.Gauge
}

// New registers all metrics against the given registerer. Pass
// prometheus.DefaultRegisterer in main, a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LedgerAppends: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_appends_total",
			Help: "Number of entries appended to the ledger",
		}),
		LedgerAppendsFail: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_append_failures_total",
			Help: "Number of ledger appends that failed to commit",
		}),
		IntegrityChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_integrity_checks_total",
			Help: "Number of integrity verifications by result",
		}, []string{"result"}),
		StockAdjustments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_stock_adjustments_total",
			Help: "Number of stock adjustments by entry type and outcome",
		}, []string{"type", "outcome"}),
		Dispenses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prescription_dispenses_total",
			Help: "Number of dispense attempts by outcome",
		}, []string{"outcome"}),
		OutboxEventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "outbox_events_processed_total",
			Help: "Number of outbox events published to the broker",
		}),
		OutboxEventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "outbox_events_failed_total",
			Help: "Number of outbox events that failed to publish",
		}),
		OutboxQueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_queue_size",
			Help: "Pending outbox events at last poll",
		}),
	}
}
