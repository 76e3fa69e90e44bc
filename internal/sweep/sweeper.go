// Package sweep runs the scheduled completion sweeps: periodically checking
// every placement of confirmed and in-production orders so accepted
// placements get promoted and finished placements get marked delivered
// without waiting for a user action.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"admarket/internal/core/domain"
	"admarket/internal/core/port"
)

// Metrics are the sweep counters exported to Prometheus.
type Metrics struct {
	Sweeps          prometheus.Counter
	PlacementsSeen  prometheus.Counter
	PlacementsDone  prometheus.Counter
	RetryableChecks prometheus.Counter
}

// NewMetrics constructs and registers the sweep counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "admarket_sweeps_total",
			Help: "Completed sweep passes.",
		}),
		PlacementsSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "admarket_placements_checked_total",
			Help: "Placement completion checks performed by the sweeper.",
		}),
		PlacementsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "admarket_placements_completed_total",
			Help: "Placements marked delivered by the sweeper.",
		}),
		RetryableChecks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "admarket_checks_retryable_total",
			Help: "Checks that ended in a retryable state (timeout or version conflict).",
		}),
	}
	reg.MustRegister(m.Sweeps, m.PlacementsSeen, m.PlacementsDone, m.RetryableChecks)
	return m
}

// Sweeper drives the completion engine on a fixed interval.
type Sweeper struct {
	orders     port.OrderStore
	completion port.CompletionEngine
	interval   time.Duration
	metrics    *Metrics
	logger     *slog.Logger
}

// NewSweeper wires a sweeper. Metrics may be nil for tests.
func NewSweeper(orders port.OrderStore, completion port.CompletionEngine, interval time.Duration, metrics *Metrics, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		orders:     orders,
		completion: completion,
		interval:   interval,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run sweeps once immediately and then on every tick until the context is
// cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce checks every placement of every confirmed or in-production
// order. Failures on individual orders are logged and skipped; one bad order
// never stalls the sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	orders, err := s.orders.ListOrdersByStatus(ctx, domain.OrderConfirmed, domain.OrderInProduction)
	if err != nil {
		s.logger.Error("sweep: listing orders failed", slog.Any("error", err))
		return
	}

	checked, completed := 0, 0
	for _, order := range orders {
		if ctx.Err() != nil {
			return
		}
		batch := s.completion.CheckAllPlacementsInOrder(ctx, order.ID)
		checked += batch.Checked
		completed += batch.Completed
		s.count(batch)
	}

	if s.metrics != nil {
		s.metrics.Sweeps.Inc()
	}
	s.logger.Info("sweep finished",
		slog.Int("orders", len(orders)),
		slog.Int("placementsChecked", checked),
		slog.Int("placementsCompleted", completed))
}

func (s *Sweeper) count(batch port.BatchCheckResult) {
	if s.metrics == nil {
		return
	}
	s.metrics.PlacementsSeen.Add(float64(batch.Checked))
	s.metrics.PlacementsDone.Add(float64(batch.Completed))
	for _, res := range batch.Results {
		if res.Retryable {
			s.metrics.RetryableChecks.Inc()
		}
	}
}
