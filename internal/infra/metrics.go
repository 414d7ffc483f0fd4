package infra

import (
	"net/http"

	"grid_go/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Metrics holds the grid loop's Prometheus collectors on a private registry.
// It satisfies the runtime's Observer interface.
type Metrics struct {
	registry *prometheus.Registry

	ticks     prometheus.Counter
	skipped   *prometheus.CounterVec
	orders    *prometheus.CounterVec
	fills     *prometheus.CounterVec
	overSells prometheus.Counter
	errors    prometheus.Counter

	halted      prometheus.Gauge
	realized    prometheus.Gauge
	unrealized  prometheus.Gauge
	connections prometheus.Gauge
}

// NewMetrics creates and registers all collectors. symbol is attached as a
// constant label.
func NewMetrics(symbol string) *Metrics {
	labels := prometheus.Labels{"symbol": symbol}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "grid_ticks_total",
			Help:        "Quotes processed by the grid loop",
			ConstLabels: labels,
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "grid_ticks_skipped_total",
			Help:        "Ticks skipped, by reason",
			ConstLabels: labels,
		}, []string{"reason"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "grid_orders_total",
			Help:        "Simulated orders placed, by side",
			ConstLabels: labels,
		}, []string{"side"}),
		fills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "grid_fills_total",
			Help:        "Simulated fills, by side",
			ConstLabels: labels,
		}, []string{"side"}),
		overSells: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "grid_oversell_total",
			Help:        "Sells clipped to the held quantity",
			ConstLabels: labels,
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "grid_feed_errors_total",
			Help:        "Quote feed errors",
			ConstLabels: labels,
		}),
		halted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "grid_halted",
			Help:        "1 while price is outside the grid",
			ConstLabels: labels,
		}),
		realized: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "grid_realized_pnl",
			Help:        "Realized PnL of paired trades",
			ConstLabels: labels,
		}),
		unrealized: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "grid_unrealized_pnl",
			Help:        "Unrealized PnL of held inventory at level prices",
			ConstLabels: labels,
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "grid_feed_connections",
			Help:        "Open quote feed connections",
			ConstLabels: labels,
		}),
	}
	m.registry.MustRegister(
		m.ticks, m.skipped, m.orders, m.fills, m.overSells, m.errors,
		m.halted, m.realized, m.unrealized, m.connections,
	)
	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) TickProcessed() { m.ticks.Inc() }

func (m *Metrics) TickSkipped(reason string) { m.skipped.WithLabelValues(reason).Inc() }

func (m *Metrics) OrderPlaced(side domain.Side) { m.orders.WithLabelValues(string(side)).Inc() }

func (m *Metrics) OrderFilled(side domain.Side) { m.fills.WithLabelValues(string(side)).Inc() }

func (m *Metrics) OverSell() { m.overSells.Inc() }

// RecordError records a feed error.
func (m *Metrics) RecordError() { m.errors.Inc() }

// SetHalted sets the halt gauge (true = halted).
func (m *Metrics) SetHalted(halted bool) {
	if halted {
		m.halted.Set(1)
	} else {
		m.halted.Set(0)
	}
}

// SetPnL publishes the PnL gauges.
func (m *Metrics) SetPnL(realized, unrealized decimal.Decimal) {
	m.realized.Set(realized.InexactFloat64())
	m.unrealized.Set(unrealized.InexactFloat64())
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() { m.connections.Inc() }

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() { m.connections.Dec() }
