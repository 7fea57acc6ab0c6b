package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"share2care/internal/ports/output"
)

// Metrics exports engine activity to Prometheus.
type Metrics struct {
	refreshDuration *prometheus.HistogramVec
	ticksDropped    *prometheus.CounterVec
	eligibility     *prometheus.CounterVec
	userActions     *prometheus.CounterVec
}

var _ output.Metrics = (*Metrics)(nil)

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		refreshDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "share2care_board_refresh_duration_seconds",
				Help:    "Duration of board refreshes",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"result"},
		),
		ticksDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "share2care_scheduler_ticks_dropped_total",
				Help: "Scheduler ticks dropped because the previous run was still in flight",
			},
			[]string{"task"},
		),
		eligibility: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "share2care_eligibility_queries_total",
				Help: "Review eligibility queries by result",
			},
			[]string{"result"},
		),
		userActions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "share2care_user_actions_total",
				Help: "Join and review actions by result",
			},
			[]string{"action", "result"},
		),
	}
}

func (m *Metrics) ObserveRefresh(result string, took time.Duration) {
	m.refreshDuration.WithLabelValues(result).Observe(took.Seconds())
}

func (m *Metrics) TickDropped(task string) {
	m.ticksDropped.WithLabelValues(task).Inc()
}

func (m *Metrics) EligibilityQuery(result string) {
	m.eligibility.WithLabelValues(result).Inc()
}

func (m *Metrics) UserAction(action, result string) {
	m.userActions.WithLabelValues(action, result).Inc()
}
