package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for dispatched messages and the
// provider calls they make.
type Metrics struct {
	messages         *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	menuClicks       *prometheus.CounterVec
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// Default returns the instance registered with the global registry.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics registers the collectors with reg and panics on duplicate
// registration.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	messages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wxmp",
			Subsystem: "dispatch",
			Name:      "messages_total",
			Help:      "Messages handled by the dispatcher, by type and outcome.",
		},
		[]string{"type", "outcome"},
	)
	providerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wxmp",
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound calls to AI and image providers.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "kind"},
	)
	menuClicks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wxmp",
			Subsystem: "menu",
			Name:      "clicks_total",
			Help:      "Context menu clicks, by action and whether a tab received them.",
		},
		[]string{"action", "delivered"},
	)
	reg.MustRegister(messages, providerDuration, menuClicks)
	return &Metrics{
		messages:         messages,
		providerDuration: providerDuration,
		menuClicks:       menuClicks,
	}
}

func (m *Metrics) ObserveMessage(messageType string, outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(messageType, outcome).Inc()
}

func (m *Metrics) ObserveProvider(provider string, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.providerDuration.WithLabelValues(provider, kind).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveMenuClick(action string, delivered bool) {
	if m == nil {
		return
	}
	label := "false"
	if delivered {
		label = "true"
	}
	m.menuClicks.WithLabelValues(action, label).Inc()
}
