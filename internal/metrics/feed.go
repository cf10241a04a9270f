package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// FeedMetrics tracks live feed subscribers per transport ("sse", "ws").
type FeedMetrics struct {
	connections *prometheus.CounterVec
	active      *prometheus.GaugeVec
	sent        *prometheus.CounterVec
}

var (
	feedOnce     sync.Once
	feedRegistry *FeedMetrics
)

func Feed() *FeedMetrics {
	feedOnce.Do(func() {
		feedRegistry = newFeedMetrics()
		prometheus.MustRegister(feedRegistry.connections, feedRegistry.active, feedRegistry.sent)
	})
	return feedRegistry
}

func newFeedMetrics() *FeedMetrics {
	return &FeedMetrics{
		connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtoken_feed_connections_total",
			Help: "Live feed connections opened, by transport.",
		}, []string{"transport"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtoken_feed_connections_active",
			Help: "Live feed connections currently open, by transport.",
		}, []string{"transport"}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtoken_feed_events_sent_total",
			Help: "Feed events written to subscribers, by transport.",
		}, []string{"transport"}),
	}
}

// Connected records a new subscriber and returns the matching disconnect.
func (m *FeedMetrics) Connected(transport string) func() {
	if m == nil {
		return func() {}
	}
	m.connections.WithLabelValues(transport).Inc()
	m.active.WithLabelValues(transport).Inc()
	return func() { m.active.WithLabelValues(transport).Dec() }
}

func (m *FeedMetrics) Sent(transport string) {
	if m == nil {
		return
	}
	m.sent.WithLabelValues(transport).Inc()
}
