// Package metrics exposes Prometheus collectors for a running simulation.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type SimMetrics struct {
	claims           *prometheus.CounterVec
	coinsIssued      prometheus.Counter
	reputationIssued prometheus.Counter
	coinPurchases    prometheus.Counter
	duesPayments     *prometheus.CounterVec
	blacklisted      prometheus.Gauge
	day              prometheus.Gauge
	runs             *prometheus.CounterVec
}

var (
	simOnce     sync.Once
	simRegistry *SimMetrics
)

func Sim() *SimMetrics {
	simOnce.Do(func() {
		simRegistry = newSimMetrics()
		prometheus.MustRegister(simRegistry.collectors()...)
	})
	return simRegistry
}

func newSimMetrics() *SimMetrics {
	return &SimMetrics{
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtoken_claims_total",
			Help: "Recycling claims verified, by result.",
		}, []string{"result"}),
		coinsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtoken_coins_issued_total",
			Help: "Coins granted to customers by accepted claims.",
		}),
		reputationIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtoken_reputation_issued_total",
			Help: "Reputation granted to customers by accepted claims.",
		}),
		coinPurchases: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtoken_coin_purchases_total",
			Help: "Purchases paid with coins.",
		}),
		duesPayments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtoken_dues_payments_total",
			Help: "Dues payments attempted by shops, by result.",
		}, []string{"result"}),
		blacklisted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rtoken_blacklisted_shops",
			Help: "Shops currently blacklisted for missed dues.",
		}),
		day: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rtoken_simulation_day",
			Help: "Last simulated day that finished.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtoken_runs_total",
			Help: "Finished simulation runs, by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *SimMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.claims,
		m.coinsIssued,
		m.reputationIssued,
		m.coinPurchases,
		m.duesPayments,
		m.blacklisted,
		m.day,
		m.runs,
	}
}

// ObserveClaim counts a verified claim. An empty reason means accepted.
func (m *SimMetrics) ObserveClaim(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "accepted"
	}
	m.claims.WithLabelValues(reason).Inc()
}

func (m *SimMetrics) ObserveGrant(coins, reputation float64) {
	if m == nil {
		return
	}
	if coins > 0 {
		m.coinsIssued.Add(coins)
	}
	if reputation > 0 {
		m.reputationIssued.Add(reputation)
	}
}

func (m *SimMetrics) IncCoinPurchase() {
	if m == nil {
		return
	}
	m.coinPurchases.Inc()
}

func (m *SimMetrics) ObserveDuesPayment(ok bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if ok {
		result = "accepted"
	}
	m.duesPayments.WithLabelValues(result).Inc()
}

func (m *SimMetrics) SetBlacklisted(n int) {
	if m == nil {
		return
	}
	m.blacklisted.Set(float64(n))
}

func (m *SimMetrics) SetDay(day int) {
	if m == nil {
		return
	}
	m.day.Set(float64(day))
}

func (m *SimMetrics) ObserveRun(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.runs.WithLabelValues(outcome).Inc()
}
