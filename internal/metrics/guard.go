package metrics

import "github.com/prometheus/client_golang/prometheus"

// Consumption-guard Prometheus metrics.
var (
	ConsumptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "creditguard",
			Name:      "consumptions_total",
			Help:      "Guard decisions by outcome source or failure code",
		},
		[]string{"tool", "outcome"},
	)

	DebitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "creditguard",
			Name:      "ledger_debit_duration_seconds",
			Help:      "Wallet ledger debit duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"forced", "status"},
	)

	WalletSpendConfirmations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "creditguard",
			Name:      "wallet_spend_confirmations_total",
			Help:      "Wallet-spend confirmation prompts by decision",
		},
		[]string{"decision"},
	)
)

// RegisterGuardMetrics registers guard metrics with the default registry.
// Called explicitly from the composition root (no init()).
func RegisterGuardMetrics() {
	prometheus.MustRegister(ConsumptionsTotal)
	prometheus.MustRegister(DebitDuration)
	prometheus.MustRegister(WalletSpendConfirmations)
}
