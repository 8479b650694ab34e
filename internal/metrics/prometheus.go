// Package metrics exposes wallet operation metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements wallet.MetricsCollector.
type Prometheus struct {
	opDuration   *prometheus.HistogramVec
	opResults    *prometheus.CounterVec
	transactions *prometheus.CounterVec
	volume       *prometheus.CounterVec
	errors       *prometheus.CounterVec
}

// NewPrometheus registers the wallet collectors on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wallet",
			Name:      "operation_duration_seconds",
			Help:      "Duration of wallet operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		opResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Name:      "operations_total",
			Help:      "Wallet operations by result.",
		}, []string{"operation", "result"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Name:      "transactions_total",
			Help:      "Ledger transactions by type and status.",
		}, []string{"type", "status"}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Name:      "transaction_volume",
			Help:      "Sum of transaction amounts by type.",
		}, []string{"type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Name:      "errors_total",
			Help:      "Wallet errors by operation and kind.",
		}, []string{"operation", "kind"}),
	}
	reg.MustRegister(p.opDuration, p.opResults, p.transactions, p.volume, p.errors)
	return p
}

func (p *Prometheus) RecordOperationDuration(op string, d time.Duration) {
	p.opDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (p *Prometheus) RecordOperationResult(op, result string) {
	p.opResults.WithLabelValues(op, result).Inc()
}

func (p *Prometheus) RecordTransaction(txType, status string, amount float64) {
	p.transactions.WithLabelValues(txType, status).Inc()
	if amount > 0 {
		p.volume.WithLabelValues(txType).Add(amount)
	}
}

func (p *Prometheus) RecordError(op, kind string) {
	p.errors.WithLabelValues(op, kind).Inc()
}
