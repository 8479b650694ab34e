package wallet

import (
	"time"

	apperrors "propwallet/internal/errors"
	"propwallet/internal/models"
)

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationDuration(string, time.Duration) {}
func (n *NoopMetricsCollector) RecordOperationResult(string, string)          {}
func (n *NoopMetricsCollector) RecordTransaction(string, string, float64)     {}
func (n *NoopMetricsCollector) RecordError(string, string)                    {}

// track is deferred by every public operation with a pointer to its named error.
func (s *service) track(op string, start time.Time, errp *error) {
	s.metrics.RecordOperationDuration(op, time.Since(start))
	if errp == nil || *errp == nil {
		s.metrics.RecordOperationResult(op, "success")
		return
	}
	s.metrics.RecordOperationResult(op, "error")
	s.metrics.RecordError(op, apperrors.KindOf(*errp).String())
}

func (s *service) recordTx(tx *models.WalletTransaction) {
	amount, _ := tx.Amount.Float64()
	s.metrics.RecordTransaction(string(tx.Type), string(tx.Status), amount)
}
