package wallet

import (
	"context"
	"errors"
	"time"

	apperrors "propwallet/internal/errors"
	"propwallet/internal/models"
	"propwallet/internal/services/payment"

	"go.uber.org/zap"
)

// ReconcileStale asks the processor about deposits still pending and
// withdrawals still processing after olderThan, and applies the same
// transitions a webhook would have. Per-transaction failures are counted
// and logged; the sweep carries on.
func (s *service) ReconcileStale(ctx context.Context, olderThan time.Duration) (report ReconcileReport, err error) {
	defer s.track(opReconcile, time.Now(), &err)

	if olderThan <= 0 {
		olderThan = DefaultReconcileAge
	}
	cutoff := time.Now().Add(-olderThan)

	deposits, err := s.store.ListStaleTransactions(ctx, models.TransactionStatusPending, models.TransactionTypeDeposit, cutoff, s.config.ReconcileBatch)
	if err != nil {
		return report, err
	}
	for i := range deposits {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++
		s.reconcileDeposit(ctx, &deposits[i], &report)
	}

	withdrawals, err := s.store.ListStaleTransactions(ctx, models.TransactionStatusProcessing, models.TransactionTypeWithdrawal, cutoff, s.config.ReconcileBatch)
	if err != nil {
		return report, err
	}
	for i := range withdrawals {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++
		s.reconcileWithdrawal(ctx, &withdrawals[i], &report)
	}

	if report.Checked > 0 {
		s.logger.Info("reconciliation sweep finished",
			zap.Int("checked", report.Checked),
			zap.Int("completed", report.Completed),
			zap.Int("failed", report.Failed),
			zap.Int("errors", report.Errors))
	}
	return report, nil
}

func (s *service) reconcileDeposit(ctx context.Context, tx *models.WalletTransaction, report *ReconcileReport) {
	if tx.StripePaymentIntentID == "" {
		return
	}
	intent, err := s.gateway.RetrievePaymentIntent(ctx, tx.StripePaymentIntentID)
	if err != nil {
		report.Errors++
		s.logger.Warn("reconcile: payment intent lookup failed", append(txFields(tx), zap.Error(err))...)
		return
	}

	switch intent.Status {
	case payment.IntentSucceeded:
		_, err := s.ConfirmDeposit(ctx, tx.ID, tx.StripePaymentIntentID)
		switch {
		case err == nil:
			report.Completed++
		case errors.Is(err, apperrors.ErrAlreadyProcessed):
		default:
			report.Errors++
		}
	case payment.IntentCanceled:
		failed, err := s.failDeposit(ctx, tx.ID, describe(intent.FailureReason, "Payment intent canceled"))
		if err != nil {
			report.Errors++
		} else if failed {
			report.Failed++
		}
	}
}

func (s *service) reconcileWithdrawal(ctx context.Context, tx *models.WalletTransaction, report *ReconcileReport) {
	if tx.StripeTransferID == "" {
		return
	}
	transfer, err := s.gateway.RetrieveTransfer(ctx, tx.StripeTransferID)
	if err != nil {
		report.Errors++
		s.logger.Warn("reconcile: transfer lookup failed", append(txFields(tx), zap.Error(err))...)
		return
	}

	if transfer.Reversed {
		failed, err := s.failWithdrawal(ctx, tx.ID, "Transfer reversed")
		if err != nil {
			report.Errors++
		} else if failed {
			report.Failed++
		}
		return
	}
	done, err := s.completeWithdrawal(ctx, tx.ID)
	if err != nil {
		report.Errors++
	} else if done {
		report.Completed++
	}
}

// Reconciler runs ReconcileStale on a fixed interval until its context ends.
type Reconciler struct {
	svc      Service
	interval time.Duration
	age      time.Duration
	logger   *zap.Logger
}

func NewReconciler(svc Service, interval, age time.Duration, logger *zap.Logger) *Reconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{svc: svc, interval: interval, age: age, logger: logger.Named("reconciler")}
}

// Run blocks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", zap.Duration("interval", r.interval), zap.Duration("age", r.age))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.svc.ReconcileStale(ctx, r.age); err != nil && ctx.Err() == nil {
				r.logger.Error("reconciliation sweep failed", zap.Error(err))
			}
		}
	}
}
