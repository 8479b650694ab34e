package wallet

import (
	"context"
	"errors"
	"time"

	apperrors "propwallet/internal/errors"
	"propwallet/internal/events"
	"propwallet/internal/lock"
	"propwallet/internal/models"
	"propwallet/internal/repositories"
	"propwallet/internal/services/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleWebhook verifies a processor delivery and applies the transition it
// reports. Deliveries for unknown objects are acknowledged without effect. A
// repeated payment success fails with ErrAlreadyProcessed and leaves the
// balance untouched; other repeated transitions are no-ops.
func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) (err error) {
	defer s.track(opWebhook, time.Now(), &err)

	ev, err := s.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		s.logger.Warn("webhook rejected", zap.Error(err))
		return err
	}
	log := s.logger.With(zap.String("event_id", ev.ID), zap.String("event_type", ev.Type))

	if ev.Kind == payment.EventIgnored || ev.ObjectID == "" {
		log.Debug("webhook ignored")
		return nil
	}
	if s.eventLog != nil {
		seen, err := s.eventLog.EventProcessed(ctx, ev.ID)
		if err != nil {
			log.Warn("event log unavailable", zap.Error(err))
		} else if seen {
			log.Info("webhook already processed")
			if ev.Kind == payment.EventPaymentIntentSucceeded {
				return apperrors.ErrAlreadyProcessed
			}
			return nil
		}
	}

	if err := s.dispatch(ctx, ev); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyProcessed) {
			log.Info("webhook for settled deposit", zap.String("object_id", ev.ObjectID))
		} else {
			log.Error("webhook handling failed", zap.Error(err))
		}
		return err
	}

	if s.eventLog != nil {
		if _, err := s.eventLog.MarkEventProcessed(ctx, ev.ID, ev.Kind.String()); err != nil {
			log.Warn("event not recorded as processed", zap.Error(err))
		}
	}
	log.Info("webhook processed", zap.String("object_id", ev.ObjectID))
	return nil
}

func (s *service) dispatch(ctx context.Context, ev *payment.Event) error {
	switch ev.Kind {
	case payment.EventPaymentIntentSucceeded:
		tx, err := s.lookup(ctx, repositories.WalletTxFilter{StripePaymentIntentID: ev.ObjectID, Type: models.TransactionTypeDeposit})
		if err != nil || tx == nil {
			return err
		}
		_, err = s.ConfirmDeposit(ctx, tx.ID, ev.ObjectID)
		return err

	case payment.EventPaymentIntentFailed:
		tx, err := s.lookup(ctx, repositories.WalletTxFilter{StripePaymentIntentID: ev.ObjectID, Type: models.TransactionTypeDeposit})
		if err != nil || tx == nil {
			return err
		}
		_, err = s.failDeposit(ctx, tx.ID, describe(ev.FailureReason, "Payment failed"))
		return err

	case payment.EventTransferCreated:
		tx, err := s.lookup(ctx, repositories.WalletTxFilter{StripeTransferID: ev.ObjectID, Type: models.TransactionTypeWithdrawal})
		if err != nil || tx == nil {
			return err
		}
		_, err = s.completeWithdrawal(ctx, tx.ID)
		return err

	case payment.EventTransferFailed, payment.EventTransferReversed:
		tx, err := s.lookup(ctx, repositories.WalletTxFilter{StripeTransferID: ev.ObjectID, Type: models.TransactionTypeWithdrawal})
		if err != nil || tx == nil {
			return err
		}
		reason := "Transfer failed"
		if ev.Kind == payment.EventTransferReversed {
			reason = "Transfer reversed"
		}
		_, err = s.failWithdrawal(ctx, tx.ID, reason)
		return err
	}
	return nil
}

// lookup returns nil without error when no transaction matches.
func (s *service) lookup(ctx context.Context, f repositories.WalletTxFilter) (*models.WalletTransaction, error) {
	tx, err := s.store.FindTransaction(ctx, f)
	if errors.Is(err, apperrors.ErrTransactionNotFound) {
		return nil, nil
	}
	return tx, err
}

// failDeposit marks a pending deposit failed. It reports whether it did.
func (s *service) failDeposit(ctx context.Context, txID uuid.UUID, reason string) (bool, error) {
	var tx *models.WalletTransaction
	err := s.withLock(ctx, lock.TransactionKey(txID), func(ctx context.Context) error {
		cur, err := s.store.FindTransaction(ctx, repositories.WalletTxFilter{ID: txID})
		if err != nil {
			return err
		}
		if cur.Status != models.TransactionStatusPending {
			return nil
		}
		err = s.store.UpdateTransactionStatus(ctx, cur.ID, models.TransactionStatusPending, models.TransactionStatusFailed, reason)
		if errors.Is(err, apperrors.ErrStaleTransaction) {
			return nil
		}
		if err != nil {
			return err
		}
		cur.Status = models.TransactionStatusFailed
		cur.FailureReason = reason
		tx = cur
		return nil
	})
	if err != nil || tx == nil {
		return false, err
	}

	s.logger.Info("deposit failed", append(txFields(tx), zap.String("reason", reason))...)
	s.publish(ctx, events.DepositFailed, tx)
	return true, nil
}

// completeWithdrawal settles a processing withdrawal. It reports whether it did.
func (s *service) completeWithdrawal(ctx context.Context, txID uuid.UUID) (bool, error) {
	var tx *models.WalletTransaction
	err := s.withLock(ctx, lock.TransactionKey(txID), func(ctx context.Context) error {
		cur, err := s.store.FindTransaction(ctx, repositories.WalletTxFilter{ID: txID})
		if err != nil {
			return err
		}
		if cur.Status != models.TransactionStatusProcessing {
			return nil
		}
		err = s.store.UpdateTransactionStatus(ctx, cur.ID, models.TransactionStatusProcessing, models.TransactionStatusCompleted, "")
		if errors.Is(err, apperrors.ErrStaleTransaction) {
			return nil
		}
		if err != nil {
			return err
		}
		cur.Status = models.TransactionStatusCompleted
		tx = cur
		return nil
	})
	if err != nil || tx == nil {
		return false, err
	}

	s.logger.Info("withdrawal completed", txFields(tx)...)
	s.publish(ctx, events.WithdrawalCompleted, tx)
	return true, nil
}

// failWithdrawal marks a processing withdrawal failed and returns the debited
// amount to the wallet in the same ledger transaction.
func (s *service) failWithdrawal(ctx context.Context, txID uuid.UUID, reason string) (bool, error) {
	var tx *models.WalletTransaction
	err := s.withLock(ctx, lock.TransactionKey(txID), func(ctx context.Context) error {
		cur, err := s.store.FindTransaction(ctx, repositories.WalletTxFilter{ID: txID})
		if err != nil {
			return err
		}
		if cur.Status != models.TransactionStatusProcessing {
			return nil
		}
		err = s.store.RunAtomic(ctx, func(store repositories.LedgerStore) error {
			if err := store.UpdateTransactionStatus(ctx, cur.ID, models.TransactionStatusProcessing, models.TransactionStatusFailed, reason); err != nil {
				return err
			}
			return store.AdjustBalance(ctx, cur.WalletID, cur.Amount)
		})
		if errors.Is(err, apperrors.ErrStaleTransaction) {
			return nil
		}
		if err != nil {
			return err
		}
		cur.Status = models.TransactionStatusFailed
		cur.FailureReason = reason
		tx = cur
		return nil
	})
	if err != nil || tx == nil {
		return false, err
	}

	s.logger.Warn("withdrawal failed, funds returned", append(txFields(tx), zap.String("reason", reason))...)
	s.publish(ctx, events.WithdrawalFailed, tx)
	return true, nil
}
