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

// Deposit opens a payment intent for the amount and records a pending
// deposit. The balance only moves when the deposit is confirmed.
func (s *service) Deposit(ctx context.Context, userID, walletID uuid.UUID, in DepositInput) (tx *models.WalletTransaction, err error) {
	defer s.track(opDeposit, time.Now(), &err)

	if err := s.validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	created := false
	err = s.withLock(ctx, lock.WalletKey(walletID), func(ctx context.Context) error {
		w, err := s.store.FindWallet(ctx, walletID, userID)
		if err != nil {
			return err
		}
		if tx, err = s.byReference(ctx, walletID, models.TransactionTypeDeposit, in.Reference); err != nil || tx != nil {
			return err
		}

		bankID, err := s.seal(in.BankDetails)
		if err != nil {
			return err
		}
		accountName, err := s.seal(in.AccountName)
		if err != nil {
			return err
		}

		txID := uuid.New()
		intent, err := s.gateway.CreatePaymentIntent(ctx, payment.PaymentIntentRequest{
			Amount:         in.Amount,
			Currency:       w.Currency,
			CustomerID:     w.StripeCustomerID,
			IdempotencyKey: txID.String(),
			Metadata: map[string]string{
				"user_id":          userID.String(),
				"wallet_id":        walletID.String(),
				"transaction_id":   txID.String(),
				"transaction_type": string(models.TransactionTypeDeposit),
				"description":      describe(in.Description, "Wallet deposit"),
			},
		})
		if err != nil {
			return err
		}

		tx = &models.WalletTransaction{
			ID:                    txID,
			WalletID:              walletID,
			UserID:                userID,
			Type:                  models.TransactionTypeDeposit,
			Status:                models.TransactionStatusPending,
			Amount:                in.Amount,
			Reference:             in.Reference,
			StripePaymentIntentID: intent.ID,
			EncryptedBankID:       bankID,
			EncryptedAccountName:  accountName,
			PaymentMethod:         in.PaymentMethod,
			Description:           in.Description,
			Metadata: models.JSON{
				metaPaymentIntentID: intent.ID,
				metaClientSecret:    intent.ClientSecret,
			},
		}
		if err := s.store.CreateTransaction(ctx, tx); err != nil {
			// The intent exists at the processor without a local record.
			s.logger.Error("deposit intent created but not recorded",
				zap.String("payment_intent_id", intent.ID),
				zap.String("transaction_id", txID.String()),
				zap.Error(err))
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		s.logFailure(opDeposit, err, zap.String("wallet_id", walletID.String()))
		return nil, err
	}

	if created {
		s.logger.Info("deposit initiated", txFields(tx)...)
		s.publish(ctx, events.DepositInitiated, tx)
	}
	return tx, nil
}

// ConfirmDeposit credits a pending deposit once the processor reports its
// payment intent succeeded. A second confirmation fails with ErrAlreadyProcessed.
func (s *service) ConfirmDeposit(ctx context.Context, txID uuid.UUID, paymentIntentID string) (tx *models.WalletTransaction, err error) {
	defer s.track(opConfirmDeposit, time.Now(), &err)

	if paymentIntentID == "" {
		return nil, apperrors.Validation("payment intent id is required")
	}

	err = s.withLock(ctx, lock.TransactionKey(txID), func(ctx context.Context) error {
		tx, err = s.store.FindTransaction(ctx, repositories.WalletTxFilter{
			ID:                    txID,
			StripePaymentIntentID: paymentIntentID,
			Type:                  models.TransactionTypeDeposit,
		})
		if err != nil {
			return err
		}
		if tx.Status != models.TransactionStatusPending {
			return apperrors.ErrAlreadyProcessed
		}

		intent, err := s.gateway.RetrievePaymentIntent(ctx, paymentIntentID)
		if err != nil {
			return err
		}
		if !intent.Succeeded() {
			return apperrors.ErrPaymentNotCompleted.WithMessage("payment intent is %s", intent.Status)
		}

		err = s.store.RunAtomic(ctx, func(store repositories.LedgerStore) error {
			if err := store.UpdateTransactionStatus(ctx, tx.ID, models.TransactionStatusPending, models.TransactionStatusCompleted, ""); err != nil {
				return err
			}
			return store.AdjustBalance(ctx, tx.WalletID, tx.Amount)
		})
		if errors.Is(err, apperrors.ErrStaleTransaction) {
			return apperrors.ErrAlreadyProcessed
		}
		if err != nil {
			return err
		}
		tx.Status = models.TransactionStatusCompleted
		return nil
	})
	if err != nil {
		s.logFailure(opConfirmDeposit, err, zap.String("transaction_id", txID.String()))
		return nil, err
	}

	s.logger.Info("deposit confirmed", txFields(tx)...)
	s.publish(ctx, events.DepositCompleted, tx)
	return tx, nil
}

// Withdraw pays the amount out through a processor transfer, then records a
// processing withdrawal and debits the wallet in one ledger transaction.
func (s *service) Withdraw(ctx context.Context, userID, walletID uuid.UUID, in WithdrawInput) (tx *models.WalletTransaction, err error) {
	defer s.track(opWithdraw, time.Now(), &err)

	if err := s.validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	created := false
	err = s.withLock(ctx, lock.WalletKey(walletID), func(ctx context.Context) error {
		w, err := s.store.FindWallet(ctx, walletID, userID)
		if err != nil {
			return err
		}
		if tx, err = s.byReference(ctx, walletID, models.TransactionTypeWithdrawal, in.Reference); err != nil || tx != nil {
			return err
		}
		if w.Balance.LessThan(in.Amount) {
			return apperrors.ErrInsufficientBalance
		}

		bankID, err := s.seal(firstNonEmpty(in.BankID, in.BankDetails))
		if err != nil {
			return err
		}
		accountName, err := s.seal(in.AccountName)
		if err != nil {
			return err
		}

		txID := uuid.New()
		transfer, err := s.gateway.CreateTransfer(ctx, payment.TransferRequest{
			Amount:         in.Amount,
			Currency:       w.Currency,
			Destination:    w.StripeCustomerID,
			IdempotencyKey: txID.String(),
			Metadata: map[string]string{
				"user_id":          userID.String(),
				"wallet_id":        walletID.String(),
				"transaction_id":   txID.String(),
				"transaction_type": string(models.TransactionTypeWithdrawal),
				"description":      describe(in.Description, "Wallet withdrawal"),
			},
		})
		if err != nil {
			return err
		}

		tx = &models.WalletTransaction{
			ID:                   txID,
			WalletID:             walletID,
			UserID:               userID,
			Type:                 models.TransactionTypeWithdrawal,
			Status:               models.TransactionStatusProcessing,
			Amount:               in.Amount,
			Reference:            in.Reference,
			StripeTransferID:     transfer.ID,
			EncryptedBankID:      bankID,
			EncryptedAccountName: accountName,
			PaymentMethod:        in.PaymentMethod,
			Description:          in.Description,
			Metadata:             models.JSON{metaTransferID: transfer.ID},
		}
		err = s.store.RunAtomic(ctx, func(store repositories.LedgerStore) error {
			if err := store.CreateTransaction(ctx, tx); err != nil {
				return err
			}
			return store.AdjustBalance(ctx, walletID, in.Amount.Neg())
		})
		if err != nil {
			// Money left through the processor but the ledger did not record it.
			s.logger.Error("withdrawal transfer executed but not recorded",
				zap.String("stripe_transfer_id", transfer.ID),
				zap.String("transaction_id", txID.String()),
				zap.Error(err))
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		s.logFailure(opWithdraw, err, zap.String("wallet_id", walletID.String()))
		return nil, err
	}

	if created {
		s.logger.Info("withdrawal initiated", txFields(tx)...)
		s.publish(ctx, events.WithdrawalInitiated, tx)
	}
	return tx, nil
}

// Transfer moves funds between two wallets in one ledger transaction. Only
// the source wallet is locked; the credit to the receiver is a relative update.
func (s *service) Transfer(ctx context.Context, userID, fromWalletID uuid.UUID, in TransferInput) (tx *models.WalletTransaction, err error) {
	defer s.track(opTransfer, time.Now(), &err)

	if err := s.validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	var receiver *models.Wallet
	created := false
	err = s.withLock(ctx, lock.WalletKey(fromWalletID), func(ctx context.Context) error {
		from, err := s.store.FindWallet(ctx, fromWalletID, userID)
		if err != nil {
			return err
		}
		receiver, err = s.store.FindActiveWallet(ctx, in.ReceiverWalletID)
		if errors.Is(err, apperrors.ErrWalletNotFound) {
			return apperrors.ErrReceiverNotFound
		}
		if err != nil {
			return err
		}
		if from.ID == receiver.ID {
			return apperrors.ErrSameWalletTransfer
		}
		if tx, err = s.byReference(ctx, fromWalletID, models.TransactionTypeTransfer, in.Reference); err != nil || tx != nil {
			return err
		}
		if from.Balance.LessThan(in.Amount) {
			return apperrors.ErrInsufficientBalance
		}

		receiverDetails, err := s.seal(in.ReceiverDetails)
		if err != nil {
			return err
		}

		tx = &models.WalletTransaction{
			ID:                       uuid.New(),
			WalletID:                 fromWalletID,
			UserID:                   userID,
			Type:                     models.TransactionTypeTransfer,
			Status:                   models.TransactionStatusCompleted,
			Amount:                   in.Amount,
			Reference:                in.Reference,
			EncryptedReceiverDetails: receiverDetails,
			Description:              in.Description,
			Metadata: models.JSON{
				metaReceiverWalletID: receiver.ID.String(),
				metaReceiverUserID:   receiver.UserID.String(),
			},
		}
		err = s.store.RunAtomic(ctx, func(store repositories.LedgerStore) error {
			if err := store.CreateTransaction(ctx, tx); err != nil {
				return err
			}
			if err := store.AdjustBalance(ctx, fromWalletID, in.Amount.Neg()); err != nil {
				return err
			}
			return store.AdjustBalance(ctx, receiver.ID, in.Amount)
		})
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		s.logFailure(opTransfer, err, zap.String("wallet_id", fromWalletID.String()))
		return nil, err
	}

	if created {
		s.logger.Info("transfer completed", append(txFields(tx), zap.String("receiver_wallet_id", receiver.ID.String()))...)
		s.publish(ctx, events.TransferCompleted, tx, func(ev *events.LedgerEvent) {
			id := receiver.ID
			ev.CounterpartyID = &id
		})
	}
	return tx, nil
}

// CancelTransaction cancels one of the user's pending transactions.
func (s *service) CancelTransaction(ctx context.Context, txID, userID uuid.UUID) (tx *models.WalletTransaction, err error) {
	defer s.track(opCancel, time.Now(), &err)

	err = s.withLock(ctx, lock.TransactionKey(txID), func(ctx context.Context) error {
		tx, err = s.store.FindTransaction(ctx, repositories.WalletTxFilter{ID: txID, UserID: userID})
		if err != nil {
			return err
		}
		if tx.Status != models.TransactionStatusPending {
			return apperrors.ErrNotCancellable
		}
		err = s.store.UpdateTransactionStatus(ctx, tx.ID, models.TransactionStatusPending, models.TransactionStatusCancelled, "")
		if errors.Is(err, apperrors.ErrStaleTransaction) {
			return apperrors.ErrNotCancellable
		}
		if err != nil {
			return err
		}
		tx.Status = models.TransactionStatusCancelled
		return nil
	})
	if err != nil {
		s.logFailure(opCancel, err, zap.String("transaction_id", txID.String()))
		return nil, err
	}

	s.logger.Info("transaction cancelled", txFields(tx)...)
	s.publish(ctx, events.TransactionCancelled, tx)
	return tx, nil
}

func describe(desc, fallback string) string {
	if desc != "" {
		return desc
	}
	return fallback
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
