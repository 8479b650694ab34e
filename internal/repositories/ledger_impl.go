package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "propwallet/internal/errors"
	"propwallet/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ledgerStore struct {
	db *gorm.DB
}

// NewLedgerStore returns a LedgerStore backed by db.
func NewLedgerStore(db *gorm.DB) LedgerStore {
	if db == nil {
		panic("db is required")
	}
	return &ledgerStore{db: db}
}

func (s *ledgerStore) FindWallet(ctx context.Context, id, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).
		First(&wallet).Error
	if err != nil {
		return nil, walletErr(err)
	}
	return &wallet, nil
}

func (s *ledgerStore) FindActiveWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&wallet).Error
	if err != nil {
		return nil, walletErr(err)
	}
	return &wallet, nil
}

func (s *ledgerStore) FindWalletByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&wallet).Error
	if err != nil {
		return nil, walletErr(err)
	}
	return &wallet, nil
}

func (s *ledgerStore) FindTransaction(ctx context.Context, f WalletTxFilter) (*models.WalletTransaction, error) {
	if f.empty() {
		return nil, apperrors.Validation("transaction lookup needs at least one criterion")
	}

	q := s.db.WithContext(ctx).Model(&models.WalletTransaction{})
	if f.ID != uuid.Nil {
		q = q.Where("id = ?", f.ID)
	}
	if f.WalletID != uuid.Nil {
		q = q.Where("wallet_id = ?", f.WalletID)
	}
	if f.UserID != uuid.Nil {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Type != "" {
		q = q.Where("transaction_type = ?", f.Type)
	}
	if f.Reference != "" {
		q = q.Where("reference = ?", f.Reference)
	}
	if f.StripePaymentIntentID != "" {
		q = q.Where("stripe_payment_intent_id = ?", f.StripePaymentIntentID)
	}
	if f.StripeTransferID != "" {
		q = q.Where("stripe_transfer_id = ?", f.StripeTransferID)
	}

	var tx models.WalletTransaction
	if err := q.First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (s *ledgerStore) ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	var txs []models.WalletTransaction
	err := s.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	return txs, nil
}

func (s *ledgerStore) ListStaleTransactions(ctx context.Context, status models.TransactionStatus, txType models.TransactionType, olderThan time.Time, limit int) ([]models.WalletTransaction, error) {
	var txs []models.WalletTransaction
	err := s.db.WithContext(ctx).
		Where("status = ? AND transaction_type = ? AND updated_at < ?", status, txType, olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale transactions: %w", err)
	}
	return txs, nil
}

func (s *ledgerStore) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	if err := s.db.WithContext(ctx).Create(wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrDuplicateWallet
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (s *ledgerStore) CreateTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *ledgerStore) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, from, to models.TransactionStatus, reason string) error {
	updates := map[string]interface{}{"status": to}
	if reason != "" {
		updates["failure_reason"] = reason
	}

	res := s.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update transaction status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrStaleTransaction.WithMessage("transaction %s is no longer %s", id, from)
	}
	return nil
}

func (s *ledgerStore) AdjustBalance(ctx context.Context, walletID uuid.UUID, delta decimal.Decimal) error {
	res := s.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ? AND is_active = ? AND balance + ? >= 0", walletID, true, delta).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("failed to adjust balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.FindActiveWallet(ctx, walletID); err != nil {
			return err
		}
		return apperrors.ErrInsufficientBalance
	}
	return nil
}

func (s *ledgerStore) UpdateBankDetails(ctx context.Context, walletID uuid.UUID, encrypted string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ? AND is_active = ?", walletID, true).
		Update("encrypted_bank_details", encrypted)
	if res.Error != nil {
		return fmt.Errorf("failed to update bank details: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrWalletNotFound
	}
	return nil
}

func (s *ledgerStore) RunAtomic(ctx context.Context, fn func(LedgerStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerStore{db: tx})
	})
}

func (s *ledgerStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func walletErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrWalletNotFound
	}
	return fmt.Errorf("failed to get wallet: %w", err)
}
