package repositories

import (
	"context"
	"time"

	"propwallet/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletTxFilter selects a single transaction. Zero fields are ignored;
// at least one must be set.
type WalletTxFilter struct {
	ID                    uuid.UUID
	WalletID              uuid.UUID
	UserID                uuid.UUID
	Type                  models.TransactionType
	Reference             string
	StripePaymentIntentID string
	StripeTransferID      string
}

func (f WalletTxFilter) empty() bool {
	return f.ID == uuid.Nil && f.WalletID == uuid.Nil && f.UserID == uuid.Nil &&
		f.Type == "" && f.Reference == "" &&
		f.StripePaymentIntentID == "" && f.StripeTransferID == ""
}

// LedgerStore is the persistent record of wallets and their transactions.
// Reads of wallets only ever return active wallets.
type LedgerStore interface {
	// Wallet reads
	FindWallet(ctx context.Context, id, userID uuid.UUID) (*models.Wallet, error)
	FindActiveWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	FindWalletByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)

	// Transaction reads
	FindTransaction(ctx context.Context, filter WalletTxFilter) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error)
	ListStaleTransactions(ctx context.Context, status models.TransactionStatus, txType models.TransactionType, olderThan time.Time, limit int) ([]models.WalletTransaction, error)

	// Writes
	CreateWallet(ctx context.Context, wallet *models.Wallet) error
	CreateTransaction(ctx context.Context, tx *models.WalletTransaction) error
	// UpdateTransactionStatus moves a transaction from one status to another.
	// It fails with ErrStaleTransaction when the row is no longer in from.
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, from, to models.TransactionStatus, reason string) error
	// AdjustBalance adds delta (which may be negative) to the wallet balance.
	// It never lets the balance go below zero.
	AdjustBalance(ctx context.Context, walletID uuid.UUID, delta decimal.Decimal) error
	UpdateBankDetails(ctx context.Context, walletID uuid.UUID, encrypted string) error

	// RunAtomic runs fn against a store bound to one database transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	RunAtomic(ctx context.Context, fn func(LedgerStore) error) error

	Ping(ctx context.Context) error
}
