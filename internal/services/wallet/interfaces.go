package wallet

import (
	"context"
	"time"

	"propwallet/internal/models"

	"github.com/google/uuid"
)

// Service defines the main wallet service interface
type Service interface {
	// Wallet management
	CreateWallet(ctx context.Context, userID uuid.UUID, in CreateWalletInput) (*models.Wallet, error)
	GetWallet(ctx context.Context, userID, walletID uuid.UUID) (*models.Wallet, error)
	GetUserWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	GetBalance(ctx context.Context, userID, walletID uuid.UUID) (*models.WalletBalance, error)
	UpdateBankDetails(ctx context.Context, userID, walletID uuid.UUID, in BankDetailsInput) (*models.Wallet, error)

	// Transaction reads
	GetTransactionHistory(ctx context.Context, userID, walletID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error)
	GetTransaction(ctx context.Context, txID, userID uuid.UUID) (*models.WalletTransaction, error)

	// Money movement
	Deposit(ctx context.Context, userID, walletID uuid.UUID, in DepositInput) (*models.WalletTransaction, error)
	ConfirmDeposit(ctx context.Context, txID uuid.UUID, paymentIntentID string) (*models.WalletTransaction, error)
	Withdraw(ctx context.Context, userID, walletID uuid.UUID, in WithdrawInput) (*models.WalletTransaction, error)
	Transfer(ctx context.Context, userID, fromWalletID uuid.UUID, in TransferInput) (*models.WalletTransaction, error)
	CancelTransaction(ctx context.Context, txID, userID uuid.UUID) (*models.WalletTransaction, error)

	// Processor callbacks
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	ReconcileStale(ctx context.Context, olderThan time.Duration) (ReconcileReport, error)
}

// EventLog remembers processed webhook event ids across deliveries.
type EventLog interface {
	EventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, kind string) (bool, error)
}
