package wallet

import (
	"time"

	"propwallet/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletConfig holds configuration for wallet operations
type WalletConfig struct {
	Currency string
	// MaxAmount caps a single deposit, withdrawal or transfer. Zero means no cap.
	MaxAmount      decimal.Decimal
	LockTTL        time.Duration
	ReconcileBatch int
	// PublishTimeout bounds each ledger event write after commit.
	PublishTimeout time.Duration
}

type CreateWalletInput struct {
	StripeCustomerID string               `json:"stripe_customer_id" validate:"omitempty,max=255"`
	BankDetails      string               `json:"bank_details" validate:"omitempty,max=4096"`
	PaymentMethod    models.PaymentMethod `json:"payment_method" validate:"payment_method"`
}

type BankDetailsInput struct {
	BankDetails string `json:"bank_details" validate:"required,max=4096"`
}

type DepositInput struct {
	Amount        decimal.Decimal      `json:"amount" validate:"required,money"`
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required,payment_method"`
	Description   string               `json:"description" validate:"max=500"`
	BankDetails   string               `json:"bank_details" validate:"omitempty,max=4096"`
	AccountName   string               `json:"account_name" validate:"omitempty,max=255"`
	// Reference makes a retried request return the first attempt's transaction.
	Reference string `json:"reference" validate:"omitempty,max=255"`
}

type WithdrawInput struct {
	Amount        decimal.Decimal      `json:"amount" validate:"required,money"`
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required,payment_method"`
	Description   string               `json:"description" validate:"max=500"`
	BankDetails   string               `json:"bank_details" validate:"omitempty,max=4096"`
	AccountName   string               `json:"account_name" validate:"omitempty,max=255"`
	BankID        string               `json:"bank_id" validate:"omitempty,max=255"`
	Reference     string               `json:"reference" validate:"omitempty,max=255"`
}

type TransferInput struct {
	Amount           decimal.Decimal `json:"amount" validate:"required,money"`
	ReceiverWalletID uuid.UUID       `json:"receiver_wallet_id" validate:"required"`
	Description      string          `json:"description" validate:"max=500"`
	ReceiverDetails  string          `json:"receiver_details" validate:"omitempty,max=4096"`
	Reference        string          `json:"reference" validate:"omitempty,max=255"`
}

// ReconcileReport summarises one sweep over stale transactions.
type ReconcileReport struct {
	Checked   int `json:"checked"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Errors    int `json:"errors"`
}

// MetricsCollector defines the interface for collecting wallet metrics
type MetricsCollector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation string, result string)
	RecordTransaction(txType string, status string, amount float64)
	RecordError(operation string, kind string)
}
