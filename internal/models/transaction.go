package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeRefund     TransactionType = "refund"
)

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodStripe       PaymentMethod = "stripe"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
)

// Valid reports whether m is one of the supported payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodStripe, PaymentMethodBankTransfer, PaymentMethodCreditCard, PaymentMethodDebitCard:
		return true
	}
	return false
}

// WalletTransaction records one monetary event against a wallet.
// Rows are never deleted; cancellation is a status transition.
type WalletTransaction struct {
	ID                       uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	WalletID                 uuid.UUID           `gorm:"type:uuid;not null;index" json:"wallet_id"`
	UserID                   uuid.UUID           `gorm:"type:uuid;not null;index" json:"user_id"`
	Type                     TransactionType     `gorm:"column:transaction_type;size:20;not null;index" json:"type"`
	Status                   TransactionStatus   `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Amount                   decimal.Decimal     `gorm:"type:decimal(15,2);not null" json:"amount"`
	Fee                      decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"fee"`
	Reference                string              `gorm:"size:255;index" json:"reference,omitempty"`
	StripePaymentIntentID    string              `gorm:"size:255;index" json:"stripe_payment_intent_id,omitempty"`
	StripeTransferID         string              `gorm:"size:255;index" json:"stripe_transfer_id,omitempty"`
	EncryptedSenderDetails   string              `gorm:"type:text" json:"-"`
	EncryptedReceiverDetails string              `gorm:"type:text" json:"-"`
	EncryptedBankID          string              `gorm:"type:text" json:"-"`
	EncryptedAccountName     string              `gorm:"type:text" json:"-"`
	PaymentMethod            PaymentMethod       `gorm:"size:20" json:"payment_method,omitempty"`
	Description              string              `gorm:"type:text" json:"description,omitempty"`
	Metadata                 JSON                `gorm:"type:jsonb" json:"metadata,omitempty"`
	FailureReason            string              `gorm:"type:text" json:"failure_reason,omitempty"`
	CreatedAt                time.Time           `gorm:"index" json:"created_at"`
	UpdatedAt                time.Time           `json:"updated_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}

func (t *WalletTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
