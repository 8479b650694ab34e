package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet is a per-user monetary account. A user has at most one active wallet.
type Wallet struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Balance              decimal.Decimal `gorm:"type:decimal(15,2);not null;check:chk_wallets_balance_non_negative,balance >= 0" json:"balance"`
	FrozenBalance        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"frozen_balance"`
	Currency             string          `gorm:"size:3;not null;default:'usd'" json:"currency"`
	StripeCustomerID     string          `gorm:"size:255" json:"stripe_customer_id,omitempty"`
	EncryptedBankDetails string          `gorm:"type:text" json:"-"`
	IsActive             bool            `gorm:"not null;default:false;index" json:"is_active"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	// Ensure balances start at 0
	w.Balance = decimal.Zero
	w.FrozenBalance = decimal.Zero
	return nil
}

// WalletBalance is the read model returned by balance queries.
type WalletBalance struct {
	WalletID      uuid.UUID       `json:"wallet_id"`
	Balance       decimal.Decimal `json:"balance"`
	FrozenBalance decimal.Decimal `json:"frozen_balance"`
	Currency      string          `json:"currency"`
}
