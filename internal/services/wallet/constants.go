package wallet

import "time"

// Default configuration values
const (
	DefaultCurrency       = "usd"
	DefaultLockTTL        = 30 * time.Second
	DefaultHistoryLimit   = 50
	MaxHistoryLimit       = 100
	DefaultReconcileAge   = 30 * time.Minute
	DefaultBatchSize      = 100
	DefaultPublishTimeout = 2 * time.Second
)

// Operation names used for metrics and logs.
const (
	opCreateWallet   = "create_wallet"
	opUpdateBank     = "update_bank_details"
	opDeposit        = "deposit"
	opConfirmDeposit = "confirm_deposit"
	opWithdraw       = "withdraw"
	opTransfer       = "transfer"
	opCancel         = "cancel_transaction"
	opWebhook        = "webhook"
	opReconcile      = "reconcile"
)

// Metadata keys stored on transactions.
const (
	metaPaymentIntentID  = "stripe_payment_intent_id"
	metaClientSecret     = "client_secret"
	metaTransferID       = "stripe_transfer_id"
	metaReceiverWalletID = "receiver_wallet_id"
	metaReceiverUserID   = "receiver_user_id"
)
