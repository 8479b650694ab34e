package errors

var (
	ErrInvalidAmount = &DomainError{
		Kind:    KindValidation,
		Code:    "INVALID_AMOUNT",
		Message: "invalid amount",
	}
	ErrWalletNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
	}
	ErrReceiverNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "RECEIVER_NOT_FOUND",
		Message: "receiver wallet not found",
	}
	ErrTransactionNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "transaction not found",
	}
	ErrDuplicateWallet = &DomainError{
		Kind:    KindConflict,
		Code:    "DUPLICATE_WALLET",
		Message: "user already has an active wallet",
	}
	ErrAlreadyProcessed = &DomainError{
		Kind:    KindConflict,
		Code:    "ALREADY_PROCESSED",
		Message: "transaction already processed",
	}
	ErrNotCancellable = &DomainError{
		Kind:    KindConflict,
		Code:    "NOT_CANCELLABLE",
		Message: "transaction cannot be cancelled",
	}
	ErrSameWalletTransfer = &DomainError{
		Kind:    KindConflict,
		Code:    "SAME_WALLET_TRANSFER",
		Message: "cannot transfer to same wallet",
	}
	ErrPaymentNotCompleted = &DomainError{
		Kind:    KindConflict,
		Code:    "PAYMENT_NOT_COMPLETED",
		Message: "payment not completed",
	}
	ErrInsufficientBalance = &DomainError{
		Kind:    KindInsufficientFunds,
		Code:    "INSUFFICIENT_BALANCE",
		Message: "insufficient wallet balance",
	}
	ErrLockUnavailable = &DomainError{
		Kind:      KindLockUnavailable,
		Code:      "LOCK_UNAVAILABLE",
		Message:   "resource is busy, retry later",
		Transient: true,
	}
	ErrSignatureInvalid = &DomainError{
		Kind:    KindUnauthorized,
		Code:    "SIGNATURE_INVALID",
		Message: "webhook signature verification failed",
	}
)

// ErrStaleTransaction is returned by the ledger when a conditional status
// update finds the row no longer in the expected state.
var ErrStaleTransaction = &DomainError{
	Kind:    KindConflict,
	Code:    "STALE_TRANSACTION",
	Message: "transaction status changed concurrently",
}
