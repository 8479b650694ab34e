package lock

import (
	"fmt"

	"github.com/google/uuid"
)

// WalletKey names the lock guarding a wallet's balance.
func WalletKey(id uuid.UUID) string {
	return fmt.Sprintf("wallet:%s:lock", id)
}

// TransactionKey names the lock guarding a transaction's status.
func TransactionKey(id uuid.UUID) string {
	return fmt.Sprintf("transaction:%s:lock", id)
}
