/*
Package wallet implements the wallet ledger workflows: deposits through
payment intents, withdrawals through processor transfers, peer-to-peer
transfers between wallets, cancellation and webhook reconciliation.

Every mutating workflow runs under a distributed lock (the wallet key for
deposit, withdraw and transfer; the transaction key for confirm, cancel and
webhook transitions). Balance changes and the status transition that caused
them are applied in one ledger transaction, so either both land or neither
does.

Usage:

	svc := wallet.NewService(wallet.Dependencies{
	    Store:     repositories.NewLedgerStore(db),
	    Locker:    lock.NewManager(clients, lock.DefaultOptions, logger),
	    Gateway:   payment.NewStripeGateway(stripeCfg, logger),
	    Encrypter: enc,
	    Logger:    logger,
	}, wallet.WalletConfig{Currency: "usd"})

	tx, err := svc.Deposit(ctx, userID, walletID, wallet.DepositInput{
	    Amount:        decimal.RequireFromString("100.00"),
	    PaymentMethod: models.PaymentMethodStripe,
	})

Error Handling:

All failures are *errors.DomainError values from internal/errors; callers
branch on errors.Is against the sentinels there, or on errors.KindOf.
Lock and transient gateway failures are safe to retry.
*/
package wallet
