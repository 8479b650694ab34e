// Package routes defines the API routing configuration.
package routes

import (
	"propwallet/internal/handlers"
	"propwallet/internal/middleware"
	"propwallet/internal/models"
	"propwallet/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Deps struct {
	Wallet   wallet.Service
	Auth     *middleware.AuthMiddleware
	Health   *handlers.HealthHandler
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, d Deps) {
	walletHandler := handlers.NewWalletHandler(d.Wallet, d.Logger)
	txHandler := handlers.NewTransactionHandler(d.Wallet, d.Logger)
	webhookHandler := handlers.NewWebhookHandler(d.Wallet, d.Logger)

	app.Get("/health", d.Health.HealthCheck)
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Signed by the processor, not by a user token.
	app.Post("/webhooks/stripe", webhookHandler.Stripe)

	api := app.Group("/api", d.Auth.Handler)
	read := middleware.HasPermission(models.PermissionWalletRead)
	write := middleware.HasPermission(models.PermissionWalletWrite)

	wallets := api.Group("/wallets")
	wallets.Post("/", write, walletHandler.CreateWallet)
	wallets.Get("/me", read, walletHandler.GetMyWallet)
	wallets.Get("/:id", read, walletHandler.GetWallet)
	wallets.Get("/:id/balance", read, walletHandler.GetBalance)
	wallets.Get("/:id/transactions", read, walletHandler.GetTransactions)
	wallets.Put("/:id/bank-details", write, walletHandler.UpdateBankDetails)
	wallets.Post("/:id/deposits", write, walletHandler.Deposit)
	wallets.Post("/:id/withdrawals", write, walletHandler.Withdraw)
	wallets.Post("/:id/transfers", write, walletHandler.Transfer)

	transactions := api.Group("/transactions")
	transactions.Get("/:id", read, txHandler.GetTransaction)
	transactions.Post("/:id/confirm", write, txHandler.ConfirmDeposit)
	transactions.Post("/:id/cancel", write, txHandler.CancelTransaction)
}
