package handlers

import (
	"propwallet/internal/services/wallet"
	"propwallet/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	walletService wallet.Service
	logger        *zap.Logger
}

func NewTransactionHandler(walletService wallet.Service, logger *zap.Logger) *TransactionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionHandler{walletService: walletService, logger: logger.Named("http")}
}

func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return response.Unauthorized(c)
	}
	txID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid transaction id")
	}
	tx, err := h.walletService.GetTransaction(c.UserContext(), txID, uid)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "Transaction retrieved", tx)
}

// ConfirmDeposit lets the client confirm a deposit right after the payment
// succeeded instead of waiting for the webhook. The transaction must belong
// to the caller.
func (h *TransactionHandler) ConfirmDeposit(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return response.Unauthorized(c)
	}
	txID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid transaction id")
	}
	var input struct {
		PaymentIntentID string `json:"payment_intent_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	if _, err := h.walletService.GetTransaction(c.UserContext(), txID, uid); err != nil {
		return fail(c, h.logger, err)
	}
	tx, err := h.walletService.ConfirmDeposit(c.UserContext(), txID, input.PaymentIntentID)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "Deposit confirmed", tx)
}

func (h *TransactionHandler) CancelTransaction(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return response.Unauthorized(c)
	}
	txID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid transaction id")
	}
	tx, err := h.walletService.CancelTransaction(c.UserContext(), txID, uid)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "Transaction cancelled", tx)
}
