package handlers

import (
	"propwallet/internal/middleware"
	"propwallet/internal/services/wallet"
	"propwallet/internal/utils/pagination"
	"propwallet/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type WalletHandler struct {
	walletService wallet.Service
	logger        *zap.Logger
}

func NewWalletHandler(walletService wallet.Service, logger *zap.Logger) *WalletHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalletHandler{
		walletService: walletService,
		logger:        logger.Named("http"),
	}
}

// userID is set by the auth middleware on every route this handler serves.
func userID(c *fiber.Ctx) (uuid.UUID, bool) {
	claims := middleware.Claims(c)
	if claims == nil {
		return uuid.Nil, false
	}
	return claims.UserID, true
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

// fail writes err and logs the ones the client cannot act on.
func fail(c *fiber.Ctx, logger *zap.Logger, err error) error {
	resp := response.FromError(c, err)
	if c.Response().StatusCode() >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return resp
}

func (h *WalletHandler) CreateWallet(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return response.Unauthorized(c)
	}
	var input wallet.CreateWalletInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return response.BadRequest(c, "Invalid request format")
		}
	}

	w, err := h.walletService.CreateWallet(c.UserContext(), uid, input)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Created(c, "Wallet created", w)
}

func (h *WalletHandler) GetMyWallet(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return response.Unauthorized(c)
	}
	w, err := h.walletService.GetUserWallet(c.UserContext(), uid)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "Wallet retrieved", w)
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return response.Unauthorized(c)
	}
	walletID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid wallet id")
	}
	w, err := h.walletService.GetWallet(c.UserContext(), uid, walletID)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "Wallet retrieved", w)
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return response.Unauthorized(c)
	}
	walletID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid wallet id")
	}
	bal, err := h.walletService.GetBalance(c.UserContext(), uid, walletID)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "Balance retrieved", bal)
}

func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return response.Unauthorized(c)
	}
	walletID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid wallet id")
	}

	p := pagination.ParseFromRequest(c, wallet.DefaultHistoryLimit, wallet.MaxHistoryLimit)
	txs, err := h.walletService.GetTransactionHistory(c.UserContext(), uid, walletID, p.Limit, p.Offset)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(pagination.Response(p, len(txs), txs))
}

func (h *WalletHandler) UpdateBankDetails(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return response.Unauthorized(c)
	}
	walletID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid wallet id")
	}
	var input wallet.BankDetailsInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	w, err := h.walletService.UpdateBankDetails(c.UserContext(), uid, walletID, input)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Success(c, "Bank details updated", w)
}

func (h *WalletHandler) Deposit(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return response.Unauthorized(c)
	}
	walletID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid wallet id")
	}
	var input wallet.DepositInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	tx, err := h.walletService.Deposit(c.UserContext(), uid, walletID, input)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Created(c, "Deposit initiated", fiber.Map{
		"transaction":   tx,
		"client_secret": tx.Metadata.String("client_secret"),
	})
}

func (h *WalletHandler) Withdraw(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return response.Unauthorized(c)
	}
	walletID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid wallet id")
	}
	var input wallet.WithdrawInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	tx, err := h.walletService.Withdraw(c.UserContext(), uid, walletID, input)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Created(c, "Withdrawal initiated", tx)
}

func (h *WalletHandler) Transfer(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return response.Unauthorized(c)
	}
	walletID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid wallet id")
	}
	var input wallet.TransferInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	tx, err := h.walletService.Transfer(c.UserContext(), uid, walletID, input)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return response.Created(c, "Transfer successful", tx)
}
