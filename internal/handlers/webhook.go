package handlers

import (
	"propwallet/internal/services/wallet"
	"propwallet/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const stripeSignatureHeader = "Stripe-Signature"

type WebhookHandler struct {
	walletService wallet.Service
	logger        *zap.Logger
}

func NewWebhookHandler(walletService wallet.Service, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{walletService: walletService, logger: logger.Named("webhook")}
}

// Stripe acknowledges a processor event. Any non-2xx answer makes the
// processor redeliver later.
func (h *WebhookHandler) Stripe(c *fiber.Ctx) error {
	signature := c.Get(stripeSignatureHeader)
	if signature == "" {
		return response.Error(c, fiber.StatusUnauthorized, "missing signature")
	}

	// The body is only valid for the lifetime of the request.
	payload := append([]byte(nil), c.Body()...)
	if err := h.walletService.HandleWebhook(c.UserContext(), payload, signature); err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"received": true})
}
