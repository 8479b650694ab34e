package payment

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	apperrors "propwallet/internal/errors"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"
	"go.uber.org/zap"
)

// StripeConfig configures a StripeGateway.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	// Backends overrides the API endpoint; nil uses Stripe's.
	Backends *stripe.Backends
}

// StripeGateway implements Gateway on stripe-go. It owns its own API client
// so no package-level stripe.Key is ever set.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	currency      string
	logger        *zap.Logger
}

var _ Gateway = (*StripeGateway)(nil)

func NewStripeGateway(cfg StripeConfig, logger *zap.Logger) *StripeGateway {
	if cfg.SecretKey == "" {
		panic("stripe secret key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	currency := cfg.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeGateway{
		api:           client.New(cfg.SecretKey, cfg.Backends),
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		logger:        logger,
	}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, metadata map[string]string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	cust, err := g.api.Customers.New(params)
	if err != nil {
		return "", g.classify("create customer", err)
	}
	return cust.ID, nil
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(ToMinorUnits(req.Amount)),
		Currency:           stripe.String(g.currencyOr(req.Currency)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, g.classify("create payment intent", err)
	}
	return toPaymentIntent(pi), nil
}

func (g *StripeGateway) RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, g.classify("retrieve payment intent", err)
	}
	return toPaymentIntent(pi), nil
}

func (g *StripeGateway) CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(ToMinorUnits(req.Amount)),
		Currency:    stripe.String(g.currencyOr(req.Currency)),
		Destination: stripe.String(req.Destination),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	tr, err := g.api.Transfers.New(params)
	if err != nil {
		return nil, g.classify("create transfer", err)
	}
	return toTransfer(tr), nil
}

func (g *StripeGateway) RetrieveTransfer(ctx context.Context, id string) (*Transfer, error) {
	params := &stripe.TransferParams{}
	params.Context = ctx

	tr, err := g.api.Transfers.Get(id, params)
	if err != nil {
		return nil, g.classify("retrieve transfer", err)
	}
	return toTransfer(tr), nil
}

// VerifyWebhook checks the signature header against the raw payload and
// decodes the object the event refers to.
func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*Event, error) {
	ev, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, apperrors.ErrSignatureInvalid.Wrap(err)
	}
	return decodeEvent(ev)
}

func decodeEvent(ev stripe.Event) (*Event, error) {
	out := &Event{ID: ev.ID, Type: ev.Type, Kind: KindFromType(ev.Type)}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return out, nil
	}

	switch out.Kind {
	case EventPaymentIntentSucceeded, EventPaymentIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, apperrors.Validation("malformed payment intent in event %s", ev.ID)
		}
		out.ObjectID = pi.ID
		if pi.LastPaymentError != nil {
			out.FailureReason = pi.LastPaymentError.Msg
		}
	case EventTransferCreated, EventTransferFailed, EventTransferReversed:
		var tr stripe.Transfer
		if err := json.Unmarshal(ev.Data.Raw, &tr); err != nil {
			return nil, apperrors.Validation("malformed transfer in event %s", ev.ID)
		}
		out.ObjectID = tr.ID
	}
	return out, nil
}

func (g *StripeGateway) currencyOr(c string) string {
	if c != "" {
		return c
	}
	return g.currency
}

// classify turns a stripe-go error into a gateway DomainError. Rate limits,
// 5xx responses and transport failures are transient; everything else is a
// rejection the caller should surface.
func (g *StripeGateway) classify(op string, err error) error {
	transient := true
	var serr *stripe.Error
	if stderrors.As(err, &serr) {
		transient = serr.HTTPStatusCode == http.StatusTooManyRequests ||
			serr.HTTPStatusCode >= http.StatusInternalServerError
		g.logger.Warn("stripe request failed",
			zap.String("op", op),
			zap.Int("status", serr.HTTPStatusCode),
			zap.String("code", string(serr.Code)),
			zap.String("request_id", serr.RequestID),
			zap.Bool("transient", transient))
	} else {
		g.logger.Warn("stripe unreachable", zap.String("op", op), zap.Error(err))
	}

	msg := fmt.Sprintf("%s failed", op)
	if !transient && serr != nil && serr.Msg != "" {
		msg = fmt.Sprintf("%s: %s", op, serr.Msg)
	}
	return apperrors.Gateway(msg, transient, err)
}

func toPaymentIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	out := &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       FromMinorUnits(pi.Amount),
	}
	if pi.LastPaymentError != nil {
		out.FailureReason = pi.LastPaymentError.Msg
	}
	return out
}

func toTransfer(tr *stripe.Transfer) *Transfer {
	return &Transfer{
		ID:       tr.ID,
		Amount:   FromMinorUnits(tr.Amount),
		Reversed: tr.Reversed,
	}
}
