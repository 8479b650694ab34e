// Package payment wraps the external payment processor behind a small
// interface the wallet service can fake in tests.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Gateway is the payment processor as seen by the wallet service.
// Every call may fail with a *errors.DomainError of KindGateway; its
// Transient flag tells whether retrying can help.
type Gateway interface {
	CreateCustomer(ctx context.Context, metadata map[string]string) (string, error)
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
	CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error)
	RetrieveTransfer(ctx context.Context, id string) (*Transfer, error)
	VerifyWebhook(payload []byte, signature string) (*Event, error)
}

// Payment intent statuses the wallet service cares about.
const (
	IntentSucceeded      = "succeeded"
	IntentCanceled       = "canceled"
	IntentProcessing     = "processing"
	IntentRequiresAction = "requires_action"
)

type PaymentIntentRequest struct {
	Amount         decimal.Decimal
	Currency       string
	CustomerID     string
	IdempotencyKey string
	Metadata       map[string]string
}

type PaymentIntent struct {
	ID            string
	ClientSecret  string
	Status        string
	Amount        decimal.Decimal
	FailureReason string
}

// Succeeded reports whether the funds were captured.
func (p *PaymentIntent) Succeeded() bool {
	return p.Status == IntentSucceeded
}

type TransferRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Destination    string
	IdempotencyKey string
	Metadata       map[string]string
}

type Transfer struct {
	ID       string
	Amount   decimal.Decimal
	Reversed bool
}

// EventKind tags the webhook events the wallet reacts to.
type EventKind int

const (
	EventIgnored EventKind = iota
	EventPaymentIntentSucceeded
	EventPaymentIntentFailed
	EventTransferCreated
	EventTransferFailed
	EventTransferReversed
)

func (k EventKind) String() string {
	switch k {
	case EventPaymentIntentSucceeded:
		return "payment_intent.succeeded"
	case EventPaymentIntentFailed:
		return "payment_intent.payment_failed"
	case EventTransferCreated:
		return "transfer.created"
	case EventTransferFailed:
		return "transfer.failed"
	case EventTransferReversed:
		return "transfer.reversed"
	default:
		return "ignored"
	}
}

// KindFromType maps a processor event type to its EventKind.
func KindFromType(eventType string) EventKind {
	switch eventType {
	case "payment_intent.succeeded":
		return EventPaymentIntentSucceeded
	case "payment_intent.payment_failed":
		return EventPaymentIntentFailed
	case "transfer.created":
		return EventTransferCreated
	case "transfer.failed":
		return EventTransferFailed
	case "transfer.reversed":
		return EventTransferReversed
	default:
		return EventIgnored
	}
}

// Event is a verified webhook delivery. ObjectID is the payment intent id
// or transfer id the event refers to.
type Event struct {
	ID            string
	Type          string
	Kind          EventKind
	ObjectID      string
	FailureReason string
}

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts an amount to integer cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts integer cents back to a two-place amount.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
