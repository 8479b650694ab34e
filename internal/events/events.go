// Package events publishes ledger events to Kafka after a wallet mutation commits.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"propwallet/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Event types.
const (
	DepositInitiated     = "deposit.initiated"
	DepositCompleted     = "deposit.completed"
	DepositFailed        = "deposit.failed"
	WithdrawalInitiated  = "withdrawal.initiated"
	WithdrawalCompleted  = "withdrawal.completed"
	WithdrawalFailed     = "withdrawal.failed"
	TransferCompleted    = "transfer.completed"
	TransactionCancelled = "transaction.cancelled"
)

// LedgerEvent is the message body. Events for one wallet share a partition key.
type LedgerEvent struct {
	EventType       string                   `json:"event_type"`
	TransactionID   uuid.UUID                `json:"transaction_id"`
	WalletID        uuid.UUID                `json:"wallet_id"`
	UserID          uuid.UUID                `json:"user_id"`
	CounterpartyID  *uuid.UUID               `json:"counterparty_wallet_id,omitempty"`
	TransactionType models.TransactionType   `json:"transaction_type"`
	Status          models.TransactionStatus `json:"status"`
	Amount          decimal.Decimal          `json:"amount"`
	Currency        string                   `json:"currency,omitempty"`
	FailureReason   string                   `json:"failure_reason,omitempty"`
	OccurredAt      time.Time                `json:"occurred_at"`
}

// FromTransaction builds an event of eventType describing tx.
func FromTransaction(eventType string, tx *models.WalletTransaction) LedgerEvent {
	return LedgerEvent{
		EventType:       eventType,
		TransactionID:   tx.ID,
		WalletID:        tx.WalletID,
		UserID:          tx.UserID,
		TransactionType: tx.Type,
		Status:          tx.Status,
		Amount:          tx.Amount,
		FailureReason:   tx.FailureReason,
		OccurredAt:      time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
	Close() error
}

// NoopPublisher drops every event. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, LedgerEvent) error { return nil }
func (NoopPublisher) Close() error                               { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON keyed by wallet id.
type KafkaPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(msg, args...))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Warn(fmt.Sprintf(msg, args...))
		}),
	}
	return newKafkaPublisher(writer, logger)
}

func newKafkaPublisher(w messageWriter, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{writer: w, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event LedgerEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType, err)
	}
	msg := kafka.Message{
		Key:   []byte(event.WalletID.String()),
		Value: body,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", event.EventType, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// New returns a Kafka publisher, or a NoopPublisher when brokers is empty.
func New(brokers []string, topic string, logger *zap.Logger) Publisher {
	if len(brokers) == 0 {
		return NoopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic, logger)
}
