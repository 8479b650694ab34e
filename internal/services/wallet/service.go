package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "propwallet/internal/errors"
	"propwallet/internal/events"
	"propwallet/internal/lock"
	"propwallet/internal/models"
	"propwallet/internal/repositories"
	"propwallet/internal/services/payment"
	"propwallet/internal/utils/crypto"
	"propwallet/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Dependencies are the collaborators of the wallet service. Publisher,
// EventLog, Metrics and Logger are optional.
type Dependencies struct {
	Store     repositories.LedgerStore
	Locker    lock.Locker
	Gateway   payment.Gateway
	Encrypter crypto.Encrypter
	Publisher events.Publisher
	EventLog  EventLog
	Metrics   MetricsCollector
	Logger    *zap.Logger
}

type service struct {
	store     repositories.LedgerStore
	locker    lock.Locker
	gateway   payment.Gateway
	encrypter crypto.Encrypter
	publisher events.Publisher
	eventLog  EventLog
	metrics   MetricsCollector
	logger    *zap.Logger
	validator *validation.Validator
	config    WalletConfig
}

// NewService creates a new wallet service
func NewService(deps Dependencies, config WalletConfig) Service {
	if deps.Store == nil {
		panic("store is required")
	}
	if deps.Locker == nil {
		panic("locker is required")
	}
	if deps.Gateway == nil {
		panic("gateway is required")
	}
	if deps.Encrypter == nil {
		panic("encrypter is required")
	}

	if config.Currency == "" {
		config.Currency = DefaultCurrency
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}
	if config.ReconcileBatch <= 0 {
		config.ReconcileBatch = DefaultBatchSize
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = DefaultPublishTimeout
	}

	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	// Metrics is optional, create no-op collector if nil
	if deps.Metrics == nil {
		deps.Metrics = &NoopMetricsCollector{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &service{
		store:     deps.Store,
		locker:    deps.Locker,
		gateway:   deps.Gateway,
		encrypter: deps.Encrypter,
		publisher: deps.Publisher,
		eventLog:  deps.EventLog,
		metrics:   deps.Metrics,
		logger:    deps.Logger.Named("wallet"),
		validator: validation.New(),
		config:    config,
	}
}

func (s *service) CreateWallet(ctx context.Context, userID uuid.UUID, in CreateWalletInput) (w *models.Wallet, err error) {
	defer s.track(opCreateWallet, time.Now(), &err)

	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	existing, err := s.store.FindWalletByUser(ctx, userID)
	switch {
	case err == nil && existing != nil:
		return nil, apperrors.ErrDuplicateWallet
	case err != nil && !errors.Is(err, apperrors.ErrWalletNotFound):
		return nil, err
	}

	customerID := in.StripeCustomerID
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(ctx, map[string]string{"user_id": userID.String()})
		if err != nil {
			return nil, err
		}
	}

	bank, err := s.seal(in.BankDetails)
	if err != nil {
		return nil, err
	}

	w = &models.Wallet{
		UserID:               userID,
		Balance:              decimal.Zero,
		FrozenBalance:        decimal.Zero,
		Currency:             s.config.Currency,
		StripeCustomerID:     customerID,
		EncryptedBankDetails: bank,
		IsActive:             true,
	}
	if err := s.store.CreateWallet(ctx, w); err != nil {
		return nil, err
	}

	s.logger.Info("wallet created",
		zap.String("wallet_id", w.ID.String()),
		zap.String("user_id", userID.String()))
	return w, nil
}

func (s *service) GetWallet(ctx context.Context, userID, walletID uuid.UUID) (*models.Wallet, error) {
	return s.store.FindWallet(ctx, walletID, userID)
}

func (s *service) GetUserWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return s.store.FindWalletByUser(ctx, userID)
}

func (s *service) GetBalance(ctx context.Context, userID, walletID uuid.UUID) (*models.WalletBalance, error) {
	w, err := s.store.FindWallet(ctx, walletID, userID)
	if err != nil {
		return nil, err
	}
	return &models.WalletBalance{
		WalletID:      w.ID,
		Balance:       w.Balance,
		FrozenBalance: w.FrozenBalance,
		Currency:      w.Currency,
	}, nil
}

func (s *service) UpdateBankDetails(ctx context.Context, userID, walletID uuid.UUID, in BankDetailsInput) (w *models.Wallet, err error) {
	defer s.track(opUpdateBank, time.Now(), &err)

	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	w, err = s.store.FindWallet(ctx, walletID, userID)
	if err != nil {
		return nil, err
	}
	sealed, err := s.seal(in.BankDetails)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateBankDetails(ctx, w.ID, sealed); err != nil {
		return nil, err
	}
	w.EncryptedBankDetails = sealed
	return w, nil
}

func (s *service) GetTransactionHistory(ctx context.Context, userID, walletID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	if _, err := s.store.FindWallet(ctx, walletID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListTransactions(ctx, walletID, limit, offset)
}

func (s *service) GetTransaction(ctx context.Context, txID, userID uuid.UUID) (*models.WalletTransaction, error) {
	return s.store.FindTransaction(ctx, repositories.WalletTxFilter{ID: txID, UserID: userID})
}

// validateAmount runs before any lock is taken.
func (s *service) validateAmount(amount decimal.Decimal) error {
	if !validation.ValidAmount(amount) {
		return apperrors.ErrInvalidAmount.WithMessage("amount must be positive with at most two decimal places")
	}
	if s.config.MaxAmount.IsPositive() && amount.GreaterThan(s.config.MaxAmount) {
		return apperrors.ErrInvalidAmount.WithMessage("amount exceeds the maximum of %s", s.config.MaxAmount.StringFixed(2))
	}
	return nil
}

func (s *service) seal(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	sealed, err := s.encrypter.Encrypt(plain)
	if err != nil {
		return "", apperrors.Internal("failed to encrypt sensitive details", err)
	}
	return sealed, nil
}

// byReference returns the transaction a previous attempt with the same
// reference created on walletID, or nil.
func (s *service) byReference(ctx context.Context, walletID uuid.UUID, txType models.TransactionType, ref string) (*models.WalletTransaction, error) {
	if ref == "" {
		return nil, nil
	}
	tx, err := s.store.FindTransaction(ctx, repositories.WalletTxFilter{WalletID: walletID, Type: txType, Reference: ref})
	if errors.Is(err, apperrors.ErrTransactionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *service) withLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return lock.WithLock(ctx, s.locker, []string{key}, s.config.LockTTL, fn)
}

// publish runs after commit. A lost event never undoes a committed mutation.
func (s *service) publish(ctx context.Context, eventType string, tx *models.WalletTransaction, mutate ...func(*events.LedgerEvent)) {
	s.recordTx(tx)
	ev := events.FromTransaction(eventType, tx)
	ev.Currency = s.config.Currency
	for _, m := range mutate {
		m(&ev)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.PublishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("ledger event not published",
			zap.String("event_type", eventType),
			zap.String("transaction_id", tx.ID.String()),
			zap.Error(err))
	}
}

func txFields(tx *models.WalletTransaction) []zap.Field {
	return []zap.Field{
		zap.String("transaction_id", tx.ID.String()),
		zap.String("wallet_id", tx.WalletID.String()),
		zap.String("type", string(tx.Type)),
		zap.String("status", string(tx.Status)),
		zap.String("amount", tx.Amount.StringFixed(2)),
	}
}

func (s *service) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	switch apperrors.KindOf(err) {
	case apperrors.KindGateway, apperrors.KindLockUnavailable, apperrors.KindInternal:
		s.logger.Error(fmt.Sprintf("%s failed", op), fields...)
	default:
		s.logger.Debug(fmt.Sprintf("%s rejected", op), fields...)
	}
}
