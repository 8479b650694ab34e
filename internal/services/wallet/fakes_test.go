package wallet

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	apperrors "propwallet/internal/errors"
	"propwallet/internal/events"
	"propwallet/internal/lock"
	"propwallet/internal/models"
	"propwallet/internal/repositories"
	"propwallet/internal/services/payment"
	"propwallet/internal/utils/crypto"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory LedgerStore. RunAtomic restores a snapshot when
// fn fails, so partial writes never survive.
type memStore struct {
	mu   *sync.Mutex
	data *memData
	held bool

	// adjustErr, when set, is consulted before every balance adjustment.
	adjustErr func(walletID uuid.UUID, delta decimal.Decimal) error
}

type memData struct {
	wallets map[uuid.UUID]models.Wallet
	txs     map[uuid.UUID]models.WalletTransaction
	order   []uuid.UUID
}

func (d *memData) clone() *memData {
	c := &memData{
		wallets: make(map[uuid.UUID]models.Wallet, len(d.wallets)),
		txs:     make(map[uuid.UUID]models.WalletTransaction, len(d.txs)),
		order:   append([]uuid.UUID(nil), d.order...),
	}
	for k, v := range d.wallets {
		c.wallets[k] = v
	}
	for k, v := range d.txs {
		c.txs[k] = v
	}
	return c
}

var _ repositories.LedgerStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		mu: &sync.Mutex{},
		data: &memData{
			wallets: map[uuid.UUID]models.Wallet{},
			txs:     map[uuid.UUID]models.WalletTransaction{},
		},
	}
}

func (s *memStore) lock() func() {
	if s.held {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) FindWallet(_ context.Context, id, userID uuid.UUID) (*models.Wallet, error) {
	defer s.lock()()
	w, ok := s.data.wallets[id]
	if !ok || !w.IsActive || w.UserID != userID {
		return nil, apperrors.ErrWalletNotFound
	}
	return &w, nil
}

func (s *memStore) FindActiveWallet(_ context.Context, id uuid.UUID) (*models.Wallet, error) {
	defer s.lock()()
	w, ok := s.data.wallets[id]
	if !ok || !w.IsActive {
		return nil, apperrors.ErrWalletNotFound
	}
	return &w, nil
}

func (s *memStore) FindWalletByUser(_ context.Context, userID uuid.UUID) (*models.Wallet, error) {
	defer s.lock()()
	for _, w := range s.data.wallets {
		if w.UserID == userID && w.IsActive {
			return &w, nil
		}
	}
	return nil, apperrors.ErrWalletNotFound
}

func (s *memStore) FindTransaction(_ context.Context, f repositories.WalletTxFilter) (*models.WalletTransaction, error) {
	defer s.lock()()
	for _, id := range s.data.order {
		tx := s.data.txs[id]
		if matches(tx, f) {
			return &tx, nil
		}
	}
	return nil, apperrors.ErrTransactionNotFound
}

func matches(tx models.WalletTransaction, f repositories.WalletTxFilter) bool {
	switch {
	case f.ID != uuid.Nil && tx.ID != f.ID,
		f.WalletID != uuid.Nil && tx.WalletID != f.WalletID,
		f.UserID != uuid.Nil && tx.UserID != f.UserID,
		f.Type != "" && tx.Type != f.Type,
		f.Reference != "" && tx.Reference != f.Reference,
		f.StripePaymentIntentID != "" && tx.StripePaymentIntentID != f.StripePaymentIntentID,
		f.StripeTransferID != "" && tx.StripeTransferID != f.StripeTransferID:
		return false
	}
	return true
}

func (s *memStore) ListTransactions(_ context.Context, walletID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	defer s.lock()()
	var out []models.WalletTransaction
	for i := len(s.data.order) - 1; i >= 0; i-- {
		tx := s.data.txs[s.data.order[i]]
		if tx.WalletID == walletID {
			out = append(out, tx)
		}
	}
	if offset >= len(out) {
		return []models.WalletTransaction{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) ListStaleTransactions(_ context.Context, status models.TransactionStatus, txType models.TransactionType, olderThan time.Time, limit int) ([]models.WalletTransaction, error) {
	defer s.lock()()
	var out []models.WalletTransaction
	for _, id := range s.data.order {
		tx := s.data.txs[id]
		if tx.Status == status && tx.Type == txType && tx.CreatedAt.Before(olderThan) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) CreateWallet(_ context.Context, w *models.Wallet) error {
	defer s.lock()()
	for _, existing := range s.data.wallets {
		if existing.UserID == w.UserID && existing.IsActive {
			return apperrors.ErrDuplicateWallet
		}
	}
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	w.CreatedAt = time.Now()
	w.UpdatedAt = w.CreatedAt
	s.data.wallets[w.ID] = *w
	return nil
}

func (s *memStore) CreateTransaction(_ context.Context, tx *models.WalletTransaction) error {
	defer s.lock()()
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	tx.UpdatedAt = tx.CreatedAt
	s.data.txs[tx.ID] = *tx
	s.data.order = append(s.data.order, tx.ID)
	return nil
}

func (s *memStore) UpdateTransactionStatus(_ context.Context, id uuid.UUID, from, to models.TransactionStatus, reason string) error {
	defer s.lock()()
	tx, ok := s.data.txs[id]
	if !ok || tx.Status != from {
		return apperrors.ErrStaleTransaction
	}
	tx.Status = to
	if reason != "" {
		tx.FailureReason = reason
	}
	tx.UpdatedAt = time.Now()
	s.data.txs[id] = tx
	return nil
}

func (s *memStore) AdjustBalance(_ context.Context, walletID uuid.UUID, delta decimal.Decimal) error {
	defer s.lock()()
	if s.adjustErr != nil {
		if err := s.adjustErr(walletID, delta); err != nil {
			return err
		}
	}
	w, ok := s.data.wallets[walletID]
	if !ok || !w.IsActive {
		return apperrors.ErrWalletNotFound
	}
	next := w.Balance.Add(delta)
	if next.IsNegative() {
		return apperrors.ErrInsufficientBalance
	}
	w.Balance = next
	s.data.wallets[walletID] = w
	return nil
}

func (s *memStore) UpdateBankDetails(_ context.Context, walletID uuid.UUID, encrypted string) error {
	defer s.lock()()
	w, ok := s.data.wallets[walletID]
	if !ok {
		return apperrors.ErrWalletNotFound
	}
	w.EncryptedBankDetails = encrypted
	s.data.wallets[walletID] = w
	return nil
}

func (s *memStore) RunAtomic(_ context.Context, fn func(repositories.LedgerStore) error) error {
	if s.held {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	err := fn(&memStore{mu: s.mu, data: s.data, held: true, adjustErr: s.adjustErr})
	if err != nil {
		*s.data = *snapshot
	}
	return err
}

func (s *memStore) Ping(context.Context) error { return nil }

// Test helpers.

func (s *memStore) seedWallet(userID uuid.UUID, balance string) models.Wallet {
	defer s.lock()()
	w := models.Wallet{
		ID:               uuid.New(),
		UserID:           userID,
		Balance:          decimal.RequireFromString(balance),
		Currency:         DefaultCurrency,
		StripeCustomerID: "cus_" + userID.String()[:8],
		IsActive:         true,
		CreatedAt:        time.Now(),
	}
	s.data.wallets[w.ID] = w
	return w
}

func (s *memStore) balance(walletID uuid.UUID) decimal.Decimal {
	defer s.lock()()
	return s.data.wallets[walletID].Balance
}

func (s *memStore) tx(id uuid.UUID) models.WalletTransaction {
	defer s.lock()()
	return s.data.txs[id]
}

func (s *memStore) txCount() int {
	defer s.lock()()
	return len(s.data.txs)
}

func (s *memStore) backdate(id uuid.UUID, age time.Duration) {
	defer s.lock()()
	tx := s.data.txs[id]
	tx.CreatedAt = time.Now().Add(-age)
	s.data.txs[id] = tx
}

func (s *memStore) deactivate(walletID uuid.UUID) {
	defer s.lock()()
	w := s.data.wallets[walletID]
	w.IsActive = false
	s.data.wallets[walletID] = w
}

type mockGateway struct {
	mock.Mock
}

var _ payment.Gateway = (*mockGateway)(nil)

func (m *mockGateway) CreateCustomer(ctx context.Context, metadata map[string]string) (string, error) {
	args := m.Called(ctx, metadata)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CreatePaymentIntent(ctx context.Context, req payment.PaymentIntentRequest) (*payment.PaymentIntent, error) {
	args := m.Called(ctx, req)
	intent, _ := args.Get(0).(*payment.PaymentIntent)
	return intent, args.Error(1)
}

func (m *mockGateway) RetrievePaymentIntent(ctx context.Context, id string) (*payment.PaymentIntent, error) {
	args := m.Called(ctx, id)
	intent, _ := args.Get(0).(*payment.PaymentIntent)
	return intent, args.Error(1)
}

func (m *mockGateway) CreateTransfer(ctx context.Context, req payment.TransferRequest) (*payment.Transfer, error) {
	args := m.Called(ctx, req)
	tr, _ := args.Get(0).(*payment.Transfer)
	return tr, args.Error(1)
}

func (m *mockGateway) RetrieveTransfer(ctx context.Context, id string) (*payment.Transfer, error) {
	args := m.Called(ctx, id)
	tr, _ := args.Get(0).(*payment.Transfer)
	return tr, args.Error(1)
}

func (m *mockGateway) VerifyWebhook(payload []byte, signature string) (*payment.Event, error) {
	args := m.Called(payload, signature)
	ev, _ := args.Get(0).(*payment.Event)
	return ev, args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.LedgerEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.EventType)
	}
	return out
}

func (p *recordingPublisher) last() events.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type memEventLog struct {
	mu   sync.Mutex
	seen map[string]string
}

func (l *memEventLog) EventProcessed(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[id]
	return ok, nil
}

func (l *memEventLog) MarkEventProcessed(_ context.Context, id, kind string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[id]; ok {
		return false, nil
	}
	l.seen[id] = kind
	return true, nil
}

type harness struct {
	svc       Service
	store     *memStore
	gateway   *mockGateway
	locker    *lock.Manager
	publisher *recordingPublisher
	eventLog  *memEventLog
	enc       *crypto.XChaCha
}

func newHarness(t *testing.T, opts ...lock.Options) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredislib.NewClient(&goredislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	lockOpts := lock.Options{TTL: 5 * time.Second, Retries: 0, RetryDelay: 10 * time.Millisecond}
	if len(opts) > 0 {
		lockOpts = opts[0]
	}
	enc, err := crypto.NewXChaCha("test-secret")
	require.NoError(t, err)

	h := &harness{
		store:     newMemStore(),
		gateway:   &mockGateway{},
		locker:    lock.NewManager([]goredislib.UniversalClient{client}, lockOpts, nil),
		publisher: &recordingPublisher{},
		eventLog:  &memEventLog{seen: map[string]string{}},
		enc:       enc,
	}
	h.svc = NewService(Dependencies{
		Store:     h.store,
		Locker:    h.locker,
		Gateway:   h.gateway,
		Encrypter: enc,
		Publisher: h.publisher,
		EventLog:  h.eventLog,
	}, WalletConfig{MaxAmount: decimal.RequireFromString("10000")})
	return h
}

// assertLockFree fails when key is still held.
func (h *harness) assertLockFree(t *testing.T, key string) {
	t.Helper()
	l, err := h.locker.Acquire(context.Background(), []string{key}, time.Second)
	require.NoError(t, err, "lock %s still held", key)
	require.NoError(t, l.Release(context.Background()))
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
