// Package lock provides named distributed locks held on a quorum of
// independent redis nodes.
package lock

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	apperrors "propwallet/internal/errors"

	"github.com/go-redsync/redsync/v4"
	redsyncredis "github.com/go-redsync/redsync/v4/redis"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const releaseTimeout = 5 * time.Second

// Options tune acquisition. Zero values fall back to the defaults below.
type Options struct {
	TTL         time.Duration
	Retries     int
	RetryDelay  time.Duration
	RetryJitter time.Duration
	DriftFactor float64
}

// DefaultOptions mirror the production settings.
var DefaultOptions = Options{
	TTL:         30 * time.Second,
	Retries:     10,
	RetryDelay:  200 * time.Millisecond,
	RetryJitter: 200 * time.Millisecond,
	DriftFactor: 0.01,
}

// Locker is what the wallet service needs from the lock manager.
type Locker interface {
	Acquire(ctx context.Context, keys []string, ttl time.Duration) (*Lock, error)
}

// Manager hands out locks backed by redsync.
type Manager struct {
	rs     *redsync.Redsync
	opts   Options
	logger *zap.Logger
}

var _ Locker = (*Manager)(nil)

// NewManager builds a manager over one client per independent redis node.
// A lock is held once a majority of the nodes granted it.
func NewManager(clients []goredislib.UniversalClient, opts Options, logger *zap.Logger) *Manager {
	if len(clients) == 0 {
		panic("lock: at least one redis client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pools := make([]redsyncredis.Pool, 0, len(clients))
	for _, c := range clients {
		pools = append(pools, goredis.NewPool(c))
	}
	return &Manager{
		rs:     redsync.New(pools...),
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultOptions.TTL
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultOptions.RetryDelay
	}
	if o.RetryJitter < 0 {
		o.RetryJitter = 0
	}
	if o.DriftFactor <= 0 {
		o.DriftFactor = DefaultOptions.DriftFactor
	}
	return o
}

// Acquire takes every key or none. Keys are sorted and deduplicated so two
// callers locking overlapping sets always contend in the same order.
// A ttl of zero uses the configured default.
func (m *Manager) Acquire(ctx context.Context, keys []string, ttl time.Duration) (*Lock, error) {
	keys = normalize(keys)
	if len(keys) == 0 {
		return nil, apperrors.Validation("no lock keys given")
	}
	if ttl <= 0 {
		ttl = m.opts.TTL
	}

	l := &Lock{keys: keys, logger: m.logger}
	for _, key := range keys {
		mutex := m.rs.NewMutex(key,
			redsync.WithExpiry(ttl),
			redsync.WithTries(m.opts.Retries+1),
			redsync.WithRetryDelayFunc(m.retryDelay),
			redsync.WithDriftFactor(m.opts.DriftFactor),
		)
		if err := mutex.LockContext(ctx); err != nil {
			m.logger.Warn("lock unavailable",
				zap.String("key", key),
				zap.Strings("keys", keys),
				zap.Error(err))
			l.Release(ctx)
			return nil, apperrors.ErrLockUnavailable.Wrap(fmt.Errorf("acquire %s: %w", key, err))
		}
		l.mutexes = append(l.mutexes, mutex)
	}
	return l, nil
}

func (m *Manager) retryDelay(int) time.Duration {
	if m.opts.RetryJitter <= 0 {
		return m.opts.RetryDelay
	}
	return m.opts.RetryDelay + time.Duration(rand.Int63n(int64(m.opts.RetryJitter)))
}

// heldMutex is the part of *redsync.Mutex a Lock uses once acquired.
type heldMutex interface {
	Name() string
	UnlockContext(ctx context.Context) (bool, error)
	ExtendContext(ctx context.Context) (bool, error)
}

// Lock is a held set of keys.
type Lock struct {
	keys    []string
	mutexes []heldMutex
	logger  *zap.Logger
}

// Keys returns the locked keys in acquisition order.
func (l *Lock) Keys() []string {
	return l.keys
}

// Release unlocks every held key in reverse order. Failures are logged and
// reported but never abort the remaining releases; an expired key simply
// lapses on its own.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	var firstErr error
	for i := len(l.mutexes) - 1; i >= 0; i-- {
		mutex := l.mutexes[i]
		ok, err := mutex.UnlockContext(ctx)
		if err == nil && ok {
			continue
		}
		if err == nil {
			err = fmt.Errorf("release %s: not held", mutex.Name())
		} else {
			err = fmt.Errorf("release %s: %w", mutex.Name(), err)
		}
		l.logger.Warn("lock release failed",
			zap.String("key", mutex.Name()),
			zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}
	l.mutexes = nil
	return firstErr
}

// Extend renews every held key for another full TTL.
func (l *Lock) Extend(ctx context.Context) error {
	for _, mutex := range l.mutexes {
		ok, err := mutex.ExtendContext(ctx)
		if err != nil {
			return apperrors.ErrLockUnavailable.Wrap(fmt.Errorf("extend %s: %w", mutex.Name(), err))
		}
		if !ok {
			return apperrors.ErrLockUnavailable.Wrap(fmt.Errorf("extend %s: not extended", mutex.Name()))
		}
	}
	return nil
}

// WithLock runs fn while holding keys. The lock is released whatever fn returns.
func WithLock(ctx context.Context, locker Locker, keys []string, ttl time.Duration, fn func(ctx context.Context) error) error {
	l, err := locker.Acquire(ctx, keys, ttl)
	if err != nil {
		return err
	}
	defer l.Release(ctx)
	return fn(ctx)
}

func normalize(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
