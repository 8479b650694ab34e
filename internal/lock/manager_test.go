package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "propwallet/internal/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T, nodes int, opts Options) (*Manager, []*miniredis.Miniredis) {
	t.Helper()
	servers := make([]*miniredis.Miniredis, 0, nodes)
	clients := make([]goredislib.UniversalClient, 0, nodes)
	for i := 0; i < nodes; i++ {
		s := miniredis.RunT(t)
		c := goredislib.NewClient(&goredislib.Options{Addr: s.Addr()})
		t.Cleanup(func() { c.Close() })
		servers = append(servers, s)
		clients = append(clients, c)
	}
	return NewManager(clients, opts, nil), servers
}

func fastOptions() Options {
	return Options{TTL: 5 * time.Second, Retries: 0, RetryDelay: 10 * time.Millisecond}
}

func TestAcquire_ExclusiveUntilReleased(t *testing.T) {
	m, _ := newTestManager(t, 3, fastOptions())
	ctx := context.Background()
	key := WalletKey(uuid.New())

	first, err := m.Acquire(ctx, []string{key}, 0)
	require.NoError(t, err)

	_, err = m.Acquire(ctx, []string{key}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrLockUnavailable))
	assert.True(t, apperrors.IsRetryable(err))

	require.NoError(t, first.Release(ctx))

	second, err := m.Acquire(ctx, []string{key}, 0)
	require.NoError(t, err)
	require.NoError(t, second.Release(ctx))
}

func TestAcquire_QuorumSurvivesOneNodeDown(t *testing.T) {
	m, servers := newTestManager(t, 3, fastOptions())
	servers[2].Close()

	l, err := m.Acquire(context.Background(), []string{"transaction:x:lock"}, 0)
	require.NoError(t, err)
	assert.NoError(t, l.Extend(context.Background()))
	l.Release(context.Background())
}

func TestAcquire_FailsWithoutQuorum(t *testing.T) {
	m, servers := newTestManager(t, 3, fastOptions())
	servers[1].Close()
	servers[2].Close()

	_, err := m.Acquire(context.Background(), []string{"wallet:y:lock"}, 0)
	assert.True(t, errors.Is(err, apperrors.ErrLockUnavailable))
}

func TestAcquire_MultiKeyRollsBackPartialAcquisition(t *testing.T) {
	m, _ := newTestManager(t, 1, fastOptions())
	ctx := context.Background()

	holder, err := m.Acquire(ctx, []string{"b"}, 0)
	require.NoError(t, err)

	_, err = m.Acquire(ctx, []string{"b", "a"}, 0)
	require.Error(t, err)

	// "a" sorts first and was taken before "b" failed; it must be free again.
	a, err := m.Acquire(ctx, []string{"a"}, 0)
	require.NoError(t, err)
	a.Release(ctx)
	holder.Release(ctx)
}

func TestAcquire_SortsAndDeduplicatesKeys(t *testing.T) {
	m, _ := newTestManager(t, 1, fastOptions())
	l, err := m.Acquire(context.Background(), []string{"z", "a", "z", ""}, 0)
	require.NoError(t, err)
	defer l.Release(context.Background())

	assert.Equal(t, []string{"a", "z"}, l.Keys())
}

func TestAcquire_NoKeys(t *testing.T) {
	m, _ := newTestManager(t, 1, fastOptions())
	_, err := m.Acquire(context.Background(), nil, 0)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestAcquire_ExpiresAfterTTL(t *testing.T) {
	m, servers := newTestManager(t, 1, fastOptions())
	ctx := context.Background()

	_, err := m.Acquire(ctx, []string{"k"}, time.Second)
	require.NoError(t, err)

	servers[0].FastForward(2 * time.Second)

	l, err := m.Acquire(ctx, []string{"k"}, 0)
	require.NoError(t, err)
	l.Release(ctx)
}

func TestRelease_NilLockIsNoop(t *testing.T) {
	var l *Lock
	assert.NoError(t, l.Release(context.Background()))
}

type stubMutex struct {
	name string
	ok   bool
	err  error
}

func (s stubMutex) Name() string { return s.name }
func (s stubMutex) UnlockContext(context.Context) (bool, error) { return s.ok, s.err }
func (s stubMutex) ExtendContext(context.Context) (bool, error) { return s.ok, s.err }

func TestRelease_ReportsKeysNoLongerHeld(t *testing.T) {
	l := &Lock{
		keys: []string{"a", "b"},
		mutexes: []heldMutex{
			stubMutex{name: "a", ok: true},
			stubMutex{name: "b", ok: false},
		},
		logger: zap.NewNop(),
	}

	err := l.Release(context.Background())
	require.Error(t, err)
	assert.Equal(t, "release b: not held", err.Error())
	assert.NotContains(t, err.Error(), "%!")
}

func TestRelease_StolenKeyIsReported(t *testing.T) {
	m, servers := newTestManager(t, 1, fastOptions())
	ctx := context.Background()

	l, err := m.Acquire(ctx, []string{"wallet:stolen:lock"}, 0)
	require.NoError(t, err)
	require.NoError(t, servers[0].Set("wallet:stolen:lock", "someone-else"))

	err = l.Release(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "release wallet:stolen:lock")
	assert.NotContains(t, err.Error(), "%!")
}

func TestWithLock_ReleasesOnError(t *testing.T) {
	m, _ := newTestManager(t, 1, fastOptions())
	ctx := context.Background()
	boom := errors.New("gateway down")

	err := WithLock(ctx, m, []string{"w"}, 0, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	l, err := m.Acquire(ctx, []string{"w"}, 0)
	require.NoError(t, err)
	l.Release(ctx)
}

func TestWithLock_MutualExclusion(t *testing.T) {
	m, _ := newTestManager(t, 3, Options{TTL: 5 * time.Second, Retries: 200, RetryDelay: 5 * time.Millisecond, RetryJitter: 5 * time.Millisecond})
	ctx := context.Background()

	var inside, maxInside, done int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLock(ctx, m, []string{"shared"}, 0, func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					cur := atomic.LoadInt32(&maxInside)
					if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				atomic.AddInt32(&done, 1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, int32(8), done)
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("6f1c2e9a-3b1d-4c55-9a2e-0f5b7c1d2e3f")
	assert.Equal(t, "wallet:6f1c2e9a-3b1d-4c55-9a2e-0f5b7c1d2e3f:lock", WalletKey(id))
	assert.Equal(t, "transaction:6f1c2e9a-3b1d-4c55-9a2e-0f5b7c1d2e3f:lock", TransactionKey(id))
}
