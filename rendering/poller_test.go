package rendering

import (
	"context"
	"errors"
	"factoriotech/domain"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testHash = domain.MustParseHash("deab61eafb24af64f133cce738dfbabd")

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// delayedStore starts answering with data once availableAt has passed
type delayedStore struct {
	availableAt time.Time
	data        []byte
	err         error
	calls       atomic.Int32
}

func (d *delayedStore) TryLoad(ctx context.Context, hash domain.Hash, renderingType domain.RenderingType) ([]byte, bool, error) {
	d.calls.Add(1)

	if d.err != nil {
		return nil, false, d.err
	}

	if time.Now().Before(d.availableAt) {
		return nil, false, nil
	}

	return d.data, true, nil
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestPollerReturnsPreseededRenderingWithoutWaiting(t *testing.T) {
	store := &delayedStore{data: []byte("png")}
	logger, logs := newObservedLogger()
	poller := NewPoller(store, time.Second, 10*time.Second, logger)

	started := time.Now()
	data, err := poller.Load(context.Background(), testHash, domain.RenderingFull)

	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.EqualValues(t, 1, store.calls.Load())
	assert.Less(t, time.Since(started), 500*time.Millisecond)
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestPollerReturnsRenderingOnceItAppears(t *testing.T) {
	const delay = 100 * time.Millisecond
	const interval = 20 * time.Millisecond

	started := time.Now()
	store := &delayedStore{availableAt: started.Add(delay), data: []byte("png")}
	logger, logs := newObservedLogger()
	poller := NewPoller(store, interval, time.Second, logger)

	data, err := poller.Load(context.Background(), testHash, domain.RenderingThumb)
	elapsed := time.Since(started)

	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.GreaterOrEqual(t, elapsed, delay)
	assert.Less(t, elapsed, delay+interval+100*time.Millisecond)
	assert.Greater(t, store.calls.Load(), int32(1))

	retries := logs.FilterMessage("Rendering not found; will retry")
	assert.Equal(t, int(store.calls.Load())-1, retries.Len())
	assert.Zero(t, logs.FilterMessage("Rendering not found; giving up").Len())

	fields := retries.All()[0].ContextMap()
	assert.Equal(t, "Thumb", fields["type"])
	assert.Equal(t, testHash.String(), fields["hash"])
	assert.Equal(t, "missing", fields["outcome"])
}

func TestPollerGivesUpAfterTimeout(t *testing.T) {
	const interval = 20 * time.Millisecond
	const timeout = 200 * time.Millisecond

	store := &delayedStore{availableAt: time.Now().Add(time.Hour)}
	logger, logs := newObservedLogger()
	poller := NewPoller(store, interval, timeout, logger)

	started := time.Now()
	data, err := poller.Load(context.Background(), testHash, domain.RenderingFull)
	elapsed := time.Since(started)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, data)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+interval+150*time.Millisecond)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.NotEmpty(t, warnings)
	assert.Equal(t, "Rendering not found; giving up", warnings[len(warnings)-1].Message)
	assert.Equal(t, int(store.calls.Load()), logs.FilterMessage("Rendering not found; will retry").Len())
}

func TestPollerRejectsEmptyHashBeforePolling(t *testing.T) {
	store := &delayedStore{}
	poller := NewPoller(store, time.Millisecond, time.Second, zap.NewNop())

	_, err := poller.Load(context.Background(), domain.Hash{}, domain.RenderingFull)

	assert.ErrorIs(t, err, domain.ErrInvalidHash)
	assert.Zero(t, store.calls.Load())
}

func TestPollerRejectsUnknownTypeBeforePolling(t *testing.T) {
	store := &delayedStore{}
	poller := NewPoller(store, time.Millisecond, time.Second, zap.NewNop())

	_, err := poller.Load(context.Background(), testHash, domain.RenderingType(42))

	assert.ErrorIs(t, err, domain.ErrInvalidRenderingType)
	assert.Zero(t, store.calls.Load())
}

func TestPollerStopsOnBackendFailure(t *testing.T) {
	cause := errors.New("connection refused")
	store := &delayedStore{err: cause}
	poller := NewPoller(store, time.Millisecond, time.Second, zap.NewNop())

	_, err := poller.Load(context.Background(), testHash, domain.RenderingFull)

	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.EqualValues(t, 1, store.calls.Load())
}

func TestPollerStopsWhenContextIsCancelled(t *testing.T) {
	store := &delayedStore{availableAt: time.Now().Add(time.Hour)}
	poller := NewPoller(store, 50*time.Millisecond, 10*time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(80*time.Millisecond, cancel)

	started := time.Now()
	_, err := poller.Load(ctx, testHash, domain.RenderingFull)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(started), time.Second)
}

func TestPollerConcurrentCallsConverge(t *testing.T) {
	store := &delayedStore{availableAt: time.Now().Add(60 * time.Millisecond), data: []byte("png")}
	poller := NewPoller(store, 10*time.Millisecond, time.Second, zap.NewNop())

	const callers = 8
	results := make([][]byte, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = poller.Load(context.Background(), testHash, domain.RenderingFull)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []byte("png"), results[i])
	}
}

// One second of the documented scenario is scaled down to 10ms: the
// rendering appears at "t=5s" and is picked up on the "t=6s" tick.
func TestPollerScenarioScaled(t *testing.T) {
	const second = 10 * time.Millisecond

	started := time.Now()
	store := &delayedStore{availableAt: started.Add(5 * second), data: []byte("png")}
	poller := NewPoller(store, 2*second, 30*second, zap.NewNop())

	data, err := poller.Load(context.Background(), testHash, domain.RenderingFull)
	elapsed := time.Since(started)

	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.GreaterOrEqual(t, elapsed, 4*second)
	assert.Less(t, elapsed, 6*second+100*time.Millisecond)
}

func TestNewPollerDefaults(t *testing.T) {
	poller := NewPoller(&delayedStore{}, 0, -1, zap.NewNop())

	assert.Equal(t, DefaultInterval, poller.Interval())
	assert.Equal(t, DefaultTimeout, poller.Timeout())
}
