package resolve_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/robinhood-client/robinhood-client-go/internal/mocks"
	"github.com/robinhood-client/robinhood-client-go/pkg/logger"
	"github.com/robinhood-client/robinhood-client-go/pkg/resolve"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGetOrFetchSequentialCallsResolveOnce(t *testing.T) {
	mockController := gomock.NewController(t)
	defer mockController.Finish()

	resolver := mocks.NewMockResolver[string](mockController)
	resolver.EXPECT().Resolve(gomock.Any(), "X1").Return("AAPL", nil).Times(1)

	cache := resolve.NewCache[string](resolver)
	for range 3 {
		value, ok := cache.GetOrFetch(context.Background(), "X1")
		require.True(t, ok)
		require.Equal(t, "AAPL", value)
	}

	entry, ok := cache.Lookup("X1")
	require.True(t, ok)
	require.Equal(t, resolve.StateResolved, entry.State)
	require.Equal(t, "AAPL", entry.Value)
	require.NoError(t, entry.Err)
}

func TestGetOrFetchConcurrentCallsShareOneResolution(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	entered := make(chan struct{})

	resolver := resolve.ResolverFunc[string](func(ctx context.Context, key string) (string, error) {
		if calls.Add(1) == 1 {
			close(entered)
		}
		<-release
		return "MSFT", nil
	})
	cache := resolve.NewCache[string](resolver)

	const callers = 50
	results := make([]string, callers)
	oks := make([]bool, callers)

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := range callers {
		go func() {
			defer wg.Done()
			results[i], oks[i] = cache.GetOrFetch(context.Background(), "X2")
		}()
	}

	<-entered
	entry, ok := cache.Lookup("X2")
	require.True(t, ok)
	require.Equal(t, resolve.StatePending, entry.State)
	require.Equal(t, 1, cache.Stats().InFlight)

	// give the remaining callers time to join the flight
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for i := range callers {
		require.True(t, oks[i])
		require.Equal(t, "MSFT", results[i])
	}
	require.Equal(t, 0, cache.Stats().InFlight)
}

func TestGetOrFetchFailureIsRecordedNotRaised(t *testing.T) {
	l, logs := logger.NewObserverLogger("warn")
	cause := errors.New("404 not found")

	cache := resolve.NewCache[string](resolve.ResolverFunc[string](func(context.Context, string) (string, error) {
		return "", cause
	}), resolve.WithLogger(l), resolve.WithName("symbols"))

	value, ok := cache.GetOrFetch(context.Background(), "bad-id")
	require.False(t, ok)
	require.Empty(t, value)

	entry, found := cache.Lookup("bad-id")
	require.True(t, found)
	require.Equal(t, resolve.StateFailed, entry.State)
	require.ErrorIs(t, entry.Err, cause)

	var resolutionErr *resolve.ResolutionError
	require.ErrorAs(t, entry.Err, &resolutionErr)
	require.Equal(t, "bad-id", resolutionErr.Key)

	warnings := logs.FilterMessage("identifier resolution failed").All()
	require.Len(t, warnings, 1)
	require.Equal(t, "bad-id", warnings[0].ContextMap()["key"])
	require.Equal(t, "symbols", warnings[0].ContextMap()["cache"])
}

func TestGetOrFetchFailurePolicy(t *testing.T) {
	t.Run("retries_by_default", func(t *testing.T) {
		mockController := gomock.NewController(t)
		defer mockController.Finish()

		resolver := mocks.NewMockResolver[string](mockController)
		gomock.InOrder(
			resolver.EXPECT().Resolve(gomock.Any(), "X3").Return("", errors.New("timeout")),
			resolver.EXPECT().Resolve(gomock.Any(), "X3").Return("TSLA", nil),
		)

		cache := resolve.NewCache[string](resolver)
		_, ok := cache.GetOrFetch(context.Background(), "X3")
		require.False(t, ok)

		value, ok := cache.GetOrFetch(context.Background(), "X3")
		require.True(t, ok)
		require.Equal(t, "TSLA", value)
		require.Equal(t, resolve.Stats{Entries: 1, Resolved: 1}, cache.Stats())
	})

	t.Run("pinned_until_clear", func(t *testing.T) {
		mockController := gomock.NewController(t)
		defer mockController.Finish()

		resolver := mocks.NewMockResolver[string](mockController)
		gomock.InOrder(
			resolver.EXPECT().Resolve(gomock.Any(), "X3").Return("", errors.New("timeout")).Times(1),
			resolver.EXPECT().Resolve(gomock.Any(), "X3").Return("TSLA", nil).Times(1),
		)

		cache := resolve.NewCache[string](resolver, resolve.WithRetryFailed(false))
		for range 3 {
			_, ok := cache.GetOrFetch(context.Background(), "X3")
			require.False(t, ok)
		}
		require.Equal(t, resolve.Stats{Entries: 1, Failed: 1}, cache.Stats())

		cache.Clear()
		value, ok := cache.GetOrFetch(context.Background(), "X3")
		require.True(t, ok)
		require.Equal(t, "TSLA", value)
	})
}

func TestClear(t *testing.T) {
	var calls atomic.Int32
	cache := resolve.NewCache[string](resolve.ResolverFunc[string](func(_ context.Context, key string) (string, error) {
		calls.Add(1)
		return "sym-" + key, nil
	}))

	ctx := context.Background()
	cache.GetOrFetch(ctx, "a")
	cache.GetOrFetch(ctx, "b")
	require.Equal(t, resolve.Stats{Entries: 2, Resolved: 2}, cache.Stats())

	cache.Clear()
	require.Equal(t, resolve.Stats{}, cache.Stats())
	_, ok := cache.Lookup("a")
	require.False(t, ok)

	value, ok := cache.GetOrFetch(ctx, "a")
	require.True(t, ok)
	require.Equal(t, "sym-a", value)
	require.Equal(t, int32(3), calls.Load())
}

func TestClearDuringFlightDoesNotStoreOutcome(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})

	cache := resolve.NewCache[string](resolve.ResolverFunc[string](func(context.Context, string) (string, error) {
		close(entered)
		<-release
		return "stale", nil
	}))

	done := make(chan string)
	go func() {
		value, _ := cache.GetOrFetch(context.Background(), "k")
		done <- value
	}()

	<-entered
	cache.Clear()
	close(release)

	// the waiter still gets its answer
	require.Equal(t, "stale", <-done)

	_, ok := cache.Lookup("k")
	require.False(t, ok)
	require.Equal(t, resolve.Stats{}, cache.Stats())
}

func TestLookupUnknownKey(t *testing.T) {
	cache := resolve.NewCache[int](resolve.ResolverFunc[int](func(context.Context, string) (int, error) {
		return 0, nil
	}))

	_, ok := cache.Lookup("missing")
	require.False(t, ok)
	require.Equal(t, resolve.Stats{}, cache.Stats())
}

func TestGetOrFetchDoneContextReportsNoValue(t *testing.T) {
	var calls atomic.Int32
	cache := resolve.NewCache[string](resolve.ResolverFunc[string](func(context.Context, string) (string, error) {
		calls.Add(1)
		return "AAPL", nil
	}), resolve.WithRetryFailed(false))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := cache.GetOrFetch(ctx, "k")
	require.False(t, ok)
	require.Zero(t, calls.Load())

	_, found := cache.Lookup("k")
	require.False(t, found)

	value, ok := cache.GetOrFetch(context.Background(), "k")
	require.True(t, ok)
	require.Equal(t, "AAPL", value)
}

func TestGetOrFetchCallerCancellationDoesNotAffectOtherCallers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	resolver := resolve.ResolverFunc[string](func(ctx context.Context, _ string) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return "AAPL", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	cache := resolve.NewCache[string](resolver, resolve.WithRetryFailed(false))

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan bool, 1)
	go func() {
		_, ok := cache.GetOrFetch(ctx, "k")
		first <- ok
	}()

	<-started
	cancel()
	require.False(t, <-first)

	// the resolution is still running and nothing was recorded as failed
	entry, found := cache.Lookup("k")
	require.True(t, found)
	require.Equal(t, resolve.StatePending, entry.State)

	type outcome struct {
		value string
		ok    bool
	}
	second := make(chan outcome, 1)
	go func() {
		value, ok := cache.GetOrFetch(context.Background(), "k")
		second <- outcome{value, ok}
	}()

	close(release)
	got := <-second
	require.True(t, got.ok)
	require.Equal(t, "AAPL", got.value)

	entry, found = cache.Lookup("k")
	require.True(t, found)
	require.Equal(t, resolve.StateResolved, entry.State)
	require.Equal(t, int32(1), calls.Load())
}

func TestGetOrFetchWaiterHonoursItsOwnDeadline(t *testing.T) {
	slow := mocks.NewMockSlowResolver[string](resolve.ResolverFunc[string](func(context.Context, string) (string, error) {
		return "MSFT", nil
	}), 50*time.Millisecond)
	cache := resolve.NewCache[string](slow, resolve.WithRetryFailed(false))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok := cache.GetOrFetch(ctx, "k")
	require.False(t, ok)

	require.Eventually(t, func() bool {
		entry, found := cache.Lookup("k")
		return found && entry.State == resolve.StateResolved
	}, time.Second, 5*time.Millisecond)

	value, ok := cache.GetOrFetch(context.Background(), "k")
	require.True(t, ok)
	require.Equal(t, "MSFT", value)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "pending", resolve.StatePending.String())
	require.Equal(t, "resolved", resolve.StateResolved.String())
	require.Equal(t, "failed", resolve.StateFailed.String())
	require.Equal(t, "State(7)", resolve.State(7).String())
}
