package cursor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewResultFetchesFirstPage(t *testing.T) {
	fetcher := fivePages()
	result, err := NewResult(context.Background(), New[string](fetcher))
	require.NoError(t, err)

	require.Equal(t, 2, result.Len())
	require.Equal(t, []string{"a", "b"}, result.Items())
	require.Equal(t, "page-2", result.NextToken())
	require.Empty(t, result.PreviousToken())
	require.Len(t, fetcher.calls, 1)

	_, ok := result.Count()
	require.False(t, ok)
}

func TestNewResultPropagatesFetchError(t *testing.T) {
	fetcher := fivePages()
	fetcher.failOn[""] = errors.New("unavailable")

	_, err := NewResult(context.Background(), New[string](fetcher))
	require.Error(t, err)
}

func TestResultAt(t *testing.T) {
	fetcher := fivePages()
	result, err := NewResult(context.Background(), New[string](fetcher))
	require.NoError(t, err)

	item, err := result.At(1)
	require.NoError(t, err)
	require.Equal(t, "b", item)

	for _, idx := range []int{-1, 2, 100} {
		_, err = result.At(idx)
		require.ErrorIs(t, err, ErrIndexOutOfRange)
	}

	// indexing past the page never triggers a fetch
	require.Len(t, fetcher.calls, 1)
}

func TestResultIterator(t *testing.T) {
	ctx := context.Background()
	fetcher := fivePages()
	result, err := NewResult(ctx, New[string](fetcher))
	require.NoError(t, err)

	items, err := Drain(ctx, result.Iterator())
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, items)
	require.Equal(t, []string{"", "page-2", "page-3"}, fetcher.calls)

	// the cursor followed the iteration
	require.Equal(t, []string{"e"}, result.Items())
}

func TestResultIteratorStop(t *testing.T) {
	ctx := context.Background()
	fetcher := fivePages()
	result, err := NewResult(ctx, New[string](fetcher))
	require.NoError(t, err)

	it := result.Iterator()
	item, err := it.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", item)

	it.Stop()
	_, err = it.Next(ctx)
	require.ErrorIs(t, err, ErrIteratorDone)
	require.Len(t, fetcher.calls, 1)
}

func TestResultIteratorRetriesAfterError(t *testing.T) {
	ctx := context.Background()
	fetcher := fivePages()
	fetcher.failOn["page-3"] = errors.New("timeout")

	result, err := NewResult(ctx, New[string](fetcher))
	require.NoError(t, err)

	it := result.Iterator()
	var got []string
	for range 4 {
		item, err := it.Next(ctx)
		require.NoError(t, err)
		got = append(got, item)
	}

	_, err = it.Next(ctx)
	require.EqualError(t, err, "timeout")

	delete(fetcher.failOn, "page-3")
	item, err := it.Next(ctx)
	require.NoError(t, err)
	got = append(got, item)

	_, err = it.Next(ctx)
	require.ErrorIs(t, err, ErrIteratorDone)
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
}

func TestResultIteratorCancelledContext(t *testing.T) {
	result, err := NewResult(context.Background(), New[string](fivePages()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = result.Iterator().Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestResultSeq(t *testing.T) {
	ctx := context.Background()

	t.Run("full_walk", func(t *testing.T) {
		result, err := NewResult(ctx, New[string](fivePages()))
		require.NoError(t, err)

		var got []string
		for item, err := range result.Seq(ctx) {
			require.NoError(t, err)
			got = append(got, item)
		}
		require.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
	})

	t.Run("early_break_fetches_nothing_more", func(t *testing.T) {
		fetcher := fivePages()
		result, err := NewResult(ctx, New[string](fetcher))
		require.NoError(t, err)

		for item, err := range result.Seq(ctx) {
			require.NoError(t, err)
			require.Equal(t, "a", item)
			break
		}
		require.Len(t, fetcher.calls, 1)
	})

	t.Run("yields_error", func(t *testing.T) {
		fetcher := fivePages()
		fetcher.failOn["page-2"] = errors.New("bad gateway")
		result, err := NewResult(ctx, New[string](fetcher))
		require.NoError(t, err)

		var errs []error
		var got []string
		for item, err := range result.Seq(ctx) {
			if err != nil {
				errs = append(errs, err)
				continue
			}
			got = append(got, item)
		}
		require.Equal(t, []string{"a", "b"}, got)
		require.Len(t, errs, 1)
	})
}

func TestResultCollectRestartsFromFirstPage(t *testing.T) {
	ctx := context.Background()
	result, err := NewResult(ctx, New[string](fivePages()))
	require.NoError(t, err)

	_, err = result.Cursor().Next(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "d"}, result.Items())

	all, err := result.Collect(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, all)
}

func TestResultCountFromServer(t *testing.T) {
	result, err := NewResult(context.Background(), New[string](NewStaticFetcher([]string{"x", "y", "z"}, 2)))
	require.NoError(t, err)

	count, ok := result.Count()
	require.True(t, ok)
	require.Equal(t, 3, count)
}

func TestStaticIterator(t *testing.T) {
	items, err := Drain(context.Background(), NewStaticIterator([]int{1, 2, 3}))
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, items)
}
