package enrich_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/robinhood-client/robinhood-client-go/internal/mocks"
	"github.com/robinhood-client/robinhood-client-go/pkg/cursor"
	"github.com/robinhood-client/robinhood-client-go/pkg/enrich"
	"github.com/robinhood-client/robinhood-client-go/pkg/resolve"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type order struct {
	ID         string
	Instrument string
}

func instrumentKey(o order) (string, bool) {
	return o.Instrument, o.Instrument != ""
}

func symbolResolver(calls *atomic.Int32) resolve.Resolver[string] {
	return resolve.ResolverFunc[string](func(_ context.Context, key string) (string, error) {
		calls.Add(1)
		if strings.HasPrefix(key, "bad") {
			return "", errors.New("instrument not found")
		}
		return "SYM-" + key, nil
	})
}

func TestEnrichOneFailingKey(t *testing.T) {
	var calls atomic.Int32
	p := enrich.New[order, string](resolve.NewCache(symbolResolver(&calls)), instrumentKey)

	items := []order{
		{ID: "1", Instrument: "A"},
		{ID: "2", Instrument: "B"},
		{ID: "3", Instrument: "bad"},
		{ID: "4", Instrument: "C"},
		{ID: "5", Instrument: "D"},
	}

	records := p.Enrich(context.Background(), items)
	require.Len(t, records, 5)

	resolved := 0
	for i, record := range records {
		require.Equal(t, items[i], record.Item)
		if record.Resolved {
			resolved++
			require.Equal(t, "SYM-"+items[i].Instrument, record.Value)
		} else {
			require.Equal(t, "3", record.Item.ID)
			require.Empty(t, record.Value)
		}
	}
	require.Equal(t, 4, resolved)
}

func TestEnrichDeduplicatesKeys(t *testing.T) {
	mockController := gomock.NewController(t)
	defer mockController.Finish()

	resolver := mocks.NewMockResolver[string](mockController)
	resolver.EXPECT().Resolve(gomock.Any(), "X1").Return("AAPL", nil).Times(1)
	resolver.EXPECT().Resolve(gomock.Any(), "X2").Return("MSFT", nil).Times(1)

	p := enrich.New[order, string](resolve.NewCache[string](resolver), instrumentKey, enrich.WithMaxConcurrency(4))
	records := p.Enrich(context.Background(), []order{
		{ID: "1", Instrument: "X1"},
		{ID: "2", Instrument: "X2"},
		{ID: "3", Instrument: "X1"},
		{ID: "4", Instrument: "X1"},
	})

	values := make([]string, 0, len(records))
	for _, record := range records {
		require.True(t, record.Resolved)
		values = append(values, record.Value)
	}
	require.Equal(t, []string{"AAPL", "MSFT", "AAPL", "AAPL"}, values)
}

func TestEnrichKeylessRecordsAreKept(t *testing.T) {
	var calls atomic.Int32
	p := enrich.New[order, string](resolve.NewCache(symbolResolver(&calls)), instrumentKey)

	items := []order{{ID: "1"}, {ID: "2", Instrument: "A"}, {ID: "3"}}
	records := p.Enrich(context.Background(), items)

	want := []enrich.Record[order, string]{
		{Item: items[0]},
		{Item: items[1], Value: "SYM-A", Resolved: true},
		{Item: items[2]},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("unexpected records (-want +got):\n%s", diff)
	}
	require.Equal(t, int32(1), calls.Load())
}

func TestEnrichEmpty(t *testing.T) {
	var calls atomic.Int32
	p := enrich.New[order, string](resolve.NewCache(symbolResolver(&calls)), instrumentKey)

	require.Empty(t, p.Enrich(context.Background(), nil))
	require.Nil(t, p.EnrichPage(context.Background(), nil))
	require.Zero(t, calls.Load())
}

func TestEnrichPageKeepsTokens(t *testing.T) {
	var calls atomic.Int32
	p := enrich.New[order, string](resolve.NewCache(symbolResolver(&calls)), instrumentKey)

	count := 9
	page := p.EnrichPage(context.Background(), &cursor.Page[order]{
		Items:    []order{{ID: "1", Instrument: "A"}},
		Next:     "next-url",
		Previous: "previous-url",
		Count:    &count,
	})

	require.Equal(t, "next-url", page.Next)
	require.Equal(t, "previous-url", page.Previous)
	require.Equal(t, 9, *page.Count)
	require.Equal(t, "SYM-A", page.Items[0].Value)
}

func TestFetcherSharesCacheAcrossCursors(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	cache := resolve.NewCache(symbolResolver(&calls))
	p := enrich.New[order, string](cache, instrumentKey)

	source := []order{
		{ID: "1", Instrument: "A"},
		{ID: "2", Instrument: "B"},
		{ID: "3", Instrument: "A"},
		{ID: "4", Instrument: "bad-1"},
		{ID: "5", Instrument: "B"},
	}

	first := cursor.New[enrich.Record[order, string]](p.Fetcher(cursor.NewStaticFetcher(source, 2)))
	records, err := first.All(ctx)
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i, record := range records {
		require.Equal(t, source[i], record.Item)
	}
	require.False(t, records[3].Resolved)

	// A and B are cached; the failed key is retried
	require.Equal(t, int32(3), calls.Load())

	second := cursor.New[enrich.Record[order, string]](p.Fetcher(cursor.NewStaticFetcher(source, 5)))
	_, err = second.All(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(4), calls.Load())

	require.Equal(t, resolve.Stats{Entries: 3, Resolved: 2, Failed: 1}, cache.Stats())
}

func TestFetcherPropagatesFetchErrors(t *testing.T) {
	var calls atomic.Int32
	p := enrich.New[order, string](resolve.NewCache(symbolResolver(&calls)), instrumentKey)

	c := cursor.New[enrich.Record[order, string]](p.Fetcher(mocks.NewErrorFetcher([]order{{ID: "1", Instrument: "A"}})))
	_, err := c.All(context.Background())
	require.Error(t, err)

	require.Equal(t, "SYM-A", c.CurrentPage().Items[0].Value)
}
