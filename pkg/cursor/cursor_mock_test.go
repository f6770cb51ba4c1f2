package cursor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/robinhood-client/robinhood-client-go/internal/mocks"
	"github.com/robinhood-client/robinhood-client-go/pkg/cursor"
)

func TestCursorFetchesTokensInOrder(t *testing.T) {
	mockController := gomock.NewController(t)
	defer mockController.Finish()

	ctx := context.Background()
	fetcher := mocks.NewMockPageFetcher[int](mockController)

	gomock.InOrder(
		fetcher.EXPECT().FetchPage(gomock.Any(), "").
			Return(&cursor.Page[int]{Items: []int{1, 2}, Next: "https://api.example.com/orders/?cursor=b"}, nil),
		fetcher.EXPECT().FetchPage(gomock.Any(), "https://api.example.com/orders/?cursor=b").
			Return(&cursor.Page[int]{Items: []int{3}, Previous: "https://api.example.com/orders/?cursor=a"}, nil),
	)

	c := cursor.New[int](fetcher, cursor.WithResource("orders"))
	all, err := c.All(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, all)

	// navigating back is served from history
	page, err := c.Previous(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, page.Items)
}

func TestCursorNeverFetchesOnConstruction(t *testing.T) {
	mockController := gomock.NewController(t)
	defer mockController.Finish()

	fetcher := mocks.NewMockPageFetcher[string](mockController)
	fetcher.EXPECT().FetchPage(gomock.Any(), gomock.Any()).Times(0)

	c := cursor.New[string](fetcher)
	require.Nil(t, c.CurrentPage())
	c.Reset()
}

func TestCursorErrorAfterFirstPage(t *testing.T) {
	ctx := context.Background()
	c := cursor.New[string](mocks.NewErrorFetcher([]string{"a"}))

	_, err := c.All(ctx)
	require.Error(t, err)

	// the first page remains current
	require.Equal(t, []string{"a"}, c.CurrentPage().Items)
	require.True(t, c.HasNext())
}

func TestCursorFetchHonoursContextDeadline(t *testing.T) {
	slow := mocks.NewMockSlowPageFetcher[string](cursor.NewStaticFetcher([]string{"a"}, 1), time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	c := cursor.New[string](slow)
	_, err := c.Next(ctx)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.False(t, c.Started())
}
