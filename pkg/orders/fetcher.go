package orders

import (
	"context"
	"net/url"

	"github.com/robinhood-client/robinhood-client-go/pkg/cursor"
	"github.com/robinhood-client/robinhood-client-go/pkg/httpclient"
)

// pageResponse is the envelope of every paginated listing.
type pageResponse[T any] struct {
	Results  []T    `json:"results"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Count    *int   `json:"count"`
}

// newPageFetcher returns a PageFetcher over a listing endpoint. The first page
// is requested with params; every other page is addressed by the absolute
// next or previous URL returned by the server, which already carries them.
func newPageFetcher[T any](client *httpclient.Client, endpoint string, params url.Values) cursor.PageFetcher[T] {
	return cursor.PageFetcherFunc[T](func(ctx context.Context, token string) (*cursor.Page[T], error) {
		var resp pageResponse[T]

		var err error
		if token == "" {
			err = client.GetJSON(ctx, endpoint, params, &resp)
		} else {
			err = client.GetJSON(ctx, token, nil, &resp)
		}
		if err != nil {
			return nil, err
		}

		return &cursor.Page[T]{
			Items:    resp.Results,
			Next:     resp.Next,
			Previous: resp.Previous,
			Count:    resp.Count,
		}, nil
	})
}
