package orders

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// DefaultPageSize is the page size used when a request does not set one.
const DefaultPageSize = 10

var ErrInvalidRequest = errors.New("invalid request")

// StockOrderRequest addresses a single stock order.
type StockOrderRequest struct {
	// AccountNumber is optional; the order id is unique across accounts.
	AccountNumber string
	OrderID       string

	// ResolveSymbols overrides the client default when set.
	ResolveSymbols *bool
}

func (r StockOrderRequest) validate() error {
	return validateOrderID(r.OrderID)
}

// StockOrdersRequest lists the stock orders of an account.
type StockOrdersRequest struct {
	AccountNumber string
	// PageSize defaults to the client page size when zero.
	PageSize int
	// StartDate, when set, excludes orders created before it.
	StartDate time.Time

	// ResolveSymbols overrides the client default when set.
	ResolveSymbols *bool
}

func (r StockOrdersRequest) validate() error {
	return validateListing(r.AccountNumber, r.PageSize)
}

func (r StockOrdersRequest) params(defaultPageSize int) url.Values {
	return listingParams(r.AccountNumber, r.PageSize, r.StartDate, defaultPageSize)
}

// OptionsOrderRequest addresses a single options order.
type OptionsOrderRequest struct {
	AccountNumber string
	OrderID       string
}

func (r OptionsOrderRequest) validate() error {
	return validateOrderID(r.OrderID)
}

// OptionsOrdersRequest lists the options orders of an account.
type OptionsOrdersRequest struct {
	AccountNumber string
	PageSize      int
	StartDate     time.Time
}

func (r OptionsOrdersRequest) validate() error {
	return validateListing(r.AccountNumber, r.PageSize)
}

func (r OptionsOrdersRequest) params(defaultPageSize int) url.Values {
	return listingParams(r.AccountNumber, r.PageSize, r.StartDate, defaultPageSize)
}

func validateOrderID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: order id is required", ErrInvalidRequest)
	}
	return nil
}

func validateListing(accountNumber string, pageSize int) error {
	if accountNumber == "" {
		return fmt.Errorf("%w: account number is required", ErrInvalidRequest)
	}
	if pageSize < 0 {
		return fmt.Errorf("%w: page size must not be negative, got %d", ErrInvalidRequest, pageSize)
	}
	return nil
}

func listingParams(accountNumber string, pageSize int, startDate time.Time, defaultPageSize int) url.Values {
	if pageSize == 0 {
		pageSize = defaultPageSize
	}

	params := url.Values{}
	params.Set("account_number", accountNumber)
	params.Set("page_size", strconv.Itoa(pageSize))
	if !startDate.IsZero() {
		params.Set("start_date", formatStartDate(startDate))
	}
	return params
}

// formatStartDate renders a calendar date as YYYY-MM-DD and any other instant in RFC 3339.
func formatStartDate(t time.Time) string {
	hour, minute, sec := t.Clock()
	if hour == 0 && minute == 0 && sec == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}

func accountParams(accountNumber string) url.Values {
	if accountNumber == "" {
		return nil
	}
	return url.Values{"account_number": []string{accountNumber}}
}
