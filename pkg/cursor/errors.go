package cursor

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrIteratorDone is returned by Iterator.Next once every page has been consumed.
var ErrIteratorDone = errors.New("iterator done")

// ErrIndexOutOfRange is returned when an index does not address an item of the current page.
var ErrIndexOutOfRange = errors.New("index out of range for current page")

// ErrInvalidPageToken is returned when a page token cannot be interpreted by a fetcher.
var ErrInvalidPageToken = errors.New("invalid page token")

func encodeOffset(offset int) string {
	return strconv.Itoa(offset)
}

func decodeOffset(token string) (int, error) {
	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPageToken, token)
	}
	return offset, nil
}
