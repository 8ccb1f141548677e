// internal/feed/errors.go
package feed

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch matches every listing retrieval failure via errors.Is.
	ErrFetch = errors.New("listing fetch failed")

	// ErrBadStatus is returned for non-2xx listing responses.
	ErrBadStatus = errors.New("unexpected listing status")

	// ErrMalformedPayload is returned when the listing body cannot be decoded.
	ErrMalformedPayload = errors.New("malformed listing payload")
)

// FetchError wraps a listing failure with the endpoint and the failing step.
type FetchError struct {
	URL string
	Op  string
	Err error
}

// Error реализует интерфейс error
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch listing [%s] %s: %v", e.Op, e.URL, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrFetch) hold for any FetchError.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

func newFetchError(url, op string, err error) error {
	return &FetchError{URL: url, Op: op, Err: err}
}
