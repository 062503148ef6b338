package availability

import (
	"errors"
)

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUnknownResource   = errors.New("unknown resource")
	ErrFetch             = errors.New("fetch failed")
	ErrParse             = errors.New("unexpected page structure")
	ErrNavigationTimeout = errors.New("navigation did not reach the target date")
	ErrAuthUnavailable   = errors.New("session state unavailable")
	ErrDelegateTimeout   = errors.New("delegate timed out")
)

// ErrorKind is the machine readable classification attached to failed records.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindInvalidRequest    ErrorKind = "invalid_request"
	KindUnknownResource   ErrorKind = "unknown_resource"
	KindFetchError        ErrorKind = "fetch_error"
	KindParseError        ErrorKind = "parse_error"
	KindNavigationTimeout ErrorKind = "navigation_timeout"
	KindAuthUnavailable   ErrorKind = "auth_unavailable"
	KindDelegateTimeout   ErrorKind = "delegate_timeout"
	KindInternal          ErrorKind = "internal"
)

var classification = []struct {
	err  error
	kind ErrorKind
}{
	// delegate timeouts wrap fetch errors, so they are matched first.
	{ErrDelegateTimeout, KindDelegateTimeout},
	{ErrInvalidRequest, KindInvalidRequest},
	{ErrUnknownResource, KindUnknownResource},
	{ErrNavigationTimeout, KindNavigationTimeout},
	{ErrAuthUnavailable, KindAuthUnavailable},
	{ErrParse, KindParseError},
	{ErrFetch, KindFetchError},
}

// Classify maps an error onto its ErrorKind, errors outside the taxonomy are internal.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, c := range classification {
		if errors.Is(err, c.err) {
			return c.kind
		}
	}
	return KindInternal
}

// Sentinel returns the sentinel error of a kind, it is the inverse of Classify and is
// used to rebuild errors that crossed a process boundary as strings.
func Sentinel(kind ErrorKind) error {
	for _, c := range classification {
		if c.kind == kind {
			return c.err
		}
	}
	return nil
}
