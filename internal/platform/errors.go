// README: Typed gateway failures so callers branch on kind instead of error text.
package platform

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindTransport     Kind = "transport"
	KindUnauthorized  Kind = "unauthorized"
	KindForbidden     Kind = "forbidden"
	KindNotFound      Kind = "not_found"
	KindStateMismatch Kind = "state_mismatch"
	KindUpstream      Kind = "upstream"
	KindDecode        Kind = "decode"
)

// Error is returned by every Client call that does not succeed.
type Error struct {
	Kind       Kind
	StatusCode int
	Method     string
	Path       string
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s %s: %s (HTTP %d): %s", e.Method, e.Path, e.Kind, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: %s (HTTP %d)", e.Method, e.Path, e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the gateway kind of err, or "" when err did not come from the gateway.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsRetryable is true only for transport failures; the caller decides whether to retry.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransport
}

// IsAuth covers both rejected (401) and insufficient (403) credentials.
func IsAuth(err error) bool {
	k := KindOf(err)
	return k == KindUnauthorized || k == KindForbidden
}

// classify maps an HTTP status to a Kind. Mutations are told apart so a 404 on a POST reads
// as "the ride cannot take this transition now" rather than a missing resource.
func classify(status int, mutation bool) Kind {
	switch {
	case status == 401:
		return KindUnauthorized
	case status == 403:
		return KindForbidden
	case status == 404 && mutation:
		return KindStateMismatch
	case status == 404:
		return KindNotFound
	case (status == 409 || status == 422) && mutation:
		return KindStateMismatch
	default:
		return KindUpstream
	}
}
