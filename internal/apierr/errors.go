// Package apierr provides shared error sentinels and retry infrastructure
// for HTTP-based API clients. All provider-specific error types are
// classified into these sentinels at the adapter boundary.
//
// Providers map HTTP status codes to these errors using fmt.Errorf("%s: %w", msg, sentinel).
// Callers check with errors.Is(err, apierr.ErrRateLimit) etc.
package apierr

import "errors"

// Sentinel errors for API interaction failures.
var (
	// ErrRateLimit indicates the API rate limit was exceeded (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the API quota was exceeded (billing issue, not retryable).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates API authentication failed (invalid key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")

	// ErrServer indicates a provider-side failure (5xx) not otherwise classified.
	ErrServer = errors.New("server error")

	// ErrUnknown indicates a failure that does not map to any known sentinel.
	ErrUnknown = errors.New("unknown error")
)

// Kind is the closed taxonomy of transport-level failure classes used to map
// a provider error onto a message status_reason.
type Kind string

const (
	KindTimeout Kind = "timeout"
	KindAuth    Kind = "auth"
	KindQuota   Kind = "quota"
	KindClient  Kind = "client"
	KindServer  Kind = "server"
	KindUnknown Kind = "unknown"
)

// Classify maps err onto the closed Kind taxonomy by matching it against the
// sentinel errors above via errors.Is. Rate limiting is treated as a client
// condition: retryable, but not a server fault.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrAuthFailed):
		return KindAuth
	case errors.Is(err, ErrQuotaExceeded):
		return KindQuota
	case errors.Is(err, ErrRateLimit), errors.Is(err, ErrBadRequest):
		return KindClient
	case errors.Is(err, ErrServer):
		return KindServer
	default:
		return KindUnknown
	}
}

// Retryable reports whether a Kind is worth retrying under backoff. Auth and
// quota failures will not be resolved by retrying; client/server/timeout
// failures may be transient.
func (k Kind) Retryable() bool {
	switch k {
	case KindAuth, KindQuota:
		return false
	default:
		return true
	}
}
