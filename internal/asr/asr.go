// Package asr provides a provider-agnostic facade over speech-recognition
// backends: callers invoke Client.Transcribe with a chunk window and get
// back normalized text, independent of which backend answered.
package asr

import (
	"context"
	"time"

	"github.com/alnah/chatpipeline/internal/apierr"
)

// Request is one chunk-transcription call.
type Request struct {
	WavPath      string
	StartSec     float64
	EndSec       float64
	LanguageHint string // "auto" or an ISO 639-1 code
	Model        string
}

// Response is a backend's normalized transcription result.
type Response struct {
	Text     string
	Language string
}

// Backend is a single ASR provider implementation.
type Backend interface {
	Transcribe(ctx context.Context, req Request) (Response, error)
}

// Client wraps a Backend with a per-call timeout and retry policy over the
// apierr taxonomy: auth/quota failures are not retried, everything else is.
type Client struct {
	backend    Backend
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-call wall-clock budget.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithMaxRetries sets the retry budget after the first attempt.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryDelays sets the exponential backoff bounds.
func WithRetryDelays(base, max time.Duration) ClientOption {
	return func(c *Client) {
		if base > 0 {
			c.baseDelay = base
		}
		if max > 0 {
			c.maxDelay = max
		}
	}
}

// NewClient wraps backend with the given options.
func NewClient(backend Backend, opts ...ClientOption) *Client {
	c := &Client{
		backend:    backend,
		timeout:    60 * time.Second,
		maxRetries: 3,
		baseDelay:  time.Second,
		maxDelay:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe invokes the backend with retry-with-backoff, classifying each
// failure via apierr and retrying only transient kinds.
func (c *Client) Transcribe(ctx context.Context, req Request) (Response, error) {
	cfg := apierr.RetryConfig{MaxRetries: c.maxRetries, BaseDelay: c.baseDelay, MaxDelay: c.maxDelay}

	return apierr.RetryWithBackoff(ctx, cfg, func() (Response, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.backend.Transcribe(callCtx, req)
	}, func(err error) bool {
		return apierr.Classify(err).Retryable()
	})
}
