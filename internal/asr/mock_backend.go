package asr

import "context"

// MockBackend is a test/dry-run Backend driven entirely by an injected
// function, for swapping real clients out in tests.
type MockBackend struct {
	Fn func(ctx context.Context, req Request) (Response, error)
}

// Transcribe delegates to Fn.
func (m MockBackend) Transcribe(ctx context.Context, req Request) (Response, error) {
	return m.Fn(ctx, req)
}
