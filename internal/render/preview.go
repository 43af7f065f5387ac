package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/alnah/chatpipeline/internal/message"
)

// PreviewWriter streams a one-line-per-voice-message preview of transcripts
// as they complete during M3, ahead of the final sorted chat_with_audio.txt.
// Writes are serialized behind a mutex so concurrent workers never interleave
// a partial line, satisfying the append-only, whole-line-atomic requirement
// for the preview stream.
type PreviewWriter struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewPreviewWriter wraps an already-open, append-mode writer (typically a
// file opened with os.O_APPEND|os.O_CREATE|os.O_WRONLY).
func NewPreviewWriter(w io.Writer) *PreviewWriter {
	return &PreviewWriter{w: w}
}

// WriteMessage appends one rendered line for m. Safe for concurrent use.
func (p *PreviewWriter) WriteMessage(m message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPreviewClosed
	}
	line := renderLine(m)
	if _, err := fmt.Fprintln(p.w, line); err != nil {
		return fmt.Errorf("append preview line for idx %d: %w", m.Idx, err)
	}
	return nil
}

// Close marks the writer closed; subsequent WriteMessage calls fail fast.
// It does not close the underlying io.Writer, which the caller owns.
func (p *PreviewWriter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
