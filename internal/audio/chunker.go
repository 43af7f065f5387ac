package audio

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// Chunk describes one fixed window extracted from a normalized audio file.
type Chunk struct {
	Index    int
	StartSec float64
	EndSec   float64
	Path     string
}

// DurationSec returns the window's length.
func (c Chunk) DurationSec() float64 {
	return c.EndSec - c.StartSec
}

// ChunkConfig controls window size and overlap. Overlap must be strictly
// less than Window.
type ChunkConfig struct {
	Window  time.Duration
	Overlap time.Duration
}

// DefaultChunkConfig is the reference window: 120s with a 0.25s overlap.
var DefaultChunkConfig = ChunkConfig{
	Window:  120 * time.Second,
	Overlap: 250 * time.Millisecond,
}

func (c ChunkConfig) validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive", ErrInvalidOverlap)
	}
	if c.Overlap < 0 || c.Overlap >= c.Window {
		return fmt.Errorf("%w: overlap %v must be in [0, %v)", ErrInvalidOverlap, c.Overlap, c.Window)
	}
	return nil
}

// Chunker splits a normalized PCM file into fixed, overlapping windows at a
// deterministic path, independent of worker count or host.
type Chunker struct {
	ffmpegPath string
	cmd        commandRunner
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithChunkerCommandRunner overrides the command runner (for testing).
func WithChunkerCommandRunner(r commandRunner) ChunkerOption {
	return func(c *Chunker) { c.cmd = r }
}

// NewChunker constructs a Chunker bound to ffmpegPath.
func NewChunker(ffmpegPath string, opts ...ChunkerOption) (*Chunker, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty")
	}
	c := &Chunker{ffmpegPath: ffmpegPath, cmd: osCommandRunner{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Chunk splits pcmPath into windows under <destDir>/chunks/chunk_{i:04d}.wav.
// The manifest is built in index order with rounded float boundaries so
// repeated runs over identical input are byte-comparable.
func (c *Chunker) Chunk(ctx context.Context, pcmPath, destDir string, cfg ChunkConfig) ([]Chunk, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	total, err := c.probeDuration(ctx, pcmPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	if total <= 0 {
		return nil, ErrEmptySource
	}

	chunksDir := filepath.Join(destDir, "chunks")
	if err := os.MkdirAll(chunksDir, 0755); err != nil {
		return nil, fmt.Errorf("create chunks dir: %w", err)
	}

	step := cfg.Window - cfg.Overlap
	var chunks []Chunk
	for i := 0; ; i++ {
		start := time.Duration(i) * step
		if start >= total {
			break
		}
		end := min(start+cfg.Window, total)
		if end-start <= 0 {
			break
		}

		path := filepath.Join(chunksDir, fmt.Sprintf("chunk_%04d.wav", i))
		if err := c.extractChunk(ctx, pcmPath, path, start, end); err != nil {
			return nil, err
		}

		chunks = append(chunks, Chunk{
			Index:    i,
			StartSec: roundSeconds(start.Seconds()),
			EndSec:   roundSeconds(end.Seconds()),
			Path:     path,
		})

		if end >= total {
			break
		}
	}

	return chunks, nil
}

// extractChunk extracts [start, end) from pcmPath into a mono 16kHz PCM WAV.
func (c *Chunker) extractChunk(ctx context.Context, pcmPath, chunkPath string, start, end time.Duration) error {
	args := []string{
		"-y",
		"-i", pcmPath,
		"-ss", formatFFmpegTime(start),
		"-to", formatFFmpegTime(end),
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		chunkPath,
	}
	output, err := c.cmd.CombinedOutput(ctx, c.ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("%w: chunk %s: %v\noutput: %s", ErrChunkingFailed, chunkPath, err, string(output))
	}
	return nil
}

// probeDuration reports the duration of an audio file via ffmpeg's own
// stderr-logged file info; ffmpeg returns non-zero for a no-output probe, so
// the output is parsed regardless of exit status.
func (c *Chunker) probeDuration(ctx context.Context, path string) (time.Duration, error) {
	args := []string{"-i", path, "-f", "null", "-"}
	output, err := c.cmd.CombinedOutput(ctx, c.ffmpegPath, args)
	if err != nil && len(output) == 0 {
		return 0, err
	}
	return parseDurationFromFFmpegOutput(string(output))
}

// roundSeconds rounds to 3 decimal places for stable cross-run equality.
func roundSeconds(s float64) float64 {
	return math.Round(s*1000) / 1000
}

// parseDurationFromFFmpegOutput extracts a duration from FFmpeg stderr text:
// "Duration: HH:MM:SS.ms" first, falling back to the last "time=HH:MM:SS.ms".
func parseDurationFromFFmpegOutput(output string) (time.Duration, error) {
	durationRe := regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
	if matches := durationRe.FindStringSubmatch(output); matches != nil {
		return parseTimeComponents(matches[1], matches[2], matches[3], matches[4])
	}

	timeRe := regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)
	allMatches := timeRe.FindAllStringSubmatch(output, -1)
	if len(allMatches) > 0 {
		matches := allMatches[len(allMatches)-1]
		return parseTimeComponents(matches[1], matches[2], matches[3], matches[4])
	}

	return 0, fmt.Errorf("could not parse duration from ffmpeg output")
}

// parseTimeComponents converts HH:MM:SS.ms strings to a Duration.
func parseTimeComponents(hours, minutes, seconds, fractional string) (time.Duration, error) {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	frac, _ := strconv.Atoi(fractional)
	ms := frac
	switch n := len(fractional); {
	case n == 1:
		ms = frac * 100
	case n == 2:
		ms = frac * 10
	case n == 3:
	case n > 3:
		for i := n; i > 3; i-- {
			ms /= 10
		}
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// formatFFmpegTime formats a duration for FFmpeg -ss/-to arguments.
func formatFFmpegTime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := d.Seconds() - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}
