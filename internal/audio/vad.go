package audio

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/chatpipeline/internal/message"
)

// silencePoint is a detected silence interval in the source audio.
type silencePoint struct {
	start time.Duration
	end   time.Duration
}

// VADConfig controls the mostly-silence thresholds; detection parameters are
// fixed to values tuned for voice-note speech.
type VADConfig struct {
	NoiseDB          float64 // silencedetect threshold, default -30dB
	MinSilence       time.Duration
	RatioThreshold   float64 // vad_min_speech_ratio
	SecondsThreshold float64 // vad_min_speech_seconds
}

// DefaultVADConfig holds the silencedetect parameters (-30dB noise floor,
// 0.5s minimum silence); its speech thresholds are left at zero.
var DefaultVADConfig = VADConfig{
	NoiseDB:    -30.0,
	MinSilence: 500 * time.Millisecond,
}

// VADDetector computes observational speech statistics over normalized
// audio. Its output never influences status or status_reason.
type VADDetector struct {
	ffmpegPath string
	cmd        commandRunner
}

// VADDetectorOption configures a VADDetector.
type VADDetectorOption func(*VADDetector)

// WithVADCommandRunner overrides the command runner (for testing).
func WithVADCommandRunner(r commandRunner) VADDetectorOption {
	return func(d *VADDetector) { d.cmd = r }
}

// NewVADDetector constructs a VADDetector bound to ffmpegPath.
func NewVADDetector(ffmpegPath string, opts ...VADDetectorOption) *VADDetector {
	d := &VADDetector{ffmpegPath: ffmpegPath, cmd: osCommandRunner{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Analyze runs silencedetect over path and derives speech statistics. A
// detection failure is returned as an error; callers treat VAD as best-effort
// and may proceed with zero-value stats rather than failing the transcription.
func (d *VADDetector) Analyze(ctx context.Context, path string, cfg VADConfig) (message.VADStats, error) {
	args := []string{
		"-i", path,
		"-af", fmt.Sprintf("silencedetect=noise=%ddB:d=%.2f", int(cfg.NoiseDB), cfg.MinSilence.Seconds()),
		"-f", "null", "-",
	}
	output, err := d.cmd.CombinedOutput(ctx, d.ffmpegPath, args)
	if err != nil && len(output) == 0 {
		return message.VADStats{}, err
	}

	text := string(output)
	silences := parseSilenceOutput(text)
	total, err := parseDurationFromFFmpegOutput(text)
	if err != nil {
		return message.VADStats{}, fmt.Errorf("could not determine audio duration: %w", err)
	}

	speechSeconds, segments := speechIntervals(silences, total)
	totalSeconds := total.Seconds()

	var ratio float64
	if totalSeconds > 0 {
		ratio = speechSeconds / totalSeconds
	}

	stats := message.VADStats{
		SpeechRatio:   roundSeconds(ratio),
		SpeechSeconds: roundSeconds(speechSeconds),
		TotalSeconds:  roundSeconds(totalSeconds),
		Segments:      segments,
	}
	stats.IsMostlySilence = ratio < cfg.RatioThreshold || speechSeconds < cfg.SecondsThreshold
	return stats, nil
}

// speechIntervals computes the total speech duration and segment count as
// the complement of the detected silence intervals within [0, total].
func speechIntervals(silences []silencePoint, total time.Duration) (speechSeconds float64, segments int) {
	cursor := time.Duration(0)
	for _, s := range silences {
		start := s.start
		if start > total {
			start = total
		}
		if start > cursor {
			speechSeconds += (start - cursor).Seconds()
			segments++
		}
		if s.end > cursor {
			cursor = s.end
		}
	}
	if cursor < total {
		speechSeconds += (total - cursor).Seconds()
		segments++
	}
	return speechSeconds, segments
}

// parseSilenceOutput extracts silence points from FFmpeg silencedetect
// output: "silence_start: 42.123" paired with "silence_end: 43.456".
func parseSilenceOutput(output string) []silencePoint {
	var silences []silencePoint
	var currentStart time.Duration
	hasStart := false

	startRe := regexp.MustCompile(`silence_start:\s*([\d.]+)`)
	endRe := regexp.MustCompile(`silence_end:\s*([\d.]+)`)

	for _, line := range strings.Split(output, "\n") {
		if matches := startRe.FindStringSubmatch(line); matches != nil {
			if seconds, err := strconv.ParseFloat(matches[1], 64); err == nil {
				currentStart = time.Duration(seconds * float64(time.Second))
				hasStart = true
			}
		}
		if matches := endRe.FindStringSubmatch(line); matches != nil && hasStart {
			if seconds, err := strconv.ParseFloat(matches[1], 64); err == nil {
				silences = append(silences, silencePoint{
					start: currentStart,
					end:   time.Duration(seconds * float64(time.Second)),
				})
				hasStart = false
			}
		}
	}

	return silences
}
