// Package scoring implements the resolver's ladder: pure functions that
// score a media candidate against a message across four independent
// features, and the deterministic tie-break used to order candidates with
// equal totals.
package scoring

import (
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/chatpipeline/internal/media"
)

// Weights configures the relative importance of each ladder feature.
type Weights struct {
	Hint  float64
	Ext   float64
	Seq   float64
	Mtime float64
}

// DefaultWeights matches the reference weighting: hint:3, ext:2, seq:1, mtime:1.
var DefaultWeights = Weights{Hint: 3, Ext: 2, Seq: 1, Mtime: 1}

// ExtPriority orders candidate kinds by default acceptance priority:
// voice > image > video > document > other.
var ExtPriority = map[media.Kind]float64{
	media.KindVoice: 1.0,
	media.KindImage: 0.8,
	media.KindVideo: 0.6,
	media.KindDoc:   0.4,
	media.KindOther: 0.1,
}

// Candidate pairs a media artifact with the computed feature scores that
// produced its Total, so disambiguation output can report each component.
type Candidate struct {
	Artifact *media.Artifact
	Hint     float64
	Ext      float64
	Seq      float64
	Mtime    float64
	Total    float64
}

// Input bundles everything the ladder needs to score one message against
// one chat-day's candidate set. All fields are read-only; Score never
// mutates its arguments, so results are stable across repeated calls.
type Input struct {
	MessageTime  time.Time // parsed, archive-local
	TargetSeq    int       // inferred sequence number; read only when HasTargetSeq is true
	HasTargetSeq bool
	HintTokens   []string // whole trimmed text/caption of each ±2 surrounding message, not split into words
}

// Score computes the weighted total for one candidate against in, using w
// and extPriority (pass ExtPriority for the built-in default table).
func Score(c *media.Artifact, in Input, w Weights, extPriority map[media.Kind]float64) Candidate {
	hint := hintScore(c, in.HintTokens)
	ext := extPriority[c.Tokens.Kind]
	seq := seqScore(c, in)
	mt := mtimeScore(c, in.MessageTime)

	total := w.Hint*hint + w.Ext*ext + w.Seq*seq + w.Mtime*mt
	return Candidate{Artifact: c, Hint: hint, Ext: ext, Seq: seq, Mtime: mt, Total: total}
}

// ScoreAll scores every candidate and sorts descending by Total, breaking
// ties by (a) smaller artifact size, (b) lexical path order.
func ScoreAll(candidates []*media.Artifact, in Input, w Weights, extPriority map[media.Kind]float64) []Candidate {
	scored := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, Score(c, in, w, extPriority))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Total != scored[j].Total {
			return scored[i].Total > scored[j].Total
		}
		if scored[i].Artifact.Size != scored[j].Artifact.Size {
			return scored[i].Artifact.Size < scored[j].Artifact.Size
		}
		return scored[i].Artifact.Path < scored[j].Artifact.Path
	})
	return scored
}

// hintScore matches the candidate's stem and sequence number against the
// hint strings from surrounding message text/captions: 1.0 when a hint
// equals the stem (case-insensitive), 0.9 when a hint contains the
// candidate's sequence number, 0.5 when the stem contains a hint
// (case-insensitive), 0 otherwise.
func hintScore(c *media.Artifact, tokens []string) float64 {
	base := filepath.Base(c.Path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	best := 0.0
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if strings.EqualFold(tok, stem) {
			return 1.0
		}
		if c.Tokens.HasSeq && containsSeq(tok, c.Tokens.Sequence) {
			best = math.Max(best, 0.9)
			continue
		}
		if strings.Contains(strings.ToLower(stem), strings.ToLower(tok)) {
			best = math.Max(best, 0.5)
		}
	}
	return best
}

// seqScore returns a proximity score in [0,1] between the candidate's
// sequence number and the target sequence inferred from media_hint/hints.
// Exact match scores 1.0; score decays with distance; unknown target or
// candidate sequence scores 0.
func seqScore(c *media.Artifact, in Input) float64 {
	if !in.HasTargetSeq || !c.Tokens.HasSeq {
		return 0
	}
	dist := c.Tokens.Sequence - in.TargetSeq
	if dist < 0 {
		dist = -dist
	}
	return 1.0 / float64(1+dist)
}

// mtimeScore is a monotonically decreasing function of the absolute gap
// between candidate mtime and message time, in hours; it reaches 0 at and
// beyond a 24h gap.
func mtimeScore(c *media.Artifact, messageTime time.Time) float64 {
	if messageTime.IsZero() {
		return 0
	}
	gap := messageTime.Sub(time.Unix(c.ModTime, 0).UTC())
	if gap < 0 {
		gap = -gap
	}
	hours := gap.Hours()
	const horizon = 24.0
	if hours >= horizon {
		return 0
	}
	return 1.0 - hours/horizon
}

func containsSeq(tok string, seq int) bool {
	return strings.Contains(tok, strconv.Itoa(seq))
}
