// Package resolver binds message records that expect media to a concrete
// archive file: an exact-filename fast path first, then the scoring ladder
// under a decisive margin. It never guesses and never aborts a run.
package resolver

import (
	"strings"
	"time"

	"github.com/alnah/chatpipeline/internal/media"
	"github.com/alnah/chatpipeline/internal/message"
	"github.com/alnah/chatpipeline/internal/scoring"
)

// Resolver binds media to messages using an Index built once up front and
// shared read-only across every Resolve call.
type Resolver struct {
	idx *media.Index
	cfg Config
}

// New constructs a Resolver over idx with cfg. cfg is validated eagerly so
// configuration errors surface before any message is processed.
func New(idx *media.Index, cfg Config) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Resolver{idx: idx, cfg: cfg}, nil
}

var mediaKinds = map[message.Kind]media.Kind{
	message.KindVoice:    media.KindVoice,
	message.KindImage:    media.KindImage,
	message.KindVideo:    media.KindVideo,
	message.KindDocument: media.KindDoc,
	message.KindSticker:  media.KindImage,
}

// needsMedia reports whether a message kind expects a media binding.
func needsMedia(k message.Kind) bool {
	_, ok := mediaKinds[k]
	return ok
}

// Resolve binds media for every message that needs it, returning the
// mutated slice (sorted by Idx, as given) and the exception rows generated
// for ambiguous/unresolved outcomes. msgs is not mutated in place; a copy is
// returned.
func (r *Resolver) Resolve(msgs []message.Message) ([]message.Message, []ExceptionRow, error) {
	out := make([]message.Message, len(msgs))
	copy(out, msgs)

	var exceptions []ExceptionRow
	for i := range out {
		if !needsMedia(out[i].Kind) {
			continue
		}
		exc := r.resolveOne(out, i)
		if exc != nil {
			exceptions = append(exceptions, *exc)
		}
	}
	return out, exceptions, nil
}

// resolveOne resolves a single message at position i within msgs, mutating
// msgs[i] in place and returning an exception row if one was generated.
func (r *Resolver) resolveOne(msgs []message.Message, i int) *ExceptionRow {
	m := &msgs[i]

	if m.MediaHint != "" && media.IsCanonicalFastPathName(m.MediaHint, r.cfg.AllowedExtensions) {
		if art, ok := r.idx.FastPathLookup(m.MediaHint); ok {
			m.MediaFilename = art.Path
			m.Status = message.StatusOK
			m.StatusReason = message.ReasonNone
			r.attachHash(m, art)
			return nil
		}
	}

	wantKind, ok := mediaKinds[m.Kind]
	if !ok {
		return nil
	}

	msgTime, err := time.ParseInLocation("2006-01-02T15:04:05", m.Ts, time.UTC)
	if err != nil {
		m.Status = message.StatusOK
		m.StatusReason = message.ReasonUnresolvedMedia
		m.Errors = append(m.Errors, "unparseable timestamp: "+err.Error())
		return r.exceptionRow(m, nil)
	}

	candidates := r.candidatesNear(msgTime, wantKind)
	if len(candidates) == 0 {
		m.Status = message.StatusOK
		m.StatusReason = message.ReasonUnresolvedMedia
		return r.exceptionRow(m, nil)
	}

	hints := surroundingHintTokens(msgs, i)
	in := scoring.Input{MessageTime: msgTime, HintTokens: hints}
	if tok, ok := media.ParseFilename(m.MediaHint); ok && tok.HasSeq {
		in.TargetSeq = tok.Sequence
		in.HasTargetSeq = true
	}

	scored := scoring.ScoreAll(candidates, in, r.cfg.Weights, r.cfg.ExtPriority)
	top := scored[0]
	second := 0.0
	if len(scored) > 1 {
		second = scored[1].Total
	}

	if top.Total-second >= r.cfg.Tau {
		m.MediaFilename = top.Artifact.Path
		m.Status = message.StatusOK
		m.StatusReason = message.ReasonNone
		r.attachHash(m, top.Artifact)
		return nil
	}

	if top.Total < r.cfg.AcceptanceThreshold {
		m.Status = message.StatusOK
		m.StatusReason = message.ReasonUnresolvedMedia
		return r.exceptionRow(m, scored)
	}

	tied := tiedCandidates(scored, r.cfg.TieMargin)
	m.Status = message.StatusOK
	m.StatusReason = message.ReasonAmbiguousMedia
	m.MediaFilename = ""
	m.Derived.Disambiguation = &message.Disambiguation{
		Candidates: scoredCandidateList(tied),
		TopScore:   top.Total,
		TieMargin:  r.cfg.TieMargin,
	}
	return r.exceptionRow(m, scored)
}

// candidatesNear gathers candidates on msgTime's chat day plus adjacent
// days (to cover a drift window crossing midnight), filtered to those
// within the configured clock drift.
func (r *Resolver) candidatesNear(msgTime time.Time, kind media.Kind) []*media.Artifact {
	drift := time.Duration(r.cfg.ClockDriftHours * float64(time.Hour))
	days := map[string]bool{
		msgTime.UTC().Format("2006-01-02"):                     true,
		msgTime.Add(-24 * time.Hour).UTC().Format("2006-01-02"): true,
		msgTime.Add(24 * time.Hour).UTC().Format("2006-01-02"):  true,
	}

	var out []*media.Artifact
	for day := range days {
		for _, a := range r.idx.Candidates(day, kind) {
			gap := msgTime.Sub(time.Unix(a.ModTime, 0).UTC())
			if gap < 0 {
				gap = -gap
			}
			if gap <= drift {
				out = append(out, a)
			}
		}
	}
	return out
}

// attachHash lazily computes and records the selected artifact's content
// hash; a hashing failure is recorded as a soft error, never a hard abort.
func (r *Resolver) attachHash(m *message.Message, a *media.Artifact) {
	sum, err := a.SHA256()
	if err != nil {
		m.Errors = append(m.Errors, "media hash failed: "+err.Error())
		return
	}
	m.Derived.MediaSHA256 = sum
}

// tiedCandidates returns the prefix of scored within tieMargin of the top total.
func tiedCandidates(scored []scoring.Candidate, tieMargin float64) []scoring.Candidate {
	top := scored[0].Total
	var out []scoring.Candidate
	for _, c := range scored {
		if top-c.Total <= tieMargin {
			out = append(out, c)
		}
	}
	return out
}

func scoredCandidateList(cands []scoring.Candidate) []message.ScoredCandidate {
	out := make([]message.ScoredCandidate, 0, len(cands))
	for _, c := range cands {
		out = append(out, message.ScoredCandidate{Path: c.Artifact.Path, Score: c.Total})
	}
	return out
}

// surroundingHintTokens collects the trimmed text (the caption when present)
// of each of the ±2 messages around i, same-sender text before global, per
// the ladder's hint feature. Each text is passed whole; it is not split into
// words.
func surroundingHintTokens(msgs []message.Message, i int) []string {
	var sameSender, global []string
	sender := msgs[i].Sender
	for d := -2; d <= 2; d++ {
		j := i + d
		if d == 0 || j < 0 || j >= len(msgs) {
			continue
		}
		text := strings.TrimSpace(msgs[j].ContentText)
		if msgs[j].Caption != "" {
			text = strings.TrimSpace(msgs[j].Caption)
		}
		if text == "" {
			continue
		}
		if msgs[j].Sender == sender {
			sameSender = append(sameSender, text)
		} else {
			global = append(global, text)
		}
	}
	return append(sameSender, global...)
}
