package scoring

import (
	"testing"
	"time"

	"github.com/alnah/chatpipeline/internal/media"
)

func artifact(path string, size, mtime int64, kind media.Kind, seq int) *media.Artifact {
	return &media.Artifact{
		Path:    path,
		Size:    size,
		ModTime: mtime,
		Tokens:  media.Tokens{Kind: kind, Sequence: seq, HasSeq: seq >= 0},
	}
}

func TestScoreAllOrdersDescendingAndTieBreaks(t *testing.T) {
	ts := time.Date(2025, 7, 8, 12, 0, 0, 0, time.UTC)
	a := artifact("/root/b.jpg", 100, ts.Unix(), media.KindImage, -1)
	b := artifact("/root/a.jpg", 100, ts.Unix(), media.KindImage, -1)

	in := Input{MessageTime: ts}
	scored := ScoreAll([]*media.Artifact{a, b}, in, DefaultWeights, ExtPriority)

	if len(scored) != 2 {
		t.Fatalf("expected 2 scored candidates, got %d", len(scored))
	}
	if scored[0].Artifact.Path != "/root/a.jpg" {
		t.Fatalf("expected lexical tie-break to prefer a.jpg, got %s", scored[0].Artifact.Path)
	}
}

func TestHintScoreExactMatch(t *testing.T) {
	c := artifact("/root/IMG-20250708-WA0001.jpg", 100, 0, media.KindImage, 1)
	score := hintScore(c, []string{"IMG-20250708-WA0001"})
	if score != 1.0 {
		t.Fatalf("expected exact stem match to score 1.0, got %f", score)
	}
}

func TestMtimeScoreDecaysWithDistance(t *testing.T) {
	ts := time.Date(2025, 7, 8, 12, 0, 0, 0, time.UTC)
	near := artifact("/n", 0, ts.Add(-1*time.Hour).Unix(), media.KindImage, -1)
	far := artifact("/f", 0, ts.Add(-23*time.Hour).Unix(), media.KindImage, -1)

	if mtimeScore(near, ts) <= mtimeScore(far, ts) {
		t.Fatal("expected closer mtime to score higher")
	}
}
