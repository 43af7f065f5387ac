package resolver

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/alnah/chatpipeline/internal/message"
	"github.com/alnah/chatpipeline/internal/scoring"
)

// topK is the number of candidate columns the exceptions CSV carries
// explicitly; the full candidate set (when larger) still rides along in the
// disambiguation_json column.
const topK = 3

// ExceptionRow is one row of the exceptions log: a message whose media
// binding resolved to ambiguous_media or unresolved_media.
type ExceptionRow struct {
	Idx              int
	Ts               string
	Sender           string
	Kind             message.Kind
	MediaHint        string
	Reason           message.StatusReason
	Top              []scoring.Candidate
	DisambiguationJSON string
}

// exceptionRow builds an ExceptionRow for m given its scored candidates
// (nil when there were none at all).
func (r *Resolver) exceptionRow(m *message.Message, scored []scoring.Candidate) *ExceptionRow {
	row := &ExceptionRow{
		Idx:       m.Idx,
		Ts:        m.Ts,
		Sender:    m.Sender,
		Kind:      m.Kind,
		MediaHint: m.MediaHint,
		Reason:    m.StatusReason,
	}
	if len(scored) > topK {
		row.Top = scored[:topK]
	} else {
		row.Top = scored
	}
	if m.Derived.Disambiguation != nil {
		b, err := json.Marshal(m.Derived.Disambiguation)
		if err == nil {
			row.DisambiguationJSON = string(b)
		}
	}
	return row
}

// WriteExceptionsCSV rewrites the exceptions log for the run; it is never
// appended to, per the once-per-run contract.
func WriteExceptionsCSV(path string, rows []ExceptionRow) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".exceptions-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp exceptions csv: %w", err)
	}
	tmpPath := f.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	w := csv.NewWriter(f)

	header := []string{"idx", "ts", "sender", "kind", "media_hint", "reason"}
	for i := 1; i <= topK; i++ {
		header = append(header, fmt.Sprintf("top%d_path", i), fmt.Sprintf("top%d_score", i))
	}
	header = append(header, "disambiguation_json")
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return fmt.Errorf("write exceptions header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.Idx), row.Ts, row.Sender, string(row.Kind), row.MediaHint, string(row.Reason),
		}
		for i := 0; i < topK; i++ {
			if i < len(row.Top) {
				record = append(record, row.Top[i].Artifact.Path, strconv.FormatFloat(row.Top[i].Total, 'f', 4, 64))
			} else {
				record = append(record, "", "")
			}
		}
		record = append(record, row.DisambiguationJSON)
		if err := w.Write(record); err != nil {
			_ = f.Close()
			return fmt.Errorf("write exceptions row idx=%d: %w", row.Idx, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush exceptions csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp exceptions csv: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename exceptions csv into place: %w", err)
	}
	return nil
}
