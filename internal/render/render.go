// Package render implements the M5 writing stage: turning the final,
// fully-annotated message stream into the two text artifacts a human reads,
// the full chat transcript with inlined audio text, and an optional
// streaming preview of transcripts as they complete during M3.
package render

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alnah/chatpipeline/internal/format"
	"github.com/alnah/chatpipeline/internal/message"
)

// WriteChat renders msgs to w as chat_with_audio.txt: one line per message,
// sorted by Idx, with media captions and transcribed audio text inlined.
// Records merged into a preceding caption (StatusSkipped /
// ReasonMergedIntoPrevious) are omitted; their text already lives on the
// media record they were folded into.
func WriteChat(w io.Writer, msgs []message.Message) error {
	sorted := make([]message.Message, len(msgs))
	copy(sorted, msgs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Idx < sorted[j].Idx })

	bw := bufio.NewWriter(w)
	for _, m := range sorted {
		if m.Status == message.StatusSkipped && m.StatusReason == message.ReasonMergedIntoPrevious {
			continue
		}
		if _, err := fmt.Fprintln(bw, renderLine(m)); err != nil {
			return fmt.Errorf("write chat line for idx %d: %w", m.Idx, err)
		}
	}
	return bw.Flush()
}

func renderLine(m message.Message) string {
	switch m.Kind {
	case message.KindSystem:
		return fmt.Sprintf("[%s] %s", m.Ts, m.ContentText)
	case message.KindVoice:
		return fmt.Sprintf("[%s] %s: %s", m.Ts, m.Sender, renderVoiceBody(m))
	case message.KindImage, message.KindVideo, message.KindDocument, message.KindSticker:
		return fmt.Sprintf("[%s] %s: %s", m.Ts, m.Sender, renderMediaBody(m))
	default:
		return fmt.Sprintf("[%s] %s: %s", m.Ts, m.Sender, m.ContentText)
	}
}

func renderVoiceBody(m message.Message) string {
	label := fmt.Sprintf("[voice message%s]", durationSuffix(m))
	body := m.ContentText
	if body == "" {
		body = "(no transcript)"
	}
	line := label + " " + body
	if m.Caption != "" {
		line += " — " + m.Caption
	}
	return line
}

func renderMediaBody(m message.Message) string {
	name := m.MediaFilename
	if name == "" {
		name = m.MediaHint
	}
	if name == "" {
		name = "unresolved"
	}
	line := fmt.Sprintf("[%s: %s]", m.Kind, name)
	if m.Caption != "" {
		line += " " + m.Caption
	}
	return line
}

func durationSuffix(m message.Message) string {
	if m.Derived.ASR == nil {
		return ""
	}
	d := time.Duration(m.Derived.ASR.TotalDuration * float64(time.Second))
	return " " + format.Duration(d)
}
