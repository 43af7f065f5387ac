package chatparse

import (
	"strings"
	"testing"

	"github.com/alnah/chatpipeline/internal/message"
)

func TestParseTextMessage(t *testing.T) {
	t.Parallel()

	in := "8/7/25, 14:32 - Alice: hello there\nsecond line\n"
	msgs, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("len(msgs) = %d, want 1", len(msgs))
	}
	m := msgs[0]
	if m.Sender != "Alice" || m.Kind != message.KindText {
		t.Fatalf("unexpected message: %+v", m)
	}
	if m.ContentText != "hello there\nsecond line" {
		t.Fatalf("ContentText = %q", m.ContentText)
	}
	if m.Ts != "2025-07-08T14:32:00" {
		t.Fatalf("Ts = %q", m.Ts)
	}
}

func TestParseVoiceWithFilename(t *testing.T) {
	t.Parallel()

	in := "8/7/25, 14:32 - Bob: PTT-20250708-WA0028.opus (file attached)\n"
	msgs, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m := msgs[0]
	if m.Kind != message.KindVoice {
		t.Fatalf("Kind = %q, want voice", m.Kind)
	}
	if m.MediaHint != "PTT-20250708-WA0028.opus" {
		t.Fatalf("MediaHint = %q", m.MediaHint)
	}
}

func TestParseMediaOmittedPlaceholder(t *testing.T) {
	t.Parallel()

	in := "8/7/25, 14:32 - Bob: image omitted\n"
	msgs, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if msgs[0].Kind != message.KindImage {
		t.Fatalf("Kind = %q, want image", msgs[0].Kind)
	}
}

func TestParseSystemMessageHasNoSender(t *testing.T) {
	t.Parallel()

	in := "8/7/25, 14:30 - Messages and calls are end-to-end encrypted.\n"
	msgs, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if msgs[0].Kind != message.KindSystem || msgs[0].Sender != "" {
		t.Fatalf("unexpected message: %+v", msgs[0])
	}
}

func TestParseCaptionMerge(t *testing.T) {
	t.Parallel()

	in := "8/7/25, 14:32 - Bob: IMG-20250708-WA0001.jpg (file attached)\n" +
		"8/7/25, 14:32 - Bob: look at this\n"
	msgs, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].Caption != "look at this" {
		t.Fatalf("Caption = %q", msgs[0].Caption)
	}
	if msgs[1].Status != message.StatusSkipped || msgs[1].StatusReason != message.ReasonMergedIntoPrevious {
		t.Fatalf("merged message = %+v", msgs[1])
	}
	if msgs[1].ContentText != "" {
		t.Fatalf("merged message ContentText should be empty, got %q", msgs[1].ContentText)
	}
}

func TestParseAssignsDenseIdx(t *testing.T) {
	t.Parallel()

	in := "8/7/25, 14:30 - Alice: one\n8/7/25, 14:31 - Bob: two\n8/7/25, 14:32 - Alice: three\n"
	msgs, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for i, m := range msgs {
		if m.Idx != i {
			t.Fatalf("msgs[%d].Idx = %d", i, m.Idx)
		}
	}
}

func TestParseAMPMClock(t *testing.T) {
	t.Parallel()

	in := "8/7/2025, 2:32 PM - Alice: hi\n"
	msgs, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if msgs[0].Ts != "2025-07-08T14:32:00" {
		t.Fatalf("Ts = %q", msgs[0].Ts)
	}
}
