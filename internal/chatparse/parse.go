// Package chatparse implements the M1 parsing stage: turning raw WhatsApp-
// style chat export lines into canonical message.Message records. It covers
// only the Message output contract (headers, continuations, media hints,
// caption merge), nothing about resolution or transcription.
package chatparse

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/alnah/chatpipeline/internal/message"
)

// headerRe matches a line opening a new record:
//
//	D/M/YY, H:MM - Sender: body
//	D/M/YY, H:MM - System notice with no sender
//
// Both 2- and 4-digit years and optional seconds/AM-PM are accepted.
var headerRe = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4}), (\d{1,2}:\d{2}(?::\d{2})?(?:[\s\x{202F}]?[AaPp][Mm])?) - (.*)$`)

// senderRe splits a header's tail into a plausible sender name and body.
// System notices (no real sender) tend to run longer than a display name
// and rarely look like "Name: text", so a prefix longer than 40 characters
// (or one containing a colon) is treated as part of the notice rather than
// a sender.
var senderRe = regexp.MustCompile(`^([^:]{1,40}): (.*)$`)

// Parse reads a WhatsApp-style chat export and returns its messages in
// source order with dense, zero-based idx values already assigned.
func Parse(r io.Reader) ([]message.Message, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var raw []message.Message
	for scanner.Scan() {
		line := scanner.Text()
		if m := headerRe.FindStringSubmatch(line); m != nil {
			ts, err := parseTimestamp(m[1], m[2])
			if err != nil {
				return nil, err
			}
			sender, body := "", m[3]
			if sm := senderRe.FindStringSubmatch(m[3]); sm != nil {
				sender, body = sm[1], sm[2]
			}
			kind := message.KindSystem
			mediaHint := ""
			if sender != "" {
				kind, mediaHint = classifyContent(body)
			}
			raw = append(raw, message.Message{
				Ts:          ts,
				Sender:      sender,
				Kind:        kind,
				ContentText: body,
				RawLine:     line,
				RawBlock:    line,
				MediaHint:   mediaHint,
				Status:      message.StatusOK,
			})
			continue
		}

		if len(raw) == 0 {
			// Leading junk before the first recognizable header; drop it
			// rather than inventing a record with no timestamp.
			continue
		}
		last := &raw[len(raw)-1]
		last.ContentText += "\n" + line
		last.RawBlock += "\n" + line
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan chat export: %w", err)
	}

	mergeCaptions(raw)
	return assignIdx(raw), nil
}

// mergeCaptions folds a same-sender, same-timestamp text message that
// immediately follows a media message into that media message's Caption,
// per the caption-merge rule: the text message becomes a content-free
// skip pointing at the merge.
func mergeCaptions(msgs []message.Message) {
	for i := 0; i+1 < len(msgs); i++ {
		mediaMsg := &msgs[i]
		if !isMediaKind(mediaMsg.Kind) {
			continue
		}
		next := &msgs[i+1]
		if next.Kind != message.KindText || next.Sender != mediaMsg.Sender || next.Ts != mediaMsg.Ts {
			continue
		}
		mediaMsg.Caption = next.ContentText
		next.ContentText = ""
		next.Status = message.StatusSkipped
		next.StatusReason = message.ReasonMergedIntoPrevious
	}
}

func isMediaKind(k message.Kind) bool {
	switch k {
	case message.KindVoice, message.KindImage, message.KindVideo, message.KindDocument, message.KindSticker:
		return true
	default:
		return false
	}
}

// assignIdx stamps dense, zero-based, strictly increasing idx values in
// source order.
func assignIdx(msgs []message.Message) []message.Message {
	for i := range msgs {
		msgs[i].Idx = i
	}
	return msgs
}

// parseTimestamp renders dateStr/timeStr (day/month/year clock notation) as
// the canonical zone-less ISO form.
func parseTimestamp(dateStr, timeStr string) (string, error) {
	day, month, year, err := parseDate(dateStr)
	if err != nil {
		return "", err
	}
	hh, mm, ss, err := parseClock(timeStr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", year, month, day, hh, mm, ss), nil
}

func parseDate(s string) (day, month, year int, err error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrUnparseableTimestamp, s)
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrUnparseableTimestamp, s)
	}
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrUnparseableTimestamp, s)
	}
	return day, month, year, nil
}

func parseClock(s string) (hh, mm, ss int, err error) {
	// Some exports separate the clock from AM/PM with a narrow no-break
	// space (U+202F) instead of a regular space.
	s = strings.TrimSpace(strings.ReplaceAll(s, " ", " "))
	pm := false
	am := false
	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, "PM"):
		pm = true
		s = strings.TrimSpace(s[:len(s)-2])
	case strings.HasSuffix(upper, "AM"):
		am = true
		s = strings.TrimSpace(s[:len(s)-2])
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrUnparseableTimestamp, s)
	}
	hh, errH := strconv.Atoi(parts[0])
	mm, errM := strconv.Atoi(parts[1])
	ss = 0
	var errS error
	if len(parts) == 3 {
		ss, errS = strconv.Atoi(parts[2])
	}
	if errH != nil || errM != nil || errS != nil {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrUnparseableTimestamp, s)
	}

	if pm && hh < 12 {
		hh += 12
	}
	if am && hh == 12 {
		hh = 0
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 || ss < 0 || ss > 59 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrUnparseableTimestamp, s)
	}
	return hh, mm, ss, nil
}
