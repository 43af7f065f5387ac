package chatparse

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/alnah/chatpipeline/internal/media"
	"github.com/alnah/chatpipeline/internal/message"
)

// fileAttachedRe matches the desktop-export form where a media line names
// its own file, e.g. "IMG-20250708-WA0028.jpg (file attached)".
var fileAttachedRe = regexp.MustCompile(`^(.+?)\s\(file attached\)$`)

// placeholderKind maps the export's "<type> omitted" body text to a Kind
// when no filename is present (the common case: media lives only on the
// sender's device, never in the exported archive).
var placeholderKind = map[string]message.Kind{
	"image omitted":        message.KindImage,
	"video omitted":        message.KindVideo,
	"audio omitted":        message.KindVoice,
	"GIF omitted":          message.KindVideo,
	"sticker omitted":      message.KindSticker,
	"document omitted":     message.KindDocument,
	"Contact card omitted": message.KindDocument,
	"<Media omitted>":      message.KindUnknown,
}

var mediaKindToMessageKind = map[media.Kind]message.Kind{
	media.KindVoice: message.KindVoice,
	media.KindImage: message.KindImage,
	media.KindVideo: message.KindVideo,
	media.KindDoc:   message.KindDocument,
	media.KindOther: message.KindDocument,
}

// classifyContent inspects a message body for the two media signals this
// export format can carry: an attached filename, or an "omitted" placeholder
// naming a media type. It returns message.KindText when neither applies.
func classifyContent(content string) (message.Kind, string) {
	trimmed := strings.TrimSpace(content)

	if m := fileAttachedRe.FindStringSubmatch(trimmed); m != nil {
		name := m[1]
		return mediaKindFromFilename(name), name
	}
	if k, ok := placeholderKind[trimmed]; ok {
		return k, ""
	}
	return message.KindText, ""
}

func mediaKindFromFilename(name string) message.Kind {
	if toks, ok := media.ParseFilename(name); ok {
		if k, ok := mediaKindToMessageKind[toks.Kind]; ok {
			return k
		}
	}
	if k, ok := mediaKindToMessageKind[media.ExtKind(filepath.Ext(name))]; ok {
		return k
	}
	return message.KindDocument
}
