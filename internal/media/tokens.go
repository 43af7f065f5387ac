package media

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the media-artifact category, distinct from message.Kind: it
// reflects what the filename itself claims, before any message is bound to it.
type Kind string

const (
	KindVoice Kind = "voice"
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindDoc   Kind = "document"
	KindOther Kind = "other"
)

// prefixKind maps the WhatsApp-style filename prefix to a Kind.
var prefixKind = map[string]Kind{
	"PTT": KindVoice,
	"AUD": KindVoice,
	"IMG": KindImage,
	"VID": KindVideo,
	"DOC": KindDoc,
}

// filenameRe matches the canonical archive filename convention:
//
//	PREFIX-YYYYMMDD-WA####[(n)].ext
//
// e.g. "IMG-20250708-WA0028.jpg", "PTT-20250708-WA0003(1).opus".
var filenameRe = regexp.MustCompile(`^(IMG|VID|PTT|AUD|DOC)-(\d{8})-WA(\d+)(?:\((\d+)\))?$`)

// Tokens is the set of fields extracted from a canonical filename stem.
type Tokens struct {
	Kind       Kind
	DateToken  string // YYYYMMDD, empty if absent
	Sequence   int    // -1 if absent
	HasSeq     bool
	IsCopy     bool
}

// ParseFilename extracts Tokens from a filename, matching the archive's own
// naming convention. ok is false when the name does not match the canonical
// pattern (in which case Kind is KindOther and the extension is not
// consulted).
func ParseFilename(name string) (Tokens, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	m := filenameRe.FindStringSubmatch(stem)
	if m == nil {
		return Tokens{Kind: KindOther, Sequence: -1}, false
	}
	seq, _ := strconv.Atoi(m[3])
	return Tokens{
		Kind:      prefixKind[m[1]],
		DateToken: m[2],
		Sequence:  seq,
		HasSeq:    true,
		IsCopy:    m[4] != "",
	}, true
}

// IsCanonicalFastPathName reports whether name matches the fast-path filename
// pattern: recognized prefix, date token, WA-sequence, and an extension in
// allowed. Pass AllowedExtensions for the built-in default set.
func IsCanonicalFastPathName(name string, allowed map[string]bool) bool {
	_, ok := ParseFilename(name)
	if !ok {
		return false
	}
	return allowed[strings.ToLower(filepath.Ext(name))]
}

// AllowedExtensions is the default set of extensions the resolver treats as
// media (configurable via pipelineconfig; this is the built-in default).
var AllowedExtensions = map[string]bool{
	".opus": true, ".ogg": true, ".m4a": true, ".mp3": true, ".aac": true, ".wav": true,
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
	".mp4": true, ".mov": true, ".3gp": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".txt": true,
}

// ExtKind infers a coarse Kind purely from a file extension, used when a
// filename does not match the canonical pattern.
func ExtKind(ext string) Kind {
	switch strings.ToLower(ext) {
	case ".opus", ".ogg", ".m4a", ".mp3", ".aac", ".wav":
		return KindVoice
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return KindImage
	case ".mp4", ".mov", ".3gp":
		return KindVideo
	case ".pdf", ".doc", ".docx", ".xls", ".xlsx", ".txt":
		return KindDoc
	default:
		return KindOther
	}
}
