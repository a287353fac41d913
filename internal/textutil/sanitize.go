package textutil

import (
	"path/filepath"
	"strings"
)

const (
	// maxBaseNameLen bounds the sanitized filename stem before the extension
	// is re-appended.
	maxBaseNameLen = 80
	// maxLabelLen bounds display labels shown in progress UI.
	maxLabelLen = 32
	// maxMessageLen bounds user-facing error messages before they are
	// replaced with generic text.
	maxMessageLen = 200
)

// SanitizeFileName normalizes a picked-image filename for upload. The
// extension is stripped, every character outside [A-Za-z0-9-_] becomes an
// underscore, the stem is truncated to 80 characters, and ".jpg" is appended
// since the pipeline always writes JPEG output.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(filepath.Base(name))
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	stem := b.String()
	if len(stem) > maxBaseNameLen {
		stem = stem[:maxBaseNameLen]
	}
	if strings.Trim(stem, "_") == "" {
		stem = "photo"
	}
	return stem + ".jpg"
}

// DisplayLabel trims a label to the UI length budget, appending an ellipsis
// when truncation happened.
func DisplayLabel(label string) string {
	label = strings.TrimSpace(label)
	runes := []rune(label)
	if len(runes) <= maxLabelLen {
		return label
	}
	return string(runes[:maxLabelLen-1]) + "…"
}

// SanitizeMessage scrubs an error message before it reaches the user. Raw
// data URIs and over-long payloads carry no actionable information and are
// replaced with generic text.
func SanitizeMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "upload failed"
	}
	if strings.Contains(msg, "data:") && strings.Contains(msg, ";base64,") {
		return "upload failed while handling image data"
	}
	if len(msg) > maxMessageLen {
		return "upload failed (details truncated; see logs)"
	}
	return msg
}
