package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "IMG_0001.heic", "IMG_0001.jpg"},
		{"spaces and unicode", "björn at beach!.png", "bj_rn_at_beach_.jpg"},
		{"path components stripped", "/tmp/photos/holiday.jpeg", "holiday.jpg"},
		{"empty stem", "....", "photo.jpg"},
		{"no extension", "snapshot", "snapshot.jpg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeFileName(tc.input); got != tc.expected {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestSanitizeFileNameTruncates(t *testing.T) {
	long := strings.Repeat("a", 120) + ".jpg"
	got := SanitizeFileName(long)
	if len(got) != maxBaseNameLen+len(".jpg") {
		t.Fatalf("expected %d chars, got %d (%q)", maxBaseNameLen+4, len(got), got)
	}
	if !strings.HasSuffix(got, ".jpg") {
		t.Fatalf("expected .jpg suffix: %q", got)
	}
}

func TestDisplayLabel(t *testing.T) {
	if got := DisplayLabel("  first steps  "); got != "first steps" {
		t.Fatalf("unexpected label: %q", got)
	}
	long := strings.Repeat("x", 48)
	got := DisplayLabel(long)
	if len(got) > maxLabelLen+2 { // ellipsis is multi-byte
		t.Fatalf("label not truncated: %q", got)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis: %q", got)
	}
}

func TestDisplayLabelTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ö", 48)
	got := DisplayLabel(long)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated label is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "ö…") {
		t.Fatalf("expected whole rune before ellipsis: %q", got)
	}
	if n := len([]rune(got)); n != maxLabelLen {
		t.Fatalf("expected %d runes, got %d (%q)", maxLabelLen, n, got)
	}
}

func TestSanitizeMessage(t *testing.T) {
	if got := SanitizeMessage(""); got != "upload failed" {
		t.Fatalf("unexpected empty-message result: %q", got)
	}
	dataURI := "failed to post data:image/jpeg;base64,/9j/4AAQSkZJRg=="
	if got := SanitizeMessage(dataURI); strings.Contains(got, "base64") {
		t.Fatalf("data URI leaked: %q", got)
	}
	long := strings.Repeat("z", 600)
	if got := SanitizeMessage(long); len(got) > 100 {
		t.Fatalf("long payload not replaced: %q", got)
	}
	if got := SanitizeMessage("mint failed: http status 500"); got != "mint failed: http status 500" {
		t.Fatalf("short message should pass through: %q", got)
	}
}
