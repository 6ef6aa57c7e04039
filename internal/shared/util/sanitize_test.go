package util

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"sample.jpg", "sample.jpg"},
		{"my clip.mov", "my_clip.mov"},
		{"  VID 2026  01\t02.mp4 ", "VID_2026_01_02.mp4"},
		{"DCIM/Camera/IMG_0001.HEIC", "DCIM_Camera_IMG_0001.HEIC"},
		{"..\\..\\secret.mp4", "secret.mp4"},
		{".hidden.png", "hidden.png"},
		{"bad\x00name.mp4", "badname.mp4"},
		{"عينة.mp4", "عينة.mp4"},
	}
	for _, tc := range cases {
		got, err := SanitizeFileName(tc.in)
		if err != nil {
			t.Fatalf("SanitizeFileName(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeFileNameRejectsEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "..", "/", "._"} {
		if _, err := SanitizeFileName(in); !errors.Is(err, ErrInvalidFileName) {
			t.Fatalf("SanitizeFileName(%q): expected ErrInvalidFileName, got %v", in, err)
		}
	}
}

func TestSanitizeFileNameTruncatesKeepingExtension(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("a", 300) + ".mp4")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if utf8.RuneCountInString(got) != MaxFileNameRunes || !strings.HasSuffix(got, ".mp4") {
		t.Fatalf("unexpected truncation %q (%d runes)", got, utf8.RuneCountInString(got))
	}
}
