package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameRunes bounds the name part of a media object key. Phone
// cameras and messaging apps produce long generated names.
const MaxFileNameRunes = 100

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName turns a client-supplied media file name into a single
// safe key segment. Separators and whitespace become "_", control characters
// are dropped, leading dots are trimmed and long names are shortened while
// keeping the extension.
func SanitizeFileName(name string) (string, error) {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\' || unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteByte('_')
			}
			lastUnderscore = true
			continue
		case unicode.IsControl(r) || r == utf8.RuneError:
			continue
		}
		b.WriteRune(r)
		lastUnderscore = r == '_'
	}

	s := b.String()
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", ".")
	}
	s = strings.TrimLeft(s, "._")
	if s == "" {
		return "", ErrInvalidFileName
	}
	return truncateKeepingExt(s, MaxFileNameRunes), nil
}

func truncateKeepingExt(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	ext := path.Ext(s)
	if utf8.RuneCountInString(ext) >= max/2 {
		ext = ""
	}
	stem := []rune(strings.TrimSuffix(s, ext))
	return string(stem[:max-utf8.RuneCountInString(ext)]) + ext
}
