package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify converts a display name into a URL-safe slug: lowercase, diacritics
// stripped, runs of whitespace and punctuation collapsed to single hyphens.
// Cyrillic and other letters are preserved as-is so that "Цветы у Ани"
// remains recognisable in the address bar.
func Slugify(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if stripped, _, err := transform.String(slugStripper, name); err == nil {
		name = stripped
	}
	name = strings.ToLower(name)

	var b strings.Builder
	b.Grow(len(name))
	lastHyphen := true
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return strings.Trim(b.String(), "-")
}

// SlugCandidate returns the slug with an ordinal suffix, matching the probing
// sequence used when the base slug is already reserved: base, base-1, base-2…
func SlugCandidate(base string, attempt int) string {
	if attempt <= 0 {
		return base
	}
	var b strings.Builder
	b.Grow(len(base) + 4)
	b.WriteString(base)
	b.WriteByte('-')
	writeInt(&b, attempt)
	return b.String()
}

func writeInt(b *strings.Builder, n int) {
	if n >= 10 {
		writeInt(b, n/10)
	}
	b.WriteByte(byte('0' + n%10))
}
