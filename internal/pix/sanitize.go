package pix

import "strings"

// SanitizeName prepares the merchant name field (tag 59).
func SanitizeName(s string) string { return withFallback(clean(s, nameMaxLen, nil), fallbackName) }

// SanitizeCity prepares the merchant city field (tag 60).
func SanitizeCity(s string) string { return withFallback(clean(s, cityMaxLen, nil), fallbackCity) }

// SanitizeDescription prepares the free-text field (tag 26/02). It may return "".
func SanitizeDescription(s string) string { return clean(s, descMaxLen, []rune{'.', '-', '/'}) }

// clean uppercases s, drops everything but ASCII letters, digits, spaces and extra,
// collapses whitespace runs and cuts the result to limit characters without a trailing space.
func clean(s string, limit int, extra []rune) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		case containsRune(extra, r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(truncate(strings.Join(strings.Fields(b.String()), " "), limit))
}

func withFallback(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func containsRune(rs []rune, r rune) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
