package utils

import "strings"

// FallbackToken stands in for identities that normalize to nothing, so
// downstream keys are never empty strings.
const FallbackToken = "DESC"

var nameFillers = []string{"EL ", "LA ", "ALIAS "}

// NormalizePlate canonicalizes a license plate for matching: upper-case,
// keep only A-Z and 0-9. Dashes, spaces and OCR punctuation never cause a
// comparison miss. Total: empty or all-punctuation input yields the
// fallback token.
func NormalizePlate(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return FallbackToken
	}
	return b.String()
}

// NormalizeName canonicalizes a person name or alias for dedup: upper-case,
// trim, and strip leading filler tokens so "El Chato", "ALIAS CHATO" and
// "chato" collapse onto one key.
func NormalizeName(raw string) string {
	n := strings.ToUpper(strings.TrimSpace(raw))
	for {
		stripped := n
		for _, f := range nameFillers {
			stripped = strings.TrimSpace(strings.TrimPrefix(stripped, f))
		}
		if stripped == n {
			break
		}
		n = stripped
	}
	if n == "" {
		return FallbackToken
	}
	return n
}
