package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// ContainsJapanese checks if a string contains kana or kanji.
func ContainsJapanese(s string) bool {
	for _, r := range s {
		if IsJapanese(r) {
			return true
		}
	}
	return false
}

// IsJapanese reports whether r is hiragana, katakana or a Han ideograph.
func IsJapanese(r rune) bool {
	return unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) || r == 'ー' || r == '々'
}

// OnlyJapanese reports whether s is non-empty and made of kana/kanji only.
func OnlyJapanese(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !IsJapanese(r) {
			return false
		}
	}
	return true
}

// IsSpace treats the ideographic space like any other whitespace.
func IsSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '　'
}

// Hash computes a SHA-256 hex hash of a string for change tracking.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Truncate shortens a string to maxLen runes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// OneLine collapses line breaks so a snippet fits in a log field or TSV cell.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
