package canon

import (
	"fmt"
	"regexp"
	"strings"
)

// shielded stores a protected literal and the token standing in for it.
type shielded struct {
	Original    string
	Placeholder string
}

// stringLiteralRe matches a double-quoted literal on a single line.
var stringLiteralRe = regexp.MustCompile(`"[^"\n]*"`)

// shield replaces double-quoted string literals with private-use placeholders so that
// rules never rewrite the contents of a string value. The placeholder runes are not
// boundary runes, so a form glued to a literal stays unmatched.
func shield(text string) (string, []shielded) {
	locs := stringLiteralRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	mappings := make([]shielded, 0, len(locs))
	last := 0
	for i, loc := range locs {
		placeholder := fmt.Sprintf("\ue000%d\ue001", i)
		mappings = append(mappings, shielded{
			Original:    text[loc[0]:loc[1]],
			Placeholder: placeholder,
		})
		b.WriteString(text[last:loc[0]])
		b.WriteString(placeholder)
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String(), mappings
}

// unshield puts the protected literals back.
func unshield(text string, mappings []shielded) string {
	for _, m := range mappings {
		text = strings.Replace(text, m.Placeholder, m.Original, 1)
	}
	return text
}
