// Package canon rewrites localized spellings of common pseudo-code identifiers and
// literals into a single canonical spelling.
package canon

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// ErrInvalidRules is returned when a rule table cannot be applied safely.
var ErrInvalidRules = errors.New("invalid rewrite rules")

type compiledRule struct {
	rule      Rule
	forms     [][]rune
	canonical []rune
}

// Canonicalizer applies an ordered rule table to text. It is safe for concurrent use.
type Canonicalizer struct {
	rules []compiledRule
}

// New compiles rules in the given order. It rejects tables that would make a second
// pass differ from the first.
func New(rules []Rule) (*Canonicalizer, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: empty rule table", ErrInvalidRules)
	}

	var allForms []string
	for _, r := range rules {
		allForms = append(allForms, r.Forms...)
	}

	c := &Canonicalizer{rules: make([]compiledRule, 0, len(rules))}
	for i, r := range rules {
		if err := checkSpelling(r.Canonical); err != nil {
			return nil, fmt.Errorf("%w: rule %d canonical %q: %v", ErrInvalidRules, i, r.Canonical, err)
		}
		for _, f := range allForms {
			if strings.Contains(r.Canonical, f) {
				return nil, fmt.Errorf("%w: rule %d canonical %q contains surface form %q", ErrInvalidRules, i, r.Canonical, f)
			}
		}

		cr := compiledRule{rule: r, canonical: []rune(r.Canonical)}
		for _, f := range r.Forms {
			if err := checkSpelling(f); err != nil {
				return nil, fmt.Errorf("%w: rule %d form %q: %v", ErrInvalidRules, i, f, err)
			}
			cr.forms = append(cr.forms, []rune(f))
		}
		sort.SliceStable(cr.forms, func(a, b int) bool {
			return len(cr.forms[a]) > len(cr.forms[b])
		})
		c.rules = append(c.rules, cr)
	}
	return c, nil
}

// MustDefault returns a canonicalizer over DefaultRules.
func MustDefault() *Canonicalizer {
	c, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return c
}

// Rules returns the effective rule table in application order.
func (c *Canonicalizer) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = r.rule
	}
	return out
}

// Canonicalize rewrites every bounded surface form in text.
func (c *Canonicalizer) Canonicalize(text string) string {
	out, _ := c.CanonicalizeCount(text)
	return out
}

// CanonicalizeCount rewrites text and returns the number of replacements made.
func (c *Canonicalizer) CanonicalizeCount(text string) (string, int) {
	if text == "" {
		return text, 0
	}
	protected, mappings := shield(text)
	runes := []rune(protected)
	total := 0
	for _, r := range c.rules {
		var n int
		runes, n = r.apply(runes)
		total += n
	}
	if total == 0 {
		return text, 0
	}
	return unshield(string(runes), mappings), total
}

func (r compiledRule) apply(in []rune) ([]rune, int) {
	left, right := r.rule.left(), r.rule.right()
	var out []rune
	n := 0
	for i := 0; i < len(in); {
		atStart := i == 0
		var prev rune
		if !atStart {
			prev = in[i-1]
		}
		if !left.LeftOK(prev, atStart) {
			if out != nil {
				out = append(out, in[i])
			}
			i++
			continue
		}

		matched := 0
		for _, f := range r.forms {
			end := i + len(f)
			if end > len(in) || !hasPrefix(in[i:], f) {
				continue
			}
			atEnd := end == len(in)
			var next rune
			if !atEnd {
				next = in[end]
			}
			if right.RightOK(next, atEnd) {
				matched = len(f)
				break
			}
		}
		if matched == 0 {
			if out != nil {
				out = append(out, in[i])
			}
			i++
			continue
		}

		if out == nil {
			out = make([]rune, 0, len(in))
			out = append(out, in[:i]...)
		}
		out = append(out, r.canonical...)
		i += matched
		n++
	}
	if out == nil {
		return in, 0
	}
	return out, n
}

func hasPrefix(s, prefix []rune) bool {
	for i, r := range prefix {
		if s[i] != r {
			return false
		}
	}
	return true
}

func checkSpelling(s string) error {
	if s == "" || !utf8.ValidString(s) {
		return errors.New("empty or invalid spelling")
	}
	for _, r := range s {
		if isBoundaryRune(r) {
			return fmt.Errorf("contains boundary character %q", r)
		}
	}
	return nil
}
