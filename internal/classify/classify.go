// Package classify labels single lines of scenario text as code-like or prose-like
// using lightweight lexical cues.
package classify

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"quiz-canon/internal/textutil"
)

// Context is the derived label of a line or window. It is never persisted.
type Context int

const (
	Prose Context = iota
	Code
)

func (c Context) String() string {
	if c == Code {
		return "code"
	}
	return "prose"
}

// Cue names the lexical evidence that made a line Code.
type Cue int

const (
	CueNone Cue = iota
	CueAssignment
	CueComparison
	CueIndex
	CueCall
)

func (c Cue) String() string {
	switch c {
	case CueAssignment:
		return "assignment"
	case CueComparison:
		return "comparison"
	case CueIndex:
		return "index"
	case CueCall:
		return "call"
	default:
		return "none"
	}
}

// AssignmentGlyphs are the accepted assignment arrows, single glyph first.
var AssignmentGlyphs = []string{"←", "<-", ":="}

var (
	comparisonRe = regexp.MustCompile(`\S\s*(?:==|!=|<=|>=|≠|≦|≧|≤|≥|<|>|=)\s*\S`)
	indexRe      = regexp.MustCompile(`[\p{L}\p{N}_)\]]\[[^\[\]]*\]`)
	callRe       = regexp.MustCompile(`[\p{L}\p{N}_]\([^()]*\)`)

	// "16.   x ← 1", "5   return -1", "14 return -1"; a "1. " list item is prose.
	numberedRe   = regexp.MustCompile(`^\s*\d+(?:\.[ \t]{2,}|[ \t]+)\S`)
	lineNumberRe = regexp.MustCompile(`^\s*\d+\s*\.?\s*`)
)

// quotePairs maps opening quote runes to their closing rune.
var quotePairs = map[rune]rune{
	'"': '"',
	'「': '」',
	'『': '』',
	'“': '”',
}

// Line classifies one line of scenario text.
func Line(line string) Context {
	ctx, _ := Classify(line)
	return ctx
}

// Classify returns the context of a line together with the first cue that matched.
// Cues are evaluated in priority order: assignment, comparison, index, call.
func Classify(line string) (Context, Cue) {
	masked := MaskQuoted(line)
	switch {
	case assignmentIndex(masked) >= 0:
		return Code, CueAssignment
	case comparisonRe.MatchString(masked):
		return Code, CueComparison
	case indexRe.MatchString(masked):
		return Code, CueIndex
	case callRe.MatchString(masked):
		return Code, CueCall
	}
	return Prose, CueNone
}

// HasAssignment reports whether the line holds a delimited assignment glyph outside quotes.
func HasAssignment(line string) bool {
	return assignmentIndex(MaskQuoted(line)) >= 0
}

// SplitAssignment splits "12  lhs ← rhs" into its trimmed sides. The line number is
// dropped from the left-hand side.
func SplitAssignment(line string) (lhs, rhs string, ok bool) {
	masked := MaskQuoted(line)
	idx := assignmentIndex(masked)
	if idx < 0 {
		return "", "", false
	}
	glyphLen := 0
	for _, g := range AssignmentGlyphs {
		if strings.HasPrefix(masked[idx:], g) {
			glyphLen = len(g)
			break
		}
	}
	lhs = StripLineNumber(strings.TrimSpace(line[:idx]))
	rhs = strings.TrimSpace(line[idx+glyphLen:])
	return strings.TrimSpace(lhs), rhs, true
}

// IsCodeBlockLine reports whether the line looks like part of a numbered or indented
// pseudo-code listing.
func IsCodeBlockLine(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	if numberedRe.MatchString(line) {
		return true
	}
	return strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "  ")
}

// StripLineNumber removes a leading listing number such as "16." or "5".
func StripLineNumber(line string) string {
	return lineNumberRe.ReplaceAllString(line, "")
}

// MaskQuoted replaces the contents of closed quoted literals with underscores. Byte
// offsets are preserved so indexes into the masked line are valid in the original.
func MaskQuoted(line string) string {
	if !strings.ContainsAny(line, "\"「『“") {
		return line
	}
	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); {
		r, size := utf8.DecodeRuneInString(line[i:])
		closer, isQuote := quotePairs[r]
		if !isQuote {
			b.WriteString(line[i : i+size])
			i += size
			continue
		}
		end := strings.IndexRune(line[i+size:], closer)
		if end < 0 {
			b.WriteString(line[i:])
			break
		}
		inner := i + size + end
		b.WriteString(line[i : i+size])
		b.WriteString(strings.Repeat("_", inner-(i+size)))
		b.WriteRune(closer)
		i = inner + utf8.RuneLen(closer)
	}
	return b.String()
}

// assignmentIndex returns the byte offset of the first assignment glyph that has
// start-of-line or whitespace before it and end-of-line or whitespace after it.
func assignmentIndex(line string) int {
	best := -1
	for _, g := range AssignmentGlyphs {
		from := 0
		for {
			rel := strings.Index(line[from:], g)
			if rel < 0 {
				break
			}
			at := from + rel
			if delimited(line, at, at+len(g)) {
				if best < 0 || at < best {
					best = at
				}
				break
			}
			from = at + len(g)
		}
	}
	return best
}

func delimited(line string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(line[:start])
		if !textutil.IsSpace(r) {
			return false
		}
	}
	if end < len(line) {
		r, _ := utf8.DecodeRuneInString(line[end:])
		if !textutil.IsSpace(r) {
			return false
		}
	}
	return true
}
