// Package placeholder checks that the blank marker a question refers to is actually
// placed inside the scenario's pseudo-code rather than only echoed in prose.
package placeholder

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"

	"quiz-canon/internal/classify"
	"quiz-canon/internal/textutil"
)

// Verdict is the per-record outcome of a placeholder check.
type Verdict int

const (
	Consistent Verdict = iota
	MissingInScenario
	OnlyInProseText
)

func (v Verdict) String() string {
	switch v {
	case MissingInScenario:
		return "missing_in_scenario"
	case OnlyInProseText:
		return "only_in_prose_text"
	default:
		return "consistent"
	}
}

// MarshalText lets verdicts serialize as their names in JSON reports.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Placement explains why an occurrence was or was not counted as code-placed.
type Placement string

const (
	PlacedByWindow    Placement = "window"
	PlacedByLine      Placement = "line"
	PlacedByBlock     Placement = "block"
	VetoedRestatement Placement = "restatement"
	NotPlaced         Placement = "none"
)

// DefaultRestatementPhrases are the phrases used when a question is echoed at the end
// of a scenario ("the value that should go in the blank").
var DefaultRestatementPhrases = []string{
	"に入れるべき",
	"に入る字句",
	"に入る適切な",
	"should go in the blank",
}

const (
	DefaultLabel  = "a"
	DefaultWindow = 20
)

// codeCues are the window-level evidence of code placement.
var codeCues = []string{"←", "<-", ":=", "=", "<", ">", "≠", "≦", "≧", "≤", "≥", "(", "["}

// Options tune the locator.
type Options struct {
	// Label is the blank name, "a" for "[ a ]".
	Label string
	// Window is the number of runes inspected on each side of an occurrence.
	Window int
	// RestatementPhrases veto code placement when found in the window.
	RestatementPhrases []string
}

// Occurrence describes one marker found in a scenario.
type Occurrence struct {
	Line       int       `json:"line"`
	CodePlaced bool      `json:"code_placed"`
	Placement  Placement `json:"placement"`
	Snippet    string    `json:"snippet"`
}

// Result is the outcome of Locate.
type Result struct {
	Verdict     Verdict      `json:"verdict"`
	Occurrences []Occurrence `json:"occurrences,omitempty"`
	Snippet     string       `json:"snippet,omitempty"`
}

// Locator finds blank markers and decides whether they sit in code.
type Locator struct {
	opts   Options
	marker *regexp.Regexp
}

// NewLocator creates a Locator, filling unset options with defaults.
func NewLocator(opts Options) *Locator {
	if opts.Label == "" {
		opts.Label = DefaultLabel
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.RestatementPhrases == nil {
		opts.RestatementPhrases = DefaultRestatementPhrases
	}
	label := width.Fold.String(opts.Label)
	return &Locator{
		opts:   opts,
		marker: regexp.MustCompile(`\[[ \t]*` + regexp.QuoteMeta(label) + `[ \t]*\]`),
	}
}

// MarkerIn reports whether text references the blank marker.
func (l *Locator) MarkerIn(text string) bool {
	return l.marker.MatchString(width.Fold.String(text))
}

// Locate returns the verdict for one record. It never fails: every input maps to
// exactly one verdict.
func (l *Locator) Locate(question, scenario string) Result {
	if !l.MarkerIn(question) {
		return Result{Verdict: Consistent}
	}

	// Markers are matched on width-folded text; windows are cut from the original so
	// full-width prose punctuation is not mistaken for code.
	folded := width.Fold.String(scenario)
	locs := l.marker.FindAllStringIndex(folded, -1)
	if len(locs) == 0 {
		return Result{
			Verdict: MissingInScenario,
			Snippet: textutil.Truncate(textutil.OneLine(question), 60),
		}
	}

	orig := []rune(scenario)
	if f := []rune(folded); len(f) != len(orig) {
		orig = f
	}
	// Every marker is blanked out so its own brackets never count as evidence.
	masked := make([]rune, len(orig))
	copy(masked, orig)
	spans := make([][2]int, len(locs))
	for i, loc := range locs {
		rs := utf8.RuneCountInString(folded[:loc[0]])
		re := rs + utf8.RuneCountInString(folded[loc[0]:loc[1]])
		spans[i] = [2]int{rs, re}
		for j := rs; j < re; j++ {
			masked[j] = '_'
		}
	}
	fenced := fencedLines(string(orig))
	lines := strings.Split(string(masked), "\n")

	result := Result{Verdict: OnlyInProseText}
	for _, span := range spans {
		occ := l.classifyOccurrence(orig, masked, lines, fenced, span[0], span[1])
		result.Occurrences = append(result.Occurrences, occ)
		if occ.CodePlaced && result.Verdict != Consistent {
			result.Verdict = Consistent
			result.Snippet = occ.Snippet
		}
	}
	if result.Verdict != Consistent {
		result.Snippet = result.Occurrences[len(result.Occurrences)-1].Snippet
	}
	return result
}

func (l *Locator) classifyOccurrence(orig, masked []rune, lines []string, fenced []bool, start, end int) Occurrence {
	from := max(0, start-l.opts.Window)
	to := min(len(masked), end+l.opts.Window)
	window := string(masked[from:start]) + " " + string(masked[end:to])

	lineIdx := 0
	lineStart := 0
	for i := 0; i < start; i++ {
		if orig[i] == '\n' {
			lineIdx++
			lineStart = i + 1
		}
	}
	lineEnd := len(orig)
	for i := end; i < len(orig); i++ {
		if orig[i] == '\n' {
			lineEnd = i
			break
		}
	}
	line := string(masked[lineStart:lineEnd])

	occ := Occurrence{
		Line:      lineIdx + 1,
		Placement: NotPlaced,
		Snippet:   textutil.OneLine(string(orig[from:to])),
	}

	for _, phrase := range l.opts.RestatementPhrases {
		if phrase != "" && strings.Contains(window, phrase) {
			occ.Placement = VetoedRestatement
			return occ
		}
	}

	switch {
	case containsAny(window, codeCues):
		occ.Placement = PlacedByWindow
	case classify.Line(line) == classify.Code:
		occ.Placement = PlacedByLine
	case fenced[lineIdx] || inListing(lines, lineIdx, string(orig[lineStart:start])+string(orig[end:lineEnd])):
		occ.Placement = PlacedByBlock
	default:
		return occ
	}
	occ.CodePlaced = true
	return occ
}

// inListing reports whether the marker on line idx sits in a numbered or indented
// listing. Layout alone is not enough: the marker must fill the listing line by itself,
// or an adjacent listing line must be code. rest is the line without the marker.
func inListing(lines []string, idx int, rest string) bool {
	if !classify.IsCodeBlockLine(lines[idx]) {
		return false
	}
	if strings.TrimSpace(classify.StripLineNumber(strings.TrimSpace(rest))) == "" {
		return true
	}
	for _, n := range []int{idx - 1, idx + 1} {
		if n < 0 || n >= len(lines) {
			continue
		}
		if classify.IsCodeBlockLine(lines[n]) && classify.Line(lines[n]) == classify.Code {
			return true
		}
	}
	return false
}

// fencedLines marks the lines that sit inside a ``` fenced block.
func fencedLines(s string) []bool {
	lines := strings.Split(s, "\n")
	out := make([]bool, len(lines))
	inside := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inside = !inside
			continue
		}
		out[i] = inside
	}
	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
