// Package lint runs integrity checks over a record collection.
package lint

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"quiz-canon/internal/classify"
	"quiz-canon/internal/corpus"
	"quiz-canon/internal/textutil"
)

// Kind names a class of integrity issue.
type Kind string

const (
	MissingField            Kind = "missing_field"
	DuplicateID             Kind = "duplicate_id"
	DuplicateQuestion       Kind = "duplicate_question"
	AnswerMismatch          Kind = "answer_mismatch"
	UntranslatedIdentifier  Kind = "untranslated_identifier"
	CorruptedText           Kind = "corrupted_text"
	UnknownOptionIdentifier Kind = "unknown_option_identifier"
	MalformedRecord         Kind = "malformed_record"
)

// Issue is one integrity problem found in a record.
type Issue struct {
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

var (
	identRe = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)
	// condRe captures the condition of "もし <cond> ならば" when it compares values.
	condRe = regexp.MustCompile(`もし(.*?[=<>≠≦≧≤≥].*?)ならば`)
)

// commonWords are identifiers options may use without the scenario declaring them.
var commonWords = map[string]bool{
	"True": true, "False": true, "true": true, "false": true,
	"null": true, "NULL": true, "None": true, "none": true,
	"AND": true, "OR": true, "NOT": true, "and": true, "or": true, "not": true,
	"return": true, "if": true, "else": true, "while": true, "for": true, "break": true,
}

const snippetLen = 30

// Check runs every integrity check and returns issues in record order.
func Check(records []corpus.Record) []Issue {
	var issues []Issue
	ids := make(map[string]int)
	questions := make(map[string]int)

	for _, r := range records {
		add := func(kind Kind, format string, args ...any) {
			issues = append(issues, Issue{Index: r.Index, ID: r.ID, Kind: kind, Message: fmt.Sprintf(format, args...)})
		}

		if r.Malformed() {
			add(MalformedRecord, "%s", strings.Join(r.Problems, "; "))
			continue
		}

		for _, f := range [][2]string{{"id", r.ID}, {"question", r.Question}, {"explanation", r.Explanation}} {
			if strings.TrimSpace(f[1]) == "" {
				add(MissingField, "missing field: %s", f[0])
			}
		}

		if r.ID != "" {
			if first, ok := ids[r.ID]; ok {
				add(DuplicateID, "duplicate id %q (first at index %d)", r.ID, first)
			} else {
				ids[r.ID] = r.Index
			}
		}
		if r.Question != "" {
			if first, ok := questions[r.Question]; ok {
				add(DuplicateQuestion, "duplicate question %q (first at index %d)", textutil.Truncate(r.Question, snippetLen), first)
			} else {
				questions[r.Question] = r.Index
			}
		}

		if answer, ok := r.StringField("answer"); ok && answer != "" {
			if labels := answerLabels(r); len(labels) > 0 && !slices.Contains(labels, answer) {
				add(AnswerMismatch, "answer %q not among %s", answer, strings.Join(labels, ", "))
			}
		}

		for _, msg := range untranslated(r.Scenario) {
			add(UntranslatedIdentifier, "%s", msg)
		}

		for _, text := range r.Texts() {
			if strings.ContainsRune(text, utf8.RuneError) {
				add(CorruptedText, "replacement character in %q", textutil.Truncate(textutil.OneLine(text), snippetLen))
				break
			}
		}

		if missing := unknownOptionIdentifiers(r); len(missing) > 0 {
			add(UnknownOptionIdentifier, "identifiers not in scenario: %s", strings.Join(missing, ", "))
		}
	}
	return issues
}

// untranslated flags scenario lines that still use localized names in code: an
// assignment target made only of kana/kanji, or a comparison in a もし condition that
// mentions one. 真 and 偽 are literals, not names.
func untranslated(scenario string) []string {
	var out []string
	for _, line := range strings.Split(scenario, "\n") {
		if classify.HasAssignment(line) {
			if lhs, _, ok := classify.SplitAssignment(line); ok && textutil.OnlyJapanese(lhs) {
				out = append(out, "localized assignment target: "+strings.TrimSpace(line))
			}
			continue
		}
		m := condRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if cond := m[1]; textutil.ContainsJapanese(cond) && !strings.ContainsAny(cond, "真偽") {
			out = append(out, "localized name in condition: "+strings.TrimSpace(line))
		}
	}
	return out
}

// answerLabels collects the labels an answer may refer to: choice labels, or the
// leading rune of each option ("ア: ...").
func answerLabels(r corpus.Record) []string {
	var labels []string
	for _, c := range r.Choices {
		if c.Label != "" {
			labels = append(labels, c.Label)
		}
	}
	if len(labels) > 0 {
		return labels
	}
	for _, o := range r.Options {
		if first, _ := utf8.DecodeRuneInString(strings.TrimSpace(o)); first != utf8.RuneError {
			labels = append(labels, string(first))
		}
	}
	return labels
}

func unknownOptionIdentifiers(r corpus.Record) []string {
	if strings.TrimSpace(r.Scenario) == "" {
		return nil
	}
	texts := append([]string{}, r.Options...)
	for _, c := range r.Choices {
		texts = append(texts, c.Text)
	}

	seen := make(map[string]bool)
	var missing []string
	for _, text := range texts {
		for _, ident := range identRe.FindAllString(text, -1) {
			if len(ident) == 1 || commonWords[ident] || seen[ident] {
				continue
			}
			seen[ident] = true
			if !strings.Contains(r.Scenario, ident) {
				missing = append(missing, ident)
			}
		}
	}
	return missing
}
