// Package scan runs the placeholder check and the identifier rewrite over whole record
// collections.
package scan

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"quiz-canon/internal/canon"
	"quiz-canon/internal/corpus"
	"quiz-canon/internal/placeholder"
	"quiz-canon/internal/textutil"
	"quiz-canon/internal/worker"
)

// Entry is the audit result for one well-formed record.
type Entry struct {
	Index       int                 `json:"index"`
	ID          string              `json:"id"`
	Verdict     placeholder.Verdict `json:"verdict"`
	Occurrences int                 `json:"occurrences"`
	Snippet     string              `json:"snippet,omitempty"`

	// ScenarioHash identifies the scenario text the verdict was computed from.
	ScenarioHash string `json:"scenario_hash,omitempty"`
}

// Warning reports a record that could not be processed normally.
type Warning struct {
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// AuditReport is the outcome of an audit pass.
type AuditReport struct {
	Entries  []Entry   `json:"entries"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Issues counts entries whose verdict is not Consistent.
func (r AuditReport) Issues() int {
	n := 0
	for _, e := range r.Entries {
		if e.Verdict != placeholder.Consistent {
			n++
		}
	}
	return n
}

// Change describes one rewritten record.
type Change struct {
	Index        int    `json:"index"`
	ID           string `json:"id"`
	Replacements int    `json:"replacements"`
}

// RewriteResult is the outcome of a rewrite pass. Records has the same length and order
// as the input.
type RewriteResult struct {
	Records  []corpus.Record `json:"-"`
	Changed  []int           `json:"changed"`
	Changes  []Change        `json:"changes,omitempty"`
	Warnings []Warning       `json:"warnings,omitempty"`
}

// Scanner applies the locator and canonicalizer to record collections.
type Scanner struct {
	locator *placeholder.Locator
	canon   *canon.Canonicalizer
	workers int
}

// New creates a Scanner. workers bounds per-record concurrency.
func New(locator *placeholder.Locator, c *canon.Canonicalizer, workers int) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{locator: locator, canon: c, workers: workers}
}

// Audit checks every well-formed record. Malformed records are skipped with a warning.
func (s *Scanner) Audit(ctx context.Context, records []corpus.Record) (AuditReport, error) {
	pool := worker.NewPool(s.workers, func(_ context.Context, r corpus.Record) (placeholder.Result, error) {
		if err := r.Err(); err != nil {
			return placeholder.Result{}, err
		}
		return s.locator.Locate(r.Question, r.Scenario), nil
	})
	tasks, err := pool.Run(ctx, records)
	if err != nil {
		return AuditReport{}, fmt.Errorf("audit: %w", err)
	}

	report := AuditReport{Entries: make([]Entry, 0, len(records))}
	for _, task := range tasks {
		r := task.Input
		if task.Err != nil {
			report.Warnings = append(report.Warnings, warn(r, task.Err))
			continue
		}
		report.Entries = append(report.Entries, Entry{
			Index:        r.Index,
			ID:           r.ID,
			Verdict:      task.Result.Verdict,
			Occurrences:  len(task.Result.Occurrences),
			Snippet:      task.Result.Snippet,
			ScenarioHash: textutil.Hash(r.Scenario),
		})
	}

	log.Info().
		Int("records", len(records)).
		Int("issues", report.Issues()).
		Int("warnings", len(report.Warnings)).
		Msg("Audit complete")
	return report, nil
}

type rewritten struct {
	record       corpus.Record
	replacements int
}

// Rewrite canonicalizes every well-formed record. The input slice and its records are
// not modified. Malformed records are passed through unchanged with a warning.
func (s *Scanner) Rewrite(ctx context.Context, records []corpus.Record) (RewriteResult, error) {
	pool := worker.NewPool(s.workers, func(_ context.Context, r corpus.Record) (rewritten, error) {
		if err := r.Err(); err != nil {
			return rewritten{record: r}, err
		}
		total := 0
		out := r.Map(func(text string) string {
			next, n := s.canon.CanonicalizeCount(text)
			total += n
			return next
		})
		return rewritten{record: out, replacements: total}, nil
	})
	tasks, err := pool.Run(ctx, records)
	if err != nil {
		return RewriteResult{}, fmt.Errorf("rewrite: %w", err)
	}

	result := RewriteResult{Records: make([]corpus.Record, len(records))}
	for i, task := range tasks {
		r := task.Input
		if task.Err != nil {
			result.Records[i] = r
			result.Warnings = append(result.Warnings, warn(r, task.Err))
			continue
		}
		result.Records[i] = task.Result.record
		if task.Result.replacements > 0 {
			result.Changed = append(result.Changed, i)
			result.Changes = append(result.Changes, Change{
				Index:        r.Index,
				ID:           r.ID,
				Replacements: task.Result.replacements,
			})
		}
	}

	log.Info().
		Int("records", len(records)).
		Int("changed", len(result.Changed)).
		Int("warnings", len(result.Warnings)).
		Msg("Rewrite complete")
	return result, nil
}

func warn(r corpus.Record, err error) Warning {
	log.Warn().Err(err).Int("index", r.Index).Str("id", r.ID).Msg("Skipping malformed record")
	return Warning{Index: r.Index, ID: r.ID, Message: err.Error()}
}
