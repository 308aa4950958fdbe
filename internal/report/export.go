// Package report serializes audit results and optionally persists them to PostgreSQL.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"quiz-canon/internal/lint"
	"quiz-canon/internal/scan"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatTSV  = "tsv"
)

// FileAudit is the audit report for one corpus file.
type FileAudit struct {
	Path   string           `json:"path"`
	Report scan.AuditReport `json:"report"`
}

// FileIssues is the lint result for one corpus file.
type FileIssues struct {
	Path   string       `json:"path"`
	Issues []lint.Issue `json:"issues"`
}

// WriteAudit writes audits in the given format.
func WriteAudit(w io.Writer, format string, audits []FileAudit) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, audits)
	case FormatTSV:
		return WriteTSV(w, audits)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteJSON writes v as indented JSON without HTML escaping.
func WriteJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// WriteTSV writes one row per audit entry. Warnings are written as rows with the
// verdict "warning".
func WriteTSV(w io.Writer, audits []FileAudit) error {
	if _, err := fmt.Fprintln(w, "file\tindex\tid\tverdict\toccurrences\tsnippet"); err != nil {
		return fmt.Errorf("write TSV header: %w", err)
	}
	for _, a := range audits {
		for _, e := range a.Report.Entries {
			if err := writeRow(w, a.Path, e.Index, e.ID, e.Verdict.String(), strconv.Itoa(e.Occurrences), e.Snippet); err != nil {
				return err
			}
		}
		for _, wn := range a.Report.Warnings {
			if err := writeRow(w, a.Path, wn.Index, wn.ID, "warning", "", wn.Message); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteIssuesTSV writes lint issues as TSV.
func WriteIssuesTSV(w io.Writer, files []FileIssues) error {
	if _, err := fmt.Fprintln(w, "file\tindex\tid\tkind\tmessage"); err != nil {
		return fmt.Errorf("write TSV header: %w", err)
	}
	for _, f := range files {
		for _, i := range f.Issues {
			if _, err := fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
				escapeTSV(f.Path), i.Index, escapeTSV(i.ID), i.Kind, escapeTSV(i.Message)); err != nil {
				return fmt.Errorf("write TSV row: %w", err)
			}
		}
	}
	return nil
}

func writeRow(w io.Writer, path string, index int, id, verdict, occurrences, snippet string) error {
	_, err := fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
		escapeTSV(path), index, escapeTSV(id), verdict, occurrences, escapeTSV(snippet))
	if err != nil {
		return fmt.Errorf("write TSV row: %w", err)
	}
	return nil
}

// escapeTSV replaces tabs and newlines in a string for TSV safety.
func escapeTSV(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	return s
}
