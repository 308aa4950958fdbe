package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-canon/internal/lint"
	"quiz-canon/internal/placeholder"
	"quiz-canon/internal/scan"
)

func sampleAudits() []FileAudit {
	return []FileAudit{{
		Path: "fe/practical.json",
		Report: scan.AuditReport{
			Entries: []scan.Entry{
				{Index: 0, ID: "q1", Verdict: placeholder.Consistent, Occurrences: 1, Snippet: "結果 ← [ a ]"},
				{Index: 1, ID: "q2", Verdict: placeholder.OnlyInProseText, Occurrences: 1, Snippet: "空欄 [ a ]\tに入れるべき\n処理"},
			},
			Warnings: []scan.Warning{{Index: 2, ID: "", Message: "malformed record: id: Invalid type"}},
		},
	}}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAudit(&buf, FormatJSON, sampleAudits()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Contains(t, buf.String(), `"verdict": "only_in_prose_text"`)
	assert.Contains(t, buf.String(), "←")
}

func TestWriteTSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAudit(&buf, FormatTSV, sampleAudits()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "file\tindex\tid\tverdict\toccurrences\tsnippet", lines[0])
	assert.Equal(t, "fe/practical.json\t1\tq2\tonly_in_prose_text\t1\t空欄 [ a ]\\tに入れるべき\\n処理", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "fe/practical.json\t2\t\twarning\t\t"))
	for _, l := range lines {
		assert.Len(t, strings.Split(l, "\t"), 6)
	}
}

func TestWriteAudit_UnknownFormat(t *testing.T) {
	assert.Error(t, WriteAudit(&bytes.Buffer{}, "xml", nil))
}

func TestWriteIssuesTSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteIssuesTSV(&buf, []FileIssues{{
		Path:   "a.json",
		Issues: []lint.Issue{{Index: 3, ID: "x", Kind: lint.DuplicateID, Message: `duplicate id "x"`}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "file\tindex\tid\tkind\tmessage\na.json\t3\tx\tduplicate_id\tduplicate id \"x\"\n", buf.String())
}

func TestEscapeTSV(t *testing.T) {
	assert.Equal(t, `a\\tb\tc\nd`, escapeTSV("a\\tb\tc\nd"))
}
