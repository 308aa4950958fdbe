package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-canon/internal/canon"
	"quiz-canon/internal/corpus"
	"quiz-canon/internal/store"
)

const fixture = `[
  {
    "id": "fe-1",
    "question": "[ a ] に入れるべき字句はどれか。",
    "scenario": "1 結果 ← 0\n2 結果 ← [ a ]\n3 返却 結果",
    "explanation": "結果 を返す。",
    "choices": [{"label": "ア", "text": "結果 + 1"}, {"label": "イ", "text": "0"}],
    "answer": "イ"
  },
  {
    "id": "fe-2",
    "question": "空欄 [ a ] に入れるべき処理はどれか",
    "scenario": "説明文。空欄 [ a ] に入れるべき処理を選ぶ。",
    "explanation": "説明。",
    "answer": "ア"
  }
]
`

func setupCorpus(t *testing.T) string {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{"WORKER_COUNT", "CONTEXT_WINDOW", "BLANK_LABEL", "RULES_FILE", "DATABASE_URL", "REPORT_FORMAT"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "practical.json"), []byte(fixture), 0o644))
	return dir
}

func TestRunAudit(t *testing.T) {
	dir := setupCorpus(t)

	var buf bytes.Buffer
	require.NoError(t, runAudit(context.Background(), &buf, dir, options{}))

	var audits []struct {
		Path   string `json:"path"`
		Report struct {
			Entries []struct {
				ID      string `json:"id"`
				Verdict string `json:"verdict"`
			} `json:"entries"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &audits))
	require.Len(t, audits, 1)
	require.Len(t, audits[0].Report.Entries, 2)
	assert.Equal(t, "consistent", audits[0].Report.Entries[0].Verdict)
	assert.Equal(t, "only_in_prose_text", audits[0].Report.Entries[1].Verdict)
}

func TestRunAudit_FailOnIssuesAndTSVFile(t *testing.T) {
	dir := setupCorpus(t)
	out := filepath.Join(t.TempDir(), "audit.tsv")

	err := runAudit(context.Background(), &bytes.Buffer{}, dir, options{format: "tsv", output: out, failOnIssues: true})
	require.ErrorIs(t, err, ErrIssuesFound)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\tfe-2\tonly_in_prose_text\t")
}

func TestRunAudit_StoreWithoutDatabase(t *testing.T) {
	dir := setupCorpus(t)
	err := runAudit(context.Background(), &bytes.Buffer{}, dir, options{store: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestRunAudit_NotACollection(t *testing.T) {
	dir := setupCorpus(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"id": "x"}`), 0o644))

	err := runAudit(context.Background(), &bytes.Buffer{}, dir, options{})
	assert.ErrorIs(t, err, store.ErrStorage)
}

func TestRunRewrite(t *testing.T) {
	dir := setupCorpus(t)
	path := filepath.Join(dir, "practical.json")

	var buf bytes.Buffer
	require.NoError(t, runRewrite(context.Background(), &buf, dir, options{}))
	assert.Contains(t, buf.String(), `"id": "fe-1"`)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := corpus.DecodeCollection(data)
	require.NoError(t, err)
	assert.Equal(t, "1 result ← 0\n2 result ← [ a ]\n3 return result", records[0].Scenario)
	assert.Equal(t, "result + 1", records[0].Choices[0].Text)
	assert.Equal(t, "result を返す。", records[0].Explanation)
	answer, _ := records[0].StringField("answer")
	assert.Equal(t, "イ", answer)

	// A second pass finds nothing to change and leaves the file alone.
	buf.Reset()
	require.NoError(t, runRewrite(context.Background(), &buf, dir, options{}))
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
	assert.Equal(t, "null", strings.TrimSpace(buf.String()))
}

func TestRunRewrite_DryRun(t *testing.T) {
	dir := setupCorpus(t)
	path := filepath.Join(dir, "practical.json")

	var buf bytes.Buffer
	require.NoError(t, runRewrite(context.Background(), &buf, dir, options{dryRun: true}))
	assert.Contains(t, buf.String(), `"replacements"`)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fixture, string(data))
}

func TestRunRewrite_CancelledWritesNothing(t *testing.T) {
	dir := setupCorpus(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runRewrite(ctx, &bytes.Buffer{}, dir, options{})
	require.Error(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "practical.json"))
	require.NoError(t, err)
	assert.Equal(t, fixture, string(data))
}

func TestRunCheck(t *testing.T) {
	dir := setupCorpus(t)

	var buf bytes.Buffer
	err := runCheck(context.Background(), &buf, dir, options{format: "tsv", failOnIssues: true})
	require.ErrorIs(t, err, ErrIssuesFound)
	assert.Contains(t, buf.String(), "untranslated_identifier")
}

func TestRunRules(t *testing.T) {
	setupCorpus(t)

	var buf bytes.Buffer
	require.NoError(t, runRules(&buf, options{}))

	rf, err := canon.ParseRuleFile(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, canon.ModeReplace, rf.Mode)
	assert.Equal(t, canon.DefaultRules(), rf.Rules)
}

func TestRunRules_InvalidFile(t *testing.T) {
	setupCorpus(t)
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: []\n"), 0o644))

	err := runRules(&bytes.Buffer{}, options{rules: path})
	assert.ErrorIs(t, err, canon.ErrInvalidRules)
}

func TestRunShow_InvalidID(t *testing.T) {
	setupCorpus(t)
	err := runShow(context.Background(), &bytes.Buffer{}, "not-a-uuid", options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid run id")
}

func TestRunShow_WithoutDatabase(t *testing.T) {
	setupCorpus(t)
	err := runShow(context.Background(), &bytes.Buffer{}, "0b6f1c9e-3d2a-4f8e-9c1b-2a7d5e4f6a8b", options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"audit", "rewrite", "check", "rules", "run"} {
		assert.Contains(t, names, want)
	}
}
