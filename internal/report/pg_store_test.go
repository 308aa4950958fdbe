package report

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-canon/internal/placeholder"
	"quiz-canon/internal/scan"
)

// setupTestStore connects to TEST_DATABASE_URL, skipping the test when it is unset or
// unreachable.
func setupTestStore(t *testing.T) *PGStore {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := Connect(ctx, url)
	if err != nil {
		t.Skipf("database not reachable: %v", err)
	}
	require.NoError(t, store.EnsureSchema(ctx))
	t.Cleanup(store.Close)
	return store
}

func TestPGStore_SaveAudit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	audits := sampleAudits()
	audits = append(audits, FileAudit{
		Path: "ap/quiz.json",
		Report: scan.AuditReport{Entries: []scan.Entry{
			{Index: 0, ID: "m1", Verdict: placeholder.MissingInScenario, ScenarioHash: "abc"},
		}},
	})

	runID, err := store.SaveAudit(ctx, "testdata", audits)
	require.NoError(t, err)

	run, err := store.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, "testdata", run.Source)
	assert.Equal(t, 3, run.RecordCount)
	assert.Equal(t, 2, run.IssueCount)

	total, err := store.CountFindings(ctx, runID, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	missing, err := store.CountFindings(ctx, runID, placeholder.MissingInScenario.String())
	require.NoError(t, err)
	assert.Equal(t, 1, missing)
}

func TestConnect_BadURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Connect(ctx, "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
	assert.Error(t, err)
}
