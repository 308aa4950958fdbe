package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"quiz-canon/internal/worker"
)

// findingBatchSize bounds the number of inserts queued in one pgx.Batch.
const findingBatchSize = 500

const schemaSQL = `
CREATE TABLE IF NOT EXISTS audit_runs (
	id           uuid PRIMARY KEY,
	source       text NOT NULL,
	started_at   timestamptz NOT NULL,
	record_count int NOT NULL,
	issue_count  int NOT NULL
);
CREATE TABLE IF NOT EXISTS audit_findings (
	run_id        uuid NOT NULL REFERENCES audit_runs(id) ON DELETE CASCADE,
	file          text NOT NULL,
	record_index  int NOT NULL,
	record_id     text NOT NULL,
	verdict       text NOT NULL,
	snippet       text NOT NULL,
	scenario_hash text NOT NULL,
	PRIMARY KEY (run_id, file, record_index)
);
`

// PGStore persists audit runs in PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and verifies the connection.
func Connect(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PGStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the audit tables if they do not exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

type finding struct {
	file    string
	index   int
	id      string
	verdict string
	snippet string
	hash    string
}

// SaveAudit stores one audit run and every entry in it, in a single transaction.
// It returns the generated run ID.
func (s *PGStore) SaveAudit(ctx context.Context, source string, audits []FileAudit) (uuid.UUID, error) {
	runID := uuid.New()

	var findings []finding
	issues := 0
	for _, a := range audits {
		issues += a.Report.Issues()
		for _, e := range a.Report.Entries {
			findings = append(findings, finding{
				file:    a.Path,
				index:   e.Index,
				id:      e.ID,
				verdict: e.Verdict.String(),
				snippet: e.Snippet,
				hash:    e.ScenarioHash,
			})
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO audit_runs (id, source, started_at, record_count, issue_count)
		 VALUES ($1, $2, $3, $4, $5)`,
		runID, source, time.Now().UTC(), len(findings), issues,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert audit run: %w", err)
	}

	for _, chunk := range worker.Chunk(findings, findingBatchSize) {
		batch := &pgx.Batch{}
		for _, f := range chunk {
			batch.Queue(
				`INSERT INTO audit_findings (run_id, file, record_index, record_id, verdict, snippet, scenario_hash)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				runID, f.file, f.index, f.id, f.verdict, f.snippet, f.hash,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return uuid.Nil, fmt.Errorf("insert audit findings: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit audit run: %w", err)
	}

	log.Info().
		Str("run_id", runID.String()).
		Int("findings", len(findings)).
		Int("issues", issues).
		Msg("Saved audit run")
	return runID, nil
}

// RunSummary is a stored audit run.
type RunSummary struct {
	ID          uuid.UUID `json:"id"`
	Source      string    `json:"source"`
	StartedAt   time.Time `json:"started_at"`
	RecordCount int       `json:"record_count"`
	IssueCount  int       `json:"issue_count"`
}

// GetRun loads the summary of a stored run.
func (s *PGStore) GetRun(ctx context.Context, id uuid.UUID) (*RunSummary, error) {
	var r RunSummary
	err := s.pool.QueryRow(ctx,
		`SELECT id, source, started_at, record_count, issue_count FROM audit_runs WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Source, &r.StartedAt, &r.RecordCount, &r.IssueCount)
	if err != nil {
		return nil, fmt.Errorf("get audit run: %w", err)
	}
	return &r, nil
}

// CountFindings returns the number of stored findings of a run with the given verdict.
// An empty verdict counts all findings.
func (s *PGStore) CountFindings(ctx context.Context, id uuid.UUID, verdict string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM audit_findings WHERE run_id = $1 AND ($2::text = '' OR verdict = $2)`,
		id, verdict,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audit findings: %w", err)
	}
	return n, nil
}
