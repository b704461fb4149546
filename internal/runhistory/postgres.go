package runhistory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresRepository stores run records in PostgreSQL.
// The caller must import a driver (e.g. _ "github.com/lib/pq").
type PostgresRepository struct {
	pool *sql.DB
}

// OpenPostgres connects to databaseURL, verifies the connection, and
// applies the schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("run history: open database: %w", err)
	}
	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(5)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run history: ping database: %w", err)
	}
	if _, err := pool.ExecContext(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run history: apply schema: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

// Close closes the connection pool.
func (r *PostgresRepository) Close() error {
	return r.pool.Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
    id            TEXT PRIMARY KEY,
    pipeline      TEXT NOT NULL,
    trigger_type  TEXT NOT NULL DEFAULT 'manual',
    trigger_ref   TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL DEFAULT 'pending',
    outputs       JSONB NOT NULL DEFAULT '{}',
    error         TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    started_at    TIMESTAMPTZ,
    completed_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_pipeline ON pipeline_runs(pipeline);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_status ON pipeline_runs(status);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_created_at ON pipeline_runs(created_at);
`

const runColumns = `id, pipeline, trigger_type, trigger_ref, status, outputs, error, created_at, started_at, completed_at`

func (r *PostgresRepository) Create(ctx context.Context, rec *RunRecord) error {
	outputs, err := json.Marshal(rec.Outputs)
	if err != nil {
		return fmt.Errorf("run history: encode outputs of %s: %w", rec.ID, err)
	}

	_, err = r.pool.ExecContext(ctx,
		`INSERT INTO pipeline_runs (`+runColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.Pipeline, rec.TriggerType, rec.TriggerRef,
		string(rec.Status), outputs, rec.Error,
		rec.CreatedAt, rec.StartedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("run history: store %s: %w", rec.ID, err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, rec *RunRecord) error {
	outputs, err := json.Marshal(rec.Outputs)
	if err != nil {
		return fmt.Errorf("run history: encode outputs of %s: %w", rec.ID, err)
	}

	res, err := r.pool.ExecContext(ctx,
		`UPDATE pipeline_runs
		 SET status = $2, outputs = $3, error = $4, started_at = $5, completed_at = $6
		 WHERE id = $1`,
		rec.ID, string(rec.Status), outputs, rec.Error, rec.StartedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("run history: refresh %s: %w", rec.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*RunRecord, error) {
	rec := &RunRecord{}
	var status string
	var outputs []byte

	err := r.pool.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM pipeline_runs WHERE id = $1`, id,
	).Scan(
		&rec.ID, &rec.Pipeline, &rec.TriggerType, &rec.TriggerRef,
		&status, &outputs, &rec.Error,
		&rec.CreatedAt, &rec.StartedAt, &rec.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("run history: load %s: %w", id, err)
	}

	rec.Status = RunStatus(status)
	if err := json.Unmarshal(outputs, &rec.Outputs); err != nil {
		return nil, fmt.Errorf("run history: decode outputs of %s: %w", id, err)
	}
	return rec, nil
}

func (r *PostgresRepository) ListByPipeline(ctx context.Context, pipeline string, limit, offset int) ([]*RunRecord, int, error) {
	return r.window(ctx, pipeline, "", limit, offset)
}

func (r *PostgresRepository) ListAll(ctx context.Context, limit, offset int, status string) ([]*RunRecord, int, error) {
	return r.window(ctx, "", status, limit, offset)
}

// window fetches one page of runs plus the total match count in a single
// round trip, using a count window over the filtered set. An empty page
// costs a second query for the count. Empty filter strings match
// everything.
func (r *PostgresRepository) window(ctx context.Context, pipeline, status string, limit, offset int) ([]*RunRecord, int, error) {
	rows, err := r.pool.QueryContext(ctx,
		`SELECT `+runColumns+`, COUNT(*) OVER () AS total
		 FROM pipeline_runs
		 WHERE ($1 = '' OR pipeline = $1) AND ($2 = '' OR status = $2)
		 ORDER BY created_at DESC, id
		 LIMIT $3 OFFSET $4`,
		pipeline, status, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("run history: list: %w", err)
	}
	defer rows.Close()

	var records []*RunRecord
	total := 0
	for rows.Next() {
		rec := &RunRecord{}
		var recStatus string
		var outputs []byte
		if err := rows.Scan(
			&rec.ID, &rec.Pipeline, &rec.TriggerType, &rec.TriggerRef,
			&recStatus, &outputs, &rec.Error,
			&rec.CreatedAt, &rec.StartedAt, &rec.CompletedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("run history: read row: %w", err)
		}
		rec.Status = RunStatus(recStatus)
		if err := json.Unmarshal(outputs, &rec.Outputs); err != nil {
			return nil, 0, fmt.Errorf("run history: decode outputs of %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("run history: list: %w", err)
	}

	// A page past the end returns no rows and therefore no window total;
	// count separately so pagination metadata stays correct.
	if len(records) == 0 {
		err := r.pool.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM pipeline_runs
			 WHERE ($1 = '' OR pipeline = $1) AND ($2 = '' OR status = $2)`,
			pipeline, status,
		).Scan(&total)
		if err != nil {
			return nil, 0, fmt.Errorf("run history: count: %w", err)
		}
	}
	return records, total, nil
}
