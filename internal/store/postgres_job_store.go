package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/pixelfan/pixelfan/internal/domain"
)

const batchSchemaSQL = `
CREATE TABLE IF NOT EXISTS batch_jobs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	source_type TEXT NOT NULL,
	webhook_url TEXT NOT NULL DEFAULT '',
	inputs JSONB NOT NULL,
	stages JSONB NOT NULL,
	output_prefix TEXT NOT NULL DEFAULT '',
	result JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

type PostgresJobStore struct {
	db *sql.DB
}

func NewPostgresJobStore(ctx context.Context, dsn string) (*PostgresJobStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresJobStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresJobStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, batchSchemaSQL); err != nil {
		return fmt.Errorf("ensure batch_jobs schema: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) Close() error {
	return s.db.Close()
}

func (s *PostgresJobStore) Create(ctx context.Context, job domain.Job) error {
	inputsJSON, err := json.Marshal(job.Inputs)
	if err != nil {
		return fmt.Errorf("marshal batch inputs: %w", err)
	}
	stagesJSON, err := json.Marshal(job.Stages)
	if err != nil {
		return fmt.Errorf("marshal batch stages: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO batch_jobs (id, status, source_type, webhook_url, inputs, stages, output_prefix, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID,
		job.Status,
		job.SourceType,
		job.WebhookURL,
		inputsJSON,
		stagesJSON,
		job.OutputPrefix,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch job: %w", err)
	}

	return nil
}

func (s *PostgresJobStore) Get(ctx context.Context, id string) (domain.Job, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, status, source_type, webhook_url, inputs, stages, output_prefix, result, created_at, updated_at
		 FROM batch_jobs
		 WHERE id = $1`,
		id,
	)

	var (
		job        domain.Job
		inputsJSON []byte
		stagesJSON []byte
		resultJSON []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.Status,
		&job.SourceType,
		&job.WebhookURL,
		&inputsJSON,
		&stagesJSON,
		&job.OutputPrefix,
		&resultJSON,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.Job{}, false, nil
		}
		return domain.Job{}, false, fmt.Errorf("query batch job: %w", err)
	}

	if err := json.Unmarshal(inputsJSON, &job.Inputs); err != nil {
		return domain.Job{}, false, fmt.Errorf("unmarshal batch inputs: %w", err)
	}
	if err := json.Unmarshal(stagesJSON, &job.Stages); err != nil {
		return domain.Job{}, false, fmt.Errorf("unmarshal batch stages: %w", err)
	}
	if len(resultJSON) > 0 {
		var result domain.BatchResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return domain.Job{}, false, fmt.Errorf("unmarshal batch result: %w", err)
		}
		job.Result = &result
	}

	return job, true, nil
}

func (s *PostgresJobStore) UpdateStatus(ctx context.Context, id, status string) (domain.Job, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE batch_jobs
		 SET status = $1, updated_at = $2
		 WHERE id = $3`,
		status,
		now,
		id,
	)
	if err != nil {
		return domain.Job{}, fmt.Errorf("update batch job status: %w", err)
	}

	job, ok, err := s.Get(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	if !ok {
		return domain.Job{}, ErrJobNotFound
	}

	return job, nil
}

func (s *PostgresJobStore) RecordResult(ctx context.Context, id string, result domain.BatchResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal batch result: %w", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE batch_jobs
		 SET result = $1, updated_at = $2
		 WHERE id = $3`,
		resultJSON,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("record batch result: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrJobNotFound
	}
	return nil
}
