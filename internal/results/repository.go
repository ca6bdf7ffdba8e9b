package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/screener/backend/internal/contracts"
)

// ErrRunNotFound is returned when a run id has no stored result
var ErrRunNotFound = errors.New("run not found")

// Repository persists completed analyze runs
// ⭐ SSOT: 분석 결과 저장/조회는 여기서만
//
// Schema:
//
//	CREATE TABLE screener.runs (
//	    run_id      TEXT PRIMARY KEY,
//	    config_hash TEXT NOT NULL,
//	    started_at  TIMESTAMPTZ NOT NULL,
//	    duration_ms BIGINT NOT NULL,
//	    ranked      JSONB NOT NULL,
//	    filtered    JSONB NOT NULL,
//	    failed      JSONB NOT NULL,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new run repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun stores one completed pipeline result
func (r *Repository) SaveRun(ctx context.Context, result *contracts.PipelineResult) error {
	rankedJSON, err := json.Marshal(result.Ranked)
	if err != nil {
		return fmt.Errorf("marshal ranked: %w", err)
	}
	filteredJSON, err := json.Marshal(result.Filtered)
	if err != nil {
		return fmt.Errorf("marshal filtered: %w", err)
	}
	failedJSON, err := json.Marshal(result.Failed)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	query := `
		INSERT INTO screener.runs (
			run_id, config_hash, started_at, duration_ms, ranked, filtered, failed
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.pool.Exec(ctx, query,
		result.RunID,
		result.ConfigHash,
		result.StartedAt,
		result.Duration.Milliseconds(),
		rankedJSON,
		filteredJSON,
		failedJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// GetRun loads one run by id
func (r *Repository) GetRun(ctx context.Context, runID string) (*contracts.PipelineResult, error) {
	query := `
		SELECT run_id, config_hash, started_at, duration_ms, ranked, filtered, failed
		FROM screener.runs
		WHERE run_id = $1
	`

	var (
		result       contracts.PipelineResult
		durationMS   int64
		rankedJSON   []byte
		filteredJSON []byte
		failedJSON   []byte
	)

	row := r.pool.QueryRow(ctx, query, runID)
	err := row.Scan(&result.RunID, &result.ConfigHash, &result.StartedAt, &durationMS, &rankedJSON, &filteredJSON, &failedJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	result.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal(rankedJSON, &result.Ranked); err != nil {
		return nil, fmt.Errorf("unmarshal ranked: %w", err)
	}
	if err := json.Unmarshal(filteredJSON, &result.Filtered); err != nil {
		return nil, fmt.Errorf("unmarshal filtered: %w", err)
	}
	if err := json.Unmarshal(failedJSON, &result.Failed); err != nil {
		return nil, fmt.Errorf("unmarshal failed: %w", err)
	}

	return &result, nil
}

// ListRunIDs returns the most recent run ids, newest first
func (r *Repository) ListRunIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT run_id FROM screener.runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
