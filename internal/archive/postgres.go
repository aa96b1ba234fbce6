package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/audioinsight/audioinsight-back/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("archived result not found")

// PostgresArchive is an optional durable mirror of completed analysis
// results. The in-memory store plus the JSON files stay authoritative;
// the archive only has to survive host loss.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

func NewPostgresArchive(ctx context.Context, databaseURL string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	archive := &PostgresArchive{pool: pool}
	if err := archive.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return archive, nil
}

func (a *PostgresArchive) Close() {
	a.pool.Close()
}

func (a *PostgresArchive) ensureSchema(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS meeting_results (
			id           TEXT PRIMARY KEY,
			filename     TEXT NOT NULL,
			status       TEXT NOT NULL,
			payload      JSONB NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure meeting_results schema: %w", err)
	}
	return nil
}

func (a *PostgresArchive) Save(ctx context.Context, result domain.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", result.ID, err)
	}

	_, err = a.pool.Exec(ctx, `
		INSERT INTO meeting_results (id, filename, status, payload, processed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET filename = EXCLUDED.filename,
			status = EXCLUDED.status,
			payload = EXCLUDED.payload,
			processed_at = EXCLUDED.processed_at
	`,
		result.ID,
		result.Filename,
		string(result.Status),
		payload,
		result.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert meeting result: %w", err)
	}
	return nil
}

func (a *PostgresArchive) Load(ctx context.Context, meetingID string) (domain.AnalysisResult, error) {
	var payload []byte
	err := a.pool.QueryRow(ctx, `
		SELECT payload FROM meeting_results WHERE id = $1
	`, meetingID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AnalysisResult{}, ErrNotFound
		}
		return domain.AnalysisResult{}, fmt.Errorf("select meeting result: %w", err)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("decode archived result %s: %w", meetingID, err)
	}
	return result, nil
}
