package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jangwonlee-rptly/heimdex-search/internal/core/domain"
)

type SceneRepository struct {
	db *sql.DB
}

func NewSceneRepository(db *sql.DB) *SceneRepository {
	return &SceneRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SceneRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS scenes (
	id TEXT PRIMARY KEY,
	video_id TEXT NOT NULL,
	start_sec DOUBLE PRECISION NOT NULL,
	end_sec DOUBLE PRECISION NOT NULL,
	transcript TEXT,
	keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
	thumbnail_url TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scenes_video_id ON scenes(video_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// GetByIDs hydrates scene summaries for the given IDs in one query. IDs
// absent from the table are simply missing from the result; the caller
// decides whether that is an error.
func (r *SceneRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.SceneSummary, error) {
	if len(ids) == 0 {
		return []domain.SceneSummary{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
SELECT id, video_id, start_sec, end_sec, transcript, keywords, thumbnail_url
FROM scenes
WHERE id IN (%s)
`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scenes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SceneSummary, 0, len(ids))
	for rows.Next() {
		var scene domain.SceneSummary
		var transcript sql.NullString
		var thumbnail sql.NullString
		var keywordsRaw []byte

		if err := rows.Scan(
			&scene.ID, &scene.VideoID, &scene.StartSec, &scene.EndSec,
			&transcript, &keywordsRaw, &thumbnail,
		); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		scene.Transcript = transcript.String
		scene.ThumbnailURL = thumbnail.String
		if len(keywordsRaw) > 0 {
			if err := json.Unmarshal(keywordsRaw, &scene.Keywords); err != nil {
				return nil, fmt.Errorf("unmarshal keywords: %w", err)
			}
		}
		out = append(out, scene)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenes: %w", err)
	}
	return out, nil
}

func (r *SceneRepository) GetByID(ctx context.Context, id string) (*domain.SceneSummary, error) {
	scenes, err := r.GetByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(scenes) == 0 {
		return nil, domain.WrapError(domain.ErrSceneNotFound, "scene.get", fmt.Errorf("scene not found: %s", id))
	}
	return &scenes[0], nil
}
