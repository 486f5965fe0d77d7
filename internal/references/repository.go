// Package references stores the video reference attached to a piece of content
// and renders it as a player.
package references

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/viostream/internal/embed"
)

// ErrNotFound is returned when content has no stored reference.
var ErrNotFound = errors.New("video reference not found")

// Stored is a persisted reference.
type Stored struct {
	ContentID string          `json:"content_id"`
	Reference embed.Reference `json:"reference"`
	VideoKey  string          `json:"video_key"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Repository handles reference persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reference repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the reference stored for contentID.
func (r *Repository) Get(ctx context.Context, contentID string) (*Stored, error) {
	const q = `SELECT content_id, kind, value, video_key, created_at, updated_at FROM video_references WHERE content_id = $1`
	var s Stored
	var kind string
	err := r.pool.QueryRow(ctx, q, contentID).Scan(&s.ContentID, &kind, &s.Reference.Value, &s.VideoKey, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get video reference: %w", err)
	}
	s.Reference.Kind = embed.Kind(kind)
	return &s, nil
}

// Put stores ref for contentID, replacing any previous reference.
func (r *Repository) Put(ctx context.Context, contentID string, ref embed.Reference, videoKey string) (*Stored, error) {
	const q = `INSERT INTO video_references (content_id, kind, value, video_key)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (content_id) DO UPDATE SET kind = EXCLUDED.kind, value = EXCLUDED.value,
			video_key = EXCLUDED.video_key, updated_at = NOW()
		RETURNING created_at, updated_at`
	s := Stored{ContentID: contentID, Reference: ref, VideoKey: videoKey}
	if err := r.pool.QueryRow(ctx, q, contentID, string(ref.Kind), ref.Value, videoKey).Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("put video reference: %w", err)
	}
	return &s, nil
}

// Delete removes the reference for contentID.
func (r *Repository) Delete(ctx context.Context, contentID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM video_references WHERE content_id = $1`, contentID)
	if err != nil {
		return fmt.Errorf("delete video reference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
