package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no ingest row matches.
var ErrNotFound = errors.New("ingest not found")

const ingestColumns = `id, COALESCE(ingest_id,''), filename, extension, source_url, s3_key, reference_id, status, error, polls, created_at, updated_at`

// Repository handles ingest persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an ingest repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts ing and fills its timestamps.
func (r *Repository) Create(ctx context.Context, ing *Ingest) error {
	const q = `INSERT INTO media_ingests (id, ingest_id, filename, extension, source_url, s3_key, reference_id, status, error, polls)
		VALUES ($1, NULLIF($2,''), $3, $4, $5, $6, $7, $8, $9, $10) RETURNING created_at, updated_at`
	if ing.ID == uuid.Nil {
		ing.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, q, ing.ID, ing.IngestID, ing.Filename, ing.Extension, ing.SourceURL,
		ing.S3Key, ing.ReferenceID, ing.Status, ing.Error, ing.Polls).Scan(&ing.CreatedAt, &ing.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert ingest: %w", err)
	}
	return nil
}

// Get returns an ingest by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Ingest, error) {
	q := `SELECT ` + ingestColumns + ` FROM media_ingests WHERE id = $1`
	ing, err := scanIngest(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ingest: %w", err)
	}
	return ing, nil
}

// List returns the most recent ingests first.
func (r *Repository) List(ctx context.Context, limit int) ([]Ingest, error) {
	q := `SELECT ` + ingestColumns + ` FROM media_ingests ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list ingests: %w", err)
	}
	defer rows.Close()
	list := []Ingest{}
	for rows.Next() {
		ing, err := scanIngest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ingest: %w", err)
		}
		list = append(list, *ing)
	}
	return list, rows.Err()
}

// UpdateStatus records the latest poll result.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status, errMsg string, polls int) error {
	const q = `UPDATE media_ingests SET status = $1, error = $2, polls = $3, updated_at = NOW() WHERE id = $4`
	tag, err := r.pool.Exec(ctx, q, status, errMsg, polls, id)
	if err != nil {
		return fmt.Errorf("update ingest status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanIngest(row pgx.Row) (*Ingest, error) {
	var ing Ingest
	err := row.Scan(&ing.ID, &ing.IngestID, &ing.Filename, &ing.Extension, &ing.SourceURL, &ing.S3Key,
		&ing.ReferenceID, &ing.Status, &ing.Error, &ing.Polls, &ing.CreatedAt, &ing.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ing, nil
}
