// Package settings persists the provider credentials and serves the admin
// settings API.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aura-webinar/viostream/internal/viostream"
)

// Where the active credentials came from.
const (
	SourceDatabase    = "database"
	SourceEnvironment = "environment"
	SourceNone        = "none"
)

// Resolved is the active credential set.
type Resolved struct {
	viostream.Credentials
	Source    string
	UpdatedBy string
	UpdatedAt time.Time
}

// Store keeps credentials in the single-row viostream_settings table. Saved
// credentials win; the environment values are used until something is saved.
type Store struct {
	pool     *pgxpool.Pool
	fallback viostream.Credentials
	logger   *zap.Logger
}

// NewStore creates a settings store.
func NewStore(pool *pgxpool.Pool, fallback viostream.Credentials, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, fallback: fallback, logger: logger}
}

// Resolve returns the credentials in effect and their source.
func (s *Store) Resolve(ctx context.Context) (Resolved, error) {
	const q = `SELECT access_key, api_key, updated_by, updated_at FROM viostream_settings WHERE id = 1`
	var r Resolved
	err := s.pool.QueryRow(ctx, q).Scan(&r.AccessKey, &r.APIKey, &r.UpdatedBy, &r.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return Resolved{}, fmt.Errorf("load viostream settings: %w", err)
	case r.Configured():
		r.Source = SourceDatabase
		return r, nil
	}
	return fallbackResolved(s.fallback), nil
}

func fallbackResolved(c viostream.Credentials) Resolved {
	if c.Configured() {
		return Resolved{Credentials: c, Source: SourceEnvironment}
	}
	return Resolved{Source: SourceNone}
}

// Credentials implements viostream.CredentialsSource.
func (s *Store) Credentials(ctx context.Context) (viostream.Credentials, error) {
	r, err := s.Resolve(ctx)
	if err != nil {
		return viostream.Credentials{}, err
	}
	return r.Credentials, nil
}

// Save stores creds, replacing whatever was saved before.
func (s *Store) Save(ctx context.Context, creds viostream.Credentials, updatedBy string) error {
	const q = `INSERT INTO viostream_settings (id, access_key, api_key, updated_by, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET access_key = EXCLUDED.access_key, api_key = EXCLUDED.api_key,
			updated_by = EXCLUDED.updated_by, updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, q, creds.AccessKey, creds.APIKey, updatedBy); err != nil {
		return fmt.Errorf("save viostream settings: %w", err)
	}
	s.logger.Info("viostream credentials updated", zap.String("updated_by", updatedBy))
	return nil
}
