package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUnknownFile is returned when no file with the given hash has been
// recorded.
var ErrUnknownFile = errors.New("file hash not recorded")

// FileRegistry tracks the SHA-256 hashes of usage files that have already
// been ingested, so a file delivered twice is only processed once.
type FileRegistry struct {
	pool *pgxpool.Pool
}

func NewFileRegistry(pool *pgxpool.Pool) *FileRegistry {
	return &FileRegistry{pool: pool}
}

// Seen reports whether a file with the given SHA-256 hash has been recorded.
func (r *FileRegistry) Seen(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM file_hash_table WHERE sha_256_hash = $1)",
		hash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check file hash: %w", err)
	}
	return exists, nil
}

// Record registers a file hash and returns the uuid assigned to the file.
// Recording the same hash again returns the uuid from the first call.
func (r *FileRegistry) Record(ctx context.Context, hash, orgName string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO file_hash_table (uuid, sha_256_hash, org_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (sha_256_hash) DO NOTHING
		RETURNING uuid`,
		uuid.New(), hash, orgName,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// The hash was already present; hand back the uuid it got then.
		return r.UUIDFor(ctx, hash)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record file hash: %w", err)
	}
	return id, nil
}

// UUIDFor returns the uuid assigned to the file with the given hash.
func (r *FileRegistry) UUIDFor(ctx context.Context, hash string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		"SELECT uuid FROM file_hash_table WHERE sha_256_hash = $1",
		hash,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrUnknownFile
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to look up file hash: %w", err)
	}
	return id, nil
}
