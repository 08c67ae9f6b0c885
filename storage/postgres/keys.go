package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/polisight/vectra/core"
	"github.com/polisight/vectra/storage"
)

// KeyRepository implements storage.KeyRepository over Postgres. Only
// key metadata lives here; key material is derived from the master
// secret at runtime and never persisted.
type KeyRepository struct {
	pool *Pool
}

var _ storage.KeyRepository = (*KeyRepository)(nil)

// NewKeyRepository creates a key repository on the pool.
func NewKeyRepository(pool *Pool) *KeyRepository {
	return &KeyRepository{pool: pool}
}

// ActiveKey returns the single active encryption key.
func (r *KeyRepository) ActiveKey(ctx context.Context) (*core.EncryptionKey, error) {
	key, err := r.scanKey(r.pool.QueryRow(ctx, `
		SELECT id, version, is_active, created_at
		FROM encryption_keys WHERE is_active`))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, storage.ErrNoActiveKey
	}
	return key, err
}

// GetKey retrieves key metadata by ID.
func (r *KeyRepository) GetKey(ctx context.Context, id int64) (*core.EncryptionKey, error) {
	return r.scanKey(r.pool.QueryRow(ctx, `
		SELECT id, version, is_active, created_at
		FROM encryption_keys WHERE id = $1`, id))
}

// EnsureActiveKey returns the active key, bootstrapping version 1 when
// the table is empty. The partial unique index on is_active makes
// concurrent bootstrap attempts collapse to a single winner.
func (r *KeyRepository) EnsureActiveKey(ctx context.Context) (*core.EncryptionKey, error) {
	key, err := r.ActiveKey(ctx)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, storage.ErrNoActiveKey) {
		return nil, err
	}

	_, err = r.pool.ExecWithRetry(ctx, `
		INSERT INTO encryption_keys (version, is_active)
		VALUES (1, true)
		ON CONFLICT DO NOTHING`)
	if err != nil {
		return nil, err
	}
	return r.ActiveKey(ctx)
}

func (r *KeyRepository) scanKey(row pgx.Row) (*core.EncryptionKey, error) {
	var key core.EncryptionKey
	err := row.Scan(&key.Id, &key.Version, &key.Active, &key.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &key, nil
}
