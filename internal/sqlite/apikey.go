package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rpggio/lectern/internal/repository"
)

// APIKeyRepository stores hashed bearer keys and the actor they act as.
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Add stores the hash of token for actor.
func (r *APIKeyRepository) Add(ctx context.Context, token, actor, description string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, actor, created_at, description) VALUES (?, ?, ?, ?)`,
		HashToken(token), actor, time.Now(), description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to add api key: %w", err)
	}
	return nil
}

// ResolveActor returns the actor for a bearer token and stamps last_used.
func (r *APIKeyRepository) ResolveActor(ctx context.Context, token string) (string, error) {
	hash := HashToken(token)

	var actor string
	err := r.db.QueryRowContext(ctx, `SELECT actor FROM api_keys WHERE key_hash = ?`, hash).Scan(&actor)
	if err == sql.ErrNoRows {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now(), hash); err != nil {
		return "", fmt.Errorf("failed to stamp api key: %w", err)
	}

	return actor, nil
}

// HashToken returns the hex sha256 of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
