package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/lectern/internal/repository"
	"golang.org/x/oauth2"
)

const defaultAccountID = "default"

// AccountRepository stores the signed-in storage account's tokens.
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// LoadAccount returns the stored token or repository.ErrNotFound.
func (r *AccountRepository) LoadAccount(ctx context.Context) (*oauth2.Token, error) {
	query := `
		SELECT refresh_token, access_token, token_type, expiry
		FROM accounts
		WHERE id = ?
	`

	var tok oauth2.Token
	var expiry sql.NullTime
	err := r.db.QueryRowContext(ctx, query, defaultAccountID).Scan(
		&tok.RefreshToken,
		&tok.AccessToken,
		&tok.TokenType,
		&expiry,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if expiry.Valid {
		tok.Expiry = expiry.Time
	}

	return &tok, nil
}

// SaveAccount replaces the stored token. A token without a refresh token
// keeps the previously stored one.
func (r *AccountRepository) SaveAccount(ctx context.Context, tok *oauth2.Token) error {
	query := `
		INSERT INTO accounts (id, refresh_token, access_token, token_type, expiry, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN accounts.refresh_token ELSE excluded.refresh_token END,
			access_token = excluded.access_token,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`

	var expiry interface{}
	if !tok.Expiry.IsZero() {
		expiry = tok.Expiry.UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		defaultAccountID,
		tok.RefreshToken,
		tok.AccessToken,
		tok.TokenType,
		expiry,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	return nil
}
