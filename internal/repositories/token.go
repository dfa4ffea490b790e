package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zalando/go-keyring"
)

// TokenRepository keeps the access token for one API host in SQLite.
//
// It implements services.TokenStore.
type TokenRepository struct {
	db   *sql.DB
	host string
}

// NewTokenRepository creates a TokenRepository scoped to host
func NewTokenRepository(db *sql.DB, host string) *TokenRepository {
	return &TokenRepository{db: db, host: host}
}

// Load returns the stored token and whether one exists.
func (r *TokenRepository) Load(ctx context.Context) (string, bool, error) {
	var token string
	err := r.db.QueryRowContext(ctx, "SELECT token FROM access_tokens WHERE host = ?", r.host).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load access token: %w", err)
	}
	return token, true, nil
}

// Save overwrites the stored token.
func (r *TokenRepository) Save(ctx context.Context, token string) error {
	query := `
		INSERT INTO access_tokens (host, token, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(host) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, r.host, token, time.Now()); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	return nil
}

// Clear deletes the stored token; clearing an absent token is not an error.
func (r *TokenRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM access_tokens WHERE host = ?", r.host); err != nil {
		return fmt.Errorf("failed to clear access token: %w", err)
	}
	return nil
}

// KeyringService is the OS keyring service name access tokens are stored under.
const KeyringService = "formcheck"

// KeyringTokenRepository keeps the access token in the OS credential store, keyed by API host.
//
// It implements services.TokenStore.
type KeyringTokenRepository struct {
	service string
	host    string
}

// NewKeyringTokenRepository creates a KeyringTokenRepository scoped to host
func NewKeyringTokenRepository(host string) *KeyringTokenRepository {
	return &KeyringTokenRepository{service: KeyringService, host: host}
}

func (r *KeyringTokenRepository) Load(ctx context.Context) (string, bool, error) {
	token, err := keyring.Get(r.service, r.host)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read keyring: %w", err)
	}
	return token, true, nil
}

func (r *KeyringTokenRepository) Save(ctx context.Context, token string) error {
	if err := keyring.Set(r.service, r.host, token); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}

func (r *KeyringTokenRepository) Clear(ctx context.Context) error {
	if err := keyring.Delete(r.service, r.host); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
