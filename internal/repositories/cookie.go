package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/formcheck/internal/shared"
)

// CookieRepository persists cookies per API host.
//
// It implements cookies.Backend.
type CookieRepository struct {
	db *sql.DB
}

// NewCookieRepository creates a new CookieRepository with the given database connection
func NewCookieRepository(db *sql.DB) *CookieRepository {
	return &CookieRepository{db: db}
}

// Get returns the named cookie for host or [shared.ErrNotFound].
func (r *CookieRepository) Get(ctx context.Context, host, name string) (*http.Cookie, error) {
	query := `
		SELECT name, value, path, expires_at, secure, http_only, same_site
		FROM cookies
		WHERE host = ? AND name = ?
	`
	c, err := scanCookie(r.db.QueryRowContext(ctx, query, host, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: cookie %s", shared.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cookie: %w", err)
	}
	return c, nil
}

// Put inserts or replaces a cookie for host.
func (r *CookieRepository) Put(ctx context.Context, host string, c *http.Cookie) error {
	query := `
		INSERT INTO cookies (host, name, value, path, expires_at, secure, http_only, same_site, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(host, name) DO UPDATE SET
			value = excluded.value,
			path = excluded.path,
			expires_at = excluded.expires_at,
			secure = excluded.secure,
			http_only = excluded.http_only,
			same_site = excluded.same_site,
			updated_at = excluded.updated_at
	`

	var expires any
	if !c.Expires.IsZero() {
		expires = c.Expires.UTC()
	}

	path := c.Path
	if path == "" {
		path = "/"
	}

	_, err := r.db.ExecContext(ctx, query,
		host, c.Name, c.Value, path, expires, c.Secure, c.HttpOnly, sameSiteName(c.SameSite), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save cookie: %w", err)
	}
	return nil
}

// Delete removes the named cookie for host; deleting an absent cookie is not an error.
func (r *CookieRepository) Delete(ctx context.Context, host, name string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM cookies WHERE host = ? AND name = ?", host, name); err != nil {
		return fmt.Errorf("failed to delete cookie: %w", err)
	}
	return nil
}

// List returns all cookies stored for host ordered by name.
func (r *CookieRepository) List(ctx context.Context, host string) ([]*http.Cookie, error) {
	query := `
		SELECT name, value, path, expires_at, secure, http_only, same_site
		FROM cookies
		WHERE host = ?
		ORDER BY name ASC
	`
	rows, err := r.db.QueryContext(ctx, query, host)
	if err != nil {
		return nil, fmt.Errorf("failed to query cookies: %w", err)
	}
	defer rows.Close()

	var out []*http.Cookie
	for rows.Next() {
		c, err := scanCookie(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cookie: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func scanCookie(row rowScanner) (*http.Cookie, error) {
	var (
		c        http.Cookie
		expires  sql.NullTime
		sameSite string
	)
	if err := row.Scan(&c.Name, &c.Value, &c.Path, &expires, &c.Secure, &c.HttpOnly, &sameSite); err != nil {
		return nil, err
	}
	if expires.Valid {
		c.Expires = expires.Time
	}
	c.SameSite = parseSameSite(sameSite)
	return &c, nil
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteLaxMode:
		return "lax"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return "default"
	}
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
