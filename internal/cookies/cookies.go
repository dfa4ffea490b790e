package cookies

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/formcheck/internal/shared"
)

// RefreshCookie is the name of the cookie carrying the refresh token.
const RefreshCookie = "refresh"

// DefaultMaxAge is the lifetime given to cookies set without an explicit expiry.
const DefaultMaxAge = 30 * 24 * time.Hour

// Backend persists cookies per host.
//
// Get returns an error wrapping [shared.ErrNotFound] when the cookie is absent.
type Backend interface {
	Get(ctx context.Context, host, name string) (*http.Cookie, error)
	Put(ctx context.Context, host string, c *http.Cookie) error
	Delete(ctx context.Context, host, name string) error
	List(ctx context.Context, host string) ([]*http.Cookie, error)
}

// Options are the attributes applied to a cookie on [Store.Set].
type Options struct {
	MaxAge   time.Duration // zero with a zero Expires yields a session cookie
	Expires  time.Time     // takes precedence over MaxAge when set
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// Option overrides one default attribute.
type Option func(*Options)

func WithMaxAge(d time.Duration) Option { return func(o *Options) { o.MaxAge = d } }
func WithExpires(t time.Time) Option { return func(o *Options) { o.Expires = t } }
func WithPath(p string) Option { return func(o *Options) { o.Path = p } }
func WithSecure(secure bool) Option { return func(o *Options) { o.Secure = secure } }
func WithHTTPOnly(httpOnly bool) Option { return func(o *Options) { o.HTTPOnly = httpOnly } }
func WithSameSite(s http.SameSite) Option { return func(o *Options) { o.SameSite = s } }

// Store reads and writes cookies for a single host.
type Store struct {
	backend    Backend
	host       string
	production bool
	now        func() time.Time
	logger     *log.Logger
}

// NewStore creates a [Store] for host. Cookies are marked secure by default when production is true.
func NewStore(backend Backend, host string, production bool) *Store {
	return &Store{backend: backend, host: host, production: production, now: time.Now, logger: shared.NewLogger(nil)}
}

// SetLogger replaces the logger used for failures that do not reach the caller.
func (s *Store) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Defaults returns the attributes applied when the caller passes no options.
func (s *Store) Defaults() Options {
	return Options{
		MaxAge:   DefaultMaxAge,
		Path:     "/",
		Secure:   s.production,
		SameSite: http.SameSiteStrictMode,
	}
}

// Set stores a cookie, merging opts over [Store.Defaults].
func (s *Store) Set(ctx context.Context, name, value string, opts ...Option) error {
	o := s.Defaults()
	for _, opt := range opts {
		opt(&o)
	}

	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     o.Path,
		Secure:   o.Secure,
		HttpOnly: o.HTTPOnly,
		SameSite: o.SameSite,
		Expires:  o.Expires,
	}
	if c.Expires.IsZero() && o.MaxAge > 0 {
		c.Expires = s.now().Add(o.MaxAge)
	}

	if err := s.backend.Put(ctx, s.host, c); err != nil {
		return fmt.Errorf("failed to set cookie %s: %w", name, err)
	}
	return nil
}

// Get returns the cookie value and whether it is present. Expired cookies are absent.
func (s *Store) Get(ctx context.Context, name string) (string, bool, error) {
	c, err := s.backend.Get(ctx, s.host, name)
	if errors.Is(err, shared.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cookie %s: %w", name, err)
	}
	if s.expired(c) {
		if err := s.backend.Delete(ctx, s.host, name); err != nil {
			s.logger.Warn("failed to delete expired cookie", "name", name, "error", err)
		}
		return "", false, nil
	}
	return c.Value, true, nil
}

// Remove deletes a cookie. Removing an absent cookie is not an error.
func (s *Store) Remove(ctx context.Context, name string) error {
	if err := s.backend.Delete(ctx, s.host, name); err != nil {
		return fmt.Errorf("failed to remove cookie %s: %w", name, err)
	}
	return nil
}

// Attach adds the live cookies of this host to req.
//
// Secure cookies are only sent over https.
func (s *Store) Attach(ctx context.Context, req *http.Request) error {
	all, err := s.backend.List(ctx, s.host)
	if err != nil {
		return fmt.Errorf("failed to list cookies: %w", err)
	}
	for _, c := range all {
		if s.expired(c) {
			continue
		}
		if c.Secure && req.URL.Scheme != "https" {
			continue
		}
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return nil
}

// Capture persists Set-Cookie headers from resp. A negative Max-Age or a past expiry removes the cookie.
func (s *Store) Capture(ctx context.Context, resp *http.Response) error {
	for _, c := range resp.Cookies() {
		if c.MaxAge < 0 || (!c.Expires.IsZero() && !c.Expires.After(s.now())) {
			if err := s.Remove(ctx, c.Name); err != nil {
				return err
			}
			continue
		}

		stored := *c
		if c.MaxAge > 0 {
			stored.Expires = s.now().Add(time.Duration(c.MaxAge) * time.Second)
		}
		if stored.Path == "" {
			stored.Path = "/"
		}
		stored.MaxAge = 0
		stored.Raw = ""
		stored.RawExpires = ""
		stored.Domain = ""

		if err := s.backend.Put(ctx, s.host, &stored); err != nil {
			return fmt.Errorf("failed to store cookie %s: %w", c.Name, err)
		}
	}
	return nil
}

func (s *Store) expired(c *http.Cookie) bool {
	return !c.Expires.IsZero() && !c.Expires.After(s.now())
}

// MemoryBackend is a process-local [Backend].
type MemoryBackend struct {
	mu      sync.RWMutex
	cookies map[string]map[string]http.Cookie
}

// NewMemoryBackend creates an empty [MemoryBackend].
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{cookies: make(map[string]map[string]http.Cookie)}
}

func (m *MemoryBackend) Get(_ context.Context, host, name string) (*http.Cookie, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.cookies[host][name]
	if !ok {
		return nil, fmt.Errorf("%w: cookie %s", shared.ErrNotFound, name)
	}
	return &c, nil
}

func (m *MemoryBackend) Put(_ context.Context, host string, c *http.Cookie) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cookies[host] == nil {
		m.cookies[host] = make(map[string]http.Cookie)
	}
	m.cookies[host][c.Name] = *c
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, host, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cookies[host], name)
	return nil
}

func (m *MemoryBackend) List(_ context.Context, host string) ([]*http.Cookie, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*http.Cookie, 0, len(m.cookies[host]))
	for _, c := range m.cookies[host] {
		out = append(out, &c)
	}
	return out, nil
}
