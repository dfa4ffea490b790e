package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/formcheck/internal/cookies"
	"github.com/desertthunder/formcheck/internal/shared"
)

const (
	// AccessHeader carries the access token as a plain value, without a "Bearer " prefix.
	AccessHeader = "access"

	DefaultTimeout = 10 * time.Second
	UploadTimeout  = 300 * time.Second

	pathReissue = "/reissue"
)

// TokenStore persists the access token.
type TokenStore interface {
	Load(ctx context.Context) (token string, ok bool, err error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// CookieJar is the cookie accessor used for credentials-bearing requests.
type CookieJar interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Remove(ctx context.Context, name string) error
	Attach(ctx context.Context, req *http.Request) error
	Capture(ctx context.Context, resp *http.Response) error
}

// ExpiryHandler runs after the access token and refresh cookie were cleared because a
// 401 could not be recovered. It is expected to abandon in-memory state and return
// the user to login.
type ExpiryHandler func(ctx context.Context)

// Body produces a fresh request body on every call, so a rejected request can be replayed.
// Readers that are also [io.Closer] are closed by the transport.
type Body func() (r io.Reader, contentType string, err error)

// JSONBody encodes v once and replays the same bytes on every call.
func JSONBody(v any) (Body, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return func() (io.Reader, string, error) {
		return bytes.NewReader(data), "application/json", nil
	}, nil
}

// Request describes one API call relative to the base URL.
type Request struct {
	Method string
	Path   string
	Body   Body

	// NoAuth omits the access header. Such requests are never retried on 401;
	// only registration and the reissue call itself use it.
	NoAuth bool
	// Credentials sends stored cookies and stores cookies set by the response.
	Credentials bool
}

// Response is a successful (2xx) API response with its body fully read.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// AccessToken returns the access header of the response.
func (r *Response) AccessToken() string {
	return r.Header.Get(AccessHeader)
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// ClientOptions configures [NewClients].
type ClientOptions struct {
	BaseURL       string
	Timeout       time.Duration
	UploadTimeout time.Duration
	Tokens        TokenStore
	Cookies       CookieJar
	Logger        *log.Logger
	Transport     http.RoundTripper
	OnExpire      ExpiryHandler
}

// Clients holds the two API clients. Both share the token store, cookie jar and
// reissue coordination; they differ only in timeout.
type Clients struct {
	Default *Client
	Upload  *Client

	auth *authState
}

// NewClients builds the default and upload clients.
// Zero timeouts fall back to [DefaultTimeout] and [UploadTimeout].
func NewClients(opts ClientOptions) *Clients {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = UploadTimeout
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}

	auth := &authState{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		tokens:   opts.Tokens,
		cookies:  opts.Cookies,
		logger:   opts.Logger,
		onExpire: opts.OnExpire,
	}

	def := &Client{
		name: "default",
		http: &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
		auth: auth,
	}
	upload := &Client{
		name: "upload",
		http: &http.Client{Timeout: opts.UploadTimeout, Transport: opts.Transport},
		auth: auth,
	}
	auth.reissuer = def

	return &Clients{Default: def, Upload: upload, auth: auth}
}

// OnExpire replaces the expiry handler of both clients.
func (c *Clients) OnExpire(h ExpiryHandler) {
	c.auth.mu.Lock()
	defer c.auth.mu.Unlock()
	c.auth.onExpire = h
}

// Reissue exchanges the refresh cookie for a new access token and stores it.
//
// Concurrent calls share one request.
func (c *Clients) Reissue(ctx context.Context) (string, error) {
	return c.auth.reissue(ctx, "", true)
}

// authState is shared by both clients.
type authState struct {
	baseURL  string
	tokens   TokenStore
	cookies  CookieJar
	logger   *log.Logger
	reissuer *Client
	group    singleflight.Group

	mu       sync.RWMutex
	onExpire ExpiryHandler
}

// Client sends requests with the access token attached and recovers once from a 401
// by reissuing the token.
type Client struct {
	name string
	http *http.Client
	auth *authState
}

// Timeout returns the request timeout of this client.
func (c *Client) Timeout() time.Duration { return c.http.Timeout }

// Do sends req. On a 401 it reissues the access token at most once and replays req.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.NoAuth {
		return c.send(ctx, req, "")
	}

	token, _, err := c.auth.tokens.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load access token: %w", err)
	}
	return c.do(ctx, req, token, 1)
}

// do sends req with token and, while attemptsLeft > 0, turns a 401 into one reissue and one replay.
func (c *Client) do(ctx context.Context, req Request, token string, attemptsLeft int) (*Response, error) {
	resp, err := c.send(ctx, req, token)
	if err == nil {
		return resp, nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindAuth || attemptsLeft <= 0 {
		return nil, err
	}

	logger := c.auth.logger.With("client", c.name, "path", req.Path)

	refresh, ok, cerr := c.auth.cookies.Get(ctx, cookies.RefreshCookie)
	if cerr != nil {
		logger.Warn("failed to read refresh cookie", "error", cerr)
	}
	if !ok || refresh == "" {
		logger.Info("no refresh cookie after 401")
		c.auth.expire(ctx)
		return nil, fmt.Errorf("%w: %w", shared.ErrSessionExpired, err)
	}

	newToken, rerr := c.auth.reissue(ctx, token, false)
	if rerr != nil && ctx.Err() != nil {
		return nil, rerr
	}
	if rerr != nil {
		logger.Warn("token reissue failed", "error", rerr)
		c.auth.expire(ctx)
		return nil, fmt.Errorf("%w: %w", shared.ErrSessionExpired, err)
	}

	logger.Debug("replaying request with reissued token")
	return c.do(ctx, req, newToken, attemptsLeft-1)
}

// send performs exactly one HTTP round trip.
func (c *Client) send(ctx context.Context, req Request, token string) (*Response, error) {
	var (
		body        io.Reader
		contentType string
	)
	if req.Body != nil {
		var err error
		body, contentType, err = req.Body()
		if err != nil {
			return nil, fmt.Errorf("failed to build request body: %w", err)
		}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.auth.baseURL+req.Path, body)
	if err != nil {
		if closer, ok := body.(io.Closer); ok {
			closer.Close()
		}
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token != "" && !req.NoAuth {
		httpReq.Header.Set(AccessHeader, token)
	}
	if req.Credentials {
		if err := c.auth.cookies.Attach(ctx, httpReq); err != nil {
			c.auth.logger.Warn("failed to attach cookies", "error", err)
		}
	}

	requestID := shared.GenerateID()
	c.auth.logger.Debug("request", "client", c.name, "method", method, "path", req.Path, "request_id", requestID)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, newNetworkError(err)
	}
	defer resp.Body.Close()

	if req.Credentials {
		if err := c.auth.cookies.Capture(ctx, resp); err != nil {
			c.auth.logger.Warn("failed to store response cookies", "error", err)
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newNetworkError(err)
	}

	c.auth.logger.Debug("response", "client", c.name, "status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classify(resp.StatusCode, resp.Header, data)
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// reissue obtains a new access token through POST /reissue.
//
// Every caller shares one in-flight call: the server revokes the presented refresh
// cookie, so a second concurrent reissue would fail and end a valid session. When the
// stored token no longer equals stale, another caller already rotated it and that token
// is returned without a request. force skips that check.
func (a *authState) reissue(ctx context.Context, stale string, force bool) (string, error) {
	ch := a.group.DoChan("reissue", func() (any, error) {
		fctx := context.WithoutCancel(ctx)

		if !force {
			current, ok, err := a.tokens.Load(fctx)
			if err == nil && ok && current != stale {
				return current, nil
			}
		}

		resp, err := a.reissuer.send(fctx, Request{
			Method:      http.MethodPost,
			Path:        pathReissue,
			NoAuth:      true,
			Credentials: true,
		}, "")
		if err != nil {
			return "", fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
		}

		token := resp.AccessToken()
		if token == "" {
			return "", fmt.Errorf("%w: no access header in response", shared.ErrRefreshFailed)
		}
		if err := a.tokens.Save(fctx, token); err != nil {
			return "", fmt.Errorf("failed to save access token: %w", err)
		}
		return token, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// expire clears local credentials, then hands control to the expiry handler.
func (a *authState) expire(ctx context.Context) {
	if err := a.tokens.Clear(ctx); err != nil {
		a.logger.Error("failed to clear access token", "error", err)
	}
	if err := a.cookies.Remove(ctx, cookies.RefreshCookie); err != nil {
		a.logger.Error("failed to remove refresh cookie", "error", err)
	}

	a.mu.RLock()
	handler := a.onExpire
	a.mu.RUnlock()

	if handler != nil {
		handler(ctx)
	}
}
