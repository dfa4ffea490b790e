package session

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/formcheck/internal/cookies"
	"github.com/desertthunder/formcheck/internal/models"
	"github.com/desertthunder/formcheck/internal/services"
	"github.com/desertthunder/formcheck/internal/shared"
)

// State is the authentication state of the process.
type State int

const (
	StateInit State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Auth is the subset of [services.AuthService] the controller drives.
type Auth interface {
	Login(ctx context.Context, username, password string) services.LoginResult
	Register(ctx context.Context, req models.RegisterRequest) services.RegisterResult
	Logout(ctx context.Context) error
	Reissue(ctx context.Context) services.ReissueResult
}

// Cookies reads and removes the refresh cookie.
type Cookies interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Remove(ctx context.Context, name string) error
}

// Navigator returns the user to the login entry point, discarding the current view.
type Navigator interface {
	ToLogin()
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func()

func (f NavigatorFunc) ToLogin() { f() }

// Snapshot is a copy of the session state.
type Snapshot struct {
	State           State
	Loading         bool
	User            *models.User
	AccessToken     string
	IsAuthenticated bool
}

// Controller holds the session state and is the only thing that changes it.
type Controller struct {
	auth      Auth
	cookies   Cookies
	navigator Navigator
	logger    *log.Logger

	mu          sync.RWMutex
	state       State
	loading     bool
	user        *models.User
	accessToken string

	startOnce sync.Once
	ready     chan struct{}
}

// NewController creates a controller in [StateInit] with Loading set. A nil navigator does nothing on expiry.
func NewController(auth Auth, cookies Cookies, navigator Navigator, logger *log.Logger) *Controller {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Controller{
		auth:      auth,
		cookies:   cookies,
		logger:    logger,
		navigator: navigator,
		loading:   true,
		ready:     make(chan struct{}),
	}
}

// Start resolves the initial state in the background. Only the first call has an effect.
func (c *Controller) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		go c.initialize(ctx)
	})
}

func (c *Controller) initialize(ctx context.Context) {
	defer close(c.ready)

	refresh, ok, err := c.cookies.Get(ctx, cookies.RefreshCookie)
	if err != nil {
		c.logger.Warn("failed to read refresh cookie", "error", err)
	}

	if !ok || refresh == "" {
		c.finish(StateAnonymous, nil, "")
		return
	}

	result := c.auth.Reissue(ctx)
	if !result.Success {
		c.logger.Warn("session restore failed", "error", result.Err)
		if err := c.cookies.Remove(ctx, cookies.RefreshCookie); err != nil {
			c.logger.Error("failed to remove refresh cookie", "error", err)
		}
		c.finish(StateAnonymous, nil, "")
		return
	}

	c.logger.Debug("session restored", "username", result.User.Username)
	c.finish(StateAuthenticated, result.User, result.AccessToken)
}

func (c *Controller) finish(state State, user *models.User, token string) {
	c.mu.Lock()
	c.state, c.user, c.accessToken = state, user, token
	c.loading = false
	c.mu.Unlock()
}

// Wait blocks until the initial state is known or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Login authenticates and, on success, moves to [StateAuthenticated].
func (c *Controller) Login(ctx context.Context, username, password string) services.LoginResult {
	result := c.auth.Login(ctx, username, password)
	if !result.Success {
		return result
	}

	c.mu.Lock()
	c.state = StateAuthenticated
	c.user = result.User
	c.accessToken = result.AccessToken
	c.mu.Unlock()

	return result
}

// Register creates an account. The session state is unchanged; the user still has to log in.
func (c *Controller) Register(ctx context.Context, req models.RegisterRequest) services.RegisterResult {
	return c.auth.Register(ctx, req)
}

// Logout ends in [StateAnonymous] with the refresh cookie removed, whatever the server says.
func (c *Controller) Logout(ctx context.Context) error {
	err := c.auth.Logout(ctx)
	if err != nil {
		c.logger.Warn("logout failed", "error", err)
	}

	if rerr := c.cookies.Remove(ctx, cookies.RefreshCookie); rerr != nil {
		c.logger.Error("failed to remove refresh cookie", "error", rerr)
	}

	c.clear()
	return err
}

// Expire is the [services.ExpiryHandler] of the process: the stored credentials are
// already gone, so it drops the in-memory session and navigates to login.
func (c *Controller) Expire(ctx context.Context) {
	c.logger.Info("session expired")
	c.clear()

	if c.navigator != nil {
		c.navigator.ToLogin()
	}
}

func (c *Controller) clear() {
	c.mu.Lock()
	c.state = StateAnonymous
	c.user = nil
	c.accessToken = ""
	c.mu.Unlock()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	var user *models.User
	if c.user != nil {
		u := *c.user
		user = &u
	}
	return Snapshot{
		State:           c.state,
		Loading:         c.loading,
		User:            user,
		AccessToken:     c.accessToken,
		IsAuthenticated: c.accessToken != "",
	}
}
