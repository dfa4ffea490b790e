package session

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/formcheck/internal/cookies"
	"github.com/desertthunder/formcheck/internal/models"
	"github.com/desertthunder/formcheck/internal/services"
	"github.com/desertthunder/formcheck/internal/shared"
	tu "github.com/desertthunder/formcheck/internal/testing"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type fixture struct {
	api     *tu.FakeAPI
	tokens  *tu.MemoryTokenStore
	jar     *cookies.Store
	clients *services.Clients
	ctrl    *Controller
	toLogin atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{api: tu.NewFakeAPI(t), tokens: tu.NewMemoryTokenStore("")}
	f.jar = cookies.NewStore(cookies.NewMemoryBackend(), f.api.Host(), false)

	logger := shared.NewLogger(discard{})
	f.clients = services.NewClients(services.ClientOptions{
		BaseURL: f.api.BaseURL(),
		Tokens:  f.tokens,
		Cookies: f.jar,
		Logger:  logger,
	})
	auth := services.NewAuthService(f.clients, f.tokens, nil, logger)

	f.ctrl = NewController(auth, f.jar, NavigatorFunc(func() { f.toLogin.Add(1) }), logger)
	f.clients.OnExpire(f.ctrl.Expire)
	return f
}

func (f *fixture) start(t *testing.T) Snapshot {
	t.Helper()
	f.ctrl.Start(context.Background())
	f.wait(t)
	return f.ctrl.Snapshot()
}

func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.ctrl.Wait(ctx); err != nil {
		t.Fatalf("controller never became ready: %v", err)
	}
}

func (f *fixture) setRefresh(t *testing.T, value string) {
	t.Helper()
	if err := f.jar.Set(context.Background(), cookies.RefreshCookie, value); err != nil {
		t.Fatalf("failed to store refresh cookie: %v", err)
	}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	f.api.AddUser("alice", "secret")
	if result := f.ctrl.Login(context.Background(), "alice", "secret"); !result.Success {
		t.Fatalf("login failed: %q (%v)", result.Message, result.Err)
	}
}

func (f *fixture) hasRefresh(t *testing.T) bool {
	t.Helper()
	_, ok, err := f.jar.Get(context.Background(), cookies.RefreshCookie)
	if err != nil {
		t.Fatalf("failed to read refresh cookie: %v", err)
	}
	return ok
}

func TestController_Start(t *testing.T) {
	t.Run("valid refresh cookie authenticates", func(t *testing.T) {
		f := newFixture(t)
		f.setRefresh(t, f.api.IssueRefresh("alice"))

		snap := f.start(t)

		if snap.State != StateAuthenticated || snap.Loading || !snap.IsAuthenticated {
			t.Errorf("expected authenticated and not loading, got %+v", snap)
		}
		if snap.AccessToken != f.tokens.Token() {
			t.Errorf("expected access token %q, got %q", f.tokens.Token(), snap.AccessToken)
		}
		if snap.User == nil || snap.User.Username != services.PlaceholderUsername {
			t.Errorf("expected placeholder user, got %+v", snap.User)
		}
	})

	t.Run("rejected refresh cookie is removed", func(t *testing.T) {
		f := newFixture(t)
		f.setRefresh(t, "refresh-forged")

		snap := f.start(t)

		if snap.State != StateAnonymous || snap.Loading || snap.IsAuthenticated {
			t.Errorf("expected anonymous and not loading, got %+v", snap)
		}
		if f.hasRefresh(t) {
			t.Error("expected refresh cookie removed")
		}
		if n := f.api.Count("/reissue"); n != 1 {
			t.Errorf("expected 1 reissue, got %d", n)
		}
		if n := f.toLogin.Load(); n != 0 {
			t.Errorf("startup failures must not navigate, got %d", n)
		}
	})

	t.Run("no refresh cookie", func(t *testing.T) {
		f := newFixture(t)

		snap := f.start(t)

		if snap.State != StateAnonymous || snap.Loading {
			t.Errorf("expected anonymous and not loading, got %+v", snap)
		}
		if n := f.api.Count("/reissue"); n != 0 {
			t.Errorf("expected no reissue, got %d", n)
		}
	})

	t.Run("loading only while resolving", func(t *testing.T) {
		f := newFixture(t)
		f.setRefresh(t, f.api.IssueRefresh("alice"))
		f.api.Configure(func(b *tu.Behavior) { b.ReissueDelay = 100 * time.Millisecond })

		if !f.ctrl.Snapshot().Loading {
			t.Error("expected loading from construction")
		}

		f.ctrl.Start(context.Background())
		during := f.ctrl.Snapshot()
		if !during.Loading || during.State != StateInit || during.IsAuthenticated {
			t.Errorf("expected init and loading while resolving, got %+v", during)
		}

		f.wait(t)
		if f.ctrl.Snapshot().Loading {
			t.Error("expected loading to end once resolved")
		}
	})

	t.Run("second start is ignored", func(t *testing.T) {
		f := newFixture(t)
		f.setRefresh(t, f.api.IssueRefresh("alice"))

		f.start(t)
		f.start(t)

		if n := f.api.Count("/reissue"); n != 1 {
			t.Errorf("expected 1 reissue, got %d", n)
		}
	})

	t.Run("wait honours context", func(t *testing.T) {
		f := newFixture(t)
		f.setRefresh(t, f.api.IssueRefresh("alice"))
		f.api.Configure(func(b *tu.Behavior) { b.ReissueDelay = 200 * time.Millisecond })

		f.ctrl.Start(context.Background())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := f.ctrl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}

		f.wait(t)
	})
}

func TestController_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success authenticates", func(t *testing.T) {
		f := newFixture(t)
		f.start(t)
		f.api.AddUser("alice", "secret")

		result := f.ctrl.Login(ctx, "alice", "secret")
		if !result.Success {
			t.Fatalf("expected success, got %q", result.Message)
		}

		snap := f.ctrl.Snapshot()
		if snap.State != StateAuthenticated || snap.AccessToken != result.AccessToken {
			t.Errorf("expected authenticated with %q, got %+v", result.AccessToken, snap)
		}
		if snap.User == nil || snap.User.Username != "alice" {
			t.Errorf("expected alice, got %+v", snap.User)
		}
	})

	t.Run("failure keeps anonymous", func(t *testing.T) {
		f := newFixture(t)
		f.api.AddUser("alice", "secret")
		f.start(t)

		result := f.ctrl.Login(ctx, "alice", "wrong")
		if result.Success || result.Message == "" {
			t.Errorf("expected failure with a message, got %+v", result)
		}

		snap := f.ctrl.Snapshot()
		if snap.State != StateAnonymous || snap.IsAuthenticated {
			t.Errorf("expected anonymous, got %+v", snap)
		}
	})
}

func TestController_Register(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	result := f.ctrl.Register(context.Background(), models.RegisterRequest{Username: "bob", Password: "pw12", RealName: "Bob"})

	if !result.Success {
		t.Errorf("expected success, got %q", result.Message)
	}
	if state := f.ctrl.Snapshot().State; state != StateAnonymous {
		t.Errorf("registration must not log in, got %v", state)
	}
}

func TestController_Logout(t *testing.T) {
	ctx := context.Background()

	tc := []struct {
		name     string
		behavior func(b *tu.Behavior)
		closed   bool
	}{
		{name: "server success"},
		{name: "server error", behavior: func(b *tu.Behavior) { b.LogoutStatus = http.StatusInternalServerError }},
		{name: "network error", closed: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.start(t)
			f.login(t)

			if tt.behavior != nil {
				f.api.Configure(tt.behavior)
			}
			if tt.closed {
				f.api.Server.Close()
			}

			if err := f.ctrl.Logout(ctx); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			snap := f.ctrl.Snapshot()
			if snap.State != StateAnonymous || snap.IsAuthenticated || snap.User != nil {
				t.Errorf("expected cleared anonymous session, got %+v", snap)
			}
			if f.tokens.Token() != "" {
				t.Error("expected token cleared")
			}
			if f.hasRefresh(t) {
				t.Error("expected refresh cookie removed")
			}
		})
	}
}

func TestController_Expire(t *testing.T) {
	ctx := context.Background()

	t.Run("unrecoverable 401 navigates to login", func(t *testing.T) {
		f := newFixture(t)
		f.start(t)
		f.login(t)

		f.api.Revoke(f.tokens.Token())
		if err := f.jar.Remove(ctx, cookies.RefreshCookie); err != nil {
			t.Fatalf("failed to remove refresh cookie: %v", err)
		}

		_, err := f.clients.Default.Do(ctx, services.Request{Method: http.MethodGet, Path: "/me"})
		if !errors.Is(err, shared.ErrSessionExpired) {
			t.Errorf("expected ErrSessionExpired, got %v", err)
		}

		if n := f.toLogin.Load(); n != 1 {
			t.Errorf("expected 1 navigation to login, got %d", n)
		}
		if snap := f.ctrl.Snapshot(); snap.State != StateAnonymous || snap.IsAuthenticated {
			t.Errorf("expected anonymous, got %+v", snap)
		}
	})

	t.Run("recovered 401 keeps the session", func(t *testing.T) {
		f := newFixture(t)
		f.start(t)
		f.login(t)

		f.api.Revoke(f.tokens.Token())

		if _, err := f.clients.Default.Do(ctx, services.Request{Method: http.MethodGet, Path: "/me"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n := f.toLogin.Load(); n != 0 {
			t.Errorf("expected no navigation, got %d", n)
		}
		if state := f.ctrl.Snapshot().State; state != StateAuthenticated {
			t.Errorf("expected authenticated, got %v", state)
		}
	})

	t.Run("rejected login without refresh cookie navigates to login", func(t *testing.T) {
		f := newFixture(t)
		f.api.AddUser("alice", "secret")
		f.start(t)

		if result := f.ctrl.Login(ctx, "alice", "wrong"); result.Success {
			t.Fatal("expected login to fail")
		}
		if n := f.toLogin.Load(); n != 1 {
			t.Errorf("expected 1 navigation to login, got %d", n)
		}
	})

	t.Run("nil navigator", func(t *testing.T) {
		ctrl := NewController(nil, nil, nil, shared.NewLogger(discard{}))

		ctrl.Expire(ctx)

		if state := ctrl.Snapshot().State; state != StateAnonymous {
			t.Errorf("expected anonymous, got %v", state)
		}
	})
}

func TestSnapshot_UserIsCopied(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.login(t)

	snap := f.ctrl.Snapshot()
	snap.User.Username = "mallory"

	if got := f.ctrl.Snapshot().User.Username; got != "alice" {
		t.Errorf("expected stored user unchanged, got %q", got)
	}
}

func TestState_String(t *testing.T) {
	tc := []struct {
		state State
		want  string
	}{
		{StateInit, "init"},
		{StateAuthenticated, "authenticated"},
		{StateAnonymous, "anonymous"},
		{State(42), "unknown"},
	}

	for _, tt := range tc {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
