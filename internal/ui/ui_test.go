package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/formcheck/internal/models"
	"github.com/desertthunder/formcheck/internal/services"
	"github.com/desertthunder/formcheck/internal/session"
	"github.com/desertthunder/formcheck/internal/shared"
	"github.com/desertthunder/formcheck/internal/tasks"
)

type fakeSession struct {
	mu        sync.Mutex
	snap      session.Snapshot
	login     services.LoginResult
	register  services.RegisterResult
	logoutErr error
	logins    []string
	logouts   int
}

func (f *fakeSession) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSession) Wait(ctx context.Context) error { return ctx.Err() }

func (f *fakeSession) Login(_ context.Context, username, password string) services.LoginResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, username+":"+password)
	if f.login.Success {
		f.snap = session.Snapshot{State: session.StateAuthenticated, User: f.login.User, IsAuthenticated: true}
	}
	return f.login
}

func (f *fakeSession) Register(context.Context, models.RegisterRequest) services.RegisterResult {
	return f.register
}

func (f *fakeSession) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	f.snap = session.Snapshot{State: session.StateAnonymous}
	return f.logoutErr
}

func authenticated(name string) *fakeSession {
	user := &models.User{Username: name}
	return &fakeSession{snap: session.Snapshot{State: session.StateAuthenticated, User: user, IsAuthenticated: true}}
}

type fakeRunner struct {
	updates []tasks.ProgressUpdate
	result  *tasks.UploadRunResult
	err     error
	paths   []string
}

func (f *fakeRunner) Run(_ context.Context, progress chan<- tasks.ProgressUpdate, path string) (*tasks.UploadRunResult, error) {
	f.paths = append(f.paths, path)
	for _, u := range f.updates {
		progress <- u
	}
	return f.result, f.err
}

type fakeHistory struct {
	uploads  []*models.Upload
	err      error
	criteria map[string]any
}

func (f *fakeHistory) List(criteria map[string]any) ([]*models.Upload, error) {
	f.criteria = criteria
	return f.uploads, f.err
}

func newTestModel(s *fakeSession, r *fakeRunner, h *fakeHistory) Model {
	deps := Deps{Session: s, Uploads: r}
	if h != nil {
		deps.History = h
	}
	return NewModel(context.Background(), deps)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", next)
	}
	return model, cmd
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	case "ctrl+l":
		return tea.KeyMsg{Type: tea.KeyCtrlL}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// typeText feeds s to the focused input one rune at a time.
func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

// ready moves a fresh model past the loading view.
func ready(t *testing.T, m Model, s *fakeSession) Model {
	t.Helper()
	m, _ = update(t, m, sessionReadyMsg{gen: gen(m.gen), snapshot: s.Snapshot()})
	return m
}

// runUpload executes the commands of an upload until its outcome is applied.
func runUpload(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected upload command")
	}
	first := cmd()
	batch, ok := first.(tea.BatchMsg)
	if !ok {
		batch = tea.BatchMsg{func() tea.Msg { return first }}
	}
	for _, c := range batch {
		if c == nil {
			continue
		}
		msg := c()
		for i := 0; msg != nil && i < 500; i++ {
			var next tea.Cmd
			m, next = update(t, m, msg)
			if _, done := msg.(uploadDoneMsg); done || next == nil {
				break
			}
			msg = next()
		}
	}
	return m
}

func TestModel_Init(t *testing.T) {
	t.Run("starts in loading view", func(t *testing.T) {
		m := newTestModel(&fakeSession{}, &fakeRunner{}, nil)
		if m.CurrentView() != LoadingView {
			t.Errorf("expected LoadingView, got %v", m.CurrentView())
		}
		if m.Init() == nil {
			t.Error("expected init command")
		}
		if !strings.Contains(m.View(), "로딩 중...") {
			t.Errorf("expected loading text, got %q", m.View())
		}
	})

	t.Run("restored session shows upload view", func(t *testing.T) {
		s := authenticated("squatter")
		m := ready(t, newTestModel(s, &fakeRunner{}, nil), s)
		if m.CurrentView() != UploadView {
			t.Errorf("expected UploadView, got %v", m.CurrentView())
		}
		if !strings.Contains(m.View(), "환영합니다, squatter님!") {
			t.Errorf("expected welcome, got %q", m.View())
		}
	})

	t.Run("anonymous session shows login view", func(t *testing.T) {
		s := &fakeSession{snap: session.Snapshot{State: session.StateAnonymous}}
		m := ready(t, newTestModel(s, &fakeRunner{}, nil), s)
		if m.CurrentView() != LoginView {
			t.Errorf("expected LoginView, got %v", m.CurrentView())
		}
		if !strings.Contains(m.View(), "사용자명") || !strings.Contains(m.View(), "비밀번호") {
			t.Errorf("expected login form labels, got %q", m.View())
		}
	})

	t.Run("wait command reports the snapshot", func(t *testing.T) {
		s := authenticated("squatter")
		m := newTestModel(s, &fakeRunner{}, nil)
		msg := m.waitForSession()()
		ready, ok := msg.(sessionReadyMsg)
		if !ok {
			t.Fatalf("expected sessionReadyMsg, got %T", msg)
		}
		if !ready.snapshot.IsAuthenticated {
			t.Error("expected authenticated snapshot")
		}
	})
}

func TestModel_Login(t *testing.T) {
	t.Run("empty fields are rejected", func(t *testing.T) {
		s := &fakeSession{}
		m := ready(t, newTestModel(s, &fakeRunner{}, nil), s)
		m, _ = update(t, m, keyMsg("tab"))
		m, cmd := update(t, m, keyMsg("enter"))
		if cmd != nil {
			t.Error("expected no command for incomplete form")
		}
		if m.errMsg != shared.MsgRequiredFields {
			t.Errorf("expected %q, got %q", shared.MsgRequiredFields, m.errMsg)
		}
	})

	t.Run("success navigates to upload", func(t *testing.T) {
		s := &fakeSession{login: services.LoginResult{Success: true, AccessToken: "tok", User: &models.User{Username: "kim"}}}
		m := ready(t, newTestModel(s, &fakeRunner{}, nil), s)

		m = typeText(t, m, "kim")
		m, _ = update(t, m, keyMsg("enter"))
		m = typeText(t, m, "pw1234")
		m, cmd := update(t, m, keyMsg("enter"))
		if cmd == nil {
			t.Fatal("expected login command")
		}
		if !m.busy {
			t.Error("expected busy while logging in")
		}
		if !strings.Contains(m.View(), "로그인 중...") {
			t.Errorf("expected progress text, got %q", m.View())
		}

		m, _ = update(t, m, cmd())
		if m.CurrentView() != UploadView {
			t.Errorf("expected UploadView, got %v", m.CurrentView())
		}
		if len(s.logins) != 1 || s.logins[0] != "kim:pw1234" {
			t.Errorf("unexpected login calls: %v", s.logins)
		}
	})

	t.Run("failure shows message", func(t *testing.T) {
		s := &fakeSession{login: services.LoginResult{Message: "Bad credentials"}}
		m := ready(t, newTestModel(s, &fakeRunner{}, nil), s)
		m.login.inputs[0].SetValue("kim")
		m.login.inputs[1].SetValue("wrong")
		m.login.setFocus(1)

		m, cmd := update(t, m, keyMsg("enter"))
		m, _ = update(t, m, cmd())
		if m.CurrentView() != LoginView {
			t.Errorf("expected LoginView, got %v", m.CurrentView())
		}
		if !strings.Contains(m.View(), "Bad credentials") {
			t.Errorf("expected server message, got %q", m.View())
		}
	})

	t.Run("submit while busy is ignored", func(t *testing.T) {
		s := &fakeSession{}
		m := ready(t, newTestModel(s, &fakeRunner{}, nil), s)
		m.login.inputs[0].SetValue("kim")
		m.login.inputs[1].SetValue("pw")
		m.login.setFocus(1)
		m.busy = true
		if _, cmd := update(t, m, keyMsg("enter")); cmd != nil {
			t.Error("expected no command while busy")
		}
	})
}

func TestModel_Register(t *testing.T) {
	s := &fakeSession{register: services.RegisterResult{Success: true, Message: shared.MsgRegisterSuccess}}
	m := ready(t, newTestModel(s, &fakeRunner{}, nil), s)

	m, _ = update(t, m, keyMsg("ctrl+r"))
	if m.CurrentView() != RegisterView {
		t.Fatalf("expected RegisterView, got %v", m.CurrentView())
	}

	m.register.inputs[0].SetValue("lee")
	m.register.inputs[1].SetValue("pw1234")
	m.register.inputs[2].SetValue("이순신")
	m.register.setFocus(2)

	m, cmd := update(t, m, keyMsg("enter"))
	if cmd == nil {
		t.Fatal("expected register command")
	}
	m, _ = update(t, m, cmd())
	if m.CurrentView() != LoginView {
		t.Errorf("expected LoginView after register, got %v", m.CurrentView())
	}
	if m.notice != shared.MsgRegisterSuccess {
		t.Errorf("expected %q, got %q", shared.MsgRegisterSuccess, m.notice)
	}
	if got := m.register.values()[0]; got != "" {
		t.Errorf("expected register form reset, got %q", got)
	}

	t.Run("esc returns to login", func(t *testing.T) {
		m, _ := update(t, m, keyMsg("ctrl+r"))
		m, _ = update(t, m, keyMsg("esc"))
		if m.CurrentView() != LoginView {
			t.Errorf("expected LoginView, got %v", m.CurrentView())
		}
	})

	t.Run("failure keeps register view", func(t *testing.T) {
		s.register = services.RegisterResult{Message: "이미 존재하는 사용자입니다."}
		m, _ := update(t, m, keyMsg("ctrl+r"))
		m.register.inputs[0].SetValue("lee")
		m.register.inputs[1].SetValue("pw1234")
		m.register.inputs[2].SetValue("이순신")
		m.register.setFocus(2)
		m, cmd := update(t, m, keyMsg("enter"))
		m, _ = update(t, m, cmd())
		if m.CurrentView() != RegisterView {
			t.Errorf("expected RegisterView, got %v", m.CurrentView())
		}
		if m.errMsg != "이미 존재하는 사용자입니다." {
			t.Errorf("unexpected error message %q", m.errMsg)
		}
	})
}

func TestModel_Logout(t *testing.T) {
	for _, logoutErr := range []error{nil, errors.New("boom")} {
		t.Run(fmt.Sprintf("err=%v", logoutErr), func(t *testing.T) {
			s := authenticated("kim")
			s.logoutErr = logoutErr
			m := ready(t, newTestModel(s, &fakeRunner{}, nil), s)

			m, cmd := update(t, m, keyMsg("ctrl+l"))
			if cmd == nil {
				t.Fatal("expected logout command")
			}
			m, _ = update(t, m, cmd())
			if m.CurrentView() != LoginView {
				t.Errorf("expected LoginView, got %v", m.CurrentView())
			}
			if m.notice != shared.MsgLogoutSuccess {
				t.Errorf("expected %q, got %q", shared.MsgLogoutSuccess, m.notice)
			}
			if m.user != nil {
				t.Error("expected user cleared")
			}
			if s.logouts != 1 {
				t.Errorf("expected 1 logout, got %d", s.logouts)
			}
		})
	}
}

func TestModel_Upload(t *testing.T) {
	score := 87.5
	file := &services.VideoFile{Path: "/videos/squat.mp4", Name: "squat.mp4", Size: 2048, MimeType: "video/mp4"}

	t.Run("success shows result", func(t *testing.T) {
		s := authenticated("kim")
		r := &fakeRunner{
			updates: []tasks.ProgressUpdate{
				{Phase: tasks.Validate, Message: "checking"},
				{Phase: tasks.UploadBytes, Step: 50, Total: 100, Message: "squat.mp4"},
				{Phase: tasks.Analyze, Message: "analyzing"},
			},
			result: &tasks.UploadRunResult{
				Path:   file.Path,
				File:   file,
				Result: &models.AnalysisResult{Score: score, FeedBack: "무릎을 더 굽히세요"},
			},
		}
		m := ready(t, newTestModel(s, r, nil), s)
		m = typeText(t, m, `"/videos/squat.mp4"`)

		m, cmd := update(t, m, keyMsg("enter"))
		if m.CurrentView() != UploadingView {
			t.Fatalf("expected UploadingView, got %v", m.CurrentView())
		}
		m = runUpload(t, m, cmd)

		if m.CurrentView() != ResultView {
			t.Fatalf("expected ResultView, got %v (err %q)", m.CurrentView(), m.errMsg)
		}
		if len(r.paths) != 1 || r.paths[0] != "/videos/squat.mp4" {
			t.Errorf("expected cleaned path, got %v", r.paths)
		}
		view := m.View()
		for _, want := range []string{"분석 결과", "점수", "87.5점", "피드백", "무릎을 더 굽히세요"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected %q in result view, got %q", want, view)
			}
		}
		if m.busy {
			t.Error("expected busy cleared")
		}
	})

	t.Run("empty feedback uses fallback", func(t *testing.T) {
		m := newTestModel(authenticated("kim"), &fakeRunner{}, nil)
		m.view = ResultView
		m.result = &tasks.UploadRunResult{Result: &models.AnalysisResult{Score: 70}}
		if !strings.Contains(m.View(), shared.MsgNoFeedback) {
			t.Errorf("expected %q, got %q", shared.MsgNoFeedback, m.View())
		}
	})

	t.Run("failure returns to upload view", func(t *testing.T) {
		s := authenticated("kim")
		r := &fakeRunner{
			result: &tasks.UploadRunResult{Path: "notes.txt", Message: shared.MsgVideoOnly},
			err:    shared.ErrNotVideo,
		}
		m := ready(t, newTestModel(s, r, nil), s)
		m = typeText(t, m, "notes.txt")
		m, cmd := update(t, m, keyMsg("enter"))
		m = runUpload(t, m, cmd)

		if m.CurrentView() != UploadView {
			t.Errorf("expected UploadView, got %v", m.CurrentView())
		}
		if m.errMsg != shared.MsgVideoOnly {
			t.Errorf("expected %q, got %q", shared.MsgVideoOnly, m.errMsg)
		}
	})

	t.Run("expired session without redirect falls back to login", func(t *testing.T) {
		s := authenticated("kim")
		r := &fakeRunner{result: &tasks.UploadRunResult{File: file}, err: fmt.Errorf("%w: rejected", shared.ErrSessionExpired)}
		m := ready(t, newTestModel(s, r, nil), s)
		m = typeText(t, m, "squat.mp4")
		m, cmd := update(t, m, keyMsg("enter"))
		m = runUpload(t, m, cmd)

		if m.CurrentView() != LoginView {
			t.Errorf("expected LoginView, got %v", m.CurrentView())
		}
		if m.errMsg != shared.MsgSessionExpired {
			t.Errorf("expected %q, got %q", shared.MsgSessionExpired, m.errMsg)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		s := authenticated("kim")
		m := ready(t, newTestModel(s, &fakeRunner{}, nil), s)
		m, cmd := update(t, m, keyMsg("enter"))
		if cmd != nil {
			t.Error("expected no command")
		}
		if m.errMsg != shared.MsgSelectFile {
			t.Errorf("expected %q, got %q", shared.MsgSelectFile, m.errMsg)
		}
	})

	t.Run("anonymous session cannot upload", func(t *testing.T) {
		s := authenticated("kim")
		r := &fakeRunner{}
		m := ready(t, newTestModel(s, r, nil), s)
		m = typeText(t, m, "squat.mp4")
		s.snap = session.Snapshot{State: session.StateAnonymous}

		m, _ = update(t, m, keyMsg("enter"))
		if m.CurrentView() != LoginView {
			t.Errorf("expected LoginView, got %v", m.CurrentView())
		}
		if len(r.paths) != 0 {
			t.Errorf("expected no upload, got %v", r.paths)
		}
	})

	t.Run("upload another from result", func(t *testing.T) {
		s := authenticated("kim")
		m := ready(t, newTestModel(s, &fakeRunner{}, nil), s)
		m.view = ResultView
		m.path.SetValue("old.mp4")
		m, _ = update(t, m, keyMsg("r"))
		if m.CurrentView() != UploadView {
			t.Errorf("expected UploadView, got %v", m.CurrentView())
		}
		if m.path.Value() != "" {
			t.Errorf("expected path reset, got %q", m.path.Value())
		}
	})
}

func TestModel_ProgressView(t *testing.T) {
	m := newTestModel(authenticated("kim"), &fakeRunner{}, nil)
	m.view = UploadingView

	m.current = tasks.ProgressUpdate{Phase: tasks.UploadBytes, Step: 40, Total: 100, Message: "squat.mp4 40%"}
	if !strings.Contains(m.View(), "squat.mp4 40%") {
		t.Errorf("expected byte progress message, got %q", m.View())
	}

	m.current = tasks.ProgressUpdate{Phase: tasks.Analyze}
	if !strings.Contains(m.View(), "분석 중...") {
		t.Errorf("expected analyzing text, got %q", m.View())
	}
}

func TestModel_History(t *testing.T) {
	done := models.NewUpload(1, "kim", "squat.mp4", 2048, "video/mp4")
	done.Complete(models.AnalysisResult{Score: 91, FeedBack: "좋아요"})
	failed := models.NewUpload(2, "kim", "bad.mp4", 1024, "video/mp4")
	failed.Fail(shared.MsgUploadError)

	t.Run("lists uploads for the user", func(t *testing.T) {
		s := authenticated("kim")
		h := &fakeHistory{uploads: []*models.Upload{failed, done}}
		m := ready(t, newTestModel(s, &fakeRunner{}, h), s)

		m, cmd := update(t, m, keyMsg("ctrl+t"))
		if cmd == nil {
			t.Fatal("expected history command")
		}
		m, _ = update(t, m, cmd())
		if m.CurrentView() != HistoryView {
			t.Fatalf("expected HistoryView, got %v", m.CurrentView())
		}
		if got := len(m.history.Items()); got != 2 {
			t.Errorf("expected 2 items, got %d", got)
		}
		if h.criteria["username"] != "kim" || h.criteria["limit"] != historyLimit {
			t.Errorf("unexpected criteria %v", h.criteria)
		}

		m, _ = update(t, m, keyMsg("esc"))
		if m.CurrentView() != UploadView {
			t.Errorf("expected UploadView after esc, got %v", m.CurrentView())
		}
	})

	t.Run("error stays on current view", func(t *testing.T) {
		s := authenticated("kim")
		h := &fakeHistory{err: errors.New("database is locked")}
		m := ready(t, newTestModel(s, &fakeRunner{}, h), s)
		m, cmd := update(t, m, keyMsg("ctrl+t"))
		m, _ = update(t, m, cmd())
		if m.CurrentView() != UploadView {
			t.Errorf("expected UploadView, got %v", m.CurrentView())
		}
		if m.errMsg == "" {
			t.Error("expected error message")
		}
	})

	t.Run("without history store", func(t *testing.T) {
		s := authenticated("kim")
		m := ready(t, newTestModel(s, &fakeRunner{}, nil), s)
		if _, cmd := update(t, m, keyMsg("ctrl+t")); cmd != nil {
			t.Error("expected no command")
		}
	})

	t.Run("items", func(t *testing.T) {
		item := uploadItem{upload: done}
		if item.Title() != "#1 squat.mp4" {
			t.Errorf("unexpected title %q", item.Title())
		}
		if !strings.Contains(item.Description(), "점수 91.0") || !strings.Contains(item.Description(), "좋아요") {
			t.Errorf("unexpected description %q", item.Description())
		}
		if !strings.Contains(uploadItem{upload: failed}.Description(), shared.MsgUploadError) {
			t.Errorf("expected failure message in description")
		}
		if item.FilterValue() != "squat.mp4" {
			t.Errorf("unexpected filter value %q", item.FilterValue())
		}
	})
}

func TestModel_StaleMessages(t *testing.T) {
	s := &fakeSession{}
	m := ready(t, newTestModel(s, &fakeRunner{}, nil), s)

	stale := loginDoneMsg{gen: gen(m.gen + 1), result: services.LoginResult{Success: true, User: &models.User{Username: "kim"}}}
	m, cmd := update(t, m, stale)
	if cmd != nil || m.CurrentView() != LoginView {
		t.Errorf("expected stale message ignored, view %v", m.CurrentView())
	}
}

func TestModel_Quit(t *testing.T) {
	s := authenticated("kim")
	m := ready(t, newTestModel(s, &fakeRunner{}, nil), s)

	_, cmd := update(t, m, keyMsg("ctrl+c"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}

	t.Run("q types into inputs", func(t *testing.T) {
		m, cmd := update(t, m, keyMsg("q"))
		if cmd != nil {
			if _, ok := cmd().(tea.QuitMsg); ok {
				t.Error("q should not quit from the upload view")
			}
		}
		if m.path.Value() != "q" {
			t.Errorf("expected typed rune, got %q", m.path.Value())
		}
	})
}

func TestApp_Redirect(t *testing.T) {
	s := authenticated("kim")
	app := NewApp(context.Background(), Deps{Session: s, Uploads: &fakeRunner{}})

	next, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	app = next.(App)
	next, _ = app.Update(sessionReadyMsg{gen: 0, snapshot: s.Snapshot()})
	app = next.(App)
	if app.Model().CurrentView() != UploadView {
		t.Fatalf("expected UploadView, got %v", app.Model().CurrentView())
	}

	next, cmd := app.Update(RedirectMsg{Reason: shared.MsgSessionExpired})
	app = next.(App)
	if cmd == nil {
		t.Error("expected init command for the new model")
	}
	m := app.Model()
	if m.CurrentView() != LoginView {
		t.Errorf("expected LoginView, got %v", m.CurrentView())
	}
	if m.gen != 1 {
		t.Errorf("expected generation 1, got %d", m.gen)
	}
	if !strings.Contains(app.View(), shared.MsgSessionExpired) {
		t.Errorf("expected expiry message, got %q", app.View())
	}
	if m.width != 100 {
		t.Errorf("expected window size carried over, got %d", m.width)
	}

	next, _ = app.Update(uploadDoneMsg{gen: 0, err: shared.ErrSessionExpired})
	app = next.(App)
	if app.Model().errMsg != shared.MsgSessionExpired || app.Model().CurrentView() != LoginView {
		t.Error("expected message from discarded model ignored")
	}
}

func TestNavigator(t *testing.T) {
	var nav Navigator
	nav.ToLogin()

	got := make(chan tea.Msg, 1)
	nav.attach(func(msg tea.Msg) { got <- msg })
	nav.ToLogin()

	select {
	case msg := <-got:
		redirect, ok := msg.(RedirectMsg)
		if !ok {
			t.Fatalf("expected RedirectMsg, got %T", msg)
		}
		if redirect.Reason != shared.MsgSessionExpired {
			t.Errorf("unexpected reason %q", redirect.Reason)
		}
	case <-time.After(time.Second):
		t.Fatal("expected redirect")
	}
}

func TestCleanPath(t *testing.T) {
	tests := map[string]string{
		"  /tmp/a.mp4 ":       "/tmp/a.mp4",
		`"/tmp/my video.mp4"`: "/tmp/my video.mp4",
		`'/tmp/a.mp4'`:        "/tmp/a.mp4",
		`/tmp/my\ video.mp4`:  "/tmp/my video.mp4",
		"":                    "",
	}
	for in, want := range tests {
		if got := cleanPath(in); got != want {
			t.Errorf("cleanPath(%q) = %q, want %q", in, got, want)
		}
	}
}
