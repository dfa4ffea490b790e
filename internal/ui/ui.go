package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/formcheck/internal/formatter"
	"github.com/desertthunder/formcheck/internal/models"
	"github.com/desertthunder/formcheck/internal/services"
	"github.com/desertthunder/formcheck/internal/session"
	"github.com/desertthunder/formcheck/internal/shared"
	"github.com/desertthunder/formcheck/internal/tasks"
)

// View represents the active screen.
type View int

const (
	LoadingView View = iota
	LoginView
	RegisterView
	UploadView
	UploadingView
	ResultView
	HistoryView
)

const historyLimit = 50

// Session is the part of [session.Controller] the TUI drives.
type Session interface {
	Snapshot() session.Snapshot
	Wait(ctx context.Context) error
	Login(ctx context.Context, username, password string) services.LoginResult
	Register(ctx context.Context, req models.RegisterRequest) services.RegisterResult
	Logout(ctx context.Context) error
}

// Runner runs a single upload, e.g. [tasks.UploadEngine].
type Runner interface {
	Run(ctx context.Context, progress chan<- tasks.ProgressUpdate, path string) (*tasks.UploadRunResult, error)
}

// History lists recorded uploads, e.g. [repositories.UploadRepository].
type History interface {
	List(criteria map[string]any) ([]*models.Upload, error)
}

// Deps are the services behind the TUI. History is optional.
type Deps struct {
	Session Session
	Uploads Runner
	History History
	Logger  *log.Logger
}

// Model is the bubbletea model for one session of the TUI.
type Model struct {
	ctx  context.Context
	deps Deps
	gen  int

	view     View
	prevView View
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	bar      progress.Model
	login    form
	register form
	path     textinput.Model
	history  list.Model

	busy   bool
	notice string
	errMsg string
	user   *models.User

	updates <-chan tasks.ProgressUpdate
	done    <-chan uploadDoneMsg
	current tasks.ProgressUpdate
	result  *tasks.UploadRunResult
	width   int
}

// NewModel creates a model that waits for the session to finish restoring.
func NewModel(ctx context.Context, deps Deps) Model {
	return newModel(ctx, deps, 0, LoadingView)
}

func newModel(ctx context.Context, deps Deps, generation int, view View) Model {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}

	path := textinput.New()
	path.Placeholder = "비디오 파일 경로 (MP4, AVI, MOV)"
	path.Prompt = "› "
	path.Focus()

	history := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	history.Title = "업로드 기록"
	history.SetShowStatusBar(false)

	return Model{
		ctx:      ctx,
		deps:     deps,
		gen:      generation,
		view:     view,
		keys:     newKeyMap(),
		help:     help.New(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:      progress.New(progress.WithDefaultGradient()),
		login:    newLoginForm(),
		register: newRegisterForm(),
		path:     path,
		history:  history,
	}
}

// CurrentView returns the active screen.
func (m Model) CurrentView() View { return m.view }

func (m Model) Init() tea.Cmd {
	if m.view == LoadingView {
		return tea.Batch(m.spinner.Tick, m.waitForSession())
	}
	return tea.Batch(m.spinner.Tick, textinput.Blink)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if g, ok := msg.(generational); ok && g.generation() != m.gen {
		m.deps.Logger.Debug("dropping stale message", "type", fmt.Sprintf("%T", msg))
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-8, 10), 60)
		m.history.SetSize(msg.Width-4, max(msg.Height-6, 5))
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionReadyMsg:
		m.user = msg.snapshot.User
		if msg.snapshot.IsAuthenticated {
			return m.showUpload(), textinput.Blink
		}
		return m.showLogin(), textinput.Blink

	case loginDoneMsg:
		m.busy = false
		if !msg.result.Success {
			m.errMsg = msg.result.Message
			return m, nil
		}
		m.user = msg.result.User
		m.login = newLoginForm()
		return m.showUpload(), textinput.Blink

	case registerDoneMsg:
		m.busy = false
		if !msg.result.Success {
			m.errMsg = msg.result.Message
			return m, nil
		}
		m.register = newRegisterForm()
		m = m.showLogin()
		m.notice = msg.result.Message
		return m, textinput.Blink

	case logoutDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.deps.Logger.Warn("logout request failed", "error", msg.err)
		}
		m.user = nil
		m = m.showLogin()
		m.notice = shared.MsgLogoutSuccess
		return m, textinput.Blink

	case progressMsg:
		m.current = msg.update
		return m, m.waitForProgress()

	case uploadDoneMsg:
		return m.finishUpload(msg)

	case historyLoadedMsg:
		m.busy = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.history.SetItems(uploadItems(msg.uploads))
		m.prevView = m.view
		m.view = HistoryView
		m.errMsg, m.notice = "", ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.forward(msg)
}

// forward passes msg to the focused component of the active view.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case LoginView:
		cmd = m.login.update(msg)
	case RegisterView:
		cmd = m.register.update(msg)
	case UploadView:
		m.path, cmd = m.path.Update(msg)
	case HistoryView:
		m.history, cmd = m.history.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.forceQ) {
		return m, tea.Quit
	}

	switch m.view {
	case LoginView:
		return m.handleFormKey(msg)
	case RegisterView:
		if key.Matches(msg, m.keys.back) {
			return m.switchForm(LoginView)
		}
		return m.handleFormKey(msg)
	case UploadView:
		switch {
		case key.Matches(msg, m.keys.logout):
			return m.startLogout()
		case key.Matches(msg, m.keys.history):
			return m.loadHistory()
		case key.Matches(msg, m.keys.submit):
			return m.startUpload()
		}
		var cmd tea.Cmd
		m.path, cmd = m.path.Update(msg)
		return m, cmd
	case ResultView:
		switch {
		case key.Matches(msg, m.keys.again):
			m.path.Reset()
			return m.showUpload(), textinput.Blink
		case key.Matches(msg, m.keys.showHist):
			return m.loadHistory()
		case key.Matches(msg, m.keys.logout):
			return m.startLogout()
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		}
	case HistoryView:
		if m.history.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.back):
			m.view = m.prevView
			return m, nil
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd
	}

	if m.view == HistoryView {
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f, other, submit := &m.login, RegisterView, Model.submitLogin
	if m.view == RegisterView {
		f, other, submit = &m.register, LoginView, Model.submitRegister
	}

	switch {
	case key.Matches(msg, m.keys.toggle):
		return m.switchForm(other)
	case key.Matches(msg, m.keys.next):
		f.next()
	case key.Matches(msg, m.keys.prev):
		f.prev()
	case key.Matches(msg, m.keys.submit):
		if !f.onLast() {
			f.next()
			return m, nil
		}
		return submit(m)
	default:
		cmd := f.update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) switchForm(v View) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.view = v
	m.errMsg, m.notice = "", ""
	return m, textinput.Blink
}

func (m Model) showLogin() Model {
	m.view = LoginView
	m.errMsg, m.notice = "", ""
	m.login.setFocus(0)
	return m
}

// showUpload enters the upload view, or the login view when the session is not authenticated.
func (m Model) showUpload() Model {
	if !m.deps.Session.Snapshot().IsAuthenticated {
		return m.showLogin()
	}
	m.view = UploadView
	m.errMsg, m.notice = "", ""
	m.path.Focus()
	return m
}

func (m Model) submitLogin() (Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	if !m.login.complete() {
		m.errMsg = shared.MsgRequiredFields
		return m, nil
	}
	m.busy = true
	m.errMsg, m.notice = "", ""

	vals := m.login.values()
	ctx, s, g := m.ctx, m.deps.Session, gen(m.gen)
	return m, func() tea.Msg {
		return loginDoneMsg{gen: g, result: s.Login(ctx, vals[0], vals[1])}
	}
}

func (m Model) submitRegister() (Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	if !m.register.complete() {
		m.errMsg = shared.MsgRequiredFields
		return m, nil
	}
	m.busy = true
	m.errMsg, m.notice = "", ""

	vals := m.register.values()
	req := models.RegisterRequest{Username: vals[0], Password: vals[1], RealName: vals[2]}
	ctx, s, g := m.ctx, m.deps.Session, gen(m.gen)
	return m, func() tea.Msg {
		return registerDoneMsg{gen: g, result: s.Register(ctx, req)}
	}
}

func (m Model) startLogout() (Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.busy = true
	ctx, s, g := m.ctx, m.deps.Session, gen(m.gen)
	return m, func() tea.Msg {
		return logoutDoneMsg{gen: g, err: s.Logout(ctx)}
	}
}

func (m Model) loadHistory() (Model, tea.Cmd) {
	if m.deps.History == nil || m.busy {
		return m, nil
	}
	criteria := map[string]any{"limit": historyLimit}
	if m.user != nil {
		criteria["username"] = m.user.Username
	}
	h, g := m.deps.History, gen(m.gen)
	m.busy = true
	return m, func() tea.Msg {
		uploads, err := h.List(criteria)
		return historyLoadedMsg{gen: g, uploads: uploads, err: err}
	}
}

func (m Model) startUpload() (Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	path := cleanPath(m.path.Value())
	if path == "" {
		m.errMsg = shared.MsgSelectFile
		return m, nil
	}
	if !m.deps.Session.Snapshot().IsAuthenticated {
		return m.showLogin(), textinput.Blink
	}

	updates := make(chan tasks.ProgressUpdate, 128)
	done := make(chan uploadDoneMsg, 1)
	m.updates, m.done = updates, done
	m.busy = true
	m.view = UploadingView
	m.current = tasks.ProgressUpdate{}
	m.result = nil
	m.errMsg, m.notice = "", ""

	ctx, runner, g := m.ctx, m.deps.Uploads, gen(m.gen)
	run := func() tea.Msg {
		res, err := runner.Run(ctx, updates, path)
		done <- uploadDoneMsg{gen: g, result: res, err: err}
		close(updates)
		return nil
	}
	return m, tea.Batch(run, m.waitForProgress())
}

// waitForProgress delivers the next progress update, then the final outcome once the run closes its channel.
func (m Model) waitForProgress() tea.Cmd {
	updates, done := m.updates, m.done
	g := gen(m.gen)
	return func() tea.Msg {
		if u, ok := <-updates; ok {
			return progressMsg{gen: g, update: u}
		}
		return <-done
	}
}

func (m Model) finishUpload(msg uploadDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.updates, m.done = nil, nil
	m.result = msg.result

	if errors.Is(msg.err, shared.ErrSessionExpired) {
		m.user = nil
		m = m.showLogin()
		m.errMsg = shared.MsgSessionExpired
		return m, textinput.Blink
	}
	if msg.err != nil {
		m.view = UploadView
		if msg.result != nil && msg.result.Message != "" {
			m.errMsg = msg.result.Message
		} else {
			m.errMsg = services.UploadMessage(msg.err)
		}
		return m, textinput.Blink
	}
	m.view = ResultView
	return m, nil
}

// cleanPath undoes the quoting terminals apply to dropped file paths.
func cleanPath(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.ReplaceAll(s, `\ `, " ")
}

func (m Model) waitForSession() tea.Cmd {
	ctx, s, g := m.ctx, m.deps.Session, gen(m.gen)
	return func() tea.Msg {
		if err := s.Wait(ctx); err != nil {
			return tea.Quit()
		}
		return sessionReadyMsg{gen: g, snapshot: s.Snapshot()}
	}
}

func (m Model) View() string {
	var b strings.Builder

	switch m.view {
	case LoadingView:
		b.WriteString(m.spinner.View() + " 로딩 중...\n")
		return styles.box.Render(b.String())
	case LoginView:
		b.WriteString(styles.title.Render("로그인") + "\n")
		b.WriteString(m.login.view())
		if m.busy {
			b.WriteString(m.spinner.View() + " 로그인 중...\n")
		}
		b.WriteString(styles.help.Render("계정이 없으신가요? ctrl+r 회원가입") + "\n")
	case RegisterView:
		b.WriteString(styles.title.Render("회원가입") + "\n")
		b.WriteString(m.register.view())
		if m.busy {
			b.WriteString(m.spinner.View() + " 가입 중...\n")
		}
		b.WriteString(styles.help.Render("이미 계정이 있으신가요? ctrl+r 로그인") + "\n")
	case UploadView:
		b.WriteString(m.header())
		b.WriteString(styles.label.Render("비디오 업로드") + "\n")
		b.WriteString(m.path.View() + "\n")
	case UploadingView:
		b.WriteString(m.header())
		b.WriteString(m.progressView())
	case ResultView:
		b.WriteString(m.header())
		b.WriteString(m.resultView())
	case HistoryView:
		b.WriteString(m.history.View() + "\n")
	}

	if m.notice != "" {
		b.WriteString("\n" + styles.ok.Render(m.notice) + "\n")
	}
	if m.errMsg != "" {
		b.WriteString("\n" + styles.err.Render(m.errMsg) + "\n")
	}
	b.WriteString("\n" + m.help.ShortHelpView(m.bindings()))
	return styles.box.Render(b.String())
}

func (m Model) header() string {
	title := styles.title.Render("스쿼트 분석")
	if m.user == nil {
		return title + "\n"
	}
	return title + "\n" + fmt.Sprintf("환영합니다, %s님!", m.user.DisplayName()) + "\n\n"
}

func (m Model) progressView() string {
	var b strings.Builder
	switch m.current.Phase {
	case tasks.Analyze:
		b.WriteString(m.bar.ViewAs(1) + "\n")
		b.WriteString(m.spinner.View() + " 분석 중...\n")
	case tasks.UploadBytes:
		b.WriteString(m.bar.ViewAs(m.current.Percent()) + "\n")
		b.WriteString(styles.label.Render(m.current.Message) + "\n")
	default:
		b.WriteString(m.bar.ViewAs(0) + "\n")
		b.WriteString(m.spinner.View() + " " + m.current.Message + "\n")
	}
	return b.String()
}

func (m Model) resultView() string {
	if m.result == nil || m.result.Result == nil {
		return ""
	}
	r := m.result.Result
	feedback := r.FeedBack
	if !r.HasFeedback() {
		feedback = shared.MsgNoFeedback
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("분석 결과") + "\n")
	if f := m.result.File; f != nil {
		b.WriteString(styles.label.Render(fmt.Sprintf("%s (%s)", f.Name, formatter.FormatSize(f.Size))) + "\n\n")
	}
	b.WriteString("점수\n")
	b.WriteString(styles.score.Render(fmt.Sprintf("%s점", formatter.FormatScore(&r.Score))) + "\n\n")
	b.WriteString("피드백\n")
	b.WriteString(feedback + "\n")
	return b.String()
}

func (m Model) bindings() []key.Binding {
	switch m.view {
	case LoginView, RegisterView:
		return []key.Binding{m.keys.next, m.keys.submit, m.keys.toggle, m.keys.forceQ}
	case UploadView:
		return []key.Binding{m.keys.submit, m.keys.history, m.keys.logout, m.keys.forceQ}
	case ResultView:
		return []key.Binding{m.keys.again, m.keys.showHist, m.keys.logout, m.keys.quit}
	case HistoryView:
		return []key.Binding{m.keys.back, m.keys.quit}
	default:
		return []key.Binding{m.keys.forceQ}
	}
}
