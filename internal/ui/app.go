package ui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/formcheck/internal/session"
	"github.com/desertthunder/formcheck/internal/shared"
)

// App hosts a [Model] and replaces it with a fresh login model on [RedirectMsg].
type App struct {
	ctx    context.Context
	deps   Deps
	model  Model
	gen    int
	width  int
	height int
}

func NewApp(ctx context.Context, deps Deps) App {
	return App{ctx: ctx, deps: deps, model: NewModel(ctx, deps)}
}

// Model returns the current view model.
func (a App) Model() Model { return a.model }

func (a App) Init() tea.Cmd { return a.model.Init() }

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RedirectMsg:
		a.gen++
		m := newModel(a.ctx, a.deps, a.gen, LoginView)
		m.errMsg = msg.Reason
		if a.width > 0 {
			sized, _ := m.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
			m = sized.(Model)
		}
		a.model = m
		return a, a.model.Init()
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
	}

	next, cmd := a.model.Update(msg)
	a.model = next.(Model)
	return a, cmd
}

func (a App) View() string { return a.model.View() }

// Navigator implements [session.Navigator] by sending [RedirectMsg] to a running program.
//
// Redirects before [Navigator.Attach] are dropped.
type Navigator struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

var _ session.Navigator = (*Navigator)(nil)

func (n *Navigator) Attach(p *tea.Program) { n.attach(p.Send) }

func (n *Navigator) attach(send func(tea.Msg)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.send = send
}

func (n *Navigator) ToLogin() {
	n.mu.Lock()
	send := n.send
	n.mu.Unlock()
	if send != nil {
		send(RedirectMsg{Reason: shared.MsgSessionExpired})
	}
}

// Run starts the TUI and blocks until it exits. nav is attached to the program
// so session expiry anywhere in the process returns the user to login.
func Run(ctx context.Context, deps Deps, nav *Navigator, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewApp(ctx, deps), opts...)
	if nav != nil {
		nav.Attach(p)
	}
	_, err := p.Run()
	return err
}
