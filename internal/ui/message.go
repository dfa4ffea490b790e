package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/formcheck/internal/models"
	"github.com/desertthunder/formcheck/internal/services"
	"github.com/desertthunder/formcheck/internal/session"
	"github.com/desertthunder/formcheck/internal/tasks"
)

// RedirectMsg asks [App] to discard the current model and show a fresh login view.
type RedirectMsg struct {
	Reason string
}

var _ tea.Msg = RedirectMsg{}

// generational is implemented by messages produced by commands of one model instance.
type generational interface {
	generation() int
}

type gen int

func (g gen) generation() int { return int(g) }

type sessionReadyMsg struct {
	gen
	snapshot session.Snapshot
}

type loginDoneMsg struct {
	gen
	result services.LoginResult
}

type registerDoneMsg struct {
	gen
	result services.RegisterResult
}

type logoutDoneMsg struct {
	gen
	err error
}

type progressMsg struct {
	gen
	update tasks.ProgressUpdate
}

type uploadDoneMsg struct {
	gen
	result *tasks.UploadRunResult
	err    error
}

type historyLoadedMsg struct {
	gen
	uploads []*models.Upload
	err     error
}
