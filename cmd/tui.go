package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/formcheck/internal/shared"
	"github.com/desertthunder/formcheck/internal/tasks"
	"github.com/desertthunder/formcheck/internal/ui"
)

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(shared.ExpandPath(cmd.String("log-file")))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	r.session.Start(ctx)

	deps := ui.Deps{
		Session: r.session,
		Uploads: sessionUploads{r: r},
		History: r.history,
		Logger:  fileLogger,
	}
	if err := ui.Run(ctx, deps, r.navigator, tea.WithAltScreen()); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// sessionUploads records uploads under whoever is logged in when the upload starts.
type sessionUploads struct {
	r *Runner
}

func (s sessionUploads) Run(ctx context.Context, progress chan<- tasks.ProgressUpdate, path string) (*tasks.UploadRunResult, error) {
	res, err := s.r.uploadEngine(s.r.session.Snapshot()).Run(ctx, progress, path)
	s.r.warnUnrecorded(res)
	return res, err
}
