package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/formcheck/internal/formatter"
	"github.com/desertthunder/formcheck/internal/session"
	"github.com/desertthunder/formcheck/internal/shared"
	"github.com/desertthunder/formcheck/internal/tasks"
)

// Upload sends videos for analysis. A single file prints its score and feedback;
// several files run as a batch with a summary.
func (r *Runner) Upload(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(); err != nil {
		return err
	}

	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("%w: %s", shared.ErrNoFile, shared.MsgSelectFile)
	}

	snap, err := r.authenticated(ctx)
	if err != nil {
		return err
	}
	engine := r.uploadEngine(snap)
	asJSON := cmd.Bool("json")

	progress := make(chan tasks.ProgressUpdate, 128)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if !asJSON {
				r.writeProgress(update)
			}
		}
	}()

	if len(paths) == 1 && cmd.String("report") == "" && !asJSON {
		result, err := engine.Run(ctx, progress, paths[0])
		close(progress)
		<-done
		r.warnUnrecorded(result)
		if err != nil {
			if result != nil && result.Message != "" {
				return fmt.Errorf("%s: %w", result.Message, err)
			}
			return err
		}
		r.writePlainln("")
		r.writePlainHeader(fmt.Sprintf("분석 결과: %s", result.File.Name))
		return r.writePlain("%s\n", formatter.FormatResult(*result.Result))
	}

	result, err := engine.BulkUpload(ctx, progress, paths, tasks.BulkUploadOpts{
		NumWorkers:   cmd.Int("workers"),
		RateLimit:    cmd.Float("rate"),
		ReportPath:   cmd.String("report"),
		ReportFormat: cmd.String("report-format"),
	})
	close(progress)
	<-done
	if result == nil {
		return err
	}
	for _, res := range result.Results {
		r.warnUnrecorded(res)
	}

	if asJSON {
		data, jerr := formatter.ExportToJSON(result.Uploads())
		if jerr != nil {
			return jerr
		}
		if werr := r.writePlain("%s", data); werr != nil {
			return werr
		}
	} else {
		r.writeBatchSummary(result)
	}

	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%w: %d of %d uploads failed", shared.ErrAPIRequest, result.Failed, result.Total)
	}
	return nil
}

// authenticated restores the session and requires it to be authenticated.
func (r *Runner) authenticated(ctx context.Context) (session.Snapshot, error) {
	r.session.Start(ctx)
	if err := r.session.Wait(ctx); err != nil {
		return session.Snapshot{}, err
	}
	snap := r.session.Snapshot()
	if !snap.IsAuthenticated {
		return snap, fmt.Errorf("%w: run 'formcheck login' first", shared.ErrNotAuthenticated)
	}
	return snap, nil
}

func (r *Runner) writeProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.UploadBytes:
		if update.Step%25 != 0 {
			return
		}
		r.writePlain("  ↑ %s\n", update.Message)
	case tasks.Analyze:
		r.writePlain("  ⋯ %s\n", update.Message)
	case tasks.Done:
		r.writePlain("  ✓ %s\n", update.Message)
	case tasks.Failed:
		r.writePlain("  ✗ %s\n", update.Message)
	default:
		r.writePlain("%s\n", update.Message)
	}
}

func (r *Runner) writeBatchSummary(result *tasks.BulkUploadResult) {
	r.writePlainln("")
	r.writePlainHeader("Upload summary")
	for i, res := range result.Results {
		switch {
		case res == nil:
			r.writePlain("- skipped (#%d)\n", i+1)
		case res.Result != nil:
			r.writePlain("✓ %s: %s점\n", res.File.Name, formatter.FormatScore(&res.Result.Score))
		default:
			r.writePlain("✗ %s: %s\n", res.Path, res.Message)
		}
	}
	r.writePlain("\nSucceeded: %d  Failed: %d  Skipped: %d  Total: %d\n",
		result.Succeeded, result.Failed, result.Skipped, result.Total)
	if result.ReportPath != "" {
		r.writePlain("Report written to %s\n", result.ReportPath)
	}
}

// History lists recorded uploads in the requested format.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if r.history == nil {
		return fmt.Errorf("%w: database not initialized", shared.ErrServiceUnavailable)
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if status := cmd.String("status"); status != "" {
		criteria["status"] = status
	}
	if user := cmd.String("user"); user != "" {
		criteria["username"] = user
	}

	uploads, err := r.history.List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list uploads: %w", err)
	}

	format := cmd.String("format")
	if output := cmd.String("output"); output != "" {
		if err := formatter.WriteHistory(uploads, format, output); err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d uploads to %s\n", len(uploads), output)
	}

	if len(uploads) == 0 && format == formatter.FormatText {
		return r.writePlain("No uploads yet\n")
	}

	data, err := formatter.FormatHistory(uploads, format)
	if err != nil {
		return err
	}
	if err := r.writePlain("%s", data); err != nil {
		return err
	}

	if format == formatter.FormatText {
		if avg, n := formatter.AverageScore(uploads); n > 0 {
			r.writePlain("\n평균 점수: %.1f (%d)\n", avg, n)
		}
	}
	return nil
}

// warnUnrecorded logs an upload whose history entry could not be written.
func (r *Runner) warnUnrecorded(res *tasks.UploadRunResult) {
	if res != nil && res.RecordErr != nil {
		r.logger.Warn("upload not saved to history", "path", res.Path, "error", res.RecordErr)
	}
}
