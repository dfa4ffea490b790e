// package tasks implements video upload operations against the analysis service.
package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/formcheck/internal/models"
	"github.com/desertthunder/formcheck/internal/services"
	"github.com/desertthunder/formcheck/internal/shared"
)

// Uploader validates and sends a video. Implemented by [services.UploadService].
type Uploader interface {
	Inspect(path string) (*services.VideoFile, error)
	UploadFile(ctx context.Context, file *services.VideoFile, progress services.ProgressFunc) (*models.AnalysisResult, error)
}

// ResultRecorder stores finished uploads.
type ResultRecorder interface {
	RecordUpload(upload *models.Upload) error
}

// UploadRunResult contains everything known about one upload.
type UploadRunResult struct {
	Path    string                 // Path as given
	File    *services.VideoFile    // Inspected file (nil if validation failed)
	Upload  *models.Upload         // History entry (nil if validation failed)
	Result  *models.AnalysisResult // Analysis (nil on failure)
	Message string                 // User-facing message on failure

	RecordErr error // History write failure; the upload outcome stands regardless
}

// UploadEngine runs uploads and records their outcome.
type UploadEngine struct {
	uploader Uploader
	recorder ResultRecorder
	owner    string
}

// NewUploadEngine creates an UploadEngine. recorder may be nil; owner is the username written to history.
func NewUploadEngine(uploader Uploader, recorder ResultRecorder, owner string) *UploadEngine {
	return &UploadEngine{uploader: uploader, recorder: recorder, owner: owner}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *UploadEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run validates path, uploads it and waits for the analysis.
//
// Validation failures return before any request is made and are not recorded.
func (e *UploadEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, path string) (*UploadRunResult, error) {
	if e.uploader == nil {
		return nil, fmt.Errorf("%w: uploader not initialized", shared.ErrServiceUnavailable)
	}

	result := &UploadRunResult{Path: path}

	e.sendProgress(progress, validateUpdate(path))
	file, err := e.uploader.Inspect(path)
	if err != nil {
		result.Message = services.UploadMessage(err)
		e.sendProgress(progress, failedUpdate(path, result.Message))
		return result, err
	}
	result.File = file

	upload := models.NewUpload(0, e.owner, file.Name, file.Size, file.MimeType)
	result.Upload = upload

	reporter := &byteReporter{engine: e, progress: progress, name: file.Name, last: -1}
	analysis, err := e.uploader.UploadFile(ctx, file, reporter.report)
	if err != nil {
		result.Message = services.UploadMessage(err)
		upload.Fail(result.Message)
		result.RecordErr = e.record(upload)
		e.sendProgress(progress, failedUpdate(file.Name, result.Message))
		return result, err
	}

	result.Result = analysis
	upload.Complete(*analysis)
	result.RecordErr = e.record(upload)
	e.sendProgress(progress, doneUpdate(upload))
	return result, nil
}

func (e *UploadEngine) record(upload *models.Upload) error {
	if e.recorder == nil {
		return nil
	}
	if err := e.recorder.RecordUpload(upload); err != nil {
		return fmt.Errorf("failed to record upload %s: %w", upload.FileName(), err)
	}
	return nil
}

// byteReporter turns byte counts into at most one update per percent,
// then an analyze update once the last byte is out.
type byteReporter struct {
	engine   *UploadEngine
	progress chan<- ProgressUpdate
	name     string
	last     int
}

func (b *byteReporter) report(sent, total int64) {
	if total <= 0 {
		return
	}
	percent := int(sent * 100 / total)
	if percent == b.last {
		return
	}
	b.last = percent
	b.engine.sendProgress(b.progress, uploadBytesUpdate(percent, b.name, sent, total))
	if sent >= total {
		b.engine.sendProgress(b.progress, analyzeUpdate(b.name))
	}
}
