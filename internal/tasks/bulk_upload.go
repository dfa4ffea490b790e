package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/desertthunder/formcheck/internal/formatter"
	"github.com/desertthunder/formcheck/internal/models"
	"github.com/desertthunder/formcheck/internal/shared"
)

// BulkUploadOpts contains configuration for batch uploads.
type BulkUploadOpts struct {
	NumWorkers   int     // Concurrent uploads (default: 1, max: 4)
	RateLimit    float64 // Uploads started per second (default: 1)
	ReportPath   string  // Optional report of the batch
	ReportFormat string  // Report format: csv, markdown, txt
}

// BulkUploadResult summarizes a batch. Results keep the order of the input paths;
// files never attempted because the batch stopped early have a nil entry.
type BulkUploadResult struct {
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int
	Results    []*UploadRunResult
	ReportPath string
}

// Uploads returns the history entries of the attempted files.
func (r *BulkUploadResult) Uploads() []*models.Upload {
	uploads := make([]*models.Upload, 0, len(r.Results))
	for _, res := range r.Results {
		if res != nil && res.Upload != nil {
			uploads = append(uploads, res.Upload)
		}
	}
	return uploads
}

type uploadJob struct {
	index int
	path  string
}

type uploadOutcome struct {
	index  int
	result *UploadRunResult
	err    error
}

// BulkUpload uploads paths through a rate-limited worker pool.
//
// A failed file does not stop the batch, but an expired session does: every file
// not yet started is skipped and the returned error wraps [shared.ErrSessionExpired].
func (e *UploadEngine) BulkUpload(ctx context.Context, prog chan<- ProgressUpdate, paths []string, opts BulkUploadOpts) (*BulkUploadResult, error) {
	if e.uploader == nil {
		return nil, fmt.Errorf("%w: uploader not initialized", shared.ErrServiceUnavailable)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files given", shared.ErrMissingArgument)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	if opts.NumWorkers > 4 {
		opts.NumWorkers = 4
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1.0
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := &BulkUploadResult{
		Total:   len(paths),
		Results: make([]*UploadRunResult, len(paths)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan uploadJob)
	outcomes := make(chan uploadOutcome, len(paths))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.uploadWorker(ctx, cancel, &wg, jobs, outcomes)
	}

	go func() {
		defer close(jobs)
		e.sendProgress(prog, batchStartUpdate(len(paths)))
		for i, path := range paths {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case jobs <- uploadJob{index: i, path: path}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var expired error
	completed := 0
	for out := range outcomes {
		completed++
		result.Results[out.index] = out.result

		if out.err == nil {
			result.Succeeded++
			e.sendProgress(prog, batchCompletedUpdate(completed, len(paths), out.result))
			continue
		}

		result.Failed++
		e.sendProgress(prog, batchFailedUpdate(completed, len(paths), out.result))
		if errors.Is(out.err, shared.ErrSessionExpired) && expired == nil {
			expired = out.err
		}
	}
	result.Skipped = result.Total - result.Succeeded - result.Failed

	if opts.ReportPath != "" {
		if err := formatter.WriteHistory(result.Uploads(), opts.ReportFormat, opts.ReportPath); err != nil {
			return result, fmt.Errorf("batch completed but failed to write report: %w", err)
		}
		result.ReportPath = opts.ReportPath
	}

	if expired != nil {
		return result, expired
	}
	return result, nil
}

// uploadWorker runs uploads from the jobs channel until it is closed.
// An expired session cancels the batch before the next job can start.
func (e *UploadEngine) uploadWorker(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup, jobs <-chan uploadJob, outcomes chan<- uploadOutcome) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := e.Run(ctx, nil, job.path)
		if errors.Is(err, shared.ErrSessionExpired) {
			cancel()
		}
		outcomes <- uploadOutcome{index: job.index, result: res, err: err}
	}
}
