package tasks

import (
	"fmt"

	"github.com/desertthunder/formcheck/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Percent returns Step/Total as a fraction in [0, 1].
func (u ProgressUpdate) Percent() float64 {
	if u.Total <= 0 {
		return 0
	}
	return float64(u.Step) / float64(u.Total)
}

// Operation phase enumeration
type Phase int

const (
	Validate Phase = iota
	UploadBytes
	Analyze
	Done
	Failed
	Batch
)

func (p Phase) String() string {
	switch p {
	case Validate:
		return "validate"
	case UploadBytes:
		return "upload"
	case Analyze:
		return "analyze"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Batch:
		return "batch"
	default:
		return ""
	}
}

// BytesSent is the Data of an [UploadBytes] update.
type BytesSent struct {
	Sent  int64
	Total int64
}

func validateUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Validate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Checking %s...", path),
	}
}

func uploadBytesUpdate(percent int, name string, sent, total int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadBytes,
		Step:    percent,
		Total:   100,
		Message: fmt.Sprintf("Uploading %s (%d%%)", name, percent),
		Data:    BytesSent{Sent: sent, Total: total},
	}
}

func analyzeUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Analyze,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Analyzing %s...", name),
	}
}

func doneUpdate(upload *models.Upload) ProgressUpdate {
	msg := fmt.Sprintf("✓ %s", upload.FileName())
	if result, ok := upload.Result(); ok {
		msg = fmt.Sprintf("✓ %s: %.1f", upload.FileName(), result.Score)
	}
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    upload,
	}
}

func failedUpdate(name, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Failed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✗ %s: %s", name, message),
	}
}

func batchStartUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Batch,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Uploading %d files...", total),
	}
}

func batchCompletedUpdate(step, total int, res *UploadRunResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Batch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, res.File.Name),
		Data:    res,
	}
}

func batchFailedUpdate(step, total int, res *UploadRunResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Batch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, res.Path, res.Message),
		Data:    res,
	}
}
