// Package tasks runs video uploads for analysis with real-time progress reporting.
//
// # Core Operations
//
// [UploadEngine] offers two operations:
//
//  1. [UploadEngine.Run] : a single upload
//     - Validates the file locally (exists, sniffs as video, size limit)
//     - Streams it to the analysis service, reporting bytes sent
//     - Waits for the score and feedback
//     - Records the outcome in upload history
//
//  2. [UploadEngine.BulkUpload] : many files through a rate-limited worker pool
//     - Partial failures are reported per file
//     - An expired session stops the remaining files
//     - Optionally writes a report of the batch
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct carries the phase, step counters, a message and optional data.
// Updates use select with default so a slow reader never stalls an upload.
//
// # History
//
// The optional [ResultRecorder] interface persists every finished upload
// (repositories.HistoryRecorder). Recording errors are ignored so a storage
// problem never hides an analysis result.
package tasks
