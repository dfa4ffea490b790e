package repositories

import (
	"fmt"

	"github.com/desertthunder/formcheck/internal/models"
)

// HistoryRecorder implements tasks.ResultRecorder using UploadRepository.
//
// Each finished upload, successful or not, becomes one history row.
type HistoryRecorder struct {
	repo *UploadRepository
}

// NewHistoryRecorder creates a new HistoryRecorder with the given repository
func NewHistoryRecorder(repo *UploadRepository) *HistoryRecorder {
	return &HistoryRecorder{repo: repo}
}

// RecordUpload stores a finished upload in history.
func (a *HistoryRecorder) RecordUpload(upload *models.Upload) error {
	if err := a.repo.Create(upload); err != nil {
		return fmt.Errorf("failed to record upload: %w", err)
	}
	return nil
}
