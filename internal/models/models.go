// package models defines the data model for the form analysis client
package models

import (
	"errors"
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models in the form analysis client.
// Implementations include Upload.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// ErrValidation is wrapped by every Validate failure.
var ErrValidation = errors.New("model validation failed")

// base carries the identity and lifecycle fields shared by persistent models.
type base struct {
	id        string
	sequence  int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

func newBase(sequence int) base {
	now := time.Now()
	return base{sequence: sequence, createdAt: now, updatedAt: now}
}

func (b *base) ID() string { return b.id }
func (b *base) Sequence() int { return b.sequence }
func (b *base) CreatedAt() time.Time { return b.createdAt }
func (b *base) UpdatedAt() time.Time { return b.updatedAt }
func (b *base) DeletedAt() *time.Time { return b.deletedAt }
func (b *base) IsDeleted() bool { return b.deletedAt != nil }
func (b *base) SetID(id string) { b.id = id }
func (b *base) SetSequence(seq int) { b.sequence = seq }
func (b *base) SetCreatedAt(t time.Time) { b.createdAt = t }
func (b *base) SetUpdatedAt(t time.Time) { b.updatedAt = t }
func (b *base) SetDeletedAt(t *time.Time) { b.deletedAt = t }

// User is the identity known to the client after login or reissue.
//
// The login endpoint returns no profile, so RealName is only populated when
// it can be read from token claims.
type User struct {
	Username string `json:"username"`
	RealName string `json:"realName,omitempty"`
}

// DisplayName prefers the real name when known.
func (u User) DisplayName() string {
	if u.RealName != "" {
		return u.RealName
	}
	return u.Username
}

// Credentials is the body of POST /login.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /join.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=4"`
	RealName string `json:"realName" validate:"required"`
}

// AnalysisResult is the body returned by POST /upload.
type AnalysisResult struct {
	Score    float64 `json:"score"`
	FeedBack string  `json:"feedBack"`
}

// HasFeedback reports whether the server returned any feedback text.
func (r AnalysisResult) HasFeedback() bool {
	return r.FeedBack != ""
}

// UploadStatus tracks an uploaded video through analysis.
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadCompleted UploadStatus = "completed"
	UploadFailed    UploadStatus = "failed"
)

// Valid reports whether s is a known status.
func (s UploadStatus) Valid() bool {
	switch s {
	case UploadPending, UploadCompleted, UploadFailed:
		return true
	}
	return false
}

// Upload is a persisted history entry for one analyzed video.
type Upload struct {
	base
	username string
	fileName string
	fileSize int64
	mimeType string
	status   UploadStatus
	score    *float64
	feedback string
	errMsg   string
}

// NewUpload creates a pending [Upload] for the given file.
func NewUpload(sequence int, username, fileName string, fileSize int64, mimeType string) *Upload {
	return &Upload{
		base:     newBase(sequence),
		username: username,
		fileName: fileName,
		fileSize: fileSize,
		mimeType: mimeType,
		status:   UploadPending,
	}
}

func (u *Upload) Username() string { return u.username }
func (u *Upload) FileName() string { return u.fileName }
func (u *Upload) FileSize() int64 { return u.fileSize }
func (u *Upload) MimeType() string { return u.mimeType }
func (u *Upload) Status() UploadStatus { return u.status }
func (u *Upload) Score() *float64 { return u.score }
func (u *Upload) Feedback() string { return u.feedback }
func (u *Upload) ErrorMessage() string { return u.errMsg }
func (u *Upload) SetStatus(s UploadStatus) { u.status = s }

// Complete records a successful analysis.
func (u *Upload) Complete(result AnalysisResult) {
	score := result.Score
	u.score = &score
	u.feedback = result.FeedBack
	u.errMsg = ""
	u.status = UploadCompleted
}

// Fail records a failed upload with the user-facing message.
func (u *Upload) Fail(message string) {
	u.score = nil
	u.errMsg = message
	u.status = UploadFailed
}

// Restore sets the analysis outcome fields when loading from storage.
func (u *Upload) Restore(status UploadStatus, score *float64, feedback, errMsg string) {
	u.status = status
	u.score = score
	u.feedback = feedback
	u.errMsg = errMsg
}

// Result returns the analysis result when the upload completed.
func (u *Upload) Result() (AnalysisResult, bool) {
	if u.status != UploadCompleted || u.score == nil {
		return AnalysisResult{}, false
	}
	return AnalysisResult{Score: *u.score, FeedBack: u.feedback}, true
}

// Validate checks that the upload has a file name and a known status.
func (u *Upload) Validate() error {
	if u.fileName == "" {
		return fmt.Errorf("%w: file name is required", ErrValidation)
	}
	if u.fileSize < 0 {
		return fmt.Errorf("%w: file size cannot be negative", ErrValidation)
	}
	if !u.status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, u.status)
	}
	if u.status == UploadCompleted && u.score == nil {
		return fmt.Errorf("%w: completed upload requires a score", ErrValidation)
	}
	return nil
}
