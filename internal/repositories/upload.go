package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/formcheck/internal/models"
	"github.com/desertthunder/formcheck/internal/shared"
)

// UploadRepository implements models.Repository[*models.Upload] for upload history.
//
// Handles upload CRUD operations with soft delete support and status-based queries.
type UploadRepository struct {
	db *sql.DB
}

// NewUploadRepository creates a new UploadRepository with the given database connection
func NewUploadRepository(db *sql.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

const uploadColumns = `
	id, sequence, username, file_name, file_size, mime_type, status,
	score, feedback, error, created_at, updated_at, deleted_at
`

// Create inserts a new upload into the database with generated ID and sequence
func (r *UploadRepository) Create(upload *models.Upload) error {
	if err := upload.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "uploads")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	upload.SetID(id)
	upload.SetSequence(sequence)

	query := `
		INSERT INTO uploads (
			id, sequence, username, file_name, file_size, mime_type, status,
			score, feedback, error, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		upload.Username(),
		upload.FileName(),
		upload.FileSize(),
		upload.MimeType(),
		string(upload.Status()),
		nullableScore(upload.Score()),
		upload.Feedback(),
		upload.ErrorMessage(),
		upload.CreatedAt(),
		upload.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}

	return nil
}

// Get retrieves an upload by ID, excluding soft-deleted uploads
func (r *UploadRepository) Get(id string) (*models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE id = ? AND deleted_at IS NULL`

	upload, err := scanUpload(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: upload %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query upload: %w", err)
	}

	return upload, nil
}

// Update persists the status and analysis outcome of an existing upload
func (r *UploadRepository) Update(upload *models.Upload) error {
	if err := upload.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	upload.SetUpdatedAt(now)

	query := `
		UPDATE uploads
		SET status = ?, score = ?, feedback = ?, error = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(upload.Status()),
		nullableScore(upload.Score()),
		upload.Feedback(),
		upload.ErrorMessage(),
		now,
		upload.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update upload: %w", err)
	}

	return requireAffected(result, "upload", upload.ID())
}

// Delete soft-deletes an upload by ID
func (r *UploadRepository) Delete(id string) error {
	query := `
		UPDATE uploads
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}

	return requireAffected(result, "upload", id)
}

// List retrieves uploads matching the given criteria, newest first, excluding soft-deleted uploads
// unless "include_deleted" is set.
//
// Supported criteria: "username" (string), "status" (string), "limit" (int), "include_deleted" (bool).
func (r *UploadRepository) List(criteria map[string]any) ([]*models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE 1 = 1`
	if all, _ := criteria["include_deleted"].(bool); !all {
		query += " AND deleted_at IS NULL"
	}

	args := []any{}

	if username, ok := criteria["username"].(string); ok && username != "" {
		query += " AND username = ?"
		args = append(args, username)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	var uploads []*models.Upload
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, upload)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return uploads, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (*models.Upload, error) {
	var (
		id        string
		sequence  int
		username  string
		fileName  string
		fileSize  int64
		mimeType  string
		status    string
		score     sql.NullFloat64
		feedback  string
		errMsg    string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &username, &fileName, &fileSize, &mimeType, &status,
		&score, &feedback, &errMsg, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	upload := models.NewUpload(sequence, username, fileName, fileSize, mimeType)
	upload.SetID(id)
	upload.SetCreatedAt(createdAt)
	upload.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		upload.SetDeletedAt(&deletedAt.Time)
	}

	var scorePtr *float64
	if score.Valid {
		scorePtr = &score.Float64
	}
	upload.Restore(models.UploadStatus(status), scorePtr, feedback, errMsg)

	return upload, nil
}

func nullableScore(score *float64) any {
	if score == nil {
		return nil
	}
	return *score
}

func requireAffected(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s not found or already deleted", shared.ErrNotFound, entity, id)
	}
	return nil
}
