package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"

	"github.com/desertthunder/formcheck/internal/models"
	"github.com/desertthunder/formcheck/internal/shared"
)

const (
	pathUpload = "/upload"

	// UploadField is the multipart field the server reads the video from.
	UploadField = "upload"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".m4v": true, ".mov": true, ".webm": true, ".mkv": true,
	".avi": true, ".mpeg": true, ".mpg": true, ".3gp": true, ".ogv": true, ".flv": true,
}

// VideoFile is a local file that passed client-side checks.
type VideoFile struct {
	Path     string
	Name     string
	Size     int64
	MimeType string
}

// UploadService sends videos for analysis.
type UploadService struct {
	clients *Clients
	maxSize int64
	logger  *log.Logger
}

// NewUploadService creates an UploadService. maxSize is in bytes; zero disables the limit.
func NewUploadService(clients *Clients, maxSize int64, logger *log.Logger) *UploadService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &UploadService{clients: clients, maxSize: maxSize, logger: logger}
}

// Inspect validates path without touching the network.
//
// Errors wrap [shared.ErrNoFile], [shared.ErrNotVideo] or [shared.ErrFileTooLarge].
func (s *UploadService) Inspect(path string) (*VideoFile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, shared.ErrNoFile
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNoFile, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", shared.ErrNoFile, path)
	}

	mimeType, ok := DetectVideo(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", shared.ErrNotVideo, filepath.Base(path), mimeType)
	}

	if s.maxSize > 0 && info.Size() > s.maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", shared.ErrFileTooLarge, info.Size(), s.maxSize)
	}

	return &VideoFile{Path: path, Name: filepath.Base(path), Size: info.Size(), MimeType: mimeType}, nil
}

// Upload validates path, then posts it as multipart field "upload" and decodes the analysis.
func (s *UploadService) Upload(ctx context.Context, path string, progress ProgressFunc) (*models.AnalysisResult, error) {
	file, err := s.Inspect(path)
	if err != nil {
		return nil, err
	}
	return s.UploadFile(ctx, file, progress)
}

// UploadFile posts an already inspected file.
func (s *UploadService) UploadFile(ctx context.Context, file *VideoFile, progress ProgressFunc) (*models.AnalysisResult, error) {
	body := FileBody{Field: UploadField, Path: file.Path, MimeType: file.MimeType, Progress: progress}

	s.logger.Info("uploading video", "file", file.Name, "size", file.Size, "mime", file.MimeType)

	resp, err := s.clients.Upload.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        pathUpload,
		Body:        body.Body(),
		Credentials: true,
	})
	if err != nil {
		s.logger.Warn("upload failed", "file", file.Name, "error", err)
		return nil, err
	}

	var result models.AnalysisResult
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadMessage maps an upload error to the message shown to the user.
func UploadMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, shared.ErrNoFile):
		return shared.MsgSelectFile
	case errors.Is(err, shared.ErrNotVideo):
		return shared.MsgVideoOnly
	case errors.Is(err, shared.ErrFileTooLarge):
		return shared.MsgFileTooBig
	case errors.Is(err, shared.ErrSessionExpired):
		return shared.MsgSessionExpired
	default:
		return UserMessage(err, shared.MsgUploadError)
	}
}

// DetectVideo sniffs the content type of path and reports whether it is a video.
//
// Only the detected type itself counts: AVIF, HEIC and M4A share the MP4 container and
// sniff as children of video/mp4, yet they are not videos. Content that cannot be
// identified falls back to the file extension.
func DetectVideo(path string) (string, bool) {
	mtype, err := mimetype.DetectFile(path)
	if err == nil && !mtype.Is("application/octet-stream") {
		return mtype.String(), strings.HasPrefix(mtype.String(), "video/")
	}

	ext := strings.ToLower(filepath.Ext(path))
	if videoExtensions[ext] {
		return extensionMimeType(ext), true
	}
	return "application/octet-stream", false
}

func extensionMimeType(ext string) string {
	switch ext {
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".avi":
		return "video/x-msvideo"
	case ".mpg":
		return "video/mpeg"
	case ".m4v":
		return "video/x-m4v"
	case ".ogv":
		return "video/ogg"
	case ".3gp":
		return "video/3gpp"
	case ".flv":
		return "video/x-flv"
	default:
		return "video/" + strings.TrimPrefix(ext, ".")
	}
}
