// package formatter provides functions to export upload history to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/formcheck/internal/models"
	"github.com/desertthunder/formcheck/internal/shared"
)

// Supported export formats.
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
	FormatJSON     = "json"
)

const timeLayout = "2006-01-02 15:04"

// ExportToCSV converts uploads to CSV format with columns: Seq, Date, File, Size, Type, Status, Score, Feedback, Error
func ExportToCSV(uploads []*models.Upload) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Seq", "Date", "File", "Size", "Type", "Status", "Score", "Feedback", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, u := range uploads {
		record := []string{
			strconv.Itoa(u.Sequence()),
			formatTime(u.CreatedAt()),
			u.FileName(),
			strconv.FormatInt(u.FileSize(), 10),
			u.MimeType(),
			string(u.Status()),
			FormatScore(u.Score()),
			u.Feedback(),
			u.ErrorMessage(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts uploads to a Markdown table followed by the feedback of each analyzed video
func ExportToMarkdown(uploads []*models.Upload, title string) ([]byte, error) {
	var buf bytes.Buffer

	if title == "" {
		title = "Upload history"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Uploads**: %d\n", len(uploads))
	if avg, n := AverageScore(uploads); n > 0 {
		fmt.Fprintf(&buf, "**Average score**: %.1f (%d analyzed)\n", avg, n)
	}
	buf.WriteString("\n")

	if len(uploads) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Date | File | Size | Status | Score |\n")
	buf.WriteString("|---|------|------|------|--------|-------|\n")
	for _, u := range uploads {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s | %s |\n",
			u.Sequence(), formatTime(u.CreatedAt()), escapeCell(u.FileName()),
			FormatSize(u.FileSize()), u.Status(), FormatScore(u.Score()))
	}

	wroteHeading := false
	for _, u := range uploads {
		text := u.Feedback()
		if u.Status() == models.UploadFailed {
			text = u.ErrorMessage()
		}
		if text == "" {
			continue
		}
		if !wroteHeading {
			buf.WriteString("\n## Feedback\n")
			wroteHeading = true
		}
		fmt.Fprintf(&buf, "\n### %d. %s\n\n%s\n", u.Sequence(), u.FileName(), text)
	}

	return buf.Bytes(), nil
}

// ExportToText converts uploads to plain text, one line per upload
func ExportToText(uploads []*models.Upload) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Uploads: %d\n\n", len(uploads))
	for _, u := range uploads {
		switch u.Status() {
		case models.UploadCompleted:
			fmt.Fprintf(&buf, "%d. %s  %s  score %s\n", u.Sequence(), formatTime(u.CreatedAt()), u.FileName(), FormatScore(u.Score()))
		case models.UploadFailed:
			fmt.Fprintf(&buf, "%d. %s  %s  failed: %s\n", u.Sequence(), formatTime(u.CreatedAt()), u.FileName(), u.ErrorMessage())
		default:
			fmt.Fprintf(&buf, "%d. %s  %s  %s\n", u.Sequence(), formatTime(u.CreatedAt()), u.FileName(), u.Status())
		}
	}

	return buf.Bytes(), nil
}

// historyEntry is the JSON shape of an upload.
type historyEntry struct {
	ID        string    `json:"id"`
	Sequence  int       `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
	FileName  string    `json:"file_name"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `json:"mime_type"`
	Status    string    `json:"status"`
	Score     *float64  `json:"score,omitempty"`
	Feedback  string    `json:"feedback,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// ExportToJSON converts uploads to an indented JSON array
func ExportToJSON(uploads []*models.Upload) ([]byte, error) {
	entries := make([]historyEntry, 0, len(uploads))
	for _, u := range uploads {
		entries = append(entries, historyEntry{
			ID:        u.ID(),
			Sequence:  u.Sequence(),
			CreatedAt: u.CreatedAt(),
			FileName:  u.FileName(),
			FileSize:  u.FileSize(),
			MimeType:  u.MimeType(),
			Status:    string(u.Status()),
			Score:     u.Score(),
			Feedback:  u.Feedback(),
			Error:     u.ErrorMessage(),
		})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// FormatHistory renders uploads in the named format.
func FormatHistory(uploads []*models.Upload, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return ExportToCSV(uploads)
	case FormatMarkdown, "md":
		return ExportToMarkdown(uploads, "")
	case FormatText, "text", "":
		return ExportToText(uploads)
	case FormatJSON:
		return ExportToJSON(uploads)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteHistory renders uploads in the named format and writes them to path, creating parent directories.
func WriteHistory(uploads []*models.Upload, format, path string) error {
	data, err := FormatHistory(uploads, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// FormatResult renders an analysis result for display.
func FormatResult(result models.AnalysisResult) string {
	feedback := result.FeedBack
	if !result.HasFeedback() {
		feedback = shared.MsgNoFeedback
	}
	return fmt.Sprintf("점수: %s\n피드백: %s", strconv.FormatFloat(result.Score, 'f', -1, 64), feedback)
}

// FormatScore renders a score, or "-" when there is none.
func FormatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return strconv.FormatFloat(*score, 'f', 1, 64)
}

// FormatSize renders a byte count with a binary unit.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// AverageScore returns the mean score of completed uploads and how many there were.
func AverageScore(uploads []*models.Upload) (float64, int) {
	var sum float64
	n := 0
	for _, u := range uploads {
		if result, ok := u.Result(); ok {
			sum += result.Score
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
