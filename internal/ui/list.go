package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/formcheck/internal/formatter"
	"github.com/desertthunder/formcheck/internal/models"
)

var _ list.Item = uploadItem{}

// uploadItem wraps [models.Upload] to implement [list.Item].
type uploadItem struct {
	upload *models.Upload
}

func (i uploadItem) FilterValue() string { return i.upload.FileName() }

func (i uploadItem) Title() string {
	return fmt.Sprintf("#%d %s", i.upload.Sequence(), i.upload.FileName())
}

func (i uploadItem) Description() string {
	date := i.upload.CreatedAt().Local().Format("2006-01-02 15:04")
	switch i.upload.Status() {
	case models.UploadCompleted:
		desc := fmt.Sprintf("%s • 점수 %s", date, formatter.FormatScore(i.upload.Score()))
		if fb := i.upload.Feedback(); fb != "" {
			desc = fmt.Sprintf("%s • %s", desc, fb)
		}
		return desc
	case models.UploadFailed:
		return fmt.Sprintf("%s • 실패: %s", date, i.upload.ErrorMessage())
	default:
		return fmt.Sprintf("%s • %s", date, i.upload.Status())
	}
}

func uploadItems(uploads []*models.Upload) []list.Item {
	items := make([]list.Item, len(uploads))
	for i, u := range uploads {
		items[i] = uploadItem{upload: u}
	}
	return items
}
