package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// ProgressFunc receives the number of file bytes written so far and the file size.
type ProgressFunc func(sent, total int64)

// FileBody streams a single file as multipart/form-data.
//
// Each call of [FileBody.Body] reopens the file, so the body can be replayed.
type FileBody struct {
	Field    string
	Path     string
	MimeType string
	Progress ProgressFunc
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Body returns the replayable [Body] for the file.
func (f FileBody) Body() Body {
	return func() (io.Reader, string, error) {
		file, err := os.Open(f.Path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open %s: %w", f.Path, err)
		}

		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, "", fmt.Errorf("failed to stat %s: %w", f.Path, err)
		}

		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)

		go func() {
			defer file.Close()

			header := make(textproto.MIMEHeader)
			header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
				quoteEscaper.Replace(f.Field), quoteEscaper.Replace(filepath.Base(f.Path))))
			contentType := f.MimeType
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			header.Set("Content-Type", contentType)

			part, err := mw.CreatePart(header)
			if err == nil {
				var src io.Reader = file
				if f.Progress != nil {
					src = &progressReader{r: file, total: info.Size(), fn: f.Progress}
				}
				_, err = io.Copy(part, src)
			}
			if err == nil {
				err = mw.Close()
			}
			pw.CloseWithError(err)
		}()

		return pr, mw.FormDataContentType(), nil
	}
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}
