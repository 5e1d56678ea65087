package fileInfo

import (
	"errors"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var ErrIsDir = errors.New("attachment is a directory")

// Attachment is a file sent alongside the records, keyed by the id of the
// message it belongs to.
type Attachment struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	MimeType string    `json:"mime_type,omitempty"`
	Path     string    `json:"-"`
}

func NewAttachment(id uuid.UUID, path string) (Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Attachment{}, err
	}
	if info.IsDir() {
		return Attachment{}, ErrIsDir
	}
	return Attachment{
		ID:       id,
		Name:     info.Name(),
		Size:     info.Size(),
		MimeType: DetectMimeType(path),
		Path:     path,
	}, nil
}

// DetectMimeType sniffs the content type of the file at path.
func DetectMimeType(path string) string {
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return mime.String()
}
