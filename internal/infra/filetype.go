package infra

import (
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/eliteGoblin/openmime/internal/domain"
)

// FileTypeDetector derives a mime type from local file contents.
type FileTypeDetector struct{}

// NewFileTypeDetector creates a detector.
func NewFileTypeDetector() *FileTypeDetector {
	return &FileTypeDetector{}
}

// DetectFile sniffs the file's content type. Directories and empty
// files map to their inode pseudo-types, matching how xdg-mime reports
// them.
func (d *FileTypeDetector) DetectFile(path string) (domain.MimeType, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "inode/directory", nil
	}
	if info.Size() == 0 {
		return "inode/x-empty", nil
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detecting type of %s: %w", path, err)
	}
	mime := mtype.String()
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return domain.MimeType(mime), nil
}

var _ domain.MimeDetector = (*FileTypeDetector)(nil)
