// Package artifact turns generation results into downloadable text files.
package artifact

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BTreeMap/MagicText/internal/models"
)

// DefaultPrefix is the file name prefix used for downloads.
const DefaultPrefix = "magic_text"

const timestampLayout = "20060102_150405"

// FileName returns "<prefix>_YYYYMMDD_HHMMSS.txt" for t.
func FileName(prefix string, t time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s_%s.txt", prefix, t.Format(timestampLayout))
}

// FromResult builds the artifact for res. It returns false for nil or empty
// results, which never produce an artifact.
func FromResult(res *models.GenerationResult, prefix string) (models.Artifact, bool) {
	if res.IsEmpty() {
		return models.Artifact{}, false
	}
	return models.Artifact{
		Name:      FileName(prefix, res.CreatedAt),
		Content:   res.NormalizedText,
		ResultID:  res.ID,
		CreatedAt: res.CreatedAt,
	}, true
}

// WriteFile writes a into dir and returns the full path.
func WriteFile(dir string, a models.Artifact) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, a.Name)
	if err := os.WriteFile(path, []byte(a.Content), 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", a.Name, err)
	}
	slog.Debug("artifact.WriteFile: written", "path", path, "bytes", len(a.Content))
	return path, nil
}
