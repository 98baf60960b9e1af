package artifact

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTreeMap/MagicText/internal/models"
)

func TestFileName(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 2, 0, time.UTC)
	assert.Equal(t, "magic_text_20240309_070502.txt", FileName(DefaultPrefix, ts))
	assert.Equal(t, "magic_text_20240309_070502.txt", FileName("", ts))
	assert.Equal(t, "story_20240309_070502.txt", FileName("story", ts))

	pattern := regexp.MustCompile(`^magic_text_\d{8}_\d{6}\.txt$`)
	assert.Regexp(t, pattern, FileName(DefaultPrefix, time.Now()))
}

func TestFromResult(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	res := &models.GenerationResult{ID: "abc", NormalizedText: "Done.", CreatedAt: created}

	a, ok := FromResult(res, "")
	require.True(t, ok)
	assert.Equal(t, "magic_text_20240102_030405.txt", a.Name)
	assert.Equal(t, "Done.", a.Content)
	assert.Equal(t, "abc", a.ResultID)
	assert.Equal(t, created, a.CreatedAt)

	_, ok = FromResult(&models.GenerationResult{ID: "empty"}, "")
	assert.False(t, ok)
	_, ok = FromResult(nil, "")
	assert.False(t, ok)
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := WriteFile(dir, models.Artifact{Name: "magic_text_20240102_030405.txt", Content: "Hello."})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Hello.", string(data))
}
