package deployhook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "release.version")

	version, err := ReadMarker(path)
	assert.NoError(t, err)
	assert.Equal(t, "", version)

	assert.NoError(t, WriteMarker(path, "v1"))
	assert.NoError(t, WriteMarker(path, "v2"))

	version, err = ReadMarker(path)
	assert.NoError(t, err)
	assert.Equal(t, "v2", version)

	raw, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "v2\n", string(raw))

	// No temporary files are left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteMarker_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "release.version")
	assert.Error(t, WriteMarker(path, "v1"))
}
