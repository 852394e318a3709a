package deployhook

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// WriteMarker records version as the last deployed version in the marker file
// at path. The file is replaced atomically, so readers never see a partial
// write.
func WriteMarker(path, version string) error {
	dir := filepath.Dir(path)

	f, err := os.CreateTemp(dir, ".deployhook-marker-")
	if err != nil {
		return errors.Wrap(err, "creating marker")
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.WriteString(version + "\n"); err != nil {
		f.Close()
		return errors.Wrap(err, "writing marker")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrap(err, "syncing marker")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "closing marker")
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		return errors.Wrap(err, "chmod marker")
	}

	return errors.Wrap(os.Rename(tmp, path), "renaming marker")
}

// ReadMarker returns the version recorded in the marker file at path. A
// missing marker returns an empty version and no error.
func ReadMarker(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "reading marker")
	}
	return strings.TrimRight(string(raw), "\n"), nil
}
