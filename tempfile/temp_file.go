package tempfile

import (
	"os"
)

// MakeTempFile creates a file in dir (or os.TempDir() if empty) which has no
// name, and is deleted once closed.
func MakeTempFile(dir string) (File, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if f, err := openAnonymous(dir); err == nil {
		return f, nil
	}

	f, err := os.CreateTemp(dir, "window-*")
	if err != nil {
		return nil, err
	}
	// Unlink file so that its deleted as soon as its closed.
	os.Remove(f.Name())
	return f, nil
}
