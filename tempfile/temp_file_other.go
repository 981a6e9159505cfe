//go:build !linux
// +build !linux

package tempfile

import (
	"errors"
	"os"
)

func openAnonymous(dir string) (*os.File, error) {
	return nil, errors.New("tempfile: anonymous files not supported")
}
