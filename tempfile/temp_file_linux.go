//go:build linux
// +build linux

package tempfile

import (
	"os"

	"golang.org/x/sys/unix"
)

func openAnonymous(dir string) (*os.File, error) {
	fd, err := unix.Open(dir, unix.O_RDWR|unix.O_CLOEXEC|unix.O_TMPFILE|unix.O_EXCL, 0600)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), "<temp file>"), nil
}
