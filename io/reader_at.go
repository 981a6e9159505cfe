package io

import (
	"errors"
	"io"
)

var errNegativePosition = errors.New("io: negative position")

type readerAtAdapter struct {
	r    io.ReaderAt
	off  int64
	size int64
}

// NewReadSeeker returns an io.ReadSeeker over the first size bytes of r.
// Seeking past the end is permitted, and subsequent reads return io.EOF.
func NewReadSeeker(r io.ReaderAt, size int64) io.ReadSeeker {
	return &readerAtAdapter{r: r, size: size}
}

func (a *readerAtAdapter) Read(p []byte) (int, error) {
	if a.off >= a.size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	if rem := a.size - a.off; int64(len(p)) > rem {
		p = p[:rem]
	}
	n, err := a.r.ReadAt(p, a.off)
	a.off += int64(n)
	if err == io.EOF && n > 0 {
		// ReadAt may report EOF alongside the final bytes.
		err = nil
	}
	return n, err
}

func (a *readerAtAdapter) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = a.off + offset
	case io.SeekEnd:
		pos = a.size + offset
	default:
		return a.off, errors.New("io: invalid whence")
	}
	if pos < 0 {
		return a.off, errNegativePosition
	}
	a.off = pos
	return pos, nil
}
