// Package window presents a bounded sub-range of a seekable stream as a
// standalone stream, without copying data.
package window

import (
	"context"
	"errors"
	"io"
	"math"

	xio "github.com/akmistry/go-window/io"
)

var (
	ErrInvalidWindow   = errors.New("window: invalid window bounds")
	ErrSeekBeforeStart = errors.New("window: seek before start of window")
	ErrInvalidWhence   = errors.New("window: invalid whence")
	ErrOffsetOverflow  = errors.New("window: offset overflow")
)

type Options struct {
	// If non-nil, called with the result of every read of the underlying
	// stream, including reads that would block.
	Trace func(n int, err error)

	// Used by Open to resume the initial seek. If nil, a polling Driver is
	// used.
	Driver *xio.Driver
}

// Reader is an io.ReadSeeker over the range [start, start+size) of an
// underlying io.ReadSeeker, with position 0 of the Reader corresponding to
// start in the underlying stream.
//
// Reader keeps no position of its own. Every operation re-derives its state
// from the underlying stream's position, so the underlying stream may be
// non-blocking: if any underlying operation returns xio.ErrWouldBlock, the
// Reader operation returns it and can be retried from scratch.
//
// Reader takes exclusive ownership of the underlying stream and is not safe
// for concurrent use.
type Reader struct {
	r           io.ReadSeeker
	start, size int64
	trace       func(int, error)
}

// Ensure Reader can be used wherever its underlying stream can.
var _ = (io.ReadSeeker)((*Reader)(nil))

// CheckBounds reports whether [start, start+size) is a valid window.
func CheckBounds(start, size int64) error {
	if start < 0 || size < 0 || start > math.MaxInt64-size {
		return ErrInvalidWindow
	}
	return nil
}

func newReader(r io.ReadSeeker, start, size int64, opts *Options) *Reader {
	w := &Reader{r: r, start: start, size: size}
	if opts != nil {
		w.trace = opts.Trace
	}
	return w
}

// New returns a Reader over [start, start+size) of r, positioned at the
// start of the window. The initial seek is attempted once, and any error,
// including xio.ErrWouldBlock, is returned as is.
func New(r io.ReadSeeker, start, size int64, opts *Options) (*Reader, error) {
	if err := CheckBounds(start, size); err != nil {
		return nil, err
	}
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}
	return newReader(r, start, size, opts), nil
}

// Open is like New, but resumes the initial seek until it completes or ctx
// is done.
func Open(ctx context.Context, r io.ReadSeeker, start, size int64, opts *Options) (*Reader, error) {
	if err := CheckBounds(start, size); err != nil {
		return nil, err
	}
	var d *xio.Driver
	if opts != nil {
		d = opts.Driver
	}
	if _, err := d.Seek(ctx, r, start, io.SeekStart); err != nil {
		return nil, err
	}
	return newReader(r, start, size, opts), nil
}

func (w *Reader) Start() int64 {
	return w.start
}

func (w *Reader) Size() int64 {
	return w.size
}

func (w *Reader) Read(p []byte) (int, error) {
	pos, err := w.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	if pos < w.start {
		pos, err = w.r.Seek(w.start, io.SeekStart)
		if err != nil {
			return 0, err
		}
	}
	if pos-w.start > w.size {
		// Seeked past the end of the window. Clamp back to the end.
		pos, err = w.r.Seek(w.start+w.size, io.SeekStart)
		if err != nil {
			return 0, err
		}
	}

	rem := w.size - (pos - w.start)
	if len(p) == 0 {
		return 0, nil
	} else if rem <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > rem {
		p = p[:rem]
	}
	n, err := w.r.Read(p)
	if w.trace != nil {
		w.trace(n, err)
	}
	return n, err
}

// Seek sets the position for the next Read, relative to the window. The
// returned position is always relative to the start of the window. Seeking
// before the start of the window fails with ErrSeekBeforeStart and leaves the
// underlying stream untouched. Seeking past the end is permitted, and the
// next Read returns io.EOF.
func (w *Reader) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	var err error
	switch whence {
	case io.SeekStart:
		if offset < 0 {
			return 0, ErrSeekBeforeStart
		} else if offset > math.MaxInt64-w.start {
			return 0, ErrOffsetOverflow
		}
		pos, err = w.r.Seek(w.start+offset, io.SeekStart)
	case io.SeekEnd:
		if offset < -w.size {
			return 0, ErrSeekBeforeStart
		} else if offset > math.MaxInt64-(w.start+w.size) {
			return 0, ErrOffsetOverflow
		}
		pos, err = w.r.Seek(w.start+w.size+offset, io.SeekStart)
	case io.SeekCurrent:
		var cur int64
		cur, err = w.r.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
		if offset > 0 && cur > math.MaxInt64-offset {
			return 0, ErrOffsetOverflow
		} else if cur+offset < w.start {
			return 0, ErrSeekBeforeStart
		}
		if offset == 0 {
			pos = cur
		} else {
			pos, err = w.r.Seek(offset, io.SeekCurrent)
		}
	default:
		return 0, ErrInvalidWhence
	}
	if err != nil {
		return 0, err
	}
	return pos - w.start, nil
}

// Close releases the underlying stream, closing it if it is an io.Closer.
func (w *Reader) Close() error {
	if c, ok := w.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
