package io

import (
	"context"
	"io"
	"time"
)

const (
	DefaultRetryInterval = time.Millisecond

	copyBufferSize = 32 * 1024
)

// Waiter is implemented by non-blocking streams that can signal when an
// operation which returned ErrWouldBlock is worth retrying.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Driver resumes non-blocking stream operations. Each operation is re-issued
// until it returns something other than ErrWouldBlock, or the context is
// done. A nil *Driver is valid and polls every DefaultRetryInterval.
//
// Only one operation may be outstanding on a stream at a time, so a Driver
// must not be used to run concurrent operations on the same stream.
type Driver struct {
	// Waited on between attempts. If nil, the driver sleeps for RetryInterval
	// instead.
	Waiter Waiter

	// Time between attempts when there is no Waiter. If zero,
	// DefaultRetryInterval is used.
	RetryInterval time.Duration
}

func (d *Driver) wait(ctx context.Context) error {
	if d != nil && d.Waiter != nil {
		return d.Waiter.Wait(ctx)
	}

	interval := DefaultRetryInterval
	if d != nil && d.RetryInterval > 0 {
		interval = d.RetryInterval
	}
	t := time.NewTimer(interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (d *Driver) Read(ctx context.Context, r io.Reader, p []byte) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := r.Read(p)
		if !IsWouldBlock(err) {
			return n, err
		}
		if err := d.wait(ctx); err != nil {
			return 0, err
		}
	}
}

func (d *Driver) Seek(ctx context.Context, s io.Seeker, offset int64, whence int) (int64, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		pos, err := s.Seek(offset, whence)
		if !IsWouldBlock(err) {
			return pos, err
		}
		if err := d.wait(ctx); err != nil {
			return 0, err
		}
	}
}

// ReadAll reads from r until io.EOF, resuming reads that would block. Like
// io.ReadAll, a successful call returns a nil error.
func (d *Driver) ReadAll(ctx context.Context, r io.Reader) ([]byte, error) {
	b := make([]byte, 0, 512)
	for {
		if len(b) == cap(b) {
			b = append(b, 0)[:len(b)]
		}
		n, err := d.Read(ctx, r, b[len(b):cap(b)])
		b = b[:len(b)+n]
		if err == io.EOF {
			return b, nil
		} else if err != nil {
			return b, err
		}
	}
}

// Copy copies from src to dst until io.EOF, resuming reads that would block.
// dst is assumed to be blocking.
func (d *Driver) Copy(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var written int64
	for {
		n, err := d.Read(ctx, src, buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, werr
			} else if wn != n {
				return written, io.ErrShortWrite
			}
		}
		if err == io.EOF {
			return written, nil
		} else if err != nil {
			return written, err
		}
	}
}
