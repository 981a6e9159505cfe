// Package throttle provides a rate limited, non-blocking io.ReadSeeker.
package throttle

import (
	"context"
	"io"
	"sync"

	rl "golang.org/x/time/rate"

	xio "github.com/akmistry/go-window/io"
)

// ReadSeeker limits the rate of Read and Seek calls on an underlying
// io.ReadSeeker. Instead of blocking when the limit is reached, operations
// return xio.ErrWouldBlock without touching the underlying stream. Wait can be
// used to block until operations will be allowed, which makes ReadSeeker an
// xio.Waiter for use with xio.Driver.
//
// Wait obtains a full burst of tokens at once. Callers that retry composite
// operations from scratch, such as window.Reader, need the burst to be at
// least the number of underlying operations in one attempt, or they will
// never complete.
type ReadSeeker struct {
	rs      io.ReadSeeker
	limiter *rl.Limiter

	// Tokens obtained by Wait, and not yet used by an operation.
	reserved int
	lock     sync.Mutex
}

var _ = (xio.Waiter)((*ReadSeeker)(nil))

func NewReadSeeker(rs io.ReadSeeker, rate float64, burst int) *ReadSeeker {
	if burst < 1 {
		panic("burst must be at least 1")
	}
	return &ReadSeeker{
		rs:      rs,
		limiter: rl.NewLimiter(rl.Limit(rate), burst),
	}
}

func (t *ReadSeeker) take() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.reserved > 0 {
		t.reserved--
		return true
	}
	return t.limiter.Allow()
}

func (t *ReadSeeker) Read(p []byte) (int, error) {
	if !t.take() {
		return 0, xio.ErrWouldBlock
	}
	return t.rs.Read(p)
}

func (t *ReadSeeker) Seek(offset int64, whence int) (int64, error) {
	if !t.take() {
		return 0, xio.ErrWouldBlock
	}
	return t.rs.Seek(offset, whence)
}

// Wait blocks until the next burst of operations is allowed, or ctx is done.
func (t *ReadSeeker) Wait(ctx context.Context) error {
	t.lock.Lock()
	if t.reserved > 0 {
		t.lock.Unlock()
		return nil
	}
	t.lock.Unlock()

	burst := t.limiter.Burst()
	err := t.limiter.WaitN(ctx, burst)
	if err != nil {
		return err
	}
	t.lock.Lock()
	t.reserved += burst
	t.lock.Unlock()
	return nil
}

func (t *ReadSeeker) Close() error {
	if c, ok := t.rs.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
