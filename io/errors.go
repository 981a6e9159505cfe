package io

import "errors"

var (
	// ErrWouldBlock is returned by a non-blocking stream when an operation
	// cannot make progress until the underlying resource is ready. Nothing is
	// read or repositioned when it is returned, and the operation should be
	// retried from scratch later.
	ErrWouldBlock = errors.New("io: operation would block")
)

func IsWouldBlock(err error) bool {
	return errors.Is(err, ErrWouldBlock)
}
