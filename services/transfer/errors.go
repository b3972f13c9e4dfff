package transfer

import (
	"errors"
	"fmt"

	"turbotransfer/services/paths"
)

var (
	// ErrMissingSession is returned for a host upload without a live session.
	ErrMissingSession = paths.ErrMissingSession
	// ErrBlockedType is wrapped by BlockedTypeError.
	ErrBlockedType = errors.New("Transfer: file type blocked by safety filter")
	// ErrSizeMismatch is wrapped by SizeMismatchError.
	ErrSizeMismatch = errors.New("Transfer: file size mismatch")
	// ErrNotFound is returned when a named artifact resolves to nothing.
	ErrNotFound = errors.New("Transfer: file not found")
)

// BlockedTypeError names the extension rejected by the safety filter.
type BlockedTypeError struct {
	Ext string
}

func (e *BlockedTypeError) Error() string {
	return fmt.Sprintf("Transfer: extension %q is blocked by safety filter", e.Ext)
}

func (e *BlockedTypeError) Unwrap() error { return ErrBlockedType }

// SizeMismatchError reports a stream whose length differs from the declared size.
type SizeMismatchError struct {
	Declared int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("Transfer: file size mismatch: declared %d bytes, received %d", e.Declared, e.Actual)
}

func (e *SizeMismatchError) Unwrap() error { return ErrSizeMismatch }

// NotFoundError carries the name that could not be resolved.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Transfer: %q not found", e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
