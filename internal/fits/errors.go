package fits

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat marks an unrecoverable structural problem with the primary HDU.
	ErrFormat = errors.New("fits: invalid format")
	// ErrExtensionDecode marks a failed extension HDU; earlier HDUs stay valid.
	ErrExtensionDecode = errors.New("fits: extension decode failed")
	// ErrOutOfBounds is returned by the cursor when a read runs past the buffer.
	ErrOutOfBounds = errors.New("fits: read out of bounds")
	// ErrNoEndCard means the buffer ended before an END card was seen.
	ErrNoEndCard = errors.New("fits: missing END card")
	// ErrCardLimit means a header exceeded the configured card cap.
	ErrCardLimit = errors.New("fits: header card limit exceeded")
)

// FormatError describes why the primary HDU was rejected.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fits: %s: %v", e.Reason, e.Err)
	}
	return "fits: " + e.Reason
}

func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFormat, e.Err}
	}
	return []error{ErrFormat}
}

func formatErrorf(format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// ExtensionError reports the extension that stopped the HDU loop.
type ExtensionError struct {
	Index  int
	Offset int
	Err    error
}

func (e *ExtensionError) Error() string {
	return fmt.Sprintf("fits: extension %d at offset %d: %v", e.Index, e.Offset, e.Err)
}

func (e *ExtensionError) Unwrap() []error {
	return []error{ErrExtensionDecode, e.Err}
}
