package api

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid_request")
	// ErrNoData means the HDU was decoded without a payload.
	ErrNoData = errors.New("hdu has no decoded data")
	ErrNoHDU  = errors.New("hdu not found")
)

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}
