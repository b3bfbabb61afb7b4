package predict

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Match them with errors.Is.
var (
	ErrLoad      = errors.New("load error")
	ErrConfig    = errors.New("config error")
	ErrInput     = errors.New("input error")
	ErrInference = errors.New("inference error")
)

// Error carries one of the kinds above plus an optional cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

func newError(kind, cause error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func LoadError(cause error, format string, args ...interface{}) error {
	return newError(ErrLoad, cause, format, args...)
}

func ConfigError(cause error, format string, args ...interface{}) error {
	return newError(ErrConfig, cause, format, args...)
}

func InputError(cause error, format string, args ...interface{}) error {
	return newError(ErrInput, cause, format, args...)
}

func InferenceError(cause error, format string, args ...interface{}) error {
	return newError(ErrInference, cause, format, args...)
}
