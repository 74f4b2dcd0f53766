package cloud

import (
	"errors"
	"fmt"

	"github.com/stackrig-io/stackrig/internal/resource"
)

// Error is a control-plane failure classified into the reconciler's
// vocabulary. Code and Message preserve the provider's own diagnostic so
// the single-line error a user sees still names the raw cause.
type Error struct {
	Kind    resource.ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified error carrying the provider's code and
// message.
func NewError(kind resource.ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Errorf builds a classified error from a format string.
func Errorf(kind resource.ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the classification from err. Unclassified errors count
// as ProviderError; nil has no kind.
func KindOf(err error) resource.ErrorKind {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return resource.ProviderError
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind resource.ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
