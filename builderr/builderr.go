// Package builderr holds the errors reported while assembling a scene, camera
// or render configuration.  Failures at render time are not reported through
// this package; a ray that hits nothing is not an error.
package builderr

import (
	"fmt"

	"golang.org/x/xerrors"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindBadRadius
	KindBadMaterial
	KindBadCamera
	KindBadConfig
)

func (k Kind) String() string {
	switch k {
	case KindBadRadius:
		return "bad radius"
	case KindBadMaterial:
		return "bad material"
	case KindBadCamera:
		return "bad camera"
	case KindBadConfig:
		return "bad config"
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Message string

	inner error
	frame xerrors.Frame
}

func New(kind Kind, message string, inner error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		inner:   inner,
		frame:   xerrors.Caller(1),
	}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		frame:   xerrors.Caller(1),
	}
}

func (e *Error) Error() string {
	if e.inner == nil {
		return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
	}
	return fmt.Sprintf("%s (%s): %v", e.Message, e.Kind, e.inner)
}

func (e *Error) Format(f fmt.State, c rune) { // implements fmt.Formatter
	xerrors.FormatError(e, f, c)
}

func (e *Error) FormatError(p xerrors.Printer) error { // implements xerrors.Formatter
	p.Print(fmt.Sprintf("%s (%s)", e.Message, e.Kind))
	if p.Detail() {
		e.frame.Format(p)
	}
	return e.inner
}

func (e *Error) Unwrap() error {
	return e.inner
}

// IsKind reports whether any error in err's chain is an *Error of the given
// kind.
func IsKind(err error, kind Kind) bool {
	var be *Error
	for err != nil {
		if !xerrors.As(err, &be) {
			return false
		}
		if be.Kind == kind {
			return true
		}
		err = be.inner
	}
	return false
}
