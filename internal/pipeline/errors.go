package pipeline

import (
	"context"
	"errors"

	"github.com/mrsinham/randimage/internal/encode"
	"github.com/mrsinham/randimage/internal/pixel"
	"github.com/mrsinham/randimage/internal/random"
)

var (
	// ErrIO wraps failures of the destination: unwritable paths, full disks,
	// closed streams.
	ErrIO = errors.New("i/o error")
	// ErrUsage marks a request the caller can fix by changing arguments.
	ErrUsage = errors.New("invalid request")
)

// Kind is the class of a pipeline failure.
type Kind int

const (
	KindNone Kind = iota
	KindUsage
	KindIO
	KindCanceled
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUsage:
		return "usage"
	case KindIO:
		return "io"
	case KindCanceled:
		return "canceled"
	default:
		return "unexpected"
	}
}

// Classify maps an error returned by this module to its class. Unknown
// errors are unexpected.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, encode.ErrEncoding):
		return KindUnexpected
	case errors.Is(err, ErrUsage),
		errors.Is(err, random.ErrInvalidSeed),
		errors.Is(err, pixel.ErrInvalidDimensions),
		errors.Is(err, pixel.ErrDimensionOverflow),
		errors.Is(err, encode.ErrUnsupported):
		return KindUsage
	case errors.Is(err, ErrIO):
		return KindIO
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnexpected
	}
}

// Process exit codes.
const (
	ExitOK         = 0
	ExitIO         = 1
	ExitUsage      = 2
	ExitUnexpected = 3
	ExitCanceled   = 130
)

// ExitCode returns the process exit status for err.
func ExitCode(err error) int {
	switch Classify(err) {
	case KindNone:
		return ExitOK
	case KindUsage:
		return ExitUsage
	case KindIO:
		return ExitIO
	case KindCanceled:
		return ExitCanceled
	default:
		return ExitUnexpected
	}
}
