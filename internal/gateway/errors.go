package gateway

import (
	"errors"
	"fmt"

	"github.com/gridclash/arena/internal/world"
)

// Typed failures. Every rejected call returns exactly one of these, wrapped
// with context; errors.Is and KindOf classify them.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrOutOfRange           = errors.New("out of range")
	ErrNotReady             = errors.New("not ready")
	ErrIllegalTarget        = errors.New("illegal target")
	ErrInsufficientResource = world.ErrInsufficientResource
	ErrCannotSense          = errors.New("cannot sense")
	ErrTurnOver             = errors.New("turn is over")

	// ErrBudgetExceeded is returned by the call that overran the compute
	// budget. The gateway is closed afterwards.
	ErrBudgetExceeded = errors.New("compute budget exceeded")
)

// Kind names an error class for drivers that cross a language boundary.
type Kind string

const (
	KindNone                 Kind = ""
	KindInvalidRequest       Kind = "InvalidRequest"
	KindOutOfRange           Kind = "OutOfRange"
	KindNotReady             Kind = "NotReady"
	KindIllegalTarget        Kind = "IllegalTarget"
	KindInsufficientResource Kind = "InsufficientResource"
	KindCannotSense          Kind = "CannotSense"
	KindTurnOver             Kind = "TurnOver"
	KindUnknown              Kind = "Unknown"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidRequest, KindInvalidRequest},
	{ErrOutOfRange, KindOutOfRange},
	{ErrNotReady, KindNotReady},
	{ErrIllegalTarget, KindIllegalTarget},
	{ErrInsufficientResource, KindInsufficientResource},
	{ErrCannotSense, KindCannotSense},
	{ErrTurnOver, KindTurnOver},
	{ErrBudgetExceeded, KindTurnOver},
}

// KindOf classifies err. A nil error is KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

func fail(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
