package amortization

import (
	"errors"
	"fmt"
)

// Kind classifies why the engine could not produce a schedule.
type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindNonConvergent
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindNonConvergent:
		return "non-convergent"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Reasons reported with KindNonConvergent.
const (
	ReasonInsufficientPayment = "payment insufficient to cover interest"
	ReasonTermExceeded        = "exceeded maximum simulated term"
)

var (
	// ErrInvalidInput matches every KindInvalidInput EngineError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNonConvergent matches every KindNonConvergent EngineError.
	ErrNonConvergent = errors.New("non-convergent")
)

// EngineError is the value BuildSchedule returns instead of a schedule.
// Month is the simulated month the run stopped at, 0 for input errors.
type EngineError struct {
	Kind   Kind
	Reason string
	Month  int
}

func (e *EngineError) Error() string {
	if e.Month > 0 {
		return fmt.Sprintf("%s at month %d: %s", e.Kind, e.Month, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Is lets errors.Is match the ErrInvalidInput and ErrNonConvergent sentinels.
func (e *EngineError) Is(target error) bool {
	switch target {
	case ErrInvalidInput:
		return e.Kind == KindInvalidInput
	case ErrNonConvergent:
		return e.Kind == KindNonConvergent
	}
	return false
}

func invalidInput(format string, args ...any) *EngineError {
	return &EngineError{Kind: KindInvalidInput, Reason: fmt.Sprintf(format, args...)}
}

func nonConvergent(reason string, month int) *EngineError {
	return &EngineError{Kind: KindNonConvergent, Reason: reason, Month: month}
}
