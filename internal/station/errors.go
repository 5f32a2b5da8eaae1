package station

import (
	"errors"
	"fmt"
)

// Phase names the part of an iteration that failed.
type Phase string

const (
	PhaseButtons Phase = "buttons"
	PhaseFetch   Phase = "fetch"
	PhaseDecode  Phase = "decode"
	PhaseFormat  Phase = "format"
	PhaseSensor  Phase = "sensor"
	PhaseRefresh Phase = "refresh"
)

// PhaseError tags an iteration failure with its phase.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

func phaseErr(p Phase, err error) error {
	if err == nil {
		return nil
	}
	return &PhaseError{Phase: p, Err: err}
}

// PhaseOf returns the phase recorded in err, or "" if err carries none.
func PhaseOf(err error) Phase {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe.Phase
	}
	return ""
}
