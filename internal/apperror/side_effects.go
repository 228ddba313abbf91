package apperror

import (
	"errors"
	"fmt"
)

// SideEffectFailure is a best-effort step that failed after, or alongside, a
// primary write that still succeeded.
type SideEffectFailure struct {
	Effect string `json:"effect"`
	Target string `json:"target,omitempty"`
	Err    error  `json:"-"`
}

// Error implements error.
func (f SideEffectFailure) Error() string {
	if f.Target != "" {
		return fmt.Sprintf("%s (%s): %v", f.Effect, f.Target, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Effect, f.Err)
}

// Unwrap exposes the underlying failure.
func (f SideEffectFailure) Unwrap() error {
	return f.Err
}

// SideEffects collects best-effort failures for one operation. The zero value is
// ready to use.
type SideEffects struct {
	Failures []SideEffectFailure `json:"failures,omitempty"`
}

// Record adds a failure. Nil errors are ignored.
func (s *SideEffects) Record(effect, target string, err error) {
	if err == nil {
		return
	}
	s.Failures = append(s.Failures, SideEffectFailure{Effect: effect, Target: target, Err: err})
}

// Merge appends another collection's failures.
func (s *SideEffects) Merge(other SideEffects) {
	s.Failures = append(s.Failures, other.Failures...)
}

// OK reports whether every side effect succeeded.
func (s SideEffects) OK() bool {
	return len(s.Failures) == 0
}

// Failed reports whether any failure was recorded for effect.
func (s SideEffects) Failed(effect string) bool {
	for _, f := range s.Failures {
		if f.Effect == effect {
			return true
		}
	}
	return false
}

// Err joins every failure into one error, or nil.
func (s SideEffects) Err() error {
	if len(s.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(s.Failures))
	for _, f := range s.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}
