package lwt

import (
	"errors"
	"fmt"
)

var (
	// ErrSetup is returned when the namespace or table cannot be provisioned.
	ErrSetup = errors.New("setup failure")

	// ErrNotFound is returned when a record is missing.
	ErrNotFound = errors.New("record not found")

	// ErrUnexpectedlyApplied means a conditional update guarded by a stale
	// value took effect.
	ErrUnexpectedlyApplied = errors.New("conditional update applied despite stale guard")

	// ErrUnexpectedlyRejected means a conditional update guarded by the
	// current value was rejected.
	ErrUnexpectedlyRejected = errors.New("conditional update rejected despite fresh guard")

	// ErrUnexpectedActual means the store reported a value other than the
	// one that was last written.
	ErrUnexpectedActual = errors.New("unexpected current value")

	// ErrDegenerateGuard means the value read before the interfering write
	// already equals the interfering value, so a rejection cannot be observed.
	ErrDegenerateGuard = errors.New("interfering value equals the read value")
)

// Path names which side of the exerciser produced a violation.
type Path string

const (
	PathStale Path = "stale"
	PathFresh Path = "fresh"
)

// Violation describes a broken CAS expectation for one key.
type Violation struct {
	Key      string `json:"key"`
	Path     Path   `json:"path"`
	Expected string `json:"expected"`
	Got      string `json:"got"`
	Err      error  `json:"-"`
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s path for key %s: %v: expected %s, got %s", v.Path, v.Key, v.Err, v.Expected, v.Got)
}

func (v *Violation) Unwrap() error {
	return v.Err
}

// Reason is the sentinel message, used when the violation is rendered.
func (v *Violation) Reason() string {
	if v.Err == nil {
		return ""
	}
	return v.Err.Error()
}
