package lwt

import "fmt"

// ConditionalUpdate asks the store to set the email of Key to NewEmail
// provided the current email is still ExpectedEmail.
type ConditionalUpdate struct {
	Key           string
	NewEmail      string
	ExpectedEmail string
}

// Result is the outcome of a ConditionalUpdate: either applied, or rejected
// together with the value the store actually holds.
type Result struct {
	applied bool
	actual  string
}

// Applied returns the result of an update that took effect.
func Applied() Result {
	return Result{applied: true}
}

// Rejected returns the result of an update whose guard failed.
func Rejected(actual string) Result {
	return Result{actual: actual}
}

// Applied reports whether the update took effect.
func (r Result) Applied() bool {
	return r.applied
}

// Actual returns the current guarded value reported on rejection.
// The second return value is false for applied results.
func (r Result) Actual() (string, bool) {
	if r.applied {
		return "", false
	}
	return r.actual, true
}

func (r Result) String() string {
	if r.applied {
		return "applied"
	}
	return fmt.Sprintf("rejected(%s)", r.actual)
}
