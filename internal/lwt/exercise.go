package lwt

import "context"

// Exercise is what happened to one key on one exerciser path.
type Exercise struct {
	Key  string
	Path Path
	// Read is the guarded value observed before any write.
	Read string
	// Interfered is the value written by the interfering writer; empty on
	// the fresh path.
	Interfered string
	// Evaluated is set once the store answered the conditional update;
	// Result is meaningless before that.
	Evaluated bool
	Result    Result
	// Violation is set when the outcome broke the CAS contract.
	Violation *Violation
}

// Exerciser drives conditional updates for single keys.
type Exerciser interface {
	// ExerciseStale reads key, overwrites its email out of band and then
	// issues a conditional update guarded by the value it read, which the
	// store must reject.
	ExerciseStale(ctx context.Context, key string) (Exercise, error)

	// ExerciseFresh issues a conditional update guarded by the current
	// value, which the store must apply.
	ExerciseFresh(ctx context.Context, key string) (Exercise, error)
}
