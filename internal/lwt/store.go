package lwt

import "context"

// Store defines the operations the harness needs from a CAS-capable store.
// Implementations own the connection and its consistency settings; the
// harness only decides which operation to issue and in what order.
type Store interface {
	// Reset drops the namespace if it exists and creates it again together
	// with the record table. Calling it twice leaves the same schema behind.
	Reset(ctx context.Context) error

	// Drop removes the namespace and everything in it.
	Drop(ctx context.Context) error

	// Insert writes a record unconditionally.
	Insert(ctx context.Context, r Record) error

	// Get reads the record stored under key.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) (Record, error)

	// SetEmail overwrites the guarded field unconditionally.
	SetEmail(ctx context.Context, key, email string) error

	// CompareAndSetEmail applies u only if the stored email equals
	// u.ExpectedEmail at the moment the store evaluates the guard.
	// A failed guard is reported through the Result, not as an error.
	// Returns ErrNotFound if the key does not exist.
	CompareAndSetEmail(ctx context.Context, u ConditionalUpdate) (Result, error)

	// Close releases the underlying client.
	Close() error
}
