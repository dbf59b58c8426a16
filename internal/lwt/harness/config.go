package harness

import (
	"fmt"

	"lwt/internal/lwt"
)

// Config describes one harness run. It is passed explicitly to every
// component; nothing about the run lives in package state.
type Config struct {
	Schema lwt.Schema

	RecordCount int `env:"RECORD_COUNT" envDefault:"10000"`
	// ExerciseKeys selects the keys for the stale path. Empty means every
	// populated key.
	ExerciseKeys []string `env:"EXERCISE_KEYS" envSeparator:","`
	// FreshKeys selects the keys for the fresh path, run before the stale path.
	FreshKeys []string `env:"FRESH_KEYS" envSeparator:"," envDefault:"U1001"`
	Fresh     bool     `env:"FRESH" envDefault:"true"`

	NewEmail         string `env:"NEW_EMAIL" envDefault:"newemail@gmail.com"`
	InterferingEmail string `env:"INTERFERING_EMAIL" envDefault:"updatedtosomethingelse@gmail.com"`

	// Strict aborts the run on the first violation instead of logging it.
	Strict        bool `env:"STRICT" envDefault:"true"`
	Workers       int  `env:"WORKERS" envDefault:"1"`
	KeepNamespace bool `env:"KEEP_NAMESPACE" envDefault:"false"`

	RunID string
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{
		Schema: lwt.Schema{
			Namespace:         "test_keyspace_lwt",
			Table:             "test_table",
			ReplicationFactor: 1,
		},
		RecordCount:      10000,
		FreshKeys:        []string{"U1001"},
		Fresh:            true,
		NewEmail:         "newemail@gmail.com",
		InterferingEmail: "updatedtosomethingelse@gmail.com",
		Strict:           true,
		Workers:          1,
	}
}

// Validate checks the config and that every selected key will be populated.
func (c Config) Validate() error {
	if err := c.Schema.Validate(); err != nil {
		return err
	}
	if c.RecordCount < 1 {
		return fmt.Errorf("record count must be positive, got %d", c.RecordCount)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.NewEmail == "" || c.InterferingEmail == "" {
		return fmt.Errorf("new and interfering emails must not be empty")
	}
	// The stale path cannot tell a rejected guard from the fresh path's
	// write when both values are the same.
	if c.NewEmail == c.InterferingEmail {
		return fmt.Errorf("new and interfering emails must differ, both are %s", c.NewEmail)
	}

	if err := c.checkKeys("exercise", c.ExerciseKeys); err != nil {
		return err
	}
	if c.Fresh {
		if err := c.checkKeys("fresh", c.FreshKeys); err != nil {
			return err
		}
	}

	return nil
}

// checkKeys requires every key to be populated and listed once. A key is
// owned by a single goroutine for the whole read, interfere and update
// sequence.
func (c Config) checkKeys(kind string, keys []string) error {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if !c.populates(k) {
			return fmt.Errorf("%s key %s is not among the %d populated records", kind, k, c.RecordCount)
		}
		if _, ok := seen[k]; ok {
			return fmt.Errorf("%s key %s is listed more than once", kind, k)
		}
		seen[k] = struct{}{}
	}

	return nil
}

func (c Config) populates(key string) bool {
	var i int
	if _, err := fmt.Sscanf(key, "U%d", &i); err != nil {
		return false
	}
	return i >= 0 && i < c.RecordCount && lwt.RecordKey(i) == key
}

// staleKeys returns the keys the stale path runs over.
func (c Config) staleKeys() []string {
	if len(c.ExerciseKeys) > 0 {
		return c.ExerciseKeys
	}

	keys := make([]string, c.RecordCount)
	for i := range keys {
		keys[i] = lwt.RecordKey(i)
	}
	return keys
}
