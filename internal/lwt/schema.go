package lwt

import (
	"fmt"
	"regexp"
)

// identifiers are interpolated into DDL, so they are restricted to what
// Cassandra accepts unquoted.
var identifier = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,47}$`)

// Schema names the per-run namespace and table.
type Schema struct {
	Namespace         string `env:"NAMESPACE" envDefault:"test_keyspace_lwt"`
	Table             string `env:"TABLE" envDefault:"test_table"`
	ReplicationFactor int    `env:"REPLICATION_FACTOR" envDefault:"1"`
}

// Validate checks that the names are safe to embed in statements.
func (s Schema) Validate() error {
	if !identifier.MatchString(s.Namespace) {
		return fmt.Errorf("invalid namespace name %q", s.Namespace)
	}
	if !identifier.MatchString(s.Table) {
		return fmt.Errorf("invalid table name %q", s.Table)
	}
	if s.ReplicationFactor < 1 {
		return fmt.Errorf("replication factor must be positive, got %d", s.ReplicationFactor)
	}
	return nil
}

// QualifiedTable returns namespace.table.
func (s Schema) QualifiedTable() string {
	return s.Namespace + "." + s.Table
}
