// Package cassandra implements lwt.Store on top of gocql. Conditional
// updates are CQL lightweight transactions evaluated by the cluster.
package cassandra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"lwt/internal/lwt"
)

// Config holds the cluster connection and consistency settings.
type Config struct {
	Hosts             []string        `env:"HOSTS" envSeparator:"," envDefault:"localhost"`
	Port              int             `env:"PORT" envDefault:"9042"`
	Username          string          `env:"USERNAME"`
	Password          string          `env:"PASSWORD"`
	ProtoVersion      int             `env:"PROTO_VERSION" envDefault:"4"`
	Timeout           time.Duration   `env:"TIMEOUT" envDefault:"10s"`
	ConnectTimeout    time.Duration   `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	Consistency       lwt.Consistency `env:"CONSISTENCY" envDefault:"QUORUM"`
	SerialConsistency string          `env:"SERIAL_CONSISTENCY" envDefault:"SERIAL"`
}

// Statement is a single CQL statement with its bound values and the
// consistency it must run at.
type Statement struct {
	CQL         string
	Values      []any
	Consistency gocql.Consistency
	// Serial is only set on conditional statements.
	Serial     gocql.SerialConsistency
	Idempotent bool
}

// Session is the subset of a gocql session the store uses.
type Session interface {
	Exec(ctx context.Context, st Statement) error
	Scan(ctx context.Context, st Statement, dest ...any) error
	MapScanCAS(ctx context.Context, st Statement, dest map[string]any) (bool, error)
	Close()
}

// Connect opens a gocql session against the configured cluster. No keyspace
// is selected since the store creates its own.
func Connect(config Config) (Session, error) {
	if len(config.Hosts) == 0 {
		return nil, fmt.Errorf("no cassandra hosts configured")
	}

	cluster := gocql.NewCluster(config.Hosts...)
	cluster.Port = config.Port
	cluster.ProtoVersion = config.ProtoVersion
	cluster.Timeout = config.Timeout
	cluster.ConnectTimeout = config.ConnectTimeout
	if config.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}

	consistency, err := ParseConsistency(config.Consistency)
	if err != nil {
		return nil, err
	}
	cluster.Consistency = consistency

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create cassandra session: %w", err)
	}

	return &gocqlSession{session: session}, nil
}

// ParseConsistency maps a level onto its gocql value.
func ParseConsistency(c lwt.Consistency) (gocql.Consistency, error) {
	consistency, err := gocql.ParseConsistencyWrapper(string(c))
	if err != nil {
		return 0, fmt.Errorf("invalid cassandra consistency %q: %w", c, err)
	}
	return consistency, nil
}

// ParseSerialConsistency maps SERIAL or LOCAL_SERIAL onto its gocql value.
func ParseSerialConsistency(s string) (gocql.SerialConsistency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SERIAL":
		return gocql.Serial, nil
	case "LOCAL_SERIAL":
		return gocql.LocalSerial, nil
	default:
		return 0, fmt.Errorf("invalid serial consistency %q", s)
	}
}

type gocqlSession struct {
	session *gocql.Session
}

func (s *gocqlSession) query(ctx context.Context, st Statement) *gocql.Query {
	q := s.session.Query(st.CQL, st.Values...).
		WithContext(ctx).
		Consistency(st.Consistency).
		Idempotent(st.Idempotent)
	if st.Serial != 0 {
		q = q.SerialConsistency(st.Serial)
	}
	return q
}

func (s *gocqlSession) Exec(ctx context.Context, st Statement) error {
	return s.query(ctx, st).Exec()
}

func (s *gocqlSession) Scan(ctx context.Context, st Statement, dest ...any) error {
	return s.query(ctx, st).Scan(dest...)
}

func (s *gocqlSession) MapScanCAS(ctx context.Context, st Statement, dest map[string]any) (bool, error) {
	return s.query(ctx, st).MapScanCAS(dest)
}

func (s *gocqlSession) Close() {
	s.session.Close()
}
