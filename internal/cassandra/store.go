package cassandra

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"

	"lwt/internal/lwt"
	"lwt/internal/validator"
)

// emailColumn is the guarded column returned on a failed LWT.
const emailColumn = "email"

// Store is an lwt.Store backed by a Cassandra table.
type Store struct {
	session     Session
	schema      lwt.Schema
	consistency gocql.Consistency
	serial      gocql.SerialConsistency
	cql         statements
}

// NewStore creates a Cassandra store over an open session.
func NewStore(session Session, schema lwt.Schema, config Config) (*Store, error) {
	if err := validator.Validate("cassandra store", session); err != nil {
		return nil, err
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate schema: %w", err)
	}

	consistency, err := ParseConsistency(config.Consistency)
	if err != nil {
		return nil, err
	}
	serial, err := ParseSerialConsistency(config.SerialConsistency)
	if err != nil {
		return nil, err
	}

	return &Store{
		session:     session,
		schema:      schema,
		consistency: consistency,
		serial:      serial,
		cql:         newStatements(schema),
	}, nil
}

// Reset drops the keyspace if present and recreates keyspace and table.
// DDL runs at the session default consistency.
func (s *Store) Reset(ctx context.Context) error {
	for _, stmt := range []string{s.cql.dropKeyspace, s.cql.createKeyspace, s.cql.createTable} {
		if err := s.session.Exec(ctx, Statement{CQL: stmt, Consistency: s.consistency}); err != nil {
			return fmt.Errorf("failed to execute %q: %w", stmt, err)
		}
	}

	return nil
}

func (s *Store) Drop(ctx context.Context) error {
	if err := s.session.Exec(ctx, Statement{CQL: s.cql.dropKeyspace, Consistency: s.consistency}); err != nil {
		return fmt.Errorf("failed to drop keyspace %s: %w", s.schema.Namespace, err)
	}

	return nil
}

func (s *Store) Insert(ctx context.Context, r lwt.Record) error {
	err := s.session.Exec(ctx, Statement{
		CQL:         s.cql.insert,
		Values:      []any{r.UserID, r.First, r.Last, r.City, r.Email},
		Consistency: s.consistency,
		Idempotent:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to insert record with key %s: %w", r.UserID, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (lwt.Record, error) {
	var r lwt.Record
	err := s.session.Scan(ctx, Statement{
		CQL:         s.cql.selectRecord,
		Values:      []any{key},
		Consistency: s.consistency,
		Idempotent:  true,
	}, &r.UserID, &r.First, &r.Last, &r.City, &r.Email)
	switch {
	case err == nil:
		return r, nil
	case errors.Is(err, gocql.ErrNotFound):
		return lwt.Record{}, fmt.Errorf("failed to get record with key %s: %w", key, lwt.ErrNotFound)
	default:
		return lwt.Record{}, fmt.Errorf("failed to get record with key %s: %w", key, err)
	}
}

func (s *Store) SetEmail(ctx context.Context, key, email string) error {
	err := s.session.Exec(ctx, Statement{
		CQL:         s.cql.update,
		Values:      []any{email, key},
		Consistency: s.consistency,
		Idempotent:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to update email for key %s: %w", key, err)
	}

	return nil
}

// CompareAndSetEmail runs UPDATE ... IF email = ?. On a failed guard the
// cluster returns the current email next to [applied]; a response without
// it means the row does not exist.
func (s *Store) CompareAndSetEmail(ctx context.Context, u lwt.ConditionalUpdate) (lwt.Result, error) {
	current := make(map[string]any)
	applied, err := s.session.MapScanCAS(ctx, Statement{
		CQL:         s.cql.updateIf,
		Values:      []any{u.NewEmail, u.Key, u.ExpectedEmail},
		Consistency: s.consistency,
		Serial:      s.serial,
	}, current)
	if err != nil {
		return lwt.Result{}, fmt.Errorf("failed to conditionally update email for key %s: %w", u.Key, err)
	}

	if applied {
		return lwt.Applied(), nil
	}

	return rejection(u.Key, current)
}

func rejection(key string, current map[string]any) (lwt.Result, error) {
	v, ok := current[emailColumn]
	if !ok {
		return lwt.Result{}, fmt.Errorf("failed to conditionally update email for key %s: %w", key, lwt.ErrNotFound)
	}

	switch actual := v.(type) {
	case string:
		return lwt.Rejected(actual), nil
	case *string:
		if actual == nil {
			return lwt.Rejected(""), nil
		}
		return lwt.Rejected(*actual), nil
	case nil:
		return lwt.Rejected(""), nil
	default:
		return lwt.Result{}, fmt.Errorf("unexpected type %T for column %s of key %s", v, emailColumn, key)
	}
}

func (s *Store) Close() error {
	s.session.Close()
	return nil
}
