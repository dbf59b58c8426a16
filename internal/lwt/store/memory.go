package store

import (
	"context"
	"fmt"
	"sync"

	"lwt/internal/lwt"
)

// Memory is an in-process lwt.Store. A single mutex serialises every
// operation, which makes each conditional update linearizable.
type Memory struct {
	mu      sync.Mutex
	schema  lwt.Schema
	exists  bool
	records map[string]lwt.Record

	// BreakGuard makes CompareAndSetEmail apply updates without checking
	// the expected value. It simulates a store that violates CAS.
	BreakGuard bool
}

// NewMemory creates an empty in-memory store for the given schema.
func NewMemory(schema lwt.Schema) (*Memory, error) {
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate schema: %w", err)
	}

	return &Memory{schema: schema}, nil
}

func (m *Memory) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.exists = true
	m.records = make(map[string]lwt.Record)
	return nil
}

func (m *Memory) Drop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.exists = false
	m.records = nil
	return nil
}

func (m *Memory) Insert(ctx context.Context, r lwt.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.exists {
		return m.missingTable()
	}
	m.records[r.UserID] = r
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) (lwt.Record, error) {
	if err := ctx.Err(); err != nil {
		return lwt.Record{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.exists {
		return lwt.Record{}, m.missingTable()
	}
	r, ok := m.records[key]
	if !ok {
		return lwt.Record{}, fmt.Errorf("failed to get record with key %s: %w", key, lwt.ErrNotFound)
	}
	return r, nil
}

// SetEmail behaves like a CQL UPDATE: it creates the row if missing.
func (m *Memory) SetEmail(ctx context.Context, key, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.exists {
		return m.missingTable()
	}
	r, ok := m.records[key]
	if !ok {
		r = lwt.Record{UserID: key}
	}
	r.Email = email
	m.records[key] = r
	return nil
}

func (m *Memory) CompareAndSetEmail(ctx context.Context, u lwt.ConditionalUpdate) (lwt.Result, error) {
	if err := ctx.Err(); err != nil {
		return lwt.Result{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.exists {
		return lwt.Result{}, m.missingTable()
	}
	r, ok := m.records[u.Key]
	if !ok {
		return lwt.Result{}, fmt.Errorf("failed to update record with key %s: %w", u.Key, lwt.ErrNotFound)
	}

	if r.Email != u.ExpectedEmail && !m.BreakGuard {
		return lwt.Rejected(r.Email), nil
	}

	r.Email = u.NewEmail
	m.records[u.Key] = r
	return lwt.Applied(), nil
}

func (m *Memory) Close() error {
	return nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Exists reports whether the namespace is currently provisioned.
func (m *Memory) Exists() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exists
}

func (m *Memory) missingTable() error {
	return fmt.Errorf("table %s does not exist", m.schema.QualifiedTable())
}
