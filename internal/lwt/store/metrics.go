package store

import (
	"context"
	"time"

	"lwt/internal/lwt"
	"lwt/internal/lwt/metrics"
)

// MetricsStore wraps an lwt.Store with metrics collection
type MetricsStore struct {
	store    lwt.Store
	registry *metrics.Registry
}

// NewMetricsStore creates a new instrumented store
func NewMetricsStore(store lwt.Store, registry *metrics.Registry) lwt.Store {
	return &MetricsStore{
		store:    store,
		registry: registry,
	}
}

// Reset implements lwt.Store.Reset with metrics collection
func (s *MetricsStore) Reset(ctx context.Context) error {
	start := time.Now()

	err := s.store.Reset(ctx)
	s.registry.RecordStoreOperation("reset", time.Since(start), err)

	return err
}

// Drop implements lwt.Store.Drop with metrics collection
func (s *MetricsStore) Drop(ctx context.Context) error {
	start := time.Now()

	err := s.store.Drop(ctx)
	s.registry.RecordStoreOperation("drop", time.Since(start), err)

	return err
}

// Insert implements lwt.Store.Insert with metrics collection
func (s *MetricsStore) Insert(ctx context.Context, r lwt.Record) error {
	start := time.Now()

	err := s.store.Insert(ctx, r)
	s.registry.RecordStoreOperation("insert", time.Since(start), err)

	return err
}

// Get implements lwt.Store.Get with metrics collection
func (s *MetricsStore) Get(ctx context.Context, key string) (lwt.Record, error) {
	start := time.Now()

	r, err := s.store.Get(ctx, key)
	s.registry.RecordStoreOperation("get", time.Since(start), err)

	return r, err
}

// SetEmail implements lwt.Store.SetEmail with metrics collection
func (s *MetricsStore) SetEmail(ctx context.Context, key, email string) error {
	start := time.Now()

	err := s.store.SetEmail(ctx, key, email)
	s.registry.RecordStoreOperation("set_email", time.Since(start), err)

	return err
}

// CompareAndSetEmail implements lwt.Store.CompareAndSetEmail with metrics collection
func (s *MetricsStore) CompareAndSetEmail(ctx context.Context, u lwt.ConditionalUpdate) (lwt.Result, error) {
	start := time.Now()

	res, err := s.store.CompareAndSetEmail(ctx, u)
	s.registry.RecordStoreOperation("compare_and_set_email", time.Since(start), err)
	s.registry.RecordConditionalUpdate(res.Applied(), err)

	return res, err
}

func (s *MetricsStore) Close() error {
	return s.store.Close()
}
