package store

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"lwt/internal/lwt"
	"lwt/internal/lwt/tracing"
)

// TracedStore wraps an lwt.Store with distributed tracing
// Layer order: TracedStore -> MetricsStore -> backend (real thing)
type TracedStore struct {
	store  lwt.Store
	tracer *tracing.Tracer
}

// NewTracedStore creates a new traced store that wraps a metrics store
func NewTracedStore(store lwt.Store, tracer *tracing.Tracer) lwt.Store {
	return &TracedStore{
		store:  store,
		tracer: tracer,
	}
}

// Reset implements lwt.Store.Reset with distributed tracing
func (s *TracedStore) Reset(ctx context.Context) error {
	ctx, span := s.tracer.StartSpan(ctx, "store.reset")
	defer span.End()

	span.SetAttributes(s.tracer.StoreAttributes("reset")...)

	err := s.store.Reset(ctx)
	s.finish(ctx, err)

	return err
}

// Drop implements lwt.Store.Drop with distributed tracing
func (s *TracedStore) Drop(ctx context.Context) error {
	ctx, span := s.tracer.StartSpan(ctx, "store.drop")
	defer span.End()

	span.SetAttributes(s.tracer.StoreAttributes("drop")...)

	err := s.store.Drop(ctx)
	s.finish(ctx, err)

	return err
}

// Insert implements lwt.Store.Insert with distributed tracing
func (s *TracedStore) Insert(ctx context.Context, r lwt.Record) error {
	ctx, span := s.tracer.StartSpan(ctx, "store.insert")
	defer span.End()

	span.SetAttributes(s.tracer.StoreAttributes("insert")...)
	span.SetAttributes(s.tracer.KeyAttributes(r.UserID)...)

	err := s.store.Insert(ctx, r)
	s.finish(ctx, err)

	return err
}

// Get implements lwt.Store.Get with distributed tracing
func (s *TracedStore) Get(ctx context.Context, key string) (lwt.Record, error) {
	ctx, span := s.tracer.StartSpan(ctx, "store.get")
	defer span.End()

	span.SetAttributes(s.tracer.StoreAttributes("get")...)
	span.SetAttributes(s.tracer.KeyAttributes(key)...)

	r, err := s.store.Get(ctx, key)
	if err == nil {
		span.SetAttributes(attribute.String("lwt.email", r.Email))
	}
	s.finish(ctx, err)

	return r, err
}

// SetEmail implements lwt.Store.SetEmail with distributed tracing
func (s *TracedStore) SetEmail(ctx context.Context, key, email string) error {
	ctx, span := s.tracer.StartSpan(ctx, "store.set_email")
	defer span.End()

	span.SetAttributes(s.tracer.StoreAttributes("set_email")...)
	span.SetAttributes(s.tracer.KeyAttributes(key)...)
	span.SetAttributes(attribute.String("lwt.email", email))

	err := s.store.SetEmail(ctx, key, email)
	s.finish(ctx, err)

	return err
}

// CompareAndSetEmail implements lwt.Store.CompareAndSetEmail with distributed tracing
func (s *TracedStore) CompareAndSetEmail(ctx context.Context, u lwt.ConditionalUpdate) (lwt.Result, error) {
	ctx, span := s.tracer.StartSpan(ctx, "store.compare_and_set_email")
	defer span.End()

	span.SetAttributes(s.tracer.StoreAttributes("compare_and_set_email")...)
	span.SetAttributes(s.tracer.KeyAttributes(u.Key)...)
	span.SetAttributes(
		attribute.String("lwt.new_email", u.NewEmail),
		attribute.String("lwt.expected_email", u.ExpectedEmail),
	)

	res, err := s.store.CompareAndSetEmail(ctx, u)
	if err == nil {
		span.SetAttributes(s.tracer.ResultAttributes(res)...)
	}
	s.finish(ctx, err)

	return res, err
}

func (s *TracedStore) Close() error {
	return s.store.Close()
}

func (s *TracedStore) finish(ctx context.Context, err error) {
	if err != nil {
		s.tracer.RecordError(ctx, err)
	} else {
		s.tracer.SetStatus(ctx, codes.Ok, "")
	}
	s.tracer.WithAttributes(ctx, s.tracer.ErrorAttributes(err)...)
}
