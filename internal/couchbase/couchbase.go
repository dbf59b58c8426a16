// Package couchbase implements lwt.Store on a Couchbase bucket. A namespace
// maps onto a scope and the record table onto a collection in it.
package couchbase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"

	"lwt/internal/lwt"
)

// Config holds the cluster connection settings.
type Config struct {
	ConnectionString  string          `env:"CONNECTION_STRING" envDefault:"couchbase://localhost"`
	Username          string          `env:"USERNAME" envDefault:"Administrator"`
	Password          string          `env:"PASSWORD" envDefault:"password"`
	BucketName        string          `env:"BUCKET_NAME" envDefault:"lwt"`
	Consistency       lwt.Consistency `env:"CONSISTENCY" envDefault:"ONE"`
	ConnectTimeout    time.Duration   `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	KVTimeout         time.Duration   `env:"KV_TIMEOUT" envDefault:"5s"`
	ManagementTimeout time.Duration   `env:"MANAGEMENT_TIMEOUT" envDefault:"30s"`
}

// Connect opens the cluster and waits for the bucket to become ready.
func Connect(config Config) (*gocb.Cluster, *gocb.Bucket, error) {
	cluster, err := gocb.Connect(config.ConnectionString, gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		},
		TimeoutsConfig: gocb.TimeoutsConfig{
			ConnectTimeout:    config.ConnectTimeout,
			KVTimeout:         config.KVTimeout,
			ManagementTimeout: config.ManagementTimeout,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to cluster: %w", err)
	}

	bucket := cluster.Bucket(config.BucketName)

	if err := bucket.WaitUntilReady(5*time.Second, nil); err != nil {
		cluster.Close(nil)
		return nil, nil, fmt.Errorf("bucket not ready: %w", err)
	}

	return cluster, bucket, nil
}

// Couchbase is a generic wrapper around Couchbase KV operations on one
// collection. It keeps the CAS of documents implementing CasSetter current.
type Couchbase[T any] struct {
	collection *gocb.Collection
}

// NewCouchbase creates a new generic Couchbase wrapper instance.
func NewCouchbase[T any](collection *gocb.Collection) (*Couchbase[T], error) {
	if collection == nil {
		return nil, errors.New("invalid Couchbase parameters: collection must not be nil")
	}

	return &Couchbase[T]{collection: collection}, nil
}

// Upsert creates or overwrites the document stored under key.
func (c *Couchbase[T]) Upsert(ctx context.Context, key string, value T, opts *gocb.UpsertOptions) error {
	if opts == nil {
		opts = new(gocb.UpsertOptions)
	}
	opts.Context = ctx

	if _, err := c.collection.Upsert(key, value, opts); err != nil {
		return fmt.Errorf("failed to upsert document with key %s: %w", key, err)
	}

	return nil
}

// Get retrieves a document by key and unmarshals it into type T.
// The CAS is recorded on values implementing CasSetter.
func (c *Couchbase[T]) Get(ctx context.Context, key string, opts *gocb.GetOptions) (*T, error) {
	if opts == nil {
		opts = new(gocb.GetOptions)
	}
	opts.Context = ctx

	res, err := c.collection.Get(key, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get document with key %s: %w", key, err)
	}

	var v T
	if err := res.Content(&v); err != nil {
		return nil, fmt.Errorf("failed to parse document content for key %s: %w", key, err)
	}

	if s, ok := any(&v).(CasSetter); ok {
		s.SetCas(res.Cas())
	}

	return &v, nil
}

// Replace overwrites an existing document. When v implements CasGetter and
// opts carries no CAS, the document's own CAS guards the write, so the call
// fails with gocb.ErrCasMismatch if the document changed since it was read.
func (c *Couchbase[T]) Replace(ctx context.Context, key string, v *T, opts *gocb.ReplaceOptions) error {
	if opts == nil {
		opts = new(gocb.ReplaceOptions)
	}
	opts.Context = ctx

	if g, ok := any(v).(CasGetter); ok && opts.Cas == 0 {
		opts.Cas = g.GetCas()
	}

	res, err := c.collection.Replace(key, v, opts)
	if err != nil {
		return fmt.Errorf("failed to replace document with key %s: %w", key, err)
	}

	if s, ok := any(v).(CasSetter); ok {
		s.SetCas(res.Cas())
	}

	return nil
}

// MutateIn applies sub-document mutations to the document stored under key.
func (c *Couchbase[T]) MutateIn(ctx context.Context, key string, specs []gocb.MutateInSpec, opts *gocb.MutateInOptions) error {
	if opts == nil {
		opts = new(gocb.MutateInOptions)
	}
	opts.Context = ctx

	if _, err := c.collection.MutateIn(key, specs, opts); err != nil {
		return fmt.Errorf("failed to mutate document with key %s: %w", key, err)
	}

	return nil
}

// Collection returns the underlying Couchbase collection for advanced operations.
func (c *Couchbase[T]) Collection() *gocb.Collection {
	return c.collection
}
