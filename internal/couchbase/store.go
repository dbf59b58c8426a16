package couchbase

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchbase/gocb/v2"

	"lwt/internal/lwt"
	"lwt/internal/validator"
)

const emailPath = "email"

type recordDoc struct {
	UserID string `json:"user_id"`
	First  string `json:"first"`
	Last   string `json:"last"`
	City   string `json:"city"`
	Email  string `json:"email"`

	Cas `json:"-"`
}

func newRecordDoc(r lwt.Record) recordDoc {
	return recordDoc{
		UserID: r.UserID,
		First:  r.First,
		Last:   r.Last,
		City:   r.City,
		Email:  r.Email,
	}
}

func (d *recordDoc) record() lwt.Record {
	return lwt.Record{
		UserID: d.UserID,
		First:  d.First,
		Last:   d.Last,
		City:   d.City,
		Email:  d.Email,
	}
}

// documents is the subset of Couchbase[recordDoc] the store uses.
type documents interface {
	Upsert(ctx context.Context, key string, value recordDoc, opts *gocb.UpsertOptions) error
	Get(ctx context.Context, key string, opts *gocb.GetOptions) (*recordDoc, error)
	Replace(ctx context.Context, key string, v *recordDoc, opts *gocb.ReplaceOptions) error
	MutateIn(ctx context.Context, key string, specs []gocb.MutateInSpec, opts *gocb.MutateInOptions) error
}

// scopes is the subset of gocb.CollectionManagerV2 used to provision the
// namespace.
type scopes interface {
	CreateScope(scopeName string, opts *gocb.CreateScopeOptions) error
	CreateCollection(scopeName, collectionName string, settings *gocb.CreateCollectionSettings, opts *gocb.CreateCollectionOptions) error
	DropScope(scopeName string, opts *gocb.DropScopeOptions) error
}

// Store is an lwt.Store on a Couchbase collection. Conditional updates are
// a guarded read followed by a CAS replace; a CAS mismatch means another
// writer got in between, so the guard is evaluated again on the new state.
type Store struct {
	cluster    *gocb.Cluster
	scopes     scopes
	schema     lwt.Schema
	durability gocb.DurabilityLevel
	records    documents
}

// NewStore creates a store using scope schema.Namespace and collection
// schema.Table in bucket. Neither needs to exist before Reset.
func NewStore(cluster *gocb.Cluster, bucket *gocb.Bucket, schema lwt.Schema, consistency lwt.Consistency) (*Store, error) {
	if err := validator.Validate("couchbase store", cluster, bucket); err != nil {
		return nil, err
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate schema: %w", err)
	}

	durability, err := Durability(consistency)
	if err != nil {
		return nil, err
	}

	records, err := NewCouchbase[recordDoc](bucket.Scope(schema.Namespace).Collection(schema.Table))
	if err != nil {
		return nil, err
	}

	return &Store{
		cluster:    cluster,
		scopes:     bucket.CollectionsV2(),
		schema:     schema,
		durability: durability,
		records:    records,
	}, nil
}

// Durability maps a consistency level onto the closest durability level.
func Durability(c lwt.Consistency) (gocb.DurabilityLevel, error) {
	switch c {
	case lwt.Any, lwt.One, lwt.LocalOne:
		return gocb.DurabilityLevelNone, nil
	case lwt.Two, lwt.Three, lwt.Quorum, lwt.LocalQuorum, lwt.EachQuorum:
		return gocb.DurabilityLevelMajority, nil
	case lwt.All:
		return gocb.DurabilityLevelPersistToMajority, nil
	default:
		return 0, fmt.Errorf("invalid couchbase consistency %q", c)
	}
}

func (s *Store) Reset(ctx context.Context) error {
	if err := s.Drop(ctx); err != nil {
		return err
	}

	if err := s.scopes.CreateScope(s.schema.Namespace, &gocb.CreateScopeOptions{Context: ctx}); err != nil {
		return fmt.Errorf("failed to create scope %s: %w", s.schema.Namespace, err)
	}

	if err := s.scopes.CreateCollection(
		s.schema.Namespace,
		s.schema.Table,
		nil,
		&gocb.CreateCollectionOptions{Context: ctx},
	); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.schema.QualifiedTable(), err)
	}

	return nil
}

func (s *Store) Drop(ctx context.Context) error {
	err := s.scopes.DropScope(s.schema.Namespace, &gocb.DropScopeOptions{Context: ctx})
	if err != nil && !errors.Is(err, gocb.ErrScopeNotFound) {
		return fmt.Errorf("failed to drop scope %s: %w", s.schema.Namespace, err)
	}

	return nil
}

func (s *Store) Insert(ctx context.Context, r lwt.Record) error {
	return s.records.Upsert(ctx, r.UserID, newRecordDoc(r), &gocb.UpsertOptions{
		DurabilityLevel: s.durability,
	})
}

func (s *Store) Get(ctx context.Context, key string) (lwt.Record, error) {
	doc, err := s.get(ctx, key)
	if err != nil {
		return lwt.Record{}, err
	}

	return doc.record(), nil
}

func (s *Store) get(ctx context.Context, key string) (*recordDoc, error) {
	doc, err := s.records.Get(ctx, key, nil)
	switch {
	case err == nil:
		return doc, nil
	case errors.Is(err, gocb.ErrDocumentNotFound):
		return nil, fmt.Errorf("%w: %w", lwt.ErrNotFound, err)
	default:
		return nil, err
	}
}

// SetEmail writes only the email path, creating the document if missing.
func (s *Store) SetEmail(ctx context.Context, key, email string) error {
	return s.records.MutateIn(
		ctx,
		key,
		[]gocb.MutateInSpec{gocb.UpsertSpec(emailPath, email, nil)},
		&gocb.MutateInOptions{
			StoreSemantic:   gocb.StoreSemanticsUpsert,
			DurabilityLevel: s.durability,
		},
	)
}

func (s *Store) CompareAndSetEmail(ctx context.Context, u lwt.ConditionalUpdate) (lwt.Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return lwt.Result{}, err
		}

		doc, err := s.get(ctx, u.Key)
		if err != nil {
			return lwt.Result{}, err
		}

		if doc.Email != u.ExpectedEmail {
			return lwt.Rejected(doc.Email), nil
		}

		doc.Email = u.NewEmail
		err = s.records.Replace(ctx, u.Key, doc, &gocb.ReplaceOptions{
			DurabilityLevel: s.durability,
		})
		switch {
		case err == nil:
			return lwt.Applied(), nil
		case errors.Is(err, gocb.ErrCasMismatch):
			continue
		case errors.Is(err, gocb.ErrDocumentNotFound):
			return lwt.Result{}, fmt.Errorf("%w: %w", lwt.ErrNotFound, err)
		default:
			return lwt.Result{}, err
		}
	}
}

func (s *Store) Close() error {
	return s.cluster.Close(nil)
}
