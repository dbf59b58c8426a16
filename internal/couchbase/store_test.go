package couchbase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/couchbase/gocb/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lwt/internal/lwt"
)

func TestDurability(t *testing.T) {
	tests := []struct {
		consistency lwt.Consistency
		want        gocb.DurabilityLevel
	}{
		{lwt.Any, gocb.DurabilityLevelNone},
		{lwt.One, gocb.DurabilityLevelNone},
		{lwt.LocalOne, gocb.DurabilityLevelNone},
		{lwt.Two, gocb.DurabilityLevelMajority},
		{lwt.Quorum, gocb.DurabilityLevelMajority},
		{lwt.LocalQuorum, gocb.DurabilityLevelMajority},
		{lwt.EachQuorum, gocb.DurabilityLevelMajority},
		{lwt.All, gocb.DurabilityLevelPersistToMajority},
	}

	for _, tt := range tests {
		t.Run(string(tt.consistency), func(t *testing.T) {
			got, err := Durability(tt.consistency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Durability("SOMETIMES")
	assert.Error(t, err)
}

func TestRecordDoc(t *testing.T) {
	r := lwt.SeedRecord(42)
	doc := newRecordDoc(r)
	doc.SetCas(gocb.Cas(7))

	assert.Equal(t, r, doc.record())
	assert.Equal(t, gocb.Cas(7), doc.GetCas())

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":"U42","first":"first42","last":"last42","city":"city42","email":"email@gmail.com42"}`, string(b))
}

func TestNewCouchbase_NilCollection(t *testing.T) {
	_, err := NewCouchbase[recordDoc](nil)
	assert.Error(t, err)
}

func TestNewStore_Validation(t *testing.T) {
	schema := lwt.Schema{Namespace: "test_keyspace_lwt", Table: "test_table", ReplicationFactor: 1}

	_, err := NewStore(nil, nil, schema, lwt.One)
	assert.Error(t, err)
}

// fakeDocuments is an in-memory collection that enforces CAS on Replace.
// interfere runs once before the next Replace, standing in for a concurrent
// writer.
type fakeDocuments struct {
	docs      map[string]recordDoc
	cas       map[string]gocb.Cas
	replaces  int
	interfere func(f *fakeDocuments)
}

func newFakeDocuments(records ...lwt.Record) *fakeDocuments {
	f := &fakeDocuments{docs: make(map[string]recordDoc), cas: make(map[string]gocb.Cas)}
	for _, r := range records {
		f.put(r.UserID, newRecordDoc(r))
	}
	return f
}

func (f *fakeDocuments) put(key string, doc recordDoc) {
	f.docs[key] = doc
	f.cas[key]++
}

func (f *fakeDocuments) Upsert(_ context.Context, key string, value recordDoc, _ *gocb.UpsertOptions) error {
	f.put(key, value)
	return nil
}

func (f *fakeDocuments) Get(_ context.Context, key string, _ *gocb.GetOptions) (*recordDoc, error) {
	doc, ok := f.docs[key]
	if !ok {
		return nil, fmt.Errorf("failed to get document with key %s: %w", key, gocb.ErrDocumentNotFound)
	}
	doc.SetCas(f.cas[key])
	return &doc, nil
}

func (f *fakeDocuments) Replace(_ context.Context, key string, v *recordDoc, _ *gocb.ReplaceOptions) error {
	f.replaces++
	if f.interfere != nil {
		interfere := f.interfere
		f.interfere = nil
		interfere(f)
	}

	if _, ok := f.docs[key]; !ok {
		return fmt.Errorf("failed to replace document with key %s: %w", key, gocb.ErrDocumentNotFound)
	}
	if v.GetCas() != f.cas[key] {
		return fmt.Errorf("failed to replace document with key %s: %w", key, gocb.ErrCasMismatch)
	}

	f.put(key, *v)
	v.SetCas(f.cas[key])
	return nil
}

func (f *fakeDocuments) MutateIn(_ context.Context, key string, _ []gocb.MutateInSpec, _ *gocb.MutateInOptions) error {
	return errors.New("not supported")
}

type fakeScopes struct {
	calls   []string
	dropErr error
}

func (f *fakeScopes) CreateScope(scopeName string, _ *gocb.CreateScopeOptions) error {
	f.calls = append(f.calls, "create scope "+scopeName)
	return nil
}

func (f *fakeScopes) CreateCollection(scopeName, collectionName string, _ *gocb.CreateCollectionSettings, _ *gocb.CreateCollectionOptions) error {
	f.calls = append(f.calls, "create collection "+scopeName+"."+collectionName)
	return nil
}

func (f *fakeScopes) DropScope(scopeName string, _ *gocb.DropScopeOptions) error {
	f.calls = append(f.calls, "drop scope "+scopeName)
	return f.dropErr
}

func newFakeStore(docs *fakeDocuments, sc *fakeScopes) *Store {
	return &Store{
		scopes:  sc,
		schema:  lwt.Schema{Namespace: "test_keyspace_lwt", Table: "test_table", ReplicationFactor: 1},
		records: docs,
	}
}

func TestStore_Reset(t *testing.T) {
	tests := []struct {
		name    string
		dropErr error
		wantErr bool
		calls   []string
	}{
		{
			name: "existing scope",
			calls: []string{
				"drop scope test_keyspace_lwt",
				"create scope test_keyspace_lwt",
				"create collection test_keyspace_lwt.test_table",
			},
		},
		{
			name:    "missing scope",
			dropErr: fmt.Errorf("drop failed: %w", gocb.ErrScopeNotFound),
			calls: []string{
				"drop scope test_keyspace_lwt",
				"create scope test_keyspace_lwt",
				"create collection test_keyspace_lwt.test_table",
			},
		},
		{
			name:    "drop fails",
			dropErr: errors.New("unauthorized"),
			wantErr: true,
			calls:   []string{"drop scope test_keyspace_lwt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &fakeScopes{dropErr: tt.dropErr}
			err := newFakeStore(newFakeDocuments(), sc).Reset(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, tt.dropErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.calls, sc.calls)
		})
	}
}

func TestStore_CompareAndSetEmail_Applied(t *testing.T) {
	docs := newFakeDocuments(lwt.SeedRecord(2))
	s := newFakeStore(docs, &fakeScopes{})

	res, err := s.CompareAndSetEmail(context.Background(), lwt.ConditionalUpdate{
		Key:           "U2",
		NewEmail:      "x@y.com",
		ExpectedEmail: "email@gmail.com2",
	})
	require.NoError(t, err)
	assert.True(t, res.Applied())
	assert.Equal(t, "x@y.com", docs.docs["U2"].Email)
	assert.Equal(t, 1, docs.replaces)
}

func TestStore_CompareAndSetEmail_Rejected(t *testing.T) {
	docs := newFakeDocuments(lwt.SeedRecord(1001))
	s := newFakeStore(docs, &fakeScopes{})

	res, err := s.CompareAndSetEmail(context.Background(), lwt.ConditionalUpdate{
		Key:           "U1001",
		NewEmail:      "newemail@gmail.com",
		ExpectedEmail: "stale@gmail.com",
	})
	require.NoError(t, err)
	actual, ok := res.Actual()
	require.True(t, ok)
	assert.Equal(t, "email@gmail.com1001", actual)
	assert.Zero(t, docs.replaces)
}

func TestStore_CompareAndSetEmail_CasMismatchGuardStillHolds(t *testing.T) {
	docs := newFakeDocuments(lwt.SeedRecord(3))
	docs.interfere = func(f *fakeDocuments) {
		doc := f.docs["U3"]
		doc.City = "elsewhere"
		f.put("U3", doc)
	}
	s := newFakeStore(docs, &fakeScopes{})

	res, err := s.CompareAndSetEmail(context.Background(), lwt.ConditionalUpdate{
		Key:           "U3",
		NewEmail:      "x@y.com",
		ExpectedEmail: "email@gmail.com3",
	})
	require.NoError(t, err)
	assert.True(t, res.Applied())
	assert.Equal(t, 2, docs.replaces)
	assert.Equal(t, "x@y.com", docs.docs["U3"].Email)
	assert.Equal(t, "elsewhere", docs.docs["U3"].City)
}

func TestStore_CompareAndSetEmail_CasMismatchGuardBroken(t *testing.T) {
	docs := newFakeDocuments(lwt.SeedRecord(4))
	docs.interfere = func(f *fakeDocuments) {
		doc := f.docs["U4"]
		doc.Email = "racer@x.com"
		f.put("U4", doc)
	}
	s := newFakeStore(docs, &fakeScopes{})

	res, err := s.CompareAndSetEmail(context.Background(), lwt.ConditionalUpdate{
		Key:           "U4",
		NewEmail:      "x@y.com",
		ExpectedEmail: "email@gmail.com4",
	})
	require.NoError(t, err)
	actual, ok := res.Actual()
	require.True(t, ok)
	assert.Equal(t, "racer@x.com", actual)
	assert.Equal(t, 1, docs.replaces)
	assert.Equal(t, "racer@x.com", docs.docs["U4"].Email)
}

func TestStore_CompareAndSetEmail_NotFound(t *testing.T) {
	s := newFakeStore(newFakeDocuments(), &fakeScopes{})

	_, err := s.CompareAndSetEmail(context.Background(), lwt.ConditionalUpdate{Key: "U9"})
	assert.ErrorIs(t, err, lwt.ErrNotFound)
}

func TestStore_InsertAndGet(t *testing.T) {
	s := newFakeStore(newFakeDocuments(), &fakeScopes{})
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, lwt.SeedRecord(7)))

	r, err := s.Get(ctx, "U7")
	require.NoError(t, err)
	assert.Equal(t, lwt.SeedRecord(7), r)

	_, err = s.Get(ctx, "U8")
	assert.ErrorIs(t, err, lwt.ErrNotFound)
}
