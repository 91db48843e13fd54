// Package firestore implements docstore.Store on Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/anonto42/chirp/backend/internal/docstore"
)

// Store wraps a Firestore client.
type Store struct {
	client *firestore.Client
}

// New returns a store over client. The caller keeps ownership of the client
// until Close.
func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) doc(collection, id string) *firestore.DocumentRef {
	return s.client.Collection(collection).Doc(id)
}

func translate(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return docstore.ErrNotFound
	case codes.AlreadyExists:
		return docstore.ErrAlreadyExists
	}
	return err
}

// Create implements docstore.Store.
func (s *Store) Create(ctx context.Context, collection, id string, data docstore.Data) error {
	_, err := s.doc(collection, id).Create(ctx, map[string]interface{}(data.Clone()))
	return translate(err)
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Data, error) {
	snap, err := s.doc(collection, id).Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return fromSnapshot(snap), nil
}

func fromSnapshot(snap *firestore.DocumentSnapshot) docstore.Data {
	if snap == nil || !snap.Exists() {
		return nil
	}
	return docstore.Data(snap.Data()).Clone()
}

func toUpdates(updates []docstore.Update) ([]firestore.Update, error) {
	out := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		var v interface{}
		switch u.Kind {
		case docstore.UpdateSet:
			v = u.Value
		case docstore.UpdateArrayUnion:
			v = firestore.ArrayUnion(u.Values...)
		case docstore.UpdateArrayRemove:
			v = firestore.ArrayRemove(u.Values...)
		case docstore.UpdateIncrement:
			v = firestore.Increment(u.Value)
		default:
			return nil, fmt.Errorf("firestore: unknown update kind %d", u.Kind)
		}
		out = append(out, firestore.Update{Path: u.Field, Value: v})
	}
	return out, nil
}

// Update implements docstore.Store.
func (s *Store) Update(ctx context.Context, collection, id string, updates ...docstore.Update) error {
	fu, err := toUpdates(updates)
	if err != nil {
		return err
	}
	_, err = s.doc(collection, id).Update(ctx, fu)
	return translate(err)
}

// Delete implements docstore.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.doc(collection, id).Delete(ctx)
	return translate(err)
}

func (s *Store) build(q docstore.Query) firestore.Query {
	fq := s.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, string(f.Op), f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	return fq
}

// Query implements docstore.Store.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Doc, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	snaps, err := s.build(q).Documents(ctx).GetAll()
	if err != nil {
		return nil, translate(err)
	}
	return toDocs(snaps), nil
}

func toDocs(snaps []*firestore.DocumentSnapshot) []docstore.Doc {
	docs := make([]docstore.Doc, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, docstore.Doc{ID: snap.Ref.ID, Data: fromSnapshot(snap)})
	}
	return docs
}

// Batch implements docstore.Store with a Firestore write batch.
func (s *Store) Batch(ctx context.Context, ops []docstore.BatchOp) error {
	if err := docstore.CheckBatch(ops); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	batch := s.client.Batch()
	for _, op := range ops {
		ref := s.doc(op.Collection, op.ID)
		switch op.Kind {
		case docstore.BatchCreate:
			batch.Create(ref, map[string]interface{}(op.Data.Clone()))
		case docstore.BatchUpdate:
			fu, err := toUpdates(op.Updates)
			if err != nil {
				return err
			}
			batch.Update(ref, fu)
		case docstore.BatchDelete:
			batch.Delete(ref)
		}
	}
	_, err := batch.Commit(ctx)
	return translate(err)
}

// Subscribe implements docstore.Store on query snapshot listeners.
func (s *Store) Subscribe(ctx context.Context, q docstore.Query, fn func([]docstore.Doc)) (*docstore.Subscription, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	sub, subCtx := docstore.NewSubscription(ctx)
	it := s.build(q).Snapshots(subCtx)
	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				finish(subCtx, sub, err)
				return
			}
			snaps, err := snap.Documents.GetAll()
			if err != nil {
				finish(subCtx, sub, err)
				return
			}
			docs := toDocs(snaps)
			sub.Deliver(func() { fn(docs) })
		}
	}()
	return sub, nil
}

// SubscribeDoc implements docstore.Store on document snapshot listeners.
func (s *Store) SubscribeDoc(ctx context.Context, collection, id string, fn func(docstore.Data)) (*docstore.Subscription, error) {
	sub, subCtx := docstore.NewSubscription(ctx)
	it := s.doc(collection, id).Snapshots(subCtx)
	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil && status.Code(err) != codes.NotFound {
				finish(subCtx, sub, err)
				return
			}
			data := fromSnapshot(snap)
			sub.Deliver(func() { fn(data) })
		}
	}()
	return sub, nil
}

func finish(ctx context.Context, sub *docstore.Subscription, err error) {
	if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
		sub.Cancel()
		return
	}
	sub.Fail(err)
}

// Close closes the Firestore client.
func (s *Store) Close() error {
	return s.client.Close()
}
