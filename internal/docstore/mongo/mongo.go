// Package mongo implements docstore.Store on MongoDB. Documents are keyed by
// their string id in _id; live subscriptions use the polling fallback so the
// backend also works against standalone servers without change streams.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anonto42/chirp/backend/internal/docstore"
)

// DefaultPollInterval is used when New is given a zero interval.
const DefaultPollInterval = 2 * time.Second

// Store wraps one MongoDB database.
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	interval time.Duration
}

// New returns a store over db. pollInterval drives live subscriptions.
func New(client *mongo.Client, db *mongo.Database, pollInterval time.Duration) *Store {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Store{client: client, db: db, interval: pollInterval}
}

var _ docstore.Store = (*Store)(nil)

// Create implements docstore.Store.
func (s *Store) Create(ctx context.Context, collection, id string, data docstore.Data) error {
	_, err := s.db.Collection(collection).InsertOne(ctx, toBSON(id, data))
	if mongo.IsDuplicateKeyError(err) {
		return docstore.ErrAlreadyExists
	}
	return err
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Data, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, docstore.ErrNotFound
		}
		return nil, err
	}
	_, data := fromBSON(raw)
	return data, nil
}

func toUpdateDoc(updates []docstore.Update) (bson.M, error) {
	set, addToSet, pull, inc := bson.M{}, bson.M{}, bson.M{}, bson.M{}
	for _, u := range updates {
		switch u.Kind {
		case docstore.UpdateSet:
			set[u.Field] = u.Value
		case docstore.UpdateArrayUnion:
			addToSet[u.Field] = bson.M{"$each": u.Values}
		case docstore.UpdateArrayRemove:
			pull[u.Field] = bson.M{"$in": u.Values}
		case docstore.UpdateIncrement:
			inc[u.Field] = u.Value
		default:
			return nil, fmt.Errorf("mongo: unknown update kind %d", u.Kind)
		}
	}
	doc := bson.M{}
	if len(set) > 0 {
		doc["$set"] = set
	}
	if len(addToSet) > 0 {
		doc["$addToSet"] = addToSet
	}
	if len(pull) > 0 {
		doc["$pull"] = pull
	}
	if len(inc) > 0 {
		doc["$inc"] = inc
	}
	return doc, nil
}

// Update implements docstore.Store with a single UpdateOne.
func (s *Store) Update(ctx context.Context, collection, id string, updates ...docstore.Update) error {
	doc, err := toUpdateDoc(updates)
	if err != nil {
		return err
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

// Delete implements docstore.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func toFilter(filters []docstore.Filter) bson.D {
	filter := bson.D{}
	for _, f := range filters {
		field := f.Field
		if field == "id" {
			field = "_id"
		}
		var cond interface{}
		switch f.Op {
		case docstore.OpEq:
			if f.Value == nil {
				// $eq: null would also match missing fields
				cond = bson.M{"$type": "null"}
			} else {
				cond = f.Value
			}
		case docstore.OpIn:
			cond = bson.M{"$in": f.Value}
		case docstore.OpLt:
			cond = bson.M{"$lt": f.Value}
		case docstore.OpLte:
			cond = bson.M{"$lte": f.Value}
		case docstore.OpGt:
			cond = bson.M{"$gt": f.Value}
		case docstore.OpGte:
			cond = bson.M{"$gte": f.Value}
		}
		filter = append(filter, bson.E{Key: field, Value: cond})
	}
	return filter
}

// Query implements docstore.Store.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Doc, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	findOptions := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		findOptions.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	}
	if q.Limit > 0 {
		findOptions.SetLimit(int64(q.Limit))
	}
	filter := toFilter(q.Filters)
	if q.OrderBy != "" {
		filter = append(filter, bson.E{Key: q.OrderBy, Value: bson.M{"$exists": true}})
	}
	cursor, err := s.db.Collection(q.Collection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err = cursor.All(ctx, &raws); err != nil {
		return nil, err
	}
	docs := make([]docstore.Doc, 0, len(raws))
	for _, raw := range raws {
		id, data := fromBSON(raw)
		docs = append(docs, docstore.Doc{ID: id, Data: data})
	}
	return docs, nil
}

// Batch implements docstore.Store as a multi-document transaction. It needs a
// replica set or sharded cluster.
func (s *Store) Batch(ctx context.Context, ops []docstore.BatchOp) error {
	if err := docstore.CheckBatch(ops); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, op := range ops {
			coll := s.db.Collection(op.Collection)
			switch op.Kind {
			case docstore.BatchCreate:
				if _, err := coll.InsertOne(sc, toBSON(op.ID, op.Data)); err != nil {
					if mongo.IsDuplicateKeyError(err) {
						return nil, docstore.ErrAlreadyExists
					}
					return nil, err
				}
			case docstore.BatchUpdate:
				doc, err := toUpdateDoc(op.Updates)
				if err != nil {
					return nil, err
				}
				res, err := coll.UpdateOne(sc, bson.M{"_id": op.ID}, doc)
				if err != nil {
					return nil, err
				}
				if res.MatchedCount == 0 {
					return nil, docstore.ErrNotFound
				}
			case docstore.BatchDelete:
				if _, err := coll.DeleteOne(sc, bson.M{"_id": op.ID}); err != nil {
					return nil, err
				}
			}
		}
		return nil, nil
	})
	return err
}

// Subscribe implements docstore.Store by polling the query.
func (s *Store) Subscribe(ctx context.Context, q docstore.Query, fn func([]docstore.Doc)) (*docstore.Subscription, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return docstore.Poll(ctx, s.interval, func(ctx context.Context) ([]docstore.Doc, error) {
		return s.Query(ctx, q)
	}, fn)
}

// SubscribeDoc implements docstore.Store by polling one document.
func (s *Store) SubscribeDoc(ctx context.Context, collection, id string, fn func(docstore.Data)) (*docstore.Subscription, error) {
	return docstore.Poll(ctx, s.interval, func(ctx context.Context) ([]docstore.Doc, error) {
		data, err := s.Get(ctx, collection, id)
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []docstore.Doc{{ID: id, Data: data}}, nil
	}, func(docs []docstore.Doc) {
		if len(docs) == 0 {
			fn(nil)
			return
		}
		fn(docs[0].Data)
	})
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func toBSON(id string, data docstore.Data) bson.M {
	doc := bson.M{"_id": id}
	for k, v := range data.Clone() {
		if k == "id" {
			continue
		}
		doc[k] = v
	}
	return doc
}

func fromBSON(raw bson.M) (string, docstore.Data) {
	id, _ := raw["_id"].(string)
	data := docstore.Data{}
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		data[k] = fromBSONValue(v)
	}
	return id, data
}

func fromBSONValue(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromBSONValue(e)
		}
		return out
	case bson.M:
		out := docstore.Data{}
		for k, e := range t {
			out[k] = fromBSONValue(e)
		}
		return out
	case bson.D:
		out := docstore.Data{}
		for _, e := range t {
			out[e.Key] = fromBSONValue(e.Value)
		}
		return out
	case int32:
		return int64(t)
	default:
		return v
	}
}
