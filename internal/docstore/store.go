// Package docstore abstracts the document database the engine runs on.
//
// Every backend offers the same small capability set: keyed documents inside
// named collections, merge updates with atomic set-union, set-difference and
// increment field operations, filtered/ordered/limited queries, bounded
// all-or-nothing batches and live subscriptions. No multi-document write
// other than Batch is transactional.
package docstore

import (
	"context"
	"errors"
)

// Limits shared by every backend.
const (
	// MaxInFilter is the largest membership list an In filter accepts.
	MaxInFilter = 30
	// MaxBatchOps is the largest number of mutations one Batch may carry.
	MaxBatchOps = 500
)

var (
	// ErrNotFound is returned by Get and Update when the document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrAlreadyExists is returned by Create when the id is taken.
	ErrAlreadyExists = errors.New("docstore: document already exists")
	// ErrTooManyValues is returned when an In filter exceeds MaxInFilter.
	ErrTooManyValues = errors.New("docstore: membership filter exceeds limit")
	// ErrBatchTooLarge is returned when a batch exceeds MaxBatchOps.
	ErrBatchTooLarge = errors.New("docstore: batch exceeds limit")
)

// Data is the field map of a single document.
type Data map[string]any

// Doc is a document together with its id.
type Doc struct {
	ID   string
	Data Data
}

// Store is the persistence and live-subscription capability the engine consumes.
type Store interface {
	// Create writes a new document and fails with ErrAlreadyExists if the id is taken.
	Create(ctx context.Context, collection, id string, data Data) error
	// Get returns the document fields or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Data, error)
	// Update merges the given field operations into an existing document atomically.
	Update(ctx context.Context, collection, id string, updates ...Update) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Query runs a filtered, ordered and limited query.
	Query(ctx context.Context, q Query) ([]Doc, error)
	// Batch applies every op or none of them.
	Batch(ctx context.Context, ops []BatchOp) error
	// Subscribe delivers the query result now and again after every change until cancelled.
	Subscribe(ctx context.Context, q Query, fn func([]Doc)) (*Subscription, error)
	// SubscribeDoc delivers one document (nil when missing) now and after every change.
	SubscribeDoc(ctx context.Context, collection, id string, fn func(Data)) (*Subscription, error)
	// Close releases backend resources.
	Close() error
}

// BatchKind identifies the mutation carried by a BatchOp.
type BatchKind int

const (
	BatchCreate BatchKind = iota
	BatchUpdate
	BatchDelete
)

// BatchOp is one mutation inside a Batch.
type BatchOp struct {
	Kind       BatchKind
	Collection string
	ID         string
	Data       Data
	Updates    []Update
}

// CreateOp builds a batched create.
func CreateOp(collection, id string, data Data) BatchOp {
	return BatchOp{Kind: BatchCreate, Collection: collection, ID: id, Data: data}
}

// UpdateOp builds a batched update.
func UpdateOp(collection, id string, updates ...Update) BatchOp {
	return BatchOp{Kind: BatchUpdate, Collection: collection, ID: id, Updates: updates}
}

// DeleteOp builds a batched delete.
func DeleteOp(collection, id string) BatchOp {
	return BatchOp{Kind: BatchDelete, Collection: collection, ID: id}
}

// CheckBatch validates the batch size.
func CheckBatch(ops []BatchOp) error {
	if len(ops) > MaxBatchOps {
		return ErrBatchTooLarge
	}
	return nil
}
