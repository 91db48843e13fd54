// Package memory is an in-process docstore.Store with push subscriptions.
// It backs the embedded mode and the test suites.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/anonto42/chirp/backend/internal/docstore"
)

type record struct {
	seq  uint64
	data docstore.Data
}

type watcher struct {
	collection string
	docID      string
	query      docstore.Query
	single     bool
	sub        *docstore.Subscription
	signal     chan struct{}
	onDocs     func([]docstore.Doc)
	onDoc      func(docstore.Data)
}

// Store keeps every collection in memory.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]*record
	seq         uint64

	wmu      sync.Mutex
	watchers map[*watcher]struct{}
}

// New returns an empty store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]*record),
		watchers:    make(map[*watcher]struct{}),
	}
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) coll(name string) map[string]*record {
	c, ok := s.collections[name]
	if !ok {
		c = make(map[string]*record)
		s.collections[name] = c
	}
	return c
}

// Create implements docstore.Store.
func (s *Store) Create(ctx context.Context, collection, id string, data docstore.Data) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	c := s.coll(collection)
	if _, exists := c[id]; exists {
		s.mu.Unlock()
		return docstore.ErrAlreadyExists
	}
	s.seq++
	c[id] = &record{seq: s.seq, data: data.Clone()}
	s.mu.Unlock()
	s.notify(collection)
	return nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.collections[collection][id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return r.data.Clone(), nil
}

// Update implements docstore.Store.
func (s *Store) Update(ctx context.Context, collection, id string, updates ...docstore.Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	r, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return docstore.ErrNotFound
	}
	next, err := docstore.Apply(r.data, updates)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	r.data = next
	s.mu.Unlock()
	s.notify(collection)
	return nil
}

// Delete implements docstore.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	_, existed := s.collections[collection][id]
	delete(s.collections[collection], id)
	s.mu.Unlock()
	if existed {
		s.notify(collection)
	}
	return nil
}

// Query implements docstore.Store.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evaluate(q), nil
}

func (s *Store) evaluate(q docstore.Query) []docstore.Doc {
	c := s.collections[q.Collection]
	recs := make([]docstore.Doc, 0, len(c))
	seqs := make([]uint64, 0, len(c))
	for id, r := range c {
		recs = append(recs, docstore.Doc{ID: id, Data: r.data.Clone()})
		seqs = append(seqs, r.seq)
	}
	sortBySeq(recs, seqs)
	return docstore.Evaluate(recs, q)
}

// Batch implements docstore.Store. Every op is checked against a staged copy
// before anything is committed.
func (s *Store) Batch(ctx context.Context, ops []docstore.BatchOp) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := docstore.CheckBatch(ops); err != nil {
		return err
	}
	s.mu.Lock()
	type staged struct {
		collection, id string
		data           docstore.Data
		deleted        bool
	}
	pending := make(map[string]*staged)
	key := func(c, id string) string { return c + "/" + id }
	current := func(c, id string) (docstore.Data, bool) {
		if st, ok := pending[key(c, id)]; ok {
			return st.data, !st.deleted
		}
		r, ok := s.collections[c][id]
		if !ok {
			return nil, false
		}
		return r.data, true
	}
	for _, op := range ops {
		existing, exists := current(op.Collection, op.ID)
		switch op.Kind {
		case docstore.BatchCreate:
			if exists {
				s.mu.Unlock()
				return docstore.ErrAlreadyExists
			}
			pending[key(op.Collection, op.ID)] = &staged{collection: op.Collection, id: op.ID, data: op.Data.Clone()}
		case docstore.BatchUpdate:
			if !exists {
				s.mu.Unlock()
				return docstore.ErrNotFound
			}
			next, err := docstore.Apply(existing, op.Updates)
			if err != nil {
				s.mu.Unlock()
				return err
			}
			pending[key(op.Collection, op.ID)] = &staged{collection: op.Collection, id: op.ID, data: next}
		case docstore.BatchDelete:
			pending[key(op.Collection, op.ID)] = &staged{collection: op.Collection, id: op.ID, deleted: true}
		}
	}
	touched := make(map[string]struct{})
	for _, st := range pending {
		touched[st.collection] = struct{}{}
		c := s.coll(st.collection)
		if st.deleted {
			delete(c, st.id)
			continue
		}
		if r, ok := c[st.id]; ok {
			r.data = st.data
			continue
		}
		s.seq++
		c[st.id] = &record{seq: s.seq, data: st.data}
	}
	s.mu.Unlock()
	for c := range touched {
		s.notify(c)
	}
	return nil
}

// Subscribe implements docstore.Store.
func (s *Store) Subscribe(ctx context.Context, q docstore.Query, fn func([]docstore.Doc)) (*docstore.Subscription, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	w := &watcher{collection: q.Collection, query: q, onDocs: fn}
	return s.watch(ctx, w), nil
}

// SubscribeDoc implements docstore.Store.
func (s *Store) SubscribeDoc(ctx context.Context, collection, id string, fn func(docstore.Data)) (*docstore.Subscription, error) {
	w := &watcher{collection: collection, docID: id, single: true, onDoc: fn}
	return s.watch(ctx, w), nil
}

func (s *Store) watch(ctx context.Context, w *watcher) *docstore.Subscription {
	sub, subCtx := docstore.NewSubscription(ctx)
	w.sub = sub
	w.signal = make(chan struct{}, 1)

	s.wmu.Lock()
	s.watchers[w] = struct{}{}
	s.wmu.Unlock()

	s.deliver(w)

	go func() {
		defer func() {
			s.wmu.Lock()
			delete(s.watchers, w)
			s.wmu.Unlock()
		}()
		for {
			select {
			case <-subCtx.Done():
				sub.Cancel()
				return
			case <-w.signal:
				s.deliver(w)
			}
		}
	}()
	return sub
}

func (s *Store) deliver(w *watcher) {
	if w.single {
		s.mu.RLock()
		var data docstore.Data
		if r, ok := s.collections[w.collection][w.docID]; ok {
			data = r.data.Clone()
		}
		s.mu.RUnlock()
		w.sub.Deliver(func() { w.onDoc(data) })
		return
	}
	s.mu.RLock()
	docs := s.evaluate(w.query)
	s.mu.RUnlock()
	w.sub.Deliver(func() { w.onDocs(docs) })
}

// notify wakes the watchers of a collection. A pending wake-up is coalesced
// with the new one; the watcher always re-reads the latest state.
func (s *Store) notify(collection string) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	for w := range s.watchers {
		if w.collection != collection || !w.sub.Active() {
			continue
		}
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

// Close cancels every live subscription.
func (s *Store) Close() error {
	s.wmu.Lock()
	subs := make([]*docstore.Subscription, 0, len(s.watchers))
	for w := range s.watchers {
		subs = append(subs, w.sub)
	}
	s.wmu.Unlock()
	for _, sub := range subs {
		sub.Cancel()
	}
	return nil
}

// Len returns the number of documents in a collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func sortBySeq(docs []docstore.Doc, seqs []uint64) {
	idx := make([]int, len(docs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return seqs[idx[a]] < seqs[idx[b]] })
	sorted := make([]docstore.Doc, len(docs))
	for i, j := range idx {
		sorted[i] = docs[j]
	}
	copy(docs, sorted)
}
