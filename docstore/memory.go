package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps documents in process memory. Transactions are serialized
// and their writes are buffered until the callback returns nil. Plain writes
// wait for any running transaction, so they must not be issued from inside a
// transaction callback.
type MemoryStore struct {
	mu          sync.RWMutex
	txMu        sync.Mutex
	collections map[string]map[string]Fields
	now         func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock sets the clock used to resolve ServerTimestamp.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		collections: make(map[string]map[string]Fields),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(collection, id)
}

func (s *MemoryStore) getLocked(collection, id string) (*Document, error) {
	fields, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{ID: id, Fields: copyFields(fields)}, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, fields Fields, opts ...SetOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resolved, err := resolveFields(fields, s.now())
	if err != nil {
		return err
	}
	o := buildSetOptions(opts)

	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.collections[collection][id]
	s.putLocked(collection, id, mergeFields(existing, resolved, o.merge))
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	id := NewID()
	if err := s.Set(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resolved, err := resolveFields(fields, s.now())
	if err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	s.putLocked(collection, id, mergeFields(existing, resolved, true))
	return nil
}

func (s *MemoryStore) putLocked(collection, id string, fields Fields) {
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]Fields)
		s.collections[collection] = docs
	}
	docs[id] = fields
}

func (s *MemoryStore) Query(ctx context.Context, q Query) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Collection == "" || q.Field == "" {
		return nil, ErrInvalidQuery
	}
	want, err := normalizeValue(q.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	s.mu.RLock()
	var docs []*Document
	for id, fields := range s.collections[q.Collection] {
		got, ok := fields[q.Field]
		if ok && valuesEqual(got, want) {
			docs = append(docs, &Document{ID: id, Fields: copyFields(fields)})
		}
	}
	s.mu.RUnlock()

	// Map iteration order is random; keep results stable before ordering.
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	sortDocuments(docs, q.OrderBy, q.Direction)
	return docs, nil
}

// List returns every document in a collection.
func (s *MemoryStore) List(collection string) []*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*Document, 0, len(s.collections[collection]))
	for id, fields := range s.collections[collection] {
		docs = append(docs, &Document{ID: id, Fields: copyFields(fields)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memoryTx{
		store:  s,
		now:    s.now(),
		staged: make(map[docKey]Fields),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range tx.order {
		s.putLocked(key.collection, key.id, tx.staged[key])
	}
	return nil
}

type docKey struct {
	collection string
	id         string
}

type memoryTx struct {
	store  *MemoryStore
	now    time.Time
	staged map[docKey]Fields
	order  []docKey
}

func (tx *memoryTx) current(collection, id string) (Fields, bool) {
	key := docKey{collection, id}
	if fields, ok := tx.staged[key]; ok {
		return fields, true
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	fields, ok := tx.store.collections[collection][id]
	return fields, ok
}

func (tx *memoryTx) stage(collection, id string, fields Fields) {
	key := docKey{collection, id}
	if _, ok := tx.staged[key]; !ok {
		tx.order = append(tx.order, key)
	}
	tx.staged[key] = fields
}

func (tx *memoryTx) Get(collection, id string) (*Document, error) {
	fields, ok := tx.current(collection, id)
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{ID: id, Fields: copyFields(fields)}, nil
}

func (tx *memoryTx) Set(collection, id string, fields Fields, opts ...SetOption) error {
	resolved, err := resolveFields(fields, tx.now)
	if err != nil {
		return err
	}
	o := buildSetOptions(opts)
	existing, _ := tx.current(collection, id)
	tx.stage(collection, id, mergeFields(existing, resolved, o.merge))
	return nil
}

func (tx *memoryTx) Update(collection, id string, fields Fields) error {
	existing, ok := tx.current(collection, id)
	if !ok {
		return ErrNotFound
	}
	resolved, err := resolveFields(fields, tx.now)
	if err != nil {
		return err
	}
	tx.stage(collection, id, mergeFields(existing, resolved, true))
	return nil
}
