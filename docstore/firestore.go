package docstore

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is the Cloud Firestore backend.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore wraps a Firestore client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(err, collection, id)
	}
	return snapshotDocument(snap), nil
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, fields Fields, opts ...SetOption) error {
	_, err := s.client.Collection(collection).Doc(id).Set(ctx, toFirestoreFields(fields), firestoreSetOptions(opts)...)
	if err != nil {
		return mapFirestoreError(err, collection, id)
	}
	return nil
}

func (s *FirestoreStore) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	id := NewID()
	if err := s.Set(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	_, err := s.client.Collection(collection).Doc(id).Update(ctx, toFirestoreUpdates(fields))
	if err != nil {
		return mapFirestoreError(err, collection, id)
	}
	return nil
}

func (s *FirestoreStore) Query(ctx context.Context, q Query) ([]*Document, error) {
	if q.Collection == "" || q.Field == "" {
		return nil, ErrInvalidQuery
	}
	query := s.client.Collection(q.Collection).Where(q.Field, "==", q.Value)
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Direction == Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}

	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s by %s: %w", q.Collection, q.Field, err)
	}
	docs := make([]*Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, snapshotDocument(snap))
	}
	return docs, nil
}

func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{client: s.client, tx: tx})
	})
}

type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *firestoreTx) Get(collection, id string) (*Document, error) {
	snap, err := t.tx.Get(t.client.Collection(collection).Doc(id))
	if err != nil {
		return nil, mapFirestoreError(err, collection, id)
	}
	return snapshotDocument(snap), nil
}

func (t *firestoreTx) Set(collection, id string, fields Fields, opts ...SetOption) error {
	return t.tx.Set(t.client.Collection(collection).Doc(id), toFirestoreFields(fields), firestoreSetOptions(opts)...)
}

func (t *firestoreTx) Update(collection, id string, fields Fields) error {
	return t.tx.Update(t.client.Collection(collection).Doc(id), toFirestoreUpdates(fields))
}

func snapshotDocument(snap *firestore.DocumentSnapshot) *Document {
	return &Document{ID: snap.Ref.ID, Fields: Fields(snap.Data())}
}

func toFirestoreFields(fields Fields) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			v = firestore.ServerTimestamp
		}
		out[k] = v
	}
	return out
}

func toFirestoreUpdates(fields Fields) []firestore.Update {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	converted := toFirestoreFields(fields)
	updates := make([]firestore.Update, 0, len(names))
	for _, name := range names {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{name}, Value: converted[name]})
	}
	return updates
}

func firestoreSetOptions(opts []SetOption) []firestore.SetOption {
	if buildSetOptions(opts).merge {
		return []firestore.SetOption{firestore.MergeAll}
	}
	return nil
}

func mapFirestoreError(err error, collection, id string) error {
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return fmt.Errorf("firestore %s/%s: %w", collection, id, err)
}
