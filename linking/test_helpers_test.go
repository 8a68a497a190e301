package linking

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"loyalty-backend/docstore"
	"loyalty-backend/models"

	"github.com/sirupsen/logrus"
)

var errStoreDown = errors.New("store unavailable")

// faultyStore wraps a MemoryStore and fails selected calls.
type faultyStore struct {
	*docstore.MemoryStore

	mu        sync.Mutex
	queryErr  error
	failTxOn  int // 1-based transaction call to fail; 0 never fails
	txCalls   int
	queryCall int
}

func (s *faultyStore) Query(ctx context.Context, q docstore.Query) ([]*docstore.Document, error) {
	s.mu.Lock()
	s.queryCall++
	err := s.queryErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.Query(ctx, q)
}

func (s *faultyStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	s.mu.Lock()
	s.txCalls++
	fail := s.failTxOn != 0 && s.txCalls == s.failTxOn
	s.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return s.MemoryStore.RunTransaction(ctx, fn)
}

func (s *faultyStore) queries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryCall
}

// steppingClock returns a clock that advances one second on every call.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestResolver(t *testing.T) (*Resolver, *faultyStore) {
	t.Helper()
	store := &faultyStore{MemoryStore: docstore.NewMemoryStore(docstore.WithClock(steppingClock()))}
	return NewResolver(store, WithLogger(quietLogger())), store
}

func seed(t *testing.T, store docstore.Store, collection, id string, fields docstore.Fields) {
	t.Helper()
	if err := store.Set(context.Background(), collection, id, fields); err != nil {
		t.Fatalf("seed %s/%s: %v", collection, id, err)
	}
}

func seedUser(t *testing.T, store docstore.Store, id string) {
	seed(t, store, models.CollectionUsers, id, docstore.Fields{
		"role":                models.RoleCustomer,
		models.FieldCreatedAt: docstore.ServerTimestamp,
	})
}

func seedCustomer(t *testing.T, store docstore.Store, id, phone, normalized, userID string) {
	fields := docstore.Fields{
		models.FieldFirstName: "Thandi",
		models.FieldLastName:  "Mokoena",
		models.FieldEmail:     "thandi@example.com",
		models.FieldPhone:     phone,
	}
	if normalized != "" {
		fields[models.FieldPhoneNormalized] = normalized
	}
	if userID != "" {
		fields[models.FieldUserID] = userID
	}
	seed(t, store, models.CollectionCustomers, id, fields)
}

func seedInvitation(t *testing.T, store docstore.Store, id, businessID, phone, status string) {
	seed(t, store, models.CollectionInvitations, id, docstore.Fields{
		models.FieldBusinessID:    businessID,
		models.FieldBusinessName:  "Biz " + businessID,
		models.FieldCustomerPhone: phone,
		models.FieldStatus:        status,
		models.FieldCreatedAt:     docstore.ServerTimestamp,
	})
}

func mustGet(t *testing.T, store docstore.Store, collection, id string) *docstore.Document {
	t.Helper()
	doc, err := store.Get(context.Background(), collection, id)
	if err != nil {
		t.Fatalf("get %s/%s: %v", collection, id, err)
	}
	return doc
}
