package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRecord is the relational row backing one document.
type DocumentRecord struct {
	Collection string    `gorm:"primaryKey;size:128"`
	ID         string    `gorm:"primaryKey;size:128"`
	Data       string    `gorm:"type:text;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (DocumentRecord) TableName() string {
	return "documents"
}

// FieldRecord indexes one scalar top-level field of a document for equality queries.
type FieldRecord struct {
	Collection string `gorm:"primaryKey;size:128;index:idx_document_fields_lookup,priority:1"`
	DocumentID string `gorm:"primaryKey;size:128"`
	Field      string `gorm:"primaryKey;size:128;index:idx_document_fields_lookup,priority:2"`
	Value      string `gorm:"type:text;index:idx_document_fields_lookup,priority:3"`
}

func (FieldRecord) TableName() string {
	return "document_fields"
}

// GormStore persists documents through gorm. With LockRows set, reads inside
// RunTransaction take row locks (SELECT ... FOR UPDATE) so concurrent claims on
// the same document serialize. Leave it off for SQLite.
type GormStore struct {
	db       *gorm.DB
	lockRows bool
	now      func() time.Time
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB, lockRows bool) *GormStore {
	return &GormStore{db: db, lockRows: lockRows, now: time.Now}
}

// Migrate creates the documents and document_fields tables.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&DocumentRecord{}, &FieldRecord{})
}

func (s *GormStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	return getDocument(s.db.WithContext(ctx), collection, id, false)
}

func (s *GormStore) Set(ctx context.Context, collection, id string, fields Fields, opts ...SetOption) error {
	o := buildSetOptions(opts)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return setDocument(tx, collection, id, fields, o.merge, s.now(), false)
	})
}

func (s *GormStore) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	id := NewID()
	if err := s.Set(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (s *GormStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return updateDocument(tx, collection, id, fields, s.now(), false)
	})
}

func (s *GormStore) Query(ctx context.Context, q Query) ([]*Document, error) {
	if q.Collection == "" || q.Field == "" {
		return nil, ErrInvalidQuery
	}
	want, err := normalizeValue(q.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	key, ok := indexKey(want)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be compared against a scalar", ErrInvalidQuery, q.Field)
	}

	var records []DocumentRecord
	err = s.db.WithContext(ctx).
		Model(&DocumentRecord{}).
		Select("documents.*").
		Joins("JOIN document_fields ON document_fields.collection = documents.collection AND document_fields.document_id = documents.id").
		Where("document_fields.collection = ? AND document_fields.field = ? AND document_fields.value = ?", q.Collection, q.Field, key).
		Order("documents.id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query %s by %s: %w", q.Collection, q.Field, err)
	}

	docs := make([]*Document, 0, len(records))
	for _, rec := range records {
		doc, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	sortDocuments(docs, q.OrderBy, q.Direction)
	return docs, nil
}

func (s *GormStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, &gormTx{db: db, lock: s.lockRows, now: now})
	})
}

type gormTx struct {
	db   *gorm.DB
	lock bool
	now  time.Time
}

func (tx *gormTx) Get(collection, id string) (*Document, error) {
	return getDocument(tx.db, collection, id, tx.lock)
}

func (tx *gormTx) Set(collection, id string, fields Fields, opts ...SetOption) error {
	o := buildSetOptions(opts)
	return setDocument(tx.db, collection, id, fields, o.merge, tx.now, tx.lock)
}

func (tx *gormTx) Update(collection, id string, fields Fields) error {
	return updateDocument(tx.db, collection, id, fields, tx.now, tx.lock)
}

func getDocument(db *gorm.DB, collection, id string, lock bool) (*Document, error) {
	q := db
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rec DocumentRecord
	err := q.Where("collection = ? AND id = ?", collection, id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decodeRecord(rec)
}

func setDocument(db *gorm.DB, collection, id string, fields Fields, merge bool, now time.Time, lock bool) error {
	resolved, err := resolveFields(fields, now)
	if err != nil {
		return err
	}
	var existing Fields
	if merge {
		doc, err := getDocument(db, collection, id, lock)
		switch {
		case err == nil:
			existing = doc.Fields
		case !errors.Is(err, ErrNotFound):
			return err
		}
	}
	return putDocument(db, collection, id, mergeFields(existing, resolved, merge), now)
}

func updateDocument(db *gorm.DB, collection, id string, fields Fields, now time.Time, lock bool) error {
	doc, err := getDocument(db, collection, id, lock)
	if err != nil {
		return err
	}
	resolved, err := resolveFields(fields, now)
	if err != nil {
		return err
	}
	return putDocument(db, collection, id, mergeFields(doc.Fields, resolved, true), now)
}

func putDocument(db *gorm.DB, collection, id string, fields Fields, now time.Time) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	rec := DocumentRecord{
		Collection: collection,
		ID:         id,
		Data:       string(data),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, id, err)
	}

	if err := db.Where("collection = ? AND document_id = ?", collection, id).Delete(&FieldRecord{}).Error; err != nil {
		return fmt.Errorf("clear index for %s/%s: %w", collection, id, err)
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var index []FieldRecord
	for _, name := range names {
		if key, ok := indexKey(fields[name]); ok {
			index = append(index, FieldRecord{
				Collection: collection,
				DocumentID: id,
				Field:      name,
				Value:      key,
			})
		}
	}
	if len(index) == 0 {
		return nil
	}
	if err := db.Create(&index).Error; err != nil {
		return fmt.Errorf("index %s/%s: %w", collection, id, err)
	}
	return nil
}

func decodeRecord(rec DocumentRecord) (*Document, error) {
	var fields Fields
	if err := json.Unmarshal([]byte(rec.Data), &fields); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", rec.Collection, rec.ID, err)
	}
	if fields == nil {
		fields = Fields{}
	}
	return &Document{ID: rec.ID, Fields: fields}, nil
}
