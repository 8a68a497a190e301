package database

import (
	"context"
	"testing"

	"loyalty-backend/docstore"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := Open(sqlite.Open(":memory:"))
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestMigrateCreatesTables(t *testing.T) {
	db := setupTestDB(t)

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{"documents", "document_fields"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("expected table %s", table)
		}
	}
	if !db.Migrator().HasIndex(&docstore.FieldRecord{}, "idx_document_fields_lookup") {
		t.Error("expected lookup index on document_fields")
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := setupTestDB(t)

	if err := Migrate(db); err != nil {
		t.Fatal(err)
	}
	if err := Migrate(db); err != nil {
		t.Errorf("second migrate should be a no-op, got %v", err)
	}
}

func TestNewStore(t *testing.T) {
	db := setupTestDB(t)

	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx := context.Background()
	if err := store.Set(ctx, "customers", "c1", docstore.Fields{"phone_normalized": "0832091122"}); err != nil {
		t.Fatal(err)
	}
	docs, err := store.Query(ctx, docstore.Query{Collection: "customers", Field: "phone_normalized", Value: "0832091122"})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != "c1" {
		t.Errorf("expected c1 from the sqlite-backed store, got %d docs", len(docs))
	}
}
