package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrInvalidQuery is returned for queries a backend cannot run.
var ErrInvalidQuery = errors.New("invalid query")

// Fields is the body of a document keyed by field name.
type Fields map[string]interface{}

// Document is a single record addressed by an opaque string ID inside a named collection.
type Document struct {
	ID     string
	Fields Fields
}

// DataTo decodes the document fields into a JSON-tagged struct. The document ID
// is exposed to the struct as the "id" field.
func (d *Document) DataTo(v interface{}) error {
	body := make(Fields, len(d.Fields)+1)
	for k, val := range d.Fields {
		body[k] = val
	}
	body["id"] = d.ID

	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// String returns the field as a string, or "" when it is absent or not a string.
func (d *Document) String(field string) string {
	if s, ok := d.Fields[field].(string); ok {
		return s
	}
	return ""
}

type serverTimestamp struct{}

// ServerTimestamp is a field value resolved to the store's wall-clock time at commit.
var ServerTimestamp = serverTimestamp{}

// Direction is a sort direction for ordered queries.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Query selects documents whose Field equals Value, optionally ordered by OrderBy.
type Query struct {
	Collection string
	Field      string
	Value      interface{}
	OrderBy    string
	Direction  Direction
}

type setOptions struct {
	merge bool
}

// SetOption configures a Set call.
type SetOption func(*setOptions)

// Merge makes Set merge the given fields into an existing document instead of replacing it.
func Merge() SetOption {
	return func(o *setOptions) {
		o.merge = true
	}
}

func buildSetOptions(opts []SetOption) setOptions {
	var o setOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Tx is the view of the store inside RunTransaction. All reads must happen
// before the first write.
type Tx interface {
	Get(collection, id string) (*Document, error)
	Set(collection, id string, fields Fields, opts ...SetOption) error
	Update(collection, id string, fields Fields) error
}

// Store is the persistence boundary used by the linking logic.
type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Set(ctx context.Context, collection, id string, fields Fields, opts ...SetOption) error
	Add(ctx context.Context, collection string, fields Fields) (string, error)
	Update(ctx context.Context, collection, id string, fields Fields) error
	Query(ctx context.Context, q Query) ([]*Document, error)
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
