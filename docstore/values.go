package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh document ID.
func NewID() string {
	return uuid.New().String()
}

// resolveFields replaces ServerTimestamp markers with now and reduces every value
// to its JSON form so stored documents never alias caller memory.
func resolveFields(fields Fields, now time.Time) (Fields, error) {
	resolved := make(Fields, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			v = now.UTC()
		}
		resolved[k] = v
	}

	b, err := json.Marshal(resolved)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	var out Fields
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if out == nil {
		out = Fields{}
	}
	return out, nil
}

// normalizeValue reduces a query value to its stored JSON form.
func normalizeValue(v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// indexKey returns the comparable text form of a scalar value. Maps, slices and
// nil are not indexed.
func indexKey(v interface{}) (string, bool) {
	switch v.(type) {
	case string, float64, bool:
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(b), true
	default:
		return "", false
	}
}

func mergeFields(existing, fields Fields, merge bool) Fields {
	out := Fields{}
	if merge {
		for k, v := range existing {
			out[k] = v
		}
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func copyFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func valuesEqual(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}

// compareValues orders two stored values. RFC3339 strings compare as instants,
// numbers numerically, everything else by text. Missing values sort first.
func compareValues(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			at, aerr := time.Parse(time.RFC3339Nano, as)
			bt, berr := time.Parse(time.RFC3339Nano, bs)
			if aerr == nil && berr == nil {
				return at.Compare(bt)
			}
			return strings.Compare(as, bs)
		}
	}
	if af, ok := a.(float64); ok {
		if bf, ok := b.(float64); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func sortDocuments(docs []*Document, field string, dir Direction) {
	if field == "" {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		c := compareValues(docs[i].Fields[field], docs[j].Fields[field])
		if dir == Desc {
			return c > 0
		}
		return c < 0
	})
}
