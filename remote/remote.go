// Package remote is the client side of the remote entity collaborator: the
// backend that owns habits, tasks, budgets and the other entities of a user.
//
// Every entity type is a Collection of loosely typed Records. Three
// implementations are provided: Client talks to the HTTP API, Memory keeps
// records in memory (tests, local sessions) and Offline fails every call.
package remote

import (
	"context"
	"fmt"
	"maps"
	"strconv"
)

// Record is one entity as exchanged with the backend. The backend stamps the
// "id", "user_id", "created_at" and "updated_at" fields.
type Record map[string]any

// System fields, stamped by the backend.
const (
	FieldID        = "id"
	FieldUserID    = "user_id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// ID returns the record id as a string.
func (r Record) ID() string { return r.String(FieldID) }

// String returns a field formatted as a string, "" when absent.
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Float returns a numeric field. Numeric strings are accepted.
func (r Record) Float(field string) (float64, bool) {
	return toFloat(r[field])
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// CloneAll returns a copy of every record.
func CloneAll(rs []Record) []Record {
	if rs == nil {
		return nil
	}
	out := make([]Record, len(rs))
	for i, r := range rs {
		out[i] = r.Clone()
	}
	return out
}

// Collection is the CRUD contract of one entity type, scoped to the
// authenticated user. Every call may fail and callers must handle it.
type Collection interface {
	// Name returns the collection name, such as "tasks".
	Name() string
	// List returns the records sorted by sort ("field" ascending, "-field"
	// descending, "" for the backend order), at most limit of them when
	// limit > 0.
	List(ctx context.Context, sort string, limit int) ([]Record, error)
	// Select returns the records matching the query built by opts.Build.
	Select(ctx context.Context, opts SelectOptions) ([]Record, error)
	// Get returns a record by id, or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)
	// Create inserts data and returns the stored record with its id. It
	// fails with ErrAuthRequired when there is no user session.
	Create(ctx context.Context, data Record) (Record, error)
	// Update merges data into the record with that id.
	Update(ctx context.Context, id string, data Record) (Record, error)
	// Upsert inserts data, or merges it into the record having the same
	// value for conflictKey ("id" when empty).
	Upsert(ctx context.Context, data Record, conflictKey string) (Record, error)
	// Delete removes the record with that id.
	Delete(ctx context.Context, id string) error
	// DeleteBy removes every record whose field equals value.
	DeleteBy(ctx context.Context, field string, value any) error
}
