package remote

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a Collection held in memory. It stamps records the way the
// backend does and validates them against the collection schema when one is
// known. Failures can be injected with Fail.
//
// Memory is safe for concurrent use.
type Memory struct {
	name   string
	schema *Schema

	mu       sync.Mutex
	userID   string
	records  []Record
	failures map[string]error
	now      func() time.Time
}

// NewMemory returns an empty collection owned by userID. An empty userID
// means there is no session: Create fails with ErrAuthRequired.
func NewMemory(name, userID string) *Memory {
	m := &Memory{name: name, userID: userID, failures: make(map[string]error), now: time.Now}
	if s, ok := Schemas[name]; ok {
		m.schema = &s
	}
	return m
}

// Operation names accepted by Fail.
const (
	OpList     = "list"
	OpSelect   = "select"
	OpGet      = "get"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpUpsert   = "upsert"
	OpDelete   = "delete"
	OpDeleteBy = "deleteBy"
	OpAll      = "*"
)

// Fail makes every following call of op fail with err, OpAll for every
// operation. A nil err removes the failure.
func (m *Memory) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

func (m *Memory) failure(op string) error {
	if err, ok := m.failures[op]; ok {
		return err
	}
	return m.failures[OpAll]
}

// Records returns a copy of the stored records.
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return CloneAll(m.records)
}

func (m *Memory) Name() string { return m.name }

func (m *Memory) List(_ context.Context, sort string, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpList); err != nil {
		return nil, err
	}
	q := &Query{Order: sort}
	return CloneAll(q.Apply(m.records, limit)), nil
}

func (m *Memory) Select(_ context.Context, opts SelectOptions) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpSelect); err != nil {
		return nil, err
	}
	return CloneAll(opts.Query().Apply(m.records, opts.Limit)), nil
}

func (m *Memory) Get(_ context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpGet); err != nil {
		return nil, err
	}
	i := m.find(FieldID, id)
	if i < 0 {
		return nil, fmt.Errorf("%s %q: %w", m.name, id, ErrNotFound)
	}
	return m.records[i].Clone(), nil
}

func (m *Memory) Create(_ context.Context, data Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userID == "" {
		return nil, ErrAuthRequired
	}
	if err := m.failure(OpCreate); err != nil {
		return nil, err
	}
	return m.insert(data)
}

// insert validates and stamps data then appends it. m.mu must be held.
func (m *Memory) insert(data Record) (Record, error) {
	r := data.Clone()
	if r == nil {
		r = Record{}
	}
	// server-owned fields are never taken from the client.
	delete(r, FieldID)
	delete(r, FieldUserID)
	if err := m.validate(r, false); err != nil {
		return nil, err
	}
	now := m.now().UTC().Format(time.RFC3339Nano)
	r[FieldID] = uuid.NewString()
	r[FieldUserID] = m.userID
	r[FieldCreatedAt] = now
	r[FieldUpdatedAt] = now
	m.records = append(m.records, r)
	return r.Clone(), nil
}

func (m *Memory) Update(_ context.Context, id string, data Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpUpdate); err != nil {
		return nil, err
	}
	i := m.find(FieldID, id)
	if i < 0 {
		return nil, fmt.Errorf("%s %q: %w", m.name, id, ErrNotFound)
	}
	return m.merge(i, data)
}

// merge validates data and merges it into the record i. m.mu must be held.
func (m *Memory) merge(i int, data Record) (Record, error) {
	patch := data.Clone()
	delete(patch, FieldID)
	delete(patch, FieldUserID)
	delete(patch, FieldCreatedAt)
	if err := m.validate(patch, true); err != nil {
		return nil, err
	}
	r := m.records[i].Clone()
	for k, v := range patch {
		r[k] = v
	}
	r[FieldUpdatedAt] = m.now().UTC().Format(time.RFC3339Nano)
	m.records[i] = r
	return r.Clone(), nil
}

func (m *Memory) Upsert(_ context.Context, data Record, conflictKey string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userID == "" {
		return nil, ErrAuthRequired
	}
	if err := m.failure(OpUpsert); err != nil {
		return nil, err
	}
	if conflictKey == "" {
		conflictKey = FieldID
	}
	if v, ok := data[conflictKey]; ok {
		if i := m.find(conflictKey, v); i >= 0 {
			return m.merge(i, data)
		}
	}
	return m.insert(data)
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpDelete); err != nil {
		return err
	}
	m.records = slices.DeleteFunc(m.records, func(r Record) bool { return r.ID() == id })
	return nil
}

func (m *Memory) DeleteBy(_ context.Context, field string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpDeleteBy); err != nil {
		return err
	}
	f := Filter{Field: field, Op: OpEq, Value: value}
	m.records = slices.DeleteFunc(m.records, f.Match)
	return nil
}

func (m *Memory) find(field string, value any) int {
	f := Filter{Field: field, Op: OpEq, Value: value}
	return slices.IndexFunc(m.records, f.Match)
}

func (m *Memory) validate(r Record, partial bool) error {
	if m.schema == nil {
		return nil
	}
	return m.schema.Validate(r, partial)
}
