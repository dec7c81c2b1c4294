package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/etnz/planner/remote"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TempIDPrefix starts the ids given to records inserted optimistically,
// before the backend assigns the real one.
const TempIDPrefix = "tmp-"

// ErrTemporaryID is returned by a mutation keyed by a temporary id whose
// insert never committed.
var ErrTemporaryID = errors.New("temporary id was never committed")

// IsTempID reports whether id is a temporary id.
func IsTempID(id string) bool { return strings.HasPrefix(id, TempIDPrefix) }

// MutationState is the state of an optimistic mutation.
type MutationState int

const (
	Idle MutationState = iota
	Pending
	Committed
	RolledBack
)

func (s MutationState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// MutationKind is the kind of change applied by a mutation.
type MutationKind string

const (
	InsertMutation MutationKind = "insert"
	UpdateMutation MutationKind = "update"
	RemoveMutation MutationKind = "remove"
)

// Mutation describes a state change of an optimistic mutation.
type Mutation struct {
	Collection string
	Kind       MutationKind
	ID         string // temporary id for a pending insert
	State      MutationState
	Err        error // the remote error of a rolled back mutation
}

// Cache is the local copy of a remote collection, as displayed. It is safe
// for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	records []remote.Record
}

// NewCache returns a cache holding a copy of rs.
func NewCache(rs []remote.Record) *Cache {
	return &Cache{records: remote.CloneAll(rs)}
}

// Records returns a copy of the cached records, in order.
func (c *Cache) Records() []remote.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return remote.CloneAll(c.records)
}

// Get returns the cached record with that id.
func (c *Cache) Get(id string) (remote.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.index(id); i >= 0 {
		return c.records[i].Clone(), true
	}
	return nil, false
}

// Replace sets the whole content of the cache.
func (c *Cache) Replace(rs []remote.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = remote.CloneAll(rs)
}

func (c *Cache) index(id string) int {
	return slices.IndexFunc(c.records, func(r remote.Record) bool { return r.ID() == id })
}

func (c *Cache) append(r remote.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, r.Clone())
}

// put replaces the record with id by r, if present.
func (c *Cache) put(id string, r remote.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(id); i >= 0 {
		c.records[i] = r.Clone()
	}
}

// remove removes the record with id and returns its former position.
func (c *Cache) remove(id string) (int, remote.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return -1, nil
	}
	r := c.records[i]
	c.records = slices.Delete(c.records, i, i+1)
	return i, r
}

// insertAt puts r back at position i, or at the end when i is out of range.
func (c *Cache) insertAt(i int, r remote.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i > len(c.records) {
		i = len(c.records)
	}
	c.records = slices.Insert(c.records, i, r)
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithOrder sets the order used to refetch the collection on settle.
func WithOrder(sort string) CoordinatorOption {
	return func(c *Coordinator) { c.sort = sort }
}

// WithFilter restricts the records refetched on settle to the ones matching
// the query built by build.
func WithFilter(build func(*remote.Query)) CoordinatorOption {
	return func(c *Coordinator) { c.filter = build }
}

// WithStateHook sets a function called on every state change of a mutation.
func WithStateHook(f func(Mutation)) CoordinatorOption {
	return func(c *Coordinator) { c.hook = f }
}

// WithCoordinatorLogger sets the logger of the coordinator.
func WithCoordinatorLogger(l *logrus.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.log = l }
}

// Coordinator applies mutations to a remote collection optimistically.
//
// Each mutation is applied to the cache first, then sent to the remote. It
// is undone when the remote refuses it, and the cache is refetched from the
// remote in every case (settle) so that it never keeps a write the remote
// has not accepted.
type Coordinator struct {
	col    remote.Collection
	cache  *Cache
	sort   string
	filter func(*remote.Query)
	hook   func(Mutation)
	log    *logrus.Logger

	mu      sync.Mutex
	tempIDs map[string]string // temporary id -> real id of committed inserts
	recent  []string          // keys of tempIDs, oldest first
}

// maxTempIDs is the number of committed temporary ids a coordinator still
// resolves. Older ones fail with ErrTemporaryID.
const maxTempIDs = 256

// NewCoordinator returns a coordinator of col displayed through cache.
func NewCoordinator(col remote.Collection, cache *Cache, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{col: col, cache: cache, tempIDs: make(map[string]string)}
	for _, opt := range opts {
		opt(c)
	}
	c.log = orDiscard(c.log)
	return c
}

// Cache returns the cache of the coordinator.
func (c *Coordinator) Cache() *Cache { return c.cache }

func (c *Coordinator) notify(m Mutation) {
	c.log.WithFields(logrus.Fields{
		"collection": m.Collection,
		"kind":       m.Kind,
		"id":         m.ID,
		"state":      m.State,
	}).Debug("mutation")
	if c.hook != nil {
		c.hook(m)
	}
}

// resolve translates a temporary id into the id assigned by the remote. The
// temporary id of a pending, rolled back or old insert is not resolved.
func (c *Coordinator) resolve(id string) (string, error) {
	if !IsTempID(id) {
		return id, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if committed := c.tempIDs[id]; committed != "" {
		return committed, nil
	}
	return "", fmt.Errorf("%q: %w", id, ErrTemporaryID)
}

func (c *Coordinator) remember(tmp, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tempIDs[tmp] = id
	c.recent = append(c.recent, tmp)
	if len(c.recent) > maxTempIDs {
		delete(c.tempIDs, c.recent[0])
		c.recent = c.recent[1:]
	}
}

// Settle refetches the collection into the cache. A failed refetch leaves
// the cache as is.
func (c *Coordinator) Settle(ctx context.Context) error {
	rs, err := c.fetch(ctx)
	if err != nil {
		c.log.WithError(err).WithField("collection", c.col.Name()).Warn("cannot settle cache")
		return err
	}
	c.cache.Replace(rs)
	return nil
}

func (c *Coordinator) fetch(ctx context.Context) ([]remote.Record, error) {
	if c.filter == nil {
		return c.col.List(ctx, c.sort, 0)
	}
	rs, err := c.col.Select(ctx, remote.SelectOptions{Build: c.filter})
	if err != nil {
		return nil, err
	}
	remote.Sort(rs, c.sort)
	return rs, nil
}

// Insert adds a record. The cache shows it at once under a temporary id,
// replaced by the real record once the remote accepts it.
func (c *Coordinator) Insert(ctx context.Context, data remote.Record) (remote.Record, error) {
	tmp := TempIDPrefix + uuid.NewString()
	tentative := data.Clone()
	if tentative == nil {
		tentative = remote.Record{}
	}
	tentative[remote.FieldID] = tmp

	m := Mutation{Collection: c.col.Name(), Kind: InsertMutation, ID: tmp, State: Pending}
	c.cache.append(tentative)
	c.notify(m)

	payload := data.Clone()
	delete(payload, remote.FieldID)
	created, err := c.col.Create(ctx, payload)
	if err != nil {
		c.cache.remove(tmp)
		m.State, m.Err = RolledBack, err
		c.notify(m)
		_ = c.Settle(ctx)
		return nil, err
	}

	c.remember(tmp, created.ID())
	c.cache.put(tmp, created)
	m.State, m.ID = Committed, created.ID()
	c.notify(m)
	_ = c.Settle(ctx)
	return created, nil
}

// Update merges patch into the record with that id, which may be the
// temporary id of a committed insert.
func (c *Coordinator) Update(ctx context.Context, id string, patch remote.Record) (remote.Record, error) {
	id, err := c.resolve(id)
	if err != nil {
		return nil, err
	}
	m := Mutation{Collection: c.col.Name(), Kind: UpdateMutation, ID: id, State: Pending}

	prev, cached := c.cache.Get(id)
	if cached {
		tentative := prev.Clone()
		for k, v := range patch {
			tentative[k] = v
		}
		tentative[remote.FieldID] = id
		c.cache.put(id, tentative)
	}
	c.notify(m)

	updated, err := c.col.Update(ctx, id, patch)
	if err != nil {
		if cached {
			c.cache.put(id, prev)
		}
		m.State, m.Err = RolledBack, err
		c.notify(m)
		_ = c.Settle(ctx)
		return nil, err
	}
	c.cache.put(id, updated)
	m.State = Committed
	c.notify(m)
	_ = c.Settle(ctx)
	return updated, nil
}

// Remove deletes the record with that id, which may be the temporary id of
// a committed insert.
func (c *Coordinator) Remove(ctx context.Context, id string) error {
	id, err := c.resolve(id)
	if err != nil {
		return err
	}
	m := Mutation{Collection: c.col.Name(), Kind: RemoveMutation, ID: id, State: Pending}
	pos, prev := c.cache.remove(id)
	c.notify(m)

	if err := c.col.Delete(ctx, id); err != nil {
		if prev != nil {
			c.cache.insertAt(pos, prev)
		}
		m.State, m.Err = RolledBack, err
		c.notify(m)
		_ = c.Settle(ctx)
		return err
	}
	m.State = Committed
	c.notify(m)
	_ = c.Settle(ctx)
	return nil
}
