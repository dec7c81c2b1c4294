package planner

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultDebounce is the delay after the last keystroke before a field is
// committed.
const DefaultDebounce = 500 * time.Millisecond

// CommitFunc persists a sanitized ledger. It is typically [Store.Committer].
type CommitFunc func(MonthlyLedger) error

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithDebounce sets the debounce delay of every field.
func WithDebounce(d time.Duration) EditorOption {
	return func(e *Editor) { e.delay = d }
}

// WithLogger sets the logger used to report commits and failed commits.
func WithLogger(l *logrus.Logger) EditorOption {
	return func(e *Editor) { e.log = l }
}

// WithErrorHandler sets a function called with the error of every commit
// that failed in the background (a debounce that fired).
func WithErrorHandler(f func(error)) EditorOption {
	return func(e *Editor) { e.onError = f }
}

// Editor holds the ledger of one month while it is being edited.
//
// Keystrokes are applied immediately to the view ledger, and committed
// (sanitized then persisted) once the field has been quiet for the debounce
// delay, or synchronously on blur or Enter. Each cell has its own debounce
// timer so edits to different cells never cancel each other.
//
// Editor is safe for concurrent use.
type Editor struct {
	mu        sync.Mutex
	view      MonthlyLedger // what is displayed, drafts included
	committed MonthlyLedger // what has been sanitized and persisted
	pending   map[string]*draft

	delay   time.Duration
	commit  CommitFunc
	log     *logrus.Logger
	onError func(error)
}

// draft is a cell edit waiting for its debounce.
type draft struct {
	kind  TableKind
	id    string
	field Field
	raw   string
	timer *time.Timer
}

func draftKey(kind TableKind, id string, field Field) string {
	return fmt.Sprintf("%s:%s:%s", kind, id, field)
}

// NewEditor returns an editor over a copy of l. commit is called with the
// whole sanitized ledger every time a cell, a new row or a deletion is
// committed.
func NewEditor(l MonthlyLedger, commit CommitFunc, opts ...EditorOption) *Editor {
	e := &Editor{
		view:      l.Clone(),
		committed: l.Clone(),
		pending:   make(map[string]*draft),
		delay:     DefaultDebounce,
		commit:    commit,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = orDiscard(e.log)
	return e
}

// Ledger returns a copy of the displayed ledger, uncommitted drafts included.
func (e *Editor) Ledger() MonthlyLedger {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.Clone()
}

// Committed returns a copy of the last committed ledger.
func (e *Editor) Committed() MonthlyLedger {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.committed.Clone()
}

// Pending returns the number of cells waiting for their debounce.
func (e *Editor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Type records a keystroke: raw is the full content of the cell. The view
// is updated at once and the commit is (re)scheduled after the debounce
// delay.
func (e *Editor) Type(kind TableKind, id string, field Field, raw string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.view.Table(kind)
	i := t.Find(id)
	if i < 0 {
		return fmt.Errorf("cannot edit %s of %q: %w", field, id, ErrUnknownRow)
	}
	if t[i].Locked {
		return fmt.Errorf("cannot edit %s of %q: %w", field, id, ErrLockedRow)
	}
	t = slices.Clone(t)
	switch field {
	case Label:
		t[i].Label = raw // sanitized on commit
	case Planned:
		t[i].Planned, _ = ParseAmount(raw)
	case Actual:
		t[i].Actual, _ = ParseAmount(raw)
	}
	e.view = e.view.WithTable(kind, t)

	key := draftKey(kind, id, field)
	if old, ok := e.pending[key]; ok {
		old.timer.Stop()
	}
	d := &draft{kind: kind, id: id, field: field, raw: raw}
	d.timer = time.AfterFunc(e.delay, func() { e.fire(key, d) })
	e.pending[key] = d
	return nil
}

// fire commits d if it is still the pending draft of its cell.
func (e *Editor) fire(key string, d *draft) {
	e.mu.Lock()
	if e.pending[key] != d {
		// superseded by a newer keystroke or already committed by a blur.
		e.mu.Unlock()
		return
	}
	delete(e.pending, key)
	err := e.commitDraft(d)
	e.mu.Unlock()

	if err != nil && e.onError != nil {
		e.onError(err)
	}
}

// Blur commits the pending edit of that cell synchronously. It is a no-op
// when the cell has no pending edit.
func (e *Editor) Blur(kind TableKind, id string, field Field) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := draftKey(kind, id, field)
	d, ok := e.pending[key]
	if !ok {
		return nil
	}
	d.timer.Stop()
	delete(e.pending, key)
	return e.commitDraft(d)
}

// Enter is the same as Blur.
func (e *Editor) Enter(kind TableKind, id string, field Field) error {
	return e.Blur(kind, id, field)
}

// Flush commits every pending edit, in a stable order.
func (e *Editor) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]string, 0, len(e.pending))
	for k := range e.pending {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var errs []error
	for _, k := range keys {
		d := e.pending[k]
		d.timer.Stop()
		delete(e.pending, k)
		if err := e.commitDraft(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// commitDraft sanitizes and persists one cell. e.mu must be held.
func (e *Editor) commitDraft(d *draft) error {
	committed, err := e.committed.UpdateCell(d.kind, d.id, d.field, d.raw)
	if err != nil {
		e.log.WithError(err).WithField("cell", draftKey(d.kind, d.id, d.field)).Warn("edit dropped")
		return err
	}
	// the view gets the sanitized value too.
	view, err := e.view.UpdateCell(d.kind, d.id, d.field, d.raw)
	if err == nil {
		e.view = view
	}
	return e.persist(committed)
}

// persist sets the committed ledger and calls the commit function. e.mu must
// be held.
func (e *Editor) persist(l MonthlyLedger) error {
	e.committed = l
	if e.commit == nil {
		return nil
	}
	if err := e.commit(l.Clone()); err != nil {
		e.log.WithError(err).Error("cannot persist ledger")
		return fmt.Errorf("cannot persist ledger: %w", err)
	}
	e.log.Debug("ledger committed")
	return nil
}

// AddRow appends an empty row to the table of that kind and commits it at
// once.
func (e *Editor) AddRow(kind TableKind) (Row, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	committed, row := e.committed.AddRow(kind)
	e.view = e.view.WithTable(kind, append(slices.Clone(e.view.Table(kind)), row))
	return row, e.persist(committed)
}

// PendingDelete is a deletion waiting for the user's confirmation.
type PendingDelete struct {
	Kind  TableKind
	Row   Row // the row as displayed when the deletion was requested
	e     *Editor
	done  bool
	mutex sync.Mutex
}

// RequestDelete prepares the deletion of a row. Nothing changes until
// Confirm is called on the result.
func (e *Editor) RequestDelete(kind TableKind, id string) (*PendingDelete, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.view.Table(kind)
	i := t.Find(id)
	if i < 0 {
		return nil, fmt.Errorf("cannot delete %q: %w", id, ErrUnknownRow)
	}
	if t[i].Locked {
		return nil, fmt.Errorf("cannot delete %q: %w", id, ErrLockedRow)
	}
	return &PendingDelete{Kind: kind, Row: t[i], e: e}, nil
}

// Prompt returns the question to ask the user.
func (p *PendingDelete) Prompt() string {
	if p.Row.Label == "" {
		return fmt.Sprintf("Delete this %s row?", p.Kind)
	}
	return fmt.Sprintf("Delete %s row %q?", p.Kind, p.Row.Label)
}

// Confirm deletes the row, drops its pending edits and commits. Confirming
// twice, or after Cancel, is a no-op.
func (p *PendingDelete) Confirm() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.done {
		return nil
	}
	p.done = true

	e := p.e
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, f := range []Field{Label, Planned, Actual} {
		key := draftKey(p.Kind, p.Row.ID, f)
		if d, ok := e.pending[key]; ok {
			d.timer.Stop()
			delete(e.pending, key)
		}
	}
	committed, err := e.committed.DeleteRow(p.Kind, p.Row.ID)
	if err != nil {
		return err
	}
	if view, err := e.view.DeleteRow(p.Kind, p.Row.ID); err == nil {
		e.view = view
	}
	return e.persist(committed)
}

// Cancel abandons the deletion.
func (p *PendingDelete) Cancel() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.done = true
}
