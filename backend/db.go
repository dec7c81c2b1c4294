package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/etnz/planner/remote"
	"github.com/etnz/planner/storage"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrUnknownCollection  = errors.New("unknown collection")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrBlankPassword      = errors.New("password cannot be blank")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// timeFormat has a fixed width so that stamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000Z07:00"

// User is an account of the backend.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// DB keeps the records of every collection as JSON documents, one row per
// record, next to the users table.
type DB struct {
	db       *sql.DB
	postgres bool
	cost     int
	now      func() time.Time
}

// DBOption configures a DB.
type DBOption func(*DB)

// WithPasswordCost sets the bcrypt cost of password hashes.
func WithPasswordCost(cost int) DBOption {
	return func(d *DB) { d.cost = cost }
}

// Open opens the database and creates the tables if needed. driver is
// "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string, opts ...DBOption) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	d, err := New(ctx, db, driver, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// New returns a DB on an open database and creates the tables if needed.
func New(ctx context.Context, db *sql.DB, driver string, opts ...DBOption) (*DB, error) {
	d := &DB{db: db, postgres: driver == "postgres", cost: bcrypt.DefaultCost, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		)`,
		`CREATE INDEX IF NOT EXISTS records_owner ON records (collection, user_id)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("cannot migrate database: %w", err)
		}
	}
	return d, nil
}

// Close closes the database.
func (d *DB) Close() error { return d.db.Close() }

func (d *DB) bind(query string) string { return storage.Rebind(d.postgres, query) }

func (d *DB) stamp() string { return d.now().UTC().Format(timeFormat) }

// Register creates a user. The email is case insensitive.
func (d *DB) Register(ctx context.Context, email, password string) (User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" {
		return User{}, ErrInvalidEmail
	}
	if strings.TrimSpace(password) == "" {
		return User{}, ErrBlankPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return User{}, fmt.Errorf("cannot hash password: %w", err)
	}
	u := User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(addr.Address),
		PasswordHash: string(hash),
		CreatedAt:    d.now().UTC(),
	}

	if _, err := d.userByEmail(ctx, u.Email); err == nil {
		return User{}, ErrEmailExists
	} else if !errors.Is(err, sql.ErrNoRows) {
		return User{}, err
	}
	query := `INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`
	if _, err := d.db.ExecContext(ctx, d.bind(query), u.ID, u.Email, u.PasswordHash, u.CreatedAt.Format(timeFormat)); err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailExists
		}
		return User{}, fmt.Errorf("cannot create user: %w", err)
	}
	return u, nil
}

// isUniqueViolation reports whether err is a failed UNIQUE constraint, as
// when two registrations of an email race past the lookup.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	var liteErr *sqlite.Error
	return errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// Authenticate returns the user with that email if the password matches.
func (d *DB) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := d.userByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (d *DB) userByEmail(ctx context.Context, email string) (User, error) {
	var u User
	var created string
	query := `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`
	err := d.db.QueryRowContext(ctx, d.bind(query), email).Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if err != nil {
		return User{}, err
	}
	u.CreatedAt, _ = time.Parse(timeFormat, created)
	return u, nil
}

func schemaOf(collection string) (remote.Schema, error) {
	s, ok := remote.Schemas[collection]
	if !ok {
		return remote.Schema{}, fmt.Errorf("%q: %w", collection, ErrUnknownCollection)
	}
	return s, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner, userID string) (remote.Record, error) {
	var id, data, created, updated string
	if err := s.Scan(&id, &data, &created, &updated); err != nil {
		return nil, err
	}
	r := remote.Record{}
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("corrupted record %q: %w", id, err)
	}
	r[remote.FieldID] = id
	r[remote.FieldUserID] = userID
	r[remote.FieldCreatedAt] = created
	r[remote.FieldUpdatedAt] = updated
	return r, nil
}

// userData returns the client owned fields of r.
func userData(r remote.Record) remote.Record {
	data := r.Clone()
	if data == nil {
		data = remote.Record{}
	}
	delete(data, remote.FieldID)
	delete(data, remote.FieldUserID)
	delete(data, remote.FieldCreatedAt)
	delete(data, remote.FieldUpdatedAt)
	return data
}

// Select returns the records of a user matching q, at most limit of them
// when limit > 0. Without order records come in creation order.
func (d *DB) Select(ctx context.Context, collection, userID string, q *remote.Query, limit int) ([]remote.Record, error) {
	if _, err := schemaOf(collection); err != nil {
		return nil, err
	}
	query := `SELECT id, data, created_at, updated_at FROM records
		WHERE collection = ? AND user_id = ? ORDER BY created_at, id`
	rows, err := d.db.QueryContext(ctx, d.bind(query), collection, userID)
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", collection, err)
	}
	defer rows.Close()

	var all []remote.Record
	for rows.Next() {
		r, err := scanRecord(rows, userID)
		if err != nil {
			return nil, err
		}
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if q == nil {
		q = new(remote.Query)
	}
	out := q.Apply(all, limit)
	if out == nil {
		out = []remote.Record{}
	}
	return out, nil
}

// Get returns a record of a user, or remote.ErrNotFound.
func (d *DB) Get(ctx context.Context, collection, userID, id string) (remote.Record, error) {
	if _, err := schemaOf(collection); err != nil {
		return nil, err
	}
	query := `SELECT id, data, created_at, updated_at FROM records
		WHERE collection = ? AND user_id = ? AND id = ?`
	r, err := scanRecord(d.db.QueryRowContext(ctx, d.bind(query), collection, userID, id), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %q: %w", collection, id, remote.ErrNotFound)
	}
	return r, err
}

// Create validates data against the collection schema and stores it under a
// new id.
func (d *DB) Create(ctx context.Context, collection, userID string, data remote.Record) (remote.Record, error) {
	schema, err := schemaOf(collection)
	if err != nil {
		return nil, err
	}
	data = userData(data)
	if err := schema.Validate(data, false); err != nil {
		return nil, err
	}
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("cannot encode record: %w", err)
	}
	id, now := uuid.NewString(), d.stamp()
	query := `INSERT INTO records (collection, id, user_id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := d.db.ExecContext(ctx, d.bind(query), collection, id, userID, string(content), now, now); err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", collection, err)
	}
	return d.Get(ctx, collection, userID, id)
}

// Update merges patch into a record of a user.
func (d *DB) Update(ctx context.Context, collection, userID, id string, patch remote.Record) (remote.Record, error) {
	schema, err := schemaOf(collection)
	if err != nil {
		return nil, err
	}
	patch = userData(patch)
	if err := schema.Validate(patch, true); err != nil {
		return nil, err
	}
	r, err := d.Get(ctx, collection, userID, id)
	if err != nil {
		return nil, err
	}
	data := userData(r)
	for k, v := range patch {
		data[k] = v
	}
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("cannot encode record: %w", err)
	}
	query := `UPDATE records SET data = ?, updated_at = ? WHERE collection = ? AND user_id = ? AND id = ?`
	if _, err := d.db.ExecContext(ctx, d.bind(query), string(content), d.stamp(), collection, userID, id); err != nil {
		return nil, fmt.Errorf("cannot update %s %q: %w", collection, id, err)
	}
	return d.Get(ctx, collection, userID, id)
}

// Upsert updates the record whose conflictKey field equals the one of data,
// or creates it.
func (d *DB) Upsert(ctx context.Context, collection, userID string, data remote.Record, conflictKey string) (remote.Record, error) {
	if conflictKey == "" {
		conflictKey = remote.FieldID
	}
	if v, ok := data[conflictKey]; ok && v != nil {
		found, err := d.Select(ctx, collection, userID, new(remote.Query).Eq(conflictKey, v), 1)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return d.Update(ctx, collection, userID, found[0].ID(), data)
		}
	}
	return d.Create(ctx, collection, userID, data)
}

// Delete removes a record of a user. Deleting an absent record succeeds.
func (d *DB) Delete(ctx context.Context, collection, userID, id string) error {
	if _, err := schemaOf(collection); err != nil {
		return err
	}
	query := `DELETE FROM records WHERE collection = ? AND user_id = ? AND id = ?`
	if _, err := d.db.ExecContext(ctx, d.bind(query), collection, userID, id); err != nil {
		return fmt.Errorf("cannot delete %s %q: %w", collection, id, err)
	}
	return nil
}

// DeleteWhere removes every record of a user matching q.
func (d *DB) DeleteWhere(ctx context.Context, collection, userID string, q *remote.Query) error {
	if len(q.Filters) == 0 {
		return fmt.Errorf("cannot delete every %s at once", collection)
	}
	found, err := d.Select(ctx, collection, userID, q, 0)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(found))
	for _, r := range found {
		ids = append(ids, r.ID())
	}
	slices.Sort(ids)

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	query := d.bind(`DELETE FROM records WHERE collection = ? AND user_id = ? AND id = ?`)
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, query, collection, userID, id); err != nil {
			return fmt.Errorf("cannot delete %s %q: %w", collection, id, err)
		}
	}
	return tx.Commit()
}
