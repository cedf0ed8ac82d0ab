// This file implements the Database type: one owned connection addressed by
// a scheme://path URL, statement execution with bound parameters, scoped
// transactions, and the observability hooks around every statement.
package quill

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// executor is the common surface of a connection and an open transaction.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

// Database owns a single physical connection to one storage backend.
//
// Connect and Disconnect are idempotent and serialized by an internal lock.
// Individual statement executions are not synchronized; callers sharing one
// Database across goroutines must serialize access themselves.
//
// Usage example:
//
//	db, err := quill.NewDatabase("sqlite://app.db")
//	if err != nil { ... }
//	if err := db.Connect(); err != nil { ... }
//	defer db.Disconnect()
type Database struct {
	url     string
	dsn     string
	dialect Dialect

	mu sync.Mutex // guards connect/disconnect
	db *sqlx.DB
	tx *sqlx.Tx // non-nil while inside Transaction

	obs *ObservabilityConfig
}

// DatabaseOption configures a Database at construction time.
type DatabaseOption func(*Database)

// NewDatabase builds a Database for the given URL without connecting.
// The only supported scheme is sqlite://<path>.
func NewDatabase(url string, opts ...DatabaseOption) (*Database, error) {
	dialect, dsn, err := parseURL(url)
	if err != nil {
		return nil, err
	}
	d := &Database{
		url:     url,
		dsn:     dsn,
		dialect: dialect,
		obs:     defaultObservabilityConfig(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// NewDatabaseFromDB wraps an already opened *sql.DB. Intended for tests and
// for callers that manage the connection lifecycle themselves; Connect
// becomes a no-op and Disconnect closes the handle.
func NewDatabaseFromDB(db *sql.DB, dialect Dialect, opts ...DatabaseOption) *Database {
	d := &Database{
		dialect: dialect,
		db:      sqlx.NewDb(db, dialect.Name()),
		obs:     defaultObservabilityConfig(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// URL returns the backend address this Database was built from.
func (d *Database) URL() string { return d.url }

// Dialect returns the active dialect.
func (d *Database) Dialect() Dialect { return d.dialect }

// Connect establishes the connection. A no-op when already connected.
func (d *Database) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		return nil
	}
	// A handle wrapped around an external *sql.DB has no DSN to reopen.
	if d.dsn == "" {
		return ErrNotConnected
	}
	db, err := sqlx.Open(d.dialect.Name(), d.dsn)
	if err != nil {
		return &DatabaseError{Op: "connect", Err: err}
	}
	// One Database, one physical connection.
	db.SetMaxOpenConns(1)
	d.db = db
	return nil
}

// Disconnect closes the connection. A no-op when already disconnected.
func (d *Database) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	if err != nil {
		return &DatabaseError{Op: "disconnect", Err: err}
	}
	return nil
}

// ensure lazily connects the way the engine's callers expect: the first
// statement on a fresh Database opens the connection.
func (d *Database) ensure() (executor, error) {
	if d.tx != nil {
		return d.tx, nil
	}
	d.mu.Lock()
	db := d.db
	d.mu.Unlock()
	if db == nil {
		if err := d.Connect(); err != nil {
			return nil, err
		}
		d.mu.Lock()
		db = d.db
		d.mu.Unlock()
	}
	if db == nil {
		return nil, ErrNotConnected
	}
	return db, nil
}

// Result reports the outcome of a statement execution.
type Result struct {
	lastInsertID int64
	rowsAffected int64
}

// LastInsertID returns the id generated by the most recent INSERT.
func (r *Result) LastInsertID() int64 { return r.lastInsertID }

// RowsAffected returns the number of rows changed by the statement.
func (r *Result) RowsAffected() int64 { return r.rowsAffected }

// Execute runs one statement with bound parameters. Outside a transaction
// the statement commits on success; on failure nothing is retained and a
// DatabaseError wrapping the driver error is returned.
func (d *Database) Execute(ctx context.Context, query string, args ...any) (*Result, error) {
	ex, err := d.ensure()
	if err != nil {
		return nil, err
	}

	ctx, span := d.startSpan(ctx, "quill.execute")
	defer span.End()

	start := time.Now()
	res, err := ex.ExecContext(ctx, query, args...)
	elapsed := time.Since(start)

	d.recordMetrics(ctx, "exec", elapsed, err)
	d.logQuery(ctx, "exec", query, elapsed, err)

	if err != nil {
		span.RecordError(err)
		return nil, &DatabaseError{Op: "exec", Err: err}
	}

	out := &Result{}
	// Drivers may not support either; both are best effort.
	if id, err := res.LastInsertId(); err == nil {
		out.lastInsertID = id
	}
	if n, err := res.RowsAffected(); err == nil {
		out.rowsAffected = n
	}
	return out, nil
}

// ExecuteMany runs one statement once per parameter set, inside a single
// transaction so the batch commits or rolls back as a unit. When called
// inside an open transaction it joins that transaction instead.
func (d *Database) ExecuteMany(ctx context.Context, query string, paramSets [][]any) (*Result, error) {
	run := func(tx *Database) (*Result, error) {
		total := &Result{}
		for _, params := range paramSets {
			res, err := tx.Execute(ctx, query, params...)
			if err != nil {
				return nil, err
			}
			total.rowsAffected += res.rowsAffected
			total.lastInsertID = res.lastInsertID
		}
		return total, nil
	}

	if d.tx != nil {
		return run(d)
	}

	var out *Result
	err := d.Transaction(ctx, func(tx *Database) error {
		var err error
		out, err = run(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Query runs a SELECT and returns the rows.
func (d *Database) Query(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	ex, err := d.ensure()
	if err != nil {
		return nil, err
	}

	ctx, span := d.startSpan(ctx, "quill.query")
	defer span.End()

	start := time.Now()
	rows, err := ex.QueryxContext(ctx, query, args...)
	elapsed := time.Since(start)

	d.recordMetrics(ctx, "query", elapsed, err)
	d.logQuery(ctx, "query", query, elapsed, err)

	if err != nil {
		span.RecordError(err)
		return nil, &DatabaseError{Op: "query", Err: err}
	}
	return rows, nil
}

// QueryRow runs a SELECT expected to return at most one row.
func (d *Database) QueryRow(ctx context.Context, query string, args ...any) (*sqlx.Row, error) {
	ex, err := d.ensure()
	if err != nil {
		return nil, err
	}
	return ex.QueryRowxContext(ctx, query, args...), nil
}

// Get runs a SELECT and scans a single value or row into dest.
func (d *Database) Get(ctx context.Context, dest any, query string, args ...any) error {
	ex, err := d.ensure()
	if err != nil {
		return err
	}

	ctx, span := d.startSpan(ctx, "quill.get")
	defer span.End()

	start := time.Now()
	err = ex.GetContext(ctx, dest, query, args...)
	elapsed := time.Since(start)

	d.recordMetrics(ctx, "query", elapsed, err)
	d.logQuery(ctx, "query", query, elapsed, err)

	if err != nil {
		span.RecordError(err)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return &DatabaseError{Op: "query", Err: err}
	}
	return nil
}

// InTransaction reports whether this handle is bound to an open transaction.
func (d *Database) InTransaction() bool { return d.tx != nil }

// Transaction runs fn inside an explicit transaction. It commits when fn
// returns nil and rolls back (re-raising the error) otherwise, including on
// panic. The original connection mode is restored on every exit path.
//
// Nested transactions are not supported: calling Transaction on the handle
// passed to fn fails fast with ErrNestedTransaction.
func (d *Database) Transaction(ctx context.Context, fn func(tx *Database) error) (err error) {
	if d.tx != nil {
		return ErrNestedTransaction
	}

	ex, err := d.ensure()
	if err != nil {
		return err
	}
	db, ok := ex.(*sqlx.DB)
	if !ok {
		return ErrNestedTransaction
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return &DatabaseError{Op: "begin", Err: err}
	}

	txDB := &Database{
		url:     d.url,
		dsn:     d.dsn,
		dialect: d.dialect,
		db:      d.db,
		tx:      tx,
		obs:     d.obs,
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(txDB); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return &DatabaseError{Op: "commit", Err: err}
	}
	return nil
}
