// Package store provides the SQL-backed position store for tours, days, items
// and linked records. SQLite (mattn/go-sqlite3) and Postgres (pgx) are supported.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/tourdesk/internal/apperr"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

const baseSchemaSQL = `
CREATE TABLE IF NOT EXISTS tours (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	start_date TEXT NOT NULL DEFAULT '',
	end_date   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tour_days (
	id                 TEXT PRIMARY KEY,
	tour_id            TEXT NOT NULL REFERENCES tours(id) ON DELETE CASCADE,
	calendar_date      TEXT NOT NULL,
	logical_day_number INTEGER NOT NULL,
	title              TEXT NOT NULL DEFAULT '',
	description        TEXT NOT NULL DEFAULT '',
	schedule           TEXT NOT NULL DEFAULT '',
	notes              TEXT NOT NULL DEFAULT '',
	tastes_ids         TEXT NOT NULL DEFAULT '[]',
	routes_ids         TEXT NOT NULL DEFAULT '[]',
	hotel_id           TEXT NOT NULL DEFAULT '',
	ticket_ids         TEXT NOT NULL DEFAULT '[]',
	created_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP{{day_order}}
);

CREATE INDEX IF NOT EXISTS idx_tour_days_tour ON tour_days(tour_id, logical_day_number);

CREATE TABLE IF NOT EXISTS day_items (
	id          TEXT PRIMARY KEY,
	day_id      TEXT NOT NULL REFERENCES tour_days(id) ON DELETE CASCADE,
	tour_id     TEXT NOT NULL,
	item_type   TEXT NOT NULL,
	position    INTEGER NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	start_time  TEXT NOT NULL DEFAULT '',
	end_time    TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	notes       TEXT NOT NULL DEFAULT '',
	color       TEXT NOT NULL DEFAULT '',
	tastes_id   TEXT NOT NULL DEFAULT '',
	routes_id   TEXT NOT NULL DEFAULT '',
	stay_id     TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP{{item_order}}
);

CREATE INDEX IF NOT EXISTS idx_day_items_day ON day_items(day_id, position);
CREATE INDEX IF NOT EXISTS idx_day_items_tour ON day_items(tour_id);

CREATE TABLE IF NOT EXISTS linked_records (
	kind        TEXT NOT NULL,
	id          TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	url         TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	attributes  TEXT NOT NULL DEFAULT '{}',
	source_path TEXT NOT NULL DEFAULT '',
	checksum    TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (kind, id)
);

CREATE INDEX IF NOT EXISTS idx_linked_source ON linked_records(source_path);
`

// SQLite cannot defer a unique check, and renumbering passes move rows through
// transient duplicates, so ordering keys are unique on Postgres only.
var sqliteSchemaSQL = strings.NewReplacer(
	"{{day_order}}", "",
	"{{item_order}}", "",
).Replace(baseSchemaSQL)

var postgresSchemaSQL = strings.NewReplacer(
	"TIMESTAMP NOT NULL", "TIMESTAMPTZ NOT NULL",
	"{{day_order}}", ",\n\tCONSTRAINT uq_tour_days_order UNIQUE (tour_id, logical_day_number) DEFERRABLE INITIALLY DEFERRED",
	"{{item_order}}", ",\n\tCONSTRAINT uq_day_items_order UNIQUE (day_id, position) DEFERRABLE INITIALLY DEFERRED",
).Replace(baseSchemaSQL)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// rebind rewrites '?' placeholders to '$n' for Postgres.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// forUpdate returns the row-lock suffix for container locks.
func (d dialect) forUpdate() string {
	if d == dialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries implements Repo over either the pool or a transaction.
type Queries struct {
	q       querier
	dialect dialect
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.q.ExecContext(ctx, q.dialect.rebind(query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.q.QueryContext(ctx, q.dialect.rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.q.QueryRowContext(ctx, q.dialect.rebind(query), args...)
}

// DB wraps a sql.DB with position-store operations.
type DB struct {
	*Queries
	conn *sql.DB
}

// Open opens (or creates) the database for driver and applies the schema.
// For SQLite, write transactions take the database lock up front so that
// concurrent renumbering passes are serialised.
func Open(driver, dsn string) (*DB, error) {
	var (
		d      dialect
		schema string
	)
	switch driver {
	case DriverSQLite, "":
		driver, d, schema = DriverSQLite, dialectSQLite, sqliteSchemaSQL
		dsn = withParams(dsn, "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	case DriverPostgres:
		d, schema = dialectPostgres, postgresSchemaSQL
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("store: apply schema: %w", err)
		}
	}
	return &DB{Queries: &Queries{q: conn, dialect: d}, conn: conn}, nil
}

func withParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}

// InTx runs fn inside a single transaction.
func (db *DB) InTx(ctx context.Context, fn func(Repo) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Store("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&Queries{q: tx, dialect: db.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.Store("commit", err)
	}
	return nil
}

// Ping checks database connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
