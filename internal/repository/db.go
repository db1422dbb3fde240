package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/clearstone/finportal/internal/common"
)

// Dialect selects placeholder and type handling for the backing database.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Store wraps the shared database handle and its dialect.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to PostgreSQL through a pgx pool and exposes it as *sql.DB.
func Open(ctx context.Context, cfg common.DatabaseConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, common.NewAppError("DB_CONFIG_ERROR", "invalid database DSN", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.ConnConfig.ConnectTimeout = cfg.DialTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, common.NewAppError("DB_CONNECT_ERROR", "failed to create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, common.NewAppError("DB_PING_ERROR", "database unreachable", err)
	}
	return &Store{db: stdlib.OpenDBFromPool(pool), dialect: DialectPostgres}, nil
}

// OpenMemory opens an in-memory SQLite database, used by the -inmem flag and
// tests. A single connection keeps every statement on the same memory store.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, common.NewAppError("DB_CONNECT_ERROR", "failed to open in-memory database", err)
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db, dialect: DialectSQLite}, nil
}

// Close releases the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema when it does not exist yet.
//
// The ent definitions under db/ent/schema are the source of truth; this DDL
// mirrors their tables and columns for deployments that do not run the
// generated migrations. SQLite has no native enum, so mismatch_type is TEXT
// here and constrained to constants.MismatchType at the application layer.
// Keep column changes in lockstep with db/ent/schema.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS client_addresses (
			client_id    TEXT PRIMARY KEY,
			street       TEXT NOT NULL DEFAULT '',
			city         TEXT NOT NULL DEFAULT '',
			region       TEXT NOT NULL DEFAULT '',
			postal       TEXT NOT NULL DEFAULT '',
			country      TEXT NOT NULL DEFAULT '',
			full_address TEXT NOT NULL DEFAULT '',
			updated_at   TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS address_mismatches (
			id                 TEXT PRIMARY KEY,
			client_id          TEXT NOT NULL,
			document_id        TEXT NOT NULL,
			mismatch_type      TEXT NOT NULL,
			extracted_street   TEXT NOT NULL DEFAULT '',
			extracted_city     TEXT NOT NULL DEFAULT '',
			extracted_region   TEXT NOT NULL DEFAULT '',
			extracted_postal   TEXT NOT NULL DEFAULT '',
			extracted_country  TEXT NOT NULL DEFAULT '',
			stored_street      TEXT NOT NULL DEFAULT '',
			stored_city        TEXT NOT NULL DEFAULT '',
			stored_region      TEXT NOT NULL DEFAULT '',
			stored_postal      TEXT NOT NULL DEFAULT '',
			stored_country     TEXT NOT NULL DEFAULT '',
			components         TEXT NOT NULL DEFAULT '[]',
			resolved           BOOLEAN NOT NULL DEFAULT FALSE,
			created_at         TIMESTAMP NOT NULL,
			updated_at         TIMESTAMP NOT NULL,
			UNIQUE (client_id, document_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return common.NewAppError("DB_MIGRATE_ERROR", "schema migration failed", err)
		}
	}
	return nil
}

// rebind converts ? placeholders to the dialect's native form.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
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

func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, common.ErrDatabase, err)
}
