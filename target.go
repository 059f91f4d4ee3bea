package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Target is a database that generated DDL is applied to.
type Target interface {
	// Exec runs a single statement.
	Exec(ctx context.Context, query string) error
	Close() error
}

// sqlTarget wraps a database/sql handle (SQLite, MySQL).
type sqlTarget struct {
	db *sql.DB
}

func (t *sqlTarget) Exec(ctx context.Context, query string) error {
	_, err := t.db.ExecContext(ctx, query)
	return err
}

func (t *sqlTarget) Close() error { return t.db.Close() }

// pgTarget wraps a pgx pool.
type pgTarget struct {
	pool *pgxpool.Pool
}

func (t *pgTarget) Exec(ctx context.Context, query string) error {
	_, err := t.pool.Exec(ctx, query)
	return err
}

func (t *pgTarget) Close() error {
	t.pool.Close()
	return nil
}

// openTarget connects to the configured target for the configured dialect.
func openTarget(ctx context.Context, cfg *SchemaConfig) (Target, error) {
	if cfg.Target.DSN == "" {
		return nil, fmt.Errorf("target.dsn is required")
	}
	switch cfg.Dialect {
	case "sqlite":
		db, err := openSQLite(ctx, cfg.Target.DSN)
		if err != nil {
			return nil, err
		}
		return &sqlTarget{db: db}, nil
	case "mysql":
		dsn, err := mysqlDSNForDDL(cfg.Target.DSN)
		if err != nil {
			return nil, err
		}
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping mysql: %w", err)
		}
		return &sqlTarget{db: db}, nil
	case "postgres":
		pool, err := openPostgres(ctx, cfg.Target)
		if err != nil {
			return nil, err
		}
		return &pgTarget{pool: pool}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}
}

// openSQLite opens a single-connection SQLite handle with foreign key
// enforcement switched on. PRAGMA foreign_keys is per connection, hence the
// connection cap.
func openSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == ":memory:" || dsn == "file::memory:" {
		return nil, fmt.Errorf("in-memory SQLite targets are not supported (nothing would persist)")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
	}
	return db, nil
}

// openPostgres connects with search_path pinned to the target schema, and
// prepares that schema when one is configured.
func openPostgres(ctx context.Context, tc TargetConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(tc.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if tc.Schema != "" {
		poolCfg.ConnConfig.RuntimeParams["search_path"] = tc.Schema
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if tc.Schema != "" {
		log.Printf("preparing schema '%s'...", tc.Schema)
		if err := prepareTargetSchema(ctx, pool, tc.Schema, tc.OnSchemaExists); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return pool, nil
}

type schemaExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func prepareTargetSchema(ctx context.Context, exec schemaExecutor, schema, onSchemaExists string) error {
	ident := postgresDialect{}.QuoteIdent(schema)
	switch onSchemaExists {
	case "recreate":
		if _, err := exec.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", ident)); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
		if _, err := exec.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", ident)); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	case "error":
		var exists bool
		if err := exec.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_namespace WHERE nspname = $1)", schema).Scan(&exists); err != nil {
			return fmt.Errorf("check schema existence: %w", err)
		}
		if exists {
			return fmt.Errorf("schema %q already exists in target database (on_schema_exists=error)", schema)
		}
		if _, err := exec.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", ident)); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	default:
		return fmt.Errorf("unsupported on_schema_exists value %q", onSchemaExists)
	}
	return nil
}

// execSQL runs a single statement and wraps errors with context.
func execSQL(ctx context.Context, target Target, desc, query string) error {
	if err := target.Exec(ctx, query); err != nil {
		return fmt.Errorf("%s: %w\nSQL: %s", desc, err, query)
	}
	return nil
}

// applyDDL runs before_create hooks, the CREATE statements in order, then
// after_create hooks.
func applyDDL(ctx context.Context, target Target, cfg *SchemaConfig, reg *Registry, stmts []string) error {
	if err := loadAndExecSQLFiles(ctx, target, cfg, cfg.Hooks.BeforeCreate, "before_create"); err != nil {
		return fmt.Errorf("before_create hooks: %w", err)
	}

	order, err := reg.creationOrder()
	if err != nil {
		return err
	}
	for i, stmt := range stmts {
		desc := fmt.Sprintf("statement %d", i+1)
		if i < len(order) {
			desc = "create table " + order[i]
		}
		log.Printf("  %s", desc)
		if err := execSQL(ctx, target, desc, stmt); err != nil {
			return err
		}
	}

	if err := loadAndExecSQLFiles(ctx, target, cfg, cfg.Hooks.AfterCreate, "after_create"); err != nil {
		return fmt.Errorf("after_create hooks: %w", err)
	}
	return nil
}
