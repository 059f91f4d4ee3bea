package main

import (
	"fmt"
	"strings"
)

// Dialect renders dialect-specific pieces of DDL so that ddlferry can
// target several SQL engines (SQLite, PostgreSQL, MySQL).
type Dialect interface {
	// Name returns the config name of the dialect ("sqlite", "postgres", "mysql").
	Name() string

	// QuoteIdent returns a safe identifier, quoting only when required.
	QuoteIdent(name string) string

	// ColumnType maps a dialect-neutral column type to the engine type.
	ColumnType(t ColumnType) string

	// ColumnDefinition renders one column line of a CREATE TABLE body,
	// without indentation or trailing comma. indexed is true for columns the
	// engine must index: primary key, unique and foreign key columns.
	ColumnDefinition(col Column, indexed bool) string
}

// newDialect returns the Dialect for a config name.
func newDialect(name string) (Dialect, error) {
	switch name {
	case "sqlite", "":
		return sqliteDialect{}, nil
	case "postgres", "postgresql":
		return postgresDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q (must be sqlite, postgres or mysql)", name)
	}
}

// defaultClause renders the DEFAULT clause, or "" when the column has none.
func defaultClause(col Column) string {
	if col.Default == nil {
		return ""
	}
	return "DEFAULT " + strings.TrimSpace(*col.Default)
}

// joinClauses drops empty parts and joins the rest with single spaces.
func joinClauses(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) QuoteIdent(name string) string {
	return quoteIdentWith(name, '"', sqliteKeywords, postgresReservedWords)
}

// ColumnType keeps the neutral names; SQLite derives affinity from them.
func (sqliteDialect) ColumnType(t ColumnType) string { return string(t) }

func (d sqliteDialect) ColumnDefinition(col Column, _ bool) string {
	var pk, unique, notNull string
	if col.PrimaryKey {
		pk = "PRIMARY KEY"
		if col.AutoIncrement {
			pk += " AUTOINCREMENT"
		}
	} else if col.Unique {
		unique = "UNIQUE"
	}
	if col.NotNull || col.PrimaryKey {
		notNull = "NOT NULL"
	}
	return joinClauses(d.QuoteIdent(col.Name), d.ColumnType(col.Type), pk, notNull, unique, defaultClause(col))
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) QuoteIdent(name string) string {
	return quoteIdentWith(name, '"', postgresReservedWords)
}

func (postgresDialect) ColumnType(t ColumnType) string {
	switch t {
	case TypeReal:
		return "double precision"
	case TypeBlob:
		return "bytea"
	case TypeTimestamp:
		return "timestamptz"
	default:
		return string(t)
	}
}

func (d postgresDialect) ColumnDefinition(col Column, _ bool) string {
	var pk, unique, notNull string
	if col.PrimaryKey {
		pk = "PRIMARY KEY"
		if col.AutoIncrement {
			pk = "GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
		}
	} else if col.Unique {
		unique = "UNIQUE"
	}
	if col.NotNull || col.PrimaryKey {
		notNull = "NOT NULL"
	}
	return joinClauses(d.QuoteIdent(col.Name), d.ColumnType(col.Type), pk, notNull, unique, defaultClause(col))
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) QuoteIdent(name string) string {
	return quoteIdentWith(name, '`', mysqlReservedWords, postgresReservedWords)
}

func (mysqlDialect) ColumnType(t ColumnType) string {
	switch t {
	case TypeInteger:
		return "int"
	case TypeReal:
		return "double"
	case TypeNumeric:
		return "decimal(65,30)"
	case TypeBlob:
		return "longblob"
	case TypeBoolean:
		return "tinyint(1)"
	case TypeTimestamp:
		return "datetime(6)"
	default:
		return string(t)
	}
}

// ColumnDefinition follows MySQL's documented attribute order:
// NOT NULL, DEFAULT, AUTO_INCREMENT, UNIQUE, PRIMARY KEY.
// InnoDB cannot index TEXT or BLOB without a prefix length, so indexed text
// and blob columns become varchar(255) and varbinary(255).
func (d mysqlDialect) ColumnDefinition(col Column, indexed bool) string {
	typ := d.ColumnType(col.Type)
	if indexed {
		switch col.Type {
		case TypeText:
			typ = "varchar(255)"
		case TypeBlob:
			typ = "varbinary(255)"
		}
	}
	var notNull, autoInc, unique, pk string
	if col.NotNull || col.PrimaryKey {
		notNull = "NOT NULL"
	}
	if col.AutoIncrement {
		autoInc = "AUTO_INCREMENT"
	}
	if col.PrimaryKey {
		pk = "PRIMARY KEY"
	} else if col.Unique {
		unique = "UNIQUE"
	}
	return joinClauses(d.QuoteIdent(col.Name), typ, notNull, mysqlDefaultClause(col), autoInc, unique, pk)
}

// mysqlDefaultClause pins current-time defaults on timestamp columns to the
// column's fractional precision; MySQL rejects CURRENT_TIMESTAMP on a
// datetime(6) column.
func mysqlDefaultClause(col Column) string {
	if col.Default != nil && col.Type == TypeTimestamp {
		switch strings.ToUpper(strings.TrimSpace(*col.Default)) {
		case "CURRENT_TIMESTAMP", "CURRENT_TIMESTAMP()", "NOW()", "LOCALTIMESTAMP", "LOCALTIMESTAMP()":
			return "DEFAULT CURRENT_TIMESTAMP(6)"
		}
	}
	return defaultClause(col)
}
