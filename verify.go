package main

import (
	"database/sql"
	"fmt"
	"strings"
)

// liveColumn is a column as reported by PRAGMA table_info.
type liveColumn struct {
	Name          string
	DeclaredType  string
	NotNull       bool
	PrimaryKey    bool
	AutoIncrement bool
}

// liveForeignKey is one row of PRAGMA foreign_key_list.
type liveForeignKey struct {
	From     string
	To       ColumnRef
	OnDelete string
	OnUpdate string
}

// verifySQLite compares a live SQLite database with the registry and returns
// one human-readable line per difference. An empty result means no drift.
func verifySQLite(db *sql.DB, reg *Registry) ([]string, error) {
	d := sqliteDialect{}
	live, err := introspectSQLiteTables(db)
	if err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}
	liveSet := make(map[string]bool, len(live))
	for _, name := range live {
		liveSet[name] = true
	}

	var drift []string
	for _, t := range reg.Tables() {
		if !liveSet[t.Name] {
			drift = append(drift, fmt.Sprintf("missing table %s", t.Name))
			continue
		}
		delete(liveSet, t.Name)

		cols, err := introspectSQLiteColumns(db, t.Name)
		if err != nil {
			return nil, fmt.Errorf("introspect columns for %s: %w", t.Name, err)
		}
		drift = append(drift, diffColumns(t, cols, d)...)

		fks, err := introspectSQLiteForeignKeys(db, t.Name)
		if err != nil {
			return nil, fmt.Errorf("introspect foreign keys for %s: %w", t.Name, err)
		}
		drift = append(drift, diffForeignKeys(t, fks)...)
	}
	for _, name := range live {
		if liveSet[name] {
			drift = append(drift, fmt.Sprintf("unexpected table %s", name))
		}
	}
	return drift, nil
}

func diffColumns(t Table, live []liveColumn, d Dialect) []string {
	byName := make(map[string]liveColumn, len(live))
	for _, c := range live {
		byName[c.Name] = c
	}

	var drift []string
	for _, want := range t.Columns {
		ref := t.Name + "." + want.Name
		got, ok := byName[want.Name]
		if !ok {
			drift = append(drift, fmt.Sprintf("missing column %s", ref))
			continue
		}
		delete(byName, want.Name)

		if wantType := d.ColumnType(want.Type); !strings.EqualFold(got.DeclaredType, wantType) {
			drift = append(drift, fmt.Sprintf("column %s: type %q, want %q", ref, got.DeclaredType, wantType))
		}
		if got.NotNull != want.NotNull {
			drift = append(drift, fmt.Sprintf("column %s: not null %t, want %t", ref, got.NotNull, want.NotNull))
		}
		if got.PrimaryKey != want.PrimaryKey {
			drift = append(drift, fmt.Sprintf("column %s: primary key %t, want %t", ref, got.PrimaryKey, want.PrimaryKey))
		}
		if got.AutoIncrement != want.AutoIncrement {
			drift = append(drift, fmt.Sprintf("column %s: autoincrement %t, want %t", ref, got.AutoIncrement, want.AutoIncrement))
		}
	}
	for _, c := range live {
		if _, extra := byName[c.Name]; extra {
			drift = append(drift, fmt.Sprintf("unexpected column %s.%s", t.Name, c.Name))
		}
	}
	return drift
}

func diffForeignKeys(t Table, live []liveForeignKey) []string {
	byFrom := make(map[string]liveForeignKey, len(live))
	for _, fk := range live {
		byFrom[fk.From] = fk
	}

	var drift []string
	for _, want := range t.ForeignKeys {
		got, ok := byFrom[want.From.Column]
		if !ok {
			drift = append(drift, fmt.Sprintf("missing foreign key %s -> %s", want.From, want.To))
			continue
		}
		delete(byFrom, want.From.Column)
		if got.To != want.To {
			drift = append(drift, fmt.Sprintf("foreign key %s: references %s, want %s", want.From, got.To, want.To))
		}
		if got.OnDelete != want.OnDelete.SQL() {
			drift = append(drift, fmt.Sprintf("foreign key %s: on delete %s, want %s", want.From, got.OnDelete, want.OnDelete.SQL()))
		}
		if got.OnUpdate != want.OnUpdate.SQL() {
			drift = append(drift, fmt.Sprintf("foreign key %s: on update %s, want %s", want.From, got.OnUpdate, want.OnUpdate.SQL()))
		}
	}
	for _, fk := range live {
		if _, extra := byFrom[fk.From]; extra {
			drift = append(drift, fmt.Sprintf("unexpected foreign key %s.%s -> %s", t.Name, fk.From, fk.To))
		}
	}
	return drift
}

// --- Schema introspection ---

func quoteSQLiteName(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func introspectSQLiteTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func introspectSQLiteColumns(db *sql.DB, tableName string) ([]liveColumn, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteSQLiteName(tableName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []liveColumn
	for rows.Next() {
		var cid, notnull, pk int
		var name, colType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, liveColumn{
			Name:         name,
			DeclaredType: colType,
			NotNull:      notnull == 1,
			PrimaryKey:   pk > 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	autoIncr, err := detectSQLiteAutoIncrement(db, tableName)
	if err != nil {
		return nil, err
	}
	for i := range cols {
		cols[i].AutoIncrement = cols[i].PrimaryKey && autoIncr
	}
	return cols, nil
}

// detectSQLiteAutoIncrement reports whether the table was declared with
// AUTOINCREMENT. SQLite allows it only on the single INTEGER PRIMARY KEY, so
// a table-level answer identifies the column.
func detectSQLiteAutoIncrement(db *sql.DB, tableName string) (bool, error) {
	var createSQL sql.NullString
	err := db.QueryRow(
		"SELECT sql FROM sqlite_master WHERE type='table' AND name=?",
		tableName,
	).Scan(&createSQL)
	if err != nil {
		return false, err
	}
	return createSQL.Valid && hasAutoIncrementKey(createSQL.String), nil
}

// hasAutoIncrementKey reports whether a CREATE TABLE statement contains
// PRIMARY KEY [ASC|DESC] [ON CONFLICT algorithm] AUTOINCREMENT as bare words.
func hasAutoIncrementKey(createSQL string) bool {
	words := sqliteWords(createSQL)
	for i := 0; i+1 < len(words); i++ {
		if words[i] != "PRIMARY" || words[i+1] != "KEY" {
			continue
		}
		j := i + 2
		if j < len(words) && (words[j] == "ASC" || words[j] == "DESC") {
			j++
		}
		if j+2 < len(words) && words[j] == "ON" && words[j+1] == "CONFLICT" {
			j += 3
		}
		if j < len(words) && words[j] == "AUTOINCREMENT" {
			return true
		}
	}
	return false
}

// sqliteWords splits SQL into upper-cased words and punctuation. String
// literals and quoted identifiers collapse to a single "?" and comments are
// dropped, so neither can look like a keyword.
func sqliteWords(src string) []string {
	var words []string
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case strings.HasPrefix(src[i:], "--"):
			if j := strings.IndexByte(src[i:], '\n'); j >= 0 {
				i += j + 1
			} else {
				i = len(src)
			}
		case strings.HasPrefix(src[i:], "/*"):
			if j := strings.Index(src[i+2:], "*/"); j >= 0 {
				i += j + 4
			} else {
				i = len(src)
			}
		case c == '\'' || c == '"' || c == '`' || c == '[':
			i = skipSQLiteQuoted(src, i)
			words = append(words, "?")
		case isSQLiteWordByte(c):
			j := i
			for j < len(src) && isSQLiteWordByte(src[j]) {
				j++
			}
			words = append(words, strings.ToUpper(src[i:j]))
			i = j
		default:
			words = append(words, string(c))
			i++
		}
	}
	return words
}

// skipSQLiteQuoted returns the index just past the quoted run starting at i.
// A doubled closing quote is an escape, except inside [brackets].
func skipSQLiteQuoted(src string, i int) int {
	end := src[i]
	if end == '[' {
		end = ']'
	}
	for i++; i < len(src); i++ {
		if src[i] != end {
			continue
		}
		if end != ']' && i+1 < len(src) && src[i+1] == end {
			i++
			continue
		}
		return i + 1
	}
	return len(src)
}

func isSQLiteWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func introspectSQLiteForeignKeys(db *sql.DB, tableName string) ([]liveForeignKey, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteSQLiteName(tableName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []liveForeignKey
	for rows.Next() {
		var id, seq int
		var refTable, from, onUpdate, onDelete, match string
		var to sql.NullString
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		fk := liveForeignKey{
			From:     from,
			To:       ColumnRef{Table: refTable, Column: to.String},
			OnDelete: strings.ToUpper(onDelete),
			OnUpdate: strings.ToUpper(onUpdate),
		}
		if fk.OnDelete == "" {
			fk.OnDelete = "NO ACTION"
		}
		if fk.OnUpdate == "" {
			fk.OnUpdate = "NO ACTION"
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}
