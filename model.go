package main

import (
	"fmt"
	"strings"
)

// ColumnType is the dialect-neutral scalar type of a column.
type ColumnType string

const (
	TypeInteger   ColumnType = "integer"
	TypeText      ColumnType = "text"
	TypeReal      ColumnType = "real"
	TypeNumeric   ColumnType = "numeric"
	TypeBlob      ColumnType = "blob"
	TypeBoolean   ColumnType = "boolean"
	TypeTimestamp ColumnType = "timestamp"
)

func (t ColumnType) valid() bool {
	switch t {
	case TypeInteger, TypeText, TypeReal, TypeNumeric, TypeBlob, TypeBoolean, TypeTimestamp:
		return true
	}
	return false
}

// parseColumnType accepts the canonical names plus a few common aliases.
func parseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int", "bigint":
		return TypeInteger, nil
	case "text", "varchar", "string":
		return TypeText, nil
	case "real", "float", "double":
		return TypeReal, nil
	case "numeric", "decimal":
		return TypeNumeric, nil
	case "blob", "bytes":
		return TypeBlob, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "timestamp", "datetime":
		return TypeTimestamp, nil
	default:
		return "", fmt.Errorf("unsupported column type %q", s)
	}
}

// Action is a referential action taken on the referencing rows when the
// referenced row is deleted or updated.
type Action string

const (
	ActionCascade  Action = "cascade"
	ActionRestrict Action = "restrict"
	ActionSetNull  Action = "set null"
	ActionNoAction Action = "no action"
)

func (a Action) valid() bool {
	switch a {
	case ActionCascade, ActionRestrict, ActionSetNull, ActionNoAction:
		return true
	}
	return false
}

// SQL returns the clause keyword form, e.g. "SET NULL".
func (a Action) SQL() string {
	return strings.ToUpper(string(a))
}

// ParseAction accepts camelCase (setNull), snake_case (set_null) and SQL
// (SET NULL) spellings, case-insensitively.
func ParseAction(s string) (Action, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	switch norm {
	case "cascade":
		return ActionCascade, nil
	case "restrict":
		return ActionRestrict, nil
	case "set null", "setnull":
		return ActionSetNull, nil
	case "no action", "noaction":
		return ActionNoAction, nil
	}
	return "", &InvalidCascadeActionError{Action: s}
}

// Column is a single column definition.
type Column struct {
	Name          string
	Type          ColumnType
	NotNull       bool
	Default       *string // raw SQL expression, emitted verbatim
	PrimaryKey    bool
	AutoIncrement bool
	Unique        bool
}

// referenceable reports whether a foreign key may target this column.
func (c Column) referenceable() bool {
	return c.PrimaryKey || c.Unique
}

// ColumnRef names a column within a table.
type ColumnRef struct {
	Table  string
	Column string
}

func (r ColumnRef) String() string {
	return r.Table + "." + r.Column
}

// parseColumnRef parses "table.column". The column part follows the last dot.
func parseColumnRef(s string) (ColumnRef, error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return ColumnRef{}, fmt.Errorf("invalid column reference %q (want table.column)", s)
	}
	return ColumnRef{Table: s[:i], Column: s[i+1:]}, nil
}

// ForeignKey is a single-column referential constraint.
type ForeignKey struct {
	From     ColumnRef
	To       ColumnRef
	OnDelete Action
	OnUpdate Action
}

// Table is an immutable table definition. ForeignKeys holds the constraints
// whose From column belongs to this table, in definition order.
type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKey
}

// Column returns the named column.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
