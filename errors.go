package main

import (
	"fmt"
	"strings"
)

// DuplicateTableError is returned when a table name is defined twice.
type DuplicateTableError struct {
	Table string
}

func (e *DuplicateTableError) Error() string {
	return fmt.Sprintf("table %q already defined", e.Table)
}

// DuplicateColumnError is returned when two columns of a table share a name.
type DuplicateColumnError struct {
	Table  string
	Column string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("table %q: duplicate column %q", e.Table, e.Column)
}

// MissingPrimaryKeyError is returned when a table has no primary-key column.
type MissingPrimaryKeyError struct {
	Table string
}

func (e *MissingPrimaryKeyError) Error() string {
	return fmt.Sprintf("table %q: no primary key column", e.Table)
}

// MultiplePrimaryKeysError is returned when more than one column of a table
// is marked primary key.
type MultiplePrimaryKeysError struct {
	Table   string
	Columns []string
}

func (e *MultiplePrimaryKeysError) Error() string {
	return fmt.Sprintf("table %q: exactly one primary key column allowed, got %s",
		e.Table, strings.Join(e.Columns, ", "))
}

// UnknownColumnError is returned when a foreign key names a column that is
// not declared.
type UnknownColumnError struct {
	Ref ColumnRef
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %s", e.Ref)
}

// InvalidCascadeActionError is returned for referential actions outside
// cascade, restrict, setNull and noAction.
type InvalidCascadeActionError struct {
	Action string
}

func (e *InvalidCascadeActionError) Error() string {
	return fmt.Sprintf("invalid referential action %q (must be one of: cascade, restrict, setNull, noAction)", e.Action)
}

// NonUniqueReferenceError is returned when a foreign key targets a column
// that is neither a primary key nor unique.
type NonUniqueReferenceError struct {
	Ref ColumnRef
}

func (e *NonUniqueReferenceError) Error() string {
	return fmt.Sprintf("foreign key target %s is neither a primary key nor unique", e.Ref)
}

// CyclicDependencyError is returned by GenerateDDL when foreign keys form a
// cycle between tables. Path starts and ends with the same table.
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic foreign key dependency: %s", strings.Join(e.Path, " -> "))
}
