package main

import (
	"fmt"
	"slices"
)

// Registry holds the table and foreign key definitions of one schema.
// It is built once at startup by its owner and only read afterwards; it
// does no locking.
type Registry struct {
	tables map[string]*Table
	order  []string // table names in definition order
	fks    []ForeignKey
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

// ForeignKeyOption adjusts a foreign key before it is validated.
type ForeignKeyOption func(*ForeignKey)

// WithOnUpdate sets the ON UPDATE action (default: no action).
func WithOnUpdate(a Action) ForeignKeyOption {
	return func(fk *ForeignKey) { fk.OnUpdate = a }
}

// DefineTable validates and registers a table. Columns keep their order.
func (r *Registry) DefineTable(name string, columns []Column) (Table, error) {
	if name == "" {
		return Table{}, fmt.Errorf("table name is required")
	}
	if _, exists := r.tables[name]; exists {
		return Table{}, &DuplicateTableError{Table: name}
	}

	seen := make(map[string]bool, len(columns))
	var pks []string
	for _, c := range columns {
		if c.Name == "" {
			return Table{}, fmt.Errorf("table %q: column name is required", name)
		}
		if seen[c.Name] {
			return Table{}, &DuplicateColumnError{Table: name, Column: c.Name}
		}
		seen[c.Name] = true
		if !c.Type.valid() {
			return Table{}, fmt.Errorf("table %q column %q: unsupported column type %q", name, c.Name, c.Type)
		}
		if c.AutoIncrement && (!c.PrimaryKey || c.Type != TypeInteger) {
			return Table{}, fmt.Errorf("table %q column %q: autoincrement requires an integer primary key", name, c.Name)
		}
		if c.PrimaryKey {
			pks = append(pks, c.Name)
		}
	}
	switch {
	case len(pks) == 0:
		return Table{}, &MissingPrimaryKeyError{Table: name}
	case len(pks) > 1:
		return Table{}, &MultiplePrimaryKeysError{Table: name, Columns: pks}
	}

	t := &Table{Name: name, Columns: cloneColumns(columns)}
	for i := range t.Columns {
		// Primary keys never hold NULL.
		if t.Columns[i].PrimaryKey {
			t.Columns[i].NotNull = true
		}
	}
	r.tables[name] = t
	r.order = append(r.order, name)
	return r.snapshot(t), nil
}

// DefineForeignKey registers a foreign key from one column to another.
//
// The from column must already be declared. If the target table is already
// defined the target column is checked immediately; otherwise the reference
// stays pending and is resolved by GenerateDDL.
func (r *Registry) DefineForeignKey(from, to ColumnRef, onDelete Action, opts ...ForeignKeyOption) (ForeignKey, error) {
	fk := ForeignKey{From: from, To: to, OnDelete: onDelete, OnUpdate: ActionNoAction}
	for _, opt := range opts {
		opt(&fk)
	}

	fromTable, ok := r.tables[from.Table]
	if !ok {
		return ForeignKey{}, &UnknownColumnError{Ref: from}
	}
	fromCol, ok := fromTable.Column(from.Column)
	if !ok {
		return ForeignKey{}, &UnknownColumnError{Ref: from}
	}
	if _, defined := r.tables[to.Table]; defined {
		if err := r.checkTarget(to); err != nil {
			return ForeignKey{}, err
		}
	}

	if !fk.OnDelete.valid() {
		return ForeignKey{}, &InvalidCascadeActionError{Action: string(fk.OnDelete)}
	}
	if !fk.OnUpdate.valid() {
		return ForeignKey{}, &InvalidCascadeActionError{Action: string(fk.OnUpdate)}
	}
	if fromCol.NotNull && (fk.OnDelete == ActionSetNull || fk.OnUpdate == ActionSetNull) {
		return ForeignKey{}, fmt.Errorf("foreign key %s: set null action on not-null column", from)
	}
	for _, existing := range r.fks {
		if existing.From == from {
			return ForeignKey{}, fmt.Errorf("foreign key %s: column already references %s", from, existing.To)
		}
	}

	r.fks = append(r.fks, fk)
	return fk, nil
}

// checkTarget validates a foreign key target against the defined tables.
func (r *Registry) checkTarget(to ColumnRef) error {
	t, ok := r.tables[to.Table]
	if !ok {
		return &UnknownColumnError{Ref: to}
	}
	col, ok := t.Column(to.Column)
	if !ok {
		return &UnknownColumnError{Ref: to}
	}
	if !col.referenceable() {
		return &NonUniqueReferenceError{Ref: to}
	}
	return nil
}

// resolve checks every foreign key target, including forward references
// that were pending when the key was defined.
func (r *Registry) resolve() error {
	for _, fk := range r.fks {
		if err := r.checkTarget(fk.To); err != nil {
			return fmt.Errorf("foreign key %s: %w", fk.From, err)
		}
	}
	return nil
}

// Table returns a copy of the named table.
func (r *Registry) Table(name string) (Table, bool) {
	t, ok := r.tables[name]
	if !ok {
		return Table{}, false
	}
	return r.snapshot(t), true
}

// Tables returns copies of all tables in definition order.
func (r *Registry) Tables() []Table {
	out := make([]Table, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.snapshot(r.tables[name]))
	}
	return out
}

// ForeignKeys returns all foreign keys in definition order.
func (r *Registry) ForeignKeys() []ForeignKey {
	return slices.Clone(r.fks)
}

// snapshot copies t and attaches its foreign keys so callers cannot mutate
// registry state.
func (r *Registry) snapshot(t *Table) Table {
	out := Table{Name: t.Name, Columns: cloneColumns(t.Columns)}
	for _, fk := range r.fks {
		if fk.From.Table == t.Name {
			out.ForeignKeys = append(out.ForeignKeys, fk)
		}
	}
	return out
}

func cloneColumns(cols []Column) []Column {
	out := make([]Column, len(cols))
	for i, c := range cols {
		if c.Default != nil {
			d := *c.Default
			c.Default = &d
		}
		out[i] = c
	}
	return out
}

// dependencies returns the distinct tables that name references, in foreign
// key definition order. Self-references are skipped.
func (r *Registry) dependencies(name string) []string {
	var deps []string
	for _, fk := range r.fks {
		if fk.From.Table != name || fk.To.Table == name {
			continue
		}
		if !slices.Contains(deps, fk.To.Table) {
			deps = append(deps, fk.To.Table)
		}
	}
	return deps
}

// creationOrder returns table names so that every referenced table precedes
// the tables referencing it. Among ready tables definition order wins, which
// keeps the result deterministic.
func (r *Registry) creationOrder() ([]string, error) {
	emitted := make(map[string]bool, len(r.order))
	out := make([]string, 0, len(r.order))

	for len(out) < len(r.order) {
		progressed := false
		for _, name := range r.order {
			if emitted[name] {
				continue
			}
			ready := true
			for _, dep := range r.dependencies(name) {
				if !emitted[dep] {
					ready = false
					break
				}
			}
			if ready {
				emitted[name] = true
				out = append(out, name)
				progressed = true
				break
			}
		}
		if !progressed {
			return nil, &CyclicDependencyError{Path: r.findCycle(emitted)}
		}
	}
	return out, nil
}

// findCycle walks unemitted dependencies from the first blocked table. Every
// blocked table has at least one blocked dependency, so the walk must revisit
// a table; the path from its first visit is the cycle.
func (r *Registry) findCycle(emitted map[string]bool) []string {
	var start string
	for _, name := range r.order {
		if !emitted[name] {
			start = name
			break
		}
	}

	var path []string
	pos := make(map[string]int)
	cur := start
	for {
		if i, seen := pos[cur]; seen {
			return append(path[i:], cur)
		}
		pos[cur] = len(path)
		path = append(path, cur)
		for _, dep := range r.dependencies(cur) {
			if !emitted[dep] {
				cur = dep
				break
			}
		}
	}
}
