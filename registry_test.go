package main

import (
	"errors"
	"reflect"
	"testing"
)

func mustDefineTable(t *testing.T, reg *Registry, name string, cols []Column) Table {
	t.Helper()
	tbl, err := reg.DefineTable(name, cols)
	if err != nil {
		t.Fatalf("DefineTable(%q) error: %v", name, err)
	}
	return tbl
}

// exampleRegistry builds users/posts with posts.creator_id -> users.id ON DELETE CASCADE.
func exampleRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	mustDefineTable(t, reg, "users", []Column{
		{Name: "id", Type: TypeInteger, PrimaryKey: true, AutoIncrement: true},
		{Name: "name", Type: TypeText, NotNull: true},
	})
	mustDefineTable(t, reg, "posts", []Column{
		{Name: "id", Type: TypeInteger, PrimaryKey: true, AutoIncrement: true},
		{Name: "creator_id", Type: TypeInteger, NotNull: true},
		{Name: "content", Type: TypeText, NotNull: true},
	})
	if _, err := reg.DefineForeignKey(ColumnRef{"posts", "creator_id"}, ColumnRef{"users", "id"}, ActionCascade); err != nil {
		t.Fatalf("DefineForeignKey() error: %v", err)
	}
	return reg
}

func TestDefineTable_DuplicateTable(t *testing.T) {
	reg := NewRegistry()
	cols := []Column{{Name: "id", Type: TypeInteger, PrimaryKey: true}}
	mustDefineTable(t, reg, "users", cols)

	_, err := reg.DefineTable("users", cols)
	var dup *DuplicateTableError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateTableError, got %v", err)
	}
	if dup.Table != "users" {
		t.Errorf("Table = %q, want users", dup.Table)
	}
}

func TestDefineTable_DuplicateColumn(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.DefineTable("users", []Column{
		{Name: "id", Type: TypeInteger, PrimaryKey: true},
		{Name: "id", Type: TypeInteger},
	})
	var dup *DuplicateColumnError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateColumnError, got %v", err)
	}
	if dup.Table != "users" || dup.Column != "id" {
		t.Errorf("got %+v", dup)
	}
	if _, ok := reg.Table("users"); ok {
		t.Error("failed definition should not register the table")
	}
}

func TestDefineTable_MissingPrimaryKey(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.DefineTable("logs", []Column{{Name: "line", Type: TypeText}})
	var missing *MissingPrimaryKeyError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingPrimaryKeyError, got %v", err)
	}
}

func TestDefineTable_MultiplePrimaryKeys(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.DefineTable("pairs", []Column{
		{Name: "a", Type: TypeInteger, PrimaryKey: true},
		{Name: "b", Type: TypeInteger, PrimaryKey: true},
	})
	var multi *MultiplePrimaryKeysError
	if !errors.As(err, &multi) {
		t.Fatalf("expected MultiplePrimaryKeysError, got %v", err)
	}
	if !reflect.DeepEqual(multi.Columns, []string{"a", "b"}) {
		t.Errorf("Columns = %v", multi.Columns)
	}
}

func TestDefineTable_Validation(t *testing.T) {
	tests := []struct {
		name  string
		table string
		cols  []Column
	}{
		{"empty table name", "", []Column{{Name: "id", Type: TypeInteger, PrimaryKey: true}}},
		{"empty column name", "t", []Column{{Name: "", Type: TypeInteger, PrimaryKey: true}}},
		{"unknown type", "t", []Column{{Name: "id", Type: "geometry", PrimaryKey: true}}},
		{"autoincrement on text", "t", []Column{{Name: "id", Type: TypeText, PrimaryKey: true, AutoIncrement: true}}},
		{"autoincrement off primary key", "t", []Column{
			{Name: "id", Type: TypeInteger, PrimaryKey: true},
			{Name: "n", Type: TypeInteger, AutoIncrement: true},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry().DefineTable(tt.table, tt.cols); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDefineTable_PrimaryKeyIsNotNull(t *testing.T) {
	reg := NewRegistry()
	tbl := mustDefineTable(t, reg, "users", []Column{{Name: "id", Type: TypeInteger, PrimaryKey: true}})
	if !tbl.Columns[0].NotNull {
		t.Error("primary key column should be NOT NULL")
	}
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	reg := exampleRegistry(t)

	tbl, _ := reg.Table("users")
	tbl.Columns[1].Name = "mutated"
	tbl.Columns = append(tbl.Columns, Column{Name: "extra"})

	again, _ := reg.Table("users")
	if again.Columns[1].Name != "name" || len(again.Columns) != 2 {
		t.Errorf("registry state changed through returned table: %+v", again.Columns)
	}

	fks := reg.ForeignKeys()
	fks[0].OnDelete = ActionRestrict
	if reg.ForeignKeys()[0].OnDelete != ActionCascade {
		t.Error("registry state changed through returned foreign keys")
	}
}

func TestRegistry_TablesInDefinitionOrder(t *testing.T) {
	reg := exampleRegistry(t)
	var names []string
	for _, tbl := range reg.Tables() {
		names = append(names, tbl.Name)
	}
	if !reflect.DeepEqual(names, []string{"users", "posts"}) {
		t.Errorf("Tables() = %v", names)
	}
	posts, _ := reg.Table("posts")
	if len(posts.ForeignKeys) != 1 || posts.ForeignKeys[0].To != (ColumnRef{"users", "id"}) {
		t.Errorf("posts.ForeignKeys = %+v", posts.ForeignKeys)
	}
}

func TestDefineForeignKey_UnknownColumn(t *testing.T) {
	tests := []struct {
		name string
		from ColumnRef
		to   ColumnRef
		want ColumnRef
	}{
		{"unknown target column", ColumnRef{"posts", "creator_id"}, ColumnRef{"users", "uuid"}, ColumnRef{"users", "uuid"}},
		{"unknown source column", ColumnRef{"posts", "author_id"}, ColumnRef{"users", "id"}, ColumnRef{"posts", "author_id"}},
		{"unknown source table", ColumnRef{"comments", "post_id"}, ColumnRef{"posts", "id"}, ColumnRef{"comments", "post_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			mustDefineTable(t, reg, "users", []Column{{Name: "id", Type: TypeInteger, PrimaryKey: true}})
			mustDefineTable(t, reg, "posts", []Column{
				{Name: "id", Type: TypeInteger, PrimaryKey: true},
				{Name: "creator_id", Type: TypeInteger, NotNull: true},
			})

			_, err := reg.DefineForeignKey(tt.from, tt.to, ActionCascade)
			var unknown *UnknownColumnError
			if !errors.As(err, &unknown) {
				t.Fatalf("expected UnknownColumnError, got %v", err)
			}
			if unknown.Ref != tt.want {
				t.Errorf("Ref = %v, want %v", unknown.Ref, tt.want)
			}
		})
	}
}

func TestDefineForeignKey_InvalidAction(t *testing.T) {
	reg := exampleRegistry(t)
	mustDefineTable(t, reg, "comments", []Column{
		{Name: "id", Type: TypeInteger, PrimaryKey: true},
		{Name: "post_id", Type: TypeInteger},
	})

	_, err := reg.DefineForeignKey(ColumnRef{"comments", "post_id"}, ColumnRef{"posts", "id"}, Action("explode"))
	var invalid *InvalidCascadeActionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidCascadeActionError, got %v", err)
	}
	if invalid.Action != "explode" {
		t.Errorf("Action = %q", invalid.Action)
	}

	_, err = reg.DefineForeignKey(ColumnRef{"comments", "post_id"}, ColumnRef{"posts", "id"}, ActionCascade, WithOnUpdate("sideways"))
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidCascadeActionError for on update, got %v", err)
	}
}

func TestDefineForeignKey_NonUniqueTarget(t *testing.T) {
	reg := exampleRegistry(t)
	mustDefineTable(t, reg, "tags", []Column{
		{Name: "id", Type: TypeInteger, PrimaryKey: true},
		{Name: "author_name", Type: TypeText},
	})
	_, err := reg.DefineForeignKey(ColumnRef{"tags", "author_name"}, ColumnRef{"users", "name"}, ActionNoAction)
	var nonUnique *NonUniqueReferenceError
	if !errors.As(err, &nonUnique) {
		t.Fatalf("expected NonUniqueReferenceError, got %v", err)
	}
}

func TestDefineForeignKey_SetNullOnNotNullColumn(t *testing.T) {
	reg := NewRegistry()
	mustDefineTable(t, reg, "users", []Column{{Name: "id", Type: TypeInteger, PrimaryKey: true}})
	mustDefineTable(t, reg, "posts", []Column{
		{Name: "id", Type: TypeInteger, PrimaryKey: true},
		{Name: "creator_id", Type: TypeInteger, NotNull: true},
	})
	if _, err := reg.DefineForeignKey(ColumnRef{"posts", "creator_id"}, ColumnRef{"users", "id"}, ActionSetNull); err == nil {
		t.Fatal("expected error for set null on a not-null column")
	}
}

func TestDefineForeignKey_ColumnReferencesOnce(t *testing.T) {
	reg := exampleRegistry(t)
	if _, err := reg.DefineForeignKey(ColumnRef{"posts", "creator_id"}, ColumnRef{"users", "id"}, ActionRestrict); err == nil {
		t.Fatal("expected error for a second foreign key on the same column")
	}
}

func TestDefineForeignKey_ForwardReference(t *testing.T) {
	reg := NewRegistry()
	mustDefineTable(t, reg, "posts", []Column{
		{Name: "id", Type: TypeInteger, PrimaryKey: true},
		{Name: "creator_id", Type: TypeInteger, NotNull: true},
	})
	if _, err := reg.DefineForeignKey(ColumnRef{"posts", "creator_id"}, ColumnRef{"users", "id"}, ActionCascade); err != nil {
		t.Fatalf("forward reference should be accepted, got %v", err)
	}

	// Still unresolved: generation fails.
	_, err := reg.GenerateDDL(sqliteDialect{})
	var unknown *UnknownColumnError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownColumnError before users exists, got %v", err)
	}

	mustDefineTable(t, reg, "users", []Column{{Name: "id", Type: TypeInteger, PrimaryKey: true}})
	stmts, err := reg.GenerateDDL(sqliteDialect{})
	if err != nil {
		t.Fatalf("GenerateDDL() error: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
}

func TestCreationOrder(t *testing.T) {
	reg := NewRegistry()
	pk := Column{Name: "id", Type: TypeInteger, PrimaryKey: true}
	ref := func(name string) Column { return Column{Name: name, Type: TypeInteger} }

	// Defined in reverse dependency order: comments -> posts -> users, plus
	// an unrelated table and a self-reference.
	mustDefineTable(t, reg, "comments", []Column{pk, ref("post_id"), ref("author_id")})
	mustDefineTable(t, reg, "audit", []Column{pk, ref("parent_id")})
	mustDefineTable(t, reg, "posts", []Column{pk, ref("creator_id")})
	mustDefineTable(t, reg, "users", []Column{pk})

	fks := [][2]ColumnRef{
		{{"comments", "post_id"}, {"posts", "id"}},
		{{"comments", "author_id"}, {"users", "id"}},
		{{"audit", "parent_id"}, {"audit", "id"}},
		{{"posts", "creator_id"}, {"users", "id"}},
	}
	for _, fk := range fks {
		if _, err := reg.DefineForeignKey(fk[0], fk[1], ActionNoAction); err != nil {
			t.Fatalf("DefineForeignKey(%v) error: %v", fk[0], err)
		}
	}

	got, err := reg.creationOrder()
	if err != nil {
		t.Fatalf("creationOrder() error: %v", err)
	}
	want := []string{"audit", "users", "posts", "comments"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("creationOrder() = %v, want %v", got, want)
	}
}

func TestCreationOrder_Cycle(t *testing.T) {
	reg := NewRegistry()
	pk := Column{Name: "id", Type: TypeInteger, PrimaryKey: true}
	mustDefineTable(t, reg, "standalone", []Column{pk})
	mustDefineTable(t, reg, "a", []Column{pk, {Name: "b_id", Type: TypeInteger}})
	mustDefineTable(t, reg, "b", []Column{pk, {Name: "c_id", Type: TypeInteger}})
	mustDefineTable(t, reg, "c", []Column{pk, {Name: "a_id", Type: TypeInteger}})
	for _, fk := range [][2]ColumnRef{
		{{"a", "b_id"}, {"b", "id"}},
		{{"b", "c_id"}, {"c", "id"}},
		{{"c", "a_id"}, {"a", "id"}},
	} {
		if _, err := reg.DefineForeignKey(fk[0], fk[1], ActionNoAction); err != nil {
			t.Fatal(err)
		}
	}

	_, err := reg.GenerateDDL(sqliteDialect{})
	var cyclic *CyclicDependencyError
	if !errors.As(err, &cyclic) {
		t.Fatalf("expected CyclicDependencyError, got %v", err)
	}
	want := []string{"a", "b", "c", "a"}
	if !reflect.DeepEqual(cyclic.Path, want) {
		t.Errorf("Path = %v, want %v", cyclic.Path, want)
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in   string
		want Action
		err  bool
	}{
		{"cascade", ActionCascade, false},
		{"CASCADE", ActionCascade, false},
		{"restrict", ActionRestrict, false},
		{"setNull", ActionSetNull, false},
		{"set null", ActionSetNull, false},
		{"SET_NULL", ActionSetNull, false},
		{"noAction", ActionNoAction, false},
		{"no action", ActionNoAction, false},
		{"set default", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAction(tt.in)
		if tt.err {
			var invalid *InvalidCascadeActionError
			if !errors.As(err, &invalid) {
				t.Errorf("ParseAction(%q) expected InvalidCascadeActionError, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAction(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseAction(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
