package main

import (
	"fmt"
	"strings"
)

// GenerateDDL returns one CREATE TABLE statement per table, ordered so that
// referenced tables are created before the tables that reference them.
// The output depends only on the registry contents and the dialect.
func (r *Registry) GenerateDDL(d Dialect) ([]string, error) {
	if err := r.resolve(); err != nil {
		return nil, err
	}
	order, err := r.creationOrder()
	if err != nil {
		return nil, err
	}

	stmts := make([]string, 0, len(order))
	for _, name := range order {
		stmts = append(stmts, generateCreateTable(r.snapshot(r.tables[name]), d))
	}
	return stmts, nil
}

// generateCreateTable produces a CREATE TABLE statement with inline column
// constraints and trailing FOREIGN KEY clauses.
func generateCreateTable(t Table, d Dialect) string {
	fkColumns := make(map[string]bool, len(t.ForeignKeys))
	for _, fk := range t.ForeignKeys {
		fkColumns[fk.From.Column] = true
	}

	lines := make([]string, 0, len(t.Columns)+len(t.ForeignKeys))
	for _, col := range t.Columns {
		indexed := col.PrimaryKey || col.Unique || fkColumns[col.Name]
		lines = append(lines, d.ColumnDefinition(col, indexed))
	}
	for _, fk := range t.ForeignKeys {
		lines = append(lines, foreignKeyClause(fk, d))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", d.QuoteIdent(t.Name))
	for i, line := range lines {
		b.WriteString("  ")
		b.WriteString(line)
		if i < len(lines)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(")")
	return b.String()
}

// foreignKeyClause renders a table-level FOREIGN KEY constraint. ON UPDATE
// is omitted for the default (no action).
func foreignKeyClause(fk ForeignKey, d Dialect) string {
	clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE %s",
		quotedColumnList(d, []string{fk.From.Column}),
		d.QuoteIdent(fk.To.Table),
		quotedColumnList(d, []string{fk.To.Column}),
		fk.OnDelete.SQL(),
	)
	if fk.OnUpdate != "" && fk.OnUpdate != ActionNoAction {
		clause += " ON UPDATE " + fk.OnUpdate.SQL()
	}
	return clause
}

// formatScript joins statements into a script suitable for a .sql file.
func formatScript(stmts []string) string {
	if len(stmts) == 0 {
		return ""
	}
	return strings.Join(stmts, ";\n\n") + ";\n"
}
