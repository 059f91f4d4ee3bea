package main

import "fmt"

// collectForeignKeyTypeWarnings reports foreign keys whose column type differs
// from the referenced column. Engines accept most such pairs but comparisons
// then go through affinity or implicit casts.
func collectForeignKeyTypeWarnings(reg *Registry) []string {
	if reg == nil {
		return nil
	}

	var warnings []string
	for _, fk := range reg.ForeignKeys() {
		from, ok := reg.Table(fk.From.Table)
		if !ok {
			continue
		}
		to, ok := reg.Table(fk.To.Table)
		if !ok {
			continue
		}
		fromCol, _ := from.Column(fk.From.Column)
		toCol, ok := to.Column(fk.To.Column)
		if !ok || fromCol.Type == toCol.Type {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("foreign key %s (%s) references %s (%s): column types differ",
			fk.From, fromCol.Type, fk.To, toCol.Type))
	}
	return warnings
}
