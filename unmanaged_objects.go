package main

import (
	"database/sql"
	"fmt"
)

// UnmanagedObjects holds non-table objects found in a target database.
// ddlferry neither creates nor checks them.
type UnmanagedObjects struct {
	Views    []string
	Indexes  []string
	Triggers []string
}

// introspectSQLiteObjects lists views, explicitly created indexes and
// triggers. Indexes SQLite creates for UNIQUE and PRIMARY KEY constraints
// have NULL sql and are skipped.
func introspectSQLiteObjects(db *sql.DB) (*UnmanagedObjects, error) {
	rows, err := db.Query("SELECT type, name FROM sqlite_master WHERE type IN ('view', 'index', 'trigger') AND sql IS NOT NULL ORDER BY type, name")
	if err != nil {
		return nil, fmt.Errorf("introspect objects: %w", err)
	}
	defer rows.Close()

	objs := &UnmanagedObjects{}
	for rows.Next() {
		var typ, name string
		if err := rows.Scan(&typ, &name); err != nil {
			return nil, err
		}
		switch typ {
		case "view":
			objs.Views = append(objs.Views, name)
		case "index":
			objs.Indexes = append(objs.Indexes, name)
		case "trigger":
			objs.Triggers = append(objs.Triggers, name)
		}
	}
	return objs, rows.Err()
}

func unmanagedObjectWarnings(objs *UnmanagedObjects) []string {
	if objs == nil {
		return nil
	}
	if len(objs.Views) == 0 && len(objs.Indexes) == 0 && len(objs.Triggers) == 0 {
		return nil
	}

	warnings := []string{fmt.Sprintf(
		"target contains objects not managed by the schema (%d views, %d indexes, %d triggers)",
		len(objs.Views), len(objs.Indexes), len(objs.Triggers),
	)}
	for _, v := range objs.Views {
		warnings = append(warnings, "view: "+v)
	}
	for _, i := range objs.Indexes {
		warnings = append(warnings, "index: "+i)
	}
	for _, t := range objs.Triggers {
		warnings = append(warnings, "trigger: "+t)
	}
	return warnings
}
