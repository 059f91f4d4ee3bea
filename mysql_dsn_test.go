package main

import (
	"strings"
	"testing"
)

func TestMySQLDSNForDDL(t *testing.T) {
	dsn, err := mysqlDSNForDDL("root:root@tcp(127.0.0.1:3306)/app?multiStatements=true")
	if err != nil {
		t.Fatalf("mysqlDSNForDDL() error: %v", err)
	}
	if strings.Contains(dsn, "multiStatements=true") {
		t.Errorf("multiStatements should be disabled, got %q", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("parseTime should be enabled, got %q", dsn)
	}
	if !strings.Contains(dsn, "/app") {
		t.Errorf("database name should be kept, got %q", dsn)
	}
}

func TestMySQLDSNForDDL_Errors(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
	}{
		{"missing slash", "root:root@tcp(127.0.0.1:3306)"},
		{"no database", "root:root@tcp(127.0.0.1:3306)/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mysqlDSNForDDL(tt.dsn); err == nil {
				t.Fatalf("mysqlDSNForDDL(%q) expected error", tt.dsn)
			}
		})
	}
}
