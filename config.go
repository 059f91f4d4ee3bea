package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// SchemaConfig holds a TOML schema declaration plus where to apply it.
type SchemaConfig struct {
	Dialect              string        `toml:"dialect"` // sqlite|postgres|mysql
	SnakeCaseIdentifiers bool          `toml:"snake_case_identifiers"`
	Target               TargetConfig  `toml:"target"`
	Hooks                HooksConfig   `toml:"hooks"`
	Tables               []TableConfig `toml:"tables"`

	// configDir is the directory containing the TOML file, used to resolve relative SQL paths.
	configDir string
}

// TargetConfig identifies the database that apply and verify connect to.
type TargetConfig struct {
	DSN            string `toml:"dsn"`
	Schema         string `toml:"schema"`           // postgres only
	OnSchemaExists string `toml:"on_schema_exists"` // error|recreate, postgres only
}

type HooksConfig struct {
	BeforeCreate []string `toml:"before_create"`
	AfterCreate  []string `toml:"after_create"`
}

type TableConfig struct {
	Name    string         `toml:"name"`
	Columns []ColumnConfig `toml:"columns"`
}

type ColumnConfig struct {
	Name          string  `toml:"name"`
	Type          string  `toml:"type"`
	NotNull       bool    `toml:"not_null"`
	Default       *string `toml:"default"`
	PrimaryKey    bool    `toml:"primary_key"`
	AutoIncrement bool    `toml:"autoincrement"`
	Unique        bool    `toml:"unique"`
	References    string  `toml:"references"` // table.column
	OnDelete      string  `toml:"on_delete"`
	OnUpdate      string  `toml:"on_update"`
}

// loadConfig reads a TOML schema file and returns a SchemaConfig with defaults applied.
func loadConfig(path string) (*SchemaConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := SchemaConfig{
		Dialect: "sqlite",
		Target: TargetConfig{
			OnSchemaExists: "error",
		},
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absPath)

	cfg.Dialect = strings.ToLower(strings.TrimSpace(cfg.Dialect))
	d, err := newDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	cfg.Dialect = d.Name()

	if cfg.Target.OnSchemaExists == "" {
		cfg.Target.OnSchemaExists = "error"
	}
	switch cfg.Target.OnSchemaExists {
	case "error", "recreate":
	default:
		return nil, fmt.Errorf("target.on_schema_exists must be one of: error, recreate")
	}
	cfg.Target.Schema = strings.TrimSpace(cfg.Target.Schema)
	if cfg.Target.Schema != "" && cfg.Dialect != "postgres" {
		return nil, fmt.Errorf("target.schema is a postgres-only option")
	}

	if len(cfg.Tables) == 0 {
		return nil, fmt.Errorf("at least one [[tables]] entry is required")
	}

	return &cfg, nil
}

// resolvePath resolves a path relative to the config file directory.
func (c *SchemaConfig) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}

// identifier applies the configured identifier convention.
func (c *SchemaConfig) identifier(name string) string {
	if c.SnakeCaseIdentifiers {
		return toSnakeCase(name)
	}
	return name
}

// buildRegistry defines every table in file order, then every foreign key,
// so references may point at tables declared later in the file.
func buildRegistry(cfg *SchemaConfig) (*Registry, error) {
	reg := NewRegistry()

	for _, tc := range cfg.Tables {
		tableName := cfg.identifier(tc.Name)
		cols := make([]Column, 0, len(tc.Columns))
		for _, cc := range tc.Columns {
			typ, err := parseColumnType(cc.Type)
			if err != nil {
				return nil, fmt.Errorf("table %s column %s: %w", tc.Name, cc.Name, err)
			}
			cols = append(cols, Column{
				Name:          cfg.identifier(cc.Name),
				Type:          typ,
				NotNull:       cc.NotNull,
				Default:       cc.Default,
				PrimaryKey:    cc.PrimaryKey,
				AutoIncrement: cc.AutoIncrement,
				Unique:        cc.Unique,
			})
		}
		if _, err := reg.DefineTable(tableName, cols); err != nil {
			return nil, fmt.Errorf("define table: %w", err)
		}
	}

	for _, tc := range cfg.Tables {
		for _, cc := range tc.Columns {
			if cc.References == "" {
				if cc.OnDelete != "" || cc.OnUpdate != "" {
					return nil, fmt.Errorf("table %s column %s: on_delete/on_update require references", tc.Name, cc.Name)
				}
				continue
			}
			to, err := parseColumnRef(cc.References)
			if err != nil {
				return nil, fmt.Errorf("table %s column %s: %w", tc.Name, cc.Name, err)
			}
			to = ColumnRef{Table: cfg.identifier(to.Table), Column: cfg.identifier(to.Column)}

			onDelete, err := parseActionOrDefault(cc.OnDelete)
			if err != nil {
				return nil, fmt.Errorf("table %s column %s: on_delete: %w", tc.Name, cc.Name, err)
			}
			onUpdate, err := parseActionOrDefault(cc.OnUpdate)
			if err != nil {
				return nil, fmt.Errorf("table %s column %s: on_update: %w", tc.Name, cc.Name, err)
			}

			from := ColumnRef{Table: cfg.identifier(tc.Name), Column: cfg.identifier(cc.Name)}
			if _, err := reg.DefineForeignKey(from, to, onDelete, WithOnUpdate(onUpdate)); err != nil {
				return nil, fmt.Errorf("define foreign key: %w", err)
			}
		}
	}

	return reg, nil
}

func parseActionOrDefault(s string) (Action, error) {
	if strings.TrimSpace(s) == "" {
		return ActionNoAction, nil
	}
	return ParseAction(s)
}
