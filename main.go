package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	dialectOverride string
	outPath         string
)

var rootCmd = &cobra.Command{
	Use:           "ddlferry",
	Short:         "Declarative schema to SQL DDL",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate <schema.toml>",
	Short: "Print CREATE TABLE statements in dependency order",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

var applyCmd = &cobra.Command{
	Use:   "apply <schema.toml>",
	Short: "Create the schema's tables in the configured target database",
	Args:  cobra.ExactArgs(1),
	RunE:  runApply,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <schema.toml>",
	Short: "Compare a SQLite target database with the schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ddlferry version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionString())
	},
}

func init() {
	generateCmd.Flags().StringVar(&dialectOverride, "dialect", "", "override the schema file dialect (sqlite, postgres, mysql)")
	generateCmd.Flags().StringVarP(&outPath, "out", "o", "", "write DDL to this file instead of stdout")
	rootCmd.AddCommand(generateCmd, applyCmd, verifyCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSchema reads a schema file, builds its registry and logs non-fatal
// findings.
func loadSchema(path string) (*SchemaConfig, *Registry, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}
	if warnings := collectForeignKeyTypeWarnings(reg); len(warnings) > 0 {
		log.Printf("type compatibility report: %d foreign key(s) may compare across types", len(warnings))
		for _, w := range warnings {
			log.Printf("  WARN: %s", w)
		}
	}
	return cfg, reg, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, reg, err := loadSchema(args[0])
	if err != nil {
		return err
	}
	name := cfg.Dialect
	if dialectOverride != "" {
		name = dialectOverride
	}
	d, err := newDialect(name)
	if err != nil {
		return err
	}

	stmts, err := reg.GenerateDDL(d)
	if err != nil {
		return fmt.Errorf("generate ddl: %w", err)
	}
	script := formatScript(stmts)

	if outPath == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), script)
		return err
	}
	if err := os.WriteFile(outPath, []byte(script), 0644); err != nil {
		return fmt.Errorf("write ddl: %w", err)
	}
	log.Printf("wrote %d statements (%s) to %s", len(stmts), d.Name(), outPath)
	return nil
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, reg, err := loadSchema(args[0])
	if err != nil {
		return err
	}
	d, err := newDialect(cfg.Dialect)
	if err != nil {
		return err
	}
	stmts, err := reg.GenerateDDL(d)
	if err != nil {
		return fmt.Errorf("generate ddl: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	log.Printf("ddlferry %s: applying %d tables (%s)", versionString(), len(stmts), d.Name())
	log.Printf("connecting to target...")
	target, err := openTarget(ctx, cfg)
	if err != nil {
		return err
	}
	defer target.Close()

	if err := applyDDL(ctx, target, cfg, reg, stmts); err != nil {
		return fmt.Errorf("apply ddl: %w", err)
	}
	log.Printf("schema applied in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, reg, err := loadSchema(args[0])
	if err != nil {
		return err
	}
	if cfg.Dialect != "sqlite" {
		return fmt.Errorf("verify supports sqlite targets only (dialect=%s)", cfg.Dialect)
	}
	if cfg.Target.DSN == "" {
		return fmt.Errorf("target.dsn is required")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := openSQLite(ctx, cfg.Target.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	drift, err := verifySQLite(db, reg)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	for _, line := range drift {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}

	objs, err := introspectSQLiteObjects(db)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	for _, w := range unmanagedObjectWarnings(objs) {
		log.Printf("  WARN: %s", w)
	}

	if len(drift) > 0 {
		return fmt.Errorf("schema drift: %d difference(s)", len(drift))
	}
	log.Printf("no drift: %d tables match", len(reg.Tables()))
	return nil
}
