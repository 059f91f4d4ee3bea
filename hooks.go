package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

// loadAndExecSQLFiles reads each hook file, expands {{schema}} to the target
// schema, and executes its statements one at a time.
func loadAndExecSQLFiles(ctx context.Context, target Target, cfg *SchemaConfig, files []string, phase string) error {
	if len(files) == 0 {
		return nil
	}
	log.Printf("  running %s hooks (%d files)...", phase, len(files))

	for _, f := range files {
		path := cfg.resolvePath(f)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("hook %s: read %s: %w", phase, f, err)
		}

		sql := strings.ReplaceAll(string(data), "{{schema}}", cfg.Target.Schema)
		stmts := splitStatements(sql, cfg.Dialect == "mysql")

		log.Printf("    %s: %d statements", f, len(stmts))
		for i, stmt := range stmts {
			if err := target.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("hook %s: %s: statement %d: %w\nSQL: %s", phase, f, i+1, err, stmt)
			}
		}
	}
	return nil
}

// splitStatements splits a hook script into statements on top-level
// semicolons. Semicolons inside quoted strings, quoted identifiers (double
// quotes or backticks), comments (--, nested /* */, and # for MySQL) and
// dollar-quoted bodies do not split. Empty statements are dropped.
func splitStatements(script string, hashComments bool) []string {
	sc := stmtScanner{src: script, hashComments: hashComments}
	for sc.pos < len(sc.src) {
		sc.step()
	}
	sc.flush()
	return sc.stmts
}

type stmtScanner struct {
	src          string
	hashComments bool
	pos          int
	start        int // first byte of the current statement
	stmts        []string
}

// step consumes one token-ish unit starting at pos.
func (sc *stmtScanner) step() {
	rest := sc.src[sc.pos:]
	switch {
	case strings.HasPrefix(rest, "--"), sc.hashComments && rest[0] == '#':
		sc.skipPast("\n")
	case strings.HasPrefix(rest, "/*"):
		sc.skipBlockComment()
	case rest[0] == '\'', rest[0] == '"', rest[0] == '`':
		sc.skipQuoted(rest[0])
	case rest[0] == '$':
		if tag, ok := parseDollarTag(sc.src, sc.pos); ok {
			sc.pos += len(tag)
			sc.skipPast(tag)
			return
		}
		sc.pos++
	case rest[0] == ';':
		sc.flushUntil(sc.pos)
		sc.pos++
		sc.start = sc.pos
	default:
		sc.pos++
	}
}

// skipPast advances beyond the next occurrence of marker, or to the end.
func (sc *stmtScanner) skipPast(marker string) {
	if i := strings.Index(sc.src[sc.pos:], marker); i >= 0 {
		sc.pos += i + len(marker)
		return
	}
	sc.pos = len(sc.src)
}

func (sc *stmtScanner) skipBlockComment() {
	depth := 0
	for sc.pos < len(sc.src) {
		switch {
		case strings.HasPrefix(sc.src[sc.pos:], "/*"):
			depth++
			sc.pos += 2
		case strings.HasPrefix(sc.src[sc.pos:], "*/"):
			depth--
			sc.pos += 2
			if depth == 0 {
				return
			}
		default:
			sc.pos++
		}
	}
}

// skipQuoted consumes a quoted run; a doubled quote character is an escape.
func (sc *stmtScanner) skipQuoted(q byte) {
	sc.pos++
	for sc.pos < len(sc.src) {
		if sc.src[sc.pos] != q {
			sc.pos++
			continue
		}
		if sc.pos+1 < len(sc.src) && sc.src[sc.pos+1] == q {
			sc.pos += 2
			continue
		}
		sc.pos++
		return
	}
}

func (sc *stmtScanner) flushUntil(end int) {
	if s := strings.TrimSpace(sc.src[sc.start:end]); s != "" {
		sc.stmts = append(sc.stmts, s)
	}
}

func (sc *stmtScanner) flush() {
	sc.flushUntil(len(sc.src))
}

// parseDollarTag recognizes $$ or $tag$ at i.
func parseDollarTag(sql string, i int) (string, bool) {
	if i >= len(sql) || sql[i] != '$' {
		return "", false
	}
	j := i + 1
	if j < len(sql) && sql[j] == '$' {
		return "$$", true
	}
	if j >= len(sql) || !isDollarTagStart(sql[j]) {
		return "", false
	}
	for j < len(sql) && isDollarTagChar(sql[j]) {
		j++
	}
	if j < len(sql) && sql[j] == '$' {
		return sql[i : j+1], true
	}
	return "", false
}

func isDollarTagStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDollarTagChar(c byte) bool {
	return isDollarTagStart(c) || (c >= '0' && c <= '9')
}
