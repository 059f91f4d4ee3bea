package main

import (
	"strings"
	"unicode"
)

// postgresReservedWords are the PostgreSQL reserved keywords. Every dialect
// quotes them so that a schema renders the same names on each engine.
var postgresReservedWords = map[string]bool{
	"all": true, "analyse": true, "analyze": true, "and": true, "any": true,
	"array": true, "as": true, "asc": true, "authorization": true, "between": true,
	"binary": true, "both": true, "case": true, "cast": true, "check": true,
	"collate": true, "column": true, "constraint": true, "create": true, "cross": true,
	"current_date": true, "current_role": true, "current_time": true,
	"current_timestamp": true, "current_user": true, "default": true, "deferrable": true,
	"desc": true, "distinct": true, "do": true, "else": true, "end": true, "except": true,
	"false": true, "fetch": true, "for": true, "foreign": true, "freeze": true,
	"from": true, "full": true, "grant": true, "group": true, "having": true,
	"ilike": true, "in": true, "index": true, "initially": true, "inner": true,
	"intersect": true, "into": true, "is": true, "isnull": true, "join": true,
	"key": true, "lateral": true, "leading": true, "left": true, "like": true,
	"limit": true, "localtime": true, "localtimestamp": true, "natural": true,
	"not": true, "notnull": true, "null": true, "offset": true, "on": true,
	"only": true, "or": true, "order": true, "outer": true, "overlaps": true,
	"placing": true, "primary": true, "references": true, "returning": true,
	"right": true, "select": true, "session_user": true, "similar": true,
	"some": true, "symmetric": true, "table": true, "then": true, "to": true,
	"trailing": true, "true": true, "union": true, "unique": true, "user": true,
	"using": true, "variadic": true, "verbose": true, "when": true, "where": true,
	"window": true, "with": true,
}

// sqliteKeywords is SQLite's full keyword list (sqlite3_keyword_name).
// Fallback keywords are included: quoting them is always accepted.
var sqliteKeywords = wordSet(`
	abort action add after all alter always analyze and as asc attach
	autoincrement before begin between by cascade case cast check collate
	column commit conflict constraint create cross current current_date
	current_time current_timestamp database default deferrable deferred
	delete desc detach distinct do drop each else end escape except exclude
	exclusive exists explain fail filter first following for foreign from
	full generated glob group groups having if ignore immediate in index
	indexed initially inner insert instead intersect into is isnull join key
	last left like limit match materialized natural no not nothing notnull
	null nulls of offset on or order others outer over partition plan pragma
	preceding primary query raise range recursive references regexp reindex
	release rename replace restrict returning right rollback row rows
	savepoint select set table temp temporary then ties to transaction
	trigger unbounded union unique update using vacuum values view virtual
	when where window with without
`)

// mysqlReservedWords is the MySQL 8.0 reserved word list.
var mysqlReservedWords = wordSet(`
	accessible add all alter analyze and as asc asensitive before between
	bigint binary blob both by call cascade case change char character check
	collate column condition constraint continue convert create cross cube
	cume_dist current_date current_time current_timestamp current_user cursor
	database databases day_hour day_microsecond day_minute day_second dec
	decimal declare default delayed delete dense_rank desc describe
	deterministic distinct distinctrow div double drop dual each else elseif
	empty enclosed escaped except exists exit explain false fetch first_value
	float float4 float8 for force foreign from fulltext function generated get
	grant group grouping groups having high_priority hour_microsecond
	hour_minute hour_second if ignore in index infile inner inout insensitive
	insert int int1 int2 int3 int4 int8 integer intersect interval into
	io_after_gtids io_before_gtids is iterate join json_table key keys kill
	lag last_value lateral lead leading leave left like limit linear lines
	load localtime localtimestamp lock long longblob longtext loop
	low_priority master_bind master_ssl_verify_server_cert match maxvalue
	mediumblob mediumint mediumtext middleint minute_microsecond
	minute_second mod modifies natural not no_write_to_binlog nth_value ntile
	null numeric of on optimize optimizer_costs option optionally or order
	out outer outfile over partition percent_rank precision primary procedure
	purge range rank read reads read_write real recursive references regexp
	release rename repeat replace require resignal restrict return revoke
	right rlike row rows row_number schema schemas second_microsecond select
	sensitive separator set show signal smallint spatial specific sql
	sqlexception sqlstate sqlwarning sql_big_result sql_calc_found_rows
	sql_small_result ssl starting stored straight_join system table
	terminated then tinyblob tinyint tinytext to trailing trigger true undo
	union unique unlock unsigned update usage use using utc_date utc_time
	utc_timestamp values varbinary varchar varcharacter varying virtual when
	where while window with write xor year_month zerofill
`)

func wordSet(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}

// toSnakeCase converts camelCase to snake_case. Runs of capitals are kept
// together as one word ("HTMLParser" -> "html_parser").
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// needsQuoting reports whether an identifier needs quoting beyond
// reserved-word checks (hyphens, spaces, uppercase, leading digit, etc.).
func needsQuoting(name string) bool {
	if name == "" {
		return true
	}
	for i, r := range name {
		if r >= 'a' && r <= 'z' || r == '_' {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return true
	}
	return false
}

// quoteIdentWith quotes name with q when it is a keyword in any of the given
// sets or not a plain lower-case identifier. Embedded quote characters are
// doubled.
func quoteIdentWith(name string, q byte, keywords ...map[string]bool) string {
	reserved := false
	for _, set := range keywords {
		if set[strings.ToLower(name)] {
			reserved = true
			break
		}
	}
	if !reserved && !needsQuoting(name) {
		return name
	}
	s := string(q)
	return s + strings.ReplaceAll(name, s, s+s) + s
}

// quotedColumnList joins column names with the dialect's quoting.
func quotedColumnList(d Dialect, cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}
