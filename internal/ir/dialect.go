package ir

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/lib/pq"
)

// Dialect identifies the target database engine family of a reconciliation run.
type Dialect int

const (
	Postgres Dialect = iota
	SQLServer
)

// ParseDialect maps a user supplied dialect name to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "sqlserver", "mssql":
		return SQLServer, nil
	}
	return Postgres, fmt.Errorf("unknown dialect %q (expected postgres or sqlserver)", s)
}

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLServer:
		return "sqlserver"
	}
	return fmt.Sprintf("Dialect(%d)", int(d))
}

// DefaultSchema returns the schema unqualified names resolve to.
func (d Dialect) DefaultSchema() string {
	if d == SQLServer {
		return "dbo"
	}
	return "public"
}

// Fold applies the dialect's folding of unquoted identifiers.
// PostgreSQL folds unquoted identifiers to lower case, SQL Server preserves them.
func (d Dialect) Fold(ident string) string {
	if d == Postgres {
		return strings.ToLower(ident)
	}
	return ident
}

// NameKey returns a map key for n under the dialect's identifier comparison rules.
func (d Dialect) NameKey(n QualifiedName) string {
	if d == SQLServer {
		// default collations are case-insensitive
		return strings.ToLower(n.Schema) + "." + strings.ToLower(n.Name)
	}
	return n.Schema + "." + n.Name
}

// SameName reports whether a and b identify the same object.
func (d Dialect) SameName(a, b QualifiedName) bool {
	return d.NameKey(a) == d.NameKey(b)
}

// SameIdentifier compares two simple identifiers such as column names.
func (d Dialect) SameIdentifier(a, b string) bool {
	if d == SQLServer {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// SupportsCascade reports whether the dialect accepts the referential action.
func (d Dialect) SupportsCascade(action CascadeAction) bool {
	if d == SQLServer && action == Restrict {
		return false
	}
	return true
}

// NeedsQuoting checks if an identifier must be quoted to survive a round trip
// through the server's parser.
func (d Dialect) NeedsQuoting(identifier string) bool {
	if identifier == "" {
		return false
	}

	if d.reservedWords()[strings.ToLower(identifier)] {
		return true
	}

	// PostgreSQL folds unquoted identifiers to lowercase
	if d == Postgres {
		for _, r := range identifier {
			if unicode.IsUpper(r) {
				return true
			}
		}
	}

	for i, r := range identifier {
		if i == 0 && !unicode.IsLetter(r) && r != '_' {
			return true
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return true
		}
	}

	return false
}

// QuoteIdentifier adds quotes to an identifier if needed
func (d Dialect) QuoteIdentifier(identifier string) string {
	if !d.NeedsQuoting(identifier) {
		return identifier
	}
	if d == SQLServer {
		return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
	}
	return pq.QuoteIdentifier(identifier)
}

func (d Dialect) reservedWords() map[string]bool {
	if d == SQLServer {
		return sqlServerReservedWords
	}
	return postgresReservedWords
}

// PostgreSQL reserved words that need quoting
// Based on PostgreSQL 17 documentation: https://www.postgresql.org/docs/current/sql-keywords-appendix.html
var postgresReservedWords = toSet(
	"all", "analyse", "analyze", "and", "any", "array", "as", "asc", "asymmetric",
	"authorization", "between", "binary", "both", "case", "cast", "check", "collate",
	"collation", "column", "concurrently", "constraint", "create", "cross",
	"current_catalog", "current_date", "current_role", "current_schema", "current_time",
	"current_timestamp", "current_user", "default", "deferrable", "desc", "distinct", "do",
	"else", "end", "except", "false", "fetch", "for", "foreign", "freeze", "from", "full",
	"grant", "group", "having", "ilike", "in", "initially", "inner", "intersect", "into",
	"is", "isnull", "join", "lateral", "leading", "left", "like", "limit", "localtime",
	"localtimestamp", "natural", "not", "notnull", "null", "offset", "on", "only", "or",
	"order", "outer", "overlaps", "placing", "primary", "references", "returning", "right",
	"select", "session_user", "similar", "some", "symmetric", "system_user", "table",
	"tablesample", "then", "to", "trailing", "true", "union", "unique", "user", "using",
	"variadic", "verbose", "when", "where", "window", "with",
)

// Transact-SQL reserved keywords
var sqlServerReservedWords = toSet(
	"add", "all", "alter", "and", "any", "as", "asc", "authorization", "backup", "begin",
	"between", "break", "browse", "bulk", "by", "cascade", "case", "check", "checkpoint",
	"close", "clustered", "coalesce", "collate", "column", "commit", "compute", "constraint",
	"contains", "continue", "convert", "create", "cross", "current", "current_date",
	"current_time", "current_timestamp", "current_user", "cursor", "database", "deallocate",
	"declare", "default", "delete", "deny", "desc", "distinct", "distributed", "double",
	"drop", "else", "end", "errlvl", "escape", "except", "exec", "execute", "exists", "exit",
	"external", "fetch", "file", "fillfactor", "for", "foreign", "from", "full", "function",
	"goto", "grant", "group", "having", "holdlock", "identity", "if", "in", "index", "inner",
	"insert", "intersect", "into", "is", "join", "key", "kill", "left", "like", "merge",
	"national", "nocheck", "nonclustered", "not", "null", "nullif", "of", "off", "offsets",
	"on", "open", "option", "or", "order", "outer", "over", "percent", "pivot", "plan",
	"primary", "print", "proc", "procedure", "public", "raiserror", "read", "reconfigure",
	"references", "replication", "restore", "restrict", "return", "revert", "revoke",
	"right", "rollback", "rowcount", "rule", "save", "schema", "select", "session_user",
	"set", "setuser", "shutdown", "some", "statistics", "system_user", "table", "then",
	"to", "top", "tran", "transaction", "trigger", "truncate", "union", "unique", "unpivot",
	"update", "use", "user", "values", "varying", "view", "waitfor", "when", "where",
	"while", "with",
)

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
