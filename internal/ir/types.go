package ir

import (
	"strings"
)

// postgresTypeAliases maps declared type names to the names format_type() reports.
var postgresTypeAliases = map[string]string{
	// Numeric types
	"int":         "integer",
	"int4":        "integer",
	"serial":      "integer",
	"serial4":     "integer",
	"int8":        "bigint",
	"bigserial":   "bigint",
	"serial8":     "bigint",
	"int2":        "smallint",
	"smallserial": "smallint",
	"serial2":     "smallint",
	"float":       "double precision",
	"float8":      "double precision",
	"double":      "double precision",
	"float4":      "real",
	"decimal":     "numeric",
	"bool":        "boolean",

	// Character types
	"varchar": "character varying",
	"char":    "character",
	"bpchar":  "character",

	// Date/time types
	"timestamp":   "timestamp without time zone",
	"timestamptz": "timestamp with time zone",
	"time":        "time without time zone",
	"timetz":      "time with time zone",
}

var sqlServerTypeAliases = map[string]string{
	"integer":                    "int",
	"dec":                        "decimal",
	"character":                  "char",
	"character varying":          "varchar",
	"char varying":               "varchar",
	"national character":         "nchar",
	"national char":              "nchar",
	"national character varying": "nvarchar",
	"national char varying":      "nvarchar",
	"double precision":           "float",
	"rowversion":                 "timestamp",
}

// NormalizeType converts a declared or catalog type name to the canonical
// spelling used when comparing columns. PostgreSQL names follow format_type();
// SQL Server names follow INFORMATION_SCHEMA.COLUMNS with length arguments.
func NormalizeType(d Dialect, typeName string) string {
	t := strings.Join(strings.Fields(strings.ToLower(typeName)), " ")
	if d == SQLServer {
		return normalizeSQLServerType(t)
	}
	return normalizePostgresType(t)
}

func normalizePostgresType(t string) string {
	t = strings.TrimPrefix(t, "pg_catalog.")

	arrays := ""
	for strings.HasSuffix(t, "[]") {
		arrays += "[]"
		t = strings.TrimSpace(strings.TrimSuffix(t, "[]"))
	}

	base, args := splitTypeArguments(t)
	if alias, ok := postgresTypeAliases[base]; ok {
		base = alias
	}

	switch base {
	case "character":
		if args == "" {
			args = "(1)"
		}
	case "timestamp without time zone", "timestamp with time zone", "time without time zone", "time with time zone":
		if args != "" {
			// format_type places the precision before the zone qualifier
			head, zone, _ := strings.Cut(base, " ")
			return head + args + " " + zone + arrays
		}
	}

	return base + args + arrays
}

func normalizeSQLServerType(t string) string {
	base, args := splitTypeArguments(t)
	if alias, ok := sqlServerTypeAliases[base]; ok {
		base = alias
	}

	switch base {
	case "decimal", "numeric":
		if args == "" {
			args = "(18,0)"
		} else if !strings.Contains(args, ",") {
			args = strings.TrimSuffix(args, ")") + ",0)"
		}
	case "char", "varchar", "nchar", "nvarchar", "binary", "varbinary":
		if args == "" {
			args = "(1)"
		}
	case "datetime2", "datetimeoffset", "time":
		if args == "" {
			args = "(7)"
		}
	case "float":
		if args == "(53)" {
			args = ""
		}
	}

	return base + args
}

// splitTypeArguments separates `varchar (100)` into `varchar` and `(100)`,
// removing whitespace inside the argument list.
func splitTypeArguments(t string) (string, string) {
	open := strings.Index(t, "(")
	if open < 0 {
		return t, ""
	}
	closeIdx := strings.LastIndex(t, ")")
	if closeIdx < open {
		return t, ""
	}
	base := strings.TrimSpace(t[:open] + t[closeIdx+1:])
	args := strings.ReplaceAll(t[open:closeIdx+1], " ", "")
	return base, args
}
