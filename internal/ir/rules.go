package ir

import (
	"fmt"
	"io"
	"strings"
)

// CreationStyle controls how CREATE TABLE statements are written.
type CreationStyle int

const (
	// CreateIfNotExists guards the CREATE TABLE so the script can be replayed.
	CreateIfNotExists CreationStyle = iota
	// DropThenCreate drops any existing table before creating it.
	DropThenCreate
)

// ParseCreationStyle maps a configuration value to a CreationStyle.
func ParseCreationStyle(s string) (CreationStyle, error) {
	switch strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(strings.TrimSpace(s))) {
	case "", "createifnotexists":
		return CreateIfNotExists, nil
	case "dropthencreate":
		return DropThenCreate, nil
	}
	return CreateIfNotExists, fmt.Errorf("unknown table creation style %q", s)
}

func (c CreationStyle) String() string {
	if c == DropThenCreate {
		return "dropThenCreate"
	}
	return "createIfNotExists"
}

// DdlRules carries the dialect knobs every DDL writer consults.
type DdlRules struct {
	Dialect Dialect
	// Role, when set, is assumed before any DDL in a generated script.
	Role string
	// Grants lists roles that receive privileges on every created object.
	Grants []string
	// TableCreation selects the CREATE TABLE form.
	TableCreation CreationStyle
	// BatchSeparator ends a batch in client tools. Statements that must stand
	// alone in their batch, such as CREATE FUNCTION on SQL Server, are
	// surrounded by it. Empty means the dialect has no batches.
	BatchSeparator string
}

// NewDdlRules returns the default rules for d.
func NewDdlRules(d Dialect) *DdlRules {
	rules := &DdlRules{Dialect: d}
	if d == SQLServer {
		rules.BatchSeparator = "GO"
	}
	return rules
}

// WriteBatchSeparator ends the current batch, if the rules use batches.
func (r *DdlRules) WriteBatchSeparator(w io.Writer) {
	if r.BatchSeparator != "" {
		fmt.Fprintln(w, r.BatchSeparator)
	}
}

// QualifiedName renders n quoted for the rules' dialect.
func (r *DdlRules) QualifiedName(n QualifiedName) string {
	return n.Quoted(r.Dialect)
}

// QuoteIdentifier quotes a simple identifier for the rules' dialect.
func (r *DdlRules) QuoteIdentifier(ident string) string {
	return r.Dialect.QuoteIdentifier(ident)
}

// QuoteIdentifiers quotes and comma-joins a column list, preserving order.
func (r *DdlRules) QuoteIdentifiers(idents []string) string {
	quoted := make([]string, len(idents))
	for i, ident := range idents {
		quoted[i] = r.QuoteIdentifier(ident)
	}
	return strings.Join(quoted, ", ")
}

// WriteRoleStart writes the role switch that opens a script, if any.
func (r *DdlRules) WriteRoleStart(w io.Writer) {
	if r.Role == "" {
		return
	}
	if r.Dialect == SQLServer {
		fmt.Fprintf(w, "EXECUTE AS USER = N'%s';\n\n", escapeLiteral(r.Role))
		return
	}
	fmt.Fprintf(w, "SET ROLE %s;\n\n", r.QuoteIdentifier(r.Role))
}

// WriteRoleEnd writes the statement restoring the original role, if any.
func (r *DdlRules) WriteRoleEnd(w io.Writer) {
	if r.Role == "" {
		return
	}
	if r.Dialect == SQLServer {
		fmt.Fprintln(w, "REVERT;")
		return
	}
	fmt.Fprintln(w, "RESET ROLE;")
}

// WriteTableGrants grants DML privileges on a created table to every configured role.
func (r *DdlRules) WriteTableGrants(w io.Writer, table QualifiedName) {
	for _, role := range r.Grants {
		fmt.Fprintf(w, "GRANT SELECT, INSERT, UPDATE, DELETE ON %s TO %s;\n", r.QualifiedName(table), r.QuoteIdentifier(role))
	}
}

// WriteFunctionGrants grants EXECUTE on a created function to every configured role.
func (r *DdlRules) WriteFunctionGrants(w io.Writer, function QualifiedName, arguments string) {
	for _, role := range r.Grants {
		if r.Dialect == SQLServer {
			fmt.Fprintf(w, "GRANT EXECUTE ON %s TO %s;\n", r.QualifiedName(function), r.QuoteIdentifier(role))
			continue
		}
		fmt.Fprintf(w, "GRANT EXECUTE ON FUNCTION %s(%s) TO %s;\n", r.QualifiedName(function), arguments, r.QuoteIdentifier(role))
	}
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
