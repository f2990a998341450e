package diff

import (
	"fmt"
	"io"
	"sort"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/pgschema/ddlpatch/internal/command"
	"github.com/pgschema/ddlpatch/internal/ir"
)

// FunctionObject reconciles a stored function given as a complete create script.
type FunctionObject struct {
	Name ir.QualifiedName
	// Arguments is the identity argument list, e.g. "p_id integer", used for
	// grants, default drop statements and to pick the matching overload.
	Arguments    string
	CreateScript string
	// DropStatements overrides the drop statements derived from Name and Arguments.
	DropStatements []string
	// Removed asks for the function to be dropped.
	Removed bool
}

func (f *FunctionObject) Kind() Kind { return KindFunction }

func (f *FunctionObject) Identifier() ir.QualifiedName { return f.Name }

func (f *FunctionObject) Dependencies(ir.Dialect) []ir.QualifiedName { return nil }

// ToBody renders the declared function.
func (f *FunctionObject) ToBody(rules *ir.DdlRules) *ir.FunctionBody {
	drops := f.DropStatements
	if len(drops) == 0 {
		if rules.Dialect == ir.SQLServer {
			drops = []string{fmt.Sprintf("DROP FUNCTION IF EXISTS %s;", rules.QualifiedName(f.Name))}
		} else {
			drops = []string{fmt.Sprintf("DROP FUNCTION IF EXISTS %s(%s);", rules.QualifiedName(f.Name), f.Arguments)}
		}
	}
	return &ir.FunctionBody{
		Identifier:     f.Name,
		DropStatements: drops,
		CreateScript:   ir.NormalizeScript(f.CreateScript),
	}
}

const postgresFunctionDefinitionQuery = `SELECT pg_get_function_identity_arguments(p.oid), pg_get_functiondef(p.oid)
FROM pg_proc p
JOIN pg_namespace n ON n.oid = p.pronamespace
WHERE n.nspname = %s AND p.proname = %s AND p.prokind = 'f'
ORDER BY p.oid`

const postgresFunctionDropQuery = `SELECT format('DROP FUNCTION IF EXISTS %%I.%%I(%%s);', n.nspname, p.proname, pg_get_function_identity_arguments(p.oid))
FROM pg_proc p
JOIN pg_namespace n ON n.oid = p.pronamespace
WHERE n.nspname = %s AND p.proname = %s AND p.prokind = 'f'
ORDER BY p.oid`

const sqlServerFunctionDefinitionQuery = `SELECT N'', OBJECT_DEFINITION(o.object_id)
FROM sys.objects o
JOIN sys.schemas s ON s.schema_id = o.schema_id
WHERE s.name = %s AND o.name = %s AND o.type IN ('FN', 'IF', 'TF')`

const sqlServerFunctionDropQuery = `SELECT 'DROP FUNCTION IF EXISTS ' + QUOTENAME(s.name) + '.' + QUOTENAME(o.name) + ';'
FROM sys.objects o
JOIN sys.schemas s ON s.schema_id = o.schema_id
WHERE s.name = %s AND o.name = %s AND o.type IN ('FN', 'IF', 'TF')`

// ConfigureQueryCommand queries the current definitions and the drop
// statements of every overload as two result sets.
func (f *FunctionObject) ConfigureQueryCommand(b *command.Builder) {
	schema := b.AddParameter(f.Name.Schema)
	name := b.AddParameter(f.Name.Name)

	if b.Dialect() == ir.SQLServer {
		b.Appendf(sqlServerFunctionDefinitionQuery, schema, name).NextStatement()
		b.Appendf(sqlServerFunctionDropQuery, schema, name).NextStatement()
		return
	}
	b.Appendf(postgresFunctionDefinitionQuery, schema, name).NextStatement()
	b.Appendf(postgresFunctionDropQuery, schema, name).NextStatement()
}

type overload struct {
	arguments  string
	definition string
	drop       string
}

// CreateDelta reads the catalog result sets and pairs them with the declared body.
func (f *FunctionObject) CreateDelta(rules *ir.DdlRules, rows command.Rows) (*ir.FunctionDelta, error) {
	delta := &ir.FunctionDelta{Expected: f.ToBody(rules), Removed: f.Removed}

	var overloads []overload
	for rows.Next() {
		args, _, err := command.Column[string](rows, 0)
		if err != nil {
			return nil, err
		}
		def, ok, err := command.Column[string](rows, 1)
		if err != nil {
			return nil, err
		}
		if !ok {
			// OBJECT_DEFINITION is NULL for encrypted modules
			return nil, fmt.Errorf("function %s: definition is not readable", f.Name)
		}
		overloads = append(overloads, overload{arguments: args, definition: def})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(overloads) == 0 {
		return delta, nil
	}

	if !rows.NextResultSet() {
		return nil, missingResultSet(rows, "drop statement")
	}
	drops, err := command.FetchList[string](rows, 0)
	if err != nil {
		return nil, err
	}
	if len(drops) != len(overloads) {
		return nil, fmt.Errorf("function %s: %d definitions but %d drop statements", f.Name, len(overloads), len(drops))
	}
	for i := range overloads {
		overloads[i].drop = drops[i]
	}

	if f.Removed {
		delta.Actual = actualBody(f.Name, overloads...)
		return delta, nil
	}

	match, ok := f.matchOverload(overloads)
	if !ok {
		return delta, nil
	}
	delta.Actual = actualBody(f.Name, match)
	delta.Equivalent = equivalentScripts(rules.Dialect, f.Name, delta.Expected.CreateScript, delta.Actual.CreateScript)
	return delta, nil
}

func actualBody(name ir.QualifiedName, overloads ...overload) *ir.FunctionBody {
	body := &ir.FunctionBody{Identifier: name}
	scripts := make([]string, 0, len(overloads))
	for _, o := range overloads {
		body.DropStatements = append(body.DropStatements, o.drop)
		scripts = append(scripts, ir.NormalizeScript(o.definition))
	}
	body.CreateScript = strings.Join(scripts, "\n\n")
	return body
}

// matchOverload picks the overload whose identity arguments equal the
// declared ones. A lone overload also matches when either side has no
// argument list: the declaration left it out or the catalog does not report
// one (SQL Server has no overloading). Otherwise the declared signature is
// missing.
func (f *FunctionObject) matchOverload(overloads []overload) (overload, bool) {
	want := normalizeArguments(f.Arguments)
	for _, o := range overloads {
		if normalizeArguments(o.arguments) == want {
			return o, true
		}
	}
	if len(overloads) == 1 && (want == "" || normalizeArguments(overloads[0].arguments) == "") {
		return overloads[0], true
	}
	return overload{}, false
}

func normalizeArguments(args string) string {
	return strings.Join(strings.Fields(strings.ToLower(args)), " ")
}

// equivalentScripts compares two create scripts textually and, on
// PostgreSQL, after canonicalizing both parse trees.
func equivalentScripts(d ir.Dialect, name ir.QualifiedName, expected, actual string) bool {
	if ir.ScriptsMatch(expected, actual) {
		return true
	}
	if d != ir.Postgres {
		return false
	}
	left, err := canonicalFunction(name, expected)
	if err != nil {
		return false
	}
	right, err := canonicalFunction(name, actual)
	if err != nil {
		return false
	}
	return left == right
}

// canonicalFunction deparses a CREATE FUNCTION statement with OR REPLACE
// forced, the name schema qualified and the options sorted, so scripts that
// differ only in formatting compare equal.
func canonicalFunction(name ir.QualifiedName, script string) (string, error) {
	tree, err := pg_query.Parse(script)
	if err != nil {
		return "", err
	}
	if len(tree.Stmts) != 1 {
		return "", fmt.Errorf("expected one statement, found %d", len(tree.Stmts))
	}
	stmt := tree.Stmts[0].GetStmt().GetCreateFunctionStmt()
	if stmt == nil {
		return "", fmt.Errorf("not a CREATE FUNCTION statement")
	}

	stmt.Replace = true
	stmt.Funcname = []*pg_query.Node{pg_query.MakeStrNode(name.Schema), pg_query.MakeStrNode(name.Name)}
	sort.SliceStable(stmt.Options, func(i, j int) bool {
		return stmt.Options[i].GetDefElem().GetDefname() < stmt.Options[j].GetDefElem().GetDefname()
	})
	tree.Stmts[0].StmtLocation = 0
	tree.Stmts[0].StmtLen = 0

	return pg_query.Deparse(tree)
}

// CreatePatch writes the function's DDL according to its delta kind.
func (f *FunctionObject) CreatePatch(rows command.Rows, patch *ObjectPatch, policy AutoCreate) (Difference, error) {
	rules := patch.Rules
	delta, err := f.CreateDelta(rules, rows)
	if err != nil {
		return Invalid, err
	}

	switch delta.Kind() {
	case ir.FunctionAbsent, ir.FunctionUnchanged:
		return None, nil

	case ir.FunctionMissing:
		if err := f.WriteCreateStatement(rules, &patch.Up.Body); err != nil {
			return Invalid, err
		}
		if err := f.WriteDropStatement(rules, &patch.Down.Body); err != nil {
			return Invalid, err
		}
		return Create, nil

	case ir.FunctionRemoved:
		writeLines(&patch.Up.Body, delta.Actual.DropStatements...)
		writeCreateScript(rules, &patch.Down.Body, delta.Actual.CreateScript)
		return Update, nil

	case ir.FunctionChanged:
		// the replaced definition is always restored by the down script
		writeLines(&patch.Up.Body, delta.Actual.DropStatements...)
		writeCreateScript(rules, &patch.Up.Body, delta.Expected.CreateScript)
		rules.WriteFunctionGrants(&patch.Up.Body, f.Name, f.Arguments)
		writeLines(&patch.Down.Body, delta.Expected.DropStatements...)
		writeCreateScript(rules, &patch.Down.Body, delta.Actual.CreateScript)
		return Update, nil
	}

	return Invalid, fmt.Errorf("function %s: unclassified delta %s", f.Name, delta.Kind())
}

// WriteCreateStatement writes the create script followed by the grants.
func (f *FunctionObject) WriteCreateStatement(rules *ir.DdlRules, w io.Writer) error {
	body := f.ToBody(rules)
	if body.CreateScript == "" {
		return fmt.Errorf("function %s has no create script", f.Name)
	}
	writeCreateScript(rules, w, body.CreateScript)
	rules.WriteFunctionGrants(w, f.Name, f.Arguments)
	return nil
}

// WriteDropStatement writes every drop statement of the declared function.
func (f *FunctionObject) WriteDropStatement(rules *ir.DdlRules, w io.Writer) error {
	writeLines(w, f.ToBody(rules).DropStatements...)
	return nil
}

// writeCreateScript writes script as a batch of its own.
func writeCreateScript(rules *ir.DdlRules, w io.Writer, script string) {
	rules.WriteBatchSeparator(w)
	writeLines(w, script)
	rules.WriteBatchSeparator(w)
}

func writeLines(w io.Writer, lines ...string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
