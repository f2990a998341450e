package diff

import (
	"strings"
	"testing"

	"github.com/pgschema/ddlpatch/internal/command"
	"github.com/pgschema/ddlpatch/internal/command/commandtest"
	"github.com/pgschema/ddlpatch/internal/ir"
)

const touchScript = `CREATE OR REPLACE FUNCTION public.touch(p_id integer)
RETURNS integer
LANGUAGE sql
AS $$ SELECT p_id + 1 $$`

// catalogTouch is touchScript as pg_get_functiondef renders it.
const catalogTouch = "CREATE OR REPLACE FUNCTION public.touch(p_id integer)\n RETURNS integer\n LANGUAGE sql\nAS $function$ SELECT p_id + 1 $function$\n"

func newTouch() *FunctionObject {
	return &FunctionObject{
		Name:         ir.NewQualifiedName(ir.Postgres, "", "touch"),
		Arguments:    "p_id integer",
		CreateScript: touchScript,
	}
}

func patchFunction(t *testing.T, f *FunctionObject, rules *ir.DdlRules, rows command.Rows) (Difference, *ObjectPatch) {
	t.Helper()
	patch := NewObjectPatch(rules)
	verdict, err := f.CreatePatch(rows, patch, AutoCreateAll)
	if err != nil {
		t.Fatalf("CreatePatch: %v", err)
	}
	return verdict, patch
}

func TestFunctionMissing(t *testing.T) {
	f := newTouch()
	rules := ir.NewDdlRules(ir.Postgres)

	verdict, patch := patchFunction(t, f, rules, commandtest.NewRows(commandtest.ResultSet{}, commandtest.ResultSet{}))
	if verdict != Create {
		t.Fatalf("verdict = %s, want create", verdict)
	}

	body := f.ToBody(rules)
	if got := strings.TrimSpace(patch.Up.String()); got != body.CreateScript {
		t.Errorf("up script = %q, want %q", got, body.CreateScript)
	}
	if got := strings.TrimSpace(patch.Down.String()); got != "DROP FUNCTION IF EXISTS public.touch(p_id integer);" {
		t.Errorf("down script = %q", got)
	}
}

func TestFunctionMissingWithGrants(t *testing.T) {
	f := newTouch()
	rules := ir.NewDdlRules(ir.Postgres)
	rules.Grants = []string{"app_user"}

	_, patch := patchFunction(t, f, rules, commandtest.NewRows(commandtest.ResultSet{}))
	if !strings.Contains(patch.Up.String(), "GRANT EXECUTE ON FUNCTION public.touch(p_id integer) TO app_user;") {
		t.Errorf("expected grant in %q", patch.Up.String())
	}
}

func TestFunctionRemovedAndAbsent(t *testing.T) {
	f := newTouch()
	f.Removed = true
	rules := ir.NewDdlRules(ir.Postgres)

	verdict, patch := patchFunction(t, f, rules, commandtest.NewRows(commandtest.ResultSet{}))
	if verdict != None || patch.Up.Len() != 0 || patch.Down.Len() != 0 {
		t.Fatalf("absent removed function should produce nothing, got %s %q %q", verdict, patch.Up.String(), patch.Down.String())
	}

	rows := commandtest.NewRows(
		commandtest.ResultSet{{"p_id integer", catalogTouch}, {"", "CREATE OR REPLACE FUNCTION public.touch()\n RETURNS integer\n LANGUAGE sql\nAS $function$ SELECT 1 $function$\n"}},
		commandtest.ResultSet{{"DROP FUNCTION IF EXISTS public.touch(p_id integer);"}, {"DROP FUNCTION IF EXISTS public.touch();"}},
	)
	verdict, patch = patchFunction(t, f, rules, rows)
	if verdict != Update {
		t.Fatalf("verdict = %s, want update", verdict)
	}
	wantUp := "DROP FUNCTION IF EXISTS public.touch(p_id integer);\nDROP FUNCTION IF EXISTS public.touch();\n"
	if patch.Up.String() != wantUp {
		t.Errorf("up = %q, want %q", patch.Up.String(), wantUp)
	}
	if strings.Count(patch.Down.String(), "CREATE OR REPLACE FUNCTION") != 2 {
		t.Errorf("down should recreate both overloads, got %q", patch.Down.String())
	}
}

func TestFunctionUnchangedAfterCanonicalization(t *testing.T) {
	rows := commandtest.NewRows(
		commandtest.ResultSet{{"p_id integer", catalogTouch}},
		commandtest.ResultSet{{"DROP FUNCTION IF EXISTS public.touch(p_id integer);"}},
	)
	verdict, patch := patchFunction(t, newTouch(), ir.NewDdlRules(ir.Postgres), rows)
	if verdict != None {
		t.Fatalf("verdict = %s, want none (up %q)", verdict, patch.Up.String())
	}
}

func TestFunctionUnchangedTextually(t *testing.T) {
	f := &FunctionObject{
		Name:         ir.NewQualifiedName(ir.SQLServer, "", "add_one"),
		CreateScript: "CREATE FUNCTION dbo.add_one(@x int) RETURNS int AS BEGIN RETURN @x + 1 END\n\n",
	}
	rows := commandtest.NewRows(
		commandtest.ResultSet{{"", "CREATE FUNCTION dbo.add_one(@x int) RETURNS int AS BEGIN RETURN @x + 1 END"}},
		commandtest.ResultSet{{"DROP FUNCTION IF EXISTS [dbo].[add_one];"}},
	)
	verdict, _ := patchFunction(t, f, ir.NewDdlRules(ir.SQLServer), rows)
	if verdict != None {
		t.Fatalf("verdict = %s, want none", verdict)
	}
}

func TestFunctionChanged(t *testing.T) {
	actual := strings.Replace(catalogTouch, "p_id + 1", "p_id + 2", 1)
	rows := commandtest.NewRows(
		commandtest.ResultSet{{"", "CREATE OR REPLACE FUNCTION public.touch()\n RETURNS integer\n LANGUAGE sql\nAS $function$ SELECT 1 $function$\n"}, {"p_id integer", actual}},
		commandtest.ResultSet{{"DROP FUNCTION IF EXISTS public.touch();"}, {"DROP FUNCTION IF EXISTS public.touch(p_id integer);"}},
	)
	f := newTouch()
	rules := ir.NewDdlRules(ir.Postgres)
	verdict, patch := patchFunction(t, f, rules, rows)
	if verdict != Update {
		t.Fatalf("verdict = %s, want update", verdict)
	}

	wantUp := "DROP FUNCTION IF EXISTS public.touch(p_id integer);\n" + f.ToBody(rules).CreateScript + "\n"
	if patch.Up.String() != wantUp {
		t.Errorf("up = %q, want %q", patch.Up.String(), wantUp)
	}
	down := patch.Down.String()
	if !strings.HasPrefix(down, "DROP FUNCTION IF EXISTS public.touch(p_id integer);\n") {
		t.Errorf("down should drop the new definition first, got %q", down)
	}
	if !strings.Contains(down, "p_id + 2") || strings.Contains(down, "SELECT 1 $function$") {
		t.Errorf("down should restore only the replaced overload, got %q", down)
	}
}

func TestFunctionOtherSignatureIsMissing(t *testing.T) {
	rows := commandtest.NewRows(
		commandtest.ResultSet{{"p_id text", strings.Replace(catalogTouch, "p_id integer", "p_id text", 1)}},
		commandtest.ResultSet{{"DROP FUNCTION IF EXISTS public.touch(p_id text);"}},
	)
	f := newTouch()
	rules := ir.NewDdlRules(ir.Postgres)
	verdict, patch := patchFunction(t, f, rules, rows)
	if verdict != Create {
		t.Fatalf("verdict = %s, want create", verdict)
	}
	if up := patch.Up.String(); strings.Contains(up, "DROP FUNCTION") || strings.TrimSpace(up) != f.ToBody(rules).CreateScript {
		t.Errorf("up should only create the declared overload, got %q", up)
	}
	if down := patch.Down.String(); down != "DROP FUNCTION IF EXISTS public.touch(p_id integer);\n" {
		t.Errorf("down = %q", down)
	}
}

func TestFunctionLoneOverloadMatchesWithoutArguments(t *testing.T) {
	f := newTouch()
	f.Arguments = ""
	rows := commandtest.NewRows(
		commandtest.ResultSet{{"p_id integer", strings.Replace(catalogTouch, "p_id + 1", "p_id + 2", 1)}},
		commandtest.ResultSet{{"DROP FUNCTION IF EXISTS public.touch(p_id integer);"}},
	)
	verdict, patch := patchFunction(t, f, ir.NewDdlRules(ir.Postgres), rows)
	if verdict != Update {
		t.Fatalf("verdict = %s, want update", verdict)
	}
	if !strings.HasPrefix(patch.Up.String(), "DROP FUNCTION IF EXISTS public.touch(p_id integer);\n") {
		t.Errorf("up should replace the lone overload, got %q", patch.Up.String())
	}
}

func TestFunctionChangedSQLServerBatches(t *testing.T) {
	f := &FunctionObject{
		Name:         ir.NewQualifiedName(ir.SQLServer, "", "add_one"),
		CreateScript: "CREATE FUNCTION dbo.add_one(@x int) RETURNS int AS BEGIN RETURN @x + 1 END",
	}
	actual := "CREATE FUNCTION dbo.add_one(@x int) RETURNS int AS BEGIN RETURN @x + 2 END"
	rows := commandtest.NewRows(
		commandtest.ResultSet{{"", actual}},
		commandtest.ResultSet{{"DROP FUNCTION IF EXISTS [dbo].[add_one];"}},
	)
	rules := ir.NewDdlRules(ir.SQLServer)
	rules.Grants = []string{"app_user"}
	verdict, patch := patchFunction(t, f, rules, rows)
	if verdict != Update {
		t.Fatalf("verdict = %s, want update", verdict)
	}

	wantUp := "DROP FUNCTION IF EXISTS [dbo].[add_one];\nGO\n" +
		f.ToBody(rules).CreateScript + "\nGO\n" +
		"GRANT EXECUTE ON dbo.add_one TO app_user;\n"
	if patch.Up.String() != wantUp {
		t.Errorf("up = %q, want %q", patch.Up.String(), wantUp)
	}
	wantDown := "DROP FUNCTION IF EXISTS dbo.add_one;\nGO\n" + ir.NormalizeScript(actual) + "\nGO\n"
	if patch.Down.String() != wantDown {
		t.Errorf("down = %q, want %q", patch.Down.String(), wantDown)
	}
}

func TestFunctionUnreadableDefinition(t *testing.T) {
	f := &FunctionObject{Name: ir.NewQualifiedName(ir.SQLServer, "", "secret"), CreateScript: "CREATE FUNCTION dbo.secret() RETURNS int AS BEGIN RETURN 1 END"}
	rows := commandtest.NewRows(commandtest.ResultSet{{"", nil}}, commandtest.ResultSet{{"DROP FUNCTION IF EXISTS [dbo].[secret];"}})
	verdict, err := f.CreatePatch(rows, NewObjectPatch(ir.NewDdlRules(ir.SQLServer)), AutoCreateAll)
	if verdict != Invalid || err == nil {
		t.Fatalf("expected invalid verdict with error, got %s %v", verdict, err)
	}
}

func TestFunctionQueryCommand(t *testing.T) {
	b := command.NewBuilder(ir.Postgres)
	newTouch().ConfigureQueryCommand(b)
	cmd := b.Command()

	if len(cmd.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(cmd.Statements))
	}
	if !strings.Contains(cmd.Statements[1], "format('DROP FUNCTION IF EXISTS %I.%I(%s);'") {
		t.Errorf("drop statement query not rendered: %s", cmd.Statements[1])
	}
	if cmd.Params["p0"] != "public" || cmd.Params["p1"] != "touch" {
		t.Errorf("unexpected params %v", cmd.Params)
	}
	for _, stmt := range cmd.Statements {
		if strings.Contains(stmt, "::") {
			t.Errorf("statement must not contain a :: cast: %s", stmt)
		}
	}
}
