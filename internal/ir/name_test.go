package ir

import (
	"errors"
	"testing"
)

func TestParseQualifiedName(t *testing.T) {
	tests := []struct {
		dialect Dialect
		input   string
		want    QualifiedName
	}{
		{Postgres, "people", QualifiedName{"public", "people"}},
		{Postgres, "Sales.Orders", QualifiedName{"sales", "orders"}},
		{Postgres, `"Sales"."Orders"`, QualifiedName{"Sales", "Orders"}},
		{Postgres, `app."a.b"`, QualifiedName{"app", "a.b"}},
		{Postgres, ` public . people `, QualifiedName{"public", "people"}},
		{SQLServer, "people", QualifiedName{"dbo", "people"}},
		{SQLServer, "Sales.Orders", QualifiedName{"Sales", "Orders"}},
		{SQLServer, "[dbo].[My Table]", QualifiedName{"dbo", "My Table"}},
		{SQLServer, "[we]]ird]", QualifiedName{"dbo", "we]ird"}},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.String()+"/"+tt.input, func(t *testing.T) {
			got, err := ParseQualifiedName(tt.dialect, tt.input)
			if err != nil {
				t.Fatalf("ParseQualifiedName(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseQualifiedName(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseQualifiedNameErrors(t *testing.T) {
	inputs := []string{"", "   ", ".people", "public.", "a..b", "a.b.c", `"unterminated`, `""`, "people(id)"}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ParseQualifiedName(Postgres, input)
			if !errors.Is(err, ErrMalformedIdentifier) {
				t.Errorf("ParseQualifiedName(%q) error = %v, want ErrMalformedIdentifier", input, err)
			}
		})
	}
}

func TestQualifiedNameQuoted(t *testing.T) {
	tests := []struct {
		dialect Dialect
		name    QualifiedName
		want    string
	}{
		{Postgres, QualifiedName{"public", "people"}, "public.people"},
		{Postgres, QualifiedName{"public", "People"}, `public."People"`},
		{Postgres, QualifiedName{"public", "user"}, `public."user"`},
		{Postgres, QualifiedName{"public", "my table"}, `public."my table"`},
		{Postgres, QualifiedName{"public", `a"b`}, `public."a""b"`},
		{Postgres, QualifiedName{"public", "1st"}, `public."1st"`},
		{SQLServer, QualifiedName{"dbo", "People"}, "dbo.People"},
		{SQLServer, QualifiedName{"dbo", "order"}, "dbo.[order]"},
		{SQLServer, QualifiedName{"dbo", "a]b"}, "dbo.[a]]b]"},
	}

	for _, tt := range tests {
		if got := tt.name.Quoted(tt.dialect); got != tt.want {
			t.Errorf("%s Quoted(%+v) = %q, want %q", tt.dialect, tt.name, got, tt.want)
		}
	}
}

func TestQualifiedNameRoundTrip(t *testing.T) {
	names := []QualifiedName{
		{"public", "people"},
		{"Sales", "Orders"},
		{"public", "select"},
		{"app", "a.b"},
	}
	for _, d := range []Dialect{Postgres, SQLServer} {
		for _, n := range names {
			got, err := ParseQualifiedName(d, n.Quoted(d))
			if err != nil {
				t.Fatalf("%s parse %q: %v", d, n.Quoted(d), err)
			}
			if !d.SameName(got, n) {
				t.Errorf("%s round trip of %+v gave %+v", d, n, got)
			}
		}
	}
}

func TestSameName(t *testing.T) {
	a := QualifiedName{"dbo", "People"}
	b := QualifiedName{"DBO", "people"}
	if !SQLServer.SameName(a, b) {
		t.Errorf("SQL Server names should compare case-insensitively")
	}
	if Postgres.SameName(a, b) {
		t.Errorf("Postgres names should compare case-sensitively")
	}
}
