package ir

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestForeignKeyToDDL(t *testing.T) {
	people := NewQualifiedName(Postgres, "", "people")
	states := NewQualifiedName(Postgres, "", "states")

	tests := []struct {
		name       string
		fk         *ForeignKey
		contains   []string
		notContain []string
	}{
		{
			name: "no cascade clauses",
			fk: &ForeignKey{
				Name:        "fk_state",
				ColumnNames: []string{"state_id"},
				LinkedTable: states,
				LinkedNames: []string{"id"},
			},
			contains: []string{
				"ALTER TABLE public.people",
				"ADD CONSTRAINT fk_state FOREIGN KEY(state_id)",
				"REFERENCES public.states(id)",
			},
			notContain: []string{"ON DELETE", "ON UPDATE"},
		},
		{
			name: "on delete restrict",
			fk: &ForeignKey{
				Name:        "fk_state",
				ColumnNames: []string{"state_id"},
				LinkedTable: states,
				LinkedNames: []string{"id"},
				OnDelete:    Restrict,
			},
			contains:   []string{"ON DELETE RESTRICT"},
			notContain: []string{"ON UPDATE"},
		},
		{
			name: "on update only",
			fk: &ForeignKey{
				Name:        "fk_state",
				ColumnNames: []string{"state_id"},
				LinkedTable: states,
				LinkedNames: []string{"id"},
				OnUpdate:    SetDefault,
			},
			contains:   []string{"ON UPDATE SET DEFAULT"},
			notContain: []string{"ON DELETE"},
		},
		{
			name: "multi column order",
			fk: &ForeignKey{
				Name:        "fk_state_tenant",
				ColumnNames: []string{"state_id", "tenant_id"},
				LinkedTable: states,
				LinkedNames: []string{"id", "tenant_id"},
				OnDelete:    Cascade,
				OnUpdate:    SetNull,
			},
			contains: []string{
				"FOREIGN KEY(state_id, tenant_id)",
				"REFERENCES public.states(id, tenant_id) ON DELETE CASCADE ON UPDATE SET NULL;",
			},
		},
	}

	rules := NewDdlRules(Postgres)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ddl, err := tt.fk.ToDDL(rules, people)
			if err != nil {
				t.Fatalf("ToDDL: %v", err)
			}
			for _, s := range tt.contains {
				if !strings.Contains(ddl, s) {
					t.Errorf("expected %q in %q", s, ddl)
				}
			}
			for _, s := range tt.notContain {
				if strings.Contains(ddl, s) {
					t.Errorf("did not expect %q in %q", s, ddl)
				}
			}
			if strings.Count(ddl, "ON DELETE") > 1 || strings.Count(ddl, "ON UPDATE") > 1 {
				t.Errorf("duplicated cascade clause in %q", ddl)
			}
		})
	}
}

func TestForeignKeyToDDLSQLServer(t *testing.T) {
	rules := NewDdlRules(SQLServer)
	fk := &ForeignKey{
		Name:        "fk_state",
		ColumnNames: []string{"state_id"},
		LinkedTable: NewQualifiedName(SQLServer, "", "states"),
		LinkedNames: []string{"id"},
		OnDelete:    Cascade,
	}

	ddl, err := fk.ToDDL(rules, NewQualifiedName(SQLServer, "", "people"))
	if err != nil {
		t.Fatalf("ToDDL: %v", err)
	}
	want := "ALTER TABLE dbo.people ADD CONSTRAINT fk_state FOREIGN KEY(state_id) REFERENCES dbo.states(id) ON DELETE CASCADE;"
	if ddl != want {
		t.Errorf("got %q, want %q", ddl, want)
	}

	fk.OnDelete = Restrict
	if _, err := fk.ToDDL(rules, NewQualifiedName(SQLServer, "", "people")); !errors.Is(err, ErrUnsupportedDialectFeature) {
		t.Errorf("expected ErrUnsupportedDialectFeature, got %v", err)
	}
	if err := fk.Validate(SQLServer); !errors.Is(err, ErrUnsupportedDialectFeature) {
		t.Errorf("expected Validate to reject RESTRICT, got %v", err)
	}
}

func TestParseForeignKey(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		text    string
		want    *ForeignKey
	}{
		{
			name:    "cascade and set null",
			dialect: Postgres,
			text:    "FOREIGN KEY (state_id) REFERENCES states(id) ON DELETE CASCADE ON UPDATE SET NULL",
			want: &ForeignKey{
				Name:        "fk_state",
				ColumnNames: []string{"state_id"},
				LinkedTable: QualifiedName{Schema: "public", Name: "states"},
				LinkedNames: []string{"id"},
				OnDelete:    Cascade,
				OnUpdate:    SetNull,
			},
		},
		{
			name:    "multi column sql server",
			dialect: SQLServer,
			text:    "FOREIGN KEY (state_id, tenant_id) REFERENCES states(id, tenant_id)",
			want: &ForeignKey{
				Name:        "fk_state",
				ColumnNames: []string{"state_id", "tenant_id"},
				LinkedTable: QualifiedName{Schema: "dbo", Name: "states"},
				LinkedNames: []string{"id", "tenant_id"},
			},
		},
		{
			name:    "multi column postgres",
			dialect: Postgres,
			text:    "FOREIGN KEY (state_id, tenant_id) REFERENCES states(id, tenant_id)",
			want: &ForeignKey{
				Name:        "fk_state",
				ColumnNames: []string{"state_id", "tenant_id"},
				LinkedTable: QualifiedName{Schema: "public", Name: "states"},
				LinkedNames: []string{"id", "tenant_id"},
			},
		},
		{
			name:    "catalog output with quoting and trailing clauses",
			dialect: Postgres,
			text:    `FOREIGN KEY ("StateId") REFERENCES sales."States"(id) MATCH FULL ON UPDATE CASCADE DEFERRABLE INITIALLY DEFERRED`,
			want: &ForeignKey{
				Name:        "fk_state",
				ColumnNames: []string{"StateId"},
				LinkedTable: QualifiedName{Schema: "sales", Name: "States"},
				LinkedNames: []string{"id"},
				OnUpdate:    Cascade,
			},
		},
		{
			name:    "lower case and extra whitespace",
			dialect: Postgres,
			text:    "foreign key(state_id)   references   Public.States ( id )  on delete set default",
			want: &ForeignKey{
				Name:        "fk_state",
				ColumnNames: []string{"state_id"},
				LinkedTable: QualifiedName{Schema: "public", Name: "states"},
				LinkedNames: []string{"id"},
				OnDelete:    SetDefault,
			},
		},
		{
			name:    "update before delete",
			dialect: Postgres,
			text:    "FOREIGN KEY (state_id) REFERENCES states(id) ON UPDATE RESTRICT ON DELETE SET NULL",
			want: &ForeignKey{
				Name:        "fk_state",
				ColumnNames: []string{"state_id"},
				LinkedTable: QualifiedName{Schema: "public", Name: "states"},
				LinkedNames: []string{"id"},
				OnDelete:    SetNull,
				OnUpdate:    Restrict,
			},
		},
		{
			name:    "sql server explicit no action",
			dialect: SQLServer,
			text:    "FOREIGN KEY ([state_id]) REFERENCES [dbo].[states] ([id]) ON DELETE NO ACTION ON UPDATE NO ACTION",
			want: &ForeignKey{
				Name:        "fk_state",
				ColumnNames: []string{"state_id"},
				LinkedTable: QualifiedName{Schema: "dbo", Name: "states"},
				LinkedNames: []string{"id"},
			},
		},
		{
			name:    "sql server set null not for replication",
			dialect: SQLServer,
			text:    "FOREIGN KEY (StateId) REFERENCES Sales.States (Id) ON DELETE SET NULL ON UPDATE CASCADE NOT FOR REPLICATION",
			want: &ForeignKey{
				Name:        "fk_state",
				ColumnNames: []string{"StateId"},
				LinkedTable: QualifiedName{Schema: "Sales", Name: "States"},
				LinkedNames: []string{"Id"},
				OnDelete:    SetNull,
				OnUpdate:    Cascade,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseForeignKey(tt.dialect, "fk_state", tt.text)
			if err != nil {
				t.Fatalf("ParseForeignKey: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseForeignKeyErrors(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		text    string
		want    error
	}{
		{"primary key", Postgres, "PRIMARY KEY (id)", ErrUnparseableConstraintDefinition},
		{"missing references", Postgres, "FOREIGN KEY (state_id)", ErrUnparseableConstraintDefinition},
		{"missing linked columns", Postgres, "FOREIGN KEY (state_id) REFERENCES states", ErrUnparseableConstraintDefinition},
		{"count mismatch", Postgres, "FOREIGN KEY (a, b) REFERENCES states(id)", ErrUnparseableConstraintDefinition},
		{"unknown action", Postgres, "FOREIGN KEY (a) REFERENCES states(id) ON DELETE EXPLODE", ErrUnparseableConstraintDefinition},
		{"unterminated quote", Postgres, `FOREIGN KEY ("a) REFERENCES states(id)`, ErrUnparseableConstraintDefinition},
		{"restrict on sql server", SQLServer, "FOREIGN KEY (a) REFERENCES states(id) ON DELETE RESTRICT", ErrUnsupportedDialectFeature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fk, err := ParseForeignKey(tt.dialect, "fk", tt.text)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if fk != nil {
				t.Errorf("expected no value on failure, got %+v", fk)
			}
		})
	}
}

func TestForeignKeyRoundTrip(t *testing.T) {
	actions := []CascadeAction{NoAction, Cascade, SetNull, SetDefault, Restrict}

	for _, d := range []Dialect{Postgres, SQLServer} {
		rules := NewDdlRules(d)
		owner := NewQualifiedName(d, "", "people")
		for _, onDelete := range actions {
			for _, onUpdate := range actions {
				if !d.SupportsCascade(onDelete) || !d.SupportsCascade(onUpdate) {
					continue
				}
				fk := &ForeignKey{
					Name:        "fk_state_tenant",
					ColumnNames: []string{"state_id", "tenant_id"},
					LinkedTable: NewQualifiedName(d, "", "states"),
					LinkedNames: []string{"id", "tenant_id"},
					OnDelete:    onDelete,
					OnUpdate:    onUpdate,
				}
				ddl, err := fk.ToDDL(rules, owner)
				if err != nil {
					t.Fatalf("%s ToDDL: %v", d, err)
				}
				parsed, err := ParseForeignKey(d, fk.Name, ddl)
				if err != nil {
					t.Fatalf("%s parse %q: %v", d, ddl, err)
				}
				if diff := cmp.Diff(fk, parsed); diff != "" {
					t.Errorf("%s round trip of %q (-want +got):\n%s", d, ddl, diff)
				}
				if !fk.Equal(d, parsed) {
					t.Errorf("%s: Equal reported a difference for %q", d, ddl)
				}
			}
		}
	}
}

func TestForeignKeyValidate(t *testing.T) {
	states := NewQualifiedName(Postgres, "", "states")
	tests := []struct {
		name string
		fk   ForeignKey
		ok   bool
	}{
		{"valid", ForeignKey{Name: "fk", ColumnNames: []string{"a"}, LinkedTable: states, LinkedNames: []string{"id"}}, true},
		{"no columns", ForeignKey{Name: "fk", LinkedTable: states}, false},
		{"length mismatch", ForeignKey{Name: "fk", ColumnNames: []string{"a", "b"}, LinkedTable: states, LinkedNames: []string{"id"}}, false},
		{"duplicate column", ForeignKey{Name: "fk", ColumnNames: []string{"a", "a"}, LinkedTable: states, LinkedNames: []string{"id", "x"}}, false},
		{"no linked table", ForeignKey{Name: "fk", ColumnNames: []string{"a"}, LinkedNames: []string{"id"}}, false},
		{"no name", ForeignKey{ColumnNames: []string{"a"}, LinkedTable: states, LinkedNames: []string{"id"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fk.Validate(Postgres)
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
