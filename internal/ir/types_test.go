package ir

import "testing"

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		dialect Dialect
		input   string
		want    string
	}{
		{Postgres, "int", "integer"},
		{Postgres, "INT4", "integer"},
		{Postgres, "serial", "integer"},
		{Postgres, "VARCHAR(100)", "character varying(100)"},
		{Postgres, "character varying (100)", "character varying(100)"},
		{Postgres, "char", "character(1)"},
		{Postgres, "timestamptz", "timestamp with time zone"},
		{Postgres, "timestamp(3)", "timestamp(3) without time zone"},
		{Postgres, "timestamp(3) without time zone", "timestamp(3) without time zone"},
		{Postgres, "int[]", "integer[]"},
		{Postgres, "numeric(10, 2)", "numeric(10,2)"},
		{Postgres, "pg_catalog.text", "text"},
		{Postgres, "bool", "boolean"},
		{SQLServer, "INTEGER", "int"},
		{SQLServer, "decimal", "decimal(18,0)"},
		{SQLServer, "numeric(10)", "numeric(10,0)"},
		{SQLServer, "nvarchar", "nvarchar(1)"},
		{SQLServer, "nvarchar(max)", "nvarchar(max)"},
		{SQLServer, "datetime2", "datetime2(7)"},
		{SQLServer, "float(53)", "float"},
		{SQLServer, "double precision", "float"},
		{SQLServer, "character varying(20)", "varchar(20)"},
	}

	for _, tt := range tests {
		if got := NormalizeType(tt.dialect, tt.input); got != tt.want {
			t.Errorf("%s NormalizeType(%q) = %q, want %q", tt.dialect, tt.input, got, tt.want)
		}
	}
}
