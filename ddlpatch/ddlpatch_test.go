package ddlpatch

import (
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/pgschema/ddlpatch/internal/ir"
)

func TestCheckDialect(t *testing.T) {
	tests := []struct {
		driver  string
		dialect ir.Dialect
		wantErr bool
	}{
		{"pgx", ir.Postgres, false},
		{"postgres", ir.Postgres, false},
		{"sqlserver", ir.SQLServer, false},
		{"pgx", ir.SQLServer, true},
		{"sqlserver", ir.Postgres, true},
		{"sqlmock", ir.SQLServer, false},
	}
	for _, tt := range tests {
		db := sqlx.NewDb(nil, tt.driver)
		if err := checkDialect(db, tt.dialect); (err != nil) != tt.wantErr {
			t.Errorf("checkDialect(%s, %s) error = %v, wantErr %v", tt.driver, tt.dialect, err, tt.wantErr)
		}
	}
}
