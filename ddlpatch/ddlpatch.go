// Package ddlpatch provides a programmatic API for reconciling declared tables
// and functions with a live Postgres or SQL Server database. A plan produces an
// up script that brings the database to the declaration and a down script that
// reverses it; nothing is applied.
package ddlpatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/pgschema/ddlpatch/cmd/util"
	"github.com/pgschema/ddlpatch/internal/command"
	"github.com/pgschema/ddlpatch/internal/declare"
	"github.com/pgschema/ddlpatch/internal/diff"
	"github.com/pgschema/ddlpatch/internal/ir"
	"github.com/pgschema/ddlpatch/internal/logger"
)

// DatabaseConfig holds connection details for the target database.
type DatabaseConfig struct {
	Dialect  ir.Dialect // Target engine family
	Driver   string     // Postgres driver: "pgx" (default) or "postgres"
	Host     string     // Database server host
	Port     int        // Database server port (default: engine standard port)
	Database string     // Database name
	User     string     // Database user
	Password string     // Database password (optional)
	SSLMode  string     // Postgres sslmode; "disable" also turns off SQL Server encryption
}

// PlanOptions configures a planning run.
type PlanOptions struct {
	AutoCreate AutoCreate   // Which verdicts may be committed to the scripts
	Parallel   int          // Maximum concurrent declarations in PlanAll (default: 1)
	Logger     *slog.Logger // Logger for per-object verdicts (default: global logger)
}

// Connect opens and pings a connection pool for config.
func Connect(ctx context.Context, config DatabaseConfig) (*sqlx.DB, error) {
	if config.Port == 0 {
		config.Port = util.DefaultPort(config.Dialect)
	}
	return util.Connect(ctx, &util.ConnectionConfig{
		Dialect:         config.Dialect,
		Driver:          config.Driver,
		Host:            config.Host,
		Port:            config.Port,
		Database:        config.Database,
		User:            config.User,
		Password:        config.Password,
		SSLMode:         config.SSLMode,
		ApplicationName: "ddlpatch",
	})
}

// Plan reconciles every object of decl on one connection taken from db and
// returns the accumulated patch. Invalid objects and policy violations are
// reported through the patch; command failures and cancellation are returned.
func Plan(ctx context.Context, db *sqlx.DB, decl *Declaration, opts PlanOptions) (*SchemaPatch, error) {
	if err := checkDialect(db, decl.Rules.Dialect); err != nil {
		return nil, err
	}

	conn, err := db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}
	if decl.Source != "" {
		log = log.With("declaration", decl.Source)
	}

	patch := diff.NewSchemaPatch(decl.Rules)
	engine := diff.NewEngine(command.NewConnRunner(conn), opts.AutoCreate, diff.WithLogger(log))
	if err := engine.Reconcile(ctx, patch, decl.Objects...); err != nil {
		return nil, err
	}
	return patch, nil
}

// PlanAll plans independent declarations concurrently, each on its own
// connection and patch. Patches are returned in the order of decls. The first
// fatal error cancels the remaining runs.
func PlanAll(ctx context.Context, db *sqlx.DB, decls []*Declaration, opts PlanOptions) ([]*SchemaPatch, error) {
	patches := make([]*SchemaPatch, len(decls))

	g, ctx := errgroup.WithContext(ctx)
	limit := opts.Parallel
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, decl := range decls {
		i, decl := i, decl
		g.Go(func() error {
			patch, err := Plan(ctx, db, decl, opts)
			if err != nil {
				if decl.Source != "" {
					return fmt.Errorf("%s: %w", decl.Source, err)
				}
				return err
			}
			patches[i] = patch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return patches, nil
}

// LoadDeclaration reads a declaration file. A non-empty dialect overrides the
// file's own.
func LoadDeclaration(path, dialect string) (*Declaration, error) {
	return declare.LoadFile(path, dialect)
}

// checkDialect rejects a declaration aimed at a different engine than db.
func checkDialect(db *sqlx.DB, d ir.Dialect) error {
	var connected ir.Dialect
	switch db.DriverName() {
	case "sqlserver", "mssql":
		connected = ir.SQLServer
	case "pgx", "postgres", "pgx/v5":
		connected = ir.Postgres
	default:
		return nil
	}
	if connected != d {
		return fmt.Errorf("declaration targets %s but the connection uses %s", d, db.DriverName())
	}
	return nil
}
