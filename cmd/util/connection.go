package util

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/pgschema/ddlpatch/internal/ir"
	"github.com/pgschema/ddlpatch/internal/logger"
)

// ConnectionConfig holds database connection parameters
type ConnectionConfig struct {
	Dialect ir.Dialect
	// Driver selects the Postgres driver: "pgx" (default) or "postgres" (lib/pq).
	// SQL Server always uses go-mssqldb.
	Driver          string
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	ApplicationName string
}

// DefaultPort returns the standard server port of d.
func DefaultPort(d ir.Dialect) int {
	if d == ir.SQLServer {
		return 1433
	}
	return 5432
}

// DriverName returns the database/sql driver registered for the configuration.
func (c *ConnectionConfig) DriverName() (string, error) {
	if c.Dialect == ir.SQLServer {
		return "sqlserver", nil
	}
	switch c.Driver {
	case "", "pgx":
		return "pgx", nil
	case "postgres", "pq":
		return "postgres", nil
	}
	return "", fmt.Errorf("unknown postgres driver %q (expected pgx or postgres)", c.Driver)
}

// Connect establishes a database connection using the provided configuration
func Connect(ctx context.Context, config *ConnectionConfig) (*sqlx.DB, error) {
	log := logger.Get()

	log.Debug("Attempting database connection",
		"dialect", config.Dialect.String(),
		"host", config.Host,
		"port", config.Port,
		"database", config.Database,
		"user", config.User,
		"sslmode", config.SSLMode,
		"application_name", config.ApplicationName,
	)

	driver, err := config.DriverName()
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driver, BuildDSN(config))
	if err != nil {
		log.Debug("Database connection failed", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		log.Debug("Database ping failed", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Debug("Database connection established successfully", "driver", driver)
	return db, nil
}

// BuildDSN constructs the connection string for the configured dialect.
func BuildDSN(config *ConnectionConfig) string {
	if config.Dialect == ir.SQLServer {
		return buildSQLServerDSN(config)
	}
	return buildPostgresDSN(config)
}

// buildPostgresDSN constructs a PostgreSQL keyword/value connection string
func buildPostgresDSN(config *ConnectionConfig) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("host=%s", config.Host))
	parts = append(parts, fmt.Sprintf("port=%d", config.Port))
	parts = append(parts, fmt.Sprintf("dbname=%s", config.Database))
	parts = append(parts, fmt.Sprintf("user=%s", config.User))

	if config.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", config.Password))
	}

	if config.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", config.SSLMode))
	}

	if config.ApplicationName != "" {
		parts = append(parts, fmt.Sprintf("application_name=%s", config.ApplicationName))
	}

	return strings.Join(parts, " ")
}

// buildSQLServerDSN constructs a sqlserver:// URL
func buildSQLServerDSN(config *ConnectionConfig) string {
	query := url.Values{}
	query.Add("database", config.Database)
	if config.ApplicationName != "" {
		query.Add("app name", config.ApplicationName)
	}
	if config.SSLMode == "disable" {
		query.Add("encrypt", "disable")
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(config.User, config.Password),
		Host:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
