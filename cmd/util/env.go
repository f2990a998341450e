package util

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pgschema/ddlpatch/internal/ir"
)

// GetEnvWithDefault returns the value of an environment variable or a default value if not set
func GetEnvWithDefault(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvIntWithDefault returns the value of an environment variable as int or a default value if not set
func GetEnvIntWithDefault(envVar string, defaultValue int) int {
	if value := os.Getenv(envVar); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// envNames lists the environment variables read for each connection flag.
type envNames struct {
	host, port, database, user, password, appName string
}

func connectionEnv(d ir.Dialect) envNames {
	if d == ir.SQLServer {
		return envNames{
			host:     "MSSQL_HOST",
			port:     "MSSQL_PORT",
			database: "MSSQL_DATABASE",
			user:     "MSSQL_USER",
			password: "MSSQL_PASSWORD",
			appName:  "MSSQL_APP_NAME",
		}
	}
	return envNames{
		host:     "PGHOST",
		port:     "PGPORT",
		database: "PGDATABASE",
		user:     "PGUSER",
		password: "PGPASSWORD",
		appName:  "PGAPPNAME",
	}
}

// ApplyConnectionEnv fills connection settings whose flags were not set
// explicitly from the dialect's environment variables, then checks that the
// required ones are present.
func ApplyConnectionEnv(cmd *cobra.Command, config *ConnectionConfig) error {
	env := connectionEnv(config.Dialect)
	flags := cmd.Flags()

	if v := GetEnvWithDefault(env.host, ""); v != "" && !flags.Changed("host") {
		config.Host = v
	}
	if v := GetEnvIntWithDefault(env.port, 0); v != 0 && !flags.Changed("port") {
		config.Port = v
	}
	if v := GetEnvWithDefault(env.database, ""); v != "" && !flags.Changed("db") {
		config.Database = v
	}
	if v := GetEnvWithDefault(env.user, ""); v != "" && !flags.Changed("user") {
		config.User = v
	}
	if v := GetEnvWithDefault(env.password, ""); v != "" && !flags.Changed("password") {
		config.Password = v
	}
	if v := GetEnvWithDefault(env.appName, ""); v != "" && !flags.Changed("application-name") {
		config.ApplicationName = v
	}

	if config.Port == 0 {
		config.Port = DefaultPort(config.Dialect)
	}
	if config.Database == "" {
		return fmt.Errorf("database name is required (use --db flag or %s environment variable)", env.database)
	}
	if config.User == "" {
		return fmt.Errorf("database user is required (use --user flag or %s environment variable)", env.user)
	}
	return nil
}
