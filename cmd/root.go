package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgschema/ddlpatch/cmd/plan"
	"github.com/pgschema/ddlpatch/internal/logger"
	"github.com/pgschema/ddlpatch/internal/version"
)

var Debug bool

var RootCmd = &cobra.Command{
	Use:   "ddlpatch",
	Short: "Declarative table and function DDL planner",
	Long: fmt.Sprintf(`ddlpatch compares declared tables and functions with a live Postgres or
SQL Server catalog and generates up and down DDL scripts.

Version: %s

Commands:
  plan     Generate up and down scripts
  version  Show version information

Use "ddlpatch [command] --help" for more information about a command.`, version.String()),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "Enable debug logging")
	RootCmd.AddCommand(plan.PlanCmd)
	RootCmd.AddCommand(VersionCmd)
}

func setupLogger() {
	logger.SetGlobal(logger.New(os.Stderr, Debug), Debug)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
