package plan

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgschema/ddlpatch/cmd/util"
	"github.com/pgschema/ddlpatch/ddlpatch"
	"github.com/pgschema/ddlpatch/internal/color"
	"github.com/pgschema/ddlpatch/internal/diff"
	"github.com/pgschema/ddlpatch/internal/ignore"
	"github.com/pgschema/ddlpatch/internal/logger"
)

var (
	planFiles      []string
	planDialect    string
	planDriver     string
	planHost       string
	planPort       int
	planDB         string
	planUser       string
	planPassword   string
	planSSLMode    string
	planAutoCreate string
	outputUp       string
	outputDown     string
	outDir         string
	planParallel   int
	planNoColor    bool
	planIgnoreFile string
)

// ErrPlanHasErrors is returned when any object is invalid or blocked by the
// auto-create policy. The scripts are still written.
var ErrPlanHasErrors = errors.New("plan has invalid objects or policy violations")

var PlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate up and down DDL scripts for declared objects",
	Long: `Compare the tables and functions declared in one or more YAML files with the
live catalog of the target database and generate an up script that brings the
database to the declaration and a down script that reverses it.

Each --file is planned independently. Scripts are never applied.`,
	RunE:         runPlan,
	SilenceUsage: true,
}

func init() {
	PlanCmd.Flags().StringArrayVarP(&planFiles, "file", "f", nil, "Declaration file (repeatable, required)")
	PlanCmd.Flags().StringVar(&planDialect, "dialect", "", "Target dialect: postgres or sqlserver (default: from the declaration)")
	PlanCmd.Flags().StringVar(&planDriver, "driver", "pgx", "Postgres driver: pgx or postgres")

	PlanCmd.Flags().StringVar(&planHost, "host", "localhost", "Database server host (env: PGHOST, MSSQL_HOST)")
	PlanCmd.Flags().IntVar(&planPort, "port", 0, "Database server port (env: PGPORT, MSSQL_PORT)")
	PlanCmd.Flags().StringVar(&planDB, "db", "", "Database name (required) (env: PGDATABASE, MSSQL_DATABASE)")
	PlanCmd.Flags().StringVar(&planUser, "user", "", "Database user name (required) (env: PGUSER, MSSQL_USER)")
	PlanCmd.Flags().StringVar(&planPassword, "password", "", "Database password (env: PGPASSWORD, MSSQL_PASSWORD)")
	PlanCmd.Flags().StringVar(&planSSLMode, "sslmode", "", "Postgres sslmode; disable also turns off SQL Server encryption")

	PlanCmd.Flags().StringVar(&planAutoCreate, "auto-create", "", "Policy: none, create-only, create-or-update or all (env: DDLPATCH_AUTO_CREATE, default: create-only)")
	PlanCmd.Flags().StringVar(&outputUp, "output-up", "", "Write the up script to this path")
	PlanCmd.Flags().StringVar(&outputDown, "output-down", "", "Write the down script to this path")
	PlanCmd.Flags().StringVar(&outDir, "out-dir", "", "Write <name>.up.sql and <name>.down.sql per declaration file into this directory")
	PlanCmd.Flags().IntVar(&planParallel, "parallel", 1, "Maximum declaration files planned concurrently")
	PlanCmd.Flags().BoolVar(&planNoColor, "no-color", false, "Disable colored output")
	PlanCmd.Flags().StringVar(&planIgnoreFile, "ignore-file", ignore.IgnoreFileName, "TOML file with table and function patterns to skip")

	PlanCmd.MarkFlagRequired("file")
}

func runPlan(cmd *cobra.Command, args []string) error {
	if len(planFiles) > 1 && (outputUp != "" || outputDown != "") {
		return fmt.Errorf("--output-up and --output-down take a single --file; use --out-dir for several")
	}

	policy, err := resolveAutoCreate(cmd)
	if err != nil {
		return err
	}

	decls, err := loadDeclarations(planFiles, planDialect)
	if err != nil {
		return err
	}
	ignoreConfig, err := ignore.LoadFile(planIgnoreFile)
	if err != nil {
		return fmt.Errorf("failed to load ignore file %s: %w", planIgnoreFile, err)
	}
	applyIgnore(ignoreConfig, decls)

	config := &util.ConnectionConfig{
		Dialect:         decls[0].Rules.Dialect,
		Driver:          planDriver,
		Host:            planHost,
		Port:            planPort,
		Database:        planDB,
		User:            planUser,
		Password:        planPassword,
		SSLMode:         planSSLMode,
		ApplicationName: "ddlpatch",
	}
	if err := util.ApplyConnectionEnv(cmd, config); err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := util.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer db.Close()

	patches, err := ddlpatch.PlanAll(ctx, db, decls, ddlpatch.PlanOptions{
		AutoCreate: policy,
		Parallel:   planParallel,
	})
	if err != nil {
		return err
	}

	c := color.New(!planNoColor)
	out := cmd.OutOrStdout()
	hasErrors := false
	for i, patch := range patches {
		if len(patches) > 1 {
			fmt.Fprintln(out, c.Bold(decls[i].Source))
		}
		WriteSummary(out, c, patch)

		upPath, downPath := scriptPaths(decls[i].Source)
		if upPath == "" && downPath == "" {
			if up := patch.UpScript(); up != "" {
				fmt.Fprintln(out)
				fmt.Fprint(out, up)
			}
		} else if err := patch.WriteFiles(upPath, downPath); err != nil {
			return err
		}
		hasErrors = hasErrors || patch.HasErrors()
	}

	if hasErrors {
		return ErrPlanHasErrors
	}
	return nil
}

// loadDeclarations reads every file; all of them must target one dialect.
func loadDeclarations(files []string, dialect string) ([]*ddlpatch.Declaration, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("at least one --file is required")
	}
	decls := make([]*ddlpatch.Declaration, 0, len(files))
	for _, file := range files {
		decl, err := ddlpatch.LoadDeclaration(file, dialect)
		if err != nil {
			return nil, err
		}
		if len(decls) > 0 && decl.Rules.Dialect != decls[0].Rules.Dialect {
			return nil, fmt.Errorf("%s targets %s but %s targets %s",
				decl.Source, decl.Rules.Dialect, decls[0].Source, decls[0].Rules.Dialect)
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// applyIgnore removes ignored objects from every declaration.
func applyIgnore(config *ignore.Config, decls []*ddlpatch.Declaration) {
	if config == nil {
		return
	}
	log := logger.Get()
	for _, decl := range decls {
		kept, ignored := config.Filter(decl.Objects)
		for _, obj := range ignored {
			log.Debug("Ignoring object", "declaration", decl.Source, "kind", obj.Kind(), "name", obj.Identifier().String())
		}
		decl.Objects = kept
	}
}

// resolveAutoCreate reads --auto-create, falling back to DDLPATCH_AUTO_CREATE.
func resolveAutoCreate(cmd *cobra.Command) (diff.AutoCreate, error) {
	value := planAutoCreate
	if !cmd.Flags().Changed("auto-create") {
		value = util.GetEnvWithDefault("DDLPATCH_AUTO_CREATE", "create-only")
	}
	return diff.ParseAutoCreate(value)
}

// scriptPaths returns where the scripts of the declaration at source go.
func scriptPaths(source string) (string, string) {
	if outDir == "" {
		return outputUp, outputDown
	}
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(outDir, base+".up.sql"), filepath.Join(outDir, base+".down.sql")
}

// WriteSummary prints one line per object that needs attention followed by
// the plan header.
func WriteSummary(w io.Writer, c *color.Color, patch *diff.SchemaPatch) {
	var created, updated, invalid, violations int
	for _, r := range patch.Results() {
		note := ""
		switch {
		case r.Difference == diff.Invalid:
			invalid++
			note = r.Diagnostic.Error()
		case r.Violation() != nil:
			violations++
			note = "blocked by auto-create policy " + r.Violation().Policy.String()
		case r.Difference == diff.Create:
			created++
		case r.Difference == diff.Update:
			updated++
		default:
			continue
		}
		name := r.Identifier.Quoted(patch.Rules.Dialect)
		fmt.Fprintln(w, c.FormatResultLine(string(r.Kind), name, r.Difference.String(), note))
	}
	fmt.Fprintln(w, c.FormatPlanHeader(created, updated, invalid, violations))
}
