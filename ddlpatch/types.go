package ddlpatch

import (
	"github.com/pgschema/ddlpatch/internal/command"
	"github.com/pgschema/ddlpatch/internal/declare"
	"github.com/pgschema/ddlpatch/internal/diff"
	"github.com/pgschema/ddlpatch/internal/ir"
)

// Re-export important types for external consumption

// Declaration is a loaded declaration file: its rules and objects.
type Declaration = declare.Declaration

// SchemaPatch holds the results and scripts of one planning run.
type SchemaPatch = diff.SchemaPatch

// Result is the outcome of reconciling one object.
type Result = diff.Result

// Difference classifies how an object differs from the catalog.
type Difference = diff.Difference

// AutoCreate is the policy deciding which verdicts may be committed.
type AutoCreate = diff.AutoCreate

// Dialect identifies the target database engine family.
type Dialect = ir.Dialect

const (
	Postgres  = ir.Postgres
	SQLServer = ir.SQLServer
)

const (
	None    = diff.None
	Create  = diff.Create
	Update  = diff.Update
	Invalid = diff.Invalid
)

const (
	AutoCreateNone           = diff.AutoCreateNone
	AutoCreateCreateOnly     = diff.AutoCreateCreateOnly
	AutoCreateCreateOrUpdate = diff.AutoCreateCreateOrUpdate
	AutoCreateAll            = diff.AutoCreateAll
)

var (
	ErrCommandExecutionFailed          = command.ErrCommandExecutionFailed
	ErrPolicyViolation                 = diff.ErrPolicyViolation
	ErrMalformedIdentifier             = ir.ErrMalformedIdentifier
	ErrUnparseableConstraintDefinition = ir.ErrUnparseableConstraintDefinition
	ErrUnsupportedDialectFeature       = ir.ErrUnsupportedDialectFeature
)
