// Package diff reconciles declared schema objects against a live catalog and
// accumulates the up and down DDL scripts of one run.
package diff

import (
	"io"
	"strings"

	"github.com/pgschema/ddlpatch/internal/command"
	"github.com/pgschema/ddlpatch/internal/ir"
)

// Kind names an object type.
type Kind string

const (
	KindTable    Kind = "table"
	KindFunction Kind = "function"
)

// Object is a declared schema object the engine can reconcile. The set of
// implementations is closed: TableObject and FunctionObject.
type Object interface {
	Kind() Kind
	Identifier() ir.QualifiedName

	// ConfigureQueryCommand appends the catalog queries whose result sets
	// CreatePatch reads.
	ConfigureQueryCommand(b *command.Builder)

	// CreatePatch computes the delta from rows and writes the object's up and
	// down DDL into patch. Parse and classification failures are returned as
	// errors; the engine turns them into an Invalid verdict.
	CreatePatch(rows command.Rows, patch *ObjectPatch, policy AutoCreate) (Difference, error)

	WriteCreateStatement(rules *ir.DdlRules, w io.Writer) error
	WriteDropStatement(rules *ir.DdlRules, w io.Writer) error

	// Dependencies lists the tables whose DDL must precede this object's.
	Dependencies(d ir.Dialect) []ir.QualifiedName
}

// Script is one direction of an object's DDL. Foreign key statements are kept
// apart from the body so a run drops every constraint before any table body
// and adds constraints only once every table exists.
type Script struct {
	DropConstraints strings.Builder
	Body            strings.Builder
	AddConstraints  strings.Builder
}

// String returns the three phases concatenated in order.
func (s *Script) String() string {
	return s.DropConstraints.String() + s.Body.String() + s.AddConstraints.String()
}

// Len returns the length of String.
func (s *Script) Len() int {
	return s.DropConstraints.Len() + s.Body.Len() + s.AddConstraints.Len()
}

// ObjectPatch stages one object's DDL. The engine copies it into the run's
// SchemaPatch only when the object's verdict is committed.
type ObjectPatch struct {
	Rules *ir.DdlRules
	Up    Script
	Down  Script
}

// NewObjectPatch returns empty staging buffers using rules.
func NewObjectPatch(rules *ir.DdlRules) *ObjectPatch {
	return &ObjectPatch{Rules: rules}
}
