// Package command is the thin adapter between schema objects and a database
// connection: objects describe a batch of catalog queries with a Builder, a
// Runner executes it, and the typed helpers map the returned columns.
package command

import (
	"fmt"
	"strings"

	"github.com/pgschema/ddlpatch/internal/ir"
)

// Command is a batch of statements sharing one parameter set. Each statement
// produces one result set.
type Command struct {
	Dialect    ir.Dialect
	Statements []string
	Params     map[string]any
}

// Builder accumulates the statements and parameters of a Command.
// Placeholders are written as :name and bound to the driver's bind style at
// execution time.
type Builder struct {
	dialect    ir.Dialect
	statements []string
	current    strings.Builder
	params     map[string]any
	next       int
}

// NewBuilder returns an empty builder for queries against a d catalog.
func NewBuilder(d ir.Dialect) *Builder {
	return &Builder{dialect: d, params: map[string]any{}}
}

// Dialect returns the dialect the command targets.
func (b *Builder) Dialect() ir.Dialect {
	return b.dialect
}

// AddParameter registers v under a generated name (p0, p1, ...) and returns
// its placeholder.
func (b *Builder) AddParameter(v any) string {
	name := fmt.Sprintf("p%d", b.next)
	b.next++
	return b.AddNamedParameter(name, v)
}

// AddNamedParameter registers v under name and returns its placeholder.
// Registering the same name twice keeps the last value.
func (b *Builder) AddNamedParameter(name string, v any) string {
	b.params[name] = v
	return ":" + name
}

// Append adds SQL text to the statement being built.
func (b *Builder) Append(sql string) *Builder {
	b.current.WriteString(sql)
	return b
}

// Appendf adds formatted SQL text to the statement being built.
func (b *Builder) Appendf(format string, args ...any) *Builder {
	fmt.Fprintf(&b.current, format, args...)
	return b
}

// NextStatement closes the current statement; the next Append starts a new
// result set.
func (b *Builder) NextStatement() *Builder {
	stmt := strings.TrimSpace(b.current.String())
	b.current.Reset()
	if stmt != "" {
		b.statements = append(b.statements, stmt)
	}
	return b
}

// Command closes the pending statement and returns the batch.
func (b *Builder) Command() *Command {
	b.NextStatement()

	statements := make([]string, len(b.statements))
	copy(statements, b.statements)
	params := make(map[string]any, len(b.params))
	for k, v := range b.params {
		params[k] = v
	}

	return &Command{Dialect: b.dialect, Statements: statements, Params: params}
}
