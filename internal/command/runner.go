package command

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pgschema/ddlpatch/internal/logger"
)

// Runner executes a Command and streams its result sets.
type Runner interface {
	Query(ctx context.Context, cmd *Command) (Rows, error)
}

// Rows iterates the result sets of one Command. The first result set is
// current when Query returns.
type Rows interface {
	// Next advances to the next row of the current result set.
	Next() bool
	// NextResultSet moves to the next statement's result set.
	NextResultSet() bool
	// Scan copies the current row into dest.
	Scan(dest ...any) error
	// Values returns the current row as driver values.
	Values() ([]any, error)
	Err() error
	Close() error
}

type queryer interface {
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	Rebind(query string) string
}

// SQLRunner runs commands through sqlx on a pool or a single connection.
type SQLRunner struct {
	q queryer
}

// NewRunner returns a runner on the pool db.
func NewRunner(db *sqlx.DB) *SQLRunner {
	return &SQLRunner{q: db}
}

// NewConnRunner returns a runner pinned to conn. A reconciliation run uses one
// connection for all of its objects.
func NewConnRunner(conn *sqlx.Conn) *SQLRunner {
	return &SQLRunner{q: conn}
}

type boundStatement struct {
	sql  string
	args []any
}

// Query binds every statement of cmd and executes the first one. Later
// statements execute when NextResultSet reaches them.
func (r *SQLRunner) Query(ctx context.Context, cmd *Command) (Rows, error) {
	if len(cmd.Statements) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrCommandExecutionFailed)
	}

	bound := make([]boundStatement, 0, len(cmd.Statements))
	for _, stmt := range cmd.Statements {
		b, err := r.bind(stmt, cmd.Params)
		if err != nil {
			return nil, &ExecutionError{Statement: stmt, Err: err}
		}
		bound = append(bound, b)
	}

	rows := &batchRows{ctx: ctx, q: r.q, statements: bound, index: -1}
	if !rows.NextResultSet() {
		return nil, rows.err
	}
	return rows, nil
}

// bind resolves :name placeholders and rebinds them for the driver.
func (r *SQLRunner) bind(stmt string, params map[string]any) (boundStatement, error) {
	if len(params) == 0 {
		return boundStatement{sql: stmt}, nil
	}
	query, args, err := sqlx.Named(stmt, params)
	if err != nil {
		return boundStatement{}, err
	}
	return boundStatement{sql: r.q.Rebind(query), args: args}, nil
}

type batchRows struct {
	ctx        context.Context
	q          queryer
	statements []boundStatement
	index      int
	current    *sqlx.Rows
	values     []any
	err        error
}

func (b *batchRows) NextResultSet() bool {
	if b.err != nil {
		return false
	}
	if b.current != nil {
		b.current.Close()
		b.current = nil
	}
	b.values = nil

	b.index++
	if b.index >= len(b.statements) {
		return false
	}

	stmt := b.statements[b.index]
	isDebug := logger.IsDebug()
	if isDebug {
		logger.Get().Debug("Executing SQL", "statement", b.index, "sql", stmt.sql)
	}

	rows, err := b.q.QueryxContext(b.ctx, stmt.sql, stmt.args...)
	if err != nil {
		if isDebug {
			logger.Get().Debug("SQL execution failed", "statement", b.index, "error", err)
		}
		b.err = WrapError(b.ctx, stmt.sql, err)
		return false
	}
	b.current = rows
	return true
}

func (b *batchRows) Next() bool {
	if b.current == nil || b.err != nil {
		return false
	}
	b.values = nil
	if b.current.Next() {
		return true
	}
	if err := b.current.Err(); err != nil {
		b.err = WrapError(b.ctx, b.statements[b.index].sql, err)
	}
	return false
}

func (b *batchRows) Scan(dest ...any) error {
	if b.current == nil {
		return fmt.Errorf("scan called without a current result set")
	}
	return b.current.Scan(dest...)
}

func (b *batchRows) Values() ([]any, error) {
	if b.current == nil {
		return nil, fmt.Errorf("values called without a current result set")
	}
	if b.values == nil {
		values, err := b.current.SliceScan()
		if err != nil {
			return nil, err
		}
		b.values = values
	}
	return b.values, nil
}

func (b *batchRows) Err() error {
	return b.err
}

func (b *batchRows) Close() error {
	b.index = len(b.statements)
	if b.current == nil {
		return nil
	}
	err := b.current.Close()
	b.current = nil
	return err
}
