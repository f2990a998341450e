// Package commandtest provides in-memory command.Runner and command.Rows
// implementations for tests.
package commandtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/pgschema/ddlpatch/internal/command"
)

// ResultSet is the rows one statement returns.
type ResultSet [][]any

// Rows serves canned result sets.
type Rows struct {
	sets   []ResultSet
	set    int
	row    int
	closed bool
}

// NewRows returns rows positioned on the first of sets.
func NewRows(sets ...ResultSet) *Rows {
	return &Rows{sets: sets, row: -1}
}

func (r *Rows) Next() bool {
	if r.closed || r.set >= len(r.sets) {
		return false
	}
	if r.row+1 >= len(r.sets[r.set]) {
		r.row = len(r.sets[r.set])
		return false
	}
	r.row++
	return true
}

func (r *Rows) NextResultSet() bool {
	if r.closed {
		return false
	}
	r.set++
	r.row = -1
	return r.set < len(r.sets)
}

func (r *Rows) Scan(dest ...any) error {
	values, err := r.Values()
	if err != nil {
		return err
	}
	if len(dest) != len(values) {
		return fmt.Errorf("scan: expected %d destinations, got %d", len(values), len(dest))
	}
	for i, v := range values {
		switch d := dest[i].(type) {
		case *any:
			*d = v
		case *string:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("scan: column %d is %T, not string", i, v)
			}
			*d = s
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

func (r *Rows) Values() ([]any, error) {
	if r.closed || r.set >= len(r.sets) || r.row < 0 || r.row >= len(r.sets[r.set]) {
		return nil, fmt.Errorf("no current row")
	}
	return r.sets[r.set][r.row], nil
}

func (r *Rows) Err() error { return nil }

func (r *Rows) Close() error {
	r.closed = true
	return nil
}

// Closed reports whether Close was called.
func (r *Rows) Closed() bool { return r.closed }

// Handler produces the response to one command.
type Handler func(ctx context.Context, cmd *command.Command) ([]ResultSet, error)

// Runner records commands and answers them through Handler.
type Runner struct {
	Handler Handler

	mu       sync.Mutex
	commands []*command.Command
}

// NewRunner returns a runner answering with handler.
func NewRunner(handler Handler) *Runner {
	return &Runner{Handler: handler}
}

// Query implements command.Runner. A cancelled ctx fails before the handler runs.
func (r *Runner) Query(ctx context.Context, cmd *command.Command) (command.Rows, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sets, err := r.Handler(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return NewRows(sets...), nil
}

// Commands returns the commands received so far.
func (r *Runner) Commands() []*command.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*command.Command, len(r.commands))
	copy(out, r.commands)
	return out
}
