package diff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pgschema/ddlpatch/internal/command"
	"github.com/pgschema/ddlpatch/internal/logger"
)

// Engine runs the fetch, diff and classify protocol for each object against
// one connection.
type Engine struct {
	runner command.Runner
	policy AutoCreate
	log    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger replaces the global logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine returns an engine issuing catalog queries through runner and
// committing DDL only where policy allows.
func NewEngine(runner command.Runner, policy AutoCreate, opts ...Option) *Engine {
	e := &Engine{runner: runner, policy: policy, log: logger.Get()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the engine's AutoCreate policy.
func (e *Engine) Policy() AutoCreate {
	return e.policy
}

// Reconcile processes objects in order and records their results in patch.
//
// Command failures and cancellation stop the run and are returned; patch then
// holds exactly the results of the objects processed before the failing one.
// Parse and classification failures mark the object Invalid and the run
// continues. Verdicts the policy forbids are recorded as violations without
// DDL.
func (e *Engine) Reconcile(ctx context.Context, patch *SchemaPatch, objects ...Object) error {
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := e.reconcileOne(ctx, patch, obj)
		if err != nil {
			return fmt.Errorf("%s %s: %w", obj.Kind(), obj.Identifier(), err)
		}
		patch.record(obj, result)
		e.logResult(result)
	}
	return nil
}

func (e *Engine) reconcileOne(ctx context.Context, patch *SchemaPatch, obj Object) (*Result, error) {
	b := command.NewBuilder(patch.Rules.Dialect)
	obj.ConfigureQueryCommand(b)

	rows, err := e.runner.Query(ctx, b.Command())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &Result{Kind: obj.Kind(), Identifier: obj.Identifier()}

	staged := NewObjectPatch(patch.Rules)
	verdict, err := obj.CreatePatch(rows, staged, e.policy)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		if isFatal(err) {
			return nil, err
		}
		result.Difference = Invalid
		result.Diagnostic = err
		return result, nil
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}

	result.Difference = verdict
	if !PolicyAllows(e.policy, verdict) {
		result.Diagnostic = &PolicyViolationError{
			Kind:       obj.Kind(),
			Identifier: obj.Identifier(),
			Verdict:    verdict,
			Policy:     e.policy,
		}
		return result, nil
	}

	result.Committed = true
	result.Up = staged.Up.String()
	result.Down = staged.Down.String()
	result.up = phasesOf(&staged.Up)
	result.down = phasesOf(&staged.Down)
	return result, nil
}

// isFatal reports errors that mean the run itself cannot proceed.
func isFatal(err error) bool {
	return errors.Is(err, command.ErrCommandExecutionFailed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (e *Engine) logResult(r *Result) {
	switch {
	case r.Difference == Invalid:
		e.log.Warn("Object is invalid", "kind", r.Kind, "name", r.Identifier.String(), "error", r.Diagnostic)
	case r.Diagnostic != nil:
		e.log.Warn("Policy violation", "kind", r.Kind, "name", r.Identifier.String(), "verdict", r.Difference.String(), "policy", e.policy.String())
	default:
		e.log.Debug("Object reconciled", "kind", r.Kind, "name", r.Identifier.String(), "verdict", r.Difference.String())
	}
}
