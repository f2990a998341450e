package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"
)

// ErrCommandExecutionFailed matches every provider failure raised while a
// command runs.
var ErrCommandExecutionFailed = errors.New("command execution failed")

// ExecutionError carries the failing statement and the provider error code:
// a SQLSTATE on PostgreSQL, an error number on SQL Server.
type ExecutionError struct {
	Statement string
	Code      string
	Err       error
}

func (e *ExecutionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %v", ErrCommandExecutionFailed, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrCommandExecutionFailed, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is reports ErrCommandExecutionFailed as a match.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrCommandExecutionFailed
}

// WrapError converts a driver error into an ExecutionError. Cancellation of
// ctx is returned as the context error so callers can tell it apart.
func WrapError(ctx context.Context, statement string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ExecutionError{Statement: statement, Code: errorCode(err), Err: err}
}

func errorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return strconv.Itoa(int(msErr.Number))
	}
	return ""
}
