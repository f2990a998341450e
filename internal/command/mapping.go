package command

import (
	"context"
	"fmt"
	"time"
)

// Column maps the value at ordinal of the current row to T. The boolean is
// false when the value is NULL.
func Column[T any](rows Rows, ordinal int) (T, bool, error) {
	var zero T

	values, err := rows.Values()
	if err != nil {
		return zero, false, err
	}
	if ordinal < 0 || ordinal >= len(values) {
		return zero, false, fmt.Errorf("column %d out of range (row has %d columns)", ordinal, len(values))
	}
	if values[ordinal] == nil {
		return zero, false, nil
	}

	v, err := convert[T](values[ordinal])
	if err != nil {
		return zero, false, fmt.Errorf("column %d: %w", ordinal, err)
	}
	return v, true, nil
}

// FetchList reads the column at ordinal from every remaining row of the
// current result set, skipping NULLs.
func FetchList[T any](rows Rows, ordinal int) ([]T, error) {
	var list []T
	for rows.Next() {
		v, ok, err := Column[T](rows, ordinal)
		if err != nil {
			return nil, err
		}
		if ok {
			list = append(list, v)
		}
	}
	return list, rows.Err()
}

// FetchOne reads the column at ordinal from the first row of the current
// result set. The boolean is false when there is no row or the value is NULL.
func FetchOne[T any](rows Rows, ordinal int) (T, bool, error) {
	var zero T
	if !rows.Next() {
		return zero, false, rows.Err()
	}
	return Column[T](rows, ordinal)
}

// RunSQL executes statements one at a time on runner, discarding results.
func RunSQL(ctx context.Context, runner Runner, statements ...string) error {
	for _, stmt := range statements {
		rows, err := runner.Query(ctx, &Command{Statements: []string{stmt}})
		if err != nil {
			return err
		}
		for rows.Next() {
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func convert[T any](v any) (T, error) {
	var out T
	if t, ok := v.(T); ok {
		return t, nil
	}

	switch p := any(&out).(type) {
	case *string:
		switch x := v.(type) {
		case []byte:
			*p = string(x)
			return out, nil
		case fmt.Stringer:
			*p = x.String()
			return out, nil
		}
	case *int:
		if n, ok := toInt64(v); ok {
			*p = int(n)
			return out, nil
		}
	case *int64:
		if n, ok := toInt64(v); ok {
			*p = n
			return out, nil
		}
	case *int32:
		if n, ok := toInt64(v); ok {
			*p = int32(n)
			return out, nil
		}
	case *bool:
		if n, ok := toInt64(v); ok {
			*p = n != 0
			return out, nil
		}
	case *time.Time:
		if s, ok := v.(string); ok {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return out, err
			}
			*p = t
			return out, nil
		}
	}

	return out, fmt.Errorf("cannot convert %T to %T", v, out)
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int8:
		return int64(x), true
	case int:
		return int64(x), true
	case uint8:
		return int64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
