package ir

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedIdentifier is returned for qualified-name input that cannot be split
	// into non-empty schema and name segments.
	ErrMalformedIdentifier = errors.New("malformed identifier")

	// ErrUnparseableConstraintDefinition is returned when catalog constraint text
	// does not match the foreign key grammar.
	ErrUnparseableConstraintDefinition = errors.New("unparseable constraint definition")

	// ErrUnsupportedDialectFeature is returned when a model uses a feature the
	// target dialect lacks, e.g. ON DELETE RESTRICT on SQL Server.
	ErrUnsupportedDialectFeature = errors.New("unsupported dialect feature")
)

func malformed(input, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrMalformedIdentifier, input, reason)
}

func unparseable(definition, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrUnparseableConstraintDefinition, definition, reason)
}

func unsupported(d Dialect, feature string) error {
	return fmt.Errorf("%w: %s is not supported by %s", ErrUnsupportedDialectFeature, feature, d)
}
