package ir

import (
	"strings"
)

// FunctionBody is the fully rendered DDL needed to create and to drop one
// routine. DropStatements is plural because every overload sharing the name
// must be dropped on its own.
type FunctionBody struct {
	Identifier     QualifiedName
	DropStatements []string
	CreateScript   string
}

// NormalizeScript trims trailing whitespace and makes sure the script ends
// with a statement separator.
func NormalizeScript(script string) string {
	s := strings.TrimRightFunc(script, isSpace)
	if s == "" || strings.HasSuffix(s, ";") {
		return s
	}
	return s + ";"
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}

// FunctionDeltaKind classifies a FunctionDelta.
type FunctionDeltaKind int

const (
	// FunctionAbsent means the routine is neither on the server nor wanted.
	FunctionAbsent FunctionDeltaKind = iota
	// FunctionMissing means the routine is declared but not on the server.
	FunctionMissing
	// FunctionUnchanged means the server definition matches the declaration.
	FunctionUnchanged
	// FunctionChanged means the server definition differs from the declaration.
	FunctionChanged
	// FunctionRemoved means the routine is on the server but declared removed.
	FunctionRemoved
)

func (k FunctionDeltaKind) String() string {
	switch k {
	case FunctionAbsent:
		return "absent"
	case FunctionMissing:
		return "missing"
	case FunctionUnchanged:
		return "unchanged"
	case FunctionChanged:
		return "changed"
	case FunctionRemoved:
		return "removed"
	}
	return "unknown"
}

// FunctionDelta pairs the declared body with the body read from the catalog.
// Actual is nil when the routine does not exist.
type FunctionDelta struct {
	Expected *FunctionBody
	Actual   *FunctionBody
	// Removed is set when the declaration asks for the routine to be dropped.
	Removed bool
	// Equivalent is set when the two scripts compare equal, textually or
	// after canonicalization.
	Equivalent bool
}

// Kind reports how the delta should be patched.
func (delta *FunctionDelta) Kind() FunctionDeltaKind {
	switch {
	case delta.Actual == nil && delta.Removed:
		return FunctionAbsent
	case delta.Actual == nil:
		return FunctionMissing
	case delta.Removed:
		return FunctionRemoved
	case delta.Equivalent:
		return FunctionUnchanged
	}
	return FunctionChanged
}

// ScriptsMatch compares two create scripts after NormalizeScript.
func ScriptsMatch(expected, actual string) bool {
	return NormalizeScript(expected) == NormalizeScript(actual)
}
