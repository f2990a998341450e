package diff

import (
	"fmt"
	"strings"
)

// Difference is the verdict of one object's patch computation. Values are
// ordered so the worst verdict of a run is the maximum.
type Difference int

const (
	None Difference = iota
	Create
	Update
	Invalid
)

func (d Difference) String() string {
	switch d {
	case None:
		return "none"
	case Create:
		return "create"
	case Update:
		return "update"
	case Invalid:
		return "invalid"
	}
	return fmt.Sprintf("Difference(%d)", int(d))
}

// Worst returns the more severe of a and b.
func Worst(a, b Difference) Difference {
	if a > b {
		return a
	}
	return b
}

// AutoCreate is the creation policy consulted before an object's DDL is
// committed to the run's scripts.
type AutoCreate int

const (
	// AutoCreateNone never creates or changes objects.
	AutoCreateNone AutoCreate = iota
	// AutoCreateCreateOnly creates missing objects.
	AutoCreateCreateOnly
	// AutoCreateCreateOrUpdate creates missing objects and alters changed ones.
	AutoCreateCreateOrUpdate
	// AutoCreateAll also tears down and recreates changed tables.
	AutoCreateAll
)

func (a AutoCreate) String() string {
	switch a {
	case AutoCreateNone:
		return "none"
	case AutoCreateCreateOnly:
		return "create-only"
	case AutoCreateCreateOrUpdate:
		return "create-or-update"
	case AutoCreateAll:
		return "all"
	}
	return fmt.Sprintf("AutoCreate(%d)", int(a))
}

// ParseAutoCreate maps a flag or environment value to an AutoCreate policy.
func ParseAutoCreate(s string) (AutoCreate, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case "none", "never":
		return AutoCreateNone, nil
	case "createonly", "create", "createifmissing":
		return AutoCreateCreateOnly, nil
	case "createorupdate", "update":
		return AutoCreateCreateOrUpdate, nil
	case "all", "recreate":
		return AutoCreateAll, nil
	}
	return AutoCreateNone, fmt.Errorf("unknown auto-create policy %q (expected none, create-only, create-or-update or all)", s)
}

// PolicyAllows reports whether policy permits committing DDL for verdict.
// None and Invalid carry no DDL and are always allowed.
func PolicyAllows(policy AutoCreate, verdict Difference) bool {
	switch verdict {
	case Create:
		return policy >= AutoCreateCreateOnly
	case Update:
		return policy >= AutoCreateCreateOrUpdate
	}
	return true
}
