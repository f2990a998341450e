package diff

import (
	"errors"
	"fmt"

	"github.com/pgschema/ddlpatch/internal/ir"
)

// ErrPolicyViolation matches every PolicyViolationError.
var ErrPolicyViolation = errors.New("policy violation")

// PolicyViolationError reports an object whose verdict the AutoCreate policy
// does not permit. Its DDL is not part of the run's scripts.
type PolicyViolationError struct {
	Kind       Kind
	Identifier ir.QualifiedName
	Verdict    Difference
	Policy     AutoCreate
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("%s %s needs %s but auto-create policy is %s", e.Kind, e.Identifier, e.Verdict, e.Policy)
}

// Is reports ErrPolicyViolation as a match.
func (e *PolicyViolationError) Is(target error) bool {
	return target == ErrPolicyViolation
}
