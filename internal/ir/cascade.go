package ir

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// CascadeAction is the referential action taken on delete or update of a
// referenced row.
type CascadeAction int

const (
	NoAction CascadeAction = iota
	Cascade
	SetNull
	SetDefault
	Restrict
)

// String returns the SQL keyword for the action.
func (a CascadeAction) String() string {
	switch a {
	case NoAction:
		return "NO ACTION"
	case Cascade:
		return "CASCADE"
	case SetNull:
		return "SET NULL"
	case SetDefault:
		return "SET DEFAULT"
	case Restrict:
		return "RESTRICT"
	}
	return fmt.Sprintf("CascadeAction(%d)", int(a))
}

// ParseCascadeAction accepts SQL keywords (`SET NULL`, `set_null`) and
// camel-case names (`setNull`). The empty string is NoAction.
func ParseCascadeAction(s string) (CascadeAction, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	switch key {
	case "", "noaction":
		return NoAction, nil
	case "cascade":
		return Cascade, nil
	case "setnull":
		return SetNull, nil
	case "setdefault":
		return SetDefault, nil
	case "restrict":
		return Restrict, nil
	}
	return NoAction, fmt.Errorf("unknown cascade action %q", s)
}

// UnmarshalYAML lets declaration files spell actions as plain strings.
func (a *CascadeAction) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseCascadeAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalYAML renders the action as its SQL keyword.
func (a CascadeAction) MarshalYAML() (any, error) {
	return a.String(), nil
}
