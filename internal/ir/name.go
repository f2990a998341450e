package ir

import "strings"

// QualifiedName is a two-part schema object identifier. Schema is never empty
// for values built through NewQualifiedName or ParseQualifiedName.
type QualifiedName struct {
	Schema string `json:"schema" yaml:"schema"`
	Name   string `json:"name" yaml:"name"`
}

// NewQualifiedName builds a name, substituting the dialect default schema when
// schema is empty.
func NewQualifiedName(d Dialect, schema, name string) QualifiedName {
	if schema == "" {
		schema = d.DefaultSchema()
	}
	return QualifiedName{Schema: schema, Name: name}
}

// ParseQualifiedName parses SQL text such as `people`, `public.people`,
// `"Sales"."Orders"` or `[dbo].[people]`. Unquoted parts are folded the way
// the dialect folds identifiers.
func ParseQualifiedName(d Dialect, text string) (QualifiedName, error) {
	if strings.TrimSpace(text) == "" {
		return QualifiedName{}, malformed(text, "empty name")
	}

	tokens, err := tokenize(text)
	if err != nil {
		return QualifiedName{}, malformed(text, err.Error())
	}

	name, rest, err := qualifiedNameFromTokens(d, tokens)
	if err != nil {
		return QualifiedName{}, malformed(text, err.Error())
	}
	if len(rest) > 0 {
		return QualifiedName{}, malformed(text, "unexpected trailing text")
	}
	return name, nil
}

type nameError string

func (e nameError) Error() string { return string(e) }

// qualifiedNameFromTokens consumes `ident [. ident]` from the head of tokens.
func qualifiedNameFromTokens(d Dialect, tokens []token) (QualifiedName, []token, error) {
	var parts []string
	expectIdent := true

	i := 0
	for ; i < len(tokens); i++ {
		t := tokens[i]
		if expectIdent {
			if !t.isIdentifier() {
				return QualifiedName{}, nil, nameError("empty name segment")
			}
			ident := t.identifier(d)
			if ident == "" {
				return QualifiedName{}, nil, nameError("empty name segment")
			}
			parts = append(parts, ident)
			expectIdent = false
			continue
		}
		if !t.isPunct(".") {
			break
		}
		expectIdent = true
	}

	if expectIdent {
		return QualifiedName{}, nil, nameError("empty name segment")
	}

	switch len(parts) {
	case 1:
		return NewQualifiedName(d, "", parts[0]), tokens[i:], nil
	case 2:
		return QualifiedName{Schema: parts[0], Name: parts[1]}, tokens[i:], nil
	}
	return QualifiedName{}, nil, nameError("expected at most schema and name")
}

// Quoted renders schema.name with the dialect's quoting rules.
func (n QualifiedName) Quoted(d Dialect) string {
	return d.QuoteIdentifier(n.Schema) + "." + d.QuoteIdentifier(n.Name)
}

func (n QualifiedName) String() string {
	return n.Schema + "." + n.Name
}

// IsZero reports whether n has not been set.
func (n QualifiedName) IsZero() bool {
	return n.Schema == "" && n.Name == ""
}
