package ir

import (
	"fmt"
	"strings"
)

// ForeignKey is a referential constraint owned by a Table. LinkedTable is a
// reference by name only; the referenced table need not be known to the run.
type ForeignKey struct {
	Name        string
	ColumnNames []string
	LinkedTable QualifiedName
	// LinkedNames pairs positionally with ColumnNames.
	LinkedNames []string
	OnDelete    CascadeAction
	OnUpdate    CascadeAction
}

// Validate checks the column pairing invariant and dialect support for the
// referential actions.
func (fk *ForeignKey) Validate(d Dialect) error {
	if fk.Name == "" {
		return fmt.Errorf("foreign key on %s has no name", strings.Join(fk.ColumnNames, ", "))
	}
	if len(fk.ColumnNames) == 0 {
		return fmt.Errorf("foreign key %s has no columns", fk.Name)
	}
	if len(fk.ColumnNames) != len(fk.LinkedNames) {
		return fmt.Errorf("foreign key %s pairs %d columns with %d referenced columns",
			fk.Name, len(fk.ColumnNames), len(fk.LinkedNames))
	}
	seen := make(map[string]bool, len(fk.ColumnNames))
	for _, col := range fk.ColumnNames {
		key := col
		if d == SQLServer {
			key = strings.ToLower(col)
		}
		if seen[key] {
			return fmt.Errorf("foreign key %s lists column %s twice", fk.Name, col)
		}
		seen[key] = true
	}
	if fk.LinkedTable.Name == "" {
		return fmt.Errorf("foreign key %s has no referenced table", fk.Name)
	}
	if !d.SupportsCascade(fk.OnDelete) {
		return unsupported(d, "ON DELETE "+fk.OnDelete.String())
	}
	if !d.SupportsCascade(fk.OnUpdate) {
		return unsupported(d, "ON UPDATE "+fk.OnUpdate.String())
	}
	return nil
}

// ToDDL renders the ALTER TABLE statement adding this constraint to table.
// ON DELETE and ON UPDATE clauses are only written for actions other than NO ACTION.
func (fk *ForeignKey) ToDDL(rules *DdlRules, table QualifiedName) (string, error) {
	d := rules.Dialect
	if !d.SupportsCascade(fk.OnDelete) {
		return "", unsupported(d, "ON DELETE "+fk.OnDelete.String())
	}
	if !d.SupportsCascade(fk.OnUpdate) {
		return "", unsupported(d, "ON UPDATE "+fk.OnUpdate.String())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY(%s) REFERENCES %s(%s)",
		rules.QualifiedName(table),
		rules.QuoteIdentifier(fk.Name),
		rules.QuoteIdentifiers(fk.ColumnNames),
		rules.QualifiedName(fk.LinkedTable),
		rules.QuoteIdentifiers(fk.LinkedNames))

	if fk.OnDelete != NoAction {
		sb.WriteString(" ON DELETE " + fk.OnDelete.String())
	}
	if fk.OnUpdate != NoAction {
		sb.WriteString(" ON UPDATE " + fk.OnUpdate.String())
	}
	sb.WriteString(";")

	return sb.String(), nil
}

// DropDDL renders the statement removing this constraint from table.
func (fk *ForeignKey) DropDDL(rules *DdlRules, table QualifiedName) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;",
		rules.QualifiedName(table), rules.QuoteIdentifier(fk.Name))
}

// Equal compares two foreign keys structurally under the dialect's identifier rules.
func (fk *ForeignKey) Equal(d Dialect, other *ForeignKey) bool {
	if other == nil {
		return false
	}
	if !d.SameIdentifier(fk.Name, other.Name) {
		return false
	}
	if !d.SameName(fk.LinkedTable, other.LinkedTable) {
		return false
	}
	if fk.OnDelete != other.OnDelete || fk.OnUpdate != other.OnUpdate {
		return false
	}
	return sameIdentifierList(d, fk.ColumnNames, other.ColumnNames) &&
		sameIdentifierList(d, fk.LinkedNames, other.LinkedNames)
}

func sameIdentifierList(d Dialect, a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !d.SameIdentifier(a[i], b[i]) {
			return false
		}
	}
	return true
}

// ParseForeignKey reads a catalog constraint definition of the shape
//
//	FOREIGN KEY (c1[, c2...]) REFERENCES table(l1[, l2...]) [ON DELETE action] [ON UPDATE action]
//
// as produced by pg_get_constraintdef or assembled from sys.foreign_keys. An
// unqualified referenced table resolves to the dialect default schema.
func ParseForeignKey(d Dialect, name, definition string) (*ForeignKey, error) {
	tokens, err := tokenize(definition)
	if err != nil {
		return nil, unparseable(definition, err.Error())
	}

	pos := -1
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i].is("FOREIGN") && tokens[i+1].is("KEY") {
			pos = i + 2
			break
		}
	}
	if pos < 0 {
		return nil, unparseable(definition, "missing FOREIGN KEY clause")
	}

	columns, pos, err := identifierList(d, tokens, pos)
	if err != nil {
		return nil, unparseable(definition, "column list: "+err.Error())
	}

	if pos >= len(tokens) || !tokens[pos].is("REFERENCES") {
		return nil, unparseable(definition, "missing REFERENCES clause")
	}
	pos++

	linkedTable, rest, err := qualifiedNameFromTokens(d, tokens[pos:])
	if err != nil {
		return nil, unparseable(definition, "referenced table: "+err.Error())
	}
	pos = len(tokens) - len(rest)

	linked, pos, err := identifierList(d, tokens, pos)
	if err != nil {
		return nil, unparseable(definition, "referenced column list: "+err.Error())
	}

	fk := &ForeignKey{
		Name:        name,
		ColumnNames: columns,
		LinkedTable: linkedTable,
		LinkedNames: linked,
	}

	for pos < len(tokens) {
		if tokens[pos].is("ON") && pos+1 < len(tokens) && (tokens[pos+1].is("DELETE") || tokens[pos+1].is("UPDATE")) {
			action, consumed, err := cascadeFromTokens(tokens[pos+2:])
			if err != nil {
				return nil, unparseable(definition, err.Error())
			}
			if tokens[pos+1].is("DELETE") {
				fk.OnDelete = action
			} else {
				fk.OnUpdate = action
			}
			pos += 2 + consumed
			continue
		}
		pos++
	}

	if len(fk.ColumnNames) != len(fk.LinkedNames) {
		return nil, unparseable(definition, "column and referenced column counts differ")
	}
	if !d.SupportsCascade(fk.OnDelete) {
		return nil, unsupported(d, "ON DELETE "+fk.OnDelete.String())
	}
	if !d.SupportsCascade(fk.OnUpdate) {
		return nil, unsupported(d, "ON UPDATE "+fk.OnUpdate.String())
	}

	return fk, nil
}

// identifierList consumes `( ident [, ident...] )` starting at pos.
func identifierList(d Dialect, tokens []token, pos int) ([]string, int, error) {
	if pos >= len(tokens) || !tokens[pos].isPunct("(") {
		return nil, pos, nameError("expected (")
	}
	pos++

	var idents []string
	for {
		if pos >= len(tokens) || !tokens[pos].isIdentifier() {
			return nil, pos, nameError("expected identifier")
		}
		ident := tokens[pos].identifier(d)
		if ident == "" {
			return nil, pos, nameError("empty identifier")
		}
		idents = append(idents, ident)
		pos++

		if pos >= len(tokens) {
			return nil, pos, nameError("expected )")
		}
		if tokens[pos].isPunct(")") {
			return idents, pos + 1, nil
		}
		if !tokens[pos].isPunct(",") {
			return nil, pos, nameError("expected , or )")
		}
		pos++
	}
}

// cascadeFromTokens reads a referential action keyword sequence and reports
// how many tokens it consumed.
func cascadeFromTokens(tokens []token) (CascadeAction, int, error) {
	if len(tokens) == 0 {
		return NoAction, 0, nameError("missing referential action")
	}
	first := tokens[0]
	switch {
	case first.is("CASCADE"):
		return Cascade, 1, nil
	case first.is("RESTRICT"):
		return Restrict, 1, nil
	case first.is("NO") && len(tokens) > 1 && tokens[1].is("ACTION"):
		return NoAction, 2, nil
	case first.is("SET") && len(tokens) > 1 && tokens[1].is("NULL"):
		return SetNull, 2, nil
	case first.is("SET") && len(tokens) > 1 && tokens[1].is("DEFAULT"):
		return SetDefault, 2, nil
	}
	return NoAction, 0, fmt.Errorf("unknown referential action %q", first.text)
}
