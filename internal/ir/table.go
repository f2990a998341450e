package ir

import (
	"fmt"
	"io"
	"strings"
)

// Column is one column of a Table.
type Column struct {
	Name    string
	Type    string
	NotNull bool
	// Default is written on create but not compared against the catalog,
	// which renders defaults in a server specific form.
	Default string
}

// Declaration renders the column definition used by CREATE TABLE and ADD COLUMN.
func (c *Column) Declaration(rules *DdlRules) string {
	var sb strings.Builder
	sb.WriteString(rules.QuoteIdentifier(c.Name))
	sb.WriteString(" ")
	sb.WriteString(c.Type)
	if c.Default != "" {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(c.Default)
	}
	if c.NotNull {
		sb.WriteString(" NOT NULL")
	}
	return sb.String()
}

// PrimaryKey is a table's primary key constraint.
type PrimaryKey struct {
	Name    string
	Columns []string
}

// Table is the structured form of a table: columns in declaration order, an
// optional primary key and zero or more foreign keys.
type Table struct {
	Identifier  QualifiedName
	Columns     []*Column
	PrimaryKey  *PrimaryKey
	ForeignKeys []*ForeignKey
}

// NewTable creates an empty table.
func NewTable(identifier QualifiedName) *Table {
	return &Table{Identifier: identifier}
}

// AddColumn appends a nullable column and returns it for further configuration.
func (t *Table) AddColumn(name, typeName string) *Column {
	col := &Column{Name: name, Type: typeName}
	t.Columns = append(t.Columns, col)
	return col
}

// SetPrimaryKey sets the primary key, naming it pkey_{table}_{columns} when name is empty.
func (t *Table) SetPrimaryKey(name string, columns ...string) {
	if name == "" {
		name = fmt.Sprintf("pkey_%s_%s", t.Identifier.Name, strings.Join(columns, "_"))
	}
	t.PrimaryKey = &PrimaryKey{Name: name, Columns: columns}
}

// AddForeignKey appends fk, naming it fkey_{table}_{columns} when unnamed.
func (t *Table) AddForeignKey(fk *ForeignKey) {
	if fk.Name == "" {
		fk.Name = fmt.Sprintf("fkey_%s_%s", t.Identifier.Name, strings.Join(fk.ColumnNames, "_"))
	}
	t.ForeignKeys = append(t.ForeignKeys, fk)
}

// Column finds a column by name under the dialect's identifier rules.
func (t *Table) Column(d Dialect, name string) *Column {
	for _, c := range t.Columns {
		if d.SameIdentifier(c.Name, name) {
			return c
		}
	}
	return nil
}

// ForeignKey finds a foreign key by constraint name.
func (t *Table) ForeignKey(d Dialect, name string) *ForeignKey {
	for _, fk := range t.ForeignKeys {
		if d.SameIdentifier(fk.Name, name) {
			return fk
		}
	}
	return nil
}

// References returns the distinct tables this table's foreign keys point at,
// excluding self references, in declaration order.
func (t *Table) References(d Dialect) []QualifiedName {
	var refs []QualifiedName
	seen := map[string]bool{d.NameKey(t.Identifier): true}
	for _, fk := range t.ForeignKeys {
		key := d.NameKey(fk.LinkedTable)
		if seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, fk.LinkedTable)
	}
	return refs
}

// Validate checks that columns are unique and that key columns exist.
func (t *Table) Validate(d Dialect) error {
	if t.Identifier.Name == "" {
		return fmt.Errorf("%w: table has no name", ErrMalformedIdentifier)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", t.Identifier)
	}
	for i, c := range t.Columns {
		if c.Name == "" || c.Type == "" {
			return fmt.Errorf("table %s: column %d needs a name and a type", t.Identifier, i+1)
		}
		for _, other := range t.Columns[:i] {
			if d.SameIdentifier(other.Name, c.Name) {
				return fmt.Errorf("table %s declares column %s twice", t.Identifier, c.Name)
			}
		}
	}
	if t.PrimaryKey != nil {
		if len(t.PrimaryKey.Columns) == 0 {
			return fmt.Errorf("table %s: primary key has no columns", t.Identifier)
		}
		for _, name := range t.PrimaryKey.Columns {
			if t.Column(d, name) == nil {
				return fmt.Errorf("table %s: primary key column %s is not declared", t.Identifier, name)
			}
		}
	}
	for _, fk := range t.ForeignKeys {
		if err := fk.Validate(d); err != nil {
			return fmt.Errorf("table %s: %w", t.Identifier, err)
		}
		for _, name := range fk.ColumnNames {
			if t.Column(d, name) == nil {
				return fmt.Errorf("table %s: foreign key %s column %s is not declared", t.Identifier, fk.Name, name)
			}
		}
	}
	return nil
}

// WriteCreateStatement writes CREATE TABLE followed by one ALTER TABLE per foreign key.
func (t *Table) WriteCreateStatement(rules *DdlRules, w io.Writer) error {
	t.WriteCreateTable(rules, w)
	return t.WriteForeignKeys(rules, w)
}

// WriteCreateTable writes the CREATE TABLE statement with columns and the
// primary key but without foreign keys.
func (t *Table) WriteCreateTable(rules *DdlRules, w io.Writer) {
	name := rules.QualifiedName(t.Identifier)

	switch {
	case rules.TableCreation == DropThenCreate:
		fmt.Fprintln(w, t.DropDDL(rules))
		fmt.Fprintf(w, "CREATE TABLE %s (\n", name)
	case rules.Dialect == SQLServer:
		fmt.Fprintf(w, "IF OBJECT_ID(N'%s', N'U') IS NULL\n", escapeLiteral(name))
		fmt.Fprintf(w, "CREATE TABLE %s (\n", name)
	default:
		fmt.Fprintf(w, "CREATE TABLE IF NOT EXISTS %s (\n", name)
	}

	lines := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		lines = append(lines, "    "+c.Declaration(rules))
	}
	if t.PrimaryKey != nil {
		lines = append(lines, fmt.Sprintf("    CONSTRAINT %s PRIMARY KEY (%s)",
			rules.QuoteIdentifier(t.PrimaryKey.Name), rules.QuoteIdentifiers(t.PrimaryKey.Columns)))
	}
	fmt.Fprintln(w, strings.Join(lines, ",\n"))
	fmt.Fprintln(w, ");")
}

// WriteForeignKeys writes one ALTER TABLE ADD CONSTRAINT per foreign key.
func (t *Table) WriteForeignKeys(rules *DdlRules, w io.Writer) error {
	for _, fk := range t.ForeignKeys {
		if err := writeForeignKey(rules, w, t.Identifier, fk); err != nil {
			return err
		}
	}
	return nil
}

// WriteDropForeignKeys writes one ALTER TABLE DROP CONSTRAINT per foreign key.
func (t *Table) WriteDropForeignKeys(rules *DdlRules, w io.Writer) {
	for _, fk := range t.ForeignKeys {
		fmt.Fprintln(w, fk.DropDDL(rules, t.Identifier))
	}
}

// CreateDDL returns the output of WriteCreateStatement as a string.
func (t *Table) CreateDDL(rules *DdlRules) (string, error) {
	var sb strings.Builder
	if err := t.WriteCreateStatement(rules, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// DropDDL renders the statement dropping the table.
func (t *Table) DropDDL(rules *DdlRules) string {
	if rules.Dialect == Postgres {
		return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", rules.QualifiedName(t.Identifier))
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", rules.QualifiedName(t.Identifier))
}

// ColumnChange pairs the declared and catalog versions of a column whose
// type or nullability differ.
type ColumnChange struct {
	Expected *Column
	Actual   *Column
}

// ForeignKeyChange pairs the declared and catalog versions of a constraint
// sharing a name.
type ForeignKeyChange struct {
	Expected *ForeignKey
	Actual   *ForeignKey
}

// TableDelta is the structural difference between a declared table and the
// same table read from the catalog.
type TableDelta struct {
	Expected *Table
	Actual   *Table

	MissingColumns []*Column
	ExtraColumns   []*Column
	ChangedColumns []ColumnChange

	PrimaryKeyChanged bool

	MissingForeignKeys []*ForeignKey
	ExtraForeignKeys   []*ForeignKey
	ChangedForeignKeys []ForeignKeyChange
}

// Diff computes the delta from actual (catalog) to t (declared).
func (t *Table) Diff(d Dialect, actual *Table) *TableDelta {
	delta := &TableDelta{Expected: t, Actual: actual}

	for _, col := range t.Columns {
		existing := actual.Column(d, col.Name)
		switch {
		case existing == nil:
			delta.MissingColumns = append(delta.MissingColumns, col)
		case NormalizeType(d, col.Type) != NormalizeType(d, existing.Type) || col.NotNull != existing.NotNull:
			delta.ChangedColumns = append(delta.ChangedColumns, ColumnChange{Expected: col, Actual: existing})
		}
	}
	for _, col := range actual.Columns {
		if t.Column(d, col.Name) == nil {
			delta.ExtraColumns = append(delta.ExtraColumns, col)
		}
	}

	delta.PrimaryKeyChanged = !samePrimaryKey(d, t.PrimaryKey, actual.PrimaryKey)

	for _, fk := range t.ForeignKeys {
		existing := actual.ForeignKey(d, fk.Name)
		switch {
		case existing == nil:
			delta.MissingForeignKeys = append(delta.MissingForeignKeys, fk)
		case !fk.Equal(d, existing):
			delta.ChangedForeignKeys = append(delta.ChangedForeignKeys, ForeignKeyChange{Expected: fk, Actual: existing})
		}
	}
	for _, fk := range actual.ForeignKeys {
		if t.ForeignKey(d, fk.Name) == nil {
			delta.ExtraForeignKeys = append(delta.ExtraForeignKeys, fk)
		}
	}

	return delta
}

func samePrimaryKey(d Dialect, a, b *PrimaryKey) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return d.SameIdentifier(a.Name, b.Name) && sameIdentifierList(d, a.Columns, b.Columns)
}

// HasChanges reports whether applying the delta would change anything.
func (delta *TableDelta) HasChanges() bool {
	return len(delta.MissingColumns) > 0 ||
		len(delta.ExtraColumns) > 0 ||
		len(delta.ChangedColumns) > 0 ||
		delta.PrimaryKeyChanged ||
		len(delta.MissingForeignKeys) > 0 ||
		len(delta.ExtraForeignKeys) > 0 ||
		len(delta.ChangedForeignKeys) > 0
}

// WriteUp writes the ALTER statements moving the catalog table to the declared one.
func (delta *TableDelta) WriteUp(rules *DdlRules, w io.Writer) error {
	return delta.WriteUpStaged(rules, w, w, w)
}

// WriteUpStaged writes WriteUp split in three: foreign key drops into drops,
// column and primary key changes into body and foreign key additions into adds.
func (delta *TableDelta) WriteUpStaged(rules *DdlRules, drops, body, adds io.Writer) error {
	id := delta.Expected.Identifier

	for _, fk := range delta.ExtraForeignKeys {
		fmt.Fprintln(drops, fk.DropDDL(rules, id))
	}
	for _, change := range delta.ChangedForeignKeys {
		fmt.Fprintln(drops, change.Actual.DropDDL(rules, id))
	}
	if delta.PrimaryKeyChanged && delta.Actual.PrimaryKey != nil {
		fmt.Fprintln(body, dropConstraintDDL(rules, id, delta.Actual.PrimaryKey.Name))
	}
	for _, col := range delta.MissingColumns {
		fmt.Fprintln(body, addColumnDDL(rules, id, col))
	}
	for _, change := range delta.ChangedColumns {
		writeAlterColumn(rules, body, id, change.Actual, change.Expected)
	}
	for _, col := range delta.ExtraColumns {
		fmt.Fprintln(body, dropColumnDDL(rules, id, col))
	}
	if delta.PrimaryKeyChanged && delta.Expected.PrimaryKey != nil {
		fmt.Fprintln(body, addPrimaryKeyDDL(rules, id, delta.Expected.PrimaryKey))
	}
	for _, fk := range delta.MissingForeignKeys {
		if err := writeForeignKey(rules, adds, id, fk); err != nil {
			return err
		}
	}
	for _, change := range delta.ChangedForeignKeys {
		if err := writeForeignKey(rules, adds, id, change.Expected); err != nil {
			return err
		}
	}
	return nil
}

// WriteDown writes the statements reverting WriteUp.
func (delta *TableDelta) WriteDown(rules *DdlRules, w io.Writer) error {
	return delta.WriteDownStaged(rules, w, w, w)
}

// WriteDownStaged is WriteDown split the same way as WriteUpStaged.
func (delta *TableDelta) WriteDownStaged(rules *DdlRules, drops, body, adds io.Writer) error {
	id := delta.Expected.Identifier

	for _, fk := range delta.MissingForeignKeys {
		fmt.Fprintln(drops, fk.DropDDL(rules, id))
	}
	for _, change := range delta.ChangedForeignKeys {
		fmt.Fprintln(drops, change.Expected.DropDDL(rules, id))
	}
	if delta.PrimaryKeyChanged && delta.Expected.PrimaryKey != nil {
		fmt.Fprintln(body, dropConstraintDDL(rules, id, delta.Expected.PrimaryKey.Name))
	}
	for _, col := range delta.ExtraColumns {
		fmt.Fprintln(body, addColumnDDL(rules, id, col))
	}
	for _, change := range delta.ChangedColumns {
		writeAlterColumn(rules, body, id, change.Expected, change.Actual)
	}
	for _, col := range delta.MissingColumns {
		fmt.Fprintln(body, dropColumnDDL(rules, id, col))
	}
	if delta.PrimaryKeyChanged && delta.Actual.PrimaryKey != nil {
		fmt.Fprintln(body, addPrimaryKeyDDL(rules, id, delta.Actual.PrimaryKey))
	}
	for _, fk := range delta.ExtraForeignKeys {
		if err := writeForeignKey(rules, adds, id, fk); err != nil {
			return err
		}
	}
	for _, change := range delta.ChangedForeignKeys {
		if err := writeForeignKey(rules, adds, id, change.Actual); err != nil {
			return err
		}
	}
	return nil
}

func writeForeignKey(rules *DdlRules, w io.Writer, table QualifiedName, fk *ForeignKey) error {
	ddl, err := fk.ToDDL(rules, table)
	if err != nil {
		return fmt.Errorf("table %s: %w", table, err)
	}
	fmt.Fprintln(w, ddl)
	return nil
}

func addColumnDDL(rules *DdlRules, table QualifiedName, col *Column) string {
	if rules.Dialect == SQLServer {
		return fmt.Sprintf("ALTER TABLE %s ADD %s;", rules.QualifiedName(table), col.Declaration(rules))
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s;", rules.QualifiedName(table), col.Declaration(rules))
}

func dropColumnDDL(rules *DdlRules, table QualifiedName, col *Column) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s;", rules.QualifiedName(table), rules.QuoteIdentifier(col.Name))
}

// writeAlterColumn writes the statements changing column from into to.
func writeAlterColumn(rules *DdlRules, w io.Writer, table QualifiedName, from, to *Column) {
	name := rules.QualifiedName(table)
	col := rules.QuoteIdentifier(to.Name)

	if rules.Dialect == SQLServer {
		nullability := "NULL"
		if to.NotNull {
			nullability = "NOT NULL"
		}
		fmt.Fprintf(w, "ALTER TABLE %s ALTER COLUMN %s %s %s;\n", name, col, to.Type, nullability)
		return
	}

	if NormalizeType(rules.Dialect, from.Type) != NormalizeType(rules.Dialect, to.Type) {
		fmt.Fprintf(w, "ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s;\n", name, col, to.Type, col, to.Type)
	}
	if from.NotNull != to.NotNull {
		if to.NotNull {
			fmt.Fprintf(w, "ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;\n", name, col)
		} else {
			fmt.Fprintf(w, "ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL;\n", name, col)
		}
	}
}

func addPrimaryKeyDDL(rules *DdlRules, table QualifiedName, pk *PrimaryKey) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s);",
		rules.QualifiedName(table), rules.QuoteIdentifier(pk.Name), rules.QuoteIdentifiers(pk.Columns))
}

func dropConstraintDDL(rules *DdlRules, table QualifiedName, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;", rules.QualifiedName(table), rules.QuoteIdentifier(name))
}
