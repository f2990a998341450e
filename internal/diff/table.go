package diff

import (
	"fmt"
	"io"
	"strings"

	"github.com/pgschema/ddlpatch/internal/command"
	"github.com/pgschema/ddlpatch/internal/ir"
)

// TableObject reconciles a declared table with its columns, primary key and
// foreign keys.
type TableObject struct {
	Table *ir.Table
}

// NewTableObject wraps t.
func NewTableObject(t *ir.Table) *TableObject {
	return &TableObject{Table: t}
}

func (o *TableObject) Kind() Kind { return KindTable }

func (o *TableObject) Identifier() ir.QualifiedName { return o.Table.Identifier }

func (o *TableObject) Dependencies(d ir.Dialect) []ir.QualifiedName {
	return o.Table.References(d)
}

const postgresColumnsQuery = `SELECT a.attname, format_type(a.atttypid, a.atttypmod), a.attnotnull, pg_get_expr(ad.adbin, ad.adrelid)
FROM pg_attribute a
JOIN pg_class c ON c.oid = a.attrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
LEFT JOIN pg_attrdef ad ON ad.adrelid = a.attrelid AND ad.adnum = a.attnum
WHERE n.nspname = %s AND c.relname = %s AND c.relkind IN ('r', 'p') AND a.attnum > 0 AND NOT a.attisdropped
ORDER BY a.attnum`

const sqlServerColumnsQuery = `SELECT COLUMN_NAME, DATA_TYPE, CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, NUMERIC_SCALE, DATETIME_PRECISION, IS_NULLABLE, COLUMN_DEFAULT
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = %s AND TABLE_NAME = %s
ORDER BY ORDINAL_POSITION`

const primaryKeyQuery = `SELECT tc.CONSTRAINT_NAME, kcu.COLUMN_NAME
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
  ON kcu.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
 AND kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
 AND kcu.TABLE_SCHEMA = tc.TABLE_SCHEMA
 AND kcu.TABLE_NAME = tc.TABLE_NAME
WHERE tc.TABLE_SCHEMA = %s AND tc.TABLE_NAME = %s AND tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
ORDER BY kcu.ORDINAL_POSITION`

const postgresForeignKeysQuery = `SELECT con.conname, pg_get_constraintdef(con.oid)
FROM pg_constraint con
JOIN pg_class c ON c.oid = con.conrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = %s AND c.relname = %s AND con.contype = 'f'
ORDER BY con.conname`

// SQL Server has no constraint definition function; the definition is
// assembled in the shape pg_get_constraintdef produces so one parser reads both.
const sqlServerForeignKeysQuery = `SELECT fk.name,
  'FOREIGN KEY (' + STRING_AGG(QUOTENAME(pc.name), ', ') WITHIN GROUP (ORDER BY fkc.constraint_column_id)
  + ') REFERENCES ' + QUOTENAME(rs.name) + '.' + QUOTENAME(rt.name)
  + ' (' + STRING_AGG(QUOTENAME(rc.name), ', ') WITHIN GROUP (ORDER BY fkc.constraint_column_id) + ')'
  + ' ON DELETE ' + REPLACE(fk.delete_referential_action_desc, '_', ' ')
  + ' ON UPDATE ' + REPLACE(fk.update_referential_action_desc, '_', ' ')
FROM sys.foreign_keys fk
JOIN sys.tables t ON t.object_id = fk.parent_object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
JOIN sys.tables rt ON rt.object_id = fk.referenced_object_id
JOIN sys.schemas rs ON rs.schema_id = rt.schema_id
WHERE s.name = %s AND t.name = %s
GROUP BY fk.name, rs.name, rt.name, fk.delete_referential_action_desc, fk.update_referential_action_desc
ORDER BY fk.name`

const postgresReferencingKeysQuery = `SELECT n.nspname, c.relname, con.conname, pg_get_constraintdef(con.oid)
FROM pg_constraint con
JOIN pg_class c ON c.oid = con.conrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
JOIN pg_class rc ON rc.oid = con.confrelid
JOIN pg_namespace rn ON rn.oid = rc.relnamespace
WHERE rn.nspname = %s AND rc.relname = %s AND con.contype = 'f' AND con.conrelid <> con.confrelid
ORDER BY n.nspname, c.relname, con.conname`

const sqlServerReferencingKeysQuery = `SELECT s.name, t.name, fk.name,
  'FOREIGN KEY (' + STRING_AGG(QUOTENAME(pc.name), ', ') WITHIN GROUP (ORDER BY fkc.constraint_column_id)
  + ') REFERENCES ' + QUOTENAME(rs.name) + '.' + QUOTENAME(rt.name)
  + ' (' + STRING_AGG(QUOTENAME(rc.name), ', ') WITHIN GROUP (ORDER BY fkc.constraint_column_id) + ')'
  + ' ON DELETE ' + REPLACE(fk.delete_referential_action_desc, '_', ' ')
  + ' ON UPDATE ' + REPLACE(fk.update_referential_action_desc, '_', ' ')
FROM sys.foreign_keys fk
JOIN sys.tables t ON t.object_id = fk.parent_object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
JOIN sys.tables rt ON rt.object_id = fk.referenced_object_id
JOIN sys.schemas rs ON rs.schema_id = rt.schema_id
WHERE rs.name = %s AND rt.name = %s AND fk.parent_object_id <> fk.referenced_object_id
GROUP BY s.name, t.name, fk.name, rs.name, rt.name, fk.delete_referential_action_desc, fk.update_referential_action_desc
ORDER BY s.name, t.name, fk.name`

// ReferencingKey is a foreign key of another table pointing at a declared table.
type ReferencingKey struct {
	Table ir.QualifiedName
	Key   *ir.ForeignKey
}

// ConfigureQueryCommand queries columns, primary key, foreign keys and the
// foreign keys of other tables referencing this one as four result sets.
func (o *TableObject) ConfigureQueryCommand(b *command.Builder) {
	schema := b.AddParameter(o.Table.Identifier.Schema)
	name := b.AddParameter(o.Table.Identifier.Name)

	if b.Dialect() == ir.SQLServer {
		b.Appendf(sqlServerColumnsQuery, schema, name).NextStatement()
		b.Appendf(primaryKeyQuery, schema, name).NextStatement()
		b.Appendf(sqlServerForeignKeysQuery, schema, name).NextStatement()
		b.Appendf(sqlServerReferencingKeysQuery, schema, name).NextStatement()
		return
	}
	b.Appendf(postgresColumnsQuery, schema, name).NextStatement()
	b.Appendf(primaryKeyQuery, schema, name).NextStatement()
	b.Appendf(postgresForeignKeysQuery, schema, name).NextStatement()
	b.Appendf(postgresReferencingKeysQuery, schema, name).NextStatement()
}

// ReadActual builds the catalog version of the table from the first three
// result sets. It returns nil when the table does not exist.
func (o *TableObject) ReadActual(d ir.Dialect, rows command.Rows) (*ir.Table, error) {
	actual := ir.NewTable(o.Table.Identifier)

	for rows.Next() {
		col, err := readColumn(d, rows)
		if err != nil {
			return nil, err
		}
		actual.Columns = append(actual.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(actual.Columns) == 0 {
		return nil, nil
	}

	if !rows.NextResultSet() {
		return nil, missingResultSet(rows, "primary key")
	}
	var pkName string
	var pkColumns []string
	for rows.Next() {
		name, _, err := command.Column[string](rows, 0)
		if err != nil {
			return nil, err
		}
		column, _, err := command.Column[string](rows, 1)
		if err != nil {
			return nil, err
		}
		pkName = name
		pkColumns = append(pkColumns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(pkColumns) > 0 {
		actual.PrimaryKey = &ir.PrimaryKey{Name: pkName, Columns: pkColumns}
	}

	if !rows.NextResultSet() {
		return nil, missingResultSet(rows, "foreign key")
	}
	for rows.Next() {
		name, _, err := command.Column[string](rows, 0)
		if err != nil {
			return nil, err
		}
		definition, _, err := command.Column[string](rows, 1)
		if err != nil {
			return nil, err
		}
		fk, err := ir.ParseForeignKey(d, name, definition)
		if err != nil {
			return nil, fmt.Errorf("foreign key %s: %w", name, err)
		}
		actual.ForeignKeys = append(actual.ForeignKeys, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return actual, nil
}

// ReadReferencingKeys reads the fourth result set. It must follow ReadActual.
func (o *TableObject) ReadReferencingKeys(d ir.Dialect, rows command.Rows) ([]ReferencingKey, error) {
	if !rows.NextResultSet() {
		return nil, missingResultSet(rows, "referencing foreign key")
	}
	var keys []ReferencingKey
	for rows.Next() {
		var fields [4]string
		for i := range fields {
			value, _, err := command.Column[string](rows, i)
			if err != nil {
				return nil, err
			}
			fields[i] = value
		}
		fk, err := ir.ParseForeignKey(d, fields[2], fields[3])
		if err != nil {
			return nil, fmt.Errorf("foreign key %s of %s.%s: %w", fields[2], fields[0], fields[1], err)
		}
		keys = append(keys, ReferencingKey{Table: ir.NewQualifiedName(d, fields[0], fields[1]), Key: fk})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func missingResultSet(rows command.Rows, what string) error {
	if err := rows.Err(); err != nil {
		return err
	}
	return fmt.Errorf("catalog query returned no %s result set", what)
}

func readColumn(d ir.Dialect, rows command.Rows) (*ir.Column, error) {
	name, _, err := command.Column[string](rows, 0)
	if err != nil {
		return nil, err
	}

	if d == ir.SQLServer {
		return readSQLServerColumn(rows, name)
	}

	typeName, _, err := command.Column[string](rows, 1)
	if err != nil {
		return nil, err
	}
	notNull, _, err := command.Column[bool](rows, 2)
	if err != nil {
		return nil, err
	}
	def, _, err := command.Column[string](rows, 3)
	if err != nil {
		return nil, err
	}
	return &ir.Column{Name: name, Type: typeName, NotNull: notNull, Default: def}, nil
}

func readSQLServerColumn(rows command.Rows, name string) (*ir.Column, error) {
	dataType, _, err := command.Column[string](rows, 1)
	if err != nil {
		return nil, err
	}
	maxLength, hasLength, err := command.Column[int](rows, 2)
	if err != nil {
		return nil, err
	}
	precision, hasPrecision, err := command.Column[int](rows, 3)
	if err != nil {
		return nil, err
	}
	scale, _, err := command.Column[int](rows, 4)
	if err != nil {
		return nil, err
	}
	dtPrecision, hasDTPrecision, err := command.Column[int](rows, 5)
	if err != nil {
		return nil, err
	}
	nullable, _, err := command.Column[string](rows, 6)
	if err != nil {
		return nil, err
	}
	def, _, err := command.Column[string](rows, 7)
	if err != nil {
		return nil, err
	}

	typeName := strings.ToLower(dataType)
	switch typeName {
	case "char", "varchar", "nchar", "nvarchar", "binary", "varbinary":
		if hasLength {
			if maxLength == -1 {
				typeName += "(max)"
			} else {
				typeName += fmt.Sprintf("(%d)", maxLength)
			}
		}
	case "decimal", "numeric":
		if hasPrecision {
			typeName += fmt.Sprintf("(%d,%d)", precision, scale)
		}
	case "datetime2", "datetimeoffset", "time":
		if hasDTPrecision {
			typeName += fmt.Sprintf("(%d)", dtPrecision)
		}
	}

	return &ir.Column{
		Name:    name,
		Type:    typeName,
		NotNull: strings.EqualFold(nullable, "NO"),
		Default: def,
	}, nil
}

// CreatePatch writes the table's create or alter DDL.
func (o *TableObject) CreatePatch(rows command.Rows, patch *ObjectPatch, policy AutoCreate) (Difference, error) {
	rules := patch.Rules
	d := rules.Dialect

	if err := o.Table.Validate(d); err != nil {
		return Invalid, err
	}

	actual, err := o.ReadActual(d, rows)
	if err != nil {
		return Invalid, err
	}

	if actual == nil {
		o.Table.WriteCreateTable(rules, &patch.Up.Body)
		rules.WriteTableGrants(&patch.Up.Body, o.Table.Identifier)
		if err := o.Table.WriteForeignKeys(rules, &patch.Up.AddConstraints); err != nil {
			return Invalid, err
		}
		o.Table.WriteDropForeignKeys(rules, &patch.Down.DropConstraints)
		if err := o.WriteDropStatement(rules, &patch.Down.Body); err != nil {
			return Invalid, err
		}
		return Create, nil
	}

	delta := o.Table.Diff(d, actual)
	if !delta.HasChanges() {
		return None, nil
	}

	if policy == AutoCreateAll {
		referencing, err := o.ReadReferencingKeys(d, rows)
		if err != nil {
			return Invalid, err
		}
		if err := o.writeRecreate(rules, actual, referencing, patch); err != nil {
			return Invalid, err
		}
		return Update, nil
	}

	if err := delta.WriteUpStaged(rules, &patch.Up.DropConstraints, &patch.Up.Body, &patch.Up.AddConstraints); err != nil {
		return Invalid, err
	}
	if err := delta.WriteDownStaged(rules, &patch.Down.DropConstraints, &patch.Down.Body, &patch.Down.AddConstraints); err != nil {
		return Invalid, err
	}
	return Update, nil
}

// writeRecreate tears the table down and creates the declared version. Keys of
// other tables pointing at it are dropped first and restored once every table
// exists. The down script restores the catalog definition the same way.
func (o *TableObject) writeRecreate(rules *ir.DdlRules, actual *ir.Table, referencing []ReferencingKey, patch *ObjectPatch) error {
	recreate := *rules
	recreate.TableCreation = ir.DropThenCreate

	for _, script := range []*Script{&patch.Up, &patch.Down} {
		for _, ref := range referencing {
			fmt.Fprintln(&script.DropConstraints, ref.Key.DropDDL(rules, ref.Table))
		}
	}

	o.Table.WriteCreateTable(&recreate, &patch.Up.Body)
	rules.WriteTableGrants(&patch.Up.Body, o.Table.Identifier)
	if err := o.Table.WriteForeignKeys(rules, &patch.Up.AddConstraints); err != nil {
		return err
	}

	actual.WriteCreateTable(&recreate, &patch.Down.Body)
	if err := actual.WriteForeignKeys(rules, &patch.Down.AddConstraints); err != nil {
		return err
	}

	for _, script := range []*Script{&patch.Up, &patch.Down} {
		for _, ref := range referencing {
			ddl, err := ref.Key.ToDDL(rules, ref.Table)
			if err != nil {
				return fmt.Errorf("table %s: %w", ref.Table, err)
			}
			fmt.Fprintln(&script.AddConstraints, ddl)
		}
	}
	return nil
}

// WriteCreateStatement writes CREATE TABLE, the foreign keys and the grants.
func (o *TableObject) WriteCreateStatement(rules *ir.DdlRules, w io.Writer) error {
	if err := o.Table.WriteCreateStatement(rules, w); err != nil {
		return err
	}
	rules.WriteTableGrants(w, o.Table.Identifier)
	return nil
}

// WriteDropStatement writes the DROP TABLE statement.
func (o *TableObject) WriteDropStatement(rules *ir.DdlRules, w io.Writer) error {
	_, err := fmt.Fprintln(w, o.Table.DropDDL(rules))
	return err
}
