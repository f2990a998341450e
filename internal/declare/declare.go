// Package declare loads declaration files describing the desired tables and
// functions of one database.
package declare

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pgschema/ddlpatch/internal/diff"
	"github.com/pgschema/ddlpatch/internal/ir"
)

// File is the YAML document layout.
type File struct {
	Dialect   string     `yaml:"dialect"`
	Rules     Rules      `yaml:"rules"`
	Tables    []Table    `yaml:"tables"`
	Functions []Function `yaml:"functions"`
}

type Rules struct {
	Role          string   `yaml:"role"`
	Grants        []string `yaml:"grants"`
	TableCreation string   `yaml:"tableCreation"`
}

type Table struct {
	Name        string       `yaml:"name"`
	Columns     []Column     `yaml:"columns"`
	PrimaryKey  *PrimaryKey  `yaml:"primaryKey"`
	ForeignKeys []ForeignKey `yaml:"foreignKeys"`
}

type Column struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	NotNull bool   `yaml:"notNull"`
	Default string `yaml:"default"`
}

type PrimaryKey struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

type ForeignKey struct {
	Name              string           `yaml:"name"`
	Columns           []string         `yaml:"columns"`
	References        string           `yaml:"references"`
	ReferencedColumns []string         `yaml:"referencedColumns"`
	OnDelete          ir.CascadeAction `yaml:"onDelete"`
	OnUpdate          ir.CascadeAction `yaml:"onUpdate"`
}

type Function struct {
	Name      string   `yaml:"name"`
	Arguments string   `yaml:"arguments"`
	Create    string   `yaml:"create"`
	Drop      []string `yaml:"drop"`
	Removed   bool     `yaml:"removed"`
}

// Declaration is a loaded file: the rules of its run and its objects in
// declaration order.
type Declaration struct {
	Source  string
	Rules   *ir.DdlRules
	Objects []diff.Object
}

// Tables returns the declared tables.
func (d *Declaration) Tables() []*diff.TableObject {
	var out []*diff.TableObject
	for _, obj := range d.Objects {
		if t, ok := obj.(*diff.TableObject); ok {
			out = append(out, t)
		}
	}
	return out
}

// LoadFile reads a declaration from path. A non-empty dialect overrides the
// file's own.
func LoadFile(path, dialect string) (*Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read declaration file %s: %w", path, err)
	}
	decl, err := Load(bytes.NewReader(data), dialect)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	decl.Source = path
	return decl, nil
}

// Load parses and validates a declaration. A non-empty dialect overrides the
// document's; when neither is set the run targets Postgres.
func Load(r io.Reader, dialect string) (*Declaration, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse declaration: %w", err)
	}

	if dialect == "" {
		dialect = file.Dialect
	}
	d := ir.Postgres
	if dialect != "" {
		parsed, err := ir.ParseDialect(dialect)
		if err != nil {
			return nil, err
		}
		d = parsed
	}

	rules, err := file.Rules.build(d)
	if err != nil {
		return nil, err
	}

	decl := &Declaration{Rules: rules}
	seen := make(map[string]bool)
	for i := range file.Tables {
		table, err := file.Tables[i].build(d)
		if err != nil {
			return nil, err
		}
		if err := claim(seen, d, diff.KindTable, table.Identifier); err != nil {
			return nil, err
		}
		decl.Objects = append(decl.Objects, diff.NewTableObject(table))
	}
	for i := range file.Functions {
		fn, err := file.Functions[i].build(d)
		if err != nil {
			return nil, err
		}
		if err := claim(seen, d, diff.KindFunction, fn.Name); err != nil {
			return nil, err
		}
		decl.Objects = append(decl.Objects, fn)
	}
	return decl, nil
}

func claim(seen map[string]bool, d ir.Dialect, kind diff.Kind, name ir.QualifiedName) error {
	key := string(kind) + ":" + d.NameKey(name)
	if seen[key] {
		return fmt.Errorf("%s %s is declared more than once", kind, name)
	}
	seen[key] = true
	return nil
}

func (r Rules) build(d ir.Dialect) (*ir.DdlRules, error) {
	rules := ir.NewDdlRules(d)
	rules.Role = strings.TrimSpace(r.Role)
	for _, grant := range r.Grants {
		if grant = strings.TrimSpace(grant); grant != "" {
			rules.Grants = append(rules.Grants, grant)
		}
	}
	style, err := ir.ParseCreationStyle(r.TableCreation)
	if err != nil {
		return nil, err
	}
	rules.TableCreation = style
	return rules, nil
}

func (t *Table) build(d ir.Dialect) (*ir.Table, error) {
	name, err := ir.ParseQualifiedName(d, t.Name)
	if err != nil {
		return nil, fmt.Errorf("table: %w", err)
	}

	table := ir.NewTable(name)
	for _, c := range t.Columns {
		col := table.AddColumn(c.Name, c.Type)
		col.NotNull = c.NotNull
		col.Default = c.Default
	}
	if t.PrimaryKey != nil {
		table.SetPrimaryKey(t.PrimaryKey.Name, t.PrimaryKey.Columns...)
	}
	for _, fk := range t.ForeignKeys {
		linked, err := ir.ParseQualifiedName(d, fk.References)
		if err != nil {
			return nil, fmt.Errorf("table %s: foreign key %s: %w", name, fk.Name, err)
		}
		table.AddForeignKey(&ir.ForeignKey{
			Name:        fk.Name,
			ColumnNames: fk.Columns,
			LinkedTable: linked,
			LinkedNames: fk.ReferencedColumns,
			OnDelete:    fk.OnDelete,
			OnUpdate:    fk.OnUpdate,
		})
	}

	if err := table.Validate(d); err != nil {
		return nil, err
	}
	return table, nil
}

func (f *Function) build(d ir.Dialect) (*diff.FunctionObject, error) {
	name, err := ir.ParseQualifiedName(d, f.Name)
	if err != nil {
		return nil, fmt.Errorf("function: %w", err)
	}
	if !f.Removed && strings.TrimSpace(f.Create) == "" {
		return nil, fmt.Errorf("function %s has no create script", name)
	}
	return &diff.FunctionObject{
		Name:           name,
		Arguments:      strings.TrimSpace(f.Arguments),
		CreateScript:   f.Create,
		DropStatements: f.Drop,
		Removed:        f.Removed,
	}, nil
}
