// Package catalog defines the schema metadata stored for every table.
package catalog

import (
	"github.com/tidesql/tidesql/internal/sql/sqlerr"
	"github.com/tidesql/tidesql/internal/sql/types"
)

// Table is one table's schema. The id is allocated at CREATE TABLE and
// never reused, so rows written under a dropped table's id can never be
// picked up by a later table of the same name.
type Table struct {
	ID      uint64   `json:"id"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

type Column struct {
	Name     string         `json:"name"`
	Type     types.DataType `json:"type"`
	Nullable bool           `json:"nullable"`
	Default  *types.Value   `json:"default,omitempty"`
	Indexed  bool           `json:"indexed,omitempty"`
}

// Validate checks the schema is internally consistent. Names are
// expected to be already lower-cased by the planner.
func (t *Table) Validate() error {
	if t.Name == "" {
		return sqlerr.Integrityf("table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return sqlerr.Integrityf("table %s must have at least one column", t.Name)
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return sqlerr.Integrityf("table %s has a column with no name", t.Name)
		}
		if _, dup := seen[c.Name]; dup {
			return sqlerr.Integrityf("duplicate column %s", c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Default != nil {
			if c.Default.IsNull() {
				if !c.Nullable {
					return sqlerr.Integrityf("column %s may not default to NULL", c.Name)
				}
				continue
			}
			dt, _ := c.Default.DataType()
			if dt != c.Type {
				return sqlerr.TypeMismatchf("default for column %s must be %s, got %s", c.Name, c.Type, dt)
			}
		}
	}
	return nil
}

// Column returns the position and definition of the named column, or
// (-1, nil) when absent.
func (t *Table) Column(name string) (int, *Column) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return i, &t.Columns[i]
		}
	}
	return -1, nil
}

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ValidateRow checks a full positional row against the schema before it
// is stored: arity, NOT NULL, and value types.
func (t *Table) ValidateRow(row types.Row) error {
	if len(row) != len(t.Columns) {
		return sqlerr.Integrityf("table %s expects %d values, got %d", t.Name, len(t.Columns), len(row))
	}
	for i, c := range t.Columns {
		v := row[i]
		if v.IsNull() {
			if !c.Nullable {
				return sqlerr.NotNullColumn(c.Name)
			}
			continue
		}
		dt, _ := v.DataType()
		if dt != c.Type {
			return sqlerr.TypeMismatchf("column %s expects %s, got %s", c.Name, c.Type, dt)
		}
	}
	return nil
}
