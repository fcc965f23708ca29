/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: model.go
Description: Editable row/column model for delimited tabular documents. Defines cell
values, rows keyed by column, column definitions with direct or bound addressing, and
the document model held by an editing session.
*/

package tabular

import (
	"fmt"

	"github.com/tiendc/go-deepcopy"
)

// Kind is the value kind of a column
type Kind string

const (
	KindText   Kind = "text"
	KindNumber Kind = "number"
)

// Row maps a column key to a cell value. Missing keys read as empty.
type Row map[string]Value

// Get returns the value stored under key, or the empty value
func (r Row) Get(key string) Value {
	if r == nil {
		return Value{}
	}
	return r[key]
}

// ColumnDef describes a single column of the document.
// Field is set for columns addressed directly by name. ColID is set instead when the
// field name contains a structural separator; such columns read and write through
// accessors bound to the literal name.
type ColumnDef struct {
	Field string
	ColID string
	Label string
	Kind  Kind

	getter func(Row) Value
	setter func(Row, Value) bool
}

// Key returns the identifier used to address the column in a row
func (c ColumnDef) Key() string {
	if c.ColID != "" {
		return c.ColID
	}
	if c.Field != "" {
		return c.Field
	}
	return c.Label
}

// Bound reports whether the column uses explicit accessors
func (c ColumnDef) Bound() bool {
	return c.getter != nil
}

// Get reads the column's value from row
func (c ColumnDef) Get(row Row) Value {
	if c.getter != nil {
		return c.getter(row)
	}
	return row.Get(c.Key())
}

// Set writes v into row. Returns false when there is no row to write into.
func (c ColumnDef) Set(row Row, v Value) bool {
	if c.setter != nil {
		return c.setter(row, v)
	}
	if row == nil {
		return false
	}
	row[c.Key()] = v
	return true
}

// ParseInput converts user-entered text into a cell value for this column.
// Number columns store numbers; input that is not numeric is kept as text.
func (c ColumnDef) ParseInput(input string) Value {
	if c.Kind == KindNumber {
		return ParseNumberInput(input)
	}
	return Text(input)
}

// DocumentModel is the editable in-memory state of a document
type DocumentModel struct {
	Columns []ColumnDef
	Rows    []Row
}

// Keys returns the column keys in column order
func (m *DocumentModel) Keys() []string {
	keys := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		keys[i] = c.Key()
	}
	return keys
}

// Column looks up a column by key
func (m *DocumentModel) Column(key string) (ColumnDef, bool) {
	for _, c := range m.Columns {
		if c.Key() == key {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// BlankRow returns a row with every column key set to empty
func (m *DocumentModel) BlankRow() Row {
	row := make(Row, len(m.Columns))
	for _, c := range m.Columns {
		row[c.Key()] = Value{}
	}
	return row
}

// Clone returns a deep copy of the model. Column definitions are shared values;
// rows are copied so mutating the clone never reaches the original.
func (m *DocumentModel) Clone() (*DocumentModel, error) {
	rows, err := CloneRows(m.Rows)
	if err != nil {
		return nil, err
	}
	cols := make([]ColumnDef, len(m.Columns))
	copy(cols, m.Columns)
	return &DocumentModel{Columns: cols, Rows: rows}, nil
}

// CloneRows deep-copies a row sequence
func CloneRows(rows []Row) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	if err := deepcopy.Copy(&out, rows); err != nil {
		return nil, fmt.Errorf("failed to copy rows: %w", err)
	}
	return out, nil
}
