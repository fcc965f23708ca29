/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: schema.go
Description: Column schema builder. Derives column identity and value kind from parsed
field names and sampled rows. Names containing structural separators get accessors
bound to the literal name so they are never read as nested paths.
*/

package tabular

import "strings"

// StructuralSeparators are characters that grid field paths treat as nesting
const StructuralSeparators = "."

// HasSeparator reports whether name would be misread as a nested path
func HasSeparator(name string) bool {
	return strings.ContainsAny(name, StructuralSeparators)
}

// BuildColumns derives column definitions for fields. The value kind comes from the
// first row, in order, holding a non-empty value for the field.
func BuildColumns(fields []string, rows []Row) []ColumnDef {
	columns := make([]ColumnDef, 0, len(fields))
	for _, name := range fields {
		col := ColumnDef{Label: name, Kind: sampleKind(name, rows)}
		if HasSeparator(name) {
			col.ColID = name
			col.getter, col.setter = boundAccessors(name)
		} else {
			col.Field = name
		}
		columns = append(columns, col)
	}
	return columns
}

func sampleKind(name string, rows []Row) Kind {
	for _, row := range rows {
		v, ok := row[name]
		if !ok || v.IsEmpty() {
			continue
		}
		if v.Numeric {
			return KindNumber
		}
		return KindText
	}
	return KindText
}

func boundAccessors(name string) (func(Row) Value, func(Row, Value) bool) {
	get := func(row Row) Value {
		return row.Get(name)
	}
	set := func(row Row, v Value) bool {
		if row == nil {
			return false
		}
		row[name] = v
		return true
	}
	return get, set
}
