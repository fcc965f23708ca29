/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: filter.go
Description: Quick filter over the document model. Every whitespace-separated term must
appear, case-insensitively, in at least one cell of a matching row.
*/

package tabular

import "strings"

// QuickFilter returns the indices of rows matching query. An empty query matches all rows.
func QuickFilter(model *DocumentModel, query string) []int {
	terms := strings.Fields(strings.ToLower(query))
	matches := make([]int, 0, len(model.Rows))
	for i, row := range model.Rows {
		if rowMatches(model.Columns, row, terms) {
			matches = append(matches, i)
		}
	}
	return matches
}

func rowMatches(columns []ColumnDef, row Row, terms []string) bool {
	cells := make([]string, len(columns))
	for i, col := range columns {
		cells[i] = strings.ToLower(col.Get(row).String())
	}
	for _, term := range terms {
		found := false
		for _, cell := range cells {
			if strings.Contains(cell, term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
