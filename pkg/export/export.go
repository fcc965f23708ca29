/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: export.go
Description: Download payloads for the edited document: the serialized tabular text
as <name>.csv, or the same model rendered as a single-sheet xlsx workbook.
*/

package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/kleascm/tablemend/pkg/tabular"
	"github.com/xuri/excelize/v2"
)

const (
	ContentTypeCSV  = "text/csv;charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// DefaultName is used when the document has no display name
const DefaultName = "document"

// maxSheetName is the sheet name length limit of the xlsx format
const maxSheetName = 31

// File is a named payload ready to hand to the user or an archive collaborator
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileName returns the download name for a display name and extension
func FileName(displayName, ext string) string {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = DefaultName
	}
	return name + "." + ext
}

// CSV serializes model with delimiter d into a download payload
func CSV(model *tabular.DocumentModel, d tabular.Delimiter, displayName string) File {
	return File{
		Name:        FileName(displayName, "csv"),
		ContentType: ContentTypeCSV,
		Data:        []byte(tabular.Serialize(model.Columns, model.Rows, d)),
	}
}

// XLSX renders model as a workbook payload
func XLSX(model *tabular.DocumentModel, displayName string) (File, error) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, model, displayName); err != nil {
		return File{}, err
	}
	return File{Name: FileName(displayName, "xlsx"), ContentType: ContentTypeXLSX, Data: buf.Bytes()}, nil
}

// WriteXLSX writes model to w as a single sheet. Number cells stay numeric and the
// header row is bold and frozen.
func WriteXLSX(w io.Writer, model *tabular.DocumentModel, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(sheetName)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(model.Columns))
	for i, col := range model.Columns {
		header[i] = col.Key()
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for r, row := range model.Rows {
		cells := make([]any, len(model.Columns))
		for i, col := range model.Columns {
			v := col.Get(row)
			switch {
			case v.Numeric:
				cells[i] = v.Number
			case v.IsEmpty():
				cells[i] = nil
			default:
				cells[i] = v.Text
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	if len(model.Columns) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("failed to create header style: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(len(model.Columns), 1)
		if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze header: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SheetName makes name usable as a sheet name
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if name == "" {
		return "Sheet1"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}
