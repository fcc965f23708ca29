/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: document.go
Description: Offline document commands: delimiter inference, schema inspection,
delimiter conversion and xlsx export of local files.
*/

package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kleascm/tablemend/pkg/export"
	"github.com/kleascm/tablemend/pkg/tabular"
	"github.com/spf13/cobra"
)

// RunInfer prints the delimiter inference of a file
func RunInfer(cmd *cobra.Command, args []string) error {
	text, err := readDocument(args[0])
	if err != nil {
		return err
	}
	writeInference(cmd.OutOrStdout(), tabular.InferDetailed(text))
	return nil
}

func writeInference(w io.Writer, inf tabular.Inference) {
	fmt.Fprintf(w, "%-12s %7s %11s %6s\n", "DELIMITER", "FIELDS", "CONSISTENT", "SCORE")
	for _, cs := range inf.Scores {
		fmt.Fprintf(w, "%-12s %7d %11d %6d\n", cs.Delimiter, cs.Fields, cs.Consistent, cs.Score)
	}
	fmt.Fprintln(w)
	switch {
	case inf.Ambiguous:
		fmt.Fprintf(w, "Chosen: %s (no candidate split the header, defaulted)\n", inf.Delimiter)
	case inf.Fallback:
		fmt.Fprintf(w, "Chosen: %s (auto-detected)\n", inf.Delimiter)
	default:
		fmt.Fprintf(w, "Chosen: %s\n", inf.Delimiter)
	}
}

// RunSchema prints the columns a file parses into
func RunSchema(cmd *cobra.Command, args []string) error {
	result, err := parseFile(cmd, args[0], "delimiter")
	if err != nil {
		return err
	}
	writeSchema(cmd.OutOrStdout(), result)
	return nil
}

func writeSchema(w io.Writer, result *tabular.ParseResult) {
	fmt.Fprintf(w, "Delimiter: %s, rows: %d, warnings: %d\n\n",
		result.Delimiter, len(result.Model.Rows), len(result.Warnings))
	fmt.Fprintf(w, "%-24s %-24s %-8s %s\n", "KEY", "LABEL", "KIND", "ACCESS")
	for _, col := range result.Model.Columns {
		access := "direct"
		if col.Bound() {
			access = "bound"
		}
		fmt.Fprintf(w, "%-24s %-24s %-8s %s\n", col.Key(), col.Label, col.Kind, access)
	}
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn.Error())
	}
}

// RunConvert re-serializes a file with another delimiter
func RunConvert(cmd *cobra.Command, args []string) error {
	result, err := parseFile(cmd, args[0], "from")
	if err != nil {
		return err
	}
	to, err := delimiterFlag(cmd, "to")
	if err != nil {
		return err
	}
	out := tabular.Serialize(result.Model.Columns, result.Model.Rows, to)

	dest, _ := cmd.Flags().GetString("out")
	if dest == "" {
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	}
	if err := os.WriteFile(dest, []byte(out), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Converted %d rows from %s to %s: %s\n",
		len(result.Model.Rows), result.Delimiter, to.Resolve(), dest)
	return nil
}

// RunExport writes a file as an xlsx workbook
func RunExport(cmd *cobra.Command, args []string) error {
	result, err := parseFile(cmd, args[0], "delimiter")
	if err != nil {
		return err
	}
	dest, _ := cmd.Flags().GetString("xlsx")
	name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if err := export.WriteXLSX(f, result.Model, export.SheetName(name)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", len(result.Model.Rows), dest)
	return nil
}

// parseFile reads and parses path with the delimiter named by flag
func parseFile(cmd *cobra.Command, path, flag string) (*tabular.ParseResult, error) {
	d, err := delimiterFlag(cmd, flag)
	if err != nil {
		return nil, err
	}
	text, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	return tabular.NewCodec(nil).Parse(text, d), nil
}
