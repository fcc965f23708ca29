/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Command-line interface for tablemend. Exposes delimiter inference, schema
inspection, conversion and export of delimited files, connectivity probing, backup
inspection, and remote save and recovery of documents.
*/

package main

import (
	"fmt"
	"os"

	"github.com/kleascm/tablemend/cmd/tablemend/commands"
	"github.com/kleascm/tablemend/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	defaults := config.Default()

	rootCmd := &cobra.Command{
		Use:   "tablemend",
		Short: "tablemend - resilient delimited-table editing engine",
		Long: `tablemend parses delimited documents with inferred separators, edits them with
undo and redo, and saves them to a remote document store, falling back to local
backups while the network is unavailable.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Configuration file path")
	flags.String("log-level", defaults.LogLevel, "Logging level (debug, info, warn, error)")
	flags.String("log-format", defaults.LogFormat, "Log format (text, json, custom)")
	flags.String("log-dir", defaults.LogDir, "Log output directory (empty logs to the console only)")
	flags.String("server-url", defaults.ServerURL, "Server URL probed for connectivity")
	flags.String("api-base", defaults.APIBase, "Document API base URL")
	flags.String("backup-driver", defaults.BackupDriver, "Backup store driver (memory, file, sqlite)")
	flags.String("backup-path", defaults.BackupPath, "Backup directory (file) or database file (sqlite)")
	flags.Duration("probe-interval", defaults.ProbeInterval, "Interval between liveness probes")
	flags.Duration("probe-timeout", defaults.ProbeTimeout, "Timeout of a single liveness probe")
	flags.Int("history-depth", defaults.HistoryDepth, "Maximum undo snapshots kept")
	flags.Duration("request-timeout", defaults.RequestTimeout, "Timeout of document API requests")

	// Bind flags to viper
	viper.BindPFlag("config", flags.Lookup("config"))
	viper.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	viper.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
	viper.BindPFlag(config.KeyLogDir, flags.Lookup("log-dir"))
	viper.BindPFlag(config.KeyServerURL, flags.Lookup("server-url"))
	viper.BindPFlag(config.KeyAPIBase, flags.Lookup("api-base"))
	viper.BindPFlag(config.KeyBackupDriver, flags.Lookup("backup-driver"))
	viper.BindPFlag(config.KeyBackupPath, flags.Lookup("backup-path"))
	viper.BindPFlag(config.KeyProbeInterval, flags.Lookup("probe-interval"))
	viper.BindPFlag(config.KeyProbeTimeout, flags.Lookup("probe-timeout"))
	viper.BindPFlag(config.KeyHistoryDepth, flags.Lookup("history-depth"))
	viper.BindPFlag(config.KeyRequestTimeout, flags.Lookup("request-timeout"))

	// Add infer command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "infer <file>",
		Short: "Infer the delimiter of a file",
		Long: `Score every candidate delimiter against the file and print the table of
field counts, consistent rows and scores together with the chosen delimiter.`,
		Args: cobra.ExactArgs(1),
		RunE: commands.RunInfer,
	})

	// Add schema command
	schemaCmd := &cobra.Command{
		Use:   "schema <file>",
		Short: "Print the column schema of a file",
		Args:  cobra.ExactArgs(1),
		RunE:  commands.RunSchema,
	}
	schemaCmd.Flags().String("delimiter", "auto", "Delimiter (auto, comma, semicolon, tab, pipe)")
	rootCmd.AddCommand(schemaCmd)

	// Add convert command
	convertCmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Re-serialize a file with another delimiter",
		Long: `Parse the file with the source delimiter and write it back with the target
delimiter, quoting every field and terminating lines with a line feed.`,
		Args: cobra.ExactArgs(1),
		RunE: commands.RunConvert,
	}
	convertCmd.Flags().String("from", "auto", "Source delimiter")
	convertCmd.Flags().String("to", "comma", "Target delimiter")
	convertCmd.Flags().String("out", "", "Output file (default stdout)")
	rootCmd.AddCommand(convertCmd)

	// Add export command
	exportCmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export a file as an xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE:  commands.RunExport,
	}
	exportCmd.Flags().String("delimiter", "auto", "Source delimiter")
	exportCmd.Flags().String("xlsx", "", "Output workbook path (required)")
	exportCmd.MarkFlagRequired("xlsx")
	rootCmd.AddCommand(exportCmd)

	// Add probe command
	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Run a single connectivity probe",
		RunE:  commands.RunProbe,
	}
	probeCmd.Flags().String("url", "", "URL to probe (default the configured server url)")
	probeCmd.Flags().Duration("timeout", 0, "Probe timeout (default the configured probe timeout)")
	rootCmd.AddCommand(probeCmd)

	// Add backup commands
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Inspect local backups",
	}
	backupCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored backups",
		Args:  cobra.NoArgs,
		RunE:  commands.RunBackupList,
	})
	backupCmd.AddCommand(&cobra.Command{
		Use:   "show <document>",
		Short: "Print the content of a document's backup",
		Args:  cobra.ExactArgs(1),
		RunE:  commands.RunBackupShow,
	})
	backupCmd.AddCommand(&cobra.Command{
		Use:   "clear <document>",
		Short: "Delete a document's backup",
		Args:  cobra.ExactArgs(1),
		RunE:  commands.RunBackupClear,
	})
	rootCmd.AddCommand(backupCmd)

	// Add save command
	saveCmd := &cobra.Command{
		Use:   "save <project> <document> <file>",
		Short: "Save a file as a document's content",
		Long: `Open the file as the document's content and save it to the document store.
When the store is unreachable the content is kept as a local backup.`,
		Args: cobra.ExactArgs(3),
		RunE: commands.RunSave,
	}
	saveCmd.Flags().String("delimiter", "auto", "Delimiter of the file")
	saveCmd.Flags().String("name", "", "Display name of the document")
	rootCmd.AddCommand(saveCmd)

	// Add recover command
	recoverCmd := &cobra.Command{
		Use:   "recover <project> <document>",
		Short: "Resolve a pending local backup",
		Long: `Load the document and resolve its local backup. Accepting restores the backup
and saves it to the document store; declining discards it.`,
		Args: cobra.ExactArgs(2),
		RunE: commands.RunRecover,
	}
	recoverCmd.Flags().Bool("accept", false, "Restore the backup and save it")
	recoverCmd.Flags().Bool("decline", false, "Discard the backup")
	recoverCmd.MarkFlagsMutuallyExclusive("accept", "decline")
	recoverCmd.MarkFlagsOneRequired("accept", "decline")
	rootCmd.AddCommand(recoverCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
