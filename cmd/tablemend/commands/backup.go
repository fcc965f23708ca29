/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: backup.go
Description: Backup commands. Lists, prints and deletes the local backups held by the
configured backup store.
*/

package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kleascm/tablemend/pkg/backup"
	"github.com/spf13/cobra"
)

// RunBackupList lists every stored backup
func RunBackupList(cmd *cobra.Command, args []string) error {
	return withBackups(func(store backup.Store) error {
		records, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		writeBackupList(cmd.OutOrStdout(), records)
		return nil
	})
}

func writeBackupList(w io.Writer, records []backup.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No backups stored.")
		return
	}
	fmt.Fprintf(w, "%-36s %-25s %-10s %s\n", "DOCUMENT", "SAVED", "DELIMITER", "BYTES")
	for _, rec := range records {
		fmt.Fprintf(w, "%-36s %-25s %-10q %d\n",
			rec.DocumentID, rec.SavedAt.Format(time.RFC3339), rec.Delimiter, len(rec.Content))
	}
}

// RunBackupShow prints the content of one document's backup
func RunBackupShow(cmd *cobra.Command, args []string) error {
	return withBackups(func(store backup.Store) error {
		rec, err := store.Get(cmd.Context(), args[0])
		if errors.Is(err, backup.ErrNotFound) {
			return fmt.Errorf("no backup for document %s", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rec.Content)
		return nil
	})
}

// RunBackupClear deletes one document's backup
func RunBackupClear(cmd *cobra.Command, args []string) error {
	return withBackups(func(store backup.Store) error {
		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared backup for document %s\n", args[0])
		return nil
	})
}

func withBackups(fn func(backup.Store) error) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.Close()

	store, err := env.openBackups()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
