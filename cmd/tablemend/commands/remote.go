/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: remote.go
Description: Networked commands: a single connectivity probe, saving a local file as a
document's content, and resolving a document's pending local backup.
*/

package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kleascm/tablemend/pkg/connectivity"
	"github.com/kleascm/tablemend/pkg/identity"
	"github.com/kleascm/tablemend/pkg/persistence"
	"github.com/kleascm/tablemend/pkg/remote"
	"github.com/kleascm/tablemend/pkg/session"
	"github.com/kleascm/tablemend/pkg/tabular"
	"github.com/spf13/cobra"
)

// RunProbe runs one liveness probe and prints the resulting state
func RunProbe(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.Close()

	url, _ := cmd.Flags().GetString("url")
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		env.config.ProbeTimeout = timeout
	}
	monitor := env.newMonitor(url)

	var failure error
	monitor.Subscribe(func(t connectivity.Transition) {
		failure = t.Err
	})
	if err := monitor.ProbeNow(cmd.Context()); err != nil {
		return fmt.Errorf("probe cancelled: %w", err)
	}

	if url == "" {
		url = env.config.ServerURL
	}
	status := monitor.Status()
	if status.State == connectivity.Online {
		fmt.Fprintf(cmd.OutOrStdout(), "✅ %s is reachable\n", url)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "❌ %s is unreachable: %v\n", url, failure)
	return fmt.Errorf("server unreachable")
}

// RunSave saves a local file as a document's content
func RunSave(cmd *cobra.Command, args []string) error {
	d, err := delimiterFlag(cmd, "delimiter")
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(args[2])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[2], err)
	}
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = filepath.Base(args[2])
	}

	return withSession(cmd, args, d, func(sess *session.Session) error {
		if err := sess.Open(cmd.Context(), raw, name); err != nil {
			return err
		}
		if sess.RecoveryPending() {
			return fmt.Errorf("document %s has a pending local backup, resolve it with recover first", args[1])
		}
		return reportSave(cmd, sess)
	})
}

// RunRecover accepts or declines a document's pending local backup
func RunRecover(cmd *cobra.Command, args []string) error {
	accept, _ := cmd.Flags().GetBool("accept")

	return withSession(cmd, args, tabular.Auto, func(sess *session.Session) error {
		if err := sess.Load(cmd.Context()); err != nil {
			return err
		}
		if !sess.RecoveryPending() {
			fmt.Fprintf(cmd.OutOrStdout(), "No local backup pending for document %s\n", args[1])
			return nil
		}
		if err := sess.ResolveRecovery(cmd.Context(), accept); err != nil {
			return err
		}
		if !accept {
			fmt.Fprintln(cmd.OutOrStdout(), "Local backup discarded")
			return nil
		}
		return reportSave(cmd, sess)
	})
}

// withSession builds a session for the <project> <document> arguments, probing
// connectivity once so the first save sees the current network state
func withSession(cmd *cobra.Command, args []string, d tabular.Delimiter, fn func(*session.Session) error) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.Close()

	backups, err := env.openBackups()
	if err != nil {
		return err
	}
	defer backups.Close()

	client, err := env.newRemote()
	if err != nil {
		return err
	}
	monitor := env.newMonitor("")
	if err := monitor.ProbeNow(cmd.Context()); err != nil {
		return err
	}

	sess, err := session.New(session.Config{
		Ref:          remote.DocumentRef{ProjectID: args[0], DocumentID: args[1]},
		Store:        client,
		Backups:      backups,
		Monitor:      monitor,
		Identity:     identity.FromEnv(),
		Delimiter:    d,
		HistoryDepth: env.config.HistoryDepth,
		Logger:       env.log.Logrus(),
	})
	if err != nil {
		return err
	}
	sess.Subscribe(func(ev session.Event) {
		if n, ok := ev.(session.NoticeRaised); ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", n.Notice.Level, n.Notice.Message)
		}
	})
	return fn(sess)
}

func reportSave(cmd *cobra.Command, sess *session.Session) error {
	w := cmd.OutOrStdout()
	res, err := sess.Save(cmd.Context())
	var remoteErr *persistence.RemoteFailureError
	switch {
	case errors.Is(err, persistence.ErrLocalOnly):
		fmt.Fprintln(w, "Offline: changes kept in the local backup")
		return nil
	case errors.As(err, &remoteErr):
		if remoteErr.BackupErr != nil {
			return err
		}
		fmt.Fprintf(w, "Remote save failed, changes kept in the local backup: %v\n", remoteErr.Cause)
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(w, "Saved %s to %s\n", sess.Title(), res.Location)
	return nil
}
