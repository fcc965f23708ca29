/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: coordinator.go
Description: Persistence coordinator. Saves serialized documents to the remote store,
falls back to the local backup slot when offline or when the remote write fails, and
offers recovery of a pending backup once per session.
*/

package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kleascm/tablemend/pkg/backup"
	"github.com/kleascm/tablemend/pkg/connectivity"
	"github.com/kleascm/tablemend/pkg/notify"
	"github.com/kleascm/tablemend/pkg/remote"
	"github.com/kleascm/tablemend/pkg/tabular"
	"github.com/sirupsen/logrus"
)

// ErrLocalOnly reports that a save went to the local backup because the session is offline.
// It is the expected offline outcome rather than a failure.
var ErrLocalOnly = errors.New("saved to local backup only")

// ErrNoRecovery is returned when resolving a recovery that was never offered or is already resolved
var ErrNoRecovery = errors.New("no pending recovery")

// RemoteFailureError is a soft save failure: the remote write failed and the content was
// backed up locally instead. BackupErr is set when the backup also failed.
type RemoteFailureError struct {
	Cause     error
	BackupErr error
}

func (e *RemoteFailureError) Error() string {
	if e.BackupErr != nil {
		return fmt.Sprintf("remote save failed: %v (local backup also failed: %v)", e.Cause, e.BackupErr)
	}
	return fmt.Sprintf("remote save failed, changes backed up locally: %v", e.Cause)
}

func (e *RemoteFailureError) Unwrap() error {
	return e.Cause
}

// Writer is the remote write path
type Writer interface {
	WriteContent(ctx context.Context, ref remote.DocumentRef, content []byte) (string, error)
}

// Connectivity is the part of the connectivity monitor the coordinator consults and informs
type Connectivity interface {
	State() connectivity.State
	ReportRemoteFailure(err error)
	ReportRemoteSuccess()
}

// SaveResult describes where a save ended up
type SaveResult struct {
	Location string
	Remote   bool
	BackedUp bool
}

// Config wires a coordinator
type Config struct {
	Ref          remote.DocumentRef
	Writer       Writer
	Backups      backup.Store
	Connectivity Connectivity
	Notifier     notify.Notifier
	Codec        *tabular.Codec
	Logger       logrus.FieldLogger
	Now          func() time.Time
}

// Coordinator owns the saved/unsaved state and backup slot of one document
type Coordinator struct {
	ref      remote.DocumentRef
	writer   Writer
	backups  backup.Store
	conn     Connectivity
	notifier notify.Notifier
	codec    *tabular.Codec
	logger   logrus.FieldLogger
	now      func() time.Time

	mu              sync.Mutex
	unsaved         bool
	recoveryOffered bool
	pending         *backup.Record
	lastLocation    string
}

// New validates config and builds a coordinator
func New(config Config) (*Coordinator, error) {
	if config.Ref.DocumentID == "" {
		return nil, errors.New("document id must not be empty")
	}
	if config.Writer == nil {
		return nil, errors.New("remote writer is required")
	}
	if config.Backups == nil {
		return nil, errors.New("backup store is required")
	}
	if config.Connectivity == nil {
		return nil, errors.New("connectivity source is required")
	}
	if config.Notifier == nil {
		config.Notifier = notify.Discard
	}
	if config.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		config.Logger = l
	}
	if config.Codec == nil {
		config.Codec = tabular.NewCodec(config.Logger)
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Coordinator{
		ref:      config.Ref,
		writer:   config.Writer,
		backups:  config.Backups,
		conn:     config.Connectivity,
		notifier: config.Notifier,
		codec:    config.Codec,
		logger:   config.Logger.WithField("document", config.Ref.String()),
		now:      config.Now,
	}, nil
}

// Save serializes model with delimiter d and persists it.
// Offline saves return ErrLocalOnly; failed remote writes return *RemoteFailureError.
// Any other error means the content could not be kept anywhere.
func (c *Coordinator) Save(ctx context.Context, model *tabular.DocumentModel, d tabular.Delimiter) (SaveResult, error) {
	text := c.codec.Serialize(model, d)

	if c.conn.State() == connectivity.Offline {
		if err := c.writeBackup(ctx, text, d); err != nil {
			c.logger.WithError(err).Error("Local backup failed while offline")
			return SaveResult{}, fmt.Errorf("failed to write local backup: %w", err)
		}
		c.setUnsaved(true)
		c.logger.Info("Offline, saved to local backup")
		c.notifier.Notify(notify.Notice{
			ID: notify.IDLocalBackupSave, Level: notify.LevelInfo,
			Message: "Offline: Changes saved to local backup.",
		})
		return SaveResult{BackedUp: true}, ErrLocalOnly
	}

	location, err := c.writer.WriteContent(ctx, c.ref, []byte(text))
	if err != nil {
		c.conn.ReportRemoteFailure(err)
		berr := c.writeBackup(ctx, text, d)
		c.setUnsaved(true)
		entry := c.logger.WithError(err)
		if berr != nil {
			entry = entry.WithField("backup_error", berr.Error())
		}
		entry.Warn("Remote save failed, falling back to local backup")
		c.notifier.Notify(notify.Notice{
			ID: notify.IDRemoteSaveFail, Level: notify.LevelError,
			Message: "Save failed. Changes backed up locally.",
		})
		return SaveResult{BackedUp: berr == nil}, &RemoteFailureError{Cause: err, BackupErr: berr}
	}

	c.conn.ReportRemoteSuccess()
	if err := c.backups.Delete(context.WithoutCancel(ctx), c.ref.DocumentID); err != nil {
		c.logger.WithError(err).Warn("Saved remotely but failed to clear local backup")
	}
	c.mu.Lock()
	c.unsaved = false
	offerOpen := c.pending != nil
	c.pending = nil
	c.lastLocation = location
	c.mu.Unlock()

	c.logger.WithField("location", location).Info("Save completed")
	if offerOpen {
		// replaces the persistent recovery offer
		c.notifier.Notify(notify.Notice{
			ID: notify.IDRecovery, Level: notify.LevelInfo,
			Message: "Local backup replaced by saved changes.",
		})
	}
	c.notifier.Notify(notify.Notice{ID: notify.IDSaved, Level: notify.LevelSuccess, Message: "Changes saved."})
	return SaveResult{Location: location, Remote: true}, nil
}

// writeBackup overwrites the document's backup slot. It ignores cancellation of ctx so
// content is kept even when the caller gave up on the remote write.
func (c *Coordinator) writeBackup(ctx context.Context, text string, d tabular.Delimiter) error {
	rec := backup.Record{
		DocumentID: c.ref.DocumentID,
		Content:    text,
		Delimiter:  d.Resolve().Symbol(),
		SavedAt:    c.now(),
	}
	if err := c.backups.Put(context.WithoutCancel(ctx), rec); err != nil {
		return err
	}
	c.logger.WithField("bytes", len(text)).Debug("Backup written")
	return nil
}

// CheckRecovery looks for a pending backup and offers it at most once per session.
// Returns nil when there is nothing to offer.
func (c *Coordinator) CheckRecovery(ctx context.Context) (*backup.Record, error) {
	c.mu.Lock()
	if c.recoveryOffered {
		c.mu.Unlock()
		return nil, nil
	}
	c.mu.Unlock()

	rec, err := c.backups.Get(ctx, c.ref.DocumentID)
	if errors.Is(err, backup.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}

	c.mu.Lock()
	if c.recoveryOffered {
		c.mu.Unlock()
		return nil, nil
	}
	c.recoveryOffered = true
	c.pending = &rec
	c.mu.Unlock()

	c.logger.WithField("saved_at", rec.SavedAt).Info("Local backup found, offering recovery")
	c.notifier.Notify(notify.Notice{
		ID: notify.IDRecovery, Level: notify.LevelInfo,
		Message: "Found a local backup. Recover it?", Persistent: true,
	})
	out := rec
	return &out, nil
}

// RecoveryPending reports whether an offered recovery awaits a decision
func (c *Coordinator) RecoveryPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// AcceptRecovery parses the pending backup and marks the session unsaved so the next
// save re-persists it. The backup slot is kept until a remote save is confirmed.
func (c *Coordinator) AcceptRecovery(ctx context.Context) (*tabular.ParseResult, error) {
	c.mu.Lock()
	rec := c.pending
	c.pending = nil
	c.mu.Unlock()
	if rec == nil {
		return nil, ErrNoRecovery
	}

	d, err := tabular.ParseDelimiter(rec.Delimiter)
	if err != nil {
		d = tabular.Auto
	}
	result := c.codec.Parse(rec.Content, d)
	c.setUnsaved(true)

	c.logger.WithField("rows", len(result.Model.Rows)).Info("Backup recovered")
	c.notifier.Notify(notify.Notice{ID: notify.IDRecovery, Level: notify.LevelSuccess, Message: "Backup content restored!"})
	return result, nil
}

// DeclineRecovery discards the pending backup without touching the model
func (c *Coordinator) DeclineRecovery(ctx context.Context) error {
	c.mu.Lock()
	rec := c.pending
	c.pending = nil
	c.mu.Unlock()
	if rec == nil {
		return ErrNoRecovery
	}
	if err := c.backups.Delete(ctx, c.ref.DocumentID); err != nil {
		return fmt.Errorf("failed to discard backup: %w", err)
	}
	c.logger.Info("Backup discarded")
	c.notifier.Notify(notify.Notice{ID: notify.IDRecovery, Level: notify.LevelInfo, Message: "Local backup discarded."})
	return nil
}

// Unsaved reports whether there are changes not confirmed by the remote store
func (c *Coordinator) Unsaved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsaved
}

// MarkUnsaved flags the session as holding unconfirmed changes
func (c *Coordinator) MarkUnsaved() {
	c.setUnsaved(true)
}

// LastLocation returns the location of the last confirmed remote save
func (c *Coordinator) LastLocation() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastLocation
}

func (c *Coordinator) setUnsaved(v bool) {
	c.mu.Lock()
	c.unsaved = v
	c.mu.Unlock()
}
