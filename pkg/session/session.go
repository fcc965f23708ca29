/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: session.go
Description: Editing session context. Owns the document model, its undo/redo history,
the delimiter selection and the persistence coordinator, and translates connectivity
transitions into events and notices. All model mutations go through the session so
history is recorded exactly once before each logical action.
*/

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/kleascm/tablemend/pkg/backup"
	"github.com/kleascm/tablemend/pkg/connectivity"
	"github.com/kleascm/tablemend/pkg/export"
	"github.com/kleascm/tablemend/pkg/history"
	"github.com/kleascm/tablemend/pkg/identity"
	"github.com/kleascm/tablemend/pkg/notify"
	"github.com/kleascm/tablemend/pkg/persistence"
	"github.com/kleascm/tablemend/pkg/remote"
	"github.com/kleascm/tablemend/pkg/tabular"
	"github.com/sirupsen/logrus"
)

// DefaultTitle is shown for documents without a display name
const DefaultTitle = "Document"

var (
	ErrNotLoaded     = errors.New("document not loaded")
	ErrOffline       = errors.New("offline: cannot submit")
	ErrUnsaved       = errors.New("changes are not saved")
	ErrRowOutOfRange = errors.New("row index out of range")
	ErrUnknownColumn = errors.New("unknown column")
)

// LoadError is an unrecoverable failure to load the document content.
// The editing surface cannot initialize after it.
type LoadError struct {
	Op  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load document (%s): %v", e.Op, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// CellEdit is one cell change in a logical edit action
type CellEdit struct {
	Row    int
	Column string
	Input  string
}

// Config wires a session
type Config struct {
	Ref          remote.DocumentRef
	Store        remote.DocumentStore
	Backups      backup.Store
	Monitor      *connectivity.Monitor
	Identity     identity.Provider
	Delimiter    tabular.Delimiter
	HistoryDepth int
	Logger       logrus.FieldLogger
}

// Session is one user's editing session on one document
type Session struct {
	id       string
	ref      remote.DocumentRef
	store    remote.DocumentStore
	monitor  *connectivity.Monitor
	identity identity.Provider
	coord    *persistence.Coordinator
	codec    *tabular.Codec
	bus      *Bus
	logger   logrus.FieldLogger

	mu        sync.Mutex
	history   *history.Manager
	model     *tabular.DocumentModel
	original  string
	selection tabular.Delimiter
	parsedAs  tabular.Delimiter
	name      string
	sourceURL string
	loaded    bool
}

// New creates a session. The caller owns the monitor's Start/Stop lifecycle.
func New(config Config) (*Session, error) {
	if config.Store == nil {
		return nil, errors.New("document store is required")
	}
	if config.Monitor == nil {
		return nil, errors.New("connectivity monitor is required")
	}
	if config.Backups == nil {
		config.Backups = backup.NewMemoryStore()
	}
	if config.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		config.Logger = l
	}

	id := uuid.NewString()
	logger := config.Logger.WithFields(logrus.Fields{"session": id, "document": config.Ref.String()})
	bus := NewBus()
	codec := tabular.NewCodec(logger)

	coord, err := persistence.New(persistence.Config{
		Ref:          config.Ref,
		Writer:       config.Store,
		Backups:      config.Backups,
		Connectivity: config.Monitor,
		Notifier:     bus,
		Codec:        codec,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create persistence coordinator: %w", err)
	}

	s := &Session{
		id:        id,
		ref:       config.Ref,
		store:     config.Store,
		monitor:   config.Monitor,
		identity:  config.Identity,
		coord:     coord,
		codec:     codec,
		bus:       bus,
		logger:    logger,
		history:   history.NewManager(config.HistoryDepth),
		model:     &tabular.DocumentModel{Rows: []tabular.Row{}},
		selection: config.Delimiter,
	}
	config.Monitor.Subscribe(s.onTransition)
	return s, nil
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Subscribe registers an event handler
func (s *Session) Subscribe(h Handler) { s.bus.Subscribe(h) }

// Load fetches the document content and name from the store and opens it.
// Any error is a *LoadError.
func (s *Session) Load(ctx context.Context) error {
	urls, err := s.store.FetchContentURL(ctx, s.ref)
	if err != nil {
		return s.loadFailed("fetch content url", err)
	}
	raw, err := s.store.FetchContent(ctx, urls.TabularURL)
	if err != nil {
		return s.loadFailed("fetch content", err)
	}
	name, err := s.store.FetchDisplayName(ctx, s.ref)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to fetch display name")
		name = ""
	}
	s.mu.Lock()
	s.sourceURL = urls.SourceDocURL
	s.mu.Unlock()
	return s.Open(ctx, raw, name)
}

func (s *Session) loadFailed(op string, err error) error {
	s.logger.WithError(err).WithField("op", op).Error("Document load failed")
	s.bus.Notify(notify.Notice{ID: notify.IDParseWarnings, Level: notify.LevelError, Message: "Error fetching document", Persistent: true})
	return &LoadError{Op: op, Err: err}
}

// Open initializes the session from raw content, then offers any pending backup
func (s *Session) Open(ctx context.Context, raw []byte, name string) error {
	text, err := tabular.DecodeText(raw)
	if err != nil {
		return s.loadFailed("decode content", err)
	}

	s.mu.Lock()
	result := s.codec.Parse(text, s.selection)
	s.original = text
	s.name = name
	s.loaded = true
	s.replaceLocked(result)
	s.mu.Unlock()

	s.publishReplaced(ReasonLoad, result)
	s.logger.WithFields(logrus.Fields{
		"delimiter": result.Delimiter.String(),
		"columns":   len(result.Model.Columns),
		"rows":      len(result.Model.Rows),
	}).Info("Document parsed")

	rec, err := s.coord.CheckRecovery(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Backup check failed")
		return nil
	}
	if rec != nil {
		s.bus.Publish(RecoveryOffered{Record: *rec})
	}
	return nil
}

// replaceLocked installs a freshly parsed model. History is cleared because existing
// snapshots address the previous column set.
func (s *Session) replaceLocked(result *tabular.ParseResult) {
	s.model = result.Model
	s.parsedAs = result.Delimiter
	s.history.Clear()
}

func (s *Session) publishReplaced(reason string, result *tabular.ParseResult) {
	s.bus.Publish(ModelReplaced{
		Reason:    reason,
		Delimiter: result.Delimiter,
		Columns:   len(result.Model.Columns),
		Rows:      len(result.Model.Rows),
		Warnings:  len(result.Warnings),
	})
	s.bus.Publish(HistoryChanged{})
	if n := len(result.Warnings); n > 0 {
		s.bus.Notify(notify.Notice{
			ID: notify.IDParseWarnings, Level: notify.LevelWarning,
			Message: fmt.Sprintf("%d row(s) could not be parsed cleanly.", n),
		})
	}
	if result.Inference != nil && result.Inference.Ambiguous {
		s.bus.Notify(notify.Notice{
			ID: notify.IDDelimiter, Level: notify.LevelWarning,
			Message: "Could not detect the delimiter, using comma. Choose one to re-parse.",
		})
	}
}

// Model returns a deep copy of the current model
func (s *Session) Model() (*tabular.DocumentModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Clone()
}

// Delimiter returns the selected delimiter (possibly Auto) and the one the model was parsed with
func (s *Session) Delimiter() (selected, parsed tabular.Delimiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection, s.parsedAs
}

// SourceURL returns the source document URL reported by the store
func (s *Session) SourceURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceURL
}

// EditCell applies a single cell edit as one logical action
func (s *Session) EditCell(row int, column, input string) (bool, error) {
	n, err := s.ApplyEdits([]CellEdit{{Row: row, Column: column, Input: input}})
	return n > 0, err
}

// ApplyEdits applies several cell edits as one logical action with one history entry.
// Edits are validated first; nothing is applied if any edit is invalid.
// Returns the number of cells whose value changed.
func (s *Session) ApplyEdits(edits []CellEdit) (int, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return 0, ErrNotLoaded
	}

	type cell struct {
		row int
		key string
	}
	type change struct {
		row tabular.Row
		col tabular.ColumnDef
		v   tabular.Value
	}
	// Later edits to the same cell win; each cell is compared once by its final value
	var order []cell
	final := make(map[cell]change, len(edits))
	for _, e := range edits {
		if e.Row < 0 || e.Row >= len(s.model.Rows) {
			s.mu.Unlock()
			return 0, fmt.Errorf("%w: %d", ErrRowOutOfRange, e.Row)
		}
		col, ok := s.model.Column(e.Column)
		if !ok {
			s.mu.Unlock()
			return 0, fmt.Errorf("%w: %s", ErrUnknownColumn, e.Column)
		}
		k := cell{row: e.Row, key: col.Key()}
		if _, seen := final[k]; !seen {
			order = append(order, k)
		}
		final[k] = change{row: s.model.Rows[e.Row], col: col, v: col.ParseInput(e.Input)}
	}
	var changes []change
	for _, k := range order {
		c := final[k]
		if c.col.Get(c.row) != c.v {
			changes = append(changes, c)
		}
	}
	if len(changes) == 0 {
		s.mu.Unlock()
		return 0, nil
	}

	if err := s.history.RecordBeforeEdit(s.model.Rows); err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("failed to record history: %w", err)
	}
	for _, c := range changes {
		c.col.Set(c.row, c.v)
	}
	s.coord.MarkUnsaved()
	canUndo, canRedo := s.history.CanUndo(), s.history.CanRedo()
	s.mu.Unlock()

	action := "edit"
	if len(edits) > 1 {
		action = "bulk-edit"
	}
	s.logger.WithFields(logrus.Fields{"action": action, "cells": len(changes)}).Debug("History recorded")
	s.bus.Publish(Edited{Action: action, Changed: len(changes)})
	s.bus.Publish(HistoryChanged{CanUndo: canUndo, CanRedo: canRedo})
	return len(changes), nil
}

// AddRow appends an empty row and returns its index
func (s *Session) AddRow() (int, error) {
	var idx int
	err := s.mutate("add-row", nil, func() int {
		s.model.Rows = append(s.model.Rows, s.model.BlankRow())
		idx = len(s.model.Rows) - 1
		return 1
	})
	return idx, err
}

// DeleteRows removes the rows at the given indices of the current sequence.
// An empty selection is a no-op.
func (s *Session) DeleteRows(indices []int) (int, error) {
	if len(indices) == 0 {
		return 0, nil
	}
	drop := make(map[int]bool, len(indices))
	err := s.mutate("delete-rows", func() error {
		for _, i := range indices {
			if i < 0 || i >= len(s.model.Rows) {
				return fmt.Errorf("%w: %d", ErrRowOutOfRange, i)
			}
			drop[i] = true
		}
		return nil
	}, func() int {
		kept := make([]tabular.Row, 0, len(s.model.Rows)-len(drop))
		for i, row := range s.model.Rows {
			if !drop[i] {
				kept = append(kept, row)
			}
		}
		s.model.Rows = kept
		return len(drop)
	})
	if err != nil {
		return 0, err
	}
	return len(drop), nil
}

// mutate validates, records history, then applies one logical action
func (s *Session) mutate(action string, validate func() error, apply func() int) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	if validate != nil {
		if err := validate(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	if err := s.history.RecordBeforeEdit(s.model.Rows); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to record history: %w", err)
	}
	changed := apply()
	s.coord.MarkUnsaved()
	canUndo, canRedo := s.history.CanUndo(), s.history.CanRedo()
	s.mu.Unlock()

	s.logger.WithField("action", action).Debug("History recorded")
	s.bus.Publish(Edited{Action: action, Changed: changed})
	s.bus.Publish(HistoryChanged{CanUndo: canUndo, CanRedo: canRedo})
	return nil
}

// Undo reverts the last logical action. Returns false when there is nothing to undo.
func (s *Session) Undo() (bool, error) {
	return s.step("undo", s.history.Undo)
}

// Redo re-applies the last undone action. Returns false when there is nothing to redo.
func (s *Session) Redo() (bool, error) {
	return s.step("redo", s.history.Redo)
}

func (s *Session) step(action string, op func([]tabular.Row) ([]tabular.Row, bool, error)) (bool, error) {
	s.mu.Lock()
	rows, ok, err := op(s.model.Rows)
	if err != nil || !ok {
		s.mu.Unlock()
		return false, err
	}
	s.model.Rows = rows
	s.coord.MarkUnsaved()
	canUndo, canRedo := s.history.CanUndo(), s.history.CanRedo()
	s.mu.Unlock()

	s.bus.Publish(Edited{Action: action, Changed: len(rows)})
	s.bus.Publish(HistoryChanged{CanUndo: canUndo, CanRedo: canRedo})
	return true, nil
}

// SetDelimiter changes the delimiter selection and re-parses the loaded text with it
func (s *Session) SetDelimiter(d tabular.Delimiter) (*tabular.ParseResult, error) {
	s.mu.Lock()
	if !s.loaded {
		s.selection = d
		s.mu.Unlock()
		return nil, ErrNotLoaded
	}
	s.selection = d
	result := s.codec.Parse(s.original, d)
	s.replaceLocked(result)
	s.mu.Unlock()

	s.logger.WithField("delimiter", d.String()).Info("Document re-parsed")
	s.publishReplaced(ReasonDelimiter, result)
	return result, nil
}

// Save persists the current model with the selected delimiter
func (s *Session) Save(ctx context.Context) (persistence.SaveResult, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return persistence.SaveResult{}, ErrNotLoaded
	}
	model, err := s.model.Clone()
	d := s.selection
	s.mu.Unlock()
	if err != nil {
		return persistence.SaveResult{}, err
	}

	res, err := s.coord.Save(ctx, model, d)
	s.bus.Publish(Saved{Result: res, Err: err})
	return res, err
}

// BrowserOffline forwards the browser's offline event
func (s *Session) BrowserOffline() {
	s.monitor.BrowserOffline()
}

// BrowserOnline forwards the browser's online event and saves pending changes
func (s *Session) BrowserOnline(ctx context.Context) error {
	s.monitor.BrowserOnline()
	if !s.coord.Unsaved() {
		return nil
	}
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if !loaded {
		return nil
	}
	s.logger.Info("Back online, saving pending changes")
	_, err := s.Save(ctx)
	return err
}

// ResolveRecovery accepts or declines the offered backup
func (s *Session) ResolveRecovery(ctx context.Context, accept bool) error {
	if !accept {
		return s.coord.DeclineRecovery(ctx)
	}
	result, err := s.coord.AcceptRecovery(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.original = s.codec.Serialize(result.Model, result.Delimiter)
	s.selection = result.Delimiter
	s.loaded = true
	s.replaceLocked(result)
	s.mu.Unlock()

	s.publishReplaced(ReasonRecovery, result)
	return nil
}

// RecoveryPending reports whether a recovery decision is outstanding
func (s *Session) RecoveryPending() bool {
	return s.coord.RecoveryPending()
}

// Submit saves and, once the save is confirmed and the session is online, records the
// submission and applies the workflow status fields. Returns the saved location.
func (s *Session) Submit(ctx context.Context, fields remote.StatusFields) (string, error) {
	res, saveErr := s.Save(ctx)
	if !s.monitor.SubmitEnabled() {
		s.bus.Notify(notify.Notice{ID: notify.IDSubmit, Level: notify.LevelError, Message: "You are offline. Cannot submit now."})
		return "", ErrOffline
	}
	if saveErr != nil || s.coord.Unsaved() {
		s.bus.Notify(notify.Notice{ID: notify.IDSubmit, Level: notify.LevelError, Message: "Please ensure changes are saved before submitting."})
		if saveErr != nil {
			return "", fmt.Errorf("%w: %w", ErrUnsaved, saveErr)
		}
		return "", ErrUnsaved
	}

	var who identity.Identity
	if s.identity != nil {
		id, err := s.identity.Current(ctx)
		if err != nil && !errors.Is(err, identity.ErrNoIdentity) {
			return "", fmt.Errorf("failed to read identity: %w", err)
		}
		who = id
	}
	sub := remote.Submission{
		ProjectID:  s.ref.ProjectID,
		DocumentID: s.ref.DocumentID,
		UserID:     who.UserID,
		UserName:   who.Name(),
		FileName:   s.Title(),
		FileURL:    res.Location,
		CompanyID:  who.CompanyID,
	}
	if err := s.store.RecordSubmission(ctx, sub); err != nil {
		s.submitFailed(err)
		return "", fmt.Errorf("failed to record submission: %w", err)
	}
	if err := s.store.UpdateStatus(ctx, s.ref, fields); err != nil {
		s.submitFailed(err)
		return "", fmt.Errorf("failed to update status: %w", err)
	}

	s.logger.WithField("location", res.Location).Info("Document submitted")
	s.bus.Notify(notify.Notice{ID: notify.IDSubmit, Level: notify.LevelSuccess, Message: "Document status updated successfully!"})
	return res.Location, nil
}

func (s *Session) submitFailed(err error) {
	s.logger.WithError(err).Error("Submit failed")
	s.bus.Notify(notify.Notice{ID: notify.IDSubmit, Level: notify.LevelError, Message: "Failed to update document status."})
}

// Filter returns the indices of rows matching the quick filter query
func (s *Session) Filter(query string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tabular.QuickFilter(s.model, query)
}

// Download returns the serialized document as a csv payload
func (s *Session) Download() (export.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return export.File{}, ErrNotLoaded
	}
	return export.CSV(s.model, s.selection, s.name), nil
}

// ExportXLSX returns the document as an xlsx payload
func (s *Session) ExportXLSX() (export.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return export.File{}, ErrNotLoaded
	}
	return export.XLSX(s.model, s.name)
}

// Unsaved reports whether changes are not yet confirmed remotely
func (s *Session) Unsaved() bool {
	return s.coord.Unsaved()
}

// Title returns the window title for the document
func (s *Session) Title() string {
	s.mu.Lock()
	name := s.name
	s.mu.Unlock()
	if name == "" {
		name = DefaultTitle
	}
	if s.coord.Unsaved() {
		return "* " + name + " (Unsaved changes)"
	}
	return name
}

// CanLeave reports whether leaving the editor loses nothing
func (s *Session) CanLeave() bool {
	return !s.coord.Unsaved() && s.monitor.State() != connectivity.Offline
}

// SubmitEnabled reports whether the submit affordance is enabled
func (s *Session) SubmitEnabled() bool {
	return s.monitor.SubmitEnabled()
}

// onTransition maps connectivity transitions to events and notices. It runs on the
// monitor's emit path and must not call monitor mutators.
func (s *Session) onTransition(t connectivity.Transition) {
	s.bus.Publish(ConnectivityChanged{Transition: t})

	n := notify.Notice{ID: notify.IDConnectivity}
	switch t.To {
	case connectivity.Offline:
		n.Level = notify.LevelWarning
		n.Message = "You are offline. Changes will be saved locally until connection returns."
		n.Persistent = true
	case connectivity.Degraded:
		n.Level = notify.LevelWarning
		n.Message = "Connection to server is unstable. Your changes will be backed up locally."
	case connectivity.Online:
		n.Level = notify.LevelSuccess
		n.Message = "Back online."
	}
	s.bus.Notify(n)

	if (t.From == connectivity.Offline) != (t.To == connectivity.Offline) {
		s.bus.Publish(SubmitAffordance{Enabled: t.To != connectivity.Offline})
	}
}
