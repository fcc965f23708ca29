/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: history.go
Description: Bounded undo/redo history over full row snapshots. Each snapshot is an
independent deep copy, so mutating the live model never alters recorded history.
Recording a new snapshot invalidates pending redo entries.
*/

package history

import (
	"time"

	"github.com/kleascm/tablemend/pkg/tabular"
)

// DefaultDepth matches the editing grid's native undo depth
const DefaultDepth = 50

// Snapshot is an immutable copy of the rows at a point in time
type Snapshot struct {
	rows    []tabular.Row
	takenAt time.Time
}

// TakenAt returns when the snapshot was recorded
func (s Snapshot) TakenAt() time.Time {
	return s.takenAt
}

// Len returns the number of rows in the snapshot
func (s Snapshot) Len() int {
	return len(s.rows)
}

// Manager holds the undo and redo stacks of one editing session.
// It is owned by the session and is not safe for concurrent use.
type Manager struct {
	depth int
	undo  []Snapshot
	redo  []Snapshot
	now   func() time.Time
}

// NewManager creates a history bounded to depth entries per stack.
// A non-positive depth selects DefaultDepth.
func NewManager(depth int) *Manager {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Manager{depth: depth, now: time.Now}
}

// Depth returns the stack bound
func (m *Manager) Depth() int {
	return m.depth
}

// RecordBeforeEdit snapshots the rows as they are before a mutation and clears redo.
// Call it exactly once per logical action.
func (m *Manager) RecordBeforeEdit(current []tabular.Row) error {
	snap, err := m.snapshot(current)
	if err != nil {
		return err
	}
	m.undo = push(m.undo, snap, m.depth)
	m.redo = nil
	return nil
}

// Undo restores the most recent snapshot. The current rows move onto the redo stack.
// Returns false when there is nothing to undo.
func (m *Manager) Undo(current []tabular.Row) ([]tabular.Row, bool, error) {
	return m.swap(&m.undo, &m.redo, current)
}

// Redo re-applies the most recently undone state. Returns false when there is nothing to redo.
func (m *Manager) Redo(current []tabular.Row) ([]tabular.Row, bool, error) {
	return m.swap(&m.redo, &m.undo, current)
}

// CanUndo reports whether an undo is available
func (m *Manager) CanUndo() bool {
	return len(m.undo) > 0
}

// CanRedo reports whether a redo is available
func (m *Manager) CanRedo() bool {
	return len(m.redo) > 0
}

// Sizes returns the current undo and redo depths
func (m *Manager) Sizes() (undo, redo int) {
	return len(m.undo), len(m.redo)
}

// Clear drops all history, used when the column set is rebuilt
func (m *Manager) Clear() {
	m.undo = nil
	m.redo = nil
}

func (m *Manager) swap(from, to *[]Snapshot, current []tabular.Row) ([]tabular.Row, bool, error) {
	if len(*from) == 0 {
		return nil, false, nil
	}
	saved, err := m.snapshot(current)
	if err != nil {
		return nil, false, err
	}
	last := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	*to = push(*to, saved, m.depth)
	// the popped snapshot leaves the stack, so its rows can be handed out directly
	return last.rows, true, nil
}

func (m *Manager) snapshot(rows []tabular.Row) (Snapshot, error) {
	clone, err := tabular.CloneRows(rows)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{rows: clone, takenAt: m.now()}, nil
}

// push appends snap, evicting the oldest entries beyond depth
func push(stack []Snapshot, snap Snapshot, depth int) []Snapshot {
	stack = append(stack, snap)
	if over := len(stack) - depth; over > 0 {
		stack = append(stack[:0:0], stack[over:]...)
	}
	return stack
}
