/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: events.go
Description: Typed session events and a synchronous event bus. Events are delivered in
publish order on the publishing goroutine; handlers must not call back into the
session's mutating operations.
*/

package session

import (
	"sync"

	"github.com/kleascm/tablemend/pkg/backup"
	"github.com/kleascm/tablemend/pkg/connectivity"
	"github.com/kleascm/tablemend/pkg/notify"
	"github.com/kleascm/tablemend/pkg/persistence"
	"github.com/kleascm/tablemend/pkg/tabular"
)

// EventKind names an event type
type EventKind string

const (
	KindConnectivityChanged EventKind = "connectivity-changed"
	KindNoticeRaised        EventKind = "notice-raised"
	KindEdited              EventKind = "edited"
	KindHistoryChanged      EventKind = "history-changed"
	KindSaved               EventKind = "saved"
	KindRecoveryOffered     EventKind = "recovery-offered"
	KindModelReplaced       EventKind = "model-replaced"
	KindSubmitAffordance    EventKind = "submit-affordance"
)

// Event is implemented by every session event
type Event interface {
	Kind() EventKind
}

// ConnectivityChanged follows every monitor transition
type ConnectivityChanged struct {
	Transition connectivity.Transition
}

// NoticeRaised carries a user-facing notice
type NoticeRaised struct {
	Notice notify.Notice
}

// Edited is published after a mutating action has been applied and recorded
type Edited struct {
	Action  string
	Changed int
}

// HistoryChanged reports undo/redo availability
type HistoryChanged struct {
	CanUndo bool
	CanRedo bool
}

// Saved is published after every save attempt
type Saved struct {
	Result persistence.SaveResult
	Err    error
}

// RecoveryOffered is published when a pending backup is found
type RecoveryOffered struct {
	Record backup.Record
}

// Model replacement reasons
const (
	ReasonLoad      = "load"
	ReasonDelimiter = "delimiter"
	ReasonRecovery  = "recovery"
)

// ModelReplaced is published when the whole model is rebuilt
type ModelReplaced struct {
	Reason    string
	Delimiter tabular.Delimiter
	Columns   int
	Rows      int
	Warnings  int
}

// SubmitAffordance toggles remote-submit controls
type SubmitAffordance struct {
	Enabled bool
}

func (ConnectivityChanged) Kind() EventKind { return KindConnectivityChanged }
func (NoticeRaised) Kind() EventKind        { return KindNoticeRaised }
func (Edited) Kind() EventKind              { return KindEdited }
func (HistoryChanged) Kind() EventKind      { return KindHistoryChanged }
func (Saved) Kind() EventKind               { return KindSaved }
func (RecoveryOffered) Kind() EventKind     { return KindRecoveryOffered }
func (ModelReplaced) Kind() EventKind       { return KindModelReplaced }
func (SubmitAffordance) Kind() EventKind    { return KindSubmitAffordance }

// Handler receives events
type Handler func(Event)

// Bus fans events out to handlers
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h for all events
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers e to every handler in subscription order
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}

// Notify publishes n as a NoticeRaised event
func (b *Bus) Notify(n notify.Notice) {
	b.Publish(NoticeRaised{Notice: n})
}
