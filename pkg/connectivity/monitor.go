/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: monitor.go
Description: Connectivity state machine fed by browser online/offline events, a periodic
bounded-timeout liveness probe, and save outcomes reported by the persistence layer.
The most recently resolved signal wins; probe results that straddle a browser event
are discarded as stale.
*/

package connectivity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the connectivity state
type State int

const (
	Online State = iota
	Offline
	Degraded
)

func (s State) String() string {
	switch s {
	case Online:
		return "online"
	case Offline:
		return "offline"
	case Degraded:
		return "degraded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Cause names the signal behind a transition
type Cause string

const (
	CauseBrowserOffline Cause = "browser-offline"
	CauseBrowserOnline  Cause = "browser-online"
	CauseProbeFailed    Cause = "probe-failed"
	CauseProbeRecovered Cause = "probe-recovered"
	CauseRemoteFailure  Cause = "remote-failure"
	CauseRemoteSuccess  Cause = "remote-success"
)

// Transition is emitted whenever the state changes
type Transition struct {
	From  State
	To    State
	Cause Cause
	At    time.Time
	Err   error
}

// Status is a point-in-time view of the monitor
type Status struct {
	State         State
	BrowserOnline bool
	LastKnownGood time.Time
	Since         time.Time
}

// Listener receives transitions in the order they were applied.
// Listeners may read the monitor but must not call its mutators.
type Listener func(Transition)

// Config controls probing
type Config struct {
	Interval time.Duration `json:"interval"`
	Timeout  time.Duration `json:"timeout"`
}

// DefaultConfig probes every 30s with a 3s hard timeout
func DefaultConfig() Config {
	return Config{Interval: 30 * time.Second, Timeout: 3 * time.Second}
}

// Monitor tracks connectivity for one editing session
type Monitor struct {
	config Config
	probe  ProbeFunc
	clock  Clock
	logger logrus.FieldLogger

	mu            sync.RWMutex
	state         State
	browserOnline bool
	lastKnownGood time.Time
	since         time.Time
	epoch         uint64 // bumped by browser events
	listeners     []Listener

	// emitMu serializes apply+emit so listeners observe transitions in order
	emitMu sync.Mutex

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewMonitor creates a monitor that starts Online with the browser online.
// A nil clock uses the system clock; a nil logger discards output.
func NewMonitor(config Config, probe ProbeFunc, clock Clock, logger logrus.FieldLogger) *Monitor {
	defaults := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	now := clock.Now()
	return &Monitor{
		config:        config,
		probe:         probe,
		clock:         clock,
		logger:        logger,
		state:         Online,
		browserOnline: true,
		lastKnownGood: now,
		since:         now,
	}
}

// Subscribe registers a listener for transitions
func (m *Monitor) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// State returns the current state
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Status returns the full current status
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		State:         m.state,
		BrowserOnline: m.browserOnline,
		LastKnownGood: m.lastKnownGood,
		Since:         m.since,
	}
}

// SubmitEnabled reports whether remote-submit affordances should be enabled
func (m *Monitor) SubmitEnabled() bool {
	return m.State() != Offline
}

// BrowserOffline handles the browser's offline event
func (m *Monitor) BrowserOffline() {
	m.apply(func() decision {
		m.epoch++
		m.browserOnline = false
		return decision{to: Offline, cause: CauseBrowserOffline, changed: true}
	})
}

// BrowserOnline handles the browser's online event. The monitor trusts the event
// and returns to Online; a failing reconnect save downgrades it again.
func (m *Monitor) BrowserOnline() {
	m.apply(func() decision {
		m.epoch++
		m.browserOnline = true
		if m.state == Offline {
			return decision{to: Online, cause: CauseBrowserOnline, changed: true}
		}
		return decision{}
	})
}

// ReportRemoteFailure downgrades Online to Degraded after a failed remote call
func (m *Monitor) ReportRemoteFailure(err error) {
	m.apply(func() decision {
		if m.state == Online {
			return decision{to: Degraded, cause: CauseRemoteFailure, err: err, changed: true}
		}
		return decision{}
	})
}

// ReportRemoteSuccess records a confirmed remote call, restoring Degraded to Online
func (m *Monitor) ReportRemoteSuccess() {
	m.apply(func() decision {
		m.lastKnownGood = m.clock.Now()
		if m.state == Degraded {
			return decision{to: Online, cause: CauseRemoteSuccess, changed: true}
		}
		return decision{}
	})
}

// ProbeNow runs one liveness probe and applies its result. The probe only runs while
// the browser reports online. A timeout is an ordinary probe failure and is not
// returned; an error is returned only when ctx itself is done.
func (m *Monitor) ProbeNow(ctx context.Context) error {
	if m.probe == nil {
		return nil
	}
	m.mu.RLock()
	online, epoch := m.browserOnline, m.epoch
	m.mu.RUnlock()
	if !online {
		return nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	err := m.probe(probeCtx)
	cancel()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("probe timed out after %s: %w", m.config.Timeout, err)
	}

	m.apply(func() decision {
		if m.epoch != epoch {
			m.logger.WithField("error", err).Debug("Network probe result discarded as stale")
			return decision{}
		}
		if err != nil {
			if m.state == Online {
				return decision{to: Degraded, cause: CauseProbeFailed, err: err, changed: true}
			}
			return decision{}
		}
		m.lastKnownGood = m.clock.Now()
		if m.state == Degraded {
			return decision{to: Online, cause: CauseProbeRecovered, changed: true}
		}
		return decision{}
	})
	return nil
}

// Start schedules the liveness probe at the configured interval
func (m *Monitor) Start(ctx context.Context) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.running {
		return fmt.Errorf("connectivity monitor already running")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	ticker := m.clock.NewTicker(m.config.Interval)
	m.wg.Add(1)
	go m.probeLoop(loopCtx, ticker)

	m.logger.WithFields(logrus.Fields{
		"interval": m.config.Interval,
		"timeout":  m.config.Timeout,
	}).Info("Network monitor started")
	return nil
}

// Stop cancels the probe loop and waits for an in-flight probe to finish
func (m *Monitor) Stop() error {
	m.runMu.Lock()
	if !m.running {
		m.runMu.Unlock()
		return fmt.Errorf("connectivity monitor not running")
	}
	m.running = false
	m.cancel()
	m.runMu.Unlock()

	m.wg.Wait()
	m.logger.Info("Network monitor stopped")
	return nil
}

func (m *Monitor) probeLoop(ctx context.Context, ticker Ticker) {
	defer m.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if err := m.ProbeNow(ctx); err != nil {
				return
			}
		}
	}
}

type decision struct {
	to      State
	cause   Cause
	err     error
	changed bool
}

// apply runs decide under the state lock and emits the resulting transition, if any
func (m *Monitor) apply(decide func() decision) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	d := decide()
	if !d.changed || d.to == m.state {
		m.mu.Unlock()
		return
	}
	now := m.clock.Now()
	t := Transition{From: m.state, To: d.to, Cause: d.cause, At: now, Err: d.err}
	m.state = d.to
	m.since = now
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	entry := m.logger.WithFields(logrus.Fields{
		"from":  t.From.String(),
		"to":    t.To.String(),
		"cause": string(t.Cause),
	})
	if t.Err != nil {
		entry = entry.WithError(t.Err)
	}
	if t.To == Online {
		entry.Info("Network state changed")
	} else {
		entry.Warn("Network state changed")
	}

	for _, l := range listeners {
		l(t)
	}
}
