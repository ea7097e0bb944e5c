// Package workflow drives the analyzer's user-facing stages and owns the
// lifetime of each collection session.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/ayursense/internal/application"
	"github.com/bryanwahyu/ayursense/internal/application/collection"
	"github.com/bryanwahyu/ayursense/internal/application/poller"
	"github.com/bryanwahyu/ayursense/internal/domain/session"
)

type Stage string

const (
	StageHome         Stage = "home"
	StageInstructions Stage = "instructions"
	StageTesting      Stage = "testing"
	StageResults      Stage = "results"
	StageAbout        Stage = "about"
	StageContact      Stage = "contact"
)

type EventKind int

const (
	EventStage EventKind = iota + 1
	EventProgress
	EventVerdict
	EventFailed
)

// Event is delivered to the listener. Session is empty for stage changes
// that are not tied to a collection session.
type Event struct {
	Kind     EventKind
	Session  string
	Stage    Stage
	Progress collection.Progress
	Verdict  session.Verdict
	Err      error
}

type Config struct {
	Collection   collection.Config
	PollInterval time.Duration
	PollTimeout  time.Duration
	Policy       poller.FailurePolicy
}

type Option func(*Machine)

func WithClock(clk application.Clock) Option {
	return func(m *Machine) { m.clock = clk }
}

// WithListener registers fn for every Event. fn must not call back into
// the Machine synchronously.
func WithListener(fn func(Event)) Option {
	return func(m *Machine) { m.listener = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithRand supplies the random source for each session's synthesized channels.
func WithRand(fn func() *rand.Rand) Option {
	return func(m *Machine) { m.newRand = fn }
}

// Machine is the Home -> Instructions -> Testing -> Results cycle with the
// About and Contact side stages. It is safe for concurrent use.
type Machine struct {
	cfg      Config
	fetcher  poller.Fetcher
	decider  session.Decider
	clock    application.Clock
	listener func(Event)
	logger   *slog.Logger
	newRand  func() *rand.Rand

	mu        sync.Mutex
	stage     Stage
	cond      session.Condition
	verdict   *session.Verdict
	window    *session.SampleWindow
	sessionID string
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewMachine(cfg Config, fetcher poller.Fetcher, decider session.Decider, opts ...Option) *Machine {
	m := &Machine{
		cfg:     cfg,
		fetcher: fetcher,
		decider: decider,
		clock:   application.SystemClock{},
		logger:  slog.Default(),
		stage:   StageHome,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Stage() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

func (m *Machine) Condition() session.Condition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cond
}

// Verdict returns the verdict of the completed session, if any.
func (m *Machine) Verdict() (session.Verdict, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.verdict == nil {
		return session.Verdict{}, false
	}
	return *m.verdict, true
}

// Window returns the sealed window of the completed session, or nil.
func (m *Machine) Window() *session.SampleWindow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.window
}

// SessionID is the id of the running or last completed session.
func (m *Machine) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Select records the condition and moves Home -> Instructions.
func (m *Machine) Select(cond session.Condition) error {
	if cond.IsZero() {
		return session.ErrNoCondition
	}
	m.mu.Lock()
	if m.stage != StageHome {
		defer m.mu.Unlock()
		return m.invalid("select")
	}
	m.cond = cond
	ev := m.setStage(StageInstructions)
	m.mu.Unlock()

	m.emit(ev)
	return nil
}

// SelectKind builds the condition from a catalogue kind and optional text.
func (m *Machine) SelectKind(kind session.ConditionKind, custom string) error {
	cond, err := session.NewCondition(kind, custom)
	if err != nil {
		return err
	}
	return m.Select(cond)
}

// Start moves Instructions -> Testing and launches a collection session
// bound to ctx. It returns the new session id.
func (m *Machine) Start(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.stage != StageInstructions {
		defer m.mu.Unlock()
		return "", m.invalid("start")
	}

	id := uuid.NewString()
	sctx, cancel := context.WithCancel(ctx)
	m.sessionID = id
	m.cancel = cancel
	m.verdict = nil
	m.window = nil
	cond := m.cond

	p := &poller.Poller{
		Fetcher:  m.fetcher,
		Clock:    m.clock,
		Interval: m.cfg.PollInterval,
		Timeout:  m.cfg.PollTimeout,
		Policy:   m.cfg.Policy,
		Logger:   m.logger.With("session", id),
	}
	onProgress := func(pr collection.Progress) {
		if m.current(id) {
			m.emit(Event{Kind: EventProgress, Session: id, Stage: StageTesting, Progress: pr})
		}
	}
	ctrl := &collection.Controller{
		Config:     m.cfg.Collection,
		Clock:      m.clock,
		Live:       p,
		Decider:    m.decider,
		OnProgress: onProgress,
		Logger:     m.logger.With("session", id),
	}
	if m.newRand != nil {
		ctrl.Rand = m.newRand()
	}

	ev := m.setStage(StageTesting)
	ev.Session = id
	m.wg.Add(2)
	m.mu.Unlock()

	m.emit(ev)
	go func() {
		defer m.wg.Done()
		_ = p.Run(sctx)
	}()
	go func() {
		defer m.wg.Done()
		verdict, window, err := ctrl.Run(sctx, cond)
		m.finish(id, verdict, window, err)
	}()
	return id, nil
}

// finish applies a session result if id is still the active session.
func (m *Machine) finish(id string, verdict session.Verdict, window *session.SampleWindow, err error) {
	m.mu.Lock()
	if m.sessionID != id || m.stage != StageTesting {
		m.mu.Unlock()
		m.logger.Debug("discarding result of superseded session", "session", id, "err", err)
		return
	}
	m.stopSession()

	if err != nil {
		m.logger.Warn("session failed", "session", id, "err", err)
		m.clear()
		ev := m.setStage(StageHome)
		m.mu.Unlock()
		m.emit(Event{Kind: EventFailed, Session: id, Stage: StageTesting, Err: err})
		m.emit(ev)
		return
	}

	m.verdict = &verdict
	m.window = window
	ev := m.setStage(StageResults)
	ev.Session = id
	m.mu.Unlock()

	m.emit(Event{Kind: EventVerdict, Session: id, Stage: StageResults, Verdict: verdict})
	m.emit(ev)
}

// Restart cancels any running session, discards the condition, window and
// verdict and returns to Home.
func (m *Machine) Restart() {
	m.mu.Lock()
	m.stopSession()
	m.clear()
	if m.stage == StageHome {
		m.mu.Unlock()
		return
	}
	ev := m.setStage(StageHome)
	m.mu.Unlock()
	m.emit(ev)
}

// ShowAbout enters the About side stage from any stage but Home.
func (m *Machine) ShowAbout() error { return m.side(StageAbout) }

// ShowContact enters the Contact side stage from any stage but Home.
func (m *Machine) ShowContact() error { return m.side(StageContact) }

func (m *Machine) side(to Stage) error {
	m.mu.Lock()
	if m.stage == StageHome {
		defer m.mu.Unlock()
		return m.invalid(string(to))
	}
	if m.stage == to {
		m.mu.Unlock()
		return nil
	}
	// side stages only return via Restart, so a running session is abandoned
	m.stopSession()
	ev := m.setStage(to)
	m.mu.Unlock()
	m.emit(ev)
	return nil
}

// Wait blocks until every session goroutine has exited.
func (m *Machine) Wait() {
	m.wg.Wait()
}

func (m *Machine) current(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID == id && m.stage == StageTesting
}

// stopSession cancels the running session. Callers hold mu.
func (m *Machine) stopSession() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// clear drops all per-session state. Callers hold mu.
func (m *Machine) clear() {
	m.cond = session.Condition{}
	m.verdict = nil
	m.window = nil
	m.sessionID = ""
}

// setStage changes the stage and returns the event to emit once mu is
// released. Callers hold mu.
func (m *Machine) setStage(to Stage) Event {
	from := m.stage
	m.stage = to
	m.logger.Info("workflow stage changed", "from", from, "to", to)
	return Event{Kind: EventStage, Stage: to}
}

// invalid builds the transition error. Callers hold mu.
func (m *Machine) invalid(action string) error {
	return fmt.Errorf("%w: %s from %s", session.ErrInvalidTransition, action, m.stage)
}

func (m *Machine) emit(ev Event) {
	if m.listener != nil {
		m.listener(ev)
	}
}

// IsCancelled reports whether err ended a session by cancellation rather
// than by a decision failure.
func IsCancelled(err error) bool {
	return errors.Is(err, session.ErrCancelled)
}
