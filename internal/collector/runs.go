package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a background run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusCancelled RunStatus = "cancelled"
	StatusFailed    RunStatus = "failed"
)

// Run is the externally visible state of a background collection.
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Status      RunStatus  `json:"status"`
	TargetCount int        `json:"target_count"`
	Added       int        `json:"added"`
	Errors      int        `json:"errors"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Result      *Result    `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// RunObserver is told when a run starts and stops.
type RunObserver interface {
	SetCollectionRunning(running bool)
}

// Manager runs collections in the background, one at a time, and keeps
// their outcomes for status polling.
type Manager struct {
	collector *Collector
	observer  RunObserver
	now       func() time.Time

	mu     sync.Mutex
	runs   map[uuid.UUID]*Run
	active *uuid.UUID
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRunObserver reports run activity, e.g. to a metrics gauge.
func WithRunObserver(o RunObserver) ManagerOption {
	return func(m *Manager) { m.observer = o }
}

// NewManager creates a run registry around a collector.
func NewManager(c *Collector, opts ...ManagerOption) *Manager {
	m := &Manager{
		collector: c,
		now:       time.Now,
		runs:      make(map[uuid.UUID]*Run),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) setRunning(running bool) {
	if m.observer != nil {
		m.observer.SetCollectionRunning(running)
	}
}

// Start launches a run detached from the caller's request. parent bounds the
// run's lifetime, typically the server context.
func (m *Manager) Start(parent context.Context, targetCount int) (Run, error) {
	if targetCount < 1 {
		return Run{}, apperrors.NewValidationError("target count must be at least 1")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return Run{}, apperrors.NewConflictError("a collection run is already in progress")
	}

	id := uuid.New()
	run := &Run{
		ID:          id,
		Status:      StatusRunning,
		TargetCount: targetCount,
		StartedAt:   m.now().UTC(),
	}
	m.runs[id] = run
	m.active = &id
	m.setRunning(true)

	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()

		res, err := m.collector.run(ctx, id, targetCount, func(added, errors int) {
			m.progress(id, added, errors)
		})
		m.finish(id, res, err)
	}()

	slog.Info("Collection run started", "run_id", id.String(), "target_count", targetCount)
	return *run, nil
}

func (m *Manager) progress(id uuid.UUID, added, errors int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run := m.runs[id]
	run.Added, run.Errors = added, errors
}

func (m *Manager) finish(id uuid.UUID, res Result, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run := m.runs[id]
	finished := m.now().UTC()
	run.FinishedAt = &finished
	if err == nil {
		run.Added, run.Errors = res.Added, res.Errors
	}

	switch {
	case err != nil:
		run.Status = StatusFailed
		run.Error = err.Error()
	case res.Cancelled:
		run.Status = StatusCancelled
		run.Result = &res
	default:
		run.Status = StatusCompleted
		run.Result = &res
	}

	m.active = nil
	m.cancel = nil
	m.setRunning(false)
}

// Get returns a copy of a run's state.
func (m *Manager) Get(id uuid.UUID) (Run, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// Active returns the run in progress, if any.
func (m *Manager) Active() (Run, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return Run{}, false
	}
	return *m.runs[*m.active], true
}

// Stop cancels the active run and waits for every run goroutine to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	m.wg.Wait()
}
