package save

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler coalesces bursts of save requests into one debounced save. The
// editing layer calls Schedule after every edit; the scheduler keeps a single
// pending slot and resets the timer on each call, so a burst of edits costs
// one save. Dirty flags are consumed only when the save reports a write, so a
// failed or empty save leaves them intact for the next attempt.
type Scheduler struct {
	orchestrator *Orchestrator
	state        *DirtyState
	delay        time.Duration
	logger       *zap.Logger

	// context supplies the active view and manifest at save time, not at
	// schedule time, so a package switch between edits and the timer firing
	// saves the right context.
	context func() Request

	mu       sync.Mutex
	timer    *time.Timer
	force    bool
	onResult func(wrote bool, err error)
}

// NewScheduler creates a debounced save scheduler. context must return the
// active view and manifest; the scheduler fills in the snapshot and force
// flag itself.
func NewScheduler(orchestrator *Orchestrator, state *DirtyState, delay time.Duration, context func() Request, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		orchestrator: orchestrator,
		state:        state,
		delay:        delay,
		logger:       logger,
		context:      context,
	}
}

// SetOnResult registers a callback invoked after every save the scheduler
// runs, whether the debounce timer fired or Flush forced it.
func (s *Scheduler) SetOnResult(fn func(wrote bool, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResult = fn
}

// Schedule arms (or re-arms) the debounce timer. A forced request stays
// forced even if later non-forced requests coalesce into it.
func (s *Scheduler) Schedule(force bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.force = s.force || force
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

// Flush cancels any pending timer and saves immediately.
func (s *Scheduler) Flush() (bool, error) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	force := s.force
	s.force = false
	s.mu.Unlock()

	return s.save(force)
}

// Stop cancels any pending save without running it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.force = false
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	s.timer = nil
	force := s.force
	s.force = false
	s.mu.Unlock()

	if _, err := s.save(force); err != nil {
		s.logger.Error("debounced save failed", zap.Error(err))
	}
}

// save runs one save and notifies the result listener. Both the debounce
// timer and an explicit Flush land here, so the listener sees every save.
func (s *Scheduler) save(force bool) (bool, error) {
	req := s.context()
	req.Snapshot = s.state.Snapshot()
	req.ForceFull = force

	wrote, err := s.orchestrator.Save(req)
	if err == nil && wrote {
		s.state.Consume(req.Snapshot)
	}

	s.mu.Lock()
	onResult := s.onResult
	s.mu.Unlock()
	if onResult != nil {
		onResult(wrote, err)
	}
	return wrote, err
}
