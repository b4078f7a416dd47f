package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Scheduler drives the engine. Cycles always run inline in a single
// goroutine, so single-flight is a structural property rather than a timer
// assumption: a tick that lands while a cycle is running waits its turn,
// and at most one tick stays queued.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	margin   time.Duration
	clock    clockwork.Clock
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler ticking at interval. margin is the extra
// wait bounded runs add on top of the interval so the oracle's rate limit
// has deterministically expired before the next cycle.
func NewScheduler(engine *Engine, interval, margin time.Duration, clock clockwork.Clock, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if margin < 0 {
		margin = 0
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		engine:   engine,
		interval: interval,
		margin:   margin,
		clock:    clock,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// RunSummary aggregates the outcomes of a bounded run.
type RunSummary struct {
	Cycles  int            `json:"cycles"`
	Pushed  int            `json:"pushed"`
	Skipped int            `json:"skipped"`
	Failed  int            `json:"failed"`
	Reasons map[string]int `json:"reasons,omitempty"`
	Results []Result       `json:"-"`
}

func (s *RunSummary) observe(res Result) {
	s.Cycles++
	switch res.Outcome {
	case OutcomePushed:
		s.Pushed++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
	if res.Reason != "" {
		if s.Reasons == nil {
			s.Reasons = make(map[string]int)
		}
		s.Reasons[res.Reason]++
	}
	s.Results = append(s.Results, res)
}

// RunN executes exactly n cycles, waiting interval+margin between them, and
// returns the summary. Cancelling the context stops the run early; the
// summary then covers the cycles that did complete.
func (s *Scheduler) RunN(ctx context.Context, n int) (*RunSummary, error) {
	if n <= 0 {
		return nil, errors.New("scheduler: cycle count must be positive")
	}

	wait := s.interval + s.margin
	s.logger.Info().
		Int("cycles", n).
		Dur("wait_between", wait).
		Msg("starting bounded run")

	summary := &RunSummary{}
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			s.logSummary(summary, "bounded run cancelled")
			return summary, err
		}

		summary.observe(s.engine.RunCycle(ctx))

		if i < n {
			select {
			case <-ctx.Done():
				s.logSummary(summary, "bounded run cancelled")
				return summary, ctx.Err()
			case <-s.clock.After(wait):
			}
		}
	}

	s.logSummary(summary, "bounded run complete")
	return summary, nil
}

func (s *Scheduler) logSummary(summary *RunSummary, msg string) {
	ev := s.logger.Info().
		Int("cycles", summary.Cycles).
		Int("pushed", summary.Pushed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed)
	for reason, count := range summary.Reasons {
		ev = ev.Int(reason, count)
	}
	ev.Msg(msg)
}

// Start launches the production loop and returns immediately. The first
// cycle runs at once, then the ticker takes over. Safe to call multiple
// times; subsequent calls are no-ops.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if s.engine == nil {
		return errors.New("scheduler: engine must be non-nil")
	}

	s.stopCh = make(chan struct{})
	s.running = true
	s.wg.Add(1)

	go s.run(ctx)
	return nil
}

// Stop signals the loop to exit and waits for the in-flight cycle to
// finish. Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.running = false
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	s.logger.Info().Dur("interval", s.interval).Msg("production loop started")

	s.engine.RunCycle(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("context cancelled, stopping production loop")
			return
		case <-s.stopCh:
			s.logger.Info().Msg("stop requested, stopping production loop")
			return
		case <-ticker.Chan():
			s.engine.RunCycle(ctx)
		}
	}
}
