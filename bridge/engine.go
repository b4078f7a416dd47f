// Package bridge contains the decision engine that moves sentiment scores
// from the scoring source onto the oracle ledger, and the scheduler that
// drives it. One cycle is one fetch-validate-decide-push pass; the engine
// never runs two cycles concurrently.
package bridge

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/vibeoracle/bridge-node/db"
	"github.com/vibeoracle/bridge-node/ledger"
	"github.com/vibeoracle/bridge-node/metrics"
	"github.com/vibeoracle/bridge-node/oracle"
	"github.com/vibeoracle/bridge-node/retry"
	"github.com/vibeoracle/bridge-node/source"
	"github.com/vibeoracle/bridge-node/store"
)

// ScoreSource fetches one sentiment reading from the scoring service.
type ScoreSource interface {
	Fetch(ctx context.Context) (*source.Reading, error)
}

// Options configures an Engine. Source and Ledger are required; everything
// else has a sensible default.
type Options struct {
	Source ScoreSource
	Ledger ledger.Client

	// Database is optional bookkeeping. A nil database disables push and
	// cycle records without affecting decisions.
	Database *db.DB

	// FetchPolicy governs retries of the scoring source fetch. Zero value
	// means retry.DefaultPolicy.
	FetchPolicy retry.Policy

	// MinPostCount is the sample-size floor; zero or less disables it.
	MinPostCount int

	// ReadTimeout bounds reconciliation and readback ledger calls.
	ReadTimeout time.Duration
	// WriteTimeout bounds a score submission including confirmation wait.
	WriteTimeout time.Duration

	Clock  clockwork.Clock
	Logger zerolog.Logger
}

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 90 * time.Second
)

// Engine owns the per-cycle decision state: the last score it confirmed
// on-chain, the cycle counter and the failure streak. The state lives in
// memory only; a restarted engine reconciles against the ledger instead of
// trusting any local copy.
type Engine struct {
	src     ScoreSource
	ledger  ledger.Client
	db      *db.DB
	fetcher *retry.Runner
	clock   clockwork.Clock
	log     zerolog.Logger

	minPostCount int
	readTimeout  time.Duration
	writeTimeout time.Duration

	mu                  sync.Mutex
	lastPushedScore     *int
	cycleCount          uint64
	consecutiveFailures uint64
	lastResult          *Result
}

// NewEngine validates the options and builds an engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Source == nil {
		return nil, errors.New("engine: score source is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("engine: ledger client is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	policy := opts.FetchPolicy
	if policy.MaxAttempts == 0 && policy.Backoff == nil {
		policy = retry.DefaultPolicy()
	}
	if policy.Clock == nil {
		policy.Clock = clock
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	log := opts.Logger.With().Str("component", "engine").Logger()

	return &Engine{
		src:          opts.Source,
		ledger:       opts.Ledger,
		db:           opts.Database,
		fetcher:      retry.NewRunner(policy, log),
		clock:        clock,
		log:          log,
		minPostCount: opts.MinPostCount,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}, nil
}

// RunCycle executes one complete bridge cycle and reports what happened.
// Callers must not invoke it concurrently; the scheduler runs cycles inline
// for exactly that reason.
func (e *Engine) RunCycle(ctx context.Context) Result {
	start := e.clock.Now()
	cycleID := uuid.NewString()

	e.mu.Lock()
	e.cycleCount++
	cycle := e.cycleCount
	e.mu.Unlock()

	log := e.log.With().
		Str("cycle_id", cycleID).
		Uint64("cycle", cycle).
		Logger()
	log.Debug().Msg("cycle started")

	res := e.runCycle(ctx, log)
	res.CycleID = cycleID
	res.Duration = e.clock.Since(start)

	e.finishCycle(&res, log)
	return res
}

func (e *Engine) runCycle(ctx context.Context, log zerolog.Logger) Result {
	// Step 1: fetch, retrying transient source errors.
	reading, err := e.fetchReading(ctx)
	if err != nil {
		e.bumpFailureStreak()
		log.Error().Err(err).Msg("fetch failed after retries")
		return failedResult(FailFetch, err)
	}

	// Step 2: validate against the oracle's contract.
	score, violations := ValidateReading(reading, e.minPostCount)
	if len(violations) > 0 {
		err := errors.Errorf("reading rejected: %s", strings.Join(violations, "; "))
		log.Warn().Strs("violations", violations).Msg("validation failed")
		return failedResult(FailValidation, err)
	}
	if ts, ok := reading.ParsedTimestamp(); ok {
		log.Debug().Int("score", score).Time("source_updated", ts).Msg("reading validated")
	}

	// Step 3: the engine's own duplicate check.
	e.mu.Lock()
	last := e.lastPushedScore
	e.mu.Unlock()
	if last != nil && *last == score {
		log.Info().Int("score", score).Msg("score unchanged since last push, skipping")
		return skippedResult(SkipDuplicateScore, score)
	}

	// Step 4: reconcile against the ledger. A failed read is logged and the
	// cycle proceeds to write; the write path has its own guards.
	readCtx, cancel := context.WithTimeout(ctx, e.readTimeout)
	onChain, err := e.ledger.ReadScore(readCtx)
	cancel()
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("reconciliation read failed, proceeding to write")
	case onChain == score:
		e.mu.Lock()
		s := score
		e.lastPushedScore = &s
		e.mu.Unlock()
		log.Info().Int("score", score).Msg("score already on chain, cache resynced")
		return skippedResult(SkipAlreadyOnChain, score)
	}

	// Step 5: push. The submission context is detached from the caller so a
	// shutdown never abandons an in-flight write; only the timeout bounds it.
	writeCtx, cancelWrite := context.WithTimeout(context.WithoutCancel(ctx), e.writeTimeout)
	receipt, err := e.ledger.SubmitScore(writeCtx, score)
	cancelWrite()
	if err != nil {
		e.bumpFailureStreak()
		if ledger.IsGuardRejection(err) {
			log.Warn().Err(err).Int("score", score).Msg("ledger guard rejected write")
		} else {
			log.Error().Err(err).Int("score", score).Msg("score submission failed")
		}
		return failedResultWithScore(FailTransaction, score, err)
	}

	// Confirmed. Resync the cache and classify the signal from the fresh
	// ledger state; a failed readback downgrades the signal to unknown but
	// the push itself stands.
	e.mu.Lock()
	s := score
	e.lastPushedScore = &s
	e.consecutiveFailures = 0
	e.mu.Unlock()

	signal := e.classifySignal(ctx, score, log)
	log.Info().
		Int("score", score).
		Str("signal", string(signal)).
		Str("tx_hash", receipt.TxHash).
		Uint64("block", receipt.BlockNumber).
		Msg("score pushed")
	return pushedResult(score, signal, receipt)
}

func (e *Engine) fetchReading(ctx context.Context) (*source.Reading, error) {
	var reading *source.Reading
	err := e.fetcher.Execute(ctx, "fetch sentiment reading", func() error {
		r, err := e.src.Fetch(ctx)
		if err != nil {
			metrics.FetchAttemptsTotal.WithLabelValues("error").Inc()
			return err
		}
		metrics.FetchAttemptsTotal.WithLabelValues("ok").Inc()
		reading = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reading, nil
}

func (e *Engine) classifySignal(ctx context.Context, score int, log zerolog.Logger) oracle.Signal {
	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.readTimeout)
	defer cancel()

	view, err := e.ledger.ReadState(readCtx)
	if err != nil {
		log.Warn().Err(err).Msg("state readback failed, signal unknown")
		return oracle.SignalUnknown
	}
	return oracle.Classify(score, view.BullishThreshold, view.BearishThreshold)
}

func (e *Engine) bumpFailureStreak() {
	e.mu.Lock()
	e.consecutiveFailures++
	e.mu.Unlock()
}

// finishCycle updates metrics, bookkeeping rows and the status snapshot.
// Bookkeeping failures are logged and swallowed; they never change a result.
func (e *Engine) finishCycle(res *Result, log zerolog.Logger) {
	e.mu.Lock()
	streak := e.consecutiveFailures
	e.lastResult = res
	e.mu.Unlock()

	metrics.CyclesTotal.WithLabelValues(string(res.Outcome), res.Reason).Inc()
	metrics.CycleDuration.Observe(res.Duration.Seconds())
	metrics.ConsecutiveFailures.Set(float64(streak))
	if res.IsPushed() {
		metrics.PushesTotal.WithLabelValues(string(res.Signal)).Inc()
		metrics.LastPushedScore.Set(float64(*res.Score))
	}

	if e.db == nil {
		return
	}

	rec := &store.CycleRecord{
		CycleID:    res.CycleID,
		Outcome:    string(res.Outcome),
		Reason:     res.Reason,
		Score:      res.Score,
		Detail:     res.ErrDetail(),
		DurationMS: res.Duration.Milliseconds(),
	}
	if err := e.db.InsertCycleRecord(rec); err != nil {
		log.Warn().Err(err).Msg("failed to record cycle")
	}

	if res.IsPushed() {
		push := &store.PushRecord{
			CycleID:     res.CycleID,
			Score:       *res.Score,
			Signal:      string(res.Signal),
			TxHash:      res.Receipt.TxHash,
			BlockNumber: res.Receipt.BlockNumber,
			GasUsed:     res.Receipt.GasUsed,
		}
		if err := e.db.InsertPushRecord(push); err != nil {
			log.Warn().Err(err).Msg("failed to record push")
		}
	}
}

// Status is a point-in-time snapshot of the engine's internal state.
type Status struct {
	CycleCount          uint64 `json:"cycle_count"`
	ConsecutiveFailures uint64 `json:"consecutive_failures"`
	LastPushedScore     *int   `json:"last_pushed_score"`
	LastOutcome         string `json:"last_outcome,omitempty"`
	LastReason          string `json:"last_reason,omitempty"`
	LastCycleID         string `json:"last_cycle_id,omitempty"`
	LastDurationMS      int64  `json:"last_duration_ms,omitempty"`
	LastSignal          string `json:"last_signal,omitempty"`
}

// Snapshot returns the engine state for the status endpoint.
func (e *Engine) Snapshot() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		CycleCount:          e.cycleCount,
		ConsecutiveFailures: e.consecutiveFailures,
	}
	if e.lastPushedScore != nil {
		s := *e.lastPushedScore
		st.LastPushedScore = &s
	}
	if e.lastResult != nil {
		st.LastOutcome = string(e.lastResult.Outcome)
		st.LastReason = e.lastResult.Reason
		st.LastCycleID = e.lastResult.CycleID
		st.LastDurationMS = e.lastResult.Duration.Milliseconds()
		st.LastSignal = string(e.lastResult.Signal)
	}
	return st
}
