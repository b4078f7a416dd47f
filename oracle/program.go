// Package oracle implements the sentiment oracle's on-chain state machine: a
// single guarded score slot with writer authorization, bounds checking, rate
// limiting, replay protection, and signal classification. ledger/memory runs
// it in-process; ledger/evm talks to the deployed contract carrying the same
// semantics.
package oracle

import (
	"strconv"
	"sync"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"github.com/jonboulle/clockwork"
)

// Score bounds enforced on every write.
const (
	MinScore = -100
	MaxScore = 100
)

// Defaults applied at deployment.
const (
	DefaultBullishThreshold  = 60
	DefaultBearishThreshold  = -60
	DefaultMinUpdateInterval = 60 * time.Second
)

// Program is the oracle state machine. A single instance exists per
// deployment; it is Active from construction on and every mutation is a
// guarded transition on the same state. All methods are safe for concurrent
// use; writes are serialized the way the ledger itself would serialize them.
type Program struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	recorder EventRecorder

	score             int
	lastUpdated       time.Time
	lastWriteAt       time.Time
	writer            string
	bullishThreshold  int
	bearishThreshold  int
	minUpdateInterval time.Duration
}

// NewProgram deploys a program instance with the default thresholds and
// update interval, owned by the given writer identity. A nil clock uses the
// real clock; a nil recorder drops events.
func NewProgram(writer string, clock clockwork.Clock, recorder EventRecorder) (*Program, error) {
	if writer == "" {
		return nil, sdkerrors.Wrap(ErrInvalidWriter, "writer identity must not be empty")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Program{
		clock:             clock,
		recorder:          recorder,
		writer:            writer,
		bullishThreshold:  DefaultBullishThreshold,
		bearishThreshold:  DefaultBearishThreshold,
		minUpdateInterval: DefaultMinUpdateInterval,
	}, nil
}

// Write stores a proposed score. Guards run in a fixed order: authorization,
// bounds, rate limit, replay protection. On success it emits the update event
// followed by exactly one signal event classified with the thresholds as
// configured at this moment, and returns that signal.
func (p *Program) Write(caller string, proposed int) (Signal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.writer {
		return "", sdkerrors.Wrapf(ErrNotAuthorized, "caller %s is not the oracle writer", caller)
	}
	if proposed < MinScore || proposed > MaxScore {
		return "", sdkerrors.Wrapf(ErrScoreOutOfRange, "score %d outside [%d, %d]", proposed, MinScore, MaxScore)
	}
	now := p.clock.Now()
	if !p.lastWriteAt.IsZero() {
		if elapsed := now.Sub(p.lastWriteAt); elapsed < p.minUpdateInterval {
			return "", sdkerrors.Wrapf(ErrUpdateTooFrequent,
				"only %s elapsed since last write, minimum is %s", elapsed, p.minUpdateInterval)
		}
	}
	if proposed == p.score {
		return "", sdkerrors.Wrapf(ErrDuplicateScore, "score %d is already stored", proposed)
	}

	p.score = proposed
	p.lastUpdated = now
	p.lastWriteAt = now

	p.emit(now, NewEvent(EventTypeSentimentUpdated,
		NewAttribute("score", strconv.Itoa(proposed)),
		NewAttribute("timestamp", now.UTC().Format(time.RFC3339)),
		NewAttribute("writer", p.writer),
	))

	signal := Classify(proposed, p.bullishThreshold, p.bearishThreshold)
	switch signal {
	case SignalBullish:
		p.emit(now, NewEvent(EventTypeBullishSignal,
			NewAttribute("score", strconv.Itoa(proposed)),
			NewAttribute("threshold", strconv.Itoa(p.bullishThreshold)),
		))
	case SignalBearish:
		p.emit(now, NewEvent(EventTypeBearishSignal,
			NewAttribute("score", strconv.Itoa(proposed)),
			NewAttribute("threshold", strconv.Itoa(p.bearishThreshold)),
		))
	default:
		p.emit(now, NewEvent(EventTypeNeutralSignal,
			NewAttribute("score", strconv.Itoa(proposed)),
		))
	}

	return signal, nil
}

// SetThresholds replaces the signal boundaries. The bullish threshold must
// exceed the bearish one and both must lie within the score bounds.
func (p *Program) SetThresholds(caller string, bullish, bearish int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.writer {
		return sdkerrors.Wrapf(ErrNotAuthorized, "caller %s is not the oracle writer", caller)
	}
	if bullish <= bearish {
		return sdkerrors.Wrapf(ErrInvalidThresholds,
			"bullish threshold %d must exceed bearish threshold %d", bullish, bearish)
	}
	if bullish > MaxScore || bullish < MinScore || bearish > MaxScore || bearish < MinScore {
		return sdkerrors.Wrapf(ErrInvalidThresholds,
			"thresholds (%d, %d) must lie within [%d, %d]", bullish, bearish, MinScore, MaxScore)
	}

	p.bullishThreshold = bullish
	p.bearishThreshold = bearish

	p.emit(p.clock.Now(), NewEvent(EventTypeThresholdsChanged,
		NewAttribute("bullish", strconv.Itoa(bullish)),
		NewAttribute("bearish", strconv.Itoa(bearish)),
	))
	return nil
}

// SetUpdateInterval replaces the minimum time between writes. Negative
// durations are rejected; beyond that no bound is enforced, so zero disables
// rate limiting and a very large value locks out future writes.
func (p *Program) SetUpdateInterval(caller string, interval time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.writer {
		return sdkerrors.Wrapf(ErrNotAuthorized, "caller %s is not the oracle writer", caller)
	}
	if interval < 0 {
		return sdkerrors.Wrapf(ErrInvalidInterval, "interval %s must not be negative", interval)
	}

	p.minUpdateInterval = interval

	p.emit(p.clock.Now(), NewEvent(EventTypeIntervalChanged,
		NewAttribute("interval", interval.String()),
	))
	return nil
}

// TransferWriter hands ownership to a new writer identity. Only the current
// writer may transfer, and only to a non-empty identity.
func (p *Program) TransferWriter(caller, newWriter string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.writer {
		return sdkerrors.Wrapf(ErrNotAuthorized, "caller %s is not the oracle writer", caller)
	}
	if newWriter == "" {
		return sdkerrors.Wrap(ErrInvalidWriter, "writer identity must not be empty")
	}

	previous := p.writer
	p.writer = newWriter

	p.emit(p.clock.Now(), NewEvent(EventTypeWriterChanged,
		NewAttribute("previous", previous),
		NewAttribute("new", newWriter),
	))
	return nil
}

// StateView is the combined read view of the program.
type StateView struct {
	Score       int
	LastUpdated time.Time
	IsBullish   bool
	IsBearish   bool
}

// Sentiment returns the stored score and when it was last updated.
func (p *Program) Sentiment() (int, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.score, p.lastUpdated
}

// State returns the stored score with classification flags computed live
// against the currently configured thresholds. When thresholds changed after
// the last write, these flags can disagree with the signal event emitted at
// write time; that discrepancy is part of the contract's behavior.
func (p *Program) State() StateView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return StateView{
		Score:       p.score,
		LastUpdated: p.lastUpdated,
		IsBullish:   p.score >= p.bullishThreshold,
		IsBearish:   p.score <= p.bearishThreshold,
	}
}

// Thresholds returns the current signal boundaries.
func (p *Program) Thresholds() (bullish, bearish int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bullishThreshold, p.bearishThreshold
}

// UpdateInterval returns the current minimum time between writes.
func (p *Program) UpdateInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.minUpdateInterval
}

// Writer returns the current writer identity.
func (p *Program) Writer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writer
}

func (p *Program) emit(at time.Time, e Event) {
	e.At = at
	p.recorder.Emit(e)
}
