// Package memory provides an in-process ledger that runs the oracle program
// directly, with synthetic receipts. It backs the diagnostic dry-run mode and
// the engine tests; no chain access or signing key is required.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jonboulle/clockwork"

	"github.com/vibeoracle/bridge-node/ledger"
	"github.com/vibeoracle/bridge-node/oracle"
)

// defaultGasUsed approximates the gas cost of a score write on the real
// contract (one storage slot plus two events).
const defaultGasUsed = 48500

// Ledger implements ledger.Client against an in-memory oracle program.
type Ledger struct {
	mu          sync.Mutex
	program     *oracle.Program
	recorder    *oracle.MemoryRecorder
	clock       clockwork.Clock
	writer      string
	blockNumber uint64

	readErr   error
	submitErr error
}

var _ ledger.Client = (*Ledger)(nil)

// New deploys a fresh oracle program owned by writer and wraps it as a
// ledger client. A nil clock uses the real clock.
func New(writer string, clock clockwork.Clock) (*Ledger, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	recorder := oracle.NewMemoryRecorder()
	program, err := oracle.NewProgram(writer, clock, recorder)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		program:  program,
		recorder: recorder,
		clock:    clock,
		writer:   writer,
	}, nil
}

// ReadScore returns the stored score.
func (l *Ledger) ReadScore(ctx context.Context) (int, error) {
	if err := l.injectedReadError(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	score, _ := l.program.Sentiment()
	return score, nil
}

// ReadState returns the full oracle view.
func (l *Ledger) ReadState(ctx context.Context) (*ledger.OracleView, error) {
	if err := l.injectedReadError(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	state := l.program.State()
	bullish, bearish := l.program.Thresholds()
	return &ledger.OracleView{
		Score:            state.Score,
		LastUpdated:      state.LastUpdated,
		IsBullish:        state.IsBullish,
		IsBearish:        state.IsBearish,
		BullishThreshold: bullish,
		BearishThreshold: bearish,
	}, nil
}

// SubmitScore runs the program's write path and mints a synthetic receipt.
// Guard rejections come back as the typed oracle errors, exactly as the EVM
// adapter reports them after decoding revert data.
func (l *Ledger) SubmitScore(ctx context.Context, score int) (*ledger.TxReceipt, error) {
	l.mu.Lock()
	submitErr := l.submitErr
	l.mu.Unlock()
	if submitErr != nil {
		return nil, submitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := l.program.Write(l.writer, score); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.blockNumber++
	block := l.blockNumber
	l.mu.Unlock()

	seed := fmt.Sprintf("%s-%d-%d-%d", l.writer, score, block, l.clock.Now().UnixNano())
	return &ledger.TxReceipt{
		TxHash:      crypto.Keccak256Hash([]byte(seed)).Hex(),
		BlockNumber: block,
		GasUsed:     defaultGasUsed,
		Confirmed:   true,
	}, nil
}

// WriterAddress returns the identity writes are signed as.
func (l *Ledger) WriterAddress() string {
	return l.writer
}

// Close is a no-op for the in-memory ledger.
func (l *Ledger) Close() error {
	return nil
}

// Program exposes the underlying oracle program, letting tests and the
// diagnostic mode drive admin operations directly.
func (l *Ledger) Program() *oracle.Program {
	return l.program
}

// Events returns every event the program has emitted.
func (l *Ledger) Events() []oracle.Event {
	return l.recorder.Events()
}

// SetReadError makes subsequent reads fail with err; nil restores reads.
func (l *Ledger) SetReadError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readErr = err
}

// SetSubmitError makes subsequent submissions fail with err before reaching
// the program; nil restores submissions.
func (l *Ledger) SetSubmitError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submitErr = err
}

func (l *Ledger) injectedReadError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readErr
}
