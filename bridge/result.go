package bridge

import (
	"time"

	"github.com/vibeoracle/bridge-node/ledger"
	"github.com/vibeoracle/bridge-node/oracle"
)

// Outcome is the terminal classification of a cycle.
type Outcome string

const (
	OutcomePushed  Outcome = "pushed"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Skip reasons. A skipped cycle performed zero ledger writes.
const (
	SkipDuplicateScore = "duplicate_score"
	SkipAlreadyOnChain = "already_on_chain"
)

// Failure reasons. fetch_failed and tx_failed count toward the engine's
// consecutive failure streak; validation_failed does not, because bad
// upstream data is not a bridge malfunction.
const (
	FailFetch       = "fetch_failed"
	FailValidation  = "validation_failed"
	FailTransaction = "tx_failed"
)

// Result describes what a single cycle did. Exactly one outcome applies;
// the optional fields are populated according to it.
type Result struct {
	CycleID  string
	Outcome  Outcome
	Reason   string            // skip or failure reason, empty for pushes
	Score    *int              // validated candidate score, nil before validation succeeded
	Signal   oracle.Signal     // emitted signal, pushes only
	Receipt  *ledger.TxReceipt // transaction info, pushes only
	Err      error             // underlying error, failures only
	Duration time.Duration
}

func pushedResult(score int, signal oracle.Signal, receipt *ledger.TxReceipt) Result {
	s := score
	return Result{
		Outcome: OutcomePushed,
		Score:   &s,
		Signal:  signal,
		Receipt: receipt,
	}
}

func skippedResult(reason string, score int) Result {
	s := score
	return Result{
		Outcome: OutcomeSkipped,
		Reason:  reason,
		Score:   &s,
	}
}

func failedResult(reason string, err error) Result {
	return Result{
		Outcome: OutcomeFailed,
		Reason:  reason,
		Err:     err,
	}
}

func failedResultWithScore(reason string, score int, err error) Result {
	res := failedResult(reason, err)
	s := score
	res.Score = &s
	return res
}

// IsPushed reports whether the cycle confirmed a write on the ledger.
func (r Result) IsPushed() bool { return r.Outcome == OutcomePushed }

// IsSkipped reports whether the cycle decided no write was needed.
func (r Result) IsSkipped() bool { return r.Outcome == OutcomeSkipped }

// IsFailed reports whether the cycle ended in an error.
func (r Result) IsFailed() bool { return r.Outcome == OutcomeFailed }

// ErrDetail returns the underlying error text, or "" for non-failures.
func (r Result) ErrDetail() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
