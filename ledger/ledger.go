// Package ledger defines the adapter boundary between the bridge engine and
// the chain holding the oracle program. Implementations hide transaction
// signing and confirmation waiting; guard rejections surface as the typed
// oracle errors so callers can match them with errors.Is.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/vibeoracle/bridge-node/oracle"
)

// OracleView is a point-in-time read of the oracle program's state. The
// bullish/bearish flags are computed by the program against its currently
// configured thresholds, not the thresholds in effect when the score was
// written.
type OracleView struct {
	Score            int       `json:"score"`
	LastUpdated      time.Time `json:"last_updated"`
	IsBullish        bool      `json:"is_bullish"`
	IsBearish        bool      `json:"is_bearish"`
	BullishThreshold int       `json:"bullish_threshold"`
	BearishThreshold int       `json:"bearish_threshold"`
}

// TxReceipt describes a confirmed score submission.
type TxReceipt struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
	Confirmed   bool   `json:"confirmed"`
}

// Client performs read and write calls against the oracle program.
type Client interface {
	// ReadScore returns the currently stored score.
	ReadScore(ctx context.Context) (int, error)

	// ReadState returns the full oracle view.
	ReadState(ctx context.Context) (*OracleView, error)

	// SubmitScore signs, submits, and awaits confirmation of a score write.
	// A rejection by an on-chain guard is returned as the matching typed
	// oracle error; the receipt is nil unless the write confirmed.
	SubmitScore(ctx context.Context, score int) (*TxReceipt, error)

	// WriterAddress returns the identity the client signs with.
	WriterAddress() string

	// Close releases underlying connections.
	Close() error
}

// guardErrors lists every rejection the oracle program's write path can
// produce, in guard order.
var guardErrors = []error{
	oracle.ErrNotAuthorized,
	oracle.ErrScoreOutOfRange,
	oracle.ErrUpdateTooFrequent,
	oracle.ErrDuplicateScore,
	oracle.ErrInvalidThresholds,
	oracle.ErrInvalidWriter,
	oracle.ErrInvalidInterval,
}

// IsGuardRejection reports whether err is a rejection by an on-chain guard
// rather than a transport or confirmation failure. Guard rejections are
// deterministic: resubmitting the same score cannot succeed until the chain
// state changes.
func IsGuardRejection(err error) bool {
	for _, guard := range guardErrors {
		if errors.Is(err, guard) {
			return true
		}
	}
	return false
}
