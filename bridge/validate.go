package bridge

import (
	"fmt"
	"math"

	"github.com/vibeoracle/bridge-node/oracle"
	"github.com/vibeoracle/bridge-node/source"
)

// Writable score range, mirroring the oracle's own bounds so invalid data
// is rejected before it costs a transaction.
const (
	MinWritableScore = oracle.MinScore
	MaxWritableScore = oracle.MaxScore
)

// ValidateReading checks a raw reading against the oracle's contract and
// returns the rounded candidate score. The returned slice lists every rule
// the reading violated; it is empty exactly when the reading is writable.
// minPostCount of zero or less disables the sample-size floor.
func ValidateReading(reading *source.Reading, minPostCount int) (int, []string) {
	var reasons []string

	if reading == nil {
		return 0, []string{"reading is missing"}
	}

	if reading.SmoothedScore == nil {
		return 0, []string{"smoothed score is missing"}
	}

	raw := *reading.SmoothedScore
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, []string{"smoothed score is not a finite number"}
	}

	score := int(math.Round(raw))
	if score < MinWritableScore || score > MaxWritableScore {
		reasons = append(reasons, fmt.Sprintf("score %d outside [%d, %d]",
			score, MinWritableScore, MaxWritableScore))
	}

	if minPostCount > 0 && reading.PostCount != nil && *reading.PostCount < minPostCount {
		reasons = append(reasons, fmt.Sprintf("post count %d below floor %d",
			*reading.PostCount, minPostCount))
	}

	return score, reasons
}
