package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vibeoracle/bridge-node/ledger"
)

// StartupValidationResult contains the oracle state observed at boot.
type StartupValidationResult struct {
	WriterAddress    string
	Score            int
	LastUpdated      time.Time
	BullishThreshold int
	BearishThreshold int
}

// StartupValidator validates startup requirements
type StartupValidator struct {
	log    zerolog.Logger
	ledger ledger.Client

	// Per-attempt read timeouts; a failed attempt escalates to the next.
	timeouts   []time.Duration
	retryDelay time.Duration
}

// NewStartupValidator creates a new startup validator
func NewStartupValidator(log zerolog.Logger, ledgerClient ledger.Client) *StartupValidator {
	return &StartupValidator{
		log:        log.With().Str("component", "startup_validator").Logger(),
		ledger:     ledgerClient,
		timeouts:   []time.Duration{15 * time.Second, 30 * time.Second},
		retryDelay: 2 * time.Second,
	}
}

// ValidateStartupRequirements confirms the writer identity and that the
// oracle contract is reachable and readable before cycles begin.
func (sv *StartupValidator) ValidateStartupRequirements(ctx context.Context) (*StartupValidationResult, error) {
	sv.log.Info().Msg("🔍 Validating startup requirements")

	writer := sv.ledger.WriterAddress()
	if writer == "" {
		return nil, fmt.Errorf("ledger reports no writer identity")
	}

	sv.log.Info().
		Str("writer_address", writer).
		Msg("Using configured writer identity")

	view, err := sv.readOracleState(ctx)
	if err != nil {
		return nil, fmt.Errorf("oracle state validation failed: %w", err)
	}

	sv.log.Info().
		Str("writer_address", writer).
		Int("score", view.Score).
		Int("bullish_threshold", view.BullishThreshold).
		Int("bearish_threshold", view.BearishThreshold).
		Time("last_updated", view.LastUpdated).
		Msg("✅ Oracle state validated")

	return &StartupValidationResult{
		WriterAddress:    writer,
		Score:            view.Score,
		LastUpdated:      view.LastUpdated,
		BullishThreshold: view.BullishThreshold,
		BearishThreshold: view.BearishThreshold,
	}, nil
}

// readOracleState reads the full oracle state, retrying once with a longer
// timeout before giving up.
func (sv *StartupValidator) readOracleState(ctx context.Context) (*ledger.OracleView, error) {
	var lastErr error

	for attempt, timeout := range sv.timeouts {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		view, err := sv.ledger.ReadState(callCtx)
		cancel()

		if err == nil {
			return view, nil
		}
		lastErr = err

		if attempt < len(sv.timeouts)-1 {
			sv.log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Dur("timeout", timeout).
				Msg("Oracle read failed, retrying...")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(sv.retryDelay):
			}
		}
	}

	return nil, fmt.Errorf("failed after all retries: %w", lastErr)
}
