package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeoracle/bridge-node/ledger"
	"github.com/vibeoracle/bridge-node/ledger/memory"
	"github.com/vibeoracle/bridge-node/oracle"
)

// flakyLedger fails the first N state reads, then delegates.
type flakyLedger struct {
	ledger.Client

	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyLedger) ReadState(ctx context.Context) (*ledger.OracleView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("rpc unavailable")
	}
	return f.Client.ReadState(ctx)
}

// anonymousLedger reports no writer identity.
type anonymousLedger struct {
	ledger.Client
}

func (anonymousLedger) WriterAddress() string { return "" }

func TestStartupValidator(t *testing.T) {
	t.Run("passes on a healthy oracle", func(t *testing.T) {
		mem, err := memory.New("0xWriter", nil)
		require.NoError(t, err)

		sv := NewStartupValidator(zerolog.New(zerolog.NewTestWriter(t)), mem)
		res, err := sv.ValidateStartupRequirements(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "0xWriter", res.WriterAddress)
		assert.Equal(t, 0, res.Score)
		assert.Equal(t, oracle.DefaultBullishThreshold, res.BullishThreshold)
		assert.Equal(t, oracle.DefaultBearishThreshold, res.BearishThreshold)
		assert.True(t, res.LastUpdated.IsZero())
	})

	t.Run("retries a failed read before succeeding", func(t *testing.T) {
		mem, err := memory.New("0xWriter", nil)
		require.NoError(t, err)
		flaky := &flakyLedger{Client: mem, failures: 1}

		sv := NewStartupValidator(zerolog.New(zerolog.NewTestWriter(t)), flaky)
		sv.retryDelay = 0

		res, err := sv.ValidateStartupRequirements(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "0xWriter", res.WriterAddress)
		assert.Equal(t, 2, flaky.calls)
	})

	t.Run("gives up after all retries", func(t *testing.T) {
		mem, err := memory.New("0xWriter", nil)
		require.NoError(t, err)
		mem.SetReadError(errors.New("rpc unavailable"))

		sv := NewStartupValidator(zerolog.Nop(), mem)
		sv.retryDelay = 0

		res, err := sv.ValidateStartupRequirements(context.Background())
		require.Error(t, err)
		assert.Nil(t, res)
		assert.Contains(t, err.Error(), "oracle state validation failed")
		assert.Contains(t, err.Error(), "failed after all retries")
		assert.Contains(t, err.Error(), "rpc unavailable")
	})

	t.Run("rejects a ledger with no writer identity", func(t *testing.T) {
		mem, err := memory.New("0xWriter", nil)
		require.NoError(t, err)

		sv := NewStartupValidator(zerolog.Nop(), anonymousLedger{Client: mem})
		res, err := sv.ValidateStartupRequirements(context.Background())
		require.Error(t, err)
		assert.Nil(t, res)
		assert.Contains(t, err.Error(), "no writer identity")
	})

	t.Run("stops retrying when the context is cancelled", func(t *testing.T) {
		mem, err := memory.New("0xWriter", nil)
		require.NoError(t, err)
		mem.SetReadError(errors.New("rpc unavailable"))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		sv := NewStartupValidator(zerolog.Nop(), mem)
		_, err = sv.ValidateStartupRequirements(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
