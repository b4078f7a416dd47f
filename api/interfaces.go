package api

import (
	"context"

	"github.com/vibeoracle/bridge-node/bridge"
	"github.com/vibeoracle/bridge-node/ledger"
	"github.com/vibeoracle/bridge-node/store"
)

// StatusProvider reports the engine's progress counters.
type StatusProvider interface {
	Snapshot() bridge.Status
}

// OracleReader reads the live oracle view from the ledger.
type OracleReader interface {
	ReadState(ctx context.Context) (*ledger.OracleView, error)
}

// HistoryStore lists the persisted push and cycle history.
type HistoryStore interface {
	RecentPushes(limit int) ([]store.PushRecord, error)
	RecentCycles(limit int) ([]store.CycleRecord, error)
}
