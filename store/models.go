// Package store contains the GORM-backed SQLite models for the bridge's
// local bookkeeping.
//
// Database structure (database file: bridge.db):
//
//	<home>/data/bridge.db
//	├── push_records   one row per confirmed oracle write
//	└── cycle_records  one row per engine cycle, whatever the outcome
package store

import (
	"gorm.io/gorm"
)

// PushRecord is the audit trail of confirmed oracle writes. Rows are kept
// indefinitely; the record cleaner never touches this table.
type PushRecord struct {
	gorm.Model
	CycleID     string `gorm:"uniqueIndex"` // Cycle that produced the write
	Score       int    // Score submitted on-chain
	Signal      string // Signal at write time, "unknown" when the readback failed
	TxHash      string `gorm:"index"` // Ledger transaction hash
	BlockNumber uint64 // Block that included the write
	GasUsed     uint64 // Gas consumed by the write
}

// CycleRecord captures the outcome of a single engine cycle.
type CycleRecord struct {
	gorm.Model
	CycleID    string `gorm:"uniqueIndex"` // Correlation id, shared with PushRecord on pushes
	Outcome    string `gorm:"index"`       // "pushed", "skipped" or "failed"
	Reason     string // Skip or failure reason, empty on pushes
	Score      *int   // Validated score, nil when fetch or validation failed
	Detail     string `gorm:"type:text"` // Underlying error detail for failures
	DurationMS int64  // Wall-clock cycle duration
}
