package api

import (
	"time"

	"github.com/vibeoracle/bridge-node/bridge"
	"github.com/vibeoracle/bridge-node/store"
)

// Response is the envelope every JSON endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// StatusInfo is the payload of /api/v1/status.
type StatusInfo struct {
	Mode          string        `json:"mode"`
	WriterAddress string        `json:"writer_address,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	Engine        bridge.Status `json:"engine"`
}

// PushView is the JSON shape of a confirmed push.
type PushView struct {
	CycleID     string    `json:"cycle_id"`
	Score       int       `json:"score"`
	Signal      string    `json:"signal"`
	TxHash      string    `json:"tx_hash"`
	BlockNumber uint64    `json:"block_number"`
	GasUsed     uint64    `json:"gas_used"`
	PushedAt    time.Time `json:"pushed_at"`
}

// CycleView is the JSON shape of a recorded cycle outcome.
type CycleView struct {
	CycleID    string    `json:"cycle_id"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	Score      *int      `json:"score,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

func pushView(rec store.PushRecord) PushView {
	return PushView{
		CycleID:     rec.CycleID,
		Score:       rec.Score,
		Signal:      rec.Signal,
		TxHash:      rec.TxHash,
		BlockNumber: rec.BlockNumber,
		GasUsed:     rec.GasUsed,
		PushedAt:    rec.CreatedAt,
	}
}

func cycleView(rec store.CycleRecord) CycleView {
	return CycleView{
		CycleID:    rec.CycleID,
		Outcome:    rec.Outcome,
		Reason:     rec.Reason,
		Score:      rec.Score,
		Detail:     rec.Detail,
		DurationMS: rec.DurationMS,
		At:         rec.CreatedAt,
	}
}
