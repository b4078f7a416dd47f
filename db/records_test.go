package db

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeoracle/bridge-node/store"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := OpenInMemoryDB(true)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, database.Close())
	})
	return database
}

func intPtr(v int) *int { return &v }

func TestPushRecords(t *testing.T) {
	database := openTestDB(t)

	t.Run("last push on empty table is nil", func(t *testing.T) {
		rec, err := database.LastPushRecord()
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("insert and read back", func(t *testing.T) {
		err := database.InsertPushRecord(&store.PushRecord{
			CycleID:     "cycle-1",
			Score:       72,
			Signal:      "bullish",
			TxHash:      "0xabc",
			BlockNumber: 120,
			GasUsed:     48500,
		})
		require.NoError(t, err)

		rec, err := database.LastPushRecord()
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, 72, rec.Score)
		assert.Equal(t, "bullish", rec.Signal)
		assert.Equal(t, uint64(120), rec.BlockNumber)
	})

	t.Run("duplicate cycle id is rejected", func(t *testing.T) {
		err := database.InsertPushRecord(&store.PushRecord{
			CycleID: "cycle-1",
			Score:   73,
		})
		require.Error(t, err)
	})

	t.Run("recent pushes newest first with limit", func(t *testing.T) {
		for i := 2; i <= 6; i++ {
			err := database.InsertPushRecord(&store.PushRecord{
				CycleID: fmt.Sprintf("cycle-%d", i),
				Score:   60 + i,
				Signal:  "bullish",
			})
			require.NoError(t, err)
		}

		records, err := database.RecentPushes(3)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "cycle-6", records[0].CycleID)
		assert.Equal(t, "cycle-5", records[1].CycleID)
		assert.Equal(t, "cycle-4", records[2].CycleID)
	})

	t.Run("non-positive limit falls back to default", func(t *testing.T) {
		records, err := database.RecentPushes(0)
		require.NoError(t, err)
		assert.Len(t, records, 6)
	})
}

func TestCycleRecords(t *testing.T) {
	database := openTestDB(t)

	outcomes := []store.CycleRecord{
		{CycleID: "c-1", Outcome: "pushed", Score: intPtr(72), DurationMS: 310},
		{CycleID: "c-2", Outcome: "skipped", Reason: "duplicate_score", Score: intPtr(72)},
		{CycleID: "c-3", Outcome: "failed", Reason: "fetch_failed", Detail: "connection refused"},
		{CycleID: "c-4", Outcome: "skipped", Reason: "already_on_chain", Score: intPtr(68)},
	}
	for i := range outcomes {
		require.NoError(t, database.InsertCycleRecord(&outcomes[i]))
	}

	t.Run("recent cycles newest first", func(t *testing.T) {
		records, err := database.RecentCycles(2)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "c-4", records[0].CycleID)
		assert.Equal(t, "c-3", records[1].CycleID)
	})

	t.Run("outcome counts grouped", func(t *testing.T) {
		counts, err := database.CycleOutcomeCounts()
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts["pushed"])
		assert.Equal(t, int64(2), counts["skipped"])
		assert.Equal(t, int64(1), counts["failed"])
	})

	t.Run("nil score round trips", func(t *testing.T) {
		records, err := database.RecentCycles(10)
		require.NoError(t, err)
		var failed *store.CycleRecord
		for i := range records {
			if records[i].CycleID == "c-3" {
				failed = &records[i]
			}
		}
		require.NotNil(t, failed)
		assert.Nil(t, failed.Score)
		assert.Equal(t, "connection refused", failed.Detail)
	})
}

func TestDeleteOldCycleRecords(t *testing.T) {
	database := openTestDB(t)

	old := store.CycleRecord{CycleID: "old-1", Outcome: "skipped", Reason: "duplicate_score"}
	require.NoError(t, database.InsertCycleRecord(&old))
	// Age the row past the retention window.
	err := database.Client().
		Model(&store.CycleRecord{}).
		Where("cycle_id = ?", "old-1").
		Update("created_at", time.Now().Add(-48*time.Hour)).Error
	require.NoError(t, err)

	fresh := store.CycleRecord{CycleID: "fresh-1", Outcome: "pushed", Score: intPtr(50)}
	require.NoError(t, database.InsertCycleRecord(&fresh))

	deleted, err := database.DeleteOldCycleRecords(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	records, err := database.RecentCycles(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fresh-1", records[0].CycleID)

	t.Run("push records survive pruning", func(t *testing.T) {
		require.NoError(t, database.InsertPushRecord(&store.PushRecord{
			CycleID: "old-push",
			Score:   10,
		}))
		err := database.Client().
			Model(&store.PushRecord{}).
			Where("cycle_id = ?", "old-push").
			Update("created_at", time.Now().Add(-30*24*time.Hour)).Error
		require.NoError(t, err)

		_, err = database.DeleteOldCycleRecords(24 * time.Hour)
		require.NoError(t, err)

		rec, err := database.LastPushRecord()
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "old-push", rec.CycleID)
	})
}
