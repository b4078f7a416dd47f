package db

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vibeoracle/bridge-node/store"
)

// InsertPushRecord persists the audit row for a confirmed oracle write.
func (d *DB) InsertPushRecord(rec *store.PushRecord) error {
	if err := d.client.Create(rec).Error; err != nil {
		return errors.Wrap(err, "failed to insert push record")
	}
	return nil
}

// InsertCycleRecord persists the outcome row for a completed engine cycle.
func (d *DB) InsertCycleRecord(rec *store.CycleRecord) error {
	if err := d.client.Create(rec).Error; err != nil {
		return errors.Wrap(err, "failed to insert cycle record")
	}
	return nil
}

// RecentPushes returns up to limit push records, newest first.
func (d *DB) RecentPushes(limit int) ([]store.PushRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []store.PushRecord
	err := d.client.
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to query push records")
	}
	return records, nil
}

// RecentCycles returns up to limit cycle records, newest first.
func (d *DB) RecentCycles(limit int) ([]store.CycleRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []store.CycleRecord
	err := d.client.
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to query cycle records")
	}
	return records, nil
}

// LastPushRecord returns the most recent confirmed write, or nil when the
// bridge has never pushed.
func (d *DB) LastPushRecord() (*store.PushRecord, error) {
	var rec store.PushRecord
	err := d.client.Order("id DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query last push record")
	}
	return &rec, nil
}

// CycleOutcomeCounts returns the number of recorded cycles per outcome.
func (d *DB) CycleOutcomeCounts() (map[string]int64, error) {
	type row struct {
		Outcome string
		Total   int64
	}
	var rows []row
	err := d.client.
		Model(&store.CycleRecord{}).
		Select("outcome, COUNT(*) as total").
		Group("outcome").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to count cycle outcomes")
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Outcome] = r.Total
	}
	return counts, nil
}

// DeleteOldCycleRecords hard-deletes cycle records created before the
// retention window. Push records are never pruned.
func (d *DB) DeleteOldCycleRecords(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result := d.client.
		Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&store.CycleRecord{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old cycle records")
	}
	return result.RowsAffected, nil
}
