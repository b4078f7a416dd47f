package source

import (
	"time"
)

// Reading is one scoring-source response. Numeric fields are pointers so a
// missing field is distinguishable from a zero value; validation downstream
// depends on that distinction.
type Reading struct {
	RawScore             *float64 `json:"raw_score"`
	SmoothedScore        *float64 `json:"smoothed_score"`
	PostCount            *int     `json:"post_count"`
	PositiveCount        *int     `json:"positive_count"`
	NegativeCount        *int     `json:"negative_count"`
	LastUpdatedTimestamp string   `json:"last_updated_timestamp"`

	// SampledAt is when the bridge fetched this reading. Readings are
	// produced fresh each cycle and never persisted.
	SampledAt time.Time `json:"-"`
}

// timestampLayouts covers the source's ISO-8601 output with and without a
// timezone designator.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParsedTimestamp parses the source's last-updated timestamp. Naive
// timestamps are interpreted as UTC.
func (r *Reading) ParsedTimestamp() (time.Time, bool) {
	if r.LastUpdatedTimestamp == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, r.LastUpdatedTimestamp); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
