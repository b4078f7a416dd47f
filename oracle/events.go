package oracle

import (
	"sync"
	"time"
)

// Event types emitted by the oracle program.
const (
	EventTypeSentimentUpdated  = "sentiment_updated"
	EventTypeBullishSignal     = "bullish_signal"
	EventTypeBearishSignal     = "bearish_signal"
	EventTypeNeutralSignal     = "neutral_signal"
	EventTypeWriterChanged     = "writer_changed"
	EventTypeThresholdsChanged = "thresholds_changed"
	EventTypeIntervalChanged   = "interval_changed"
)

// Signal is the classification attached to a stored score.
type Signal string

const (
	SignalBullish Signal = "bullish"
	SignalBearish Signal = "bearish"
	SignalNeutral Signal = "neutral"

	// SignalUnknown is reported by callers that could not determine the
	// classification, e.g. when a post-write read back fails. The program
	// itself never emits it.
	SignalUnknown Signal = "unknown"
)

// EventType returns the signal event type for s, or "" for SignalUnknown.
func (s Signal) EventType() string {
	switch s {
	case SignalBullish:
		return EventTypeBullishSignal
	case SignalBearish:
		return EventTypeBearishSignal
	case SignalNeutral:
		return EventTypeNeutralSignal
	default:
		return ""
	}
}

// Classify maps a score onto exactly one signal given a threshold pair.
func Classify(score, bullishThreshold, bearishThreshold int) Signal {
	switch {
	case score >= bullishThreshold:
		return SignalBullish
	case score <= bearishThreshold:
		return SignalBearish
	default:
		return SignalNeutral
	}
}

// Attribute is a single key/value pair attached to an event.
type Attribute struct {
	Key   string
	Value string
}

// NewAttribute creates an event attribute.
func NewAttribute(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Event is a record of a state transition observed on the program.
type Event struct {
	Type       string
	Attributes []Attribute
	At         time.Time
}

// NewEvent creates an event of the given type with attributes.
func NewEvent(eventType string, attrs ...Attribute) Event {
	return Event{Type: eventType, Attributes: attrs}
}

// Attr returns the value for key, or "" when absent.
func (e Event) Attr(key string) string {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// EventRecorder receives every event the program emits.
type EventRecorder interface {
	Emit(Event)
}

// nopRecorder drops all events.
type nopRecorder struct{}

func (nopRecorder) Emit(Event) {}

// MemoryRecorder retains emitted events for later inspection. Safe for
// concurrent use.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryRecorder creates an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Emit appends the event.
func (r *MemoryRecorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of all recorded events in emission order.
func (r *MemoryRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// LastOfType returns the most recent event of the given type.
func (r *MemoryRecorder) LastOfType(eventType string) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == eventType {
			return r.events[i], true
		}
	}
	return Event{}, false
}

// Reset discards all recorded events.
func (r *MemoryRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
