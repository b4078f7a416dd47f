package oracle

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWriter = "0x1111111111111111111111111111111111111111"

func newTestProgram(t *testing.T) (*Program, *clockwork.FakeClock, *MemoryRecorder) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	recorder := NewMemoryRecorder()
	program, err := NewProgram(testWriter, clock, recorder)
	require.NoError(t, err)
	return program, clock, recorder
}

func TestNewProgramDefaults(t *testing.T) {
	program, _, _ := newTestProgram(t)

	score, updated := program.Sentiment()
	assert.Equal(t, 0, score)
	assert.True(t, updated.IsZero())

	bullish, bearish := program.Thresholds()
	assert.Equal(t, DefaultBullishThreshold, bullish)
	assert.Equal(t, DefaultBearishThreshold, bearish)
	assert.Equal(t, DefaultMinUpdateInterval, program.UpdateInterval())
	assert.Equal(t, testWriter, program.Writer())
}

func TestNewProgramRejectsEmptyWriter(t *testing.T) {
	_, err := NewProgram("", nil, nil)
	require.ErrorIs(t, err, ErrInvalidWriter)
}

func TestWriteRateLimitAndSignals(t *testing.T) {
	program, clock, recorder := newTestProgram(t)

	// First write after deployment is always allowed.
	signal, err := program.Write(testWriter, 70)
	require.NoError(t, err)
	assert.Equal(t, SignalBullish, signal)

	event, ok := recorder.LastOfType(EventTypeBullishSignal)
	require.True(t, ok)
	assert.Equal(t, "70", event.Attr("score"))
	assert.Equal(t, "60", event.Attr("threshold"))

	// Thirty seconds later the rate limit still holds.
	clock.Advance(30 * time.Second)
	_, err = program.Write(testWriter, -70)
	require.ErrorIs(t, err, ErrUpdateTooFrequent)

	// Sixty-one seconds after the first write it clears.
	clock.Advance(31 * time.Second)
	signal, err = program.Write(testWriter, -70)
	require.NoError(t, err)
	assert.Equal(t, SignalBearish, signal)

	event, ok = recorder.LastOfType(EventTypeBearishSignal)
	require.True(t, ok)
	assert.Equal(t, "-70", event.Attr("score"))

	score, updated := program.Sentiment()
	assert.Equal(t, -70, score)
	assert.Equal(t, clock.Now(), updated)
}

func TestWriteReplayProtection(t *testing.T) {
	program, clock, _ := newTestProgram(t)

	_, err := program.Write(testWriter, 70)
	require.NoError(t, err)

	// Replay is rejected regardless of elapsed time.
	clock.Advance(10 * time.Minute)
	_, err = program.Write(testWriter, 70)
	require.ErrorIs(t, err, ErrDuplicateScore)

	// A different score is still accepted afterwards.
	_, err = program.Write(testWriter, 71)
	require.NoError(t, err)
}

func TestWriteGuardOrder(t *testing.T) {
	program, clock, _ := newTestProgram(t)

	_, err := program.Write(testWriter, 10)
	require.NoError(t, err)

	// Authorization is checked before anything else.
	_, err = program.Write("0xdeadbeef", 500)
	require.ErrorIs(t, err, ErrNotAuthorized)

	// Bounds are checked before the rate limit: no time has passed, yet an
	// out-of-range score reports the range violation.
	_, err = program.Write(testWriter, 101)
	require.ErrorIs(t, err, ErrScoreOutOfRange)
	_, err = program.Write(testWriter, -101)
	require.ErrorIs(t, err, ErrScoreOutOfRange)

	// Rate limit is checked before replay: writing the stored score too soon
	// reports the rate violation.
	clock.Advance(time.Second)
	_, err = program.Write(testWriter, 10)
	require.ErrorIs(t, err, ErrUpdateTooFrequent)
}

func TestWriteBoundaryScores(t *testing.T) {
	program, clock, _ := newTestProgram(t)

	signal, err := program.Write(testWriter, MaxScore)
	require.NoError(t, err)
	assert.Equal(t, SignalBullish, signal)

	clock.Advance(DefaultMinUpdateInterval)
	signal, err = program.Write(testWriter, MinScore)
	require.NoError(t, err)
	assert.Equal(t, SignalBearish, signal)
}

func TestWriteEmitsUpdateThenExactlyOneSignal(t *testing.T) {
	program, clock, recorder := newTestProgram(t)

	_, err := program.Write(testWriter, 5)
	require.NoError(t, err)

	events := recorder.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventTypeSentimentUpdated, events[0].Type)
	assert.Equal(t, "5", events[0].Attr("score"))
	assert.Equal(t, testWriter, events[0].Attr("writer"))
	assert.Equal(t, clock.Now().UTC().Format(time.RFC3339), events[0].Attr("timestamp"))
	assert.Equal(t, EventTypeNeutralSignal, events[1].Type)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		score    int
		bullish  int
		bearish  int
		expected Signal
	}{
		{"above bullish", 75, 60, -60, SignalBullish},
		{"at bullish", 60, 60, -60, SignalBullish},
		{"below bearish", -75, 60, -60, SignalBearish},
		{"at bearish", -60, 60, -60, SignalBearish},
		{"between", 0, 60, -60, SignalNeutral},
		{"just under bullish", 59, 60, -60, SignalNeutral},
		{"just over bearish", -59, 60, -60, SignalNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.score, tt.bullish, tt.bearish))
		})
	}
}

func TestSetThresholds(t *testing.T) {
	program, _, recorder := newTestProgram(t)

	t.Run("bullish must exceed bearish", func(t *testing.T) {
		err := program.SetThresholds(testWriter, 50, 60)
		require.ErrorIs(t, err, ErrInvalidThresholds)
		err = program.SetThresholds(testWriter, 50, 50)
		require.ErrorIs(t, err, ErrInvalidThresholds)
	})

	t.Run("thresholds must stay in score bounds", func(t *testing.T) {
		err := program.SetThresholds(testWriter, 101, -60)
		require.ErrorIs(t, err, ErrInvalidThresholds)
		err = program.SetThresholds(testWriter, 60, -101)
		require.ErrorIs(t, err, ErrInvalidThresholds)
	})

	t.Run("writer only", func(t *testing.T) {
		err := program.SetThresholds("0xdeadbeef", 70, -70)
		require.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("valid pair applies and reclassifies", func(t *testing.T) {
		require.NoError(t, program.SetThresholds(testWriter, 70, -70))

		bullish, bearish := program.Thresholds()
		assert.Equal(t, 70, bullish)
		assert.Equal(t, -70, bearish)

		event, ok := recorder.LastOfType(EventTypeThresholdsChanged)
		require.True(t, ok)
		assert.Equal(t, "70", event.Attr("bullish"))
		assert.Equal(t, "-70", event.Attr("bearish"))

		// A score of 65 was bullish under the defaults but is neutral now.
		signal, err := program.Write(testWriter, 65)
		require.NoError(t, err)
		assert.Equal(t, SignalNeutral, signal)
	})
}

func TestLiveThresholdViewDisagreesWithWriteTimeEvent(t *testing.T) {
	program, _, recorder := newTestProgram(t)

	_, err := program.Write(testWriter, 70)
	require.NoError(t, err)

	_, wasBullish := recorder.LastOfType(EventTypeBullishSignal)
	require.True(t, wasBullish)

	// Raising the bullish threshold afterwards silently reclassifies the
	// stored score in the view while the event stream keeps its history.
	require.NoError(t, program.SetThresholds(testWriter, 80, -80))

	view := program.State()
	assert.Equal(t, 70, view.Score)
	assert.False(t, view.IsBullish)
	assert.False(t, view.IsBearish)

	_, stillRecorded := recorder.LastOfType(EventTypeBullishSignal)
	assert.True(t, stillRecorded)
}

func TestSetUpdateInterval(t *testing.T) {
	program, clock, recorder := newTestProgram(t)

	t.Run("writer only", func(t *testing.T) {
		err := program.SetUpdateInterval("0xdeadbeef", time.Second)
		require.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("negative rejected", func(t *testing.T) {
		err := program.SetUpdateInterval(testWriter, -time.Second)
		require.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("zero disables rate limiting", func(t *testing.T) {
		require.NoError(t, program.SetUpdateInterval(testWriter, 0))

		event, ok := recorder.LastOfType(EventTypeIntervalChanged)
		require.True(t, ok)
		assert.Equal(t, "0s", event.Attr("interval"))

		_, err := program.Write(testWriter, 1)
		require.NoError(t, err)
		_, err = program.Write(testWriter, 2)
		require.NoError(t, err)
	})

	t.Run("large interval locks out writes", func(t *testing.T) {
		require.NoError(t, program.SetUpdateInterval(testWriter, 24*time.Hour))
		clock.Advance(time.Hour)
		_, err := program.Write(testWriter, 3)
		require.ErrorIs(t, err, ErrUpdateTooFrequent)
	})
}

func TestTransferWriter(t *testing.T) {
	program, clock, recorder := newTestProgram(t)
	newWriter := "0x2222222222222222222222222222222222222222"

	t.Run("writer only", func(t *testing.T) {
		err := program.TransferWriter("0xdeadbeef", newWriter)
		require.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("empty identity rejected", func(t *testing.T) {
		err := program.TransferWriter(testWriter, "")
		require.ErrorIs(t, err, ErrInvalidWriter)
	})

	t.Run("ownership moves", func(t *testing.T) {
		require.NoError(t, program.TransferWriter(testWriter, newWriter))
		assert.Equal(t, newWriter, program.Writer())

		event, ok := recorder.LastOfType(EventTypeWriterChanged)
		require.True(t, ok)
		assert.Equal(t, testWriter, event.Attr("previous"))
		assert.Equal(t, newWriter, event.Attr("new"))

		// The previous writer is locked out, the new one can write.
		_, err := program.Write(testWriter, 10)
		require.ErrorIs(t, err, ErrNotAuthorized)

		clock.Advance(DefaultMinUpdateInterval)
		_, err = program.Write(newWriter, 10)
		require.NoError(t, err)
	})
}

func TestSignalEventType(t *testing.T) {
	assert.Equal(t, EventTypeBullishSignal, SignalBullish.EventType())
	assert.Equal(t, EventTypeBearishSignal, SignalBearish.EventType())
	assert.Equal(t, EventTypeNeutralSignal, SignalNeutral.EventType())
	assert.Equal(t, "", SignalUnknown.EventType())
}

func TestMemoryRecorder(t *testing.T) {
	recorder := NewMemoryRecorder()

	_, ok := recorder.LastOfType(EventTypeSentimentUpdated)
	assert.False(t, ok)

	recorder.Emit(NewEvent(EventTypeSentimentUpdated, NewAttribute("score", "1")))
	recorder.Emit(NewEvent(EventTypeSentimentUpdated, NewAttribute("score", "2")))

	events := recorder.Events()
	require.Len(t, events, 2)

	last, ok := recorder.LastOfType(EventTypeSentimentUpdated)
	require.True(t, ok)
	assert.Equal(t, "2", last.Attr("score"))
	assert.Equal(t, "", last.Attr("missing"))

	recorder.Reset()
	assert.Empty(t, recorder.Events())
}
