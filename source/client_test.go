package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridgeerrors "github.com/vibeoracle/bridge-node/errors"
)

func TestFetchParsesFullPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oracle", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"raw_score": 42.7,
			"smoothed_score": 38.2,
			"post_count": 125,
			"positive_count": 80,
			"negative_count": 30,
			"last_updated_timestamp": "2026-08-01T12:30:00+00:00"
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, zerolog.Nop())
	reading, err := client.Fetch(context.Background())
	require.NoError(t, err)

	require.NotNil(t, reading.RawScore)
	assert.Equal(t, 42.7, *reading.RawScore)
	require.NotNil(t, reading.SmoothedScore)
	assert.Equal(t, 38.2, *reading.SmoothedScore)
	require.NotNil(t, reading.PostCount)
	assert.Equal(t, 125, *reading.PostCount)
	require.NotNil(t, reading.PositiveCount)
	assert.Equal(t, 80, *reading.PositiveCount)
	require.NotNil(t, reading.NegativeCount)
	assert.Equal(t, 30, *reading.NegativeCount)
	assert.False(t, reading.SampledAt.IsZero())

	ts, ok := reading.ParsedTimestamp()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC), ts.UTC())
}

func TestFetchMissingFieldsStayNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"post_count": 10}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, zerolog.Nop())
	reading, err := client.Fetch(context.Background())
	require.NoError(t, err)

	assert.Nil(t, reading.RawScore)
	assert.Nil(t, reading.SmoothedScore)
	require.NotNil(t, reading.PostCount)
	assert.Equal(t, 10, *reading.PostCount)

	_, ok := reading.ParsedTimestamp()
	assert.False(t, ok)
}

func TestFetchNon2xxIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail":"ingestion stalled"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, zerolog.Nop())
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "ingestion stalled")
	assert.True(t, bridgeerrors.IsBridgeError(err, bridgeerrors.ErrCodeFetch))
	assert.True(t, bridgeerrors.IsRetryable(err))
}

func TestFetchMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"smoothed_score": `))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, zerolog.Nop())
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode scoring source response")
	assert.True(t, bridgeerrors.IsBridgeError(err, bridgeerrors.ErrCodeFetch))
}

func TestFetchTimeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := NewClient(server.URL, 50*time.Millisecond, zerolog.Nop())
	start := time.Now()
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetchContextCancel(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := NewClient(server.URL, time.Minute, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Fetch(ctx)
	require.Error(t, err)
}

func TestBaseURLTrailingSlash(t *testing.T) {
	client := NewClient("http://scoring.local/", time.Second, zerolog.Nop())
	assert.Equal(t, "http://scoring.local", client.BaseURL())
}

func TestParsedTimestampLayouts(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{"rfc3339 with offset", "2026-08-01T12:30:00+02:00", true},
		{"rfc3339 zulu", "2026-08-01T12:30:00Z", true},
		{"naive with micros", "2026-08-01T12:30:00.123456", true},
		{"naive seconds", "2026-08-01T12:30:00", true},
		{"garbage", "yesterday", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Reading{LastUpdatedTimestamp: tt.value}
			_, ok := r.ParsedTimestamp()
			assert.Equal(t, tt.ok, ok)
		})
	}
}
