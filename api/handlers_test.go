package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vibeoracle/bridge-node/bridge"
	"github.com/vibeoracle/bridge-node/ledger"
	"github.com/vibeoracle/bridge-node/store"
)

type stubEngine struct {
	status bridge.Status
}

func (s *stubEngine) Snapshot() bridge.Status { return s.status }

type stubOracle struct {
	view *ledger.OracleView
	err  error
}

func (s *stubOracle) ReadState(ctx context.Context) (*ledger.OracleView, error) {
	return s.view, s.err
}

type stubHistory struct {
	pushes    []store.PushRecord
	cycles    []store.CycleRecord
	err       error
	lastLimit int
}

func (s *stubHistory) RecentPushes(limit int) ([]store.PushRecord, error) {
	s.lastLimit = limit
	return s.pushes, s.err
}

func (s *stubHistory) RecentCycles(limit int) ([]store.CycleRecord, error) {
	s.lastLimit = limit
	return s.cycles, s.err
}

func intPtr(v int) *int { return &v }

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	return NewServer(opts, zerolog.New(zerolog.NewTestWriter(t)))
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestHandleStatus(t *testing.T) {
	engine := &stubEngine{status: bridge.Status{
		CycleCount:          12,
		ConsecutiveFailures: 2,
		LastPushedScore:     intPtr(55),
		LastOutcome:         "pushed",
		LastSignal:          "neutral",
	}}

	t.Run("reports engine snapshot with runtime info", func(t *testing.T) {
		server := newTestServer(t, Options{
			Mode:          "live",
			WriterAddress: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
			Engine:        engine,
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
		w := httptest.NewRecorder()
		server.handleStatus(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Success bool       `json:"success"`
			Data    StatusInfo `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "live", resp.Data.Mode)
		assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", resp.Data.WriterAddress)
		assert.False(t, resp.Data.StartedAt.IsZero())
		assert.Equal(t, uint64(12), resp.Data.Engine.CycleCount)
		assert.Equal(t, uint64(2), resp.Data.Engine.ConsecutiveFailures)
		require.NotNil(t, resp.Data.Engine.LastPushedScore)
		assert.Equal(t, 55, *resp.Data.Engine.LastPushedScore)
		assert.Equal(t, "pushed", resp.Data.Engine.LastOutcome)
	})

	t.Run("rejects non-GET methods", func(t *testing.T) {
		server := newTestServer(t, Options{Engine: engine})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/status", nil)
		w := httptest.NewRecorder()
		server.handleStatus(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("answers 503 without an engine", func(t *testing.T) {
		server := newTestServer(t, Options{})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
		w := httptest.NewRecorder()
		server.handleStatus(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp Response
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "engine not configured")
	})
}

func TestHandleOracle(t *testing.T) {
	view := &ledger.OracleView{
		Score:            72,
		LastUpdated:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		IsBullish:        true,
		BullishThreshold: 70,
		BearishThreshold: -70,
	}

	t.Run("returns the live ledger view", func(t *testing.T) {
		server := newTestServer(t, Options{Ledger: &stubOracle{view: view}})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/oracle", nil)
		w := httptest.NewRecorder()
		server.handleOracle(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Success bool              `json:"success"`
			Data    ledger.OracleView `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.True(t, resp.Success)
		assert.Equal(t, *view, resp.Data)
	})

	t.Run("maps ledger failures to 502", func(t *testing.T) {
		server := newTestServer(t, Options{Ledger: &stubOracle{err: errors.New("rpc down")}})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/oracle", nil)
		w := httptest.NewRecorder()
		server.handleOracle(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		var resp Response
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "failed to read oracle state")
	})

	t.Run("answers 503 without a ledger", func(t *testing.T) {
		server := newTestServer(t, Options{})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/oracle", nil)
		w := httptest.NewRecorder()
		server.handleOracle(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestHandlePushes(t *testing.T) {
	pushedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	history := func() *stubHistory {
		return &stubHistory{pushes: []store.PushRecord{
			{
				Model:       gorm.Model{ID: 2, CreatedAt: pushedAt},
				CycleID:     "cycle-2",
				Score:       64,
				Signal:      "bullish",
				TxHash:      "0xabc",
				BlockNumber: 16,
				GasUsed:     48477,
			},
			{
				Model:   gorm.Model{ID: 1, CreatedAt: pushedAt.Add(-time.Hour)},
				CycleID: "cycle-1",
				Score:   -12,
				Signal:  "neutral",
				TxHash:  "0xdef",
			},
		}}
	}

	t.Run("lists recent pushes newest first", func(t *testing.T) {
		h := history()
		server := newTestServer(t, Options{Store: h})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/pushes", nil)
		w := httptest.NewRecorder()
		server.handlePushes(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Success bool       `json:"success"`
			Data    []PushView `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.True(t, resp.Success)
		require.Len(t, resp.Data, 2)
		assert.Equal(t, "cycle-2", resp.Data[0].CycleID)
		assert.Equal(t, 64, resp.Data[0].Score)
		assert.Equal(t, "bullish", resp.Data[0].Signal)
		assert.Equal(t, "0xabc", resp.Data[0].TxHash)
		assert.Equal(t, uint64(16), resp.Data[0].BlockNumber)
		assert.Equal(t, uint64(48477), resp.Data[0].GasUsed)
		assert.Equal(t, pushedAt, resp.Data[0].PushedAt)
		// Missing limit means the store default.
		assert.Zero(t, h.lastLimit)
	})

	t.Run("passes an explicit limit through", func(t *testing.T) {
		h := history()
		server := newTestServer(t, Options{Store: h})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/pushes?limit=5", nil)
		w := httptest.NewRecorder()
		server.handlePushes(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 5, h.lastLimit)
	})

	t.Run("rejects a malformed limit", func(t *testing.T) {
		for _, limit := range []string{"abc", "-3", "0", "1.5"} {
			server := newTestServer(t, Options{Store: history()})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/pushes?limit="+limit, nil)
			w := httptest.NewRecorder()
			server.handlePushes(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
		}
	})

	t.Run("maps store failures to 500", func(t *testing.T) {
		server := newTestServer(t, Options{Store: &stubHistory{err: errors.New("disk gone")}})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/pushes", nil)
		w := httptest.NewRecorder()
		server.handlePushes(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("empty history is an empty list, not null", func(t *testing.T) {
		server := newTestServer(t, Options{Store: &stubHistory{}})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/pushes", nil)
		w := httptest.NewRecorder()
		server.handlePushes(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"data":[]`)
	})
}

func TestHandleCycles(t *testing.T) {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	h := &stubHistory{cycles: []store.CycleRecord{
		{
			Model:      gorm.Model{ID: 3, CreatedAt: at},
			CycleID:    "cycle-3",
			Outcome:    "failed",
			Reason:     "fetch_failed",
			Detail:     "connection refused",
			DurationMS: 1250,
		},
		{
			Model:      gorm.Model{ID: 2, CreatedAt: at.Add(-time.Minute)},
			CycleID:    "cycle-2",
			Outcome:    "skipped",
			Reason:     "duplicate_score",
			Score:      intPtr(64),
			DurationMS: 80,
		},
	}}
	server := newTestServer(t, Options{Store: h})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cycles?limit=10", nil)
	w := httptest.NewRecorder()
	server.handleCycles(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool        `json:"success"`
		Data    []CycleView `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "failed", resp.Data[0].Outcome)
	assert.Equal(t, "fetch_failed", resp.Data[0].Reason)
	assert.Equal(t, "connection refused", resp.Data[0].Detail)
	assert.Nil(t, resp.Data[0].Score)
	require.NotNil(t, resp.Data[1].Score)
	assert.Equal(t, 64, *resp.Data[1].Score)
	assert.Equal(t, 10, h.lastLimit)
}
