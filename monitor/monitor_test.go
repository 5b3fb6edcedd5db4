package monitor

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_Counters(t *testing.T) {
	m := NewMonitor("fruitbox")

	m.IncMove(ResultAccepted)
	m.IncMove(ResultAccepted)
	m.IncMove(ResultInvalid)
	m.IncBoardGenerations()
	m.AddRoomsReclaimed(3)
	m.SetActiveRooms(2)
	m.IncOnlinePlayers()
	m.IncOnlinePlayers()
	m.DecOnlinePlayers()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.metrics.Moves.WithLabelValues(ResultAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.Moves.WithLabelValues(ResultInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.BoardGenerations))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.metrics.RoomsReclaimed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.metrics.ActiveRooms))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.OnlinePlayers))
}

func TestMonitor_IndependentRegistries(t *testing.T) {
	a := NewMonitor("fruitbox")
	b := NewMonitor("fruitbox")

	a.IncBoardGenerations()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.BoardGenerations))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.metrics.BoardGenerations))
}

func TestMonitor_Handler(t *testing.T) {
	m := NewMonitor("fruitbox")
	m.ObserveMoveLatency(2 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "fruitbox_move_latency_seconds_count 1")
	assert.Contains(t, string(body), "fruitbox_uptime_seconds")
}
