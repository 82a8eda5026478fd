package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/keepmind9/shelfbot/internal/dispatch"
	"github.com/keepmind9/shelfbot/internal/interactive"
	"github.com/keepmind9/shelfbot/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func snapshot(ready bool) stats.Source {
	return func() stats.Snapshot {
		return stats.Snapshot{
			Connected:   ready,
			Ready:       ready,
			Guilds:      4,
			LatencyMS:   12,
			Messages:    dispatch.Stats{Received: 9, Handled: 3},
			Interactive: interactive.Stats{Messages: 2, Triggers: 6},
		}
	}
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealth(t *testing.T) {
	rec, body := get(t, NewServer(":0", snapshot(true)), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	_, body = get(t, NewServer(":0", snapshot(false)), "/health")
	assert.Equal(t, "disconnected", body["status"])
}

func TestReady(t *testing.T) {
	rec, body := get(t, NewServer(":0", snapshot(true)), "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(4), body["guilds"])

	rec, _ = get(t, NewServer(":0", snapshot(false)), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer(":0", snapshot(true)).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap stats.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, uint64(3), snap.Messages.Handled)
	assert.Equal(t, int64(6), snap.Interactive.Triggers)
}

func TestStartShutdown(t *testing.T) {
	s := NewServer("127.0.0.1:0", snapshot(true))
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())

	resp, err := http.Get(fmt.Sprintf("http://%s/health", s.Addr()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Shutdown(context.Background()))
	require.NoError(t, s.Shutdown(context.Background()))
}
