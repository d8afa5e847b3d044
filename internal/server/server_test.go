package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lazypower/vitality/internal/engine"
	"github.com/lazypower/vitality/internal/metrics"
	"github.com/lazypower/vitality/internal/store"
)

func testServer(t *testing.T) (*Server, *clock.Mock) {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clk := clock.NewMock()
	clk.Set(time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)
	eng := engine.New(t.TempDir(), db, clk, log)
	eng.SetMetrics(metrics.New(eng.Cache.Len))
	t.Cleanup(eng.Stop)
	return New(eng, "test-version", log), clk
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "decode body %q", w.Body.String())
	return body
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, "GET", "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test-version", body["version"])
	assert.Equal(t, true, body["history"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	do(t, srv, "POST", "/api/agents/a1/turns", `{"experience_type":"task"}`)

	w := do(t, srv, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `vitality_cycles_total{experience_type="task"} 1`)
}

func TestTurnAndContext(t *testing.T) {
	srv, clk := testServer(t)

	for i := 0; i < 10; i++ {
		clk.Add(time.Minute)
		w := do(t, srv, "POST", "/api/agents/ada/turns", `{"experience_type":"conversation","channel":"slack","peer":"bob"}`)
		require.Equal(t, http.StatusOK, w.Code, "turn %d: %s", i, w.Body.String())
		body := decode(t, w)
		require.Equal(t, true, body["saved"], "turn %d", i)
		assert.EqualValues(t, i+1, body["experience_count"])
	}

	body := decode(t, do(t, srv, "GET", "/api/agents/ada/context", ""))
	require.Equal(t, true, body["available"], "context not available: %v", body)
	assert.Contains(t, body["context"], "## Vitality")

	body = decode(t, do(t, srv, "GET", "/api/agents/ada/history?limit=3", ""))
	assert.EqualValues(t, 3, body["count"])

	body = decode(t, do(t, srv, "GET", "/api/agents", ""))
	assert.Equal(t, []any{"ada"}, body["agents"])
}

func TestContextUnavailableForNewAgent(t *testing.T) {
	srv, _ := testServer(t)
	body := decode(t, do(t, srv, "GET", "/api/agents/newbie/context", ""))
	assert.Equal(t, false, body["available"])
	assert.Equal(t, "", body["context"])
}

func TestTurnInvalidJSON(t *testing.T) {
	srv, _ := testServer(t)
	w := do(t, srv, "POST", "/api/agents/a1/turns", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCanModify(t *testing.T) {
	srv, _ := testServer(t)

	body := decode(t, do(t, srv, "GET", "/api/agents/a1/can-modify?field=identity-document", ""))
	assert.Equal(t, false, body["allowed"])
	assert.EqualValues(t, 6, body["required_stage"])

	w := do(t, srv, "GET", "/api/agents/a1/can-modify", "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing field")
}

func TestModifications(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, "POST", "/api/agents/a1/modifications", `{"field":"selfModel.preferences","value":"short answers","reason":"observed"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["allowed"], "preference edit should be allowed at stage 0")

	w = do(t, srv, "POST", "/api/agents/a1/modifications", `{"field":"consciousness.self_awareness","value":"1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["allowed"], "consciousness edit allowed")

	var st struct {
		SelfModel struct {
			Preferences []string `json:"preferences"`
		} `json:"self_model"`
	}
	w = do(t, srv, "GET", "/api/agents/a1/state", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Len(t, st.SelfModel.Preferences, 1)
}

func TestAddGoal(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, "POST", "/api/agents/a1/goals", `{"description":"learn the codebase","priority":0.8}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "user", body["origin"])

	w = do(t, srv, "POST", "/api/agents/a1/goals", `{"description":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty description")
}

func TestRecordSessions(t *testing.T) {
	srv, clk := testServer(t)
	at := clk.Now().Add(-time.Hour).Format(time.RFC3339)

	w := do(t, srv, "POST", "/api/sessions", `{"agent_id":"a1","sessions":[{"session_key":"s1","updated_at":"`+at+`","last_channel":"discord","last_to":"cy"}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var st struct {
		Environment struct {
			ActiveChannels []string `json:"active_channels"`
		} `json:"environment"`
	}
	w = do(t, srv, "GET", "/api/agents/a1/state", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, []string{"discord"}, st.Environment.ActiveChannels)

	w = do(t, srv, "POST", "/api/sessions", `{"sessions":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing agent")
}

func TestCapabilitiesAndCache(t *testing.T) {
	srv, _ := testServer(t)

	body := decode(t, do(t, srv, "GET", "/api/agents/a1/capabilities", ""))
	assert.Equal(t, "unformed", body["stage_name"])
	assert.Equal(t, []any{"conversation"}, body["capabilities"])

	w := do(t, srv, "DELETE", "/api/agents/a1/cache", "")
	assert.Equal(t, http.StatusOK, w.Code, "invalidate")
}
