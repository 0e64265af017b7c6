package web

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/kjfrm085feather/vps-bot/pkg/registry"
	"github.com/kjfrm085feather/vps-bot/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probe bool

func (p probe) IsConnected() bool { return bool(p) }

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	opts := registry.DefaultOptions()
	opts.Now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return registry.New(store.Open(store.NewMemoryBackend()), nil, opts)
}

func newTestServer(t *testing.T, reg *registry.Registry, opts Options) *Server {
	t.Helper()
	s := NewServer(opts)
	SetupAPIRoutes(s, Deps{
		Registry: reg,
		Pending: func() []models.Deadline {
			return []models.Deadline{
				{Kind: models.DeadlineTrial, ID: "1", At: 10},
				{Kind: models.DeadlineGiveaway, ID: "99", At: 20},
				{Kind: models.DeadlineGiveaway, ID: "98", At: 30},
			}
		},
		MirrorSync: func() map[string]time.Time { return map[string]time.Time{} },
		Bot:        func() bool { return true },
		MQTT:       probe(false),
		Started:    time.Now().Add(-time.Minute),
	})
	return s
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)

	var body map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, newTestRegistry(t), DefaultOptions())
	w, body := get(t, s, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestStatusReportsCountsAndDeadlines(t *testing.T) {
	reg := newTestRegistry(t)
	_, _, err := reg.StartTrial("42")
	require.NoError(t, err)

	w, body := get(t, newTestServer(t, reg, DefaultOptions()), "/api/status")
	require.Equal(t, http.StatusOK, w.Code)

	stats := body["stats"].(map[string]interface{})
	assert.EqualValues(t, 1, stats["resources"])
	assert.EqualValues(t, 1, stats["trials"])

	deadlines := body["deadlines"].(map[string]interface{})
	assert.EqualValues(t, 3, deadlines["armed"])
	assert.EqualValues(t, 2, deadlines["byKind"].(map[string]interface{})["giveaway"])

	assert.Equal(t, true, body["bot"].(map[string]interface{})["isOnline"])
	assert.Equal(t, false, body["mqtt"].(map[string]interface{})["isOnline"])
}

func TestResourceAndAccount(t *testing.T) {
	reg := newTestRegistry(t)
	id, _, err := reg.StartTrial("42")
	require.NoError(t, err)
	s := newTestServer(t, reg, DefaultOptions())

	w, body := get(t, s, "/api/vps/"+id)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", body["owner"])
	assert.Equal(t, "trial", body["status"])

	w, _ = get(t, s, "/api/vps/404")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = get(t, s, "/api/accounts/42")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{id}, body["resources"])
	assert.EqualValues(t, 10, body["account"].(map[string]interface{})["credits"])

	w, _ = get(t, s, "/api/accounts/nobody")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeaderboardLimit(t *testing.T) {
	reg := newTestRegistry(t)
	for _, id := range []string{"a", "b", "c"} {
		reg.EnsureAccount(id)
	}
	_, err := reg.AdjustCredits("b", 30)
	require.NoError(t, err)
	s := newTestServer(t, reg, DefaultOptions())

	w, body := get(t, s, "/api/leaderboard?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	rows := body["leaderboard"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0].(map[string]interface{})["id"])

	w, _ = get(t, s, "/api/leaderboard?limit=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPurgeAndGiveaways(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.CreateGiveaway(models.Giveaway{MessageID: "m1", ChannelID: "c1", Amount: 100, EndTS: 1_700_000_600}))
	s := newTestServer(t, reg, DefaultOptions())

	w, body := get(t, s, "/api/giveaways")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["giveaways"], 1)

	w, body = get(t, s, "/api/purge")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["window"].(map[string]interface{})["active"])
	assert.EqualValues(t, 0, body["active_protections"])
	assert.Equal(t, []interface{}{}, body["protected_accounts"])
}

func TestUnknownRoute(t *testing.T) {
	w, body := get(t, newTestServer(t, newTestRegistry(t), DefaultOptions()), "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not Found", body["error"])
}

func TestAllowedHosts(t *testing.T) {
	opts := DefaultOptions()
	opts.AllowedHosts = regexp.MustCompile(`^(.+\.)?vpsbot\.dev`)
	s := newTestServer(t, newTestRegistry(t), opts)

	w, _ := get(t, s, "/api/health")
	assert.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Host = "api.vpsbot.dev"
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(0, 0)
	rl := newRateLimiter(RateLimitConfig{WindowMs: time.Minute, MaxRequests: 2}, func() time.Time { return now })

	assert.True(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("1.1.1.1"))
	assert.False(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("2.2.2.2"))

	now = now.Add(time.Minute + time.Second)
	assert.True(t, rl.allow("1.1.1.1"))
}
