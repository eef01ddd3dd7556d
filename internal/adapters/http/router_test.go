package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/VideoChat/internal/adapters/hostws"
	"github.com/dkeye/VideoChat/internal/app"
	"github.com/dkeye/VideoChat/internal/app/credentials"
	"github.com/dkeye/VideoChat/internal/config"
	"github.com/dkeye/VideoChat/internal/core/coretest"
	"github.com/dkeye/VideoChat/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router    *gin.Engine
	transport *coretest.Transport
	registry  *app.Registry
	hubs      *hostws.Hubs
}

func newFixture(t *testing.T, creds int, mutate func(*config.Config)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Mode:            "test",
		Secret:          "secret",
		APIKey:          "key",
		CountCameras:    1,
		MaxCountCameras: 2,
		SlotsPerDevice:  2,
		PublisherName:   "videochat",
		RateLimit:       5,
		RateInterval:    time.Minute,
	}
	if mutate != nil {
		mutate(cfg)
	}

	list := make([]domain.Credential, creds)
	for i := range list {
		list[i] = domain.Credential{
			SessionID:       fmt.Sprintf("s%d", i),
			PublisherToken:  fmt.Sprintf("p%d", i),
			SubscriberToken: fmt.Sprintf("u%d", i),
		}
	}

	f := &fixture{
		transport: &coretest.Transport{},
		registry:  app.NewRegistry(),
		hubs:      hostws.NewHubs(hostws.Options{}),
	}
	f.router = SetupRouter(context.Background(), cfg, Deps{
		Registry:  f.registry,
		Hubs:      f.hubs,
		Store:     credentials.New(list),
		Transport: f.transport,
	})
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "ct", Value: "screen-1"})
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type screenBody struct {
	ID    string           `json:"id"`
	Slots []map[string]any `json:"slots"`
}

func TestStartCall(t *testing.T) {
	f := newFixture(t, 4, nil)

	w := f.do(http.MethodPost, "/api/call", `{"user":1}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body screenBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "screen-1", body.ID)
	require.Len(t, body.Slots, 2)
	assert.Equal(t, "publisher", body.Slots[0]["role"])
	assert.Equal(t, "subscriber", body.Slots[1]["role"])

	require.Equal(t, 2, f.transport.SessionCount())
	assert.Equal(t, "s0", f.transport.Session(0).Config.SessionID)
	assert.Equal(t, "p0", f.transport.Session(0).Token)
	assert.Equal(t, "s2", f.transport.Session(1).Config.SessionID)
	assert.Equal(t, "u2", f.transport.Session(1).Token)

	w = f.do(http.MethodGet, "/api/slots", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Slots, 2)
}

func TestEndCall(t *testing.T) {
	f := newFixture(t, 4, nil)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/call", "").Code)

	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/call", `{"user":2}`).Code)
	require.Equal(t, 1, f.hubs.Len())
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/call", "").Code)
	assert.Equal(t, 0, f.hubs.Len(), "unwatched hub is released with the call")

	for i := 0; i < f.transport.SessionCount(); i++ {
		assert.Equal(t, 1, f.transport.Session(i).DisconnectCount())
	}
	assert.Equal(t, 0, f.registry.Len())
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/slots", "").Code)
}

func TestStartCallRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		creds int
		body  string
		want  int
	}{
		{"no body", 4, ``, http.StatusBadRequest},
		{"unknown user", 4, `{"user":3}`, http.StatusBadRequest},
		{"missing credentials", 1, `{"user":1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.creds, nil)
			w := f.do(http.MethodPost, "/api/call", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Equal(t, 0, f.transport.SessionCount())
		})
	}
}

func TestStartCallRateLimited(t *testing.T) {
	f := newFixture(t, 4, func(c *config.Config) { c.RateLimit = 1 })

	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/call", `{"user":1}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodPost, "/api/call", `{"user":1}`).Code)
	assert.Equal(t, 2, f.transport.SessionCount())
}

func TestRestartReplacesCall(t *testing.T) {
	f := newFixture(t, 4, nil)

	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/call", `{"user":1}`).Code)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/call", `{"user":1}`).Code)

	require.Equal(t, 4, f.transport.SessionCount())
	assert.Equal(t, 1, f.transport.Session(0).DisconnectCount())
	assert.Equal(t, 1, f.transport.Session(1).DisconnectCount())
	assert.Equal(t, 0, f.transport.Session(2).DisconnectCount())
	assert.Equal(t, 1, f.registry.Len())
	assert.Equal(t, 1, f.hubs.Len())
}

func TestOverlappingStartsLeaveOneLiveCall(t *testing.T) {
	f := newFixture(t, 4, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.do(http.MethodPost, "/api/call", `{"user":1}`)
		}()
	}
	wg.Wait()

	require.Equal(t, 8, f.transport.SessionCount())
	live := 0
	for i := 0; i < f.transport.SessionCount(); i++ {
		if f.transport.Session(i).DisconnectCount() == 0 {
			live++
		}
	}
	assert.Equal(t, 2, live, "only the registered call keeps its sessions")
	assert.Equal(t, 1, f.registry.Len())
}

func TestClientTokenCookie(t *testing.T) {
	f := newFixture(t, 4, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/slots", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Values("Set-Cookie")[0], "ct=")
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, 4, nil)

	w := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "videochat_slots_active")
}
