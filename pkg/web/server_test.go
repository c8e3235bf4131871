package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/tunnelworks/rover.go/pkg/nav"
	"github.com/tunnelworks/rover.go/pkg/telemetry"
)

func testServer(t *testing.T) (*httptest.Server, *telemetry.Hub, *nav.Command) {
	hub := telemetry.NewHub(16)
	var posted nav.Command
	s := NewServer("", hub, func(cmd nav.Command) { posted = cmd })
	ts := httptest.NewServer(s.mux)
	t.Cleanup(ts.Close)
	return ts, hub, &posted
}

func TestStatusEmpty(t *testing.T) {
	ts, _, _ := testServer(t)
	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestStatusLatest(t *testing.T) {
	ts, hub, _ := testServer(t)
	hub.Publish(telemetry.Record{Mode: "manual", Phase: "idle"})
	hub.Publish(telemetry.Record{Mode: "automatic", Phase: "forward"})

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rec telemetry.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	require.Equal(t, uint64(2), rec.Seq)
	require.Equal(t, "forward", rec.Phase)
}

func TestTelemetryWindow(t *testing.T) {
	ts, hub, _ := testServer(t)
	for i := 0; i < 5; i++ {
		hub.Publish(telemetry.Record{})
	}

	resp, err := http.Get(ts.URL + "/api/telemetry?n=3")
	require.NoError(t, err)
	defer resp.Body.Close()

	var recs []telemetry.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&recs))
	require.Len(t, recs, 3)
	// Oldest first within the window.
	require.Equal(t, uint64(3), recs[0].Seq)
	require.Equal(t, uint64(5), recs[2].Seq)

	resp, err = http.Get(ts.URL + "/api/telemetry?n=bogus")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCommandPost(t *testing.T) {
	ts, _, posted := testServer(t)

	resp, err := http.Post(ts.URL+"/api/command", "application/json",
		strings.NewReader(`{"op":"start"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, nav.OpStart, posted.Op)

	resp, err = http.Post(ts.URL+"/api/command", "application/json",
		strings.NewReader(`{"op":"fly"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebsocketPush(t *testing.T) {
	ts, hub, _ := testServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Give the handler a moment to register its subscription.
	require.Eventually(t, func() bool {
		hub.Publish(telemetry.Record{Decision: "forward"})
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		var rec telemetry.Record
		return conn.ReadJSON(&rec) == nil && rec.Decision == "forward"
	}, 2*time.Second, 10*time.Millisecond)
}
