package connector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassist/telemetry-gateway/internal/models"
)

func testDevice(transport models.Transport, endpoint string) *models.Device {
	return &models.Device{
		ID:        uuid.New(),
		Kind:      models.DeviceKindHeartRateMonitor,
		PatientID: "patient-1",
		Transport: transport,
		Connection: models.ConnectionParams{
			Endpoint: endpoint,
			Token:    "device-token",
		},
	}
}

func waitFrame(t *testing.T, s Stream) models.RawFrame {
	t.Helper()
	select {
	case frame := <-s.Frames():
		return frame
	case err := <-s.Errors():
		t.Fatalf("unexpected stream error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return nil
}

func waitError(t *testing.T, s Stream) error {
	t.Helper()
	select {
	case err := <-s.Errors():
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream error")
	}
	return nil
}

func TestOpenUnknownTransport(t *testing.T) {
	c := New(Config{})
	_, err := c.Open(context.Background(), testDevice("carrier-pigeon", "coop://roof"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transport")
}

func TestPollingStream(t *testing.T) {
	var (
		calls      int32
		authHeader atomic.Value
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		authHeader.Store(r.Header.Get("Authorization"))
		// The second fetch fails; the loop must survive it.
		if n == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"heartRate": %d}`, 70+n)
	}))
	defer srv.Close()

	c := New(Config{OpenTimeout: time.Second, PollInterval: 20 * time.Millisecond})
	s, err := c.Open(context.Background(), testDevice(models.TransportPolling, srv.URL))
	require.NoError(t, err)
	defer s.Close()

	frame := waitFrame(t, s)
	assert.Equal(t, 71.0, frame["heartRate"])
	assert.Equal(t, "Bearer device-token", authHeader.Load())

	err = waitError(t, s)
	assert.Contains(t, err.Error(), "unexpected status 500")

	// A failed fetch does not close the stream.
	select {
	case <-s.Done():
		t.Fatal("stream closed after a failed fetch")
	default:
	}

	frame = waitFrame(t, s)
	assert.Equal(t, 73.0, frame["heartRate"])

	require.NoError(t, s.Close())
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream not done after Close")
	}

	// Close is idempotent.
	require.NoError(t, s.Close())
}

func TestPollingRequiresEndpoint(t *testing.T) {
	c := New(Config{})
	dev := testDevice(models.TransportPolling, "")
	_, err := c.Open(context.Background(), dev)
	assert.Error(t, err)
}

func TestWebSocketStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var authHeader atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader.Store(r.Header.Get("Authorization"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(map[string]interface{}{"heartRate": 72.0, "spo2": 98.0})
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}))
	defer srv.Close()

	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := New(Config{OpenTimeout: time.Second})
	s, err := c.Open(context.Background(), testDevice(models.TransportWebSocket, endpoint))
	require.NoError(t, err)
	defer s.Close()

	frame := waitFrame(t, s)
	assert.Equal(t, 72.0, frame["heartRate"])
	assert.Equal(t, "Bearer device-token", authHeader.Load())

	// A normal remote closure marks the stream done without an error.
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream not done after remote close")
	}
	select {
	case err := <-s.Errors():
		t.Fatalf("unexpected error on normal closure: %v", err)
	default:
	}
}

func TestWebSocketAbruptDisconnect(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteJSON(map[string]interface{}{"heartRate": 72.0})
		// Drop the connection without a close handshake.
		conn.Close()
	}))
	defer srv.Close()

	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := New(Config{OpenTimeout: time.Second})
	s, err := c.Open(context.Background(), testDevice(models.TransportWebSocket, endpoint))
	require.NoError(t, err)
	defer s.Close()

	waitFrame(t, s)
	err = waitError(t, s)
	assert.Contains(t, err.Error(), "websocket read")

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream not done after abrupt disconnect")
	}
}

func TestWebSocketDialFailure(t *testing.T) {
	// Nothing listens here; the dial must fail within the open timeout.
	c := New(Config{OpenTimeout: 200 * time.Millisecond})
	_, err := c.Open(context.Background(), testDevice(models.TransportWebSocket, "ws://127.0.0.1:1/stream"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "websocket dial")
}
