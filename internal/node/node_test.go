package node

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/airnode/internal/config"
	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLink bool

func (l staticLink) Associated() bool { return bool(l) }

type okResolver struct{}

func (okResolver) Resolve(context.Context, string) error { return nil }

// fakeServer imitates the device API: one queued command, then empty polls
type fakeServer struct {
	mu        sync.Mutex
	telemetry []map[string]any
	replies   map[string]string
	served    atomic.Bool
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/telemetry"):
		var m map[string]any
		if err := json.Unmarshal(body, &m); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.telemetry = append(s.telemetry, m)
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/rpc"):
		if s.served.CompareAndSwap(false, true) {
			_, _ = w.Write([]byte(`{"id":7,"method":"setValue","params":180}`))
			return
		}
		w.WriteHeader(http.StatusRequestTimeout)

	case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/rpc/"):
		s.mu.Lock()
		s.replies[r.URL.Path] = string(body)
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *fakeServer) snapshot() (int, map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	replies := make(map[string]string, len(s.replies))
	for k, v := range s.replies {
		replies[k] = v
	}
	return len(s.telemetry), replies
}

func testConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()

	return &config.Config{
		LogLevel:        "debug",
		DeviceToken:     "TOKEN",
		ServerURL:       serverURL,
		SampleInterval:  5 * time.Millisecond,
		ClimateInterval: 10 * time.Millisecond,
		ReportInterval:  20 * time.Millisecond,
		ClimateAttempts: 3,
		ClimatePause:    time.Millisecond,
		RPC: config.RPCConfig{
			PollTimeout:     time.Second,
			ClientTimeout:   2 * time.Second,
			OfflineBackoff:  10 * time.Millisecond,
			ResolveAttempts: 3,
			ResolveDelay:    time.Millisecond,
			ResolveBackoff:  10 * time.Millisecond,
			LoopPause:       5 * time.Millisecond,
		},
		Fan: config.FanConfig{
			InitialSpeed: 128,
			Channel:      0,
		},
		Hardware: config.HardwareConfig{
			Driver:       "sim",
			GasChannel:   0,
			LightChannel: 1,
		},
		Telemetry: config.TelemetryConfig{
			Transport:   TransportHTTP,
			SendTimeout: time.Second,
		},
		History: config.HistoryConfig{
			Enabled:   true,
			DBPath:    filepath.Join(t.TempDir(), "history.db"),
			BatchSize: 1,
		},
	}
}

func TestNodeEndToEnd(t *testing.T) {
	fs := &fakeServer{replies: make(map[string]string)}
	srv := httptest.NewServer(fs)
	defer srv.Close()

	n, err := New(testConfig(t, srv.URL), logger.Default(), WithLink(staticLink(true)), WithResolver(okResolver{}))
	require.NoError(t, err)
	assert.Equal(t, 128, n.Fan().Get())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	require.Eventually(t, func() bool {
		sent, replies := fs.snapshot()
		return sent >= 2 && replies["/api/v1/TOKEN/rpc/7"] != ""
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, 180, n.Fan().Get())
	_, replies := fs.snapshot()
	assert.JSONEq(t, `{"setValue":180}`, replies["/api/v1/TOKEN/rpc/7"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("node did not stop")
	}

	families, err := n.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["airnode_reports_sent_total"])
	assert.True(t, names["airnode_fan_speed"])
}

func counterValue(t *testing.T, n *Node, name string) float64 {
	t.Helper()

	families, err := n.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name && len(f.GetMetric()) > 0 {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestOfflineBootDoesNotDelaySampling(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.History.Enabled = false

	n, err := New(cfg, logger.Default(), WithLink(staticLink(false)), WithResolver(okResolver{}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	// Reports run while the network wait is still pending; with the link
	// down each one fails and is counted.
	require.Eventually(t, func() bool {
		return counterValue(t, n, "airnode_reports_failed_total") >= 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("node did not stop")
	}
}

func TestNewRejectsUnknownTransport(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Telemetry.Transport = "carrier-pigeon"

	_, err := New(cfg, logger.Default(), WithLink(staticLink(true)))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrUnknownSink))
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Hardware.Driver = "abacus"

	_, err := New(cfg, logger.Default())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrInitNode))
}
