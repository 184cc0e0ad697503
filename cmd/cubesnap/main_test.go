package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/BaSui01/cubesnap/config"
	"github.com/BaSui01/cubesnap/internal/journal"
	"github.com/BaSui01/cubesnap/modeling"
	"github.com/BaSui01/cubesnap/testutil"
	"github.com/BaSui01/cubesnap/testutil/fixtures"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fake modeling service ---

// modelingServer answers every command with an empty ack and the snapshot
// command with a PNG of the given size. failAt >= 0 answers that command
// (0-based) with a failure envelope instead.
type modelingServer struct {
	width, height int
	failAt        int
	commands      atomic.Int32
	auth          atomic.Value
}

func (m *modelingServer) handler(w http.ResponseWriter, r *http.Request) {
	m.auth.Store(r.Header.Get("Authorization"))
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")
	conn.SetReadLimit(1 << 20)

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var req modeling.Request
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
		n := int(m.commands.Add(1)) - 1

		var reply []byte
		switch {
		case m.failAt >= 0 && n == m.failAt:
			reply = fixtures.FailureFrame(req.CmdID, modeling.ErrorDetail{ErrorCode: "bad_request", Message: "invalid path"}).Data
		case req.Cmd.CommandType() == modeling.CmdTakeSnapshot:
			reply = fixtures.Snapshot(req.CmdID, fixtures.PNG(m.width, m.height)).Data
		default:
			reply = fixtures.EmptyAck(req.CmdID).Data
		}
		if err := conn.Write(ctx, websocket.MessageText, reply); err != nil {
			return
		}
	}
}

func startModelingServer(t *testing.T, m *modelingServer) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(m.handler))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/modeling/commands"
}

// isolateEnv clears the variables the loader reads.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.LegacyTokenEnv, config.LegacyOutputPathEnv,
		"CUBESNAP_MODELING_URL", "CUBESNAP_SESSION_OUTPUT_PATH", "CUBESNAP_JOURNAL_PATH",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("CUBESNAP_LOG_LEVEL", "error")
}

// --- Tests ---

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 1, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage:")

	stderr.Reset()
	assert.Equal(t, 1, run([]string{"explode"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Unknown command: explode")

	assert.Equal(t, 0, run([]string{"help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "snapshot")
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "cubesnap dev")
}

func TestSnapshot_MissingToken(t *testing.T) {
	isolateEnv(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"snapshot"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "CONFIG_ERROR")
	assert.Contains(t, stderr.String(), "api_token")
	assert.Empty(t, stdout.String())
}

func TestSnapshot_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"snapshot", "--no-such-flag"}, &stdout, &stderr))
}

func TestSnapshot_EndToEnd(t *testing.T) {
	isolateEnv(t)
	t.Setenv(config.LegacyTokenEnv, "test-token")

	m := &modelingServer{width: 48, height: 36, failAt: -1}
	url := startModelingServer(t, m)
	dir := t.TempDir()
	out := filepath.Join(dir, "cube.png")
	journalPath := filepath.Join(dir, "runs.db")
	metricsPath := filepath.Join(dir, "cubesnap.prom")

	var stdout, stderr bytes.Buffer
	code := run([]string{"snapshot",
		"--url", url,
		"--output", out,
		"--journal", journalPath,
		"--metrics-file", metricsPath,
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.Equal(t, out, strings.TrimSpace(stdout.String()))
	testutil.AssertImageSize(t, out, 48, 36)
	assert.Equal(t, int32(9), m.commands.Load())
	assert.Equal(t, "Bearer test-token", m.auth.Load())

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `cubesnap_sessions_total{outcome="success"} 1`)

	j, err := journal.Open(journalPath, nil)
	require.NoError(t, err)
	defer j.Close()
	runs, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Succeeded())
	assert.Equal(t, 9, runs[0].Commands)
}

func TestSnapshot_Pipelined(t *testing.T) {
	isolateEnv(t)
	t.Setenv(config.LegacyTokenEnv, "test-token")

	m := &modelingServer{width: 8, height: 8, failAt: -1}
	url := startModelingServer(t, m)
	out := filepath.Join(t.TempDir(), "cube.bmp")

	var stdout, stderr bytes.Buffer
	code := run([]string{"snapshot", "--url", url, "--output", out, "--pipelined", "--strict"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	testutil.AssertImageSize(t, out, 8, 8)
}

func TestSnapshot_RemoteFailure(t *testing.T) {
	isolateEnv(t)
	t.Setenv(config.LegacyTokenEnv, "test-token")

	m := &modelingServer{width: 8, height: 8, failAt: 6}
	url := startModelingServer(t, m)
	out := filepath.Join(t.TempDir(), "cube.png")
	journalPath := filepath.Join(t.TempDir(), "runs.db")

	var stdout, stderr bytes.Buffer
	code := run([]string{"snapshot", "--url", url, "--output", out, "--journal", journalPath}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "REMOTE_ERROR")
	assert.Contains(t, stderr.String(), "invalid path")
	testutil.AssertNoFile(t, out)

	stdout.Reset()
	stderr.Reset()
	require.Equal(t, 0, run([]string{"history", "--journal", journalPath}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "REMOTE_ERROR")
	assert.Contains(t, stdout.String(), "receive")
	assert.Contains(t, stdout.String(), "1 runs, 0 succeeded")
}

func TestSnapshot_ConnectFailure(t *testing.T) {
	isolateEnv(t)
	t.Setenv(config.LegacyTokenEnv, "test-token")
	journalPath := filepath.Join(t.TempDir(), "runs.db")

	var stdout, stderr bytes.Buffer
	code := run([]string{"snapshot", "--url", "ws://127.0.0.1:1/ws", "--journal", journalPath}, &stdout, &stderr)
	assert.Equal(t, 1, code)

	j, err := journal.Open(journalPath, nil)
	require.NoError(t, err)
	defer j.Close()
	runs, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "CONNECTION_ERROR", runs[0].Outcome)
	assert.Equal(t, "connect", runs[0].Phase)
}

func TestHistory_NoJournal(t *testing.T) {
	isolateEnv(t)
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 1, run([]string{"history"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "No journal configured")

	stderr.Reset()
	missing := filepath.Join(t.TempDir(), "missing.db")
	assert.Equal(t, 1, run([]string{"history", "--journal", missing}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "does not exist")
}

func TestInitLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger := initLogger(config.LogConfig{Level: "debug", Format: format, OutputPaths: []string{"stderr"}})
		require.NotNil(t, logger)
		assert.True(t, logger.Core().Enabled(-1), "debug enabled for %s", format)
	}

	logger := initLogger(config.LogConfig{Level: "bogus"})
	assert.False(t, logger.Core().Enabled(-1), "unknown level falls back to info")
}
