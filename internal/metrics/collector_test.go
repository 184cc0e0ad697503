package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector("test", zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.commandsSent)
	assert.NotNil(t, collector.framesReceived)
	assert.NotNil(t, collector.sessionsTotal)
	assert.NotNil(t, collector.artifactBytes)
}

func TestNewCollector_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector("test", nil).RecordCommandSent("start_path")
	})
}

func TestNewCollector_IsolatedRegistries(t *testing.T) {
	// 相同命名空间的两个收集器互不冲突
	a := NewCollector("same", zap.NewNop())
	b := NewCollector("same", zap.NewNop())

	a.RecordCommandSent("start_path")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.commandsSent.WithLabelValues("start_path")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.commandsSent.WithLabelValues("start_path")))
}

func TestCollector_RecordCommands(t *testing.T) {
	collector := NewCollector("test", zap.NewNop())

	collector.RecordCommandSent("start_path")
	collector.RecordCommandSent("extend_path")
	collector.RecordCommandSent("extend_path")
	collector.RecordCommandFailed("extrude")
	collector.RecordSendBatch(3 * time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.commandsSent.WithLabelValues("start_path")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.commandsSent.WithLabelValues("extend_path")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.commandsFailed.WithLabelValues("extrude")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.sendDuration))
}

func TestCollector_RecordFrame(t *testing.T) {
	collector := NewCollector("test", zap.NewNop())

	collector.RecordFrame("text", "empty")
	collector.RecordFrame("text", "empty")
	collector.RecordFrame("text", "take_snapshot")
	collector.RecordFrame("pong", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.framesReceived.WithLabelValues("text", "empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.framesReceived.WithLabelValues("text", "take_snapshot")))
	assert.Equal(t, 3, testutil.CollectAndCount(collector.framesReceived))
}

func TestCollector_RecordSession(t *testing.T) {
	collector := NewCollector("test", zap.NewNop())

	collector.RecordSession("success", 800*time.Millisecond)
	collector.RecordSession("TIMEOUT", 10*time.Second)
	collector.RecordArtifact(4096)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.sessionsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.sessionsTotal.WithLabelValues("TIMEOUT")))
	assert.Equal(t, 2, testutil.CollectAndCount(collector.sessionDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.artifactBytes))
}

func TestCollector_WriteTextfile(t *testing.T) {
	collector := NewCollector("cubesnap", zap.NewNop())
	collector.RecordCommandSent("take_snapshot")
	collector.RecordSession("success", time.Second)

	path := filepath.Join(t.TempDir(), "cubesnap.prom")
	require.NoError(t, collector.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `cubesnap_commands_sent_total{command="take_snapshot"} 1`), text)
	assert.Contains(t, text, `cubesnap_sessions_total{outcome="success"} 1`)
}

func TestCollector_WriteTextfile_BadPath(t *testing.T) {
	collector := NewCollector("cubesnap", zap.NewNop())
	err := collector.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}

func TestCollector_Gatherer(t *testing.T) {
	collector := NewCollector("cubesnap", zap.NewNop())
	collector.RecordFrame("text", "empty")

	families, err := collector.Gatherer().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
