// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	registry *prometheus.Registry

	// 出站指标
	commandsSent   *prometheus.CounterVec
	sendDuration   prometheus.Histogram
	commandsFailed *prometheus.CounterVec

	// 入站指标
	framesReceived *prometheus.CounterVec

	// 会话指标
	sessionsTotal   *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec

	// 产物指标
	artifactBytes prometheus.Histogram

	logger *zap.Logger
}

// NewCollector 创建指标收集器，指标注册在独立的 Registry 上
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	// 出站指标
	c.commandsSent = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_sent_total",
			Help:      "Total number of modeling commands written to the socket",
		},
		[]string{"command"},
	)

	c.commandsFailed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_failed_total",
			Help:      "Total number of modeling commands that could not be sent",
		},
		[]string{"command"},
	)

	c.sendDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "send_duration_seconds",
			Help:      "Time spent sending the whole command batch",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// 入站指标
	c.framesReceived = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Total number of inbound frames by kind and response type",
		},
		[]string{"kind", "response"},
	)

	// 会话指标
	c.sessionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of snapshot sessions by outcome",
		},
		[]string{"outcome"},
	)

	c.sessionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Snapshot session duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	// 产物指标
	c.artifactBytes = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "artifact_bytes",
			Help:      "Size of written snapshot files in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)

	return c
}

// =============================================================================
// 📝 记录方法
// =============================================================================

// RecordCommandSent 记录一条已发送的命令
func (c *Collector) RecordCommandSent(command string) {
	c.commandsSent.WithLabelValues(command).Inc()
}

// RecordCommandFailed 记录一条发送失败的命令
func (c *Collector) RecordCommandFailed(command string) {
	c.commandsFailed.WithLabelValues(command).Inc()
}

// RecordSendBatch 记录整批发送耗时
func (c *Collector) RecordSendBatch(duration time.Duration) {
	c.sendDuration.Observe(duration.Seconds())
}

// RecordFrame 记录一帧入站数据；response 为响应类型标签，控制帧为空
func (c *Collector) RecordFrame(kind, response string) {
	c.framesReceived.WithLabelValues(kind, response).Inc()
}

// RecordSession 记录一次会话结果
func (c *Collector) RecordSession(outcome string, duration time.Duration) {
	c.sessionsTotal.WithLabelValues(outcome).Inc()
	c.sessionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordArtifact 记录写出的图片大小
func (c *Collector) RecordArtifact(bytes int) {
	c.artifactBytes.Observe(float64(bytes))
}

// =============================================================================
// 📤 导出
// =============================================================================

// Gatherer 返回底层 Registry，便于测试或自定义导出
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// WriteTextfile 以 node_exporter textfile 格式写出全部指标
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	c.logger.Debug("metrics written", zap.String("path", path))
	return nil
}
