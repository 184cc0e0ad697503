// =============================================================================
// 📦 cubesnap 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// 默认连接参数
const (
	DefaultModelingURL = "wss://api.kittycad.io/ws/modeling/commands"
	DefaultOutputPath  = "model.png"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Modeling:  DefaultModelingConfig(),
		Session:   DefaultSessionConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
		Journal:   JournalConfig{},
	}
}

// DefaultModelingConfig 返回默认建模服务配置
func DefaultModelingConfig() ModelingConfig {
	return ModelingConfig{
		URL:               DefaultModelingURL,
		FPS:               30,
		UnlockedFramerate: false,
		VideoResWidth:     640,
		VideoResHeight:    480,
		WebRTC:            false,
		DialTimeout:       15 * time.Second,
		ReadLimit:         32 << 20,
	}
}

// DefaultSessionConfig 返回默认会话配置
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		HalfWidth:      10,
		Timeout:        10 * time.Second,
		OutputPath:     DefaultOutputPath,
		SnapshotFormat: "png",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "cubesnap",
		SampleRate:   1.0,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "cubesnap",
	}
}
