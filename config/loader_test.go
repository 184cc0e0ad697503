// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BaSui01/cubesnap/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv 清理测试涉及的环境变量
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		LegacyTokenEnv, LegacyOutputPathEnv,
		"CUBESNAP_MODELING_API_TOKEN", "CUBESNAP_SESSION_OUTPUT_PATH",
	} {
		t.Setenv(key, "")
	}
}

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// 验证连接默认值
	assert.Equal(t, DefaultModelingURL, cfg.Modeling.URL)
	assert.Equal(t, 30, cfg.Modeling.FPS)
	assert.False(t, cfg.Modeling.UnlockedFramerate)
	assert.Equal(t, 640, cfg.Modeling.VideoResWidth)
	assert.Equal(t, 480, cfg.Modeling.VideoResHeight)
	assert.False(t, cfg.Modeling.WebRTC)
	assert.Empty(t, cfg.Modeling.APIToken)

	// 验证会话默认值
	assert.Equal(t, 10.0, cfg.Session.HalfWidth)
	assert.Equal(t, 10*time.Second, cfg.Session.Timeout)
	assert.Equal(t, "model.png", cfg.Session.OutputPath)
	assert.Equal(t, "png", cfg.Session.SnapshotFormat)
	assert.False(t, cfg.Session.Pipelined)
	assert.False(t, cfg.Session.StrictCorrelation)

	// 验证 Log 默认值
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "cubesnap", cfg.Metrics.Namespace)
	assert.Empty(t, cfg.Journal.Path)
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	clearEnv(t)

	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultModelingURL, cfg.Modeling.URL)
	assert.Equal(t, "model.png", cfg.Session.OutputPath)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	clearEnv(t)

	// 创建临时配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "cubesnap.yaml")

	yamlContent := `
modeling:
  api_token: "file-token"
  url: "ws://localhost:9000/ws"
  fps: 60
  video_res_width: 1280
  video_res_height: 720

session:
  half_width: 2.5
  timeout: 30s
  output_path: "out/cube.jpg"
  pipelined: true
  send_rate: 20

log:
  level: "debug"
  format: "json"

journal:
  path: "runs.db"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	// 加载配置
	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	// 验证 YAML 值覆盖了默认值
	assert.Equal(t, "file-token", cfg.Modeling.APIToken)
	assert.Equal(t, "ws://localhost:9000/ws", cfg.Modeling.URL)
	assert.Equal(t, 60, cfg.Modeling.FPS)
	assert.Equal(t, 1280, cfg.Modeling.VideoResWidth)
	assert.Equal(t, 720, cfg.Modeling.VideoResHeight)

	assert.Equal(t, 2.5, cfg.Session.HalfWidth)
	assert.Equal(t, 30*time.Second, cfg.Session.Timeout)
	assert.Equal(t, "out/cube.jpg", cfg.Session.OutputPath)
	assert.True(t, cfg.Session.Pipelined)
	assert.Equal(t, 20.0, cfg.Session.SendRate)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "runs.db", cfg.Journal.Path)

	// 未在文件中出现的字段保持默认值
	assert.Equal(t, "png", cfg.Session.SnapshotFormat)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := NewLoader().
		WithConfigPath(filepath.Join(t.TempDir(), "nope.yaml")).
		Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Session, cfg.Session)
}

func TestLoader_InvalidYAML(t *testing.T) {
	clearEnv(t)

	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("session: [unclosed"), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	assert.Error(t, err)
}

func TestLoader_LegacyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(LegacyTokenEnv, "legacy-token")
	t.Setenv(LegacyOutputPathEnv, "/tmp/legacy.png")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "legacy-token", cfg.Modeling.APIToken)
	assert.Equal(t, "/tmp/legacy.png", cfg.Session.OutputPath)
}

func TestLoader_LegacyEnvDisabled(t *testing.T) {
	clearEnv(t)
	t.Setenv(LegacyTokenEnv, "legacy-token")

	cfg, err := NewLoader().WithLegacyEnv(false).Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Modeling.APIToken)
}

func TestLoader_PrefixedEnvWinsOverLegacy(t *testing.T) {
	clearEnv(t)
	t.Setenv(LegacyTokenEnv, "legacy-token")
	t.Setenv("CUBESNAP_MODELING_API_TOKEN", "prefixed-token")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed-token", cfg.Modeling.APIToken)
}

func TestLoader_EnvOverride(t *testing.T) {
	clearEnv(t)

	configPath := filepath.Join(t.TempDir(), "cubesnap.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("session:\n  half_width: 3\n"), 0644))

	t.Setenv("CUBESNAP_SESSION_HALF_WIDTH", "7.5")
	t.Setenv("CUBESNAP_SESSION_TIMEOUT", "2s")
	t.Setenv("CUBESNAP_SESSION_STRICT_CORRELATION", "true")
	t.Setenv("CUBESNAP_MODELING_VIDEO_RES_WIDTH", "320")
	t.Setenv("CUBESNAP_LOG_OUTPUT_PATHS", "stdout, /tmp/cubesnap.log")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	// 环境变量覆盖文件
	assert.Equal(t, 7.5, cfg.Session.HalfWidth)
	assert.Equal(t, 2*time.Second, cfg.Session.Timeout)
	assert.True(t, cfg.Session.StrictCorrelation)
	assert.Equal(t, 320, cfg.Modeling.VideoResWidth)
	assert.Equal(t, []string{"stdout", "/tmp/cubesnap.log"}, cfg.Log.OutputPaths)
}

func TestLoader_CustomPrefix(t *testing.T) {
	clearEnv(t)
	t.Setenv("SNAP_SESSION_OUTPUT_PATH", "custom.bmp")

	cfg, err := NewLoader().WithEnvPrefix("SNAP").Load()
	require.NoError(t, err)
	assert.Equal(t, "custom.bmp", cfg.Session.OutputPath)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("CUBESNAP_SESSION_TIMEOUT", "soon")

	_, err := NewLoader().Load()
	assert.Error(t, err)
}

func TestLoader_WithValidator(t *testing.T) {
	clearEnv(t)

	_, err := NewLoader().
		WithValidator(func(c *Config) error { return c.Validate() }).
		Load()
	require.Error(t, err)
	assert.Equal(t, types.ErrConfig, types.GetErrorCode(err))

	t.Setenv(LegacyTokenEnv, "token")
	cfg, err := NewLoader().
		WithValidator(func(c *Config) error { return c.Validate() }).
		Load()
	require.NoError(t, err)
	assert.Equal(t, "token", cfg.Modeling.APIToken)
}

// --- Validate 测试 ---

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Modeling.APIToken = "token"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing token", func(c *Config) { c.Modeling.APIToken = "" }, "api_token"},
		{"blank token", func(c *Config) { c.Modeling.APIToken = "   " }, "api_token"},
		{"missing url", func(c *Config) { c.Modeling.URL = "" }, "modeling.url"},
		{"zero resolution", func(c *Config) { c.Modeling.VideoResHeight = 0 }, "resolution"},
		{"zero fps", func(c *Config) { c.Modeling.FPS = 0 }, "fps"},
		{"missing output", func(c *Config) { c.Session.OutputPath = "" }, "output_path"},
		{"zero half width", func(c *Config) { c.Session.HalfWidth = 0 }, "half_width"},
		{"negative half width", func(c *Config) { c.Session.HalfWidth = -1 }, "half_width"},
		{"zero timeout", func(c *Config) { c.Session.Timeout = 0 }, "timeout"},
		{"negative send rate", func(c *Config) { c.Session.SendRate = -1 }, "send_rate"},
		{"unknown format", func(c *Config) { c.Session.SnapshotFormat = "webp" }, "snapshot_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, types.ErrConfig, types.GetErrorCode(err))
			assert.True(t, types.IsCode(err, types.ErrConfig))
		})
	}
}
