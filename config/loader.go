// =============================================================================
// 📦 cubesnap 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("cubesnap.yaml").
//	    WithEnvPrefix("CUBESNAP").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 旧版环境变量 → 带前缀的环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/cubesnap/types"
	"gopkg.in/yaml.v3"
)

// 旧版环境变量名，与最初的命令行工具保持兼容
const (
	LegacyTokenEnv      = "KITTYCAD_API_TOKEN"
	LegacyOutputPathEnv = "IMAGE_OUTPUT_PATH"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 cubesnap 的完整配置结构
type Config struct {
	// Modeling 远端建模服务连接配置
	Modeling ModelingConfig `yaml:"modeling" env:"MODELING"`

	// Session 单次绘制会话配置
	Session SessionConfig `yaml:"session" env:"SESSION"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Journal 运行记录配置
	Journal JournalConfig `yaml:"journal" env:"JOURNAL"`
}

// ModelingConfig 建模服务连接配置
type ModelingConfig struct {
	// API Token（必填）
	APIToken string `yaml:"api_token" env:"API_TOKEN"`
	// WebSocket 端点
	URL string `yaml:"url" env:"URL"`
	// 视频流帧率
	FPS int `yaml:"fps" env:"FPS"`
	// 是否解锁帧率
	UnlockedFramerate bool `yaml:"unlocked_framerate" env:"UNLOCKED_FRAMERATE"`
	// 视频宽度
	VideoResWidth int `yaml:"video_res_width" env:"VIDEO_RES_WIDTH"`
	// 视频高度
	VideoResHeight int `yaml:"video_res_height" env:"VIDEO_RES_HEIGHT"`
	// 是否启用 WebRTC
	WebRTC bool `yaml:"webrtc" env:"WEBRTC"`
	// 建连超时
	DialTimeout time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
	// 单帧读取上限（字节）
	ReadLimit int64 `yaml:"read_limit" env:"READ_LIMIT"`
}

// SessionConfig 会话配置
type SessionConfig struct {
	// 立方体半边长
	HalfWidth float64 `yaml:"half_width" env:"HALF_WIDTH"`
	// 接收循环总超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 输出图片路径，格式由扩展名推断
	OutputPath string `yaml:"output_path" env:"OUTPUT_PATH"`
	// 快照格式: png, jpeg
	SnapshotFormat string `yaml:"snapshot_format" env:"SNAPSHOT_FORMAT"`
	// 是否并发发送与接收
	Pipelined bool `yaml:"pipelined" env:"PIPELINED"`
	// 发送速率（条/秒），0 表示不限速
	SendRate float64 `yaml:"send_rate" env:"SEND_RATE"`
	// 是否校验每个响应的 request_id
	StrictCorrelation bool `yaml:"strict_correlation" env:"STRICT_CORRELATION"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// node_exporter textfile 输出路径，为空则不导出
	TextfilePath string `yaml:"textfile_path" env:"TEXTFILE_PATH"`
}

// JournalConfig 运行记录配置
type JournalConfig struct {
	// SQLite 文件路径，为空则不记录
	Path string `yaml:"path" env:"PATH"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	legacyEnv  bool
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "CUBESNAP",
		legacyEnv:  true,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithLegacyEnv 控制是否读取 KITTYCAD_API_TOKEN / IMAGE_OUTPUT_PATH
func (l *Loader) WithLegacyEnv(enabled bool) *Loader {
	l.legacyEnv = enabled
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 旧版环境变量 → 带前缀的环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 旧版环境变量
	if l.legacyEnv {
		l.loadLegacyEnv(cfg)
	}

	// 4. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 5. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadLegacyEnv 读取旧版环境变量
func (l *Loader) loadLegacyEnv(cfg *Config) {
	if v := os.Getenv(LegacyTokenEnv); v != "" {
		cfg.Modeling.APIToken = v
	}
	if v := os.Getenv(LegacyOutputPathEnv); v != "" {
		cfg.Session.OutputPath = v
	}
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置，失败时返回 ConfigError
func (c *Config) Validate() error {
	var errs []string

	// 验证连接配置
	if strings.TrimSpace(c.Modeling.APIToken) == "" {
		errs = append(errs, "modeling.api_token is required (set "+LegacyTokenEnv+")")
	}
	if c.Modeling.URL == "" {
		errs = append(errs, "modeling.url is required")
	}
	if c.Modeling.VideoResWidth <= 0 || c.Modeling.VideoResHeight <= 0 {
		errs = append(errs, "video resolution must be positive")
	}
	if c.Modeling.FPS <= 0 {
		errs = append(errs, "fps must be positive")
	}

	// 验证会话配置
	if c.Session.OutputPath == "" {
		errs = append(errs, "session.output_path is required")
	}
	if !(c.Session.HalfWidth > 0) {
		errs = append(errs, "session.half_width must be positive")
	}
	if c.Session.Timeout <= 0 {
		errs = append(errs, "session.timeout must be positive")
	}
	if c.Session.SendRate < 0 {
		errs = append(errs, "session.send_rate must not be negative")
	}
	switch c.Session.SnapshotFormat {
	case "png", "jpeg":
	default:
		errs = append(errs, fmt.Sprintf("unsupported session.snapshot_format %q", c.Session.SnapshotFormat))
	}

	if len(errs) > 0 {
		return types.NewError(types.ErrConfig, "config validation errors: "+strings.Join(errs, "; ")).
			WithPhase(types.PhaseConfig)
	}

	return nil
}
