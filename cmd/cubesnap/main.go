// =============================================================================
// cubesnap 主入口
// =============================================================================
// 连接远端建模服务，绘制并拉伸一个立方体，把渲染快照保存为图片
//
// 使用方法:
//
//	cubesnap snapshot                        # 使用环境变量与默认配置
//	cubesnap snapshot --config cubesnap.yaml # 指定配置文件
//	cubesnap snapshot --output cube.jpg      # 覆盖输出路径
//	cubesnap history                         # 查看最近的运行记录
//	cubesnap version                         # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/cubesnap/config"
	"github.com/BaSui01/cubesnap/internal/ctxkeys"
	"github.com/BaSui01/cubesnap/internal/journal"
	"github.com/BaSui01/cubesnap/internal/metrics"
	"github.com/BaSui01/cubesnap/internal/telemetry"
	"github.com/BaSui01/cubesnap/internal/transport"
	"github.com/BaSui01/cubesnap/session"
	"github.com/BaSui01/cubesnap/types"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	switch args[0] {
	case "snapshot":
		return runSnapshot(args[1:], stdout, stderr)
	case "history":
		return runHistory(args[1:], stdout, stderr)
	case "version":
		printVersion(stdout)
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}
}

// =============================================================================
// 📸 snapshot 命令
// =============================================================================

type snapshotFlags struct {
	configPath  string
	url         string
	output      string
	halfWidth   float64
	timeout     time.Duration
	pipelined   bool
	strict      bool
	journalPath string
	metricsFile string
}

func runSnapshot(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f snapshotFlags
	fs.StringVar(&f.configPath, "config", "", "Path to config file")
	fs.StringVar(&f.url, "url", "", "Modeling WebSocket endpoint")
	fs.StringVar(&f.output, "output", "", "Output image path (extension selects the format)")
	fs.Float64Var(&f.halfWidth, "half-width", 0, "Half the cube edge length")
	fs.DurationVar(&f.timeout, "timeout", 0, "Bound on waiting for the snapshot")
	fs.BoolVar(&f.pipelined, "pipelined", false, "Read responses while still sending")
	fs.BoolVar(&f.strict, "strict", false, "Require every response to answer a sent command")
	fs.StringVar(&f.journalPath, "journal", "", "SQLite file recording every run")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	applySnapshotFlags(cfg, fs, f)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid config: %v\n", err)
		return 1
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Debug("starting cubesnap",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector(cfg.Metrics.Namespace, logger)
	if cfg.Metrics.TextfilePath != "" {
		defer func() {
			if err := collector.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
				logger.Warn("failed to write metrics", zap.Error(err))
			}
		}()
	}

	opts := []session.RunnerOption{
		session.WithLogger(logger),
		session.WithMetrics(collector),
	}
	if inst, err := telemetry.NewInstruments(); err != nil {
		logger.Warn("failed to create telemetry instruments", zap.Error(err))
	} else {
		opts = append(opts, session.WithInstruments(inst))
	}

	var jrnl *journal.Journal
	if cfg.Journal.Path != "" {
		jrnl, err = journal.Open(cfg.Journal.Path, logger)
		if err != nil {
			logger.Warn("journal unavailable, runs will not be recorded", zap.Error(err))
		} else {
			defer jrnl.Close()
			opts = append(opts, session.WithJournal(jrnl))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runID := uuid.NewString()
	ctx = ctxkeys.WithRunID(ctx, runID)

	start := time.Now()
	conn, err := dial(ctx, cfg.Modeling, logger)
	if err != nil {
		logger.Error("connect failed",
			zap.String("run_id", runID),
			zap.String("phase", string(types.PhaseConnect)),
			zap.Error(err))
		if jrnl != nil {
			recordDialFailure(jrnl, cfg, runID, start, err, logger)
		}
		collector.RecordSession(string(types.GetErrorCode(err)), time.Since(start))
		return 1
	}
	defer conn.Close()

	runner := session.NewRunner(session.OptionsFromConfig(cfg.Session), opts...)
	result, err := runner.Run(ctx, conn)
	if err != nil {
		// The runner has already logged the failure with its phase.
		fmt.Fprintf(stderr, "snapshot failed: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, result.Artifact.Path)
	return 0
}

func applySnapshotFlags(cfg *config.Config, fs *flag.FlagSet, f snapshotFlags) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "url":
			cfg.Modeling.URL = f.url
		case "output":
			cfg.Session.OutputPath = f.output
		case "half-width":
			cfg.Session.HalfWidth = f.halfWidth
		case "timeout":
			cfg.Session.Timeout = f.timeout
		case "pipelined":
			cfg.Session.Pipelined = f.pipelined
		case "strict":
			cfg.Session.StrictCorrelation = f.strict
		case "journal":
			cfg.Journal.Path = f.journalPath
		case "metrics-file":
			cfg.Metrics.TextfilePath = f.metricsFile
		}
	})
}

func dial(ctx context.Context, cfg config.ModelingConfig, logger *zap.Logger) (*transport.Conn, error) {
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	return transport.Dial(ctx, transport.OptionsFromConfig(cfg), logger)
}

func recordDialFailure(j *journal.Journal, cfg *config.Config, runID string, start time.Time, err error, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	run := &journal.Run{
		RunID:      runID,
		StartedAt:  start,
		DurationMS: time.Since(start).Milliseconds(),
		Outcome:    string(types.GetErrorCode(err)),
		Phase:      string(types.PhaseConnect),
		Error:      err.Error(),
		Pipelined:  cfg.Session.Pipelined,
		OutputPath: cfg.Session.OutputPath,
	}
	if jerr := j.Record(ctx, run); jerr != nil {
		logger.Warn("journal record failed", zap.Error(jerr))
	}
}

// =============================================================================
// 📜 history 命令
// =============================================================================

func runHistory(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	journalPath := fs.String("journal", "", "SQLite journal file")
	limit := fs.Int("limit", 20, "Number of runs to show")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	path := cfg.Journal.Path
	if *journalPath != "" {
		path = *journalPath
	}
	if path == "" {
		fmt.Fprintln(stderr, "No journal configured (use --journal or CUBESNAP_JOURNAL_PATH)")
		return 1
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "Journal %s does not exist\n", path)
		return 1
	}

	j, err := journal.Open(path, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open journal: %v\n", err)
		return 1
	}
	defer j.Close()

	ctx := context.Background()
	runs, err := j.Recent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to read journal: %v\n", err)
		return 1
	}
	stats, err := j.Stats(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to read journal: %v\n", err)
		return 1
	}

	printHistory(stdout, runs, stats)
	return 0
}

func printHistory(w io.Writer, runs []journal.Run, stats *journal.Stats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tOUTCOME\tPHASE\tFRAMES\tDURATION\tOUTPUT")
	for _, r := range runs {
		phase := r.Phase
		if phase == "" {
			phase = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Outcome,
			phase,
			r.Frames,
			(time.Duration(r.DurationMS) * time.Millisecond).String(),
			r.OutputPath,
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d runs, %d succeeded\n", stats.Total, stats.Succeeded)
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "cubesnap %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `cubesnap - render an extruded cube on a remote modeling service

Usage:
  cubesnap <command> [options]

Commands:
  snapshot  Draw the cube and save the rendered snapshot
  history   Show recorded runs
  version   Show version information
  help      Show this help message

Options for 'snapshot':
  --config <path>        Path to configuration file (YAML)
  --url <url>            Modeling WebSocket endpoint
  --output <path>        Output image (.png, .jpg, .gif, .bmp, .tiff)
  --half-width <n>       Half the cube edge length (default 10)
  --timeout <d>          Bound on waiting for the snapshot (default 10s)
  --pipelined            Read responses while still sending
  --strict               Require every response to answer a sent command
  --journal <path>       Record the run in this SQLite file
  --metrics-file <path>  Write Prometheus metrics in textfile format

Environment:
  KITTYCAD_API_TOKEN     API token (required)
  IMAGE_OUTPUT_PATH      Output image path (default model.png)
  CUBESNAP_*             Any config field, e.g. CUBESNAP_SESSION_TIMEOUT=30s

Examples:
  cubesnap snapshot
  cubesnap snapshot --output cube.jpg --half-width 5
  cubesnap history --journal runs.db
  cubesnap version`)
}

// =============================================================================
// 🔧 配置与日志初始化
// =============================================================================

func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	return loader.Load()
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
