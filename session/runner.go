package session

import (
	"context"
	"time"

	"github.com/BaSui01/cubesnap/artifact"
	"github.com/BaSui01/cubesnap/config"
	"github.com/BaSui01/cubesnap/internal/ctxkeys"
	"github.com/BaSui01/cubesnap/internal/journal"
	"github.com/BaSui01/cubesnap/internal/metrics"
	"github.com/BaSui01/cubesnap/internal/telemetry"
	"github.com/BaSui01/cubesnap/modeling"
	"github.com/BaSui01/cubesnap/protocol"
	"github.com/BaSui01/cubesnap/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Conn is a duplex channel that can be split into its two owned halves.
type Conn interface {
	Split() (protocol.Sender, protocol.Receiver)
}

// Recorder persists finished runs.
type Recorder interface {
	Record(ctx context.Context, r *journal.Run) error
}

// Options are the per-run settings.
type Options struct {
	HalfWidth         float64
	Format            modeling.ImageFormat
	OutputPath        string
	Timeout           time.Duration
	Pipelined         bool
	SendRate          float64
	StrictCorrelation bool
}

// OptionsFromConfig maps the session section of the config.
func OptionsFromConfig(cfg config.SessionConfig) Options {
	return Options{
		HalfWidth:         cfg.HalfWidth,
		Format:            modeling.ImageFormat(cfg.SnapshotFormat),
		OutputPath:        cfg.OutputPath,
		Timeout:           cfg.Timeout,
		Pipelined:         cfg.Pipelined,
		SendRate:          cfg.SendRate,
		StrictCorrelation: cfg.StrictCorrelation,
	}
}

// Result describes a successful run.
type Result struct {
	Artifact   *artifact.Info
	SnapshotID uuid.UUID
	Sent       int
	Frames     int
	Acks       int
	Duration   time.Duration
}

// Runner drives one session: send the cube commands, drain the responses
// until the snapshot, then decode and save it. It never retries.
type Runner struct {
	opts        Options
	logger      *zap.Logger
	metrics     *metrics.Collector
	journal     Recorder
	instruments *telemetry.Instruments
	tracer      trace.Tracer
	newID       func() uuid.UUID
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records Prometheus metrics.
func WithMetrics(c *metrics.Collector) RunnerOption {
	return func(r *Runner) { r.metrics = c }
}

// WithJournal records every run, failed or not.
func WithJournal(j Recorder) RunnerOption {
	return func(r *Runner) { r.journal = j }
}

// WithInstruments records OTel spans and meters.
func WithInstruments(i *telemetry.Instruments) RunnerOption {
	return func(r *Runner) {
		if i != nil {
			r.instruments = i
			r.tracer = i.Tracer()
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) RunnerOption {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithIDSource replaces uuid.New for correlation ids.
func WithIDSource(f func() uuid.UUID) RunnerOption {
	return func(r *Runner) {
		if f != nil {
			r.newID = f
		}
	}
}

// NewRunner creates a runner.
func NewRunner(opts Options, ro ...RunnerOption) *Runner {
	if opts.Format == "" {
		opts.Format = modeling.ImageFormatPNG
	}
	if opts.Timeout <= 0 {
		opts.Timeout = protocol.DefaultReceiveTimeout
	}
	r := &Runner{
		opts:   opts,
		logger: zap.NewNop(),
		tracer: telemetry.Tracer(),
		newID:  uuid.New,
	}
	for _, o := range ro {
		o(r)
	}
	r.logger = r.logger.With(zap.String("component", "session"))
	return r
}

// Run performs the session over conn. Errors are *types.Error tagged with
// the phase that failed. A run id already on ctx is reused; otherwise one is
// generated.
func (r *Runner) Run(ctx context.Context, conn Conn) (*Result, error) {
	start := time.Now()
	runID, ok := ctxkeys.RunID(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = ctxkeys.WithRunID(ctx, runID)
	}
	ctx, span := r.tracer.Start(ctx, "cubesnap.session",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Float64("cube.half_width", r.opts.HalfWidth),
			attribute.Bool("session.pipelined", r.opts.Pipelined),
			attribute.String("artifact.path", r.opts.OutputPath),
		))
	defer span.End()
	if sc := span.SpanContext(); sc.HasTraceID() {
		ctx = ctxkeys.WithTraceID(ctx, sc.TraceID().String())
	}
	logger := r.runLogger(ctx)

	reqs := BuildCube(r.opts.HalfWidth, r.opts.Format, r.newID)
	tx, rx := conn.Split()

	seq := NewSequencer(
		WithSendRate(r.opts.SendRate),
		WithSequencerLogger(logger),
		WithSentHook(r.observeSend),
	)
	corr := r.correlator(reqs, logger)

	logger.Info("session started",
		zap.Int("commands", len(reqs)),
		zap.Stringer("path_id", reqs[0].CmdID),
		zap.Bool("pipelined", r.opts.Pipelined))

	var (
		sent    []uuid.UUID
		drained *protocol.DrainResult
		err     error
	)
	if r.opts.Pipelined {
		sent, drained, err = r.exchangePipelined(ctx, seq, corr, tx, rx, reqs)
	} else {
		sent, drained, err = r.exchangeSequential(ctx, seq, corr, tx, rx, reqs)
	}

	result := &Result{Sent: len(sent)}
	if drained != nil {
		result.Frames = drained.Frames
		result.Acks = drained.Acks
		result.SnapshotID = drained.RequestID
	}
	if err != nil {
		return nil, r.finish(ctx, span, start, result, err)
	}

	info, err := r.save(ctx, drained.Artifact)
	if err != nil {
		return nil, r.finish(ctx, span, start, result, err)
	}
	result.Artifact = info
	return result, r.finish(ctx, span, start, result, nil)
}

// runLogger tags r.logger with the ids carried on ctx.
func (r *Runner) runLogger(ctx context.Context) *zap.Logger {
	logger := r.logger
	if id, ok := ctxkeys.RunID(ctx); ok {
		logger = logger.With(zap.String("run_id", id))
	}
	if id, ok := ctxkeys.TraceID(ctx); ok {
		logger = logger.With(zap.String("trace_id", id))
	}
	return logger
}

func (r *Runner) correlator(reqs []modeling.Request, logger *zap.Logger) *protocol.Correlator {
	opts := []protocol.Option{
		protocol.WithTimeout(r.opts.Timeout),
		protocol.WithLogger(logger),
		protocol.WithObserver(r.observeFrame),
	}
	if r.opts.StrictCorrelation {
		opts = append(opts, protocol.WithTracker(protocol.NewTracker(IDs(reqs))))
	}
	return protocol.NewCorrelator(opts...)
}

func (r *Runner) exchangeSequential(ctx context.Context, seq *Sequencer, corr *protocol.Correlator,
	tx protocol.Sender, rx protocol.Receiver, reqs []modeling.Request) ([]uuid.UUID, *protocol.DrainResult, error) {
	sent, err := r.send(ctx, seq, tx, reqs)
	if err != nil {
		return sent, nil, err
	}
	drained, err := r.drain(ctx, corr, rx)
	return sent, drained, err
}

// exchangePipelined reads while still writing. The first failure on
// either side cancels the other.
func (r *Runner) exchangePipelined(ctx context.Context, seq *Sequencer, corr *protocol.Correlator,
	tx protocol.Sender, rx protocol.Receiver, reqs []modeling.Request) ([]uuid.UUID, *protocol.DrainResult, error) {
	var (
		sent    []uuid.UUID
		drained *protocol.DrainResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sent, err = r.send(gctx, seq, tx, reqs)
		return err
	})
	g.Go(func() error {
		var err error
		drained, err = r.drain(gctx, corr, rx)
		return err
	})
	err := g.Wait()
	return sent, drained, err
}

func (r *Runner) send(ctx context.Context, seq *Sequencer, tx protocol.Sender, reqs []modeling.Request) ([]uuid.UUID, error) {
	ctx, span := r.tracer.Start(ctx, "cubesnap.send")
	defer span.End()

	start := time.Now()
	sent, err := seq.Send(ctx, tx, reqs)
	if r.metrics != nil {
		r.metrics.RecordSendBatch(time.Since(start))
	}
	span.SetAttributes(attribute.Int("commands.sent", len(sent)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return sent, types.InPhase(err, types.PhaseSend, types.ErrSend)
	}
	return sent, nil
}

func (r *Runner) drain(ctx context.Context, corr *protocol.Correlator, rx protocol.Receiver) (*protocol.DrainResult, error) {
	ctx, span := r.tracer.Start(ctx, "cubesnap.receive")
	defer span.End()

	drained, err := corr.Drain(ctx, rx)
	if drained != nil {
		span.SetAttributes(
			attribute.Int("frames", drained.Frames),
			attribute.Int("acks", drained.Acks))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "receive failed")
		return drained, types.InPhase(err, types.PhaseReceive, types.ErrConnection)
	}
	return drained, nil
}

func (r *Runner) save(ctx context.Context, data []byte) (*artifact.Info, error) {
	_, span := r.tracer.Start(ctx, "cubesnap.artifact")
	defer span.End()

	info, err := artifact.DecodeAndSave(data, r.opts.Format, r.opts.OutputPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "artifact failed")
		return nil, types.InPhase(err, types.PhaseArtifact, types.ErrIO)
	}
	span.SetAttributes(
		attribute.Int("image.width", info.Width),
		attribute.Int("image.height", info.Height),
		attribute.String("image.container", string(info.Container)))
	if r.metrics != nil {
		r.metrics.RecordArtifact(info.Bytes)
	}
	return info, nil
}

// finish records the outcome everywhere and returns err unchanged.
func (r *Runner) finish(ctx context.Context, span trace.Span, start time.Time, result *Result, err error) error {
	result.Duration = time.Since(start)
	logger := r.runLogger(ctx)
	outcome := journal.OutcomeSuccess
	var phase types.Phase
	if err != nil {
		outcome = string(types.GetErrorCode(err))
		if e, ok := types.AsError(err); ok {
			phase = e.Phase
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		logger.Error("session failed",
			zap.String("phase", string(phase)),
			zap.String("code", outcome),
			zap.Int("sent", result.Sent),
			zap.Int("frames", result.Frames),
			zap.Duration("duration", result.Duration),
			zap.Error(err))
	} else {
		span.SetStatus(codes.Ok, "")
		logger.Info("snapshot saved",
			zap.String("path", result.Artifact.Path),
			zap.Int("width", result.Artifact.Width),
			zap.Int("height", result.Artifact.Height),
			zap.Int("frames", result.Frames),
			zap.Duration("duration", result.Duration))
	}

	if r.metrics != nil {
		r.metrics.RecordSession(outcome, result.Duration)
	}
	if r.instruments != nil {
		r.instruments.RecordSession(ctx, outcome, result.Frames, result.Duration)
	}
	if r.journal != nil {
		run := r.journalRun(ctx, start, outcome, phase, result, err)
		// The run's own context may already be done; the record must still land.
		jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if jerr := r.journal.Record(jctx, run); jerr != nil {
			logger.Warn("journal record failed", zap.Error(jerr))
		}
	}
	return err
}

func (r *Runner) journalRun(ctx context.Context, start time.Time, outcome string, phase types.Phase, result *Result, err error) *journal.Run {
	runID, _ := ctxkeys.RunID(ctx)
	traceID, _ := ctxkeys.TraceID(ctx)
	run := &journal.Run{
		RunID:      runID,
		TraceID:    traceID,
		StartedAt:  start,
		DurationMS: result.Duration.Milliseconds(),
		Outcome:    outcome,
		Phase:      string(phase),
		Commands:   result.Sent,
		Frames:     result.Frames,
		Acks:       result.Acks,
		Pipelined:  r.opts.Pipelined,
		OutputPath: r.opts.OutputPath,
	}
	if err != nil {
		run.Error = err.Error()
	}
	if result.Artifact != nil {
		run.Width = result.Artifact.Width
		run.Height = result.Artifact.Height
		run.Bytes = result.Artifact.Bytes
	}
	if result.SnapshotID != uuid.Nil {
		run.SnapshotID = result.SnapshotID.String()
	}
	return run
}

func (r *Runner) observeSend(_ int, req modeling.Request, err error) {
	if r.metrics == nil {
		return
	}
	if err != nil {
		r.metrics.RecordCommandFailed(string(req.Cmd.CommandType()))
		return
	}
	r.metrics.RecordCommandSent(string(req.Cmd.CommandType()))
}

func (r *Runner) observeFrame(kind protocol.FrameKind, label string) {
	if r.metrics != nil {
		r.metrics.RecordFrame(kind.String(), label)
	}
}
