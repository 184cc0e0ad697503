package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/BaSui01/cubesnap/modeling"
	"github.com/BaSui01/cubesnap/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultReceiveTimeout bounds the whole drain.
const DefaultReceiveTimeout = 10 * time.Second

// ObserveFunc is told about every frame the correlator reads. label is the
// response label for text frames (see ResponseLabel) and empty otherwise.
type ObserveFunc func(kind FrameKind, label string)

// DrainResult describes a completed drain.
type DrainResult struct {
	Artifact  []byte
	RequestID uuid.UUID
	// Frames counts every frame read, keep-alives included.
	Frames int
	// Acks counts decoded responses that were discarded.
	Acks int
}

// Correlator consumes the inbound half until the snapshot response arrives.
type Correlator struct {
	timeout time.Duration
	tracker *Tracker
	observe ObserveFunc
	logger  *zap.Logger
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithTimeout overrides DefaultReceiveTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Correlator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTracker requires every response to answer a pending request.
func WithTracker(t *Tracker) Option {
	return func(c *Correlator) { c.tracker = t }
}

// WithObserver registers a per-frame callback.
func WithObserver(f ObserveFunc) Option {
	return func(c *Correlator) { c.observe = f }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Correlator) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCorrelator creates a correlator.
func NewCorrelator(opts ...Option) *Correlator {
	c := &Correlator{
		timeout: DefaultReceiveTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "correlator"))
	return c
}

// Drain reads frames until a take_snapshot response is found, the stream
// ends, an error occurs or the timeout elapses. Frames after the snapshot
// are never read. The returned result is non-nil even on error and holds
// the counts reached so far.
func (c *Correlator) Drain(ctx context.Context, rx Receiver) (*DrainResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result := &DrainResult{}
	for {
		frame, err := c.next(ctx, rx)
		if err != nil {
			return result, c.receiveError(ctx, err, result)
		}
		result.Frames++

		if frame.Kind.IsControl() {
			c.notify(frame.Kind, "")
			continue
		}
		if frame.Kind != FrameText {
			c.notify(frame.Kind, "")
			return result, types.NewError(types.ErrUnexpectedFrameKind,
				fmt.Sprintf("only text or keep-alive frames are expected, got %s", frame.Kind))
		}

		resp, err := Decode(frame.Data)
		if err != nil {
			c.notify(frame.Kind, labelForError(err))
			return result, err
		}
		c.notify(frame.Kind, ResponseLabel(resp.Data))

		// Only modeling results answer a sent command; other subsystems
		// push unsolicited responses and are discarded untracked.
		if c.tracker != nil && resp.Data.Type == modeling.ResponseModeling {
			if err := c.tracker.Ack(resp.RequestID); err != nil {
				return result, err
			}
		}

		data, ok, err := resp.Snapshot()
		if err != nil {
			return result, types.NewError(types.ErrMalformedFrame, "snapshot payload is not decodable").WithCause(err)
		}
		if ok {
			result.Artifact = data
			result.RequestID = resp.RequestID
			c.logger.Debug("snapshot received",
				zap.Int("frames", result.Frames),
				zap.Int("bytes", len(data)),
				zap.Stringer("request_id", resp.RequestID))
			return result, nil
		}

		result.Acks++
		c.logger.Debug("response acknowledged",
			zap.String("response", ResponseLabel(resp.Data)),
			zap.Stringer("request_id", resp.RequestID))
	}
}

// next waits for one frame or for ctx to end, whichever comes first. A
// receiver that ignores ctx is abandoned rather than waited on.
func (c *Correlator) next(ctx context.Context, rx Receiver) (Frame, error) {
	type received struct {
		frame Frame
		err   error
	}
	ch := make(chan received, 1)
	go func() {
		f, err := rx.Receive(ctx)
		ch <- received{f, err}
	}()

	select {
	case r := <-ch:
		return r.frame, r.err
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (c *Correlator) receiveError(ctx context.Context, err error, result *DrainResult) error {
	switch {
	case errors.Is(err, io.EOF):
		return types.NewError(types.ErrStreamEndedWithoutArtifact,
			fmt.Sprintf("stream ended after %d frames without a snapshot", result.Frames))
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return types.NewError(types.ErrTimeout,
			fmt.Sprintf("no snapshot within %s (%d frames read)", c.timeout, result.Frames)).
			WithCause(err)
	default:
		return types.NewError(types.ErrConnection, "receive failed").WithCause(err)
	}
}

func (c *Correlator) notify(kind FrameKind, label string) {
	if c.observe != nil {
		c.observe(kind, label)
	}
}

// ResponseLabel names a response for logs and metrics: the modeling result
// type for modeling responses, the subsystem type otherwise.
func ResponseLabel(d modeling.OkResponseData) string {
	m, ok, err := d.Modeling()
	if !ok {
		return string(d.Type)
	}
	if err != nil || m.Type == "" {
		return string(modeling.ResponseModeling)
	}
	return string(m.Type)
}

func labelForError(err error) string {
	if types.IsCode(err, types.ErrRemote) {
		return "failure"
	}
	return "malformed"
}
