package session

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/cubesnap/modeling"
	"github.com/BaSui01/cubesnap/protocol"
	"github.com/BaSui01/cubesnap/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CubeCommands returns the nine requests that draw a square of half-width
// w in the z = -w plane, extrude it by 2w into a cube and photograph it as
// PNG. newID supplies correlation ids; nil means uuid.New.
func CubeCommands(halfWidth float64, newID func() uuid.UUID) []modeling.Request {
	return BuildCube(halfWidth, modeling.ImageFormatPNG, newID)
}

// BuildCube is CubeCommands with a chosen snapshot format.
func BuildCube(halfWidth float64, format modeling.ImageFormat, newID func() uuid.UUID) []modeling.Request {
	if newID == nil {
		newID = uuid.New
	}
	w := halfWidth
	path := newID()

	corners := []modeling.Point3D{
		{X: w, Y: -w, Z: -w},
		{X: w, Y: w, Z: -w},
		{X: -w, Y: w, Z: -w},
		{X: -w, Y: -w, Z: -w},
	}

	reqs := make([]modeling.Request, 0, len(corners)+5)
	reqs = append(reqs,
		modeling.Request{Cmd: modeling.StartPath{}, CmdID: path},
		modeling.Request{
			Cmd:   modeling.MovePathPen{Path: path, To: modeling.Point3D{X: -w, Y: -w, Z: -w}},
			CmdID: newID(),
		},
	)
	for _, end := range corners {
		reqs = append(reqs, modeling.Request{
			Cmd:   modeling.ExtendPath{Path: path, Segment: modeling.Line{End: end}},
			CmdID: newID(),
		})
	}
	reqs = append(reqs,
		modeling.Request{Cmd: modeling.ClosePath{PathID: path}, CmdID: newID()},
		modeling.Request{Cmd: modeling.Extrude{Target: path, Distance: 2 * w, Cap: true}, CmdID: newID()},
		modeling.Request{Cmd: modeling.TakeSnapshot{Format: format}, CmdID: newID()},
	)
	return reqs
}

// IDs returns the correlation ids of reqs in order.
func IDs(reqs []modeling.Request) []uuid.UUID {
	ids := make([]uuid.UUID, len(reqs))
	for i, r := range reqs {
		ids[i] = r.CmdID
	}
	return ids
}

// SentFunc observes every send attempt. err is nil on success.
type SentFunc func(index int, req modeling.Request, err error)

// Sequencer writes requests to the outbound half in order, without
// waiting for acknowledgements.
type Sequencer struct {
	limiter *rate.Limiter
	onSent  SentFunc
	logger  *zap.Logger
}

// SequencerOption configures a Sequencer.
type SequencerOption func(*Sequencer)

// WithSendRate paces sends to perSecond frames per second. Zero or less
// disables pacing.
func WithSendRate(perSecond float64) SequencerOption {
	return func(s *Sequencer) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			s.limiter = nil
		}
	}
}

// WithSentHook registers a per-send callback.
func WithSentHook(f SentFunc) SequencerOption {
	return func(s *Sequencer) { s.onSent = f }
}

// WithSequencerLogger sets the logger.
func WithSequencerLogger(l *zap.Logger) SequencerOption {
	return func(s *Sequencer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSequencer creates a sequencer.
func NewSequencer(opts ...SequencerOption) *Sequencer {
	s := &Sequencer{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "sequencer"))
	return s
}

// Send encodes and writes each request as one text frame. The first
// failure stops the batch and is returned as a SendError naming the
// command; sent holds the ids written before it. tx is closed exactly once
// whatever happens.
func (s *Sequencer) Send(ctx context.Context, tx protocol.Sender, reqs []modeling.Request) (sent []uuid.UUID, err error) {
	defer func() {
		if cerr := tx.Close(); cerr != nil && err == nil {
			err = types.NewError(types.ErrSend, "close send half").WithCause(cerr).WithPhase(types.PhaseSend)
		}
	}()

	start := time.Now()
	sent = make([]uuid.UUID, 0, len(reqs))
	for i, req := range reqs {
		if s.limiter != nil {
			if werr := s.limiter.Wait(ctx); werr != nil {
				return sent, s.fail(i, req, werr)
			}
		}
		if serr := tx.Send(ctx, protocol.Encode(req.Cmd, req.CmdID)); serr != nil {
			return sent, s.fail(i, req, serr)
		}
		sent = append(sent, req.CmdID)
		if s.onSent != nil {
			s.onSent(i, req, nil)
		}
		s.logger.Debug("command sent",
			zap.Int("index", i),
			zap.String("command", string(req.Cmd.CommandType())),
			zap.Stringer("cmd_id", req.CmdID))
	}

	s.logger.Debug("all commands sent", zap.Int("count", len(sent)), zap.Duration("took", time.Since(start)))
	return sent, nil
}

func (s *Sequencer) fail(i int, req modeling.Request, cause error) error {
	if s.onSent != nil {
		s.onSent(i, req, cause)
	}
	return types.NewError(types.ErrSend,
		fmt.Sprintf("send command %d (%s)", i, req.Cmd.CommandType())).
		WithCause(cause).
		WithPhase(types.PhaseSend)
}
