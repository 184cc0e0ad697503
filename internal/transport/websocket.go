package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/BaSui01/cubesnap/config"
	"github.com/BaSui01/cubesnap/internal/tlsutil"
	"github.com/BaSui01/cubesnap/protocol"
	"github.com/BaSui01/cubesnap/types"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// ErrSenderClosed is returned by Send after the outbound half was closed.
var ErrSenderClosed = errors.New("websocket: send half is closed")

// Options configures the modeling session dial.
type Options struct {
	URL               string
	Token             string
	FPS               int
	UnlockedFramerate bool
	VideoResWidth     int
	VideoResHeight    int
	WebRTC            bool
	// ReadLimit bounds one inbound message. Snapshots easily exceed the
	// library default of 32 KiB.
	ReadLimit int64
	// DialTimeout bounds the TCP connect of the default client.
	DialTimeout time.Duration
	// HTTPClient overrides the client used for the upgrade request.
	HTTPClient *http.Client
}

// OptionsFromConfig maps the modeling section of the config.
func OptionsFromConfig(cfg config.ModelingConfig) Options {
	return Options{
		URL:               cfg.URL,
		Token:             cfg.APIToken,
		FPS:               cfg.FPS,
		UnlockedFramerate: cfg.UnlockedFramerate,
		VideoResWidth:     cfg.VideoResWidth,
		VideoResHeight:    cfg.VideoResHeight,
		WebRTC:            cfg.WebRTC,
		ReadLimit:         cfg.ReadLimit,
		DialTimeout:       cfg.DialTimeout,
	}
}

// SessionURL appends the stream parameters to the endpoint. Parameters
// already present on the endpoint are kept.
func SessionURL(opts Options) (string, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return "", fmt.Errorf("parse modeling url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return "", fmt.Errorf("unsupported modeling url scheme %q", u.Scheme)
	}

	q := u.Query()
	setDefault := func(key, value string) {
		if !q.Has(key) {
			q.Set(key, value)
		}
	}
	setDefault("fps", strconv.Itoa(opts.FPS))
	setDefault("unlocked_framerate", strconv.FormatBool(opts.UnlockedFramerate))
	setDefault("video_res_height", strconv.Itoa(opts.VideoResHeight))
	setDefault("video_res_width", strconv.Itoa(opts.VideoResWidth))
	setDefault("webrtc", strconv.FormatBool(opts.WebRTC))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Conn is an established modeling session socket.
type Conn struct {
	ws     *websocket.Conn
	logger *zap.Logger

	splitOnce sync.Once
	tx        *sender
	rx        *receiver
}

// Dial opens the modeling session. Failures are ConnectionErrors.
func Dial(ctx context.Context, opts Options, logger *zap.Logger) (*Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "transport"))

	target, err := SessionURL(opts)
	if err != nil {
		return nil, types.NewError(types.ErrConnection, "invalid endpoint").
			WithCause(err).WithPhase(types.PhaseConnect)
	}

	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}

	client := opts.HTTPClient
	if client == nil {
		client = tlsutil.UpgradeClient(opts.DialTimeout)
	}
	ws, resp, err := websocket.Dial(ctx, target, &websocket.DialOptions{
		HTTPClient: client,
		HTTPHeader: header,
	})
	if err != nil {
		e := types.NewError(types.ErrConnection, "websocket dial failed").
			WithCause(err).WithPhase(types.PhaseConnect)
		if resp != nil {
			e = e.WithDetail(resp.Status)
		}
		return nil, e
	}
	if opts.ReadLimit > 0 {
		ws.SetReadLimit(opts.ReadLimit)
	}

	logger.Debug("websocket connected", zap.String("url", redact(target)))
	return NewConn(ws, logger), nil
}

// NewConn wraps an established socket.
func NewConn(ws *websocket.Conn, logger *zap.Logger) *Conn {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conn{ws: ws, logger: logger}
}

// Split returns the two halves. Repeated calls return the same halves.
func (c *Conn) Split() (protocol.Sender, protocol.Receiver) {
	c.splitOnce.Do(func() {
		c.tx = &sender{ws: c.ws, logger: c.logger}
		c.rx = &receiver{ws: c.ws}
	})
	return c.tx, c.rx
}

// Close tears down the whole connection with a normal closure.
func (c *Conn) Close() error {
	err := c.ws.Close(websocket.StatusNormalClosure, "done")
	if err != nil && (isClosed(err) || errors.Is(err, net.ErrClosed)) {
		return nil
	}
	return err
}

// sender is the outbound half. WebSocket has no half-close, so Close only
// stops further sends and leaves the socket readable.
type sender struct {
	ws     *websocket.Conn
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

func (s *sender) Send(ctx context.Context, text []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSenderClosed
	}
	if err := s.ws.Write(ctx, websocket.MessageText, text); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

func (s *sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		s.logger.Debug("send half closed")
	}
	return nil
}

// receiver is the inbound half. The library answers pings internally and
// never surfaces control frames, so only text and binary frames appear.
type receiver struct {
	ws *websocket.Conn
}

func (r *receiver) Receive(ctx context.Context) (protocol.Frame, error) {
	typ, data, err := r.ws.Read(ctx)
	if err != nil {
		if isClosed(err) {
			return protocol.Frame{}, io.EOF
		}
		return protocol.Frame{}, fmt.Errorf("websocket read: %w", err)
	}

	switch typ {
	case websocket.MessageText:
		return protocol.Frame{Kind: protocol.FrameText, Data: data}, nil
	default:
		return protocol.Frame{Kind: protocol.FrameBinary, Data: data}, nil
	}
}

// isClosed reports whether err is an orderly close by the peer.
func isClosed(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, io.EOF)
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.User = nil
	return u.String()
}
