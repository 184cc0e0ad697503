package protocol

import (
	"context"
	"fmt"
)

// FrameKind classifies a frame read from the channel.
type FrameKind int

const (
	FrameText FrameKind = iota
	FrameBinary
	FramePing
	FramePong
	FrameClose
)

func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	case FramePing:
		return "ping"
	case FramePong:
		return "pong"
	case FrameClose:
		return "close"
	default:
		return fmt.Sprintf("frame(%d)", int(k))
	}
}

// IsControl reports whether the frame is a keep-alive with no payload.
func (k FrameKind) IsControl() bool {
	return k == FramePing || k == FramePong
}

// Frame is one message read from the inbound half.
type Frame struct {
	Kind FrameKind
	Data []byte
}

// Sender is the outbound half of a duplex channel. Close signals that no
// more commands will be sent; it does not tear down the inbound half.
type Sender interface {
	Send(ctx context.Context, text []byte) error
	Close() error
}

// Receiver is the inbound half of a duplex channel. Receive returns io.EOF
// once the peer has ended the stream.
type Receiver interface {
	Receive(ctx context.Context) (Frame, error)
}
