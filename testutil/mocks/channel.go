// 双工通道两半的测试模拟实现。
//
// 支持脚本化回放、阻塞、发送记录与错误注入场景。
package mocks

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/BaSui01/cubesnap/protocol"
)

// ErrOverPolled 在脚本耗尽后仍被拉取时返回（严格模式）
var ErrOverPolled = errors.New("mocks: receiver polled past end of script")

// --- ScriptedReceiver ---

// ScriptedReceiver 按顺序回放预设帧，脚本耗尽后返回 End（默认 io.EOF）。
type ScriptedReceiver struct {
	mu     sync.Mutex
	frames []protocol.Frame
	polls  int

	// End 是脚本耗尽后返回的错误
	End error
	// Strict 为 true 时，脚本耗尽后的任何拉取都返回 ErrOverPolled 并记录
	Strict     bool
	overPolled bool
}

// NewScriptedReceiver 创建回放 frames 的接收端
func NewScriptedReceiver(frames ...protocol.Frame) *ScriptedReceiver {
	return &ScriptedReceiver{frames: frames, End: io.EOF}
}

// NewStrictReceiver 创建脚本耗尽后拒绝继续拉取的接收端
func NewStrictReceiver(frames ...protocol.Frame) *ScriptedReceiver {
	r := NewScriptedReceiver(frames...)
	r.Strict = true
	return r
}

// Receive 实现 protocol.Receiver
func (r *ScriptedReceiver) Receive(ctx context.Context) (protocol.Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return protocol.Frame{}, err
	}
	if r.polls >= len(r.frames) {
		if r.Strict {
			r.overPolled = true
			return protocol.Frame{}, ErrOverPolled
		}
		return protocol.Frame{}, r.End
	}
	f := r.frames[r.polls]
	r.polls++
	return f, nil
}

// Polls 返回成功交付的帧数
func (r *ScriptedReceiver) Polls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.polls
}

// OverPolled 报告是否在脚本耗尽后被拉取过
func (r *ScriptedReceiver) OverPolled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overPolled
}

// --- BlockingReceiver ---

// BlockingReceiver 从不产出帧。IgnoreContext 为 false 时在 ctx 结束后返回
// ctx.Err()；为 true 时一直阻塞到 Release 被调用。
type BlockingReceiver struct {
	IgnoreContext bool

	once    sync.Once
	release chan struct{}
}

// NewBlockingReceiver 创建阻塞接收端
func NewBlockingReceiver() *BlockingReceiver {
	return &BlockingReceiver{release: make(chan struct{})}
}

// Receive 实现 protocol.Receiver
func (r *BlockingReceiver) Receive(ctx context.Context) (protocol.Frame, error) {
	if r.IgnoreContext {
		<-r.release
		return protocol.Frame{}, io.EOF
	}
	select {
	case <-ctx.Done():
		return protocol.Frame{}, ctx.Err()
	case <-r.release:
		return protocol.Frame{}, io.EOF
	}
}

// Release 解除所有阻塞中的 Receive
func (r *BlockingReceiver) Release() {
	r.once.Do(func() { close(r.release) })
}

// --- RecordingSender ---

// RecordingSender 记录每次发送的文本帧。
type RecordingSender struct {
	mu     sync.Mutex
	sent   [][]byte
	closes int

	// FailAt >= 0 时，第 FailAt 次发送（从 0 计）返回 Err
	FailAt int
	Err    error
}

// NewRecordingSender 创建不注入错误的发送端
func NewRecordingSender() *RecordingSender {
	return &RecordingSender{FailAt: -1}
}

// NewFailingSender 创建在第 n 次发送时失败的发送端
func NewFailingSender(n int, err error) *RecordingSender {
	return &RecordingSender{FailAt: n, Err: err}
}

// Send 实现 protocol.Sender
func (s *RecordingSender) Send(ctx context.Context, text []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closes > 0 {
		return errors.New("mocks: send on closed sender")
	}
	if s.FailAt >= 0 && len(s.sent) == s.FailAt {
		return s.Err
	}
	s.sent = append(s.sent, append([]byte(nil), text...))
	return nil
}

// Close 实现 protocol.Sender
func (s *RecordingSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// Sent 返回已发送帧的副本
func (s *RecordingSender) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sent))
	copy(out, s.sent)
	return out
}

// Closes 返回 Close 被调用的次数
func (s *RecordingSender) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// --- Conn ---

// Conn 把一对模拟的两半组合成可拆分的连接
type Conn struct {
	Tx protocol.Sender
	Rx protocol.Receiver

	mu     sync.Mutex
	splits int
}

// Split 返回两半
func (c *Conn) Split() (protocol.Sender, protocol.Receiver) {
	c.mu.Lock()
	c.splits++
	c.mu.Unlock()
	return c.Tx, c.Rx
}

// Splits 返回 Split 被调用的次数
func (c *Conn) Splits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.splits
}
