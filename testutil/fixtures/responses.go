// =============================================================================
// 📦 测试数据工厂 - 入站响应帧
// =============================================================================
// 提供预定义的成功/失败信封帧与快照数据，用于测试
// =============================================================================
package fixtures

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"

	"github.com/BaSui01/cubesnap/modeling"
	"github.com/BaSui01/cubesnap/protocol"
	"github.com/google/uuid"
)

// =============================================================================
// 🎯 信封帧工厂
// =============================================================================

// SuccessFrame 返回 {"success":true,...} 文本帧
func SuccessFrame(requestID uuid.UUID, data modeling.OkResponseData) protocol.Frame {
	return text(map[string]any{
		"success":    true,
		"request_id": requestID,
		"resp":       data,
	})
}

// FailureFrame 返回 {"success":false,...} 文本帧
func FailureFrame(requestID uuid.UUID, errs ...modeling.ErrorDetail) protocol.Frame {
	if errs == nil {
		errs = []modeling.ErrorDetail{}
	}
	return text(map[string]any{
		"success":    false,
		"request_id": requestID,
		"errors":     errs,
	})
}

// EmptyAck 返回几何命令的空确认帧
func EmptyAck(requestID uuid.UUID) protocol.Frame {
	return SuccessFrame(requestID, modeling.EmptyResponse())
}

// Snapshot 返回携带图像数据的快照响应帧
func Snapshot(requestID uuid.UUID, contents []byte) protocol.Frame {
	return SuccessFrame(requestID, modeling.SnapshotResponse(contents))
}

// OtherSubsystem 返回非建模子系统的成功帧
func OtherSubsystem(requestID uuid.UUID) protocol.Frame {
	return SuccessFrame(requestID, modeling.OkResponseData{
		Type: modeling.ResponseIceServerInfo,
		Data: json.RawMessage(`{"ice_servers":[{"urls":["stun:stun.example.com"]}]}`),
	})
}

// Pong 返回保活控制帧
func Pong() protocol.Frame {
	return protocol.Frame{Kind: protocol.FramePong}
}

// Binary 返回二进制帧
func Binary(data []byte) protocol.Frame {
	return protocol.Frame{Kind: protocol.FrameBinary, Data: data}
}

// Raw 返回原样文本帧
func Raw(s string) protocol.Frame {
	return protocol.Frame{Kind: protocol.FrameText, Data: []byte(s)}
}

func text(v any) protocol.Frame {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return protocol.Frame{Kind: protocol.FrameText, Data: data}
}

// =============================================================================
// 🖼️ 图像样例
// =============================================================================

// PNG 返回 w×h 的渐变 PNG 编码
func PNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 255 / max(w, 1)), G: uint8(y * 255 / max(h, 1)), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// TruncatedPNG 返回被截断的 PNG
func TruncatedPNG() []byte {
	data := PNG(8, 8)
	return data[:len(data)/2]
}
