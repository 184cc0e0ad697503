package modeling

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// ResponseType tags which remote subsystem produced an OkResponseData.
type ResponseType string

const (
	ResponseModeling      ResponseType = "modeling"
	ResponseIceServerInfo ResponseType = "ice_server_info"
	ResponseTrickleIce    ResponseType = "trickle_ice"
	ResponseSdpAnswer     ResponseType = "sdp_answer"
	ResponseExport        ResponseType = "export"
)

// ModelingResponseType tags a per-command modeling result.
type ModelingResponseType string

const (
	ModelingEmpty        ModelingResponseType = "empty"
	ModelingTakeSnapshot ModelingResponseType = "take_snapshot"
)

// ErrorDetail is one entry of a failure envelope's "errors" array.
type ErrorDetail struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (e ErrorDetail) String() string {
	if e.ErrorCode == "" {
		return e.Message
	}
	return e.ErrorCode + ": " + e.Message
}

// OkResponseData is the payload of a success envelope. Data stays raw until
// a caller asks for a specific variant, so unknown variants never fail.
type OkResponseData struct {
	Type ResponseType    `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ModelingResponse is the per-command result inside a "modeling" payload.
type ModelingResponse struct {
	Type ModelingResponseType `json:"type"`
	Data json.RawMessage      `json:"data,omitempty"`
}

type modelingPayload struct {
	ModelingResponse ModelingResponse `json:"modeling_response"`
}

// SnapshotData is the body of a take_snapshot result.
type SnapshotData struct {
	Contents Base64Data `json:"contents"`
}

// Modeling returns the inner modeling result. ok is false for other subsystems.
func (d OkResponseData) Modeling() (resp ModelingResponse, ok bool, err error) {
	if d.Type != ResponseModeling {
		return ModelingResponse{}, false, nil
	}
	var p modelingPayload
	if err := json.Unmarshal(d.Data, &p); err != nil {
		return ModelingResponse{}, true, fmt.Errorf("decode modeling payload: %w", err)
	}
	return p.ModelingResponse, true, nil
}

// Snapshot returns the image bytes of a take_snapshot result.
func (m ModelingResponse) Snapshot() (data []byte, ok bool, err error) {
	if m.Type != ModelingTakeSnapshot {
		return nil, false, nil
	}
	var s SnapshotData
	if err := json.Unmarshal(m.Data, &s); err != nil {
		return nil, true, fmt.Errorf("decode snapshot payload: %w", err)
	}
	return s.Contents, true, nil
}

// NewModelingData wraps a modeling result into an OkResponseData.
func NewModelingData(resp ModelingResponse) OkResponseData {
	data, _ := json.Marshal(modelingPayload{ModelingResponse: resp})
	return OkResponseData{Type: ResponseModeling, Data: data}
}

// EmptyResponse is the acknowledgement of a geometry command.
func EmptyResponse() OkResponseData {
	return NewModelingData(ModelingResponse{Type: ModelingEmpty})
}

// SnapshotResponse carries rendered image bytes.
func SnapshotResponse(contents []byte) OkResponseData {
	data, _ := json.Marshal(SnapshotData{Contents: contents})
	return NewModelingData(ModelingResponse{Type: ModelingTakeSnapshot, Data: data})
}

// Base64Data is binary content carried as a base64 string. Decoding accepts
// standard and URL alphabets, padded or not.
type Base64Data []byte

func (b Base64Data) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(b))
}

func (b *Base64Data) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimRight(s, "=")
	enc := base64.RawStdEncoding
	if strings.ContainsAny(s, "-_") {
		enc = base64.RawURLEncoding
	}
	out, err := enc.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decode base64: %w", err)
	}
	*b = out
	return nil
}
