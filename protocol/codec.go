package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/BaSui01/cubesnap/modeling"
	"github.com/BaSui01/cubesnap/types"
	"github.com/google/uuid"
)

// NoErrorGiven is the RemoteError message for a failure envelope with an empty errors array.
const NoErrorGiven = "no error given"

// Response is a decoded success envelope.
type Response struct {
	// RequestID echoes the cmd_id of the triggering request. uuid.Nil when absent.
	RequestID uuid.UUID
	Data      modeling.OkResponseData
}

// Snapshot returns the artifact bytes when the response is modeling/take_snapshot.
func (r *Response) Snapshot() ([]byte, bool, error) {
	m, ok, err := r.Data.Modeling()
	if !ok || err != nil {
		return nil, false, err
	}
	return m.Snapshot()
}

// Encode serializes a command into a ModelingCmdReq text frame.
// The command set is fixed, so a marshal failure is a programming error.
func Encode(cmd modeling.Command, id uuid.UUID) []byte {
	data, err := json.Marshal(modeling.Request{Cmd: cmd, CmdID: id})
	if err != nil {
		panic(fmt.Sprintf("protocol: encode %T: %v", cmd, err))
	}
	return data
}

type successShape struct {
	Success   *bool                    `json:"success"`
	RequestID *uuid.UUID               `json:"request_id"`
	Resp      *modeling.OkResponseData `json:"resp"`
}

type failureShape struct {
	Success   *bool                   `json:"success"`
	RequestID *uuid.UUID              `json:"request_id"`
	Errors    *[]modeling.ErrorDetail `json:"errors"`
}

// Decode parses an inbound text frame. The envelope has no type tag: the
// success shape is tried first, then the failure shape.
func Decode(text []byte) (*Response, error) {
	if resp, ok := probeSuccess(text); ok {
		return resp, nil
	}
	if errs, ok := probeFailure(text); ok {
		if len(errs) == 0 {
			return nil, types.NewError(types.ErrRemote, NoErrorGiven)
		}
		last := errs[len(errs)-1]
		return nil, types.NewError(types.ErrRemote, last.Message).WithDetail(last.ErrorCode)
	}
	return nil, types.NewError(types.ErrMalformedFrame, "frame matches neither success nor failure envelope").
		WithDetail(preview(text))
}

func probeSuccess(text []byte) (*Response, bool) {
	var s successShape
	if err := json.Unmarshal(text, &s); err != nil {
		return nil, false
	}
	if s.Success == nil || !*s.Success || s.Resp == nil {
		return nil, false
	}
	resp := &Response{Data: *s.Resp}
	if s.RequestID != nil {
		resp.RequestID = *s.RequestID
	}
	return resp, true
}

func probeFailure(text []byte) ([]modeling.ErrorDetail, bool) {
	var f failureShape
	if err := json.Unmarshal(text, &f); err != nil {
		return nil, false
	}
	if f.Success == nil || *f.Success || f.Errors == nil {
		return nil, false
	}
	return *f.Errors, true
}

func preview(text []byte) string {
	const max = 120
	text = bytes.TrimSpace(text)
	if len(text) > max {
		return string(text[:max]) + "..."
	}
	return string(text)
}
