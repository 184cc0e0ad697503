package modeling

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// RequestTypeModelingCmd is the envelope discriminant for command requests.
const RequestTypeModelingCmd = "ModelingCmdReq"

// Request is the outbound envelope: one command plus its correlation id.
type Request struct {
	Cmd   Command
	CmdID uuid.UUID
}

type requestWire struct {
	Type  string          `json:"type"`
	Cmd   json.RawMessage `json:"cmd"`
	CmdID uuid.UUID       `json:"cmd_id"`
}

// MarshalJSON writes {"type":"ModelingCmdReq","cmd":...,"cmd_id":...}.
func (r Request) MarshalJSON() ([]byte, error) {
	if r.Cmd == nil {
		return nil, fmt.Errorf("request %s has no command", r.CmdID)
	}
	cmd, err := json.Marshal(r.Cmd)
	if err != nil {
		return nil, err
	}
	return json.Marshal(requestWire{
		Type:  RequestTypeModelingCmd,
		Cmd:   cmd,
		CmdID: r.CmdID,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w requestWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type != RequestTypeModelingCmd {
		return fmt.Errorf("unexpected request type %q", w.Type)
	}
	cmd, err := UnmarshalCommand(w.Cmd)
	if err != nil {
		return err
	}
	r.Cmd = cmd
	r.CmdID = w.CmdID
	return nil
}
