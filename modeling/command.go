package modeling

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CommandType is the "type" tag of a modeling command.
type CommandType string

const (
	CmdStartPath    CommandType = "start_path"
	CmdMovePathPen  CommandType = "move_path_pen"
	CmdExtendPath   CommandType = "extend_path"
	CmdClosePath    CommandType = "close_path"
	CmdExtrude      CommandType = "extrude"
	CmdTakeSnapshot CommandType = "take_snapshot"
)

// ImageFormat is the encoding the service uses for snapshot bytes.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "png"
	ImageFormatJPEG ImageFormat = "jpeg"
)

// Command is one modeling operation. Only the subset needed to build and
// photograph an extruded path is modelled here.
type Command interface {
	CommandType() CommandType
}

// StartPath creates a new path. The request's cmd_id becomes the path id.
type StartPath struct{}

// MovePathPen moves the pen of Path to To without drawing.
type MovePathPen struct {
	Path uuid.UUID `json:"path"`
	To   Point3D   `json:"to"`
}

// ExtendPath appends Segment to Path.
type ExtendPath struct {
	Path    uuid.UUID   `json:"path"`
	Segment PathSegment `json:"segment"`
}

// ClosePath closes the path PathID.
type ClosePath struct {
	PathID uuid.UUID `json:"path_id"`
}

// Extrude pushes the closed path Target out by Distance. Cap closes both ends.
type Extrude struct {
	Target   uuid.UUID `json:"target"`
	Distance float64   `json:"distance"`
	Cap      bool      `json:"cap"`
}

// TakeSnapshot asks the service to render the scene.
type TakeSnapshot struct {
	Format ImageFormat `json:"format"`
}

func (StartPath) CommandType() CommandType    { return CmdStartPath }
func (MovePathPen) CommandType() CommandType  { return CmdMovePathPen }
func (ExtendPath) CommandType() CommandType   { return CmdExtendPath }
func (ClosePath) CommandType() CommandType    { return CmdClosePath }
func (Extrude) CommandType() CommandType      { return CmdExtrude }
func (TakeSnapshot) CommandType() CommandType { return CmdTakeSnapshot }

func (c StartPath) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type CommandType `json:"type"`
	}{CmdStartPath})
}

func (c MovePathPen) MarshalJSON() ([]byte, error) {
	type alias MovePathPen
	return json.Marshal(struct {
		Type CommandType `json:"type"`
		alias
	}{CmdMovePathPen, alias(c)})
}

func (c ExtendPath) MarshalJSON() ([]byte, error) {
	type alias ExtendPath
	return json.Marshal(struct {
		Type CommandType `json:"type"`
		alias
	}{CmdExtendPath, alias(c)})
}

func (c ClosePath) MarshalJSON() ([]byte, error) {
	type alias ClosePath
	return json.Marshal(struct {
		Type CommandType `json:"type"`
		alias
	}{CmdClosePath, alias(c)})
}

func (c Extrude) MarshalJSON() ([]byte, error) {
	type alias Extrude
	return json.Marshal(struct {
		Type CommandType `json:"type"`
		alias
	}{CmdExtrude, alias(c)})
}

func (c TakeSnapshot) MarshalJSON() ([]byte, error) {
	type alias TakeSnapshot
	return json.Marshal(struct {
		Type CommandType `json:"type"`
		alias
	}{CmdTakeSnapshot, alias(c)})
}

// UnmarshalJSON decodes the interface-typed segment.
func (c *ExtendPath) UnmarshalJSON(data []byte) error {
	var raw struct {
		Path    uuid.UUID       `json:"path"`
		Segment json.RawMessage `json:"segment"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	seg, err := UnmarshalSegment(raw.Segment)
	if err != nil {
		return err
	}
	c.Path = raw.Path
	c.Segment = seg
	return nil
}

// UnmarshalCommand decodes a tagged command.
func UnmarshalCommand(data []byte) (Command, error) {
	var tag struct {
		Type CommandType `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("decode command tag: %w", err)
	}

	var (
		cmd Command
		err error
	)
	switch tag.Type {
	case CmdStartPath:
		cmd = StartPath{}
	case CmdMovePathPen:
		var c MovePathPen
		err = json.Unmarshal(data, &c)
		cmd = c
	case CmdExtendPath:
		var c ExtendPath
		err = json.Unmarshal(data, &c)
		cmd = c
	case CmdClosePath:
		var c ClosePath
		err = json.Unmarshal(data, &c)
		cmd = c
	case CmdExtrude:
		var c Extrude
		err = json.Unmarshal(data, &c)
		cmd = c
	case CmdTakeSnapshot:
		var c TakeSnapshot
		err = json.Unmarshal(data, &c)
		cmd = c
	default:
		return nil, fmt.Errorf("unknown command type %q", tag.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", tag.Type, err)
	}
	return cmd, nil
}
