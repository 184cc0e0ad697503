package modeling

import (
	"encoding/json"
	"fmt"
)

// Point3D is a point in model space.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// SegmentType is the "type" tag of a path segment.
type SegmentType string

const (
	SegmentLine SegmentType = "line"
)

// PathSegment is one piece appended to a path by ExtendPath.
type PathSegment interface {
	SegmentType() SegmentType
}

// Line is a straight segment ending at End. When Relative is set, End is an
// offset from the pen's current position.
type Line struct {
	End      Point3D `json:"end"`
	Relative bool    `json:"relative"`
}

// SegmentType implements PathSegment.
func (Line) SegmentType() SegmentType { return SegmentLine }

// MarshalJSON writes the segment with its type tag.
func (l Line) MarshalJSON() ([]byte, error) {
	type alias Line
	return json.Marshal(struct {
		Type SegmentType `json:"type"`
		alias
	}{SegmentLine, alias(l)})
}

// UnmarshalSegment decodes a tagged path segment.
func UnmarshalSegment(data []byte) (PathSegment, error) {
	var tag struct {
		Type SegmentType `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("decode segment tag: %w", err)
	}
	switch tag.Type {
	case SegmentLine:
		var l Line
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("decode line segment: %w", err)
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown segment type %q", tag.Type)
	}
}
