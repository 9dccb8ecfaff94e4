// Package message defines the four JSON wire message shapes (body
// presentation, human state, robot state, collision notification) and
// their conversions to/from the core domain types.
package message

import (
	"encoding/json"
	"fmt"

	"github.com/opera-rt/opera/pkg/body"
	"github.com/opera-rt/opera/pkg/geometry"
)

// Point3 is the wire shape of a 3D point.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ToGeometry converts the wire point to a geometry.Point.
func (p Point3) ToGeometry() geometry.Point {
	return geometry.Point{X: p.X, Y: p.Y, Z: p.Z}
}

// Point3FromGeometry converts a geometry.Point to its wire shape.
func Point3FromGeometry(p geometry.Point) Point3 {
	return Point3{X: p.X, Y: p.Y, Z: p.Z}
}

// BodyPresentation announces a body's topology.
type BodyPresentation struct {
	ID               string      `json:"id"`
	IsHuman          bool        `json:"isHuman"`
	MessageFrequency *int        `json:"messageFrequency,omitempty"`
	SegmentPairs     [][2]string `json:"segmentPairs"`
	Thicknesses      []float64   `json:"thicknesses"`
}

// Marshal encodes m as JSON.
func (m BodyPresentation) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalBodyPresentation decodes a BodyPresentation from JSON.
func UnmarshalBodyPresentation(data []byte) (BodyPresentation, error) {
	var m BodyPresentation
	if err := json.Unmarshal(data, &m); err != nil {
		return BodyPresentation{}, err
	}
	return m, nil
}

// keypointIDs synthesizes an ordered keypoint id list from the segment
// pairs: the distinct keypoint ids in first-seen order. The wire format
// carries no separate keypoint list; keypoints are implied by the
// segments that reference them.
func (m BodyPresentation) keypointIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, pair := range m.SegmentPairs {
		for _, id := range pair {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// ToHuman converts a BodyPresentation into a body.Human. It is a
// precondition violation for IsHuman to be false.
func (m BodyPresentation) ToHuman() (body.Human, error) {
	if !m.IsHuman {
		return body.Human{}, fmt.Errorf("message: body %q is not a human", m.ID)
	}
	b, err := body.NewBody(m.ID, m.keypointIDs(), m.SegmentPairs, m.Thicknesses)
	if err != nil {
		return body.Human{}, err
	}
	return body.Human{Body: b}, nil
}

// ToRobot converts a BodyPresentation into a body.Robot. It is a
// precondition violation for IsHuman to be true or for MessageFrequency to
// be absent.
func (m BodyPresentation) ToRobot() (body.Robot, error) {
	if m.IsHuman {
		return body.Robot{}, fmt.Errorf("message: body %q is not a robot", m.ID)
	}
	if m.MessageFrequency == nil {
		return body.Robot{}, fmt.Errorf("message: robot %q is missing messageFrequency", m.ID)
	}
	b, err := body.NewBody(m.ID, m.keypointIDs(), m.SegmentPairs, m.Thicknesses)
	if err != nil {
		return body.Robot{}, err
	}
	return body.NewRobot(b, *m.MessageFrequency)
}

// HumanStateBody is one body's observed keypoints within a HumanState message.
type HumanStateBody struct {
	BodyID    string              `json:"bodyId"`
	Keypoints map[string][]Point3 `json:"keypoints"`
}

// HumanState is a batch of human state observations sharing one timestamp.
type HumanState struct {
	Bodies    []HumanStateBody `json:"bodies"`
	Timestamp uint64           `json:"timestamp"`
}

// Marshal encodes m as JSON.
func (m HumanState) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalHumanState decodes a HumanState from JSON.
func UnmarshalHumanState(data []byte) (HumanState, error) {
	var m HumanState
	if err := json.Unmarshal(data, &m); err != nil {
		return HumanState{}, err
	}
	return m, nil
}

// RobotState is one robot's mode and per-keypoint continuous state at a
// single timestamp.
type RobotState struct {
	BodyID          string            `json:"bodyId"`
	Mode            map[string]string `json:"mode"`
	ContinuousState [][][3]float64    `json:"continuousState"`
	Timestamp       uint64            `json:"timestamp"`
}

// Marshal encodes m as JSON.
func (m RobotState) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalRobotState decodes a RobotState from JSON.
func UnmarshalRobotState(data []byte) (RobotState, error) {
	var m RobotState
	if err := json.Unmarshal(data, &m); err != nil {
		return RobotState{}, err
	}
	return m, nil
}

// ModeValue converts the wire mode assignment into a body.Mode.
func (m RobotState) ModeValue() body.Mode {
	return body.NewMode(m.Mode)
}

// Points converts the wire continuous state into geometry.Point slices,
// one slice per keypoint in the body's keypoint order.
func (m RobotState) Points() [][]geometry.Point {
	out := make([][]geometry.Point, len(m.ContinuousState))
	for i, perSegment := range m.ContinuousState {
		pts := make([]geometry.Point, len(perSegment))
		for j, xyz := range perSegment {
			pts[j] = geometry.Point{X: xyz[0], Y: xyz[1], Z: xyz[2]}
		}
		out[i] = pts
	}
	return out
}

// SegmentRef identifies one segment of one body within a notification.
type SegmentRef struct {
	BodyID    string    `json:"bodyId"`
	SegmentID [2]string `json:"segmentId"`
}

// Interval is an inclusive [lower, upper] millisecond range.
type Interval struct {
	Lower int64 `json:"lower"`
	Upper int64 `json:"upper"`
}

// CollisionNotification announces a predicted future intersection between
// a human segment and a robot segment.
type CollisionNotification struct {
	Human             SegmentRef        `json:"human"`
	Robot             SegmentRef        `json:"robot"`
	CurrentTime       uint64            `json:"currentTime"`
	CollisionDistance Interval          `json:"collisionDistance"`
	CollisionMode     map[string]string `json:"collisionMode,omitempty"`
	Likelihood        float64           `json:"likelihood"`
}

// Marshal encodes m as JSON.
func (m CollisionNotification) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalCollisionNotification decodes a CollisionNotification from JSON.
func UnmarshalCollisionNotification(data []byte) (CollisionNotification, error) {
	var m CollisionNotification
	if err := json.Unmarshal(data, &m); err != nil {
		return CollisionNotification{}, err
	}
	return m, nil
}
