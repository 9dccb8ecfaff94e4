package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyPresentationRoundTrip(t *testing.T) {
	freq := 50
	m := BodyPresentation{
		ID:               "r0",
		IsHuman:          false,
		MessageFrequency: &freq,
		SegmentPairs:     [][2]string{{"shoulder", "elbow"}, {"elbow", "wrist"}},
		Thicknesses:      []float64{0.12, 0.08},
	}
	data, err := m.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalBodyPresentation(data)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	robot, err := got.ToRobot()
	require.NoError(t, err)
	assert.Equal(t, "r0", robot.ID)
	assert.Equal(t, 2, robot.NumSegments())
}

func TestBodyPresentationToHumanRejectsRobot(t *testing.T) {
	m := BodyPresentation{ID: "r0", IsHuman: false}
	_, err := m.ToHuman()
	assert.Error(t, err)
}

func TestBodyPresentationOmitsMessageFrequencyWhenNil(t *testing.T) {
	m := BodyPresentation{ID: "h0", IsHuman: true, SegmentPairs: [][2]string{{"a", "b"}}, Thicknesses: []float64{0.1}}
	data, err := m.Marshal()
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	_, present := raw["messageFrequency"]
	assert.False(t, present)

	human, err := m.ToHuman()
	require.NoError(t, err)
	assert.Equal(t, "h0", human.ID)
}

func TestHumanStateRoundTrip(t *testing.T) {
	m := HumanState{
		Bodies: []HumanStateBody{
			{
				BodyID: "h0",
				Keypoints: map[string][]Point3{
					"shoulder": {{X: 1, Y: 2, Z: 3}},
					"elbow":    {{X: 4, Y: 5, Z: 6}},
				},
			},
		},
		Timestamp: 1234,
	}
	data, err := m.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalHumanState(data)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestRobotStateRoundTripAndConversions(t *testing.T) {
	m := RobotState{
		BodyID:          "r0",
		Mode:            map[string]string{"state": "contract", "speed": "slow"},
		ContinuousState: [][][3]float64{{{0, 0, 0}, {1, 1, 1}}},
		Timestamp:       5000,
	}
	data, err := m.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalRobotState(data)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	mode := got.ModeValue()
	eq, err := mode.Equal(got.ModeValue())
	require.NoError(t, err)
	assert.True(t, eq)

	pts := got.Points()
	require.Len(t, pts, 1)
	require.Len(t, pts[0], 2)
	assert.Equal(t, 1.0, pts[0][1].X)
}

func TestCollisionNotificationRoundTrip(t *testing.T) {
	m := CollisionNotification{
		Human:             SegmentRef{BodyID: "h0", SegmentID: [2]string{"shoulder", "elbow"}},
		Robot:             SegmentRef{BodyID: "r0", SegmentID: [2]string{"base", "arm"}},
		CurrentTime:       1000,
		CollisionDistance: Interval{Lower: 200, Upper: 400},
		CollisionMode:     map[string]string{"state": "extend"},
		Likelihood:        0.75,
	}
	data, err := m.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalCollisionNotification(data)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestCollisionNotificationOmitsCollisionModeWhenNil(t *testing.T) {
	m := CollisionNotification{
		Human:             SegmentRef{BodyID: "h0", SegmentID: [2]string{"a", "b"}},
		Robot:             SegmentRef{BodyID: "r0", SegmentID: [2]string{"c", "d"}},
		CurrentTime:       0,
		CollisionDistance: Interval{Lower: 0, Upper: 0},
		Likelihood:        1,
	}
	data, err := m.Marshal()
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	_, present := raw["collisionMode"]
	assert.False(t, present)
}
