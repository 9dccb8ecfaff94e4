package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opera-rt/opera/pkg/body"
	"github.com/opera-rt/opera/pkg/geometry"
	"github.com/opera-rt/opera/pkg/history"
	"github.com/opera-rt/opera/pkg/sample"
)

func newHuman(t *testing.T, id string) body.Human {
	t.Helper()
	b, err := body.NewBody(id, []string{"a", "b"}, [][2]string{{"a", "b"}}, []float64{0.1})
	require.NoError(t, err)
	return body.Human{Body: b}
}

func TestInsertAndDuplicateRejected(t *testing.T) {
	r := New()
	require.NoError(t, r.InsertHuman(newHuman(t, "h0")))
	assert.Error(t, r.InsertHuman(newHuman(t, "h0")))
	assert.True(t, r.HasHuman("h0"))
	assert.Equal(t, 1, r.CountHumans())
}

func TestRemoveErasesBody(t *testing.T) {
	r := New()
	require.NoError(t, r.InsertHuman(newHuman(t, "h0")))
	r.Remove("h0")
	assert.False(t, r.HasHuman("h0"))
	assert.Equal(t, 0, r.CountHumans())
}

func TestSegmentKeypoints(t *testing.T) {
	r := New()
	require.NoError(t, r.InsertHuman(newHuman(t, "h0")))
	head, tail, ok := r.SegmentKeypoints("h0", 0)
	require.True(t, ok)
	assert.Equal(t, "a", head)
	assert.Equal(t, "b", tail)

	_, _, ok = r.SegmentKeypoints("h0", 5)
	assert.False(t, ok)
}

func TestAcquireHumanStateTracksLatestTimestamp(t *testing.T) {
	r := New()
	require.NoError(t, r.InsertHuman(newHuman(t, "h0")))

	instance := history.HumanStateInstance{Timestamp: 42, Samples: []sample.BodySegmentSample{sample.NewEmpty(0.1)}}
	require.NoError(t, r.AcquireHumanState("h0", instance))
	assert.Equal(t, uint64(42), r.LatestTimestamp())

	assert.Error(t, r.AcquireHumanState("missing", instance))
}

func TestEvictStaleHumans(t *testing.T) {
	r := New()
	require.NoError(t, r.InsertHuman(newHuman(t, "h0")))
	require.NoError(t, r.InsertHuman(newHuman(t, "h1")))
	require.NoError(t, r.AcquireHumanState("h0", history.HumanStateInstance{Timestamp: 0}))
	require.NoError(t, r.AcquireHumanState("h1", history.HumanStateInstance{Timestamp: 10_000}))

	removed := r.EvictStaleHumans(10_000)
	assert.Equal(t, []string{"h0"}, removed)
	assert.False(t, r.HasHuman("h0"))
	assert.True(t, r.HasHuman("h1"))
}

func TestAcquireRobotState(t *testing.T) {
	r := New()
	b, err := body.NewBody("r0", []string{"a", "b"}, [][2]string{{"a", "b"}}, []float64{0.1})
	require.NoError(t, err)
	robot, err := body.NewRobot(b, 1000)
	require.NoError(t, err)
	require.NoError(t, r.InsertRobot(robot))

	mode := body.NewMode(map[string]string{"state": "contract"})
	points := [][]geometry.Point{{{X: 0, Y: 0, Z: 0}}, {{X: 1, Y: 0, Z: 0}}}
	require.NoError(t, r.AcquireRobotState("r0", mode, points, 0))

	h, ok := r.RobotHistory("r0")
	require.True(t, ok)
	assert.Equal(t, uint64(0), h.LatestTimestamp())
}

func TestStartEvictionLoopInvokesCallback(t *testing.T) {
	r := New()
	require.NoError(t, r.InsertHuman(newHuman(t, "h0")))
	require.NoError(t, r.InsertHuman(newHuman(t, "h1")))
	require.NoError(t, r.AcquireHumanState("h0", history.HumanStateInstance{Timestamp: 0}))
	require.NoError(t, r.AcquireHumanState("h1", history.HumanStateInstance{Timestamp: 10_000}))

	done := make(chan []string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartEvictionLoop(ctx, 5*time.Millisecond, 10_000, func(ids []string) { done <- ids })
	defer r.StopEvictionLoop()

	select {
	case ids := <-done:
		assert.Equal(t, []string{"h0"}, ids)
	case <-time.After(time.Second):
		t.Fatal("eviction callback never fired")
	}
}
