package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opera-rt/opera/pkg/geometry"
)

func TestEmptySampleInvariants(t *testing.T) {
	s := NewEmpty(0.5)
	assert.True(t, s.IsEmpty())
	assert.Equal(t, 0.0, s.Error())
	assert.True(t, s.BoundingBox().IsEmpty())
}

func TestUpdateClearsEmpty(t *testing.T) {
	s := NewEmpty(0.1)
	s.Update([]geometry.Point{{X: 0, Y: 0, Z: 0}}, []geometry.Point{{X: 1, Y: 0, Z: 0}})
	assert.False(t, s.IsEmpty())
	assert.Equal(t, geometry.Point{X: 0, Y: 0, Z: 0}, s.HeadCentre())
	assert.Equal(t, geometry.Point{X: 1, Y: 0, Z: 0}, s.TailCentre())
}

func TestIntersectsTouchingSegments(t *testing.T) {
	a := NewEmpty(0)
	a.Update([]geometry.Point{{X: 0, Y: 0, Z: 0}}, []geometry.Point{{X: 1, Y: 0, Z: 0}})
	b := NewEmpty(0)
	b.Update([]geometry.Point{{X: 1, Y: 0, Z: 0}}, []geometry.Point{{X: 2, Y: 1, Z: 0}})
	assert.True(t, Intersects(&a, &b))
}

func TestIntersectsFalseWhenFar(t *testing.T) {
	a := NewEmpty(0)
	a.Update([]geometry.Point{{X: 0, Y: 0, Z: 0}}, []geometry.Point{{X: 1, Y: 0, Z: 0}})
	b := NewEmpty(0)
	b.Update([]geometry.Point{{X: 100, Y: 0, Z: 0}}, []geometry.Point{{X: 101, Y: 0, Z: 0}})
	assert.False(t, Intersects(&a, &b))
}

func TestIntersectsFalseWhenEmpty(t *testing.T) {
	a := NewEmpty(0)
	b := NewEmpty(0)
	b.Update([]geometry.Point{{X: 0, Y: 0, Z: 0}}, []geometry.Point{{X: 1, Y: 0, Z: 0}})
	assert.False(t, Intersects(&a, &b))
}
