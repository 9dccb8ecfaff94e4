package jobregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTryRegisterReturnsTrueExactlyOnce(t *testing.T) {
	r := New()
	path := []int{0, 2}

	assert.True(t, r.TryRegister(100, "h0+r0", path))
	assert.False(t, r.TryRegister(100, "h0+r0", path))
}

func TestTryRegisterDistinguishesPathsAndTimestamps(t *testing.T) {
	r := New()

	assert.True(t, r.TryRegister(100, "h0+r0", []int{0}))
	assert.True(t, r.TryRegister(100, "h0+r0", []int{1}))
	assert.True(t, r.TryRegister(200, "h0+r0", []int{0}))
	assert.True(t, r.TryRegister(100, "h1+r0", []int{0}))
}

func TestTryRegisterRejectsDescendantsOfRegisteredPath(t *testing.T) {
	r := New()

	assert.True(t, r.TryRegister(100, "h0+r0", []int{0}))
	assert.False(t, r.TryRegister(100, "h0+r0", []int{0, 1}))
}

func TestHasRegisteredIsReadOnly(t *testing.T) {
	r := New()
	path := []int{0}

	assert.False(t, r.HasRegistered(100, "h0+r0", path))
	r.TryRegister(100, "h0+r0", path)
	assert.True(t, r.HasRegistered(100, "h0+r0", path))
}

func TestForgetDropsTimestamp(t *testing.T) {
	r := New()
	path := []int{0}
	r.TryRegister(100, "h0+r0", path)
	r.Forget(100)
	assert.False(t, r.HasRegistered(100, "h0+r0", path))
	assert.True(t, r.TryRegister(100, "h0+r0", path))
}
