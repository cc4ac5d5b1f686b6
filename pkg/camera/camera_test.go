package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-gl/mathgl/mgl32"
)

func TestStreamingPositionRecentersOnOrigin(t *testing.T) {
	c := NewCamera(mgl32.Vec3{0, 0, 0})
	pos := c.StreamingPosition(4) // depth 4: shift = 2^3 = 8 bricks

	assert.InDelta(t, 8.0, pos.X(), 1e-6)
	assert.InDelta(t, 8.0, pos.Y(), 1e-6)
	assert.InDelta(t, 8.0, pos.Z(), 1e-6)
}

func TestStreamingPositionScalesByBrickSize(t *testing.T) {
	c := NewCamera(mgl32.Vec3{32, 0, 0}) // two bricks along X
	pos := c.StreamingPosition(1)        // shift = 2^0 = 1

	assert.InDelta(t, 3.0, pos.X(), 1e-6) // 32/16 + 1
}
