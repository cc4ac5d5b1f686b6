package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelsmith/brickmap/pkg/brick"
	"github.com/voxelsmith/brickmap/pkg/cpubrickmap"
	"github.com/voxelsmith/brickmap/pkg/gpubrickmap"
)

func buildWorld(t *testing.T, depth uint32) *cpubrickmap.CpuBrickmap {
	t.Helper()
	cb := cpubrickmap.New(depth)
	side := cb.SideLengthBricks()
	for x := uint32(0); x < side; x++ {
		for y := uint32(0); y < side; y++ {
			for z := uint32(0); z < side; z++ {
				b := brick.Empty()
				b.Write(brick.Coord{}, brick.Voxel{R: 128, A: 255})
				require.NoError(t, cb.PlaceBrick(b, brick.Coord{X: x, Y: y, Z: z}))
			}
		}
	}
	cb.RecreateMipmaps()
	return cb
}

func TestForcedFullRefinementRespectsExhaustion(t *testing.T) {
	cb := buildWorld(t, 2)
	gb := gpubrickmap.New(16, 64, [3]uint32{256, 256, 256}, cb.Depth, gpubrickmap.NopWriter{})
	ctrl := NewController(cb, gb, cb.Depth)

	settings := Settings{DivideRatio: 0, CullRatio: 0}
	report := ctrl.Advance([3]float32{2, 2, 2}, settings)

	assert.GreaterOrEqual(t, report.Divided, 1)
	assert.GreaterOrEqual(t, int(gb.NodeCapacity())-1, gb.FreeNodeGroups())
}

func TestExhaustionGracefulWithTinyCapacity(t *testing.T) {
	cb := buildWorld(t, 2)
	gb := gpubrickmap.New(2, 64, [3]uint32{256, 256, 256}, cb.Depth, gpubrickmap.NopWriter{})
	ctrl := NewController(cb, gb, cb.Depth)

	settings := Settings{DivideRatio: 0, CullRatio: 0}
	for i := 0; i < 4; i++ {
		report := ctrl.Advance([3]float32{2, 2, 2}, settings)
		assert.GreaterOrEqual(t, gb.FreeNodeGroups(), 0)
		assert.GreaterOrEqual(t, gb.FreeBricks(), 0)
		_ = report
	}
}

func TestStationaryConvergesToFixedPoint(t *testing.T) {
	cb := buildWorld(t, 2)
	gb := gpubrickmap.New(64, 512, [3]uint32{1024, 1024, 1024}, cb.Depth, gpubrickmap.NopWriter{})
	ctrl := NewController(cb, gb, cb.Depth)

	settings := Settings{DivideRatio: 1.0, CullRatio: 1.0}
	pos := [3]float32{2, 2, 2}

	var last FrameReport
	for i := uint32(0); i < cb.Depth+2; i++ {
		last = ctrl.Advance(pos, settings)
	}

	final := ctrl.Advance(pos, settings)
	assert.Equal(t, 0, final.Divided)
	assert.Equal(t, 0, final.Culled)
	_ = last
}

func TestPausedSkipsEntirely(t *testing.T) {
	cb := buildWorld(t, 2)
	gb := gpubrickmap.New(16, 64, [3]uint32{256, 256, 256}, cb.Depth, gpubrickmap.NopWriter{})
	ctrl := NewController(cb, gb, cb.Depth)

	report := ctrl.Advance([3]float32{2, 2, 2}, Settings{Paused: true})
	assert.Equal(t, FrameReport{}, report)
	assert.Equal(t, int(gb.NodeCapacity())-1, gb.FreeNodeGroups())
}
