package cpubrickmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelsmith/brickmap/pkg/brick"
)

func TestPlaceBrickRoundTrip(t *testing.T) {
	m := New(2) // 4x4 bricks at the leaf level
	b := brick.Empty()
	b.Write(brick.Coord{X: 1, Y: 1, Z: 1}, brick.Voxel{R: 200, A: 255})

	pos := brick.Coord{X: 3, Y: 0, Z: 2}
	require.NoError(t, m.PlaceBrick(b, pos))

	index, origin, depth := m.GetNode(pos, nil)
	assert.Equal(t, m.Depth, depth)
	assert.Equal(t, pos, origin)

	node := m.Nodes[index]
	require.NotZero(t, node.BrickIndex)
	assert.Equal(t, b, m.Bricks[node.BrickIndex])
}

func TestGetNodeStopsAtEmptyInternal(t *testing.T) {
	m := New(3)
	// nothing has been placed anywhere near this position
	index, origin, depth := m.GetNode(brick.Coord{X: 5, Y: 5, Z: 5}, nil)
	assert.Less(t, depth, m.Depth+1)
	assert.True(t, m.Nodes[index].Empty())
	_ = origin
}

func TestGetNodeRespectsMaxDepth(t *testing.T) {
	m := New(3)
	b := brick.Empty()
	b.Write(brick.Coord{}, brick.Voxel{A: 1})
	pos := brick.Coord{X: 7, Y: 7, Z: 7}
	require.NoError(t, m.PlaceBrick(b, pos))

	limit := uint32(1)
	_, _, depth := m.GetNode(pos, &limit)
	assert.Equal(t, limit, depth)
}

func TestPlaceBrickOutOfRange(t *testing.T) {
	m := New(1)
	err := m.PlaceBrick(brick.Empty(), brick.Coord{X: 2, Y: 0, Z: 0})
	assert.Error(t, err)
}

func TestRecreateMipmapsLeavesLeafBricksUntouched(t *testing.T) {
	// depth 1: the root's eight children are themselves the leaves, so
	// there is no internal node to mip.
	m := New(1)

	a := brick.Empty()
	a.Write(brick.Coord{X: 0, Y: 0, Z: 0}, brick.Voxel{R: 100, G: 0, B: 0, A: 200})
	require.NoError(t, m.PlaceBrick(a, brick.Coord{X: 0, Y: 0, Z: 0}))

	other := brick.Empty()
	require.NoError(t, m.PlaceBrick(other, brick.Coord{X: 1, Y: 0, Z: 0}))

	m.RecreateMipmaps()

	// with depth 1 there is no internal mip node above the leaves placed
	// directly at depth 1, so instead verify the leaf bricks are untouched.
	assert.Equal(t, uint8(200), a.Get(brick.Coord{X: 0, Y: 0, Z: 0}).A)
}

func TestRecreateMipmapsAtDepthTwo(t *testing.T) {
	m := New(2)

	filled := brick.Empty()
	filled.Write(brick.Coord{X: 0, Y: 0, Z: 0}, brick.Voxel{R: 255, G: 0, B: 0, A: 255})
	require.NoError(t, m.PlaceBrick(filled, brick.Coord{X: 0, Y: 0, Z: 0}))

	m.RecreateMipmaps()

	root := m.Nodes[0]
	require.NotZero(t, root.BrickIndex, "the root's first child should have a mip brick allocated on subdivide")
	mip := m.Bricks[root.BrickIndex]

	// parent voxel (0,0,0) averages the 2x2x2 block of the child brick
	// starting at (0,0,0); only one of those eight sub-voxels is filled.
	got := mip.Get(brick.Coord{X: 0, Y: 0, Z: 0})
	assert.Equal(t, uint8(255), got.R)
	assert.Equal(t, uint8(32), got.A) // round(255/8) = 32, not a truncating 31
}

func TestSideLengths(t *testing.T) {
	m := New(3)
	assert.Equal(t, uint32(8), m.SideLengthBricks())
	assert.Equal(t, uint32(8*brick.Size), m.SideLengthVoxels())
}
