package brick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyBrickHasNoOccupancy(t *testing.T) {
	b := Empty()
	mask := b.Bitmask()
	for i := 0; i < 4672; i++ {
		require.False(t, BitSet(mask, i), "bit %d should be clear on an empty brick", i)
	}
}

func TestWriteGetRoundTrip(t *testing.T) {
	b := Empty()
	v := Voxel{R: 10, G: 20, B: 30, A: 255}
	b.Write(Coord{1, 2, 3}, v)

	assert.Equal(t, v, b.Get(Coord{1, 2, 3}))
	assert.True(t, b.Get(Coord{0, 0, 0}).Empty())
}

func TestBitmaskCornerVoxel(t *testing.T) {
	b := Empty()
	b.Write(Coord{0, 0, 0}, Voxel{A: 255})
	mask := b.Bitmask()

	// bit 0 of every resolution corresponds to sub-cell (0,0,0)
	assert.True(t, BitSet(mask, offset16+0))
	assert.True(t, BitSet(mask, offset8+0))
	assert.True(t, BitSet(mask, offset4+0))

	// every other sub-cell of the finest (16^3) level should be clear
	for bit := 1; bit < 4096; bit++ {
		assert.False(t, BitSet(mask, bit), "bit %d should be clear", bit)
	}
}

func TestBitmaskCoarseResolutionAggregatesOctant(t *testing.T) {
	b := Empty()
	// two voxels in the same 4x4x4-voxel block (one 4^3-resolution cell)
	// but in different 2x2x2-voxel blocks (different 8^3-resolution cells)
	b.Write(Coord{0, 0, 0}, Voxel{A: 255})
	b.Write(Coord{3, 3, 3}, Voxel{A: 255})
	mask := b.Bitmask()

	assert.True(t, BitSet(mask, offset16+0))
	assert.True(t, BitSet(mask, offset16+subIndex(Coord{3, 3, 3}, 16)))
	// at 8^3 they still set two separate bits
	assert.True(t, BitSet(mask, offset8+subIndex(Coord{0, 0, 0}, 8)))
	assert.True(t, BitSet(mask, offset8+subIndex(Coord{3, 3, 3}, 8)))
	// at 4^3 both aggregate into the single corner cell
	assert.Equal(t, subIndex(Coord{0, 0, 0}, 4), subIndex(Coord{3, 3, 3}, 4))
	assert.True(t, BitSet(mask, offset4+0))
}

func TestToColorBytesLength(t *testing.T) {
	b := Empty()
	bytes := b.ToColorBytes()
	require.Len(t, bytes, VoxelCount*4)
}

func TestOutOfBoundsPanics(t *testing.T) {
	b := Empty()
	assert.Panics(t, func() {
		b.Get(Coord{16, 0, 0})
	})
	assert.Panics(t, func() {
		b.Write(Coord{0, 0, 16}, Voxel{})
	})
}
