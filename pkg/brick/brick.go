// Package brick implements the fixed 16x16x16 RGBA voxel cube that is the
// atomic storage unit of the brickmap, along with its hierarchical
// occupancy bitmask used by the ray marcher to skip empty sub-bricks.
package brick

import (
	"fmt"
)

// Size is the edge length of a brick in voxels.
const Size = 16

// VoxelCount is the number of voxels in a brick.
const VoxelCount = Size * Size * Size

// BitmaskWords is the number of 32-bit words needed to hold the
// hierarchical occupancy bitmask: ceil((4^3 + 8^3 + 16^3) / 32).
const BitmaskWords = 146

// BitmaskBytes is the padded byte size of the bitmask, matching the
// brick_masks storage layout bound at binding 3 (see pkg/render).
const BitmaskBytes = BitmaskWords * 4

const (
	offset16 = 0
	offset8  = 16 * 16 * 16
	offset4  = offset8 + 8*8*8
)

// Voxel is a single RGBA sample. A == 0 denotes empty.
type Voxel struct {
	R, G, B, A uint8
}

// Empty reports whether the voxel is fully transparent.
func (v Voxel) Empty() bool {
	return v.A == 0
}

// Coord is an integer voxel-space coordinate, used wherever fractional
// positions would be wrong (brick-local addressing, octree descent).
// Floating-point world positions use mgl32.Vec3 instead.
type Coord struct {
	X, Y, Z uint32
}

// Brick is a dense 16x16x16 array of voxels plus the hierarchical
// occupancy mask derived from it on demand.
type Brick struct {
	voxels [VoxelCount]Voxel
}

// Empty returns a brick with every voxel cleared.
func Empty() *Brick {
	return &Brick{}
}

func index(p Coord) int {
	return int(p.Z)*Size*Size + int(p.Y)*Size + int(p.X)
}

func checkBounds(p Coord) {
	if p.X >= Size || p.Y >= Size || p.Z >= Size {
		panic(fmt.Sprintf("brick: coordinate out of bounds: %+v", p))
	}
}

// Get returns the voxel at local coordinate p (each component in [0,16)).
func (b *Brick) Get(p Coord) Voxel {
	checkBounds(p)
	return b.voxels[index(p)]
}

// Write sets the voxel at local coordinate p.
func (b *Brick) Write(p Coord, v Voxel) {
	checkBounds(p)
	b.voxels[index(p)] = v
}

// ToColorBytes returns the brick's raw RGBA8 bytes in the layout the
// color texture upload expects: 16*16*16*4 bytes, index order matching
// index(). The returned slice is a fresh copy; writing to it does not
// change the brick.
func (b *Brick) ToColorBytes() []byte {
	out := make([]byte, VoxelCount*4)
	for i, v := range b.voxels {
		out[4*i+0] = v.R
		out[4*i+1] = v.G
		out[4*i+2] = v.B
		out[4*i+3] = v.A
	}
	return out
}

// Bitmask computes the hierarchical occupancy bitmask described in the
// data model: one bit per sub-cell at each of resolutions 4^3, 8^3 and
// 16^3, set iff any voxel within that sub-cell is non-empty.
func (b *Brick) Bitmask() [BitmaskBytes]byte {
	var words [BitmaskWords]uint32
	for z := uint32(0); z < Size; z++ {
		for y := uint32(0); y < Size; y++ {
			for x := uint32(0); x < Size; x++ {
				p := Coord{x, y, z}
				if b.Get(p).Empty() {
					continue
				}
				setBit(&words, offset16+subIndex(p, 16))
				setBit(&words, offset8+subIndex(p, 8))
				setBit(&words, offset4+subIndex(p, 4))
			}
		}
	}

	var out [BitmaskBytes]byte
	for i, w := range words {
		out[4*i+0] = byte(w)
		out[4*i+1] = byte(w >> 8)
		out[4*i+2] = byte(w >> 16)
		out[4*i+3] = byte(w >> 24)
	}
	return out
}

// subIndex maps a 16^3 voxel coordinate to its sub-cell index at
// resolution s (one of 4, 8, 16).
func subIndex(p Coord, s uint32) int {
	sx := p.X * s / Size
	sy := p.Y * s / Size
	sz := p.Z * s / Size
	return int(sx*s*s + sy*s + sz)
}

func setBit(words *[BitmaskWords]uint32, bit int) {
	words[bit/32] |= 1 << uint(bit%32)
}

// BitSet reports whether the given bit of an already-computed bitmask is
// set. Offered for tests and for the ray marcher's host-side debugging
// tools; the shader performs the equivalent test directly on the GPU.
func BitSet(mask [BitmaskBytes]byte, bit int) bool {
	word := uint32(mask[4*(bit/32)+0]) |
		uint32(mask[4*(bit/32)+1])<<8 |
		uint32(mask[4*(bit/32)+2])<<16 |
		uint32(mask[4*(bit/32)+3])<<24
	return word&(1<<uint(bit%32)) != 0
}
