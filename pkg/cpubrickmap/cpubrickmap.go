// Package cpubrickmap implements the unbounded, host-side sparse voxel
// octree: insertion of bricks by world coordinate and recursive
// alpha-weighted mipmap synthesis. A CpuBrickmap is built once at
// startup by pkg/worldloader and is immutable afterwards — every
// method here is safe to call concurrently from multiple readers once
// construction has finished.
package cpubrickmap

import (
	"fmt"
	"math"

	"github.com/voxelsmith/brickmap/pkg/brick"
)

// Node is one entry of the CPU octree: a pair of indices, each 0
// meaning "none". ChildrenGroup g, when non-zero, means this node's
// eight children occupy Nodes[8g : 8g+8]. BrickIndex, when non-zero,
// indexes CpuBrickmap.Bricks.
type Node struct {
	ChildrenGroup uint32
	BrickIndex    uint32
}

// Empty reports whether this node has neither children nor a brick —
// the "empty-internal" state place_brick and get_node test for.
func (n Node) Empty() bool {
	return n.ChildrenGroup == 0 && n.BrickIndex == 0
}

// CpuBrickmap is the unbounded, growable octree described in §3 of the
// spec: nodes seeded with the root's eight children, bricks seeded
// with the canonical empty brick at index 0.
type CpuBrickmap struct {
	Nodes  []Node
	Bricks []*brick.Brick
	Depth  uint32 // depth in node levels; SideLengthBricks() == 1<<Depth
}

// New creates a CpuBrickmap whose leaves sit at node depth, i.e. whose
// side length is 2^depth bricks (2^depth * brick.Size voxels).
func New(depth uint32) *CpuBrickmap {
	return &CpuBrickmap{
		Nodes:  make([]Node, 8),
		Bricks: []*brick.Brick{brick.Empty()},
		Depth:  depth,
	}
}

// SideLengthBricks returns the octree's edge length in brick units.
func (m *CpuBrickmap) SideLengthBricks() uint32 {
	return 1 << m.Depth
}

// SideLengthVoxels returns the octree's edge length in voxels.
func (m *CpuBrickmap) SideLengthVoxels() uint32 {
	return m.SideLengthBricks() * brick.Size
}

// childOctant computes the descent mask and updated node origin for one
// step of the recursive walk shared by PlaceBrick and GetNode.
func childOctant(pos, origin brick.Coord, halfExtent uint32) (childIndex int, newOrigin brick.Coord) {
	maskX := pos.X >= origin.X+halfExtent
	maskY := pos.Y >= origin.Y+halfExtent
	maskZ := pos.Z >= origin.Z+halfExtent

	newOrigin = origin
	if maskX {
		newOrigin.X += halfExtent
	}
	if maskY {
		newOrigin.Y += halfExtent
	}
	if maskZ {
		newOrigin.Z += halfExtent
	}

	idx := 0
	if maskX {
		idx += 4
	}
	if maskY {
		idx += 2
	}
	if maskZ {
		idx++
	}
	return idx, newOrigin
}

// PlaceBrick walks from the root toward node depth Depth, allocating
// children groups and mip-brick slots as needed, and stores b at the
// leaf for pos (brick-unit coordinates in [0, 2^Depth)).
func (m *CpuBrickmap) PlaceBrick(b *brick.Brick, pos brick.Coord) error {
	if pos.X >= m.SideLengthBricks() || pos.Y >= m.SideLengthBricks() || pos.Z >= m.SideLengthBricks() {
		return fmt.Errorf("cpubrickmap: position %+v out of range for depth %d", pos, m.Depth)
	}

	groupBase := uint32(0)
	origin := brick.Coord{}
	depth := uint32(1)

	for {
		halfExtent := uint32(1) << (m.Depth - depth)
		childIdx, newOrigin := childOctant(pos, origin, halfExtent)
		origin = newOrigin

		slot := groupBase + uint32(childIdx)
		node := &m.Nodes[slot]

		if node.ChildrenGroup == 0 {
			if depth == m.Depth {
				brickIndex := uint32(len(m.Bricks))
				node.BrickIndex = brickIndex
				m.Bricks = append(m.Bricks, b)
				return nil
			}

			newGroupBase := uint32(len(m.Nodes))
			mipBrickIndex := uint32(len(m.Bricks))
			node.ChildrenGroup = newGroupBase / 8
			node.BrickIndex = mipBrickIndex

			m.Nodes = append(m.Nodes, make([]Node, 8)...)
			m.Bricks = append(m.Bricks, brick.Empty())

			groupBase = newGroupBase
		} else {
			groupBase = 8 * node.ChildrenGroup
		}

		depth++
	}
}

// GetNode descends toward pos, stopping early on an empty-internal node
// or once maxDepth node levels have been walked (nil means descend all
// the way to Depth). It returns the absolute slot index into Nodes, the
// origin of that node in brick-unit coordinates, and the depth reached.
func (m *CpuBrickmap) GetNode(pos brick.Coord, maxDepth *uint32) (index int, origin brick.Coord, depth uint32) {
	groupBase := uint32(0)
	origin = brick.Coord{}
	depth = 1
	limit := m.Depth
	if maxDepth != nil {
		limit = *maxDepth
	}

	for {
		halfExtent := uint32(1) << (m.Depth - depth)
		childIdx, newOrigin := childOctant(pos, origin, halfExtent)
		origin = newOrigin

		slot := groupBase + uint32(childIdx)
		node := m.Nodes[slot]

		if node.ChildrenGroup == 0 || depth >= limit {
			return int(slot), origin, depth
		}

		groupBase = 8 * node.ChildrenGroup
		depth++
	}
}

// RecreateMipmaps recomputes, bottom-up, the averaged mip brick stored
// at every internal node from its eight children. It must be called
// exactly once after all bricks have been placed (the World Loader's
// contract, §4.E).
func (m *CpuBrickmap) RecreateMipmaps() {
	for i := 0; i < 8; i++ {
		m.mipNode(i, 1)
	}
}

func (m *CpuBrickmap) mipNode(nodeIndex int, depth uint32) {
	node := m.Nodes[nodeIndex]
	if node.ChildrenGroup == 0 {
		return // leaf: no children to average, nothing to mip
	}
	childrenBase := int(8 * node.ChildrenGroup)

	if depth < m.Depth-1 {
		for i := 0; i < 8; i++ {
			m.mipNode(childrenBase+i, depth+1)
		}
	}

	if node.BrickIndex == 0 {
		return // shouldn't happen: PlaceBrick always allocates a mip slot on subdivide
	}
	parent := m.Bricks[node.BrickIndex]

	for z := uint32(0); z < brick.Size; z++ {
		for y := uint32(0); y < brick.Size; y++ {
			for x := uint32(0); x < brick.Size; x++ {
				p := brick.Coord{X: x, Y: y, Z: z}
				m.mipVoxel(parent, childrenBase, p)
			}
		}
	}
}

func (m *CpuBrickmap) mipVoxel(parent *brick.Brick, childrenBase int, p brick.Coord) {
	childIdx := 0
	if p.X >= 8 {
		childIdx += 4
	}
	if p.Y >= 8 {
		childIdx += 2
	}
	if p.Z >= 8 {
		childIdx++
	}

	child := m.Nodes[childrenBase+childIdx]
	if child.BrickIndex == 0 {
		return // this octant has no brick at all; parent voxel stays zero
	}
	childBrick := m.Bricks[child.BrickIndex]

	var rSum, gSum, bSum, alphaSum float32
	childOrigin := brick.Coord{X: 2 * (p.X % 8), Y: 2 * (p.Y % 8), Z: 2 * (p.Z % 8)}
	for j := 0; j < 8; j++ {
		cp := brick.Coord{
			X: childOrigin.X + uint32(j&1),
			Y: childOrigin.Y + uint32(j>>1&1),
			Z: childOrigin.Z + uint32(j>>2&1),
		}
		v := childBrick.Get(cp)
		a := float32(v.A)
		rSum += float32(v.R) * a
		gSum += float32(v.G) * a
		bSum += float32(v.B) * a
		alphaSum += a
	}

	if alphaSum == 0 {
		return // all eight sampled sub-voxels were empty; parent voxel stays zero
	}

	parent.Write(p, brick.Voxel{
		R: uint8(rSum / alphaSum),
		G: uint8(gSum / alphaSum),
		B: uint8(bSum / alphaSum),
		A: uint8(math.Round(float64(alphaSum) / 8)),
	})
}
