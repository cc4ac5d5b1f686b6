// Package gpubrickmap implements the bounded GPU-resident mirror of a
// CpuBrickmap: a fixed-capacity node arena and brick slot arena, their
// free-list allocators, and the divide/cull primitives the Streaming
// Controller drives every frame. The render thread owns a GpuBrickmap
// exclusively — nothing here takes a lock.
package gpubrickmap

import (
	"fmt"

	"github.com/voxelsmith/brickmap/pkg/brick"
	"github.com/voxelsmith/brickmap/pkg/brickerr"
	"github.com/voxelsmith/brickmap/pkg/cpubrickmap"
)

// BrickBit is the top-bit discriminator described in the data model: a
// node word below BrickBit is an internal group index; at or above it,
// it is BrickBit+brick_slot (brick_slot 0 meaning empty leaf).
const BrickBit uint32 = 1 << 31

// Writer is the GPU-upload side of brick allocation and node mutation.
// GpuBrickmap calls it synchronously from AllocateBrick and
// UploadNodes; a real renderer backs it with persistent-mapped buffers
// and a 3-D texture (see pkg/render), while tests use a recording fake.
type Writer interface {
	WriteBrickColor(slot uint32, texPos [3]uint32, colorBytes []byte)
	WriteBrickMask(slot uint32, mask []byte)
	WriteNodes(nodes []uint32)
	ResetHitCounters()
}

// NopWriter discards every write. Useful for pure free-list/topology
// tests that don't care about the GPU side effects.
type NopWriter struct{}

func (NopWriter) WriteBrickColor(uint32, [3]uint32, []byte) {}
func (NopWriter) WriteBrickMask(uint32, []byte)             {}
func (NopWriter) WriteNodes([]uint32)                       {}
func (NopWriter) ResetHitCounters()                         {}

// freeList is a LIFO stack of free slot indices. The spec describes a
// deque; any pop order satisfies the invariants, and a stack is the
// simplest Go idiom for this.
type freeList struct {
	slots []uint32
}

func newFreeList(first, count uint32) *freeList {
	slots := make([]uint32, count)
	for i := range slots {
		slots[i] = first + uint32(i)
	}
	return &freeList{slots: slots}
}

func (f *freeList) pop() (uint32, bool) {
	if len(f.slots) == 0 {
		return 0, false
	}
	n := len(f.slots) - 1
	v := f.slots[n]
	f.slots = f.slots[:n]
	return v, true
}

func (f *freeList) push(v uint32) {
	f.slots = append(f.slots, v)
}

func (f *freeList) len() int {
	return len(f.slots)
}

// GpuBrickmap is the fixed-capacity mirror described in §3/§4.C.
type GpuBrickmap struct {
	Nodes     []uint32 // length 8*NodeCapacity
	GpuToCpu  []uint32 // parallel to Nodes
	ColorTexDim [3]uint32

	nodeFree  *freeList // free group indices
	brickFree *freeList // free brick slots

	nodeCapacity  uint32
	brickCapacity uint32
	depth         uint32 // mirrors the CpuBrickmap's node depth

	writer Writer
}

// New creates a GpuBrickmap with only the root level populated: nodes
// 0..7 (the root's children) start as empty leaves, gpu_to_cpu points
// them at the CPU root's own children (nodes 0..7 there too), and both
// free lists exclude the reserved root group (0) and empty brick (0).
func New(nodeCapacity, brickCapacity uint32, colorTexDim [3]uint32, depth uint32, writer Writer) *GpuBrickmap {
	if writer == nil {
		writer = NopWriter{}
	}

	nodes := make([]uint32, 8*nodeCapacity)
	for i := range nodes {
		nodes[i] = BrickBit
	}
	gpuToCpu := make([]uint32, 8*nodeCapacity)
	for k := uint32(0); k < 8; k++ {
		gpuToCpu[k] = k
	}

	return &GpuBrickmap{
		Nodes:         nodes,
		GpuToCpu:      gpuToCpu,
		ColorTexDim:   colorTexDim,
		nodeFree:      newFreeList(1, nodeCapacity-1),
		brickFree:     newFreeList(1, brickCapacity-1),
		nodeCapacity:  nodeCapacity,
		brickCapacity: brickCapacity,
		depth:         depth,
		writer:        writer,
	}
}

// NodeCapacity returns the number of node groups the arena holds.
func (m *GpuBrickmap) NodeCapacity() uint32 { return m.nodeCapacity }

// BrickCapacity returns the number of brick slots the arena holds.
func (m *GpuBrickmap) BrickCapacity() uint32 { return m.brickCapacity }

// FreeNodeGroups returns the number of unallocated node groups, for
// tests and for the Streaming Controller's backpressure decisions.
func (m *GpuBrickmap) FreeNodeGroups() int { return m.nodeFree.len() }

// FreeBricks returns the number of unallocated brick slots.
func (m *GpuBrickmap) FreeBricks() int { return m.brickFree.len() }

// brickTexPos computes the 3-D texture position of brick slot s, per
// §4.C: dim = color_tex_dim/16; pos = (s/(dim.x*dim.y), (s/dim.x) mod
// dim.y, s mod dim.x) * 16.
func (m *GpuBrickmap) brickTexPos(slot uint32) [3]uint32 {
	dimX := m.ColorTexDim[0] / brick.Size
	dimY := m.ColorTexDim[1] / brick.Size
	return [3]uint32{
		(slot / (dimX * dimY)) * brick.Size,
		(slot / dimX % dimY) * brick.Size,
		(slot % dimX) * brick.Size,
	}
}

// AllocateBrick pops a free brick slot, uploads b's color bytes and
// occupancy bitmask at that slot, and returns the slot index.
func (m *GpuBrickmap) AllocateBrick(b *brick.Brick) (uint32, error) {
	slot, ok := m.brickFree.pop()
	if !ok {
		return 0, fmt.Errorf("gpubrickmap: allocate brick: %w", brickerr.ErrExhausted)
	}

	pos := m.brickTexPos(slot)
	m.writer.WriteBrickColor(slot, pos, b.ToColorBytes())
	mask := b.Bitmask()
	m.writer.WriteBrickMask(slot, mask[:])

	return slot, nil
}

func (m *GpuBrickmap) freeBrick(slot uint32) {
	if slot != 0 {
		m.brickFree.push(slot)
	}
}

// DivideNode refines leaf slot gpuI into eight children mirroring the
// CPU node's own children, per §4.C.
func (m *GpuBrickmap) DivideNode(cpu *cpubrickmap.CpuBrickmap, gpuI uint32) error {
	if m.Nodes[gpuI] < BrickBit {
		return fmt.Errorf("gpubrickmap: divide %d: already internal: %w", gpuI, brickerr.ErrInvariantViolation)
	}
	cpuNode := cpu.Nodes[m.GpuToCpu[gpuI]]
	if cpuNode.ChildrenGroup == 0 {
		return fmt.Errorf("gpubrickmap: divide %d: cpu mirror is a leaf: %w", gpuI, brickerr.ErrInvariantViolation)
	}

	g, ok := m.nodeFree.pop()
	if !ok {
		return fmt.Errorf("gpubrickmap: divide %d: %w", gpuI, brickerr.ErrExhausted)
	}

	cpuChildrenBase := 8 * cpuNode.ChildrenGroup
	for k := uint32(0); k < 8; k++ {
		cpuChild := cpu.Nodes[cpuChildrenBase+k]
		slot := 8*g + k

		m.Nodes[slot] = BrickBit
		if cpuChild.BrickIndex != 0 {
			brickSlot, err := m.AllocateBrick(cpu.Bricks[cpuChild.BrickIndex])
			if err != nil {
				// Partial divide: children 0..k-1 already hold allocated
				// bricks. Roll every one of them back onto brickFree
				// before freeing the group itself, or those slots become
				// unreachable (the group is no longer traversed) without
				// ever being on a free list — a permanent leak.
				for k2 := uint32(0); k2 < k; k2++ {
					if word := m.Nodes[8*g+k2]; word > BrickBit {
						m.freeBrick(word - BrickBit)
					}
				}
				m.nodeFree.push(g)
				return fmt.Errorf("gpubrickmap: divide %d: child %d: %w", gpuI, k, err)
			}
			m.Nodes[slot] = BrickBit + brickSlot
		}
		m.GpuToCpu[slot] = cpuChildrenBase + k
	}

	// gpuI no longer needs a color sample of its own now that its
	// children carry the detail; free whatever brick it held so the
	// free-list conservation and divide/cull-inverse properties (§8)
	// hold. original_source/gpu_brickmap.rs never frees this slot,
	// leaking it permanently on every divide of a non-empty leaf — see
	// DESIGN.md for why this repo diverges.
	if oldWord := m.Nodes[gpuI]; oldWord > BrickBit {
		m.freeBrick(oldWord - BrickBit)
	}

	m.Nodes[gpuI] = g
	return nil
}

// CullNode collapses internal slot gpuI's eight children back into a
// single leaf holding the ancestor's mipmapped brick, per §4.C.
// Grandchildren are not recursively freed; the Streaming Controller is
// responsible for calling CullNode bottom-up.
func (m *GpuBrickmap) CullNode(cpu *cpubrickmap.CpuBrickmap, gpuI uint32) error {
	if m.Nodes[gpuI] >= BrickBit {
		return fmt.Errorf("gpubrickmap: cull %d: already a leaf: %w", gpuI, brickerr.ErrInvariantViolation)
	}
	g := m.Nodes[gpuI]
	cpuNode := cpu.Nodes[m.GpuToCpu[gpuI]]
	ancestor := cpu.Bricks[cpuNode.BrickIndex]

	// Take the ancestor's slot before returning the children's: right
	// after a divide, the top of brickFree is the slot that divide
	// released, so gpuI gets it back and both free lists end up as they
	// were before the divide. Only if brickFree is empty is the slot taken
	// from the children's returned ones.
	brickSlot, err := m.AllocateBrick(ancestor)
	for k := uint32(0); k < 8; k++ {
		child := m.Nodes[8*g+k]
		if child > BrickBit {
			m.freeBrick(child - BrickBit)
		}
	}
	if err != nil {
		brickSlot, err = m.AllocateBrick(ancestor)
		if err != nil {
			return fmt.Errorf("gpubrickmap: cull %d: ancestor brick: %w", gpuI, err)
		}
	}

	m.Nodes[gpuI] = BrickBit + brickSlot
	m.nodeFree.push(g)
	return nil
}

// VisitFunc is called once per reachable GPU node slot during Traverse,
// in pre-order, with the node's voxel-space origin (in brick units) and
// the node depth (root's children are depth 1).
type VisitFunc func(gpuIndex uint32, origin brick.Coord, depth uint32)

// Traverse performs the pre-order walk required by §4.C, starting at
// the root group's eight children.
func (m *GpuBrickmap) Traverse(visit VisitFunc) {
	m.traverseGroup(0, brick.Coord{}, 1, visit)
}

func (m *GpuBrickmap) traverseGroup(groupBase uint32, origin brick.Coord, depth uint32, visit VisitFunc) {
	halfExtent := uint32(1) << (m.depth - depth)
	for k := uint32(0); k < 8; k++ {
		idx := groupBase + k
		childOrigin := origin
		if k&4 != 0 {
			childOrigin.X += halfExtent
		}
		if k&2 != 0 {
			childOrigin.Y += halfExtent
		}
		if k&1 != 0 {
			childOrigin.Z += halfExtent
		}

		visit(idx, childOrigin, depth)

		word := m.Nodes[idx]
		if word < BrickBit {
			m.traverseGroup(8*word, childOrigin, depth+1, visit)
		}
	}
}

// UploadNodes writes the entire node array to the GPU in one call, as
// §5 requires ("single contiguous write").
func (m *GpuBrickmap) UploadNodes() {
	m.writer.WriteNodes(m.Nodes)
}

// ResetHitCounters zeroes the optional ray-guided-streaming counter
// buffer (binding 2); no consumer reads it in this engine.
func (m *GpuBrickmap) ResetHitCounters() {
	m.writer.ResetHitCounters()
}
