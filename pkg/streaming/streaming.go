// Package streaming implements the per-frame traversal that decides
// which GPU brickmap nodes to refine or coarsen from a camera-tracked
// position, using the screen-space-ratio heuristic described in §4.D.
// It is driven once per frame from the render thread; nothing here
// blocks or spawns goroutines.
package streaming

import (
	"errors"
	"log"
	"math"

	"github.com/voxelsmith/brickmap/pkg/brick"
	"github.com/voxelsmith/brickmap/pkg/brickerr"
	"github.com/voxelsmith/brickmap/pkg/cpubrickmap"
	"github.com/voxelsmith/brickmap/pkg/gpubrickmap"
)

// Settings holds the runtime-tunable thresholds from §6. It is
// re-read once per Advance call, never cached, so a debug overlay or a
// hot-reloaded TOML file (internal/config) can mutate it freely between
// frames.
type Settings struct {
	Paused     bool
	DivideRatio float32
	CullRatio   float32
}

// FrameReport summarizes one Advance call's topology changes — the
// typed replacement for the original engine's debug println counters
// (see SPEC_FULL.md §1 Expansion).
type FrameReport struct {
	Divided        int
	Culled         int
	ExhaustedNodes  int
	ExhaustedBricks int
}

// visited is one node observed during the classification traversal.
type visited struct {
	gpuIndex uint32
	origin   brick.Coord
	depth    uint32
	isLeaf   bool
}

// Controller runs the per-frame streaming pass against one GpuBrickmap.
type Controller struct {
	cpu   *cpubrickmap.CpuBrickmap
	gpu   *gpubrickmap.GpuBrickmap
	depth uint32
}

// NewController builds a controller bound to the given CPU/GPU pair.
// depth is the octree's total node depth, used for the node_size ratio
// computation in ratio.
func NewController(cpu *cpubrickmap.CpuBrickmap, gpu *gpubrickmap.GpuBrickmap, depth uint32) *Controller {
	return &Controller{cpu: cpu, gpu: gpu, depth: depth}
}

// Advance performs one frame of the streaming pass from streamingPos (the
// camera position already translated into brick units by the caller, see
// camera.Camera.StreamingPosition): classify every reachable node,
// apply divides root-first and culls leaf-first, upload the mutated
// node buffer, and reset the hit-counter buffer.
func (c *Controller) Advance(streamingPos [3]float32, settings Settings) FrameReport {
	var report FrameReport
	if settings.Paused {
		return report
	}

	nodes := c.collect()

	var toDivide, toCull []visited
	for _, v := range nodes {
		ratio := c.ratio(v, streamingPos)
		if v.isLeaf {
			if ratio > settings.DivideRatio && c.cpuMirrorIsInternal(v) {
				toDivide = append(toDivide, v)
			}
		} else {
			if ratio < settings.CullRatio {
				toCull = append(toCull, v)
			}
		}
	}

	// Roots first: `collect` walked pre-order, so toDivide is already
	// in that order.
	for _, v := range toDivide {
		err := c.gpu.DivideNode(c.cpu, v.gpuIndex)
		if err == nil {
			report.Divided++
			continue
		}
		if errors.Is(err, brickerr.ErrExhausted) {
			report.ExhaustedNodes++
			log.Printf("streaming: divide %d: %v", v.gpuIndex, err)
			break // back-pressure: node_free or brick_free is empty, stop issuing divides this frame
		}
		log.Printf("streaming: divide %d: %v", v.gpuIndex, err)
	}

	// Deepest first: reverse traversal order so a node is culled only
	// after its descendants are (§4.D step 4).
	for i := len(toCull) - 1; i >= 0; i-- {
		v := toCull[i]
		// A descendant whose cull did not happen (not queued, or failed)
		// is still internal; culling v now would orphan its group.
		g := c.gpu.Nodes[v.gpuIndex]
		childInternal := false
		for k := uint32(0); k < 8; k++ {
			if c.gpu.Nodes[8*g+k] < gpubrickmap.BrickBit {
				childInternal = true
			}
		}
		if childInternal {
			continue
		}
		err := c.gpu.CullNode(c.cpu, v.gpuIndex)
		if err == nil {
			report.Culled++
			continue
		}
		if errors.Is(err, brickerr.ErrExhausted) {
			report.ExhaustedBricks++
			log.Printf("streaming: cull %d: %v", v.gpuIndex, err)
			continue // a cull can be retried independently next frame
		}
		log.Printf("streaming: cull %d: %v", v.gpuIndex, err)
	}

	c.gpu.UploadNodes()
	c.gpu.ResetHitCounters()

	return report
}

func (c *Controller) collect() []visited {
	var nodes []visited
	c.gpu.Traverse(func(gpuIndex uint32, origin brick.Coord, depth uint32) {
		nodes = append(nodes, visited{
			gpuIndex: gpuIndex,
			origin:   origin,
			depth:    depth,
			isLeaf:   c.gpu.Nodes[gpuIndex] >= gpubrickmap.BrickBit,
		})
	})
	return nodes
}

// ratio computes the screen-space-ratio heuristic of §4.D: node_size in
// voxel units, distance from the streaming position to the node's
// center, and ratio = 100 * node_size / dist.
func (c *Controller) ratio(v visited, streamingPos [3]float32) float32 {
	nodeSizeBricks := float32(uint32(1) << (c.depth - v.depth))
	nodeSizeVoxels := nodeSizeBricks * brick.Size

	centerBricks := [3]float32{
		float32(v.origin.X) + nodeSizeBricks/2,
		float32(v.origin.Y) + nodeSizeBricks/2,
		float32(v.origin.Z) + nodeSizeBricks/2,
	}
	dx := centerBricks[0] - streamingPos[0]
	dy := centerBricks[1] - streamingPos[1]
	dz := centerBricks[2] - streamingPos[2]
	distBricks := float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
	distVoxels := distBricks * brick.Size

	if distVoxels == 0 {
		return float32(math.Inf(1))
	}
	return 100 * nodeSizeVoxels / distVoxels
}

func (c *Controller) cpuMirrorIsInternal(v visited) bool {
	cpuIndex := c.gpu.GpuToCpu[v.gpuIndex]
	return c.cpu.Nodes[cpuIndex].ChildrenGroup != 0
}
