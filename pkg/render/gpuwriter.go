package render

import (
	"unsafe"

	"openglhelper"

	"github.com/go-gl/gl/v4.6-core/gl"

	"github.com/voxelsmith/brickmap/pkg/brick"
)

// bindingUniform, bindingNodes, bindingHitCounters and bindingBrickMasks
// mirror the fragment-shader binding table exactly (each brick slot
// takes brick.BitmaskBytes in brick_masks); bindingColorTexture is the
// texture image unit the 3-D color texture samples from.
const (
	bindingUniform      = 0
	bindingNodes        = 1
	bindingHitCounters  = 2
	bindingBrickMasks   = 3
	bindingColorTexture = 4
)

// globals is the binding-0 uniform block: the three constants the ray
// marcher needs to interpret the node words and brick mask layout.
type globals struct {
	BrickmapDepth uint32
	BrickSizeLog2 uint32
	BrickInts     uint32
	_pad          uint32
}

// GPUWriter implements gpubrickmap.Writer against real OpenGL
// resources: a uniform buffer for the shading constants, a triple
// persistently-mapped storage buffer rotating the node upload (the
// teacher's own persistent-buffer-plus-fence idiom from
// chunkBufferManager.go, generalized here instead of per-chunk vertex
// streaming), a single persistently-mapped storage buffer for brick
// masks, a plain dynamic-copy storage buffer for the optional hit
// counters, and a 3-D RGBA8 texture for brick colors.
type GPUWriter struct {
	uniformBuf     *openglhelper.BufferObject
	nodesTriple    *openglhelper.TripleBuffer
	hitCountersBuf *openglhelper.BufferObject
	brickMasksBuf  *openglhelper.BufferObject
	colorTex       *openglhelper.Texture3D

	nodeCapacity uint32
}

// NewGPUWriter allocates the GPU-side resources sized for the given
// arena capacities and color texture edge lengths, and binds the uniform
// block, the three storage buffers and the texture to their contract
// slots. The hit-counter, brick-mask and texture bindings stay as set
// here, since nothing else in this renderer uses those binding points;
// the nodes binding is moved to the current triple-buffer section by
// every WriteNodes call.
func NewGPUWriter(nodeCapacity, brickCapacity uint32, colorTexDim [3]uint32, depth uint32) (*GPUWriter, error) {
	uniformBuf := openglhelper.NewBufferObject(gl.UNIFORM_BUFFER, int(unsafe.Sizeof(globals{})), nil, openglhelper.StaticDraw)

	// Nodes are rewritten wholesale once per frame (§5), the exact
	// access pattern openglhelper.TripleBuffer was built for: the CPU
	// writes into one section while the GPU still reads a previous
	// frame's section, and a fence tells the next WriteNodes call when
	// that section is safe to reuse.
	nodesTriple, err := openglhelper.NewTripleBuffer(gl.SHADER_STORAGE_BUFFER, int(8*nodeCapacity)*4, 3)
	if err != nil {
		return nil, err
	}

	// Brick masks are written at arbitrary times by AllocateBrick, one
	// slot at a time, not wholesale per frame, so a plain persistent
	// buffer fits better than rotating sections.
	brickMasksBuf, err := openglhelper.NewPersistentBuffer(gl.SHADER_STORAGE_BUFFER, int(brickCapacity)*brick.BitmaskBytes, false, true)
	if err != nil {
		return nil, err
	}

	hitCountersBuf := openglhelper.NewBufferObject(gl.SHADER_STORAGE_BUFFER, int(8*nodeCapacity)*4, nil, openglhelper.DynamicCopy)

	colorTex := openglhelper.NewTexture3D(int32(colorTexDim[0]), int32(colorTexDim[1]), int32(colorTexDim[2]))

	w := &GPUWriter{
		uniformBuf:     uniformBuf,
		nodesTriple:    nodesTriple,
		hitCountersBuf: hitCountersBuf,
		brickMasksBuf:  brickMasksBuf,
		colorTex:       colorTex,
		nodeCapacity:   nodeCapacity,
	}

	g := globals{BrickmapDepth: depth, BrickSizeLog2: 4, BrickInts: brick.BitmaskWords}
	uniformBuf.UpdateData(unsafe.Pointer(&g))

	w.bindAll()
	return w, nil
}

// bindAll binds the uniform block and the three storage buffers to the
// fixed points the fragment shader expects, and the color texture to
// its image unit.
func (w *GPUWriter) bindAll() {
	gl.BindBufferBase(gl.UNIFORM_BUFFER, bindingUniform, w.uniformBuf.ID)
	w.nodesTriple.BindCurrentBase(bindingNodes)
	w.hitCountersBuf.BindBase(bindingHitCounters)
	w.brickMasksBuf.BindBase(bindingBrickMasks)
	w.colorTex.BindUnit(bindingColorTexture)
}

// WriteBrickColor uploads a brick's 16^3 RGBA8 voxels into the color
// texture at the slot's computed position.
func (w *GPUWriter) WriteBrickColor(slot uint32, texPos [3]uint32, colorBytes []byte) {
	w.colorTex.WriteSubImage(int32(texPos[0]), int32(texPos[1]), int32(texPos[2]), brick.Size, brick.Size, brick.Size, colorBytes)
}

// WriteBrickMask uploads a brick's occupancy bitmask at its slot's
// fixed 584-byte offset in the brick_masks storage buffer.
func (w *GPUWriter) WriteBrickMask(slot uint32, mask []byte) {
	w.brickMasksBuf.UpdateSubData(int(slot)*brick.BitmaskBytes, len(mask), unsafe.Pointer(&mask[0]))
}

// WriteNodes uploads the entire node array in one contiguous write, as
// §5 requires, rotating to the triple buffer's next section so the GPU
// can still be reading the previous frame's nodes while this frame's
// write lands.
func (w *GPUWriter) WriteNodes(nodes []uint32) {
	w.nodesTriple.WaitForSync()

	dst := unsafe.Slice((*uint32)(w.nodesTriple.MappedMemory), int(8*w.nodeCapacity)*w.nodesTriple.NumBuffers)
	base := w.nodesTriple.CurrentOffsetBytes() / 4
	copy(dst[base:base+len(nodes)], nodes)

	w.nodesTriple.CreateFenceSync()
	w.nodesTriple.BindCurrentBase(bindingNodes)
	w.nodesTriple.Advance()
}

// ResetHitCounters zeroes the hit-counter buffer for the next frame.
func (w *GPUWriter) ResetHitCounters() {
	zero := make([]uint32, 8*w.nodeCapacity)
	w.hitCountersBuf.UpdateData(unsafe.Pointer(&zero[0]))
}

// Cleanup releases all GPU resources.
func (w *GPUWriter) Cleanup() {
	w.uniformBuf.Delete()
	w.nodesTriple.Cleanup()
	w.hitCountersBuf.Delete()
	w.brickMasksBuf.Delete()
	w.colorTex.Delete()
}
