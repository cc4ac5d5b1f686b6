package openglhelper

import (
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
)

// Texture3D represents an OpenGL 3-D texture object, used by the
// brickmap's color voxel buffer (binding 4 of the ray-march contract):
// one RGBA8 texel per voxel, uploaded brick-by-brick with TexSubImage3D
// rather than rebuilding the whole texture on every brick allocation.
type Texture3D struct {
	ID            uint32
	Width, Height, Depth int32
}

// NewTexture3D allocates immutable RGBA8 storage for a 3-D texture of
// the given edge lengths (in voxels), with nearest filtering and
// edge clamping. It leaves the texture bound to the TEXTURE_3D target of
// the active unit; BindUnit attaches it to a specific texture unit.
func NewTexture3D(width, height, depth int32) *Texture3D {
	var id uint32
	gl.GenTextures(1, &id)

	gl.BindTexture(gl.TEXTURE_3D, id)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.TexStorage3D(gl.TEXTURE_3D, 1, gl.RGBA8, width, height, depth)

	return &Texture3D{ID: id, Width: width, Height: height, Depth: depth}
}

// WriteSubImage uploads a rectangular RGBA8 block of colorBytes (4
// bytes per voxel, x-fastest) at voxel offset (x, y, z).
func (t *Texture3D) WriteSubImage(x, y, z, w, h, d int32, colorBytes []byte) {
	gl.BindTexture(gl.TEXTURE_3D, t.ID)
	gl.TexSubImage3D(gl.TEXTURE_3D, 0, x, y, z, w, h, d, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&colorBytes[0]))
}

// BindUnit binds the texture to the given texture image unit, for the
// fragment shader's binding 4 sampler.
func (t *Texture3D) BindUnit(unit uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_3D, t.ID)
}

// Delete releases the texture object.
func (t *Texture3D) Delete() {
	gl.DeleteTextures(1, &t.ID)
}
