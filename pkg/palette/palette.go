// Package palette loads the block-name → RGBA color map the World
// Loader uses to turn Anvil block-state names into brick.Voxel values.
// The palette itself is not part of this engine's scope (§6 treats the
// asset-voxelization pipeline that produces the authoritative colors as
// an external collaborator); this package only consumes the resulting
// JSON asset.
package palette

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/voxelsmith/brickmap/pkg/brick"
)

// DefaultKey is the required palette entry used when a block name has
// no explicit mapping.
const DefaultKey = ""

// Palette is an immutable string → RGBA map, safe for concurrent reads
// once loaded (§5: "the palette map: shared-immutable").
type Palette struct {
	colors map[string]brick.Voxel
}

// rawEntry mirrors the JSON wire format: [r, g, b, a].
type rawEntry [4]uint8

// Load reads a palette JSON asset from path. The file must contain an
// object mapping block name to a 4-element RGBA array, including the
// required "" default entry.
func Load(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("palette: open %s: %w", path, err)
	}
	defer f.Close()

	var raw map[string]rawEntry
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, fmt.Errorf("palette: decode %s: %w", path, err)
	}
	return fromRaw(raw)
}

// FromMap builds a Palette directly from an in-memory map, used by
// pkg/worldloader's tests and by DefaultPalette to seed the built-in
// defaults.
func FromMap(entries map[string][4]uint8) (*Palette, error) {
	raw := make(map[string]rawEntry, len(entries))
	for name, v := range entries {
		raw[name] = rawEntry(v)
	}
	return fromRaw(raw)
}

func fromRaw(raw map[string]rawEntry) (*Palette, error) {
	if _, ok := raw[DefaultKey]; !ok {
		return nil, fmt.Errorf("palette: missing required default entry %q", DefaultKey)
	}

	colors := make(map[string]brick.Voxel, len(raw))
	for name, c := range raw {
		colors[name] = brick.Voxel{R: c[0], G: c[1], B: c[2], A: c[3]}
	}
	return &Palette{colors: colors}, nil
}

// Color returns the RGBA color for a block name, falling back to the
// palette's default entry when name is unmapped.
func (p *Palette) Color(name string) brick.Voxel {
	if v, ok := p.colors[name]; ok {
		return v
	}
	return p.colors[DefaultKey]
}

// Len returns the number of explicit (non-default-fallback) entries.
func (p *Palette) Len() int {
	return len(p.colors)
}
