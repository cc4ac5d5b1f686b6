// Package worldloader reads a directory of Anvil region files, converts
// their block states to bricks via a palette, and assembles a
// mipmapped CpuBrickmap — Component E of the brickmap engine. Loading
// runs once at startup, either synchronously or handed off to a worker
// goroutine so the render thread can open its window while the world
// builds in the background.
package worldloader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Tnze/go-mc/nbt"
	"github.com/Tnze/go-mc/save"
	"github.com/google/uuid"

	"github.com/voxelsmith/brickmap/pkg/brick"
	"github.com/voxelsmith/brickmap/pkg/brickerr"
	"github.com/voxelsmith/brickmap/pkg/cpubrickmap"
	"github.com/voxelsmith/brickmap/pkg/palette"
)

// Config describes one load: the region directory, how many regions
// out from the origin to scan, and the target world depth in voxels
// (2^WorldDepth), per §4.E's contract.
type Config struct {
	RegionDir     string
	RegionRadius  int
	WorldDepth    uint32 // voxel-space depth; node depth is WorldDepth-4
	Palette       *palette.Palette
}

// nbtBlockStates mirrors the paletted-container NBT layout Anvil uses
// for a section's block_states tag since the 1.18 flattening.
type nbtBlockStates struct {
	Palette []struct {
		Name string `nbt:"Name"`
	} `nbt:"palette"`
	Data []int64 `nbt:"data"`
}

type nbtSection struct {
	Y           int8           `nbt:"Y"`
	BlockStates nbtBlockStates `nbt:"block_states"`
}

type nbtChunk struct {
	Sections []nbtSection `nbt:"sections"`
}

// Load builds a complete CpuBrickmap from cfg, halting on the first
// insertion failure (out of address space at the requested depth), and
// calls RecreateMipmaps exactly once before returning.
func Load(cfg Config) (*cpubrickmap.CpuBrickmap, error) {
	if cfg.WorldDepth < 4 {
		return nil, fmt.Errorf("worldloader: world depth %d too small to hold one brick: %w", cfg.WorldDepth, brickerr.ErrMalformed)
	}
	nodeDepth := cfg.WorldDepth - 4
	cb := cpubrickmap.New(nodeDepth)
	shift := int64(uint32(1) << (nodeDepth - 1) * brick.Size)

	for rx := -cfg.RegionRadius; rx <= cfg.RegionRadius; rx++ {
		for rz := -cfg.RegionRadius; rz <= cfg.RegionRadius; rz++ {
			if err := loadRegion(cb, cfg, regionCoord{X: rx, Z: rz}, shift); err != nil {
				if errors.Is(err, brickerr.ErrNotFound) {
					continue // sparse worlds needn't have every region present
				}
				return nil, err
			}
		}
	}

	cb.RecreateMipmaps()
	return cb, nil
}

func loadRegion(cb *cpubrickmap.CpuBrickmap, cfg Config, r regionCoord, shift int64) error {
	path := filepath.Join(cfg.RegionDir, fmt.Sprintf("r.%d.%d.mca", r.X, r.Z))
	region, err := save.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("worldloader: %s: %w", path, brickerr.ErrNotFound)
		}
		return fmt.Errorf("worldloader: open %s: %w", path, brickerr.ErrMalformed)
	}
	defer region.Close()

	for cx := 0; cx < regionChunks; cx++ {
		for cz := 0; cz < regionChunks; cz++ {
			if !region.ExistSector(cx, cz) {
				continue
			}
			data, err := region.ReadSector(cx, cz)
			if err != nil {
				return fmt.Errorf("worldloader: read chunk (%d,%d) in %s: %w", cx, cz, path, brickerr.ErrMalformed)
			}

			var chunk nbtChunk
			if err := nbt.Unmarshal(data, &chunk); err != nil {
				return fmt.Errorf("worldloader: decode chunk (%d,%d) in %s: %w", cx, cz, path, brickerr.ErrMalformed)
			}

			for _, section := range chunk.Sections {
				if err := insertSection(cb, cfg.Palette, r, cx, cz, section, shift); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func insertSection(cb *cpubrickmap.CpuBrickmap, pal *palette.Palette, r regionCoord, cx, cz int, section nbtSection, shift int64) error {
	names := section.BlockStates.Palette
	if len(names) <= 1 {
		// A single-entry palette (air or otherwise uniform) carries no
		// data array at all, so there's nothing to unpack; skip it.
		return nil
	}

	indices := unpackBlockIndices(section.BlockStates.Data, bitsPerEntryFor(len(names)), sectionBlocks*sectionBlocks*sectionBlocks)

	b := brick.Empty()
	for i, paletteIdx := range indices {
		if paletteIdx < 0 || paletteIdx >= len(names) {
			continue
		}
		name := names[paletteIdx].Name
		if name == "minecraft:air" {
			continue
		}
		// Minecraft's section array is indexed y,z,x outer-to-inner.
		y := i / (sectionBlocks * sectionBlocks)
		rem := i % (sectionBlocks * sectionBlocks)
		z := rem / sectionBlocks
		x := rem % sectionBlocks
		b.Write(brick.Coord{X: uint32(x), Y: uint32(y), Z: uint32(z)}, pal.Color(name))
	}

	originX, originY, originZ := worldBlockOrigin(r, cx, cz, section.Y)
	posX := (originX + shift) / brick.Size
	posY := (originY + shift) / brick.Size
	posZ := (originZ + shift) / brick.Size

	if posX < 0 || posY < 0 || posZ < 0 {
		return fmt.Errorf("worldloader: section at chunk (%d,%d) maps to negative brick position (%d,%d,%d): %w", cx, cz, posX, posY, posZ, brickerr.ErrMalformed)
	}

	// Out-of-range positions are left to PlaceBrick's own bounds check,
	// which returns an error rather than silently dropping the brick —
	// Load halts on the first insertion failure.
	return cb.PlaceBrick(b, brick.Coord{X: uint32(posX), Y: uint32(posY), Z: uint32(posZ)})
}

// Result is what LoadAsync hands back over its channel: either a built
// CpuBrickmap or the error that halted loading. JobID identifies this
// load run in logs, since a future debug overlay may kick off more
// than one (a reload after the region directory changes on disk).
type Result struct {
	JobID    uuid.UUID
	Brickmap *cpubrickmap.CpuBrickmap
	Err      error
}

// LoadAsync runs Load on a worker goroutine and returns a channel that
// receives exactly one Result before closing — adapted from the
// teacher's ChunkManager.chunkWorker pattern (one job per network
// chunk there; one job, the whole world, here). The render thread can
// open its window and poll this channel without blocking.
func LoadAsync(cfg Config) <-chan Result {
	jobID := uuid.New()
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		cb, err := Load(cfg)
		out <- Result{JobID: jobID, Brickmap: cb, Err: err}
	}()
	return out
}
