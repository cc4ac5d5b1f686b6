package worldloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelsmith/brickmap/pkg/cpubrickmap"
	"github.com/voxelsmith/brickmap/pkg/palette"
)

func testPalette(t *testing.T) *palette.Palette {
	t.Helper()
	pal, err := palette.FromMap(map[string][4]uint8{
		"":                {0, 0, 0, 0},
		"minecraft:stone": {128, 128, 128, 255},
		"minecraft:dirt":  {96, 64, 32, 255},
	})
	require.NoError(t, err)
	return pal
}

// namesOf builds the nbtBlockStates.Palette field from block names.
func namesOf(names ...string) []struct {
	Name string `nbt:"Name"`
} {
	out := make([]struct {
		Name string `nbt:"Name"`
	}, len(names))
	for i, n := range names {
		out[i].Name = n
	}
	return out
}

func TestInsertSectionSkipsSingleEntryNonAirPalette(t *testing.T) {
	cb := cpubrickmap.New(2)
	section := nbtSection{
		Y: 0,
		BlockStates: nbtBlockStates{
			Palette: namesOf("minecraft:stone"),
			Data:    nil, // real Anvil sections omit data entirely for a uniform section
		},
	}

	err := insertSection(cb, testPalette(t), regionCoord{}, 0, 0, section, 0)

	require.NoError(t, err, "a single-entry palette must be skipped before unpacking, regardless of which block it names")
}

func TestInsertSectionSkipsAllAirSection(t *testing.T) {
	cb := cpubrickmap.New(2)
	section := nbtSection{
		Y: 0,
		BlockStates: nbtBlockStates{
			Palette: namesOf("minecraft:air"),
			Data:    nil,
		},
	}

	err := insertSection(cb, testPalette(t), regionCoord{}, 0, 0, section, 0)

	require.NoError(t, err)
}

func TestInsertSectionHaltsOnOutOfRangePosition(t *testing.T) {
	cb := cpubrickmap.New(1) // side length 2 bricks; section.Y=100 maps far outside it
	data := make([]int64, 256)

	section := nbtSection{
		Y: 100,
		BlockStates: nbtBlockStates{
			Palette: namesOf("minecraft:stone", "minecraft:dirt"),
			Data:    data,
		},
	}

	err := insertSection(cb, testPalette(t), regionCoord{}, 0, 0, section, 0)

	assert.Error(t, err, "an out-of-range insertion must propagate an error instead of being silently dropped")
}

func TestInsertSectionPlacesBrickInRange(t *testing.T) {
	cb := cpubrickmap.New(2) // side length 4 bricks
	data := make([]int64, 256)

	section := nbtSection{
		Y: 0,
		BlockStates: nbtBlockStates{
			Palette: namesOf("minecraft:stone", "minecraft:dirt"),
			Data:    data,
		},
	}

	shift := int64(uint32(1) << (cb.Depth - 1) * 16)
	err := insertSection(cb, testPalette(t), regionCoord{}, 0, 0, section, shift)

	require.NoError(t, err)
	assert.Greater(t, len(cb.Bricks), 1, "a non-trivial palette within range should place a brick beyond the seeded empty one")
}
