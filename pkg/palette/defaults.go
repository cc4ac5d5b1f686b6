package palette

// Default seed colors for the block names the demo world loader is
// likely to encounter, adapted from the teacher repo's BlockType/
// BlockProperties table (pkg/voxel/block.go in the original) into the
// hardcoded palette overrides the original Rust engine's load_palette
// applies before falling back to the JSON asset. Transparent blocks get
// a reduced alpha rather than Solid/Transparent booleans, since the
// brickmap has no separate transparency flag — alpha carries that
// information end to end.
var defaultOverrides = map[string][4]uint8{
	DefaultKey:              {255, 0, 255, 255}, // missing-name marker: magenta
	"minecraft:air":         {0, 0, 0, 0},
	"minecraft:grass_block": {95, 159, 53, 255},
	"minecraft:dirt":        {134, 96, 67, 255},
	"minecraft:stone":       {125, 125, 125, 255},
	"minecraft:oak_log":     {102, 81, 51, 255},
	"minecraft:oak_leaves":  {60, 120, 40, 200},
	"minecraft:glass":       {210, 230, 230, 40},
	"minecraft:water":       {63, 118, 228, 150},
	"minecraft:sand":        {219, 207, 163, 255},
	"minecraft:snow":        {250, 250, 250, 255},
	"minecraft:oak_planks":  {162, 130, 78, 255},
	"minecraft:stone_bricks": {122, 122, 122, 255},
	"minecraft:netherrack":  {114, 54, 53, 255},
	"minecraft:gold_block":  {246, 208, 62, 255},
	"minecraft:packed_ice":  {141, 180, 238, 230},
	"minecraft:lava":        {207, 93, 19, 230},
	"minecraft:barrel":      {113, 83, 49, 255},
	"minecraft:bookshelf":   {112, 90, 56, 255},
}

// DefaultPalette returns the built-in palette used when the demo has
// not been pointed at a JSON asset on disk.
func DefaultPalette() *Palette {
	p, err := FromMap(defaultOverrides)
	if err != nil {
		// defaultOverrides always carries DefaultKey; a failure here
		// means the seed table itself was edited incorrectly.
		panic(err)
	}
	return p
}
