package worldloader

// regionChunks is the number of chunks along one edge of an Anvil
// region file.
const regionChunks = 32

// chunkBlocks is the number of blocks along one horizontal edge of a
// chunk, and sectionBlocks the edge length of one 16-tall section —
// both equal to brick.Size, which is what makes each section split
// into exactly one sub-brick (§4.E).
const chunkBlocks = 16
const sectionBlocks = 16

// regionCoord identifies a region file by its r.X.Z.mca indices.
type regionCoord struct {
	X, Z int
}

// worldBlockOrigin returns the world-space block coordinate of the
// (0,0,0) corner of chunk (cx, cz) within region r, and of section y.
func worldBlockOrigin(r regionCoord, cx, cz int, sectionY int8) (x, y, z int64) {
	x = int64(r.X*regionChunks+cx) * chunkBlocks
	z = int64(r.Z*regionChunks+cz) * chunkBlocks
	y = int64(sectionY) * sectionBlocks
	return
}

// unpackBlockIndices decodes a 1.18+ block_states packed long array into
// `count` palette indices of `bitsPerEntry` bits each. Since MC 1.16 each
// int64 is padded: it holds exactly `floor(64/bitsPerEntry)` entries and
// its unused high bits are zero — entries never straddle a long boundary
// (unlike the pre-1.16 continuous-bitstream layout).
func unpackBlockIndices(data []int64, bitsPerEntry int, count int) []int {
	out := make([]int, count)
	if bitsPerEntry == 0 {
		return out // single-entry palette: every block is palette[0]
	}

	mask := uint64(1)<<uint(bitsPerEntry) - 1
	entriesPerLong := 64 / bitsPerEntry
	for i := 0; i < count; i++ {
		longIdx := i / entriesPerLong
		indexInLong := uint(i % entriesPerLong)

		value := uint64(data[longIdx]) >> (indexInLong * uint(bitsPerEntry))
		out[i] = int(value & mask)
	}
	return out
}

// bitsPerEntryFor returns the packed-array entry width for a palette of
// the given size, per Minecraft's paletted-container format: at least 4
// bits, enough to address every palette entry.
func bitsPerEntryFor(paletteLen int) int {
	bits := 0
	for (1 << bits) < paletteLen {
		bits++
	}
	if bits < 4 {
		bits = 4
	}
	return bits
}
