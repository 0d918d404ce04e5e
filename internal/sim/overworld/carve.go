package overworld

import "math/rand"

// chunkSeed derives the chunk-local PRNG seed from the campaign seed and the
// chunk coordinate, so the same (seed, coord) always carves the same tiling
// regardless of generation order.
func chunkSeed(seed int64, coord ChunkCoord) int64 {
	return int64(hash2(seed, coord.CX, coord.CY))
}

// carveChunk partitions the chunk's 16x16 cells into polyomino cell groups
// by randomized flood-fill growth. Every cell ends up in exactly one group;
// group sizes target [MinBlockSize, MaxBlockSize] but an isolated pocket can
// finalize smaller when its frontier runs dry.
func carveChunk(coord ChunkCoord, rng *rand.Rand) [][]GridCoord {
	origin := coord.Origin()

	// slot[i] = group index owning local cell i, or cellUnassigned.
	slot := make([]int16, ChunkSize*ChunkSize)
	for i := range slot {
		slot[i] = cellUnassigned
	}

	// Unassigned local cell indexes, swap-removed as they are claimed.
	unassigned := make([]int, 0, ChunkSize*ChunkSize)
	for i := 0; i < ChunkSize*ChunkSize; i++ {
		unassigned = append(unassigned, i)
	}
	// position of each local cell inside unassigned, -1 once claimed
	pos := make([]int, ChunkSize*ChunkSize)
	for i := range pos {
		pos[i] = i
	}

	claim := func(cell int, group int16) {
		p := pos[cell]
		last := len(unassigned) - 1
		unassigned[p] = unassigned[last]
		pos[unassigned[p]] = p
		unassigned = unassigned[:last]
		pos[cell] = -1
		slot[cell] = group
	}

	var groups [][]GridCoord
	frontier := make([]int, 0, 16)
	inFrontier := make([]bool, ChunkSize*ChunkSize)

	for len(unassigned) > 0 {
		group := int16(len(groups))

		// Seed cell: uniform among the still-unassigned cells.
		seedCell := unassigned[rng.Intn(len(unassigned))]
		target := MinBlockSize + rng.Intn(MaxBlockSize-MinBlockSize+1)
		if remaining := len(unassigned); target > remaining {
			target = remaining
		}

		claim(seedCell, group)
		cells := []GridCoord{localToWorld(origin, seedCell)}

		frontier = frontier[:0]
		pushNeighbors(seedCell, slot, inFrontier, &frontier)

		for len(cells) < target && len(frontier) > 0 {
			// Pop a uniformly random frontier cell (swap-remove).
			i := rng.Intn(len(frontier))
			cell := frontier[i]
			frontier[i] = frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]
			inFrontier[cell] = false

			claim(cell, group)
			cells = append(cells, localToWorld(origin, cell))
			pushNeighbors(cell, slot, inFrontier, &frontier)
		}

		// Clear frontier residue before the next group.
		for _, cell := range frontier {
			inFrontier[cell] = false
		}

		groups = append(groups, cells)
	}
	return groups
}

// pushNeighbors adds the unassigned in-chunk 4-neighbors of the local cell
// to the frontier.
func pushNeighbors(cell int, slot []int16, inFrontier []bool, frontier *[]int) {
	lx := cell % ChunkSize
	ly := cell / ChunkSize
	try := func(nx, ny int) {
		if nx < 0 || nx >= ChunkSize || ny < 0 || ny >= ChunkSize {
			return
		}
		n := cellIndex(nx, ny)
		if slot[n] != cellUnassigned || inFrontier[n] {
			return
		}
		inFrontier[n] = true
		*frontier = append(*frontier, n)
	}
	try(lx+1, ly)
	try(lx-1, ly)
	try(lx, ly+1)
	try(lx, ly-1)
}

func localToWorld(origin GridCoord, cell int) GridCoord {
	return GridCoord{X: origin.X + cell%ChunkSize, Y: origin.Y + cell/ChunkSize}
}
