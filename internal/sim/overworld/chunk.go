package overworld

import "fmt"

// Carving caps. A 6-cell polyomino has at most 14 edge neighbors, so 16 is
// headroom, not a working limit. Overflow surfaces as ErrCapacityExceeded.
const (
	MinBlockSize      = 3
	MaxBlockSize      = 6
	MaxCellsPerBlock  = 6
	MaxAdjacentBlocks = 16
	MaxBlocksPerChunk = ChunkSize * ChunkSize
)

// cellUnassigned is the sentinel in a chunk's cell table.
const cellUnassigned = -1

// Chunk is the arena for one ChunkCoord's blocks. Blocks are addressed by
// slot index; Cells maps each local cell to the slot of its owning block.
type Chunk struct {
	Coord  ChunkCoord
	Blocks []*Block

	// Cells is a dense ChunkSize*ChunkSize local-cell -> block-slot table,
	// x fastest then y. Once Generated is true every entry is a valid slot.
	Cells []int16

	Generated bool
}

func newChunk(coord ChunkCoord) *Chunk {
	cells := make([]int16, ChunkSize*ChunkSize)
	for i := range cells {
		cells[i] = cellUnassigned
	}
	return &Chunk{Coord: coord, Cells: cells}
}

func cellIndex(lx, ly int) int {
	// x fastest, then y
	return lx + ly*ChunkSize
}

// SlotAt returns the block slot owning the local cell, or cellUnassigned.
func (c *Chunk) SlotAt(lx, ly int) int {
	return int(c.Cells[cellIndex(lx, ly)])
}

// BlockAt returns the block owning the local cell.
func (c *Chunk) BlockAt(lx, ly int) (*Block, bool) {
	slot := c.SlotAt(lx, ly)
	if slot == cellUnassigned {
		return nil, false
	}
	return c.Blocks[slot], true
}

func (c *Chunk) addBlock(b *Block) (slot int, err error) {
	if len(c.Blocks) >= MaxBlocksPerChunk {
		return 0, fmt.Errorf("chunk (%d,%d): %w: %d blocks", c.Coord.CX, c.Coord.CY, ErrCapacityExceeded, len(c.Blocks))
	}
	c.Blocks = append(c.Blocks, b)
	return len(c.Blocks) - 1, nil
}

// checkTiling verifies the perfect-tiling invariant: every cell assigned,
// every assigned slot valid, block cell sets matching the table.
func (c *Chunk) checkTiling() error {
	counts := make([]int, len(c.Blocks))
	for i, slot := range c.Cells {
		if slot == cellUnassigned || int(slot) >= len(c.Blocks) {
			return fmt.Errorf("chunk (%d,%d): cell %d unassigned after carve", c.Coord.CX, c.Coord.CY, i)
		}
		counts[slot]++
	}
	for slot, b := range c.Blocks {
		if counts[slot] != len(b.Cells) {
			return fmt.Errorf("chunk (%d,%d): block %d owns %d cells, table says %d",
				c.Coord.CX, c.Coord.CY, b.ID, len(b.Cells), counts[slot])
		}
	}
	return nil
}
