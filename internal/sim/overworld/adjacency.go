package overworld

import (
	"fmt"
	"sort"
)

// RebuildAdjacency recomputes every block's neighbor set from scratch by
// walking each cell's 4-neighbors across all generated chunks. Neighbors in
// chunks that do not exist yet are skipped; because the rebuild re-scans
// everything, it is idempotent and order-independent, and must run again
// after any chunk is generated.
func (m *Map) RebuildAdjacency() error {
	for _, key := range m.LoadedChunkKeys() {
		ch := m.chunks[key]
		for _, b := range ch.Blocks {
			set := map[BlockID]struct{}{}
			for _, cell := range b.Cells {
				for _, n := range cell.Cardinals() {
					nb, ok := m.blockAtCell(n)
					if !ok || nb.ID == b.ID {
						continue
					}
					set[nb.ID] = struct{}{}
				}
			}
			if len(set) > MaxAdjacentBlocks {
				return fmt.Errorf("block %d: %d neighbors: %w", b.ID, len(set), ErrCapacityExceeded)
			}
			adj := make([]BlockID, 0, len(set))
			for id := range set {
				adj = append(adj, id)
			}
			sort.Slice(adj, func(i, j int) bool { return adj[i] < adj[j] })
			b.Adjacent = adj
		}
	}
	return nil
}

// IsExteriorEdge reports whether the edge between a block and a neighbor ID
// should render as a territory border: true unless the two blocks are
// adjacent and held by the same non-contested faction.
func (m *Map) IsExteriorEdge(blockID, neighborID BlockID) bool {
	return !m.SameFactionAdjacent(blockID, neighborID)
}

// SameFactionAdjacent reports whether two blocks are adjacent and share the
// same non-contested faction.
func (m *Map) SameFactionAdjacent(a, b BlockID) bool {
	ba, ok := m.GetBlock(a)
	if !ok {
		return false
	}
	bb, ok := m.GetBlock(b)
	if !ok {
		return false
	}
	if !ba.IsAdjacent(b) {
		return false
	}
	return ba.Faction != NoFaction && ba.Faction == bb.Faction
}
