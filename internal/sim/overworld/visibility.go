package overworld

import "sort"

// RecomputeVisibility rebuilds the four-tier disclosure partition from
// scratch after any topology-affecting event: every non-conquered block is
// reset to fogged, then three rings are grown out from the held territory
// by successive frontier expansion. Chunks bordering the first ring are
// generated on demand (with a global adjacency rebuild) before the outer
// rings are computed, so ring growth never silently stops at a chunk seam.
func (m *Map) RecomputeVisibility() error {
	for _, key := range m.LoadedChunkKeys() {
		for _, b := range m.chunks[key].Blocks {
			if _, held := m.conquered[b.ID]; held {
				b.State = StateConquered
				b.Layer = LayerConquered
				continue
			}
			b.State = StateFogged
			b.Layer = LayerFogged
		}
	}
	m.layer1 = map[BlockID]struct{}{}
	m.layer2 = map[BlockID]struct{}{}
	m.layer3 = map[BlockID]struct{}{}

	// Ring 1: neighbors of held territory. Before the first conquest the
	// home block itself is the whole first ring, so the player can see the
	// fight they must win.
	if len(m.conquered) == 0 {
		if m.startBlock != NoBlock {
			m.layer1[m.startBlock] = struct{}{}
		}
	} else {
		for _, id := range sortedIDs(m.conquered) {
			b, ok := m.GetBlock(id)
			if !ok {
				continue
			}
			for _, nid := range b.Adjacent {
				if _, held := m.conquered[nid]; held {
					continue
				}
				m.layer1[nid] = struct{}{}
			}
		}
	}

	// Lazy expansion: rings 2 and 3 may cross into chunks that do not exist
	// yet. Generate every chunk bordering a ring-1 block, then rebuild the
	// adjacency graph so the new blocks are reachable.
	if err := m.ensureChunksAround(m.layer1); err != nil {
		return err
	}

	grow := func(from, into map[BlockID]struct{}, exclude ...map[BlockID]struct{}) {
		for _, id := range sortedIDs(from) {
			b, ok := m.GetBlock(id)
			if !ok {
				continue
			}
		next:
			for _, nid := range b.Adjacent {
				if _, held := m.conquered[nid]; held {
					continue
				}
				for _, ex := range exclude {
					if _, seen := ex[nid]; seen {
						continue next
					}
				}
				into[nid] = struct{}{}
			}
		}
	}
	grow(m.layer1, m.layer2, m.layer1)
	grow(m.layer2, m.layer3, m.layer1, m.layer2)

	apply := func(set map[BlockID]struct{}, layer VisLayer) {
		for id := range set {
			b, ok := m.GetBlock(id)
			if !ok {
				continue
			}
			b.State = StateRevealed
			b.Layer = layer
		}
	}
	apply(m.layer1, Layer1)
	apply(m.layer2, Layer2)
	apply(m.layer3, Layer3)
	return nil
}

// ensureChunksAround generates every chunk adjacent to (or containing) the
// chunks the given blocks live in, then rebuilds adjacency and lets new
// blocks inherit the surrounding faction territory.
func (m *Map) ensureChunksAround(set map[BlockID]struct{}) error {
	need := map[ChunkCoord]struct{}{}
	for id := range set {
		loc, ok := m.locations[id]
		if !ok {
			continue
		}
		need[loc.coord] = struct{}{}
		for _, n := range loc.coord.Neighbors() {
			need[n] = struct{}{}
		}
	}

	added := false
	for _, coord := range sortedChunkCoords(need) {
		if _, ok := m.chunks[coord]; ok {
			continue
		}
		if _, err := m.ensureChunk(coord); err != nil {
			return err
		}
		added = true
	}
	if !added {
		return nil
	}
	if err := m.RebuildAdjacency(); err != nil {
		return err
	}
	if m.started {
		m.inheritOrphanFactions()
	}
	return nil
}

func sortedChunkCoords(set map[ChunkCoord]struct{}) []ChunkCoord {
	out := make([]ChunkCoord, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CX != out[j].CX {
			return out[i].CX < out[j].CX
		}
		return out[i].CY < out[j].CY
	})
	return out
}
