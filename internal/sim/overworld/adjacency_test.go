package overworld

import "testing"

func genRegion(t *testing.T, m *Map, r int) {
	t.Helper()
	for cy := -r; cy <= r; cy++ {
		for cx := -r; cx <= r; cx++ {
			if _, err := m.ensureChunk(ChunkCoord{CX: cx, CY: cy}); err != nil {
				t.Fatalf("ensureChunk (%d,%d): %v", cx, cy, err)
			}
		}
	}
	if err := m.RebuildAdjacency(); err != nil {
		t.Fatalf("RebuildAdjacency: %v", err)
	}
}

func TestAdjacency_Symmetric(t *testing.T) {
	m := newTestMap(31337)
	genRegion(t, m, 1)

	for _, key := range m.LoadedChunkKeys() {
		for _, b := range m.chunks[key].Blocks {
			for _, nid := range b.Adjacent {
				nb, ok := m.GetBlock(nid)
				if !ok {
					t.Fatalf("block %d references missing neighbor %d", b.ID, nid)
				}
				if !nb.IsAdjacent(b.ID) {
					t.Fatalf("asymmetric edge: %d lists %d, reverse missing", b.ID, nid)
				}
			}
		}
	}
}

func TestAdjacency_CrossChunkEdgesExist(t *testing.T) {
	m := newTestMap(8)
	genRegion(t, m, 1)

	// Every border cell of the center chunk has a generated neighbor, so at
	// least one cross-chunk edge must exist.
	crossEdges := 0
	center := m.chunks[ChunkCoord{0, 0}]
	for _, b := range center.Blocks {
		for _, nid := range b.Adjacent {
			if loc := m.locations[nid]; loc.coord != center.Coord {
				crossEdges++
			}
		}
	}
	if crossEdges == 0 {
		t.Fatalf("no cross-chunk adjacency recorded in a fully generated region")
	}
}

func TestAdjacency_RebuildIsIdempotent(t *testing.T) {
	m := newTestMap(4242)
	genRegion(t, m, 1)

	before := map[BlockID][]BlockID{}
	for _, key := range m.LoadedChunkKeys() {
		for _, b := range m.chunks[key].Blocks {
			before[b.ID] = append([]BlockID(nil), b.Adjacent...)
		}
	}

	if err := m.RebuildAdjacency(); err != nil {
		t.Fatalf("second rebuild: %v", err)
	}
	for _, key := range m.LoadedChunkKeys() {
		for _, b := range m.chunks[key].Blocks {
			prev := before[b.ID]
			if len(prev) != len(b.Adjacent) {
				t.Fatalf("block %d: neighbor count changed %d -> %d", b.ID, len(prev), len(b.Adjacent))
			}
			for i := range prev {
				if prev[i] != b.Adjacent[i] {
					t.Fatalf("block %d: neighbor %d changed %d -> %d", b.ID, i, prev[i], b.Adjacent[i])
				}
			}
		}
	}
}

func TestAdjacency_UngeneratedNeighborsSkipped(t *testing.T) {
	m := newTestMap(64)
	if _, err := m.ensureChunk(ChunkCoord{0, 0}); err != nil {
		t.Fatalf("ensureChunk: %v", err)
	}
	if err := m.RebuildAdjacency(); err != nil {
		t.Fatalf("RebuildAdjacency: %v", err)
	}
	// A lone chunk can only have in-chunk edges.
	for _, b := range m.chunks[ChunkCoord{0, 0}].Blocks {
		for _, nid := range b.Adjacent {
			if _, ok := m.GetBlock(nid); !ok {
				t.Fatalf("block %d lists neighbor %d outside the generated world", b.ID, nid)
			}
		}
	}
}

func TestSameFactionAdjacent(t *testing.T) {
	m, err := startedMap(900)
	if err != nil {
		t.Fatalf("startedMap: %v", err)
	}

	start, _ := m.GetBlock(m.StartBlock())
	for _, nid := range start.Adjacent {
		nb, _ := m.GetBlock(nid)
		same := m.SameFactionAdjacent(start.ID, nid)
		want := nb.Faction != NoFaction && nb.Faction == start.Faction
		if same != want {
			t.Fatalf("SameFactionAdjacent(%d,%d)=%v, want %v", start.ID, nid, same, want)
		}
		if m.IsExteriorEdge(start.ID, nid) == same {
			t.Fatalf("IsExteriorEdge must be the negation of SameFactionAdjacent")
		}
	}

	if m.SameFactionAdjacent(start.ID, 0) {
		t.Fatalf("missing neighbor must not be same-faction adjacent")
	}
}
