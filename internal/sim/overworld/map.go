// Package overworld implements the campaign map: an unbounded plane tiled
// by polyomino blocks, generated chunk by chunk on demand, with faction
// territories, ringed visibility, and the conquer/lose state machine.
//
// A Map is owned and mutated by exactly one goroutine (the campaign loop);
// it has no internal locking. All randomness flows through PRNGs seeded
// from the campaign seed plus an event-specific offset, so a campaign is
// reproducible from its seed and command sequence.
package overworld

import (
	"fmt"
	"math/rand"
	"sort"
)

// Config fixes a map's immutable campaign parameters.
type Config struct {
	Seed int64

	// Rivals is the fixed universe of rival factions, in catalog order.
	Rivals []Faction

	// CameraMargin pads the camera bounds rectangle, in cells.
	CameraMargin int

	// Source constructs encounter payloads for generated and lost blocks.
	Source EncounterSource
}

type blockLoc struct {
	coord ChunkCoord
	slot  int
}

// Map is the single long-lived campaign map object. Chunks are created on
// first access and never evicted; blocks are never removed, only re-tagged.
type Map struct {
	cfg    Config
	source EncounterSource

	chunks    map[ChunkCoord]*Chunk
	locations map[BlockID]blockLoc

	// Visibility partition: a block ID lives in at most one of these; every
	// block in none of them is fogged.
	conquered map[BlockID]struct{}
	layer1    map[BlockID]struct{}
	layer2    map[BlockID]struct{}
	layer3    map[BlockID]struct{}

	playerFaction Faction
	round         int
	startBlock    BlockID
	inTutorial    bool
	started       bool
	camera        Bounds

	nextBlockID BlockID
	lossEvents  uint64
}

// NewMap creates an empty map. No chunks exist until GenerateStartingArea
// or a cell access forces generation.
func NewMap(cfg Config) (*Map, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("overworld: nil encounter source")
	}
	if len(cfg.Rivals) == 0 {
		return nil, fmt.Errorf("overworld: no rival factions")
	}
	return &Map{
		cfg:         cfg,
		source:      cfg.Source,
		chunks:      map[ChunkCoord]*Chunk{},
		locations:   map[BlockID]blockLoc{},
		conquered:   map[BlockID]struct{}{},
		layer1:      map[BlockID]struct{}{},
		layer2:      map[BlockID]struct{}{},
		layer3:      map[BlockID]struct{}{},
		nextBlockID: 1,
	}, nil
}

func (m *Map) Seed() int64             { return m.cfg.Seed }
func (m *Map) Round() int              { return m.round }
func (m *Map) SetRound(r int)          { m.round = r }
func (m *Map) PlayerFaction() Faction  { return m.playerFaction }
func (m *Map) StartBlock() BlockID     { return m.startBlock }
func (m *Map) InTutorialMode() bool    { return m.inTutorial }
func (m *Map) Started() bool           { return m.started }
func (m *Map) CameraBounds() Bounds    { return m.camera }
func (m *Map) ConqueredCount() int     { return len(m.conquered) }
func (m *Map) LoadedChunkCount() int   { return len(m.chunks) }
func (m *Map) BlockCount() int         { return len(m.locations) }

// AdvanceRound increments the campaign round counter.
func (m *Map) AdvanceRound() int {
	m.round++
	return m.round
}

// LossPenalty returns how many blocks a defeat costs in the current round.
func (m *Map) LossPenalty() int {
	return 1 + m.round/3
}

// HasTerritory reports whether any block is conquered.
func (m *Map) HasTerritory() bool { return len(m.conquered) > 0 }

// IsLastStand reports whether the home block is the only conquered block.
func (m *Map) IsLastStand() bool {
	if len(m.conquered) != 1 {
		return false
	}
	_, ok := m.conquered[m.startBlock]
	return ok
}

// GetChunk returns the chunk at coord if it has been generated.
func (m *Map) GetChunk(coord ChunkCoord) (*Chunk, bool) {
	c, ok := m.chunks[coord]
	return c, ok
}

// GetBlock returns the block with the given ID. A missing ID is a normal
// outcome (stale references during frontier scans), not an error.
func (m *Map) GetBlock(id BlockID) (*Block, bool) {
	loc, ok := m.locations[id]
	if !ok {
		return nil, false
	}
	return m.chunks[loc.coord].Blocks[loc.slot], true
}

// GetBlockAtWorld returns the block owning the cell, if its chunk exists.
func (m *Map) GetBlockAtWorld(x, y int) (*Block, bool) {
	return m.blockAtCell(GridCoord{X: x, Y: y})
}

func (m *Map) blockAtCell(cell GridCoord) (*Block, bool) {
	ch, ok := m.chunks[cell.Chunk()]
	if !ok || !ch.Generated {
		return nil, false
	}
	lx, ly := cell.Local()
	return ch.BlockAt(lx, ly)
}

// ensureChunk generates the chunk at coord if it does not exist yet.
// Carving is a pure function of (seed, coord); block IDs and encounter
// payloads are assigned in carve order, which is itself deterministic.
func (m *Map) ensureChunk(coord ChunkCoord) (*Chunk, error) {
	if ch, ok := m.chunks[coord]; ok {
		return ch, nil
	}

	rng := rand.New(rand.NewSource(chunkSeed(m.cfg.Seed, coord)))
	groups := carveChunk(coord, rng)

	ch := newChunk(coord)
	for _, cells := range groups {
		if len(cells) > MaxCellsPerBlock {
			return nil, fmt.Errorf("chunk (%d,%d): block of %d cells: %w",
				coord.CX, coord.CY, len(cells), ErrCapacityExceeded)
		}
		id := m.nextBlockID
		m.nextBlockID++

		b := &Block{
			ID:     id,
			Cells:  cells,
			Name:   blockName(m.cfg.Seed, id),
			State:  StateFogged,
			Layer:  LayerFogged,
			Bounds: boundsOf(cells),
		}
		b.Encounter = m.source.Random(id, rng)

		slot, err := ch.addBlock(b)
		if err != nil {
			return nil, err
		}
		for _, cell := range cells {
			lx, ly := cell.Local()
			ch.Cells[cellIndex(lx, ly)] = int16(slot)
		}
		m.locations[id] = blockLoc{coord: coord, slot: slot}
	}

	if err := ch.checkTiling(); err != nil {
		return nil, err
	}
	ch.Generated = true
	m.chunks[coord] = ch
	return ch, nil
}

// sortedIDs returns the set's IDs in ascending order. Every walk over an
// ID set goes through here so behavior never depends on map iteration order.
func sortedIDs(set map[BlockID]struct{}) []BlockID {
	ids := make([]BlockID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LoadedChunkKeys returns all generated chunk coordinates in sorted order.
func (m *Map) LoadedChunkKeys() []ChunkCoord {
	keys := make([]ChunkCoord, 0, len(m.chunks))
	for k := range m.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CY < keys[j].CY
	})
	return keys
}

// recomputeCameraBounds fits the camera rectangle around every visible
// block (conquered plus all three revealed rings), padded by the margin.
func (m *Map) recomputeCameraBounds() {
	first := true
	var b Bounds
	grow := func(set map[BlockID]struct{}) {
		for id := range set {
			blk, ok := m.GetBlock(id)
			if !ok {
				continue
			}
			if first {
				b = blk.Bounds
				first = false
				continue
			}
			b = b.extend(blk.Bounds.Min)
			b = b.extend(blk.Bounds.Max)
		}
	}
	grow(m.conquered)
	grow(m.layer1)
	grow(m.layer2)
	grow(m.layer3)
	if first {
		m.camera = Bounds{}
		return
	}
	pad := m.cfg.CameraMargin
	b.Min.X -= pad
	b.Min.Y -= pad
	b.Max.X += pad
	b.Max.Y += pad
	m.camera = b
}
