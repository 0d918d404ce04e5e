package overworld

import "fmt"

// State is a plain-data export of a map, used by the persistence layer to
// build snapshot DTOs. Encounter payloads stay opaque interface values; the
// host converts them to and from its own concrete type.
type State struct {
	Seed          int64
	Round         int
	InTutorial    bool
	Started       bool
	PlayerFaction Faction
	StartBlock    BlockID
	NextBlockID   BlockID
	LossEvents    uint64
	Camera        Bounds

	Chunks []ChunkState

	Conquered []BlockID
	Layer1    []BlockID
	Layer2    []BlockID
	Layer3    []BlockID
}

type ChunkState struct {
	Coord  ChunkCoord
	Cells  []int16
	Blocks []BlockRecord
}

type BlockRecord struct {
	ID        BlockID
	Cells     []GridCoord
	Name      string
	Faction   Faction
	State     BlockState
	Layer     VisLayer
	Adjacent  []BlockID
	Encounter EncounterNode
}

// ExportState copies the full map state out for snapshotting.
func (m *Map) ExportState() State {
	st := State{
		Seed:          m.cfg.Seed,
		Round:         m.round,
		InTutorial:    m.inTutorial,
		Started:       m.started,
		PlayerFaction: m.playerFaction,
		StartBlock:    m.startBlock,
		NextBlockID:   m.nextBlockID,
		LossEvents:    m.lossEvents,
		Camera:        m.camera,
		Conquered:     sortedIDs(m.conquered),
		Layer1:        sortedIDs(m.layer1),
		Layer2:        sortedIDs(m.layer2),
		Layer3:        sortedIDs(m.layer3),
	}
	for _, key := range m.LoadedChunkKeys() {
		ch := m.chunks[key]
		cs := ChunkState{Coord: key, Cells: append([]int16(nil), ch.Cells...)}
		for _, b := range ch.Blocks {
			cs.Blocks = append(cs.Blocks, BlockRecord{
				ID:        b.ID,
				Cells:     append([]GridCoord(nil), b.Cells...),
				Name:      b.Name,
				Faction:   b.Faction,
				State:     b.State,
				Layer:     b.Layer,
				Adjacent:  append([]BlockID(nil), b.Adjacent...),
				Encounter: b.Encounter,
			})
		}
		st.Chunks = append(st.Chunks, cs)
	}
	return st
}

// NewMapFromState rebuilds a map from an exported State. cfg must carry the
// same rival universe and encounter source the original campaign used; the
// seed comes from the state.
func NewMapFromState(cfg Config, st State) (*Map, error) {
	cfg.Seed = st.Seed
	m, err := NewMap(cfg)
	if err != nil {
		return nil, err
	}
	m.round = st.Round
	m.inTutorial = st.InTutorial
	m.started = st.Started
	m.playerFaction = st.PlayerFaction
	m.startBlock = st.StartBlock
	m.nextBlockID = st.NextBlockID
	m.lossEvents = st.LossEvents
	m.camera = st.Camera

	for _, cs := range st.Chunks {
		if len(cs.Cells) != ChunkSize*ChunkSize {
			return nil, fmt.Errorf("restore chunk (%d,%d): cell table has %d entries", cs.Coord.CX, cs.Coord.CY, len(cs.Cells))
		}
		ch := newChunk(cs.Coord)
		copy(ch.Cells, cs.Cells)
		for _, rec := range cs.Blocks {
			b := &Block{
				ID:        rec.ID,
				Cells:     append([]GridCoord(nil), rec.Cells...),
				Name:      rec.Name,
				Faction:   rec.Faction,
				State:     rec.State,
				Layer:     rec.Layer,
				Adjacent:  append([]BlockID(nil), rec.Adjacent...),
				Encounter: rec.Encounter,
				Bounds:    boundsOf(rec.Cells),
			}
			slot, err := ch.addBlock(b)
			if err != nil {
				return nil, err
			}
			m.locations[rec.ID] = blockLoc{coord: cs.Coord, slot: slot}
		}
		if err := ch.checkTiling(); err != nil {
			return nil, fmt.Errorf("restore: %w", err)
		}
		ch.Generated = true
		m.chunks[cs.Coord] = ch
	}

	for _, id := range st.Conquered {
		m.conquered[id] = struct{}{}
	}
	for _, id := range st.Layer1 {
		m.layer1[id] = struct{}{}
	}
	for _, id := range st.Layer2 {
		m.layer2[id] = struct{}{}
	}
	for _, id := range st.Layer3 {
		m.layer3[id] = struct{}{}
	}
	return m, nil
}
