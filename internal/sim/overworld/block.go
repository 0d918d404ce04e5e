package overworld

import (
	"fmt"
	"math/rand"
)

// BlockID is a process-unique block identity. 0 means "no block".
type BlockID uint32

const NoBlock BlockID = 0

// Faction is an opaque, comparable faction tag. The empty string means
// contested (no controlling faction). The universe of tags is owned by the
// encounter collaborator; the map only compares and stores them.
type Faction string

const NoFaction Faction = ""

// EncounterNode is the opaque encounter payload stored inside a block. The
// map only reads and overwrites its controlling faction; everything else
// (archetype, challenge content, difficulty) belongs to the collaborator.
type EncounterNode interface {
	ControllingFaction() Faction
	SetControllingFaction(Faction)
}

// EncounterSource constructs encounter payloads. Random is called during
// chunk generation and when territory is lost; Tutorial is called once for
// the home block.
type EncounterSource interface {
	Random(block BlockID, rng *rand.Rand) EncounterNode
	Tutorial(block BlockID) EncounterNode
}

// BlockState is the coarse disclosure state of a block.
type BlockState uint8

const (
	StateFogged BlockState = iota
	StateRevealed
	StateConquered
)

func (s BlockState) String() string {
	switch s {
	case StateFogged:
		return "FOGGED"
	case StateRevealed:
		return "REVEALED"
	case StateConquered:
		return "CONQUERED"
	}
	return fmt.Sprintf("BlockState(%d)", uint8(s))
}

// VisLayer is the rendering tier of a block. It stays consistent with
// BlockState: a conquered block is always LayerConquered, a fogged block
// always LayerFogged.
type VisLayer uint8

const (
	LayerConquered VisLayer = iota
	Layer1
	Layer2
	Layer3
	LayerFogged
)

func (l VisLayer) String() string {
	switch l {
	case LayerConquered:
		return "CONQUERED"
	case Layer1:
		return "LAYER1"
	case Layer2:
		return "LAYER2"
	case Layer3:
		return "LAYER3"
	case LayerFogged:
		return "FOGGED"
	}
	return fmt.Sprintf("VisLayer(%d)", uint8(l))
}

// Block is one polyomino-shaped map node: the unit of conquest, faction
// ownership and encounter placement. Blocks reference neighbors only by ID;
// the owning Chunk stores them by slot.
type Block struct {
	ID    BlockID
	Cells []GridCoord // immutable after carving, 1..MaxCellsPerBlock
	Name  string

	Faction Faction
	State   BlockState
	Layer   VisLayer

	// Encounter is present exactly while the block has not been conquered.
	// The tutorial home block is the one exception: it displays as held yet
	// still carries its defense encounter.
	Encounter EncounterNode

	// Adjacent holds the IDs of edge-touching blocks, sorted ascending.
	// Symmetric: if A lists B then B lists A.
	Adjacent []BlockID

	Bounds Bounds
}

// IsAdjacent reports whether other is an edge-touching neighbor.
func (b *Block) IsAdjacent(other BlockID) bool {
	for _, id := range b.Adjacent {
		if id == other {
			return true
		}
	}
	return false
}

var blockNameFirst = []string{
	"Ash", "Brick", "Cinder", "Dock", "Elm", "Foundry", "Grove", "Harbor",
	"Iron", "Juniper", "Kiln", "Lantern", "Mill", "North", "Old", "Pike",
	"Quarry", "Rail", "Slate", "Tannery", "Union", "Vine", "Willow", "Yard",
}

var blockNameSecond = []string{
	"Row", "Court", "Cross", "Ward", "Hollow", "Gate", "Reach", "Square",
	"Walk", "Rise", "Bend", "Commons", "Flats", "Heights", "Side", "End",
}

// blockName derives a deterministic display label from the map seed and the
// block's id, so names survive regeneration of the same campaign.
func blockName(seed int64, id BlockID) string {
	h := hash2(seed, int(id), int(id>>16)+7)
	first := blockNameFirst[h%uint64(len(blockNameFirst))]
	second := blockNameSecond[(h>>24)%uint64(len(blockNameSecond))]
	return first + " " + second
}
