package overworld

import "math/rand"

// Test fixtures: a minimal encounter collaborator. The payload only has to
// carry a controlling faction; archetype content is out of scope here.

type stubNode struct {
	faction  Faction
	tutorial bool
}

func (n *stubNode) ControllingFaction() Faction     { return n.faction }
func (n *stubNode) SetControllingFaction(f Faction) { n.faction = f }

type stubSource struct{}

func (stubSource) Random(id BlockID, rng *rand.Rand) EncounterNode {
	_ = rng.Int63() // one draw per payload, like the real deck
	return &stubNode{}
}

func (stubSource) Tutorial(id BlockID) EncounterNode {
	return &stubNode{tutorial: true}
}

var testRivals = []Faction{"crimson", "jade", "cobalt", "umber"}

func newTestMap(seed int64) *Map {
	m, err := NewMap(Config{
		Seed:         seed,
		Rivals:       testRivals,
		CameraMargin: 2,
		Source:       stubSource{},
	})
	if err != nil {
		panic(err)
	}
	return m
}

func startedMap(seed int64) (*Map, error) {
	m := newTestMap(seed)
	if err := m.GenerateStartingArea("blue"); err != nil {
		return nil, err
	}
	return m, nil
}
