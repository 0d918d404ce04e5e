package overworld

import (
	"fmt"
	"math/rand"
)

// startScanOrder fixes the candidate scan for the home block: the origin
// chunk first, then its 4 cardinal neighbors. Ties in score go to the first
// candidate found in this order.
var startScanOrder = [5]ChunkCoord{
	{CX: 0, CY: 0},
	{CX: 1, CY: 0},
	{CX: -1, CY: 0},
	{CX: 0, CY: 1},
	{CX: 0, CY: -1},
}

// GenerateStartingArea bootstraps a fresh campaign: generates the 3x3 chunk
// neighborhood around the origin, builds the adjacency graph, picks the
// home block, enters tutorial mode, assigns contiguous rival territories
// (with the bounded diversity retry), and computes initial visibility and
// camera bounds. The home block displays as held but still carries its
// "defend home" encounter until the player wins it.
func (m *Map) GenerateStartingArea(player Faction) error {
	if m.started {
		return fmt.Errorf("overworld: starting area already generated")
	}
	m.playerFaction = player

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if _, err := m.ensureChunk(ChunkCoord{CX: dx, CY: dy}); err != nil {
				return err
			}
		}
	}
	if err := m.RebuildAdjacency(); err != nil {
		return err
	}

	start := m.pickStartBlock()
	if start == nil {
		return fmt.Errorf("overworld: no start block candidate")
	}
	m.startBlock = start.ID
	m.inTutorial = true
	m.started = true
	start.Encounter = m.source.Tutorial(start.ID)

	if err := m.AssignContiguousFactions(player); err != nil {
		return err
	}
	if err := m.RecomputeVisibility(); err != nil {
		return err
	}
	m.recomputeCameraBounds()
	return nil
}

// pickStartBlock scores every block in the origin chunk and its cardinal
// neighbors: prefer 5-cell blocks with many neighbors close to the origin.
func (m *Map) pickStartBlock() *Block {
	var best *Block
	bestScore := 0
	for _, coord := range startScanOrder {
		ch, ok := m.chunks[coord]
		if !ok {
			continue
		}
		for _, b := range ch.Blocks {
			center := b.Bounds.Center()
			score := -10*absInt(len(b.Cells)-5) + 5*len(b.Adjacent) - (absInt(center.X) + absInt(center.Y))
			if best == nil || score > bestScore {
				best = b
				bestScore = score
			}
		}
	}
	return best
}

// ConquerBlock marks a block as won by the player: its encounter is
// cleared, it joins the held set, and winning the home block ends tutorial
// mode. Visibility and camera bounds are recomputed globally.
func (m *Map) ConquerBlock(id BlockID, player Faction) error {
	if !m.started {
		return ErrNotStarted
	}
	b, ok := m.GetBlock(id)
	if !ok {
		return fmt.Errorf("conquer %d: %w", id, ErrBlockNotFound)
	}

	m.playerFaction = player
	m.setBlockFaction(b, player)
	b.Encounter = nil
	b.State = StateConquered
	b.Layer = LayerConquered

	if id == m.startBlock && m.inTutorial {
		m.inTutorial = false
	}

	m.conquered[id] = struct{}{}
	delete(m.layer1, id)
	delete(m.layer2, id)
	delete(m.layer3, id)

	if err := m.RecomputeVisibility(); err != nil {
		return err
	}
	m.recomputeCameraBounds()
	return nil
}

// LoseTerritory cedes up to n frontier blocks back to rival factions. A
// frontier block is conquered with at least one non-conquered neighbor; the
// home block is never eligible. The pick among candidates is uniformly
// random under a loss-event PRNG (seed, round and a per-map loss counter),
// a deliberate policy rather than map-iteration order. Returns the number
// actually lost; gameOver is reported instead when the home block is
// already the last territory standing.
func (m *Map) LoseTerritory(n int) (lost int, gameOver bool, err error) {
	if !m.started {
		return 0, false, ErrNotStarted
	}
	if len(m.conquered) == 0 {
		return 0, false, ErrNoTerritory
	}
	if m.IsLastStand() {
		return 0, true, nil
	}

	rng := rand.New(rand.NewSource(lossSeed(m.cfg.Seed, m.round, m.lossEvents)))
	m.lossEvents++

	for lost < n {
		cands := m.frontierCandidates()
		if len(cands) == 0 {
			break
		}
		id := cands[rng.Intn(len(cands))]
		b, ok := m.GetBlock(id)
		if !ok {
			// Stale ID in the held set; drop it and move on.
			delete(m.conquered, id)
			continue
		}

		delete(m.conquered, id)
		b.State = StateRevealed
		b.Encounter = m.source.Random(b.ID, rng)
		m.setBlockFaction(b, m.randomRival(rng))
		lost++
	}

	if err := m.RecomputeVisibility(); err != nil {
		return lost, false, err
	}
	m.recomputeCameraBounds()
	return lost, false, nil
}

// frontierCandidates returns, in ascending ID order, every conquered block
// other than the home block that touches non-conquered territory.
func (m *Map) frontierCandidates() []BlockID {
	var out []BlockID
	for _, id := range sortedIDs(m.conquered) {
		if id == m.startBlock {
			continue
		}
		b, ok := m.GetBlock(id)
		if !ok {
			continue
		}
		for _, nid := range b.Adjacent {
			if _, held := m.conquered[nid]; !held {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// ExpandFrontier generates every chunk bordering conquered territory,
// rebuilds adjacency, and folds the newly reachable blocks into the
// visibility rings.
func (m *Map) ExpandFrontier() error {
	if !m.started {
		return ErrNotStarted
	}
	if err := m.ensureChunksAround(m.conquered); err != nil {
		return err
	}
	if err := m.RecomputeVisibility(); err != nil {
		return err
	}
	m.recomputeCameraBounds()
	return nil
}

func lossSeed(seed int64, round int, events uint64) int64 {
	return int64(mix64(uint64(seed) ^ uint64(round)<<40 ^ events<<8))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
