package overworld

import "math/rand"

// factionRetryLimit bounds the diversity retry loop in starting-area
// generation. This is the only retry in the whole map.
const factionRetryLimit = 10

type factionClaim struct {
	id      BlockID
	faction Faction
}

// AssignContiguousFactions partitions every block except the home block
// among the rival factions so that each rival's territory is geographically
// contiguous, then checks that the home block sees enough distinct rivals.
// On a failed check all non-home assignments are cleared and the fill is
// reseeded, up to factionRetryLimit attempts. The home block stays pinned
// to the player's faction throughout.
func (m *Map) AssignContiguousFactions(player Faction) error {
	want := 3
	if len(m.cfg.Rivals) < want {
		want = len(m.cfg.Rivals)
	}
	for attempt := 0; attempt < factionRetryLimit; attempt++ {
		m.clearFactionAssignments(player)
		rng := rand.New(rand.NewSource(m.cfg.Seed + int64(attempt)))
		m.floodFillFactions(rng)
		if m.startRivalDiversity() >= want {
			return nil
		}
	}
	return ErrFactionDiversity
}

func (m *Map) clearFactionAssignments(player Faction) {
	for _, key := range m.LoadedChunkKeys() {
		for _, b := range m.chunks[key].Blocks {
			if b.ID == m.startBlock {
				m.setBlockFaction(b, player)
				continue
			}
			m.setBlockFaction(b, NoFaction)
		}
	}
}

// floodFillFactions is a multi-source flood fill over the block graph: a
// seeded shuffle picks each rival's seed blocks, then a FIFO worklist grows
// all territories together. First claim wins; the worklist draining is the
// termination condition. Unreached pockets inherit a neighbor's faction or
// stay contested.
func (m *Map) floodFillFactions(rng *rand.Rand) {
	unassigned := m.unassignedBlockIDs()
	if len(unassigned) == 0 {
		return
	}
	rng.Shuffle(len(unassigned), func(i, j int) {
		unassigned[i], unassigned[j] = unassigned[j], unassigned[i]
	})

	seedsPerRival := len(unassigned) / (len(m.cfg.Rivals) * 4)
	if seedsPerRival < 1 {
		seedsPerRival = 1
	}

	var work []factionClaim
	next := 0
	for _, f := range m.cfg.Rivals {
		for i := 0; i < seedsPerRival && next < len(unassigned); i++ {
			work = append(work, factionClaim{id: unassigned[next], faction: f})
			next++
		}
	}

	for len(work) > 0 {
		c := work[0]
		work = work[1:]

		b, ok := m.GetBlock(c.id)
		if !ok || b.ID == m.startBlock || b.Faction != NoFaction {
			continue
		}
		m.setBlockFaction(b, c.faction)
		for _, nid := range b.Adjacent {
			nb, ok := m.GetBlock(nid)
			if !ok || nb.ID == m.startBlock || nb.Faction != NoFaction {
				continue
			}
			work = append(work, factionClaim{id: nid, faction: c.faction})
		}
	}

	m.inheritOrphanFactions()
}

// inheritOrphanFactions assigns each still-contested block the faction of
// its lowest-ID assigned neighbor, repeating until stable so whole pockets
// join the surrounding territory. Blocks with no assigned neighbor at the
// fixpoint stay contested. Also used after lazy expansion so new chunks
// join nearby territory instead of forming contested bands.
func (m *Map) inheritOrphanFactions() {
	for {
		changed := false
		for _, key := range m.LoadedChunkKeys() {
			for _, b := range m.chunks[key].Blocks {
				if b.Faction != NoFaction || b.ID == m.startBlock {
					continue
				}
				for _, nid := range b.Adjacent {
					nb, ok := m.GetBlock(nid)
					if !ok || nb.Faction == NoFaction || nb.ID == m.startBlock {
						continue
					}
					// Only rival territory spreads into pockets; player land
					// grows through conquest alone.
					if nb.Faction == m.playerFaction {
						continue
					}
					m.setBlockFaction(b, nb.Faction)
					changed = true
					break
				}
			}
		}
		if !changed {
			return
		}
	}
}

// setBlockFaction updates a block's faction and mirrors it into the
// encounter payload's controlling-faction field.
func (m *Map) setBlockFaction(b *Block, f Faction) {
	b.Faction = f
	if b.Encounter != nil {
		b.Encounter.SetControllingFaction(f)
	}
}

func (m *Map) unassignedBlockIDs() []BlockID {
	var ids []BlockID
	for _, key := range m.LoadedChunkKeys() {
		for _, b := range m.chunks[key].Blocks {
			if b.ID == m.startBlock || b.Faction != NoFaction {
				continue
			}
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// startRivalDiversity counts distinct rival factions among the home
// block's immediate neighbors.
func (m *Map) startRivalDiversity() int {
	start, ok := m.GetBlock(m.startBlock)
	if !ok {
		return 0
	}
	seen := map[Faction]struct{}{}
	for _, nid := range start.Adjacent {
		nb, ok := m.GetBlock(nid)
		if !ok || nb.Faction == NoFaction || nb.Faction == m.playerFaction {
			continue
		}
		seen[nb.Faction] = struct{}{}
	}
	return len(seen)
}

// randomRival picks a rival faction uniformly with the given PRNG.
func (m *Map) randomRival(rng *rand.Rand) Faction {
	return m.cfg.Rivals[rng.Intn(len(m.cfg.Rivals))]
}
