package overworld

// VisibleBlocks fills buf with every visible block in tier order: conquered
// first, then rings 1, 2 and 3, ascending ID within each tier. Returns the
// number of blocks written; the scan stops when buf is full.
func (m *Map) VisibleBlocks(buf []*Block) int {
	n := 0
	fill := func(set map[BlockID]struct{}) {
		for _, id := range sortedIDs(set) {
			if n >= len(buf) {
				return
			}
			b, ok := m.GetBlock(id)
			if !ok {
				continue
			}
			buf[n] = b
			n++
		}
	}
	fill(m.conquered)
	fill(m.layer1)
	fill(m.layer2)
	fill(m.layer3)
	return n
}

// VisibleBlockCount returns the size of the four visible tiers combined.
func (m *Map) VisibleBlockCount() int {
	return len(m.conquered) + len(m.layer1) + len(m.layer2) + len(m.layer3)
}

// ConqueredIDs returns the held set in ascending order.
func (m *Map) ConqueredIDs() []BlockID { return sortedIDs(m.conquered) }

// LayerIDs returns the given ring's IDs in ascending order.
func (m *Map) LayerIDs(layer VisLayer) []BlockID {
	switch layer {
	case LayerConquered:
		return sortedIDs(m.conquered)
	case Layer1:
		return sortedIDs(m.layer1)
	case Layer2:
		return sortedIDs(m.layer2)
	case Layer3:
		return sortedIDs(m.layer3)
	}
	return nil
}
