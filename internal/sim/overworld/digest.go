package overworld

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Digest returns a sha256 hex digest of the full map state: every chunk
// tiling, every block's faction/state/layer/adjacency, the visibility sets,
// round, tutorial flag and camera bounds. Two maps driven by the same seed
// and command sequence produce the same digest.
func (m *Map) Digest() string {
	h := sha256.New()
	var buf [8]byte

	wi := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
		h.Write(buf[:])
	}
	wid := func(id BlockID) {
		binary.LittleEndian.PutUint32(buf[:4], uint32(id))
		h.Write(buf[:4])
	}

	wi(int(m.cfg.Seed))
	wi(m.round)
	if m.inTutorial {
		wi(1)
	} else {
		wi(0)
	}
	wid(m.startBlock)
	h.Write([]byte(m.playerFaction))
	wi(m.camera.Min.X)
	wi(m.camera.Min.Y)
	wi(m.camera.Max.X)
	wi(m.camera.Max.Y)

	for _, key := range m.LoadedChunkKeys() {
		ch := m.chunks[key]
		wi(key.CX)
		wi(key.CY)
		for _, slot := range ch.Cells {
			wi(int(slot))
		}
		for _, b := range ch.Blocks {
			wid(b.ID)
			h.Write([]byte(b.Faction))
			wi(int(b.State))
			wi(int(b.Layer))
			wi(len(b.Cells))
			for _, c := range b.Cells {
				wi(c.X)
				wi(c.Y)
			}
			for _, nid := range b.Adjacent {
				wid(nid)
			}
			if b.Encounter != nil {
				wi(1)
				h.Write([]byte(b.Encounter.ControllingFaction()))
			} else {
				wi(0)
			}
		}
	}

	for _, set := range []map[BlockID]struct{}{m.conquered, m.layer1, m.layer2, m.layer3} {
		ids := sortedIDs(set)
		wi(len(ids))
		for _, id := range ids {
			wid(id)
		}
	}

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:])
}
