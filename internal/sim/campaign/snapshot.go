package campaign

import (
	"fmt"

	"warplots.gg/internal/persistence/snapshot"
	"warplots.gg/internal/sim/encounters"
	"warplots.gg/internal/sim/overworld"
)

const snapshotVersion = 1

// ExportSnapshot captures the full campaign into a persistable DTO. Must be
// called from the command loop goroutine (or before Run starts).
func (c *Campaign) ExportSnapshot() snapshot.CampaignV1 {
	st := c.world.ExportState()
	snap := snapshot.CampaignV1{
		Header: snapshot.Header{
			Version:    snapshotVersion,
			CampaignID: c.id,
			Seq:        c.seq,
		},
		ResumeToken:   c.resumeToken,
		GameOver:      c.gameOver,
		Seed:          st.Seed,
		Round:         st.Round,
		InTutorial:    st.InTutorial,
		Started:       st.Started,
		PlayerFaction: string(st.PlayerFaction),
		StartBlock:    uint32(st.StartBlock),
		NextBlockID:   uint32(st.NextBlockID),
		LossEvents:    st.LossEvents,
		CameraMin:     [2]int{st.Camera.Min.X, st.Camera.Min.Y},
		CameraMax:     [2]int{st.Camera.Max.X, st.Camera.Max.Y},
		CameraMargin:  c.cfg.CameraMargin,
		Conquered:     idsV1(st.Conquered),
		Layer1:        idsV1(st.Layer1),
		Layer2:        idsV1(st.Layer2),
		Layer3:        idsV1(st.Layer3),
	}
	for _, cs := range st.Chunks {
		cv := snapshot.ChunkV1{
			CX:    cs.Coord.CX,
			CY:    cs.Coord.CY,
			Cells: append([]int16(nil), cs.Cells...),
		}
		for _, rec := range cs.Blocks {
			bv := snapshot.BlockV1{
				ID:       uint32(rec.ID),
				Name:     rec.Name,
				Faction:  string(rec.Faction),
				State:    uint8(rec.State),
				Layer:    uint8(rec.Layer),
				Adjacent: idsV1(rec.Adjacent),
			}
			bv.Cells = make([][2]int, 0, len(rec.Cells))
			for _, cell := range rec.Cells {
				bv.Cells = append(bv.Cells, [2]int{cell.X, cell.Y})
			}
			if node, okNode := rec.Encounter.(*encounters.Node); okNode && node != nil {
				bv.Encounter = &snapshot.EncounterV1{
					Archetype: node.Archetype,
					Title:     node.Title,
					Faction:   string(node.Faction),
					Strength:  node.Strength,
					ForBlock:  uint32(node.ForBlock),
					Tutorial:  node.Tutorial,
				}
			}
			cv.Blocks = append(cv.Blocks, bv)
		}
		snap.Chunks = append(snap.Chunks, cv)
	}
	return snap
}

// NewFromSnapshot rebuilds a campaign from a snapshot DTO. The catalogs must
// match the ones the snapshot was taken under.
func NewFromSnapshot(cfg Config, factions *encounters.Factions, deck *encounters.Deck, snap snapshot.CampaignV1) (*Campaign, error) {
	if snap.Header.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	cfg.ID = snap.Header.CampaignID
	cfg.Seed = snap.Seed
	if cfg.CameraMargin == 0 {
		cfg.CameraMargin = snap.CameraMargin
	}
	c, err := New(cfg, factions, deck)
	if err != nil {
		return nil, err
	}
	st := overworld.State{
		Seed:          snap.Seed,
		Round:         snap.Round,
		InTutorial:    snap.InTutorial,
		Started:       snap.Started,
		PlayerFaction: overworld.Faction(snap.PlayerFaction),
		StartBlock:    overworld.BlockID(snap.StartBlock),
		NextBlockID:   overworld.BlockID(snap.NextBlockID),
		LossEvents:    snap.LossEvents,
		Camera: overworld.Bounds{
			Min: overworld.GridCoord{X: snap.CameraMin[0], Y: snap.CameraMin[1]},
			Max: overworld.GridCoord{X: snap.CameraMax[0], Y: snap.CameraMax[1]},
		},
		Conquered: idsFromV1(snap.Conquered),
		Layer1:    idsFromV1(snap.Layer1),
		Layer2:    idsFromV1(snap.Layer2),
		Layer3:    idsFromV1(snap.Layer3),
	}
	for _, cv := range snap.Chunks {
		cs := overworld.ChunkState{
			Coord: overworld.ChunkCoord{CX: cv.CX, CY: cv.CY},
			Cells: append([]int16(nil), cv.Cells...),
		}
		for _, bv := range cv.Blocks {
			rec := overworld.BlockRecord{
				ID:       overworld.BlockID(bv.ID),
				Name:     bv.Name,
				Faction:  overworld.Faction(bv.Faction),
				State:    overworld.BlockState(bv.State),
				Layer:    overworld.VisLayer(bv.Layer),
				Adjacent: idsFromV1(bv.Adjacent),
			}
			rec.Cells = make([]overworld.GridCoord, 0, len(bv.Cells))
			for _, cell := range bv.Cells {
				rec.Cells = append(rec.Cells, overworld.GridCoord{X: cell[0], Y: cell[1]})
			}
			if bv.Encounter != nil {
				rec.Encounter = &encounters.Node{
					Archetype: bv.Encounter.Archetype,
					Title:     bv.Encounter.Title,
					Faction:   overworld.Faction(bv.Encounter.Faction),
					Strength:  bv.Encounter.Strength,
					ForBlock:  overworld.BlockID(bv.Encounter.ForBlock),
					Tutorial:  bv.Encounter.Tutorial,
				}
			}
			cs.Blocks = append(cs.Blocks, rec)
		}
		st.Chunks = append(st.Chunks, cs)
	}

	m, err := overworld.NewMapFromState(overworld.Config{
		Seed:         snap.Seed,
		Rivals:       factions.Rivals,
		CameraMargin: cfg.CameraMargin,
		Source:       deck,
	}, st)
	if err != nil {
		return nil, err
	}
	c.world = m
	c.seq = snap.Header.Seq
	c.gameOver = snap.GameOver
	if snap.ResumeToken != "" {
		c.resumeToken = snap.ResumeToken
	}
	return c, nil
}

func idsV1(ids []overworld.BlockID) []uint32 {
	out := make([]uint32, 0, len(ids))
	for _, id := range ids {
		out = append(out, uint32(id))
	}
	return out
}

func idsFromV1(ids []uint32) []overworld.BlockID {
	out := make([]overworld.BlockID, 0, len(ids))
	for _, id := range ids {
		out = append(out, overworld.BlockID(id))
	}
	return out
}
