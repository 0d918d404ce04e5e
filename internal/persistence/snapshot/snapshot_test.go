package snapshot

import (
	"path/filepath"
	"testing"
)

func sample() CampaignV1 {
	return CampaignV1{
		Header:        Header{Version: 1, CampaignID: "c-1", Seq: 42},
		ResumeToken:   "resume_c-1_1",
		Seed:          12345,
		Round:         3,
		Started:       true,
		PlayerFaction: "blue",
		StartBlock:    7,
		NextBlockID:   91,
		LossEvents:    2,
		CameraMin:     [2]int{-20, -20},
		CameraMax:     [2]int{35, 35},
		Chunks: []ChunkV1{
			{
				CX:    0,
				CY:    0,
				Cells: make([]int16, 256),
				Blocks: []BlockV1{
					{
						ID:       7,
						Cells:    [][2]int{{0, 0}, {1, 0}, {0, 1}},
						Name:     "ashen-yard",
						Faction:  "blue",
						State:    2,
						Layer:    0,
						Adjacent: []uint32{8, 9},
						Encounter: &EncounterV1{
							Archetype: "skirmish",
							Title:     "Street Skirmish",
							Faction:   "crimson",
							Strength:  3,
							ForBlock:  7,
						},
					},
				},
			},
		},
		Conquered: []uint32{7},
		Layer1:    []uint32{8, 9},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", FileName(42))
	want := sample()
	if err := WriteSnapshot(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Header != want.Header {
		t.Fatalf("header = %+v, want %+v", got.Header, want.Header)
	}
	if got.Seed != want.Seed || got.Round != want.Round || got.StartBlock != want.StartBlock {
		t.Fatalf("scalar fields lost: %+v", got)
	}
	if len(got.Chunks) != 1 || len(got.Chunks[0].Blocks) != 1 {
		t.Fatalf("chunks lost: %+v", got.Chunks)
	}
	b := got.Chunks[0].Blocks[0]
	if b.ID != 7 || b.Name != "ashen-yard" || len(b.Cells) != 3 {
		t.Fatalf("block lost: %+v", b)
	}
	if b.Encounter == nil || b.Encounter.Archetype != "skirmish" || b.Encounter.Strength != 3 {
		t.Fatalf("encounter lost: %+v", b.Encounter)
	}
	if len(got.Conquered) != 1 || got.Conquered[0] != 7 {
		t.Fatalf("conquered set lost: %v", got.Conquered)
	}
}

func TestLatestPath(t *testing.T) {
	dir := t.TempDir()

	latest, err := LatestPath(dir)
	if err != nil {
		t.Fatalf("empty dir: %v", err)
	}
	if latest != "" {
		t.Fatalf("latest in empty dir = %q", latest)
	}

	for _, seq := range []uint64{5, 120, 42} {
		snap := sample()
		snap.Header.Seq = seq
		if err := WriteSnapshot(filepath.Join(dir, FileName(seq)), snap); err != nil {
			t.Fatalf("write %d: %v", seq, err)
		}
	}

	latest, err = LatestPath(dir)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if filepath.Base(latest) != FileName(120) {
		t.Fatalf("latest = %q, want %q", latest, FileName(120))
	}

	got, err := ReadSnapshot(latest)
	if err != nil {
		t.Fatalf("read latest: %v", err)
	}
	if got.Header.Seq != 120 {
		t.Fatalf("latest seq = %d", got.Header.Seq)
	}
}

func TestLatestPath_MissingDir(t *testing.T) {
	latest, err := LatestPath(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing dir: %v", err)
	}
	if latest != "" {
		t.Fatalf("latest = %q", latest)
	}
}
