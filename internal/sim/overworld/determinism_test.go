package overworld

import "testing"

// driveCampaign runs a fixed command script against a fresh map.
func driveCampaign(t *testing.T, seed int64) *Map {
	t.Helper()
	m, err := startedMap(seed)
	if err != nil {
		t.Fatalf("startedMap: %v", err)
	}
	if err := m.ConquerBlock(m.StartBlock(), "blue"); err != nil {
		t.Fatalf("conquer start: %v", err)
	}
	for i := 0; i < 4; i++ {
		ids := m.LayerIDs(Layer1)
		if len(ids) == 0 {
			break
		}
		if err := m.ConquerBlock(ids[i%len(ids)], "blue"); err != nil {
			t.Fatalf("conquer: %v", err)
		}
	}
	m.AdvanceRound()
	if _, _, err := m.LoseTerritory(m.LossPenalty()); err != nil {
		t.Fatalf("lose: %v", err)
	}
	if err := m.ExpandFrontier(); err != nil {
		t.Fatalf("expand: %v", err)
	}
	return m
}

func TestDeterminism_SameSeedSameDigest(t *testing.T) {
	a := driveCampaign(t, 12345)
	b := driveCampaign(t, 12345)
	if a.Digest() != b.Digest() {
		t.Fatalf("digests differ for identical seed and commands")
	}
}

func TestDeterminism_DifferentSeedsDiverge(t *testing.T) {
	a := driveCampaign(t, 12345)
	b := driveCampaign(t, 54321)
	if a.Digest() == b.Digest() {
		t.Fatalf("digests collide across seeds")
	}
}

func TestRestore_RoundTripsDigest(t *testing.T) {
	m := driveCampaign(t, 777)
	st := m.ExportState()

	restored, err := NewMapFromState(Config{
		Rivals:       testRivals,
		CameraMargin: 2,
		Source:       stubSource{},
	}, st)
	if err != nil {
		t.Fatalf("NewMapFromState: %v", err)
	}
	if restored.Digest() != m.Digest() {
		t.Fatalf("restored digest differs from source")
	}
	if restored.StartBlock() != m.StartBlock() {
		t.Fatalf("start block changed in restore")
	}
	if restored.Round() != m.Round() {
		t.Fatalf("round changed in restore")
	}

	// The restored map must keep operating identically.
	l1, l2 := m.LayerIDs(Layer1), restored.LayerIDs(Layer1)
	if len(l1) == 0 || len(l2) == 0 {
		t.Fatalf("empty ring after restore")
	}
	if err := m.ConquerBlock(l1[0], "blue"); err != nil {
		t.Fatalf("conquer original: %v", err)
	}
	if err := restored.ConquerBlock(l2[0], "blue"); err != nil {
		t.Fatalf("conquer restored: %v", err)
	}
	if restored.Digest() != m.Digest() {
		t.Fatalf("digests diverge after identical post-restore command")
	}
}
