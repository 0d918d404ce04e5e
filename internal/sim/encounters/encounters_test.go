package encounters

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warplots.gg/internal/sim/overworld"
)

func writeConfigs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	factions := `[
	  {"id":"blue","name":"Blue Company","color":"#3b69d1","player":true},
	  {"id":"crimson","name":"Crimson Pact","color":"#c42f2f"},
	  {"id":"jade","name":"Jade Syndicate","color":"#2f9e5a"}
	]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "factions.json"), []byte(factions), 0o644))

	encDir := filepath.Join(dir, "encounters")
	require.NoError(t, os.MkdirAll(encDir, 0o755))
	skirmish := `{"id":"skirmish","title":"Street Skirmish","category":"ASSAULT","base_weight":5.0,"min_strength":1,"max_strength":4}`
	raid := `{"id":"raid","title":"Depot Raid","category":"RAID","base_weight":2.0,"min_strength":2,"max_strength":2}`
	require.NoError(t, os.WriteFile(filepath.Join(encDir, "skirmish.json"), []byte(skirmish), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(encDir, "raid.json"), []byte(raid), 0o644))
	return dir
}

func TestLoad_FactionsAndDeck(t *testing.T) {
	f, d, err := Load(writeConfigs(t))
	require.NoError(t, err)

	assert.Equal(t, overworld.Faction("blue"), f.Player)
	assert.Equal(t, []overworld.Faction{"crimson", "jade"}, f.Rivals)
	assert.NotEmpty(t, f.Digest)

	assert.Len(t, d.ByID, 2)
	assert.NotEmpty(t, d.Digest)
}

func TestLoad_DigestsAreStable(t *testing.T) {
	dir := writeConfigs(t)
	f1, d1, err := Load(dir)
	require.NoError(t, err)
	f2, d2, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, f1.Digest, f2.Digest)
	assert.Equal(t, d1.Digest, d2.Digest)
}

func TestLoad_RejectsBrokenCatalogs(t *testing.T) {
	dir := writeConfigs(t)

	// Two player factions.
	bad := `[
	  {"id":"a","name":"A","color":"#000","player":true},
	  {"id":"b","name":"B","color":"#111","player":true},
	  {"id":"c","name":"C","color":"#222"}
	]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "factions.json"), []byte(bad), 0o644))
	_, _, err := Load(dir)
	assert.Error(t, err)

	// Inverted strength range.
	dir2 := writeConfigs(t)
	broken := `{"id":"broken","title":"X","category":"RAID","base_weight":1.0,"min_strength":5,"max_strength":1}`
	require.NoError(t, os.WriteFile(filepath.Join(dir2, "encounters", "broken.json"), []byte(broken), 0o644))
	_, _, err = Load(dir2)
	assert.Error(t, err)
}

func TestDeck_RandomIsSeedDeterministic(t *testing.T) {
	_, d, err := Load(writeConfigs(t))
	require.NoError(t, err)

	deal := func() []*Node {
		rng := rand.New(rand.NewSource(42))
		out := make([]*Node, 0, 16)
		for i := 0; i < 16; i++ {
			out = append(out, d.Random(overworld.BlockID(i+1), rng).(*Node))
		}
		return out
	}
	a, b := deal(), deal()
	for i := range a {
		assert.Equal(t, a[i].Archetype, b[i].Archetype)
		assert.Equal(t, a[i].Strength, b[i].Strength)
	}
}

func TestDeck_RandomRespectsStrengthRange(t *testing.T) {
	_, d, err := Load(writeConfigs(t))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		n := d.Random(1, rng).(*Node)
		def, ok := d.ByID[n.Archetype]
		require.True(t, ok, "unknown archetype %q", n.Archetype)
		assert.GreaterOrEqual(t, n.Strength, def.MinStrength)
		assert.LessOrEqual(t, n.Strength, def.MaxStrength)
	}
}

func TestDeck_Tutorial(t *testing.T) {
	_, d, err := Load(writeConfigs(t))
	require.NoError(t, err)

	n := d.Tutorial(9).(*Node)
	assert.True(t, n.Tutorial)
	assert.Equal(t, overworld.BlockID(9), n.ForBlock)
	assert.Equal(t, overworld.NoFaction, n.ControllingFaction())

	n.SetControllingFaction("crimson")
	assert.Equal(t, overworld.Faction("crimson"), n.ControllingFaction())
}
