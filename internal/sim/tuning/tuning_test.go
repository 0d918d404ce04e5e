package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_OverridesDefaults(t *testing.T) {
	p := writeFile(t, "camera_margin_cells: 9\nsnapshot_every_commands: 7\n")

	tn, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 9, tn.CameraMarginCells)
	assert.Equal(t, 7, tn.SnapshotEveryCommands)
	// Untouched knobs keep their defaults.
	assert.Equal(t, Defaults().VisibleBlockCapacity, tn.VisibleBlockCapacity)
	assert.Equal(t, Defaults().RateLimits, tn.RateLimits)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"negative margin": "camera_margin_cells: -1\n",
		"zero snapshots":  "snapshot_every_commands: 0\n",
		"zero capacity":   "visible_block_capacity: 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestDefaults_AreValid(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}
