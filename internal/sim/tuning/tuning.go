package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	CameraMarginCells     int `yaml:"camera_margin_cells"`
	SnapshotEveryCommands int `yaml:"snapshot_every_commands"`
	VisibleBlockCapacity  int `yaml:"visible_block_capacity"`

	RateLimits RateLimits `yaml:"rate_limits"`
}

type RateLimits struct {
	CmdWindowSeconds int `yaml:"cmd_window_seconds"`
	CmdMax           int `yaml:"cmd_max"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:       "1.0",
		CameraMarginCells:     4,
		SnapshotEveryCommands: 50,
		VisibleBlockCapacity:  256,
		RateLimits: RateLimits{
			CmdWindowSeconds: 10,
			CmdMax:           40,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.CameraMarginCells < 0 {
		return fmt.Errorf("tuning: camera_margin_cells must be >= 0")
	}
	if t.SnapshotEveryCommands <= 0 {
		return fmt.Errorf("tuning: snapshot_every_commands must be > 0")
	}
	if t.VisibleBlockCapacity <= 0 {
		return fmt.Errorf("tuning: visible_block_capacity must be > 0")
	}
	if t.RateLimits.CmdWindowSeconds < 0 || t.RateLimits.CmdMax < 0 {
		return fmt.Errorf("tuning: rate limits must be >= 0")
	}
	return nil
}
