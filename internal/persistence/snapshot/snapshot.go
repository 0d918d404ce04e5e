// Package snapshot persists full campaign state as a zstd stream holding a
// JSON header line followed by a gob body. The header is readable with
// zstdcat for quick inspection; the gob body is the authoritative payload.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version    int    `json:"version"`
	CampaignID string `json:"campaign_id"`
	Seq        uint64 `json:"seq"`
}

type CampaignV1 struct {
	Header Header `json:"header"`

	ResumeToken string `json:"resume_token,omitempty"`
	GameOver    bool   `json:"game_over,omitempty"`

	Seed          int64  `json:"seed"`
	Round         int    `json:"round"`
	InTutorial    bool   `json:"in_tutorial"`
	Started       bool   `json:"started"`
	PlayerFaction string `json:"player_faction"`
	StartBlock    uint32 `json:"start_block"`
	NextBlockID   uint32 `json:"next_block_id"`
	LossEvents    uint64 `json:"loss_events"`
	CameraMin     [2]int `json:"camera_min"`
	CameraMax     [2]int `json:"camera_max"`

	// Captured for deterministic replay/resume.
	CameraMargin int `json:"camera_margin,omitempty"`

	Chunks []ChunkV1 `json:"chunks"`

	Conquered []uint32 `json:"conquered"`
	Layer1    []uint32 `json:"layer1"`
	Layer2    []uint32 `json:"layer2"`
	Layer3    []uint32 `json:"layer3"`
}

type ChunkV1 struct {
	CX     int       `json:"cx"`
	CY     int       `json:"cy"`
	Cells  []int16   `json:"cells"`
	Blocks []BlockV1 `json:"blocks"`
}

type BlockV1 struct {
	ID        uint32       `json:"id"`
	Cells     [][2]int     `json:"cells"`
	Name      string       `json:"name"`
	Faction   string       `json:"faction,omitempty"`
	State     uint8        `json:"state"`
	Layer     uint8        `json:"layer"`
	Adjacent  []uint32     `json:"adjacent,omitempty"`
	Encounter *EncounterV1 `json:"encounter,omitempty"`
}

type EncounterV1 struct {
	Archetype string `json:"archetype"`
	Title     string `json:"title"`
	Faction   string `json:"faction,omitempty"`
	Strength  int    `json:"strength"`
	ForBlock  uint32 `json:"for_block"`
	Tutorial  bool   `json:"tutorial,omitempty"`
}

func WriteSnapshot(path string, snap CampaignV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (CampaignV1, error) {
	var snap CampaignV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is advisory; the gob body carries it too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// LatestPath returns the snapshot file with the highest sequence number in
// dir, or "" when none exist.
func LatestPath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "snapshot-") && strings.HasSuffix(name, ".zst") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	// Names embed a zero-padded seq, so lexicographic order matches.
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}

// FileName builds the canonical snapshot name for a sequence number.
func FileName(seq uint64) string {
	return fmt.Sprintf("snapshot-%012d.zst", seq)
}
