package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"warplots.gg/internal/persistence/snapshot"
	"warplots.gg/internal/sim/campaign"
	"warplots.gg/internal/sim/encounters"
)

func main() {
	var (
		snapPath     = flag.String("snapshot", "", "path to snapshot-*.zst (optional when replaying from seq 1)")
		commandsDir  = flag.String("commands", "", "commands dir containing commands-*.jsonl.zst (optional)")
		configDir    = flag.String("configs", "./configs", "config directory")
		seed         = flag.Int64("seed", 1337, "map seed for a fresh replay (ignored with -snapshot)")
		campaignID   = flag.String("campaign", "replay", "campaign id for a fresh replay (ignored with -snapshot)")
		cameraMargin = flag.Int("camera_margin", 4, "camera margin cells for a fresh replay (ignored with -snapshot)")
		fromSeq      = flag.Uint64("from_seq", 0, "start verifying from seq (inclusive, optional)")
		toSeq        = flag.Uint64("to_seq", 0, "stop at seq (inclusive, optional)")
	)
	flag.Parse()

	if *snapPath == "" && *commandsDir == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -snapshot and/or -commands")
		os.Exit(2)
	}

	var c *campaign.Campaign
	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}

		fmt.Printf("snapshot v%d campaign=%s seq=%d seed=%d round=%d started=%v chunks=%d conquered=%d frontier=%d\n",
			snap.Header.Version, snap.Header.CampaignID, snap.Header.Seq, snap.Seed, snap.Round, snap.Started,
			len(snap.Chunks), len(snap.Conquered), len(snap.Layer1))

		if *commandsDir == "" {
			return
		}

		factions, deck, err := encounters.Load(*configDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load catalogs:", err)
			os.Exit(1)
		}
		c, err = campaign.NewFromSnapshot(campaign.Config{}, factions, deck, snap)
		if err != nil {
			fmt.Fprintln(os.Stderr, "restore campaign:", err)
			os.Exit(1)
		}
	} else {
		factions, deck, err := encounters.Load(*configDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load catalogs:", err)
			os.Exit(1)
		}
		c, err = campaign.New(campaign.Config{ID: *campaignID, Seed: *seed, CameraMargin: *cameraMargin}, factions, deck)
		if err != nil {
			fmt.Fprintln(os.Stderr, "campaign:", err)
			os.Exit(1)
		}
	}

	startSeq := c.Seq()
	verifyFrom := *fromSeq
	if verifyFrom == 0 {
		verifyFrom = startSeq + 1
	}

	files, err := listCommandFiles(*commandsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list commands:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no command files found in", *commandsDir)
		os.Exit(1)
	}

	var checked uint64
	for _, path := range files {
		if err := replayFile(c, path, startSeq, verifyFrom, *toSeq, &checked); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
		if *toSeq != 0 && c.Seq() >= *toSeq {
			break
		}
	}
	fmt.Printf("replay ok: checked=%d commands (from seq=%d)\n", checked, startSeq)
}

func listCommandFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "commands-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func replayFile(c *campaign.Campaign, path string, startSeq, verifyFrom, toSeq uint64, checked *uint64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		line := sc.Bytes()
		var entry campaign.CommandLogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if entry.Seq <= startSeq {
			continue
		}
		if toSeq != 0 && entry.Seq > toSeq {
			return nil
		}
		if entry.Seq != c.Seq()+1 {
			return fmt.Errorf("seq mismatch: want=%d got=%d (file=%s)", c.Seq()+1, entry.Seq, filepath.Base(path))
		}

		res := c.Apply(entry.Cmd)

		if res.OK != entry.OK || res.Code != entry.Code {
			return fmt.Errorf("result mismatch at seq %d: got ok=%v code=%s, want ok=%v code=%s",
				entry.Seq, res.OK, res.Code, entry.OK, entry.Code)
		}
		if entry.Seq >= verifyFrom {
			*checked++
			if res.Digest != entry.Digest {
				return fmt.Errorf("digest mismatch at seq %d: got=%s want=%s", entry.Seq, res.Digest, entry.Digest)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return nil
}
