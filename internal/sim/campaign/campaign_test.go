package campaign

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"warplots.gg/internal/protocol"
	"warplots.gg/internal/sim/encounters"
	"warplots.gg/internal/sim/overworld"
)

func writeCatalogs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	factions := `[
	  {"id":"blue","name":"Blue Company","color":"#3b69d1","player":true},
	  {"id":"crimson","name":"Crimson Pact","color":"#c42f2f"},
	  {"id":"jade","name":"Jade Syndicate","color":"#2f9e5a"},
	  {"id":"cobalt","name":"Cobalt Order","color":"#2f55c4"},
	  {"id":"umber","name":"Umber Host","color":"#7a4a21"}
	]`
	if err := os.WriteFile(filepath.Join(dir, "factions.json"), []byte(factions), 0o644); err != nil {
		t.Fatalf("write factions: %v", err)
	}
	encDir := filepath.Join(dir, "encounters")
	if err := os.MkdirAll(encDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	skirmish := `{"id":"skirmish","title":"Street Skirmish","category":"ASSAULT","base_weight":5.0,"min_strength":1,"max_strength":4}`
	if err := os.WriteFile(filepath.Join(encDir, "skirmish.json"), []byte(skirmish), 0o644); err != nil {
		t.Fatalf("write encounter: %v", err)
	}
	return dir
}

func newTestCampaign(t *testing.T, seed int64) *Campaign {
	t.Helper()
	f, d, err := encounters.Load(writeCatalogs(t))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	c, err := New(Config{Seed: seed, CameraMargin: 4, VisibleBlockCapacity: 512}, f, d)
	if err != nil {
		t.Fatalf("new campaign: %v", err)
	}
	return c
}

func cmd(kind string, block overworld.BlockID) protocol.CmdMsg {
	return protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		ID:              "t1",
		Cmd:             kind,
		Block:           uint32(block),
	}
}

func TestApply_RequiresStart(t *testing.T) {
	c := newTestCampaign(t, 11)

	for _, kind := range []string{protocol.CmdConquer, protocol.CmdResolveDefeat, protocol.CmdExpand, protocol.CmdEndRound} {
		res := c.Apply(cmd(kind, 1))
		if res.OK || res.Code != protocol.ErrNotStarted {
			t.Fatalf("%s before START: got ok=%v code=%s", kind, res.OK, res.Code)
		}
	}

	res := c.Apply(cmd("FROBNICATE", 0))
	if res.OK || res.Code != protocol.ErrBadRequest {
		t.Fatalf("unknown command: got ok=%v code=%s", res.OK, res.Code)
	}
}

func TestApply_StartAndConquer(t *testing.T) {
	c := newTestCampaign(t, 12)

	res := c.Apply(cmd(protocol.CmdStart, 0))
	if !res.OK {
		t.Fatalf("START failed: %s %s", res.Code, res.Message)
	}
	if res.Seq != 1 || res.Digest == "" {
		t.Fatalf("START result seq=%d digest=%q", res.Seq, res.Digest)
	}
	if res2 := c.Apply(cmd(protocol.CmdStart, 0)); res2.OK || res2.Code != protocol.ErrBadRequest {
		t.Fatalf("second START: got ok=%v code=%s", res2.OK, res2.Code)
	}

	frontier := c.World().LayerIDs(overworld.Layer1)
	if len(frontier) == 0 {
		t.Fatal("no frontier after START")
	}
	before := c.World().ConqueredCount()
	if res3 := c.Apply(cmd(protocol.CmdConquer, frontier[0])); !res3.OK {
		t.Fatalf("CONQUER frontier block: %s %s", res3.Code, res3.Message)
	}
	if got := c.World().ConqueredCount(); got != before+1 {
		t.Fatalf("conquered count = %d, want %d", got, before+1)
	}

	if res4 := c.Apply(cmd(protocol.CmdConquer, 99999)); res4.OK || res4.Code != protocol.ErrNotFound {
		t.Fatalf("CONQUER unknown block: got ok=%v code=%s", res4.OK, res4.Code)
	}
	deep := c.World().LayerIDs(overworld.Layer3)
	if len(deep) > 0 {
		if res5 := c.Apply(cmd(protocol.CmdConquer, deep[0])); res5.OK || res5.Code != protocol.ErrNotNeighbor {
			t.Fatalf("CONQUER deep block: got ok=%v code=%s", res5.OK, res5.Code)
		}
	}
}

func TestApply_ResolveDefeatUntilGameOver(t *testing.T) {
	c := newTestCampaign(t, 13)
	if res := c.Apply(cmd(protocol.CmdStart, 0)); !res.OK {
		t.Fatalf("START: %s", res.Code)
	}

	// Conquer a few frontier blocks so there is territory to lose.
	for i := 0; i < 4; i++ {
		frontier := c.World().LayerIDs(overworld.Layer1)
		if len(frontier) == 0 {
			break
		}
		if res := c.Apply(cmd(protocol.CmdConquer, frontier[0])); !res.OK {
			t.Fatalf("CONQUER: %s %s", res.Code, res.Message)
		}
	}

	over := false
	for i := 0; i < 50; i++ {
		res := c.Apply(cmd(protocol.CmdResolveDefeat, 0))
		if !res.OK {
			t.Fatalf("RESOLVE_DEFEAT: %s %s", res.Code, res.Message)
		}
		if res.GameOver {
			over = true
			break
		}
		if res.Lost < 1 {
			t.Fatalf("defeat lost %d blocks", res.Lost)
		}
	}
	if !over {
		t.Fatal("campaign never reached game over")
	}
	if !c.GameOver() {
		t.Fatal("GameOver flag not set")
	}
	if res := c.Apply(cmd(protocol.CmdEndRound, 0)); res.OK || res.Code != protocol.ErrCampaignOver {
		t.Fatalf("command after game over: got ok=%v code=%s", res.OK, res.Code)
	}
}

func TestApply_EndRoundAndExpand(t *testing.T) {
	c := newTestCampaign(t, 14)
	if res := c.Apply(cmd(protocol.CmdStart, 0)); !res.OK {
		t.Fatalf("START: %s", res.Code)
	}

	if res := c.Apply(cmd(protocol.CmdEndRound, 0)); !res.OK {
		t.Fatalf("END_ROUND: %s", res.Code)
	}
	if got := c.World().Round(); got != 1 {
		t.Fatalf("round = %d, want 1", got)
	}

	chunksBefore := c.World().LoadedChunkCount()
	if res := c.Apply(cmd(protocol.CmdExpand, 0)); !res.OK {
		t.Fatalf("EXPAND: %s", res.Code)
	}
	if got := c.World().LoadedChunkCount(); got < chunksBefore {
		t.Fatalf("chunks shrank after EXPAND: %d -> %d", chunksBefore, got)
	}
}

type memLogger struct {
	entries []CommandLogEntry
}

func (l *memLogger) WriteCommand(e CommandLogEntry) error {
	l.entries = append(l.entries, e)
	return nil
}

func TestApply_LogsEveryCommand(t *testing.T) {
	c := newTestCampaign(t, 15)
	lg := &memLogger{}
	c.SetCommandLogger(lg)

	c.Apply(cmd(protocol.CmdStart, 0))
	c.Apply(cmd(protocol.CmdConquer, 99999)) // rejected, still logged
	c.Apply(cmd(protocol.CmdEndRound, 0))

	if len(lg.entries) != 3 {
		t.Fatalf("logged %d entries, want 3", len(lg.entries))
	}
	for i, e := range lg.entries {
		if e.Seq != uint64(i+1) {
			t.Fatalf("entry %d has seq %d", i, e.Seq)
		}
		if e.Digest == "" {
			t.Fatalf("entry %d missing digest", i)
		}
	}
	if lg.entries[1].OK || lg.entries[1].Code != protocol.ErrNotFound {
		t.Fatalf("rejected command logged as ok=%v code=%s", lg.entries[1].OK, lg.entries[1].Code)
	}
	// A rejected command does not mutate the map.
	if lg.entries[0].Digest != lg.entries[1].Digest {
		t.Fatal("digest changed across rejected command")
	}
}

func TestApply_DigestsAreSeedDeterministic(t *testing.T) {
	script := func(c *Campaign) []string {
		var digests []string
		run := func(kind string, block overworld.BlockID) {
			digests = append(digests, c.Apply(cmd(kind, block)).Digest)
		}
		run(protocol.CmdStart, 0)
		for i := 0; i < 3; i++ {
			frontier := c.World().LayerIDs(overworld.Layer1)
			run(protocol.CmdConquer, frontier[0])
		}
		run(protocol.CmdEndRound, 0)
		run(protocol.CmdResolveDefeat, 0)
		run(protocol.CmdExpand, 0)
		return digests
	}

	a := script(newTestCampaign(t, 777))
	b := script(newTestCampaign(t, 777))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("digest %d diverged:\n%s\n%s", i, a[i], b[i])
		}
	}

	other := script(newTestCampaign(t, 778))
	if a[0] == other[0] {
		t.Fatal("different seeds produced identical digests")
	}
}

func TestBuildState(t *testing.T) {
	c := newTestCampaign(t, 16)
	c.Apply(cmd(protocol.CmdStart, 0))

	st := c.BuildState()
	if st.Type != protocol.TypeState || st.ProtocolVersion != protocol.Version {
		t.Fatalf("state header: %s %s", st.Type, st.ProtocolVersion)
	}
	if st.Seq != 1 {
		t.Fatalf("state seq = %d", st.Seq)
	}
	if !st.InTutorial {
		t.Fatal("tutorial mode not reflected")
	}
	if st.StartBlock == 0 {
		t.Fatal("start block missing")
	}
	if len(st.Blocks) == 0 {
		t.Fatal("no visible blocks")
	}

	var foundStart bool
	for _, b := range st.Blocks {
		if len(b.Cells) == 0 {
			t.Fatalf("block %d has no cells", b.ID)
		}
		if b.ID == st.StartBlock {
			foundStart = true
			if b.Encounter == nil || !b.Encounter.Tutorial {
				t.Fatal("start block is missing its tutorial encounter")
			}
		}
	}
	if !foundStart {
		t.Fatal("start block not in visible set")
	}

	if _, err := json.Marshal(st); err != nil {
		t.Fatalf("state must be marshalable: %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	f, d, err := encounters.Load(writeCatalogs(t))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	c, err := New(Config{Seed: 909, CameraMargin: 4}, f, d)
	if err != nil {
		t.Fatalf("new campaign: %v", err)
	}
	c.Apply(cmd(protocol.CmdStart, 0))
	frontier := c.World().LayerIDs(overworld.Layer1)
	c.Apply(cmd(protocol.CmdConquer, frontier[0]))
	c.Apply(cmd(protocol.CmdEndRound, 0))

	snap := c.ExportSnapshot()
	restored, err := NewFromSnapshot(Config{CameraMargin: 4}, f, d, snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.ID() != c.ID() || restored.Seq() != c.Seq() {
		t.Fatalf("identity lost: id=%s seq=%d", restored.ID(), restored.Seq())
	}
	if restored.Digest() != c.Digest() {
		t.Fatal("digest changed across snapshot round trip")
	}

	// Both continue identically.
	fa := c.World().LayerIDs(overworld.Layer1)
	fb := restored.World().LayerIDs(overworld.Layer1)
	if len(fa) == 0 || len(fb) == 0 || fa[0] != fb[0] {
		t.Fatalf("frontiers diverged: %v vs %v", fa, fb)
	}
	ra := c.Apply(cmd(protocol.CmdConquer, fa[0]))
	rb := restored.Apply(cmd(protocol.CmdConquer, fb[0]))
	if ra.Digest != rb.Digest {
		t.Fatal("digests diverged after restore")
	}
}

func TestRun_AttachAndCommand(t *testing.T) {
	c := newTestCampaign(t, 17)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()

	out := make(chan []byte, 8)
	resp := make(chan AttachResponse, 1)
	c.Attach() <- AttachRequest{PlayerName: "tester", Out: out, Resp: resp}
	ar := <-resp
	if ar.Err != "" {
		t.Fatalf("attach: %s", ar.Err)
	}
	if ar.Welcome.CampaignID != c.ID() || ar.Welcome.ResumeToken == "" {
		t.Fatalf("welcome: %+v", ar.Welcome)
	}
	if ar.Welcome.CampaignParams.ChunkSize != overworld.ChunkSize {
		t.Fatalf("chunk size = %d", ar.Welcome.CampaignParams.ChunkSize)
	}

	c.Cmds() <- CmdEnvelope{SessionID: ar.SessionID, Cmd: cmd(protocol.CmdStart, 0)}

	var sawResult, sawState bool
	deadline := time.After(2 * time.Second)
	for !sawResult || !sawState {
		select {
		case b := <-out:
			base, err := protocol.DecodeBase(b)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			switch base.Type {
			case protocol.TypeResult:
				var res protocol.ResultMsg
				if err := json.Unmarshal(b, &res); err != nil {
					t.Fatalf("unmarshal result: %v", err)
				}
				if !res.OK {
					t.Fatalf("START over loop failed: %s", res.Code)
				}
				sawResult = true
			case protocol.TypeState:
				sawState = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for RESULT and STATE")
		}
	}

	// Bad resume tokens are refused.
	resp2 := make(chan AttachResponse, 1)
	c.Attach() <- AttachRequest{PlayerName: "x", ResumeToken: "bogus", Resp: resp2}
	if ar2 := <-resp2; ar2.Err == "" {
		t.Fatal("bogus resume token accepted")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
