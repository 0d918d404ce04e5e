// Package campaign hosts one overworld map behind a single-goroutine
// command loop. Every mutation runs to completion on that goroutine, so the
// map never sees concurrent access; clients attach over channels and
// receive a fresh STATE broadcast after each applied command.
package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"warplots.gg/internal/persistence/snapshot"
	"warplots.gg/internal/protocol"
	"warplots.gg/internal/sim/encounters"
	"warplots.gg/internal/sim/overworld"
)

type Config struct {
	ID   string // empty = fresh uuid
	Seed int64

	CameraMargin          int
	SnapshotEveryCommands int
	VisibleBlockCapacity  int
}

// CommandLogger receives one entry per processed command (applied or
// rejected, both carry the post-command digest).
type CommandLogger interface {
	WriteCommand(entry CommandLogEntry) error
}

type CommandLogEntry struct {
	Seq    uint64          `json:"seq"`
	Cmd    protocol.CmdMsg `json:"cmd"`
	OK     bool            `json:"ok"`
	Code   string          `json:"code,omitempty"`
	Lost   int             `json:"lost,omitempty"`
	Digest string          `json:"digest"`
}

type CmdEnvelope struct {
	SessionID string
	Cmd       protocol.CmdMsg
}

type AttachRequest struct {
	PlayerName  string
	ResumeToken string
	Out         chan []byte
	Resp        chan AttachResponse
}

type AttachResponse struct {
	SessionID string
	Welcome   protocol.WelcomeMsg
	State     protocol.StateMsg
	Err       string
}

type clientState struct {
	Out chan []byte
}

type Campaign struct {
	cfg      Config
	factions *encounters.Factions
	deck     *encounters.Deck
	world    *overworld.Map

	id          string
	resumeToken string
	seq         uint64
	gameOver    bool
	nextSession uint64

	clients map[string]*clientState

	cmds   chan CmdEnvelope
	attach chan AttachRequest
	leave  chan string
	stop   chan struct{}

	metrics atomic.Value // Metrics

	cmdLogger    CommandLogger
	snapshotSink chan<- snapshot.CampaignV1
}

func New(cfg Config, factions *encounters.Factions, deck *encounters.Deck) (*Campaign, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.VisibleBlockCapacity <= 0 {
		cfg.VisibleBlockCapacity = 256
	}
	m, err := overworld.NewMap(overworld.Config{
		Seed:         cfg.Seed,
		Rivals:       factions.Rivals,
		CameraMargin: cfg.CameraMargin,
		Source:       deck,
	})
	if err != nil {
		return nil, err
	}
	return &Campaign{
		cfg:         cfg,
		factions:    factions,
		deck:        deck,
		world:       m,
		id:          cfg.ID,
		resumeToken: fmt.Sprintf("resume_%s_%d", cfg.ID, time.Now().UnixNano()),
		clients:     map[string]*clientState{},
		cmds:        make(chan CmdEnvelope, 256),
		attach:      make(chan AttachRequest, 16),
		leave:       make(chan string, 16),
		stop:        make(chan struct{}),
	}, nil
}

func (c *Campaign) SetCommandLogger(l CommandLogger) { c.cmdLogger = l }

func (c *Campaign) SetSnapshotSink(ch chan<- snapshot.CampaignV1) { c.snapshotSink = ch }

func (c *Campaign) Cmds() chan<- CmdEnvelope     { return c.cmds }
func (c *Campaign) Attach() chan<- AttachRequest { return c.attach }
func (c *Campaign) Leave() chan<- string         { return c.leave }

func (c *Campaign) ID() string            { return c.id }
func (c *Campaign) Seq() uint64           { return c.seq }
func (c *Campaign) GameOver() bool        { return c.gameOver }
func (c *Campaign) World() *overworld.Map { return c.world }
func (c *Campaign) Digest() string        { return c.world.Digest() }

// Run drives the command loop until ctx is canceled or Stop is called.
func (c *Campaign) Run(ctx context.Context) error {
	c.publishMetrics(0)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stop:
			return nil
		case req := <-c.attach:
			c.handleAttach(req)
			c.publishMetrics(0)
		case id := <-c.leave:
			delete(c.clients, id)
			c.publishMetrics(0)
		case env := <-c.cmds:
			started := time.Now()
			res := c.Apply(env.Cmd)
			if cl := c.clients[env.SessionID]; cl != nil {
				if b, err := json.Marshal(res); err == nil {
					sendLatest(cl.Out, b)
				}
			}
			c.broadcastState()
			c.publishMetrics(float64(time.Since(started).Microseconds()) / 1000.0)
		}
	}
}

func (c *Campaign) Stop() { close(c.stop) }

func (c *Campaign) handleAttach(req AttachRequest) {
	if req.ResumeToken != "" && req.ResumeToken != c.resumeToken {
		req.Resp <- AttachResponse{Err: "bad resume token"}
		return
	}
	c.nextSession++
	sid := fmt.Sprintf("S%d", c.nextSession)
	if req.Out != nil {
		c.clients[sid] = &clientState{Out: req.Out}
	}

	rivals := make([]string, 0, len(c.factions.Rivals))
	for _, f := range c.factions.Rivals {
		rivals = append(rivals, string(f))
	}
	req.Resp <- AttachResponse{
		SessionID: sid,
		Welcome: protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			CampaignID:      c.id,
			ResumeToken:     c.resumeToken,
			CampaignParams: protocol.CampaignParams{
				Seed:          c.cfg.Seed,
				ChunkSize:     overworld.ChunkSize,
				PlayerFaction: string(c.factions.Player),
				RivalFactions: rivals,
				Round:         c.world.Round(),
			},
			Catalogs: protocol.CatalogDigests{
				FactionsDigest:   c.factions.Digest,
				EncountersDigest: c.deck.Digest,
			},
		},
		State: c.BuildState(),
	}
}

// Apply executes exactly one command against the map and returns its
// result. Exported for the replay tool and tests; the server goes through
// Run, which serializes all calls.
func (c *Campaign) Apply(cmd protocol.CmdMsg) protocol.ResultMsg {
	res := c.applyCmd(cmd)
	c.seq++
	res.Seq = c.seq
	res.Digest = c.world.Digest()

	if c.cmdLogger != nil {
		_ = c.cmdLogger.WriteCommand(CommandLogEntry{
			Seq:    c.seq,
			Cmd:    cmd,
			OK:     res.OK,
			Code:   res.Code,
			Lost:   res.Lost,
			Digest: res.Digest,
		})
	}
	if c.snapshotSink != nil && c.cfg.SnapshotEveryCommands > 0 && c.seq%uint64(c.cfg.SnapshotEveryCommands) == 0 {
		select {
		case c.snapshotSink <- c.ExportSnapshot():
		default:
			// Drop the snapshot if the writer is backed up.
		}
	}
	return res
}

func (c *Campaign) applyCmd(cmd protocol.CmdMsg) protocol.ResultMsg {
	fail := func(code, msg string) protocol.ResultMsg {
		return protocol.ResultMsg{
			Type:            protocol.TypeResult,
			ProtocolVersion: protocol.Version,
			ID:              cmd.ID,
			OK:              false,
			Code:            code,
			Message:         msg,
		}
	}
	ok := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ID:              cmd.ID,
		OK:              true,
	}

	if !protocol.IsKnownCmd(cmd.Cmd) {
		return fail(protocol.ErrBadRequest, "unknown command "+cmd.Cmd)
	}
	if c.gameOver {
		return fail(protocol.ErrCampaignOver, "campaign is over")
	}

	switch cmd.Cmd {
	case protocol.CmdStart:
		if c.world.Started() {
			return fail(protocol.ErrBadRequest, "campaign already started")
		}
		if cmd.Faction != "" && overworld.Faction(cmd.Faction) != c.factions.Player {
			return fail(protocol.ErrBadRequest, "unknown player faction "+cmd.Faction)
		}
		if err := c.world.GenerateStartingArea(c.factions.Player); err != nil {
			return fail(errCode(err), err.Error())
		}
		return ok

	case protocol.CmdConquer:
		if !c.world.Started() {
			return fail(protocol.ErrNotStarted, "campaign not started")
		}
		b, found := c.world.GetBlock(overworld.BlockID(cmd.Block))
		if !found {
			return fail(protocol.ErrNotFound, fmt.Sprintf("block %d not found", cmd.Block))
		}
		// Only the engageable frontier ring can be fought.
		if b.Layer != overworld.Layer1 {
			return fail(protocol.ErrNotNeighbor, fmt.Sprintf("block %d is not on the frontier", cmd.Block))
		}
		if err := c.world.ConquerBlock(b.ID, c.factions.Player); err != nil {
			return fail(errCode(err), err.Error())
		}
		return ok

	case protocol.CmdResolveDefeat:
		if !c.world.Started() {
			return fail(protocol.ErrNotStarted, "campaign not started")
		}
		lost, over, err := c.world.LoseTerritory(c.world.LossPenalty())
		if err != nil {
			if errors.Is(err, overworld.ErrNoTerritory) {
				return fail(protocol.ErrBadRequest, "nothing to lose")
			}
			return fail(errCode(err), err.Error())
		}
		if over {
			c.gameOver = true
		}
		ok.Lost = lost
		ok.GameOver = over
		return ok

	case protocol.CmdExpand:
		if !c.world.Started() {
			return fail(protocol.ErrNotStarted, "campaign not started")
		}
		if err := c.world.ExpandFrontier(); err != nil {
			return fail(errCode(err), err.Error())
		}
		return ok

	case protocol.CmdEndRound:
		if !c.world.Started() {
			return fail(protocol.ErrNotStarted, "campaign not started")
		}
		c.world.AdvanceRound()
		return ok
	}
	return fail(protocol.ErrInternal, "unhandled command")
}

func errCode(err error) string {
	if errors.Is(err, overworld.ErrCapacityExceeded) {
		return protocol.ErrCapacity
	}
	return protocol.ErrInternal
}

// BuildState renders the full visible map into a STATE message.
func (c *Campaign) BuildState() protocol.StateMsg {
	cam := c.world.CameraBounds()
	st := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Seq:             c.seq,
		Round:           c.world.Round(),
		InTutorial:      c.world.InTutorialMode(),
		GameOver:        c.gameOver,
		StartBlock:      uint32(c.world.StartBlock()),
		CameraBounds: protocol.RectView{
			Min: [2]int{cam.Min.X, cam.Min.Y},
			Max: [2]int{cam.Max.X, cam.Max.Y},
		},
	}

	buf := make([]*overworld.Block, c.cfg.VisibleBlockCapacity)
	n := c.world.VisibleBlocks(buf)
	st.Blocks = make([]protocol.BlockView, 0, n)
	for _, b := range buf[:n] {
		st.Blocks = append(st.Blocks, blockView(b))
	}
	return st
}

func blockView(b *overworld.Block) protocol.BlockView {
	v := protocol.BlockView{
		ID:      uint32(b.ID),
		Name:    b.Name,
		Faction: string(b.Faction),
		State:   b.State.String(),
		Layer:   b.Layer.String(),
	}
	v.Cells = make([][2]int, 0, len(b.Cells))
	for _, cell := range b.Cells {
		v.Cells = append(v.Cells, [2]int{cell.X, cell.Y})
	}
	v.Adjacent = make([]uint32, 0, len(b.Adjacent))
	for _, id := range b.Adjacent {
		v.Adjacent = append(v.Adjacent, uint32(id))
	}
	if node, okNode := b.Encounter.(*encounters.Node); okNode && node != nil {
		v.Encounter = &protocol.EncounterView{
			Archetype: node.Archetype,
			Title:     node.Title,
			Faction:   string(node.Faction),
			Strength:  node.Strength,
			Tutorial:  node.Tutorial,
		}
	}
	return v
}

func (c *Campaign) broadcastState() {
	st := c.BuildState()
	b, err := json.Marshal(st)
	if err != nil {
		return
	}
	for _, cl := range c.clients {
		sendLatest(cl.Out, b)
	}
}

// sendLatest drops the oldest queued message when the client's buffer is
// full; a slow map viewer only ever needs the newest state.
func sendLatest(out chan []byte, b []byte) {
	for {
		select {
		case out <- b:
			return
		default:
			select {
			case <-out:
			default:
			}
		}
	}
}
