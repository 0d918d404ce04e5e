package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"warplots.gg/internal/protocol"
)

// The bot plays a campaign on its own: start, conquer frontier blocks, and
// occasionally concede a defeat or end the round. Handy for soaking the
// server and producing realistic command logs.
func main() {
	var (
		url  = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name = flag.String("name", "bot", "player name")
		wait = flag.Duration("wait", 500*time.Millisecond, "pause between commands")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var cmdSeq int

	send := func(kind string, block uint32) {
		cmdSeq++
		cmd := protocol.CmdMsg{
			Type:            protocol.TypeCmd,
			ProtocolVersion: protocol.Version,
			ID:              fmt.Sprintf("bot_%d", cmdSeq),
			Cmd:             kind,
			Block:           block,
		}
		_ = conn.WriteJSON(cmd)
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME campaign=%s seed=%d round=%d", w.CampaignID, w.CampaignParams.Seed, w.CampaignParams.Round)

		case protocol.TypeResult:
			var res protocol.ResultMsg
			if err := json.Unmarshal(msg, &res); err != nil {
				continue
			}
			if !res.OK {
				logger.Printf("RESULT id=%s code=%s msg=%s", res.ID, res.Code, res.Message)
			}
			if res.GameOver {
				logger.Printf("campaign over at seq=%d", res.Seq)
				return
			}

		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			time.Sleep(*wait)
			playTurn(send, rng, &st, logger)
		}
	}
}

func playTurn(send func(string, uint32), rng *rand.Rand, st *protocol.StateMsg, logger *log.Logger) {
	if st.GameOver {
		return
	}
	if st.StartBlock == 0 {
		logger.Printf("starting campaign")
		send(protocol.CmdStart, 0)
		return
	}

	// Sometimes lose a battle or wrap up the round instead of attacking.
	switch {
	case rng.Intn(12) == 0:
		send(protocol.CmdResolveDefeat, 0)
		return
	case rng.Intn(10) == 0:
		send(protocol.CmdEndRound, 0)
		return
	case rng.Intn(8) == 0:
		send(protocol.CmdExpand, 0)
		return
	}

	var frontier []uint32
	for _, b := range st.Blocks {
		if b.Layer == "LAYER1" {
			frontier = append(frontier, b.ID)
		}
	}
	if len(frontier) == 0 {
		send(protocol.CmdExpand, 0)
		return
	}
	send(protocol.CmdConquer, frontier[rng.Intn(len(frontier))])
}
