package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"warplots.gg/internal/protocol"
	"warplots.gg/internal/sim/campaign"
	"warplots.gg/internal/sim/tuning"
)

type Server struct {
	campaign *campaign.Campaign
	limits   tuning.RateLimits
	log      *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(c *campaign.Campaign, limits tuning.RateLimits, logger *log.Logger) *Server {
	s := &Server{
		campaign: c,
		limits:   limits,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		window := time.Now()
		inWindow := 0

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			if base.Type != protocol.TypeCmd {
				continue
			}
			var cmd protocol.CmdMsg
			if err := json.Unmarshal(msg, &cmd); err != nil {
				continue
			}
			if cmd.ProtocolVersion != protocol.Version {
				continue
			}

			if s.limits.CmdMax > 0 {
				if time.Since(window) >= time.Duration(s.limits.CmdWindowSeconds)*time.Second {
					window = time.Now()
					inWindow = 0
				}
				inWindow++
				if inWindow > s.limits.CmdMax {
					s.reject(out, cmd.ID, protocol.ErrRateLimit, "too many commands")
					continue
				}
			}

			s.campaign.Cmds() <- campaign.CmdEnvelope{SessionID: sessionID, Cmd: cmd}
		}

		// Cleanup.
		s.campaign.Leave() <- sessionID
	}
}

// reject short-circuits a command at the transport without touching the
// command loop.
func (s *Server) reject(out chan []byte, id, code, msg string) {
	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ID:              id,
		OK:              false,
		Code:            code,
		Message:         msg,
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}
	if hello.PlayerName == "" {
		hello.PlayerName = "player"
	}

	out = make(chan []byte, 16)

	resumeToken := ""
	if hello.Auth != nil {
		resumeToken = strings.TrimSpace(hello.Auth.Token)
	}

	respCh := make(chan campaign.AttachResponse, 1)
	s.campaign.Attach() <- campaign.AttachRequest{
		PlayerName:  hello.PlayerName,
		ResumeToken: resumeToken,
		Out:         out,
		Resp:        respCh,
	}
	resp := <-respCh
	if resp.Err != "" {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, resp.Err), time.Now().Add(time.Second))
		return "", nil
	}

	// Send welcome + the current map immediately.
	if err := writeJSON(conn, resp.Welcome); err != nil {
		return "", nil
	}
	if err := writeJSON(conn, resp.State); err != nil {
		return "", nil
	}

	return resp.SessionID, out
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
