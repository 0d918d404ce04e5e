package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeState   = "STATE"
	TypeCmd     = "CMD"
	TypeResult  = "RESULT"
)

// Campaign commands carried by CMD messages.
const (
	CmdStart         = "START"
	CmdConquer       = "CONQUER"
	CmdResolveDefeat = "RESOLVE_DEFEAT"
	CmdExpand        = "EXPAND"
	CmdEndRound      = "END_ROUND"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// IsKnownCmd reports whether cmd is a recognized campaign command.
func IsKnownCmd(cmd string) bool {
	switch cmd {
	case CmdStart, CmdConquer, CmdResolveDefeat, CmdExpand, CmdEndRound:
		return true
	}
	return false
}
