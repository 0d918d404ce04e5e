package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Campaign command layer.
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrNotFound     = "E_NOT_FOUND"
	ErrNotNeighbor  = "E_NOT_NEIGHBOR"
	ErrCapacity     = "E_CAPACITY"
	ErrNotStarted   = "E_NOT_STARTED"
	ErrCampaignOver = "E_CAMPAIGN_OVER"
	ErrRateLimit    = "E_RATE_LIMIT"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrNotFound:        {},
	ErrNotNeighbor:     {},
	ErrCapacity:        {},
	ErrNotStarted:      {},
	ErrCampaignOver:    {},
	ErrRateLimit:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
