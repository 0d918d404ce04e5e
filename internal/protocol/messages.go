package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	PlayerName      string     `json:"player_name"`
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	CampaignID      string         `json:"campaign_id"`
	ResumeToken     string         `json:"resume_token"`
	CampaignParams  CampaignParams `json:"campaign_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CampaignParams struct {
	Seed          int64    `json:"seed"`
	ChunkSize     int      `json:"chunk_size"`
	PlayerFaction string   `json:"player_faction"`
	RivalFactions []string `json:"rival_factions"`
	Round         int      `json:"round"`
}

type CatalogDigests struct {
	FactionsDigest   string `json:"factions_digest"`
	EncountersDigest string `json:"encounters_digest"`
	TuningDigest     string `json:"tuning_digest,omitempty"`
}

// STATE (server -> client): the full visible map after each applied command.
type StateMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Seq             uint64      `json:"seq"`
	Round           int         `json:"round"`
	InTutorial      bool        `json:"in_tutorial"`
	GameOver        bool        `json:"game_over"`
	StartBlock      uint32      `json:"start_block"`
	CameraBounds    RectView    `json:"camera_bounds"`
	Blocks          []BlockView `json:"blocks"`
}

type RectView struct {
	Min [2]int `json:"min"`
	Max [2]int `json:"max"`
}

// BlockView is one visible block, in tier order within StateMsg.Blocks.
type BlockView struct {
	ID        uint32         `json:"id"`
	Name      string         `json:"name"`
	Faction   string         `json:"faction,omitempty"`
	State     string         `json:"state"`
	Layer     string         `json:"layer"`
	Cells     [][2]int       `json:"cells"`
	Adjacent  []uint32       `json:"adjacent,omitempty"`
	Encounter *EncounterView `json:"encounter,omitempty"`
}

type EncounterView struct {
	Archetype string `json:"archetype"`
	Title     string `json:"title"`
	Faction   string `json:"faction,omitempty"`
	Strength  int    `json:"strength"`
	Tutorial  bool   `json:"tutorial,omitempty"`
}

// CMD (client -> server)
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Cmd             string `json:"cmd"`
	Block           uint32 `json:"block,omitempty"`
	Faction         string `json:"faction,omitempty"`
}

// RESULT (server -> client): the outcome of one CMD.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Seq             uint64 `json:"seq"`
	Digest          string `json:"digest,omitempty"`
	Lost            int    `json:"lost,omitempty"`
	GameOver        bool   `json:"game_over,omitempty"`
}
