package campaign

type Metrics struct {
	Seq      uint64 `json:"seq"`
	Round    int    `json:"round"`
	GameOver bool   `json:"game_over"`

	Clients      int `json:"clients"`
	LoadedChunks int `json:"loaded_chunks"`
	Blocks       int `json:"blocks"`
	Conquered    int `json:"conquered"`

	QueueDepths QueueDepths `json:"queue_depths"`

	ApplyMS float64 `json:"apply_ms"`
}

type QueueDepths struct {
	Cmds   int `json:"cmds"`
	Attach int `json:"attach"`
	Leave  int `json:"leave"`
}

// Metrics returns the last published metrics sample. Safe to call from any
// goroutine; the command loop refreshes it after every processed event.
func (c *Campaign) Metrics() Metrics {
	if c == nil {
		return Metrics{}
	}
	v := c.metrics.Load()
	if v == nil {
		return Metrics{}
	}
	m, ok := v.(Metrics)
	if !ok {
		return Metrics{}
	}
	return m
}

// publishMetrics must only run on the command loop goroutine.
func (c *Campaign) publishMetrics(applyMS float64) {
	c.metrics.Store(Metrics{
		Seq:          c.seq,
		Round:        c.world.Round(),
		GameOver:     c.gameOver,
		Clients:      len(c.clients),
		LoadedChunks: c.world.LoadedChunkCount(),
		Blocks:       c.world.BlockCount(),
		Conquered:    c.world.ConqueredCount(),
		QueueDepths: QueueDepths{
			Cmds:   len(c.cmds),
			Attach: len(c.attach),
			Leave:  len(c.leave),
		},
		ApplyMS: applyMS,
	})
}
