// Package indexdb maintains a queryable SQLite index next to the JSONL
// logs. The index is secondary: writes are fire-and-forget from the sim's
// point of view, and the logs remain the source of truth.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"warplots.gg/internal/persistence/snapshot"
	"warplots.gg/internal/sim/campaign"
	"warplots.gg/internal/sim/encounters"
	"warplots.gg/internal/sim/tuning"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqCommand reqKind = iota + 1
	reqSnapshot
	reqCampaign
)

type req struct {
	kind reqKind

	campaignID string
	command    campaign.CommandLogEntry
	snapshot   snapshotRow
	campaign   campaignRow
}

type snapshotRow struct {
	Seq       uint64
	Path      string
	Seed      int64
	Round     int
	Chunks    int
	Conquered int
	GameOver  bool
}

type campaignRow struct {
	ID            string
	Seed          int64
	PlayerFaction string
	CreatedAt     string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Generous buffer so command bursts never stall the sim loop.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS campaigns (
			id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			player_faction TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS commands (
			campaign_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			cmd TEXT NOT NULL,
			block INTEGER NOT NULL,
			ok INTEGER NOT NULL,
			code TEXT,
			lost INTEGER NOT NULL,
			digest TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (campaign_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_cmd ON commands(campaign_id, cmd, seq);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			campaign_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			round INTEGER NOT NULL,
			chunks INTEGER NOT NULL,
			conquered INTEGER NOT NULL,
			game_over INTEGER NOT NULL,
			PRIMARY KEY (campaign_id, seq)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteCommand(campaignID string, entry campaign.CommandLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqCommand, campaignID: campaignID, command: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
	}
	return nil
}

func (s *SQLiteIndex) RecordCampaign(id string, seed int64, playerFaction string) {
	if s == nil || s.closed.Load() {
		return
	}
	r := campaignRow{
		ID:            id,
		Seed:          seed,
		PlayerFaction: playerFaction,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqCampaign, campaign: r}:
	default:
	}
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.CampaignV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Seq:       snap.Header.Seq,
		Path:      path,
		Seed:      snap.Seed,
		Round:     snap.Round,
		Chunks:    len(snap.Chunks),
		Conquered: len(snap.Conquered),
		GameOver:  snap.GameOver,
	}
	select {
	case s.ch <- req{kind: reqSnapshot, campaignID: snap.Header.CampaignID, snapshot: r}:
	default:
	}
}

// UpsertCatalogs stores the catalog content and digests the server is
// running with, so operators can check what a given index was built under.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, factions *encounters.Factions, deck *encounters.Deck, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv

	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "factions.json")); err == nil && len(b) > 0 {
			rows = append(rows, kv{name: "factions", digest: factions.Digest, json: b})
		}
	}
	{
		// Canonicalize the deck to stable JSON for easier querying.
		defs := make([]encounters.ArchetypeDef, 0, len(deck.ByID))
		for _, def := range deck.ByID {
			defs = append(defs, def)
		}
		sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
		if b, _ := json.Marshal(defs); len(b) > 0 {
			rows = append(rows, kv{name: "encounters", digest: deck.Digest, json: b})
		}
	}
	{
		// Tuning: store the values we actually apply (canonical JSON).
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertCommand, _ := s.db.Prepare(`INSERT OR REPLACE INTO commands(campaign_id,seq,cmd,block,ok,code,lost,digest,raw_json) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertCampaign, _ := s.db.Prepare(`INSERT OR REPLACE INTO campaigns(id,seed,player_faction,created_at) VALUES(?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(campaign_id,seq,path,seed,round,chunks,conquered,game_over) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertCommand != nil {
			_ = insertCommand.Close()
		}
		if insertCampaign != nil {
			_ = insertCampaign.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 512
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqCommand:
			e := r.command
			raw, _ := json.Marshal(e)
			ok := 0
			if e.OK {
				ok = 1
			}
			if insertCommand != nil {
				if _, err := tx.Stmt(insertCommand).Exec(
					r.campaignID,
					int64(e.Seq),
					e.Cmd.Cmd,
					int64(e.Cmd.Block),
					ok,
					e.Code,
					e.Lost,
					e.Digest,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqCampaign:
			c := r.campaign
			if insertCampaign != nil {
				if _, err := tx.Stmt(insertCampaign).Exec(c.ID, c.Seed, c.PlayerFaction, c.CreatedAt); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			over := 0
			if sn.GameOver {
				over = 1
			}
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(
					r.campaignID,
					int64(sn.Seq),
					sn.Path,
					sn.Seed,
					sn.Round,
					sn.Chunks,
					sn.Conquered,
					over,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
