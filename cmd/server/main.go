package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"warplots.gg/internal/persistence/indexdb"
	persistlog "warplots.gg/internal/persistence/log"
	"warplots.gg/internal/persistence/snapshot"
	"warplots.gg/internal/sim/campaign"
	"warplots.gg/internal/sim/encounters"
	"warplots.gg/internal/sim/tuning"
	"warplots.gg/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		campaignID = flag.String("campaign", "campaign_1", "campaign id (directory name under -data)")
		seed       = flag.Int64("seed", 1337, "map seed (used only when starting a fresh campaign)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite command/snapshot index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	factions, deck, err := encounters.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	campaignDir := filepath.Join(*dataDir, "campaigns", *campaignID)
	_ = os.MkdirAll(campaignDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		latest, err := snapshot.LatestPath(filepath.Join(campaignDir, "snapshots"))
		if err != nil {
			logger.Fatalf("scan snapshots: %v", err)
		}
		snapshotToLoad = latest
	}

	tune, tuneErr := tuning.Load(tp)
	if tuneErr != nil {
		if snapshotToLoad != "" && os.IsNotExist(tuneErr) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", tuneErr)
		}
	}

	// Optional: read-model index backend (does not affect sim determinism).
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(campaignDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index backend: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, factions, deck, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	cfg := campaign.Config{
		ID:                    *campaignID,
		Seed:                  *seed,
		CameraMargin:          tune.CameraMarginCells,
		SnapshotEveryCommands: tune.SnapshotEveryCommands,
		VisibleBlockCapacity:  tune.VisibleBlockCapacity,
	}

	var c *campaign.Campaign
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.CampaignID != "" && snap.Header.CampaignID != *campaignID {
			logger.Fatalf("snapshot campaign id mismatch: flag=%s snap=%s", *campaignID, snap.Header.CampaignID)
		}
		c, err = campaign.NewFromSnapshot(cfg, factions, deck, snap)
		if err != nil {
			logger.Fatalf("restore campaign: %v", err)
		}
		logger.Printf("resumed from snapshot=%s seq=%d round=%d", filepath.Base(snapshotToLoad), c.Seq(), c.World().Round())
	} else {
		c, err = campaign.New(cfg, factions, deck)
		if err != nil {
			logger.Fatalf("campaign: %v", err)
		}
	}
	idx.RecordCampaign(c.ID(), *seed, string(factions.Player))

	ctx, cancel := signalContext()
	defer cancel()

	cmdLog := persistlog.NewCommandLogger(campaignDir)
	defer cmdLog.Close()
	c.SetCommandLogger(multiCommandLogger{campaignID: c.ID(), a: cmdLog, b: idx})

	// Snapshot writer.
	snapCh := make(chan snapshot.CampaignV1, 2)
	c.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(campaignDir, "snapshots", snapshot.FileName(snap.Header.Seq))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				idx.RecordSnapshot(path, snap)
			}
		}
	}()

	go func() {
		if err := c.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("campaign stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := c.Metrics()
		id := c.ID()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP warplots_campaign_seq Last applied command sequence number.\n")
		fmt.Fprintf(rw, "# TYPE warplots_campaign_seq gauge\n")
		fmt.Fprintf(rw, "warplots_campaign_seq{campaign=%q} %d\n", id, m.Seq)

		fmt.Fprintf(rw, "# HELP warplots_campaign_round Current campaign round.\n")
		fmt.Fprintf(rw, "# TYPE warplots_campaign_round gauge\n")
		fmt.Fprintf(rw, "warplots_campaign_round{campaign=%q} %d\n", id, m.Round)

		fmt.Fprintf(rw, "# HELP warplots_campaign_clients Current number of connected clients.\n")
		fmt.Fprintf(rw, "# TYPE warplots_campaign_clients gauge\n")
		fmt.Fprintf(rw, "warplots_campaign_clients{campaign=%q} %d\n", id, m.Clients)

		fmt.Fprintf(rw, "# HELP warplots_campaign_loaded_chunks Loaded chunk count.\n")
		fmt.Fprintf(rw, "# TYPE warplots_campaign_loaded_chunks gauge\n")
		fmt.Fprintf(rw, "warplots_campaign_loaded_chunks{campaign=%q} %d\n", id, m.LoadedChunks)

		fmt.Fprintf(rw, "# HELP warplots_campaign_blocks Generated block count.\n")
		fmt.Fprintf(rw, "# TYPE warplots_campaign_blocks gauge\n")
		fmt.Fprintf(rw, "warplots_campaign_blocks{campaign=%q} %d\n", id, m.Blocks)

		fmt.Fprintf(rw, "# HELP warplots_campaign_conquered Conquered block count.\n")
		fmt.Fprintf(rw, "# TYPE warplots_campaign_conquered gauge\n")
		fmt.Fprintf(rw, "warplots_campaign_conquered{campaign=%q} %d\n", id, m.Conquered)

		fmt.Fprintf(rw, "# HELP warplots_campaign_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE warplots_campaign_queue_depth gauge\n")
		fmt.Fprintf(rw, "warplots_campaign_queue_depth{campaign=%q,queue=%q} %d\n", id, "cmds", m.QueueDepths.Cmds)
		fmt.Fprintf(rw, "warplots_campaign_queue_depth{campaign=%q,queue=%q} %d\n", id, "attach", m.QueueDepths.Attach)
		fmt.Fprintf(rw, "warplots_campaign_queue_depth{campaign=%q,queue=%q} %d\n", id, "leave", m.QueueDepths.Leave)

		fmt.Fprintf(rw, "# HELP warplots_campaign_apply_ms Last command apply duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE warplots_campaign_apply_ms gauge\n")
		fmt.Fprintf(rw, "warplots_campaign_apply_ms{campaign=%q} %.3f\n", id, m.ApplyMS)

		over := 0
		if m.GameOver {
			over = 1
		}
		fmt.Fprintf(rw, "# HELP warplots_campaign_over Whether the campaign has ended.\n")
		fmt.Fprintf(rw, "# TYPE warplots_campaign_over gauge\n")
		fmt.Fprintf(rw, "warplots_campaign_over{campaign=%q} %d\n", id, over)
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(c, tune.RateLimits, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

type multiCommandLogger struct {
	campaignID string
	a          campaign.CommandLogger
	b          *indexdb.SQLiteIndex
}

func (m multiCommandLogger) WriteCommand(entry campaign.CommandLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteCommand(entry)
	}
	if m.b != nil {
		_ = m.b.WriteCommand(m.campaignID, entry)
	}
	return nil
}
