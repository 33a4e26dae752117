// Command realmsim runs the territorial economy simulation.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/realmsim/internal/api"
	"github.com/talgya/realmsim/internal/config"
	"github.com/talgya/realmsim/internal/econ"
	"github.com/talgya/realmsim/internal/engine"
	"github.com/talgya/realmsim/internal/persistence"
	"github.com/talgya/realmsim/internal/registry"
	"github.com/talgya/realmsim/internal/world"
)

func main() {
	var (
		seed       = flag.Int64("seed", 42, "world generation seed (0 = random)")
		dbPath     = flag.String("db", "data/realmsim.db", "SQLite database path")
		apiPort    = flag.Int("port", 8080, "HTTP API port")
		tuningPath = flag.String("tuning", "", "optional tuning.yaml path")
		days       = flag.Int("days", 0, "headless: run N days at full speed and exit")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Realmsim — Territorial Economy Simulation")

	// ── Tuning ────────────────────────────────────────────────────────
	tun := config.Default()
	if *tuningPath != "" {
		var err error
		tun, err = config.Load(*tuningPath)
		if err != nil {
			slog.Error("failed to load tuning", "path", *tuningPath, "error", err)
			os.Exit(1)
		}
		slog.Info("tuning loaded", "path", *tuningPath)
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll("data", 0755)
	db, err := persistence.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", *dbPath)

	// ── Registry ──────────────────────────────────────────────────────
	reg, err := registry.Build()
	if err != nil {
		slog.Error("registry build failed", "error", err)
		os.Exit(1)
	}
	slog.Info("registry ready",
		"goods", reg.GoodCount(),
		"facilities", len(reg.Facilities),
		"staples", len(reg.Staples),
	)

	// ── World (regenerated from seed; resume reuses the stored one) ──
	resume := false
	worldSeed := *seed
	if stored, err := db.Seed(); err == nil {
		worldSeed = stored
		resume = true
		slog.Info("found saved run, resuming", "seed", worldSeed)
	}

	cfg := world.DefaultGenConfig()
	cfg.Seed = worldSeed
	w := world.Generate(cfg)
	slog.Info("world generated",
		"counties", len(w.Counties),
		"provinces", len(w.Provinces),
		"realms", len(w.Realms),
	)

	// ── Economic state ────────────────────────────────────────────────
	rng := rand.New(rand.NewSource(worldSeed + 7))
	state := econ.NewState(w, reg, tun, rng)

	var startDay uint64
	if resume {
		startDay, err = db.LoadState(state)
		if err != nil {
			slog.Error("failed to load state", "error", err)
			os.Exit(1)
		}
	} else {
		runID, err := db.InitRun(worldSeed)
		if err != nil {
			slog.Error("failed to init run", "error", err)
			os.Exit(1)
		}
		slog.Info("new run started", "run_id", runID, "seed", worldSeed)
	}

	// ── Simulation ────────────────────────────────────────────────────
	sim := engine.NewSimulation(w, state)
	sim.LastTick = startDay

	eng := engine.NewEngine(tun.DaysPerMonth, tun.DaysPerYear)
	eng.Tick = startDay
	eng.Interval = intervalFromMs(tun.TickIntervalMs)

	eng.OnDay = func(day uint64) {
		sim.TickDay(day)
		if snap := sim.Analytics.Latest(); snap != nil {
			if err := db.SaveSnapshot(snap); err != nil {
				slog.Error("snapshot save failed", "error", err)
			}
		}
		if err := db.SaveState(state, day); err != nil {
			slog.Error("daily save failed", "error", err)
		}
	}
	eng.OnMonth = sim.TickMonth
	eng.OnYear = sim.TickYear

	// ── Headless mode ─────────────────────────────────────────────────
	if *days > 0 {
		for i := 0; i < *days; i++ {
			eng.Step()
		}
		snap := sim.Analytics.Latest()
		fmt.Printf("Ran %d days. Population %s, avg satisfaction %.3f.\n",
			*days,
			humanize.Commaf(snap.TotalPopulation),
			snap.SatisfactionAvg)
		return
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("REALMSIM_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("REALMSIM_ADMIN_KEY not set — admin POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Port:     *apiPort,
		AdminKey: adminKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("\nRealm ready: %s people across %d counties, %d provinces, %d realms.\n",
		humanize.Commaf(state.TotalPopulation()),
		len(state.Counties), len(state.Provinces), len(state.Realms))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", *apiPort)
	if startDay > 0 {
		fmt.Printf("Resuming from day %d (%s)\n", startDay, eng.SimTime(startDay))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run()

	slog.Info("final save...")
	if err := db.SaveState(state, sim.CurrentTick()); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("Simulation stopped. State saved.")
}

func intervalFromMs(ms int) time.Duration {
	if ms <= 0 {
		ms = 1000
	}
	return time.Duration(ms) * time.Millisecond
}
