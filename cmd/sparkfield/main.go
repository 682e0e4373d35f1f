// Command sparkfield runs the autonomous foraging simulation.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sparkfield/sparkfield/internal/api"
	"github.com/sparkfield/sparkfield/internal/config"
	"github.com/sparkfield/sparkfield/internal/entity"
	"github.com/sparkfield/sparkfield/internal/inference"
	"github.com/sparkfield/sparkfield/internal/journal"
	"github.com/sparkfield/sparkfield/internal/sim"
	"github.com/sparkfield/sparkfield/internal/world"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults are embedded)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	setupLogging(cfg.Logging)
	slog.Info("Sparkfield — autonomous foraging simulation")

	seed := cfg.World.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// ── World ─────────────────────────────────────────────────────────
	genCfg := world.GenConfig{
		Cols:     cfg.World.Cols,
		Rows:     cfg.World.Rows,
		CellSize: cfg.World.CellSize,
		Seed:     seed,
	}
	grid := world.Generate(genCfg)
	for t, n := range grid.TerrainCounts() {
		slog.Info("terrain", "type", world.TerrainName(t), "cells", n)
	}

	// ── Inference backend ─────────────────────────────────────────────
	var backend inference.Backend = inference.NewLocalStrategy()
	if cfg.Inference.Enabled {
		client := inference.NewClient(inference.ClientConfig{
			APIKey:    cfg.Inference.APIKey(),
			BaseURL:   cfg.Inference.BaseURL,
			Model:     cfg.Inference.Model,
			MaxPerMin: cfg.Inference.MaxPerMin,
			Timeout:   cfg.Inference.Timeout(),
		})
		if remote := inference.NewRemote(client); remote != nil {
			backend = &inference.Fallback{Primary: remote, Secondary: backend}
			slog.Info("remote inference enabled", "model", cfg.Inference.Model)
		} else {
			slog.Warn("no API key or relay configured, using local inference strategy")
		}
	} else {
		slog.Info("remote inference disabled, using local strategy")
	}
	svc := inference.NewService(backend)

	// ── Simulation ────────────────────────────────────────────────────
	simCfg := sim.Config{
		InitialPopulation: cfg.Population.Initial,
		PopulationControl: cfg.Population.ControlEnabled,
		HomeAdvantage:     cfg.Competition.HomeAdvantage,
		StatsInterval:     cfg.Stats.IntervalTicks,
		Spawn: world.SpawnConfig{
			BaseRate:      cfg.Resources.BaseRate,
			PerEntityRate: cfg.Resources.PerEntityRate,
			FoodQuantity:  cfg.Resources.FoodQuantity,
			EnergyQty:     cfg.Resources.EnergyQty,
			FoodCap:       cfg.Resources.FoodCap,
			EnergyCap:     cfg.Resources.EnergyCap,
		},
		Entity: entity.Config{
			InitialFood:    cfg.Entity.InitialFood,
			MaxFood:        cfg.Entity.MaxFood,
			InitialEnergy:  cfg.Entity.InitialEnergy,
			MaxEnergy:      cfg.Entity.MaxEnergy,
			MemoryCapacity: cfg.Entity.MemoryCapacity,
		},
	}
	simulation := sim.NewSimulation(grid, simCfg, svc, seed)

	// ── Journal ───────────────────────────────────────────────────────
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path, seed)
		if err != nil {
			slog.Error("failed to open journal", "error", err)
			os.Exit(1)
		}
		defer j.Close()
		svc.OnDecision = j.RecordInference
		simulation.OnStats = j.RecordStats
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := sim.NewEngine()
	eng.Interval = time.Duration(cfg.Engine.TickIntervalMS) * time.Millisecond
	eng.Dt = cfg.Engine.Dt
	eng.SetSpeed(cfg.Engine.Speed)
	eng.OnTick = simulation.Tick

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("SPARKFIELD_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("SPARKFIELD_ADMIN_KEY not set, admin POST endpoints disabled")
	}
	apiServer := &api.Server{
		Sim:            simulation,
		Eng:            eng,
		Infer:          svc,
		Listen:         cfg.API.Listen,
		AdminKey:       adminKey,
		StreamInterval: time.Duration(cfg.API.StreamInterval) * time.Millisecond,
	}
	apiServer.Start(api.NewRateLimiter(cfg.API.RatePerMin, time.Minute))

	// ── Run ───────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("Sparkfield is alive: %d entities on a %dx%d grid (seed %d).\n",
		simulation.Population(), cfg.World.Cols, cfg.World.Rows, seed)
	fmt.Printf("API: http://localhost%s/api/v1/status\n", cfg.API.Listen)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run()

	if cfg.Stats.CSVPath != "" {
		f, err := os.Create(cfg.Stats.CSVPath)
		if err != nil {
			slog.Error("create stats export", "error", err)
		} else {
			if err := sim.ExportStatsCSV(f, simulation.StatsRows()); err != nil {
				slog.Error("export stats", "error", err)
			}
			f.Close()
			slog.Info("stats exported", "path", cfg.Stats.CSVPath)
		}
	}

	fmt.Println("Simulation stopped.")
}

func setupLogging(cfg config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
