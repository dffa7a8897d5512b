package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sxweetlollipop2912/racing-arena/internal/arena"
	"github.com/sxweetlollipop2912/racing-arena/internal/config"
	"github.com/sxweetlollipop2912/racing-arena/internal/game"
)

const ConfigPath = "config/arenaserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	defaults := config.DefaultArenaServer()

	var (
		configPath  = flag.String("config", ConfigPath, "path to YAML config file")
		addr        = flag.String("addr", defaults.Addr, "TCP listen address")
		wsAddr      = flag.String("ws-addr", defaults.WSAddr, "WebSocket listen address (empty disables)")
		maxPlayers  = flag.Int("max-players", defaults.MaxPlayers, "lobby capacity")
		raceLength  = flag.Int("race-length", defaults.RaceLength, "positions needed to win")
		answerTime  = flag.Int("answer-time", defaults.AnswerTime, "answer window in seconds")
		prepareTime = flag.Int("prepare-time", defaults.PrepareTime, "pause before each question in seconds")
		seed        = flag.Uint64("seed", defaults.Seed, "question generator seed (0 seeds from entropy)")
		debug       = flag.Bool("debug", defaults.Debug, "enable debug logging")
	)
	flag.Parse()

	cfg, err := config.LoadArenaServer(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Flags given on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "ws-addr":
			cfg.WSAddr = *wsAddr
		case "max-players":
			cfg.MaxPlayers = *maxPlayers
		case "race-length":
			cfg.RaceLength = *raceLength
		case "answer-time":
			cfg.AnswerTime = *answerTime
		case "prepare-time":
			cfg.PrepareTime = *prepareTime
		case "seed":
			cfg.Seed = *seed
		case "debug":
			cfg.Debug = *debug
		}
	})

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Configure slog
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))

	slog.Info("racing arena server starting")
	slog.Info("config loaded",
		"addr", cfg.Addr,
		"max_players", cfg.MaxPlayers,
		"race_length", cfg.RaceLength,
		"answer_time", cfg.AnswerTime,
		"prepare_time", cfg.PrepareTime,
	)

	clients := arena.NewClientManager()

	ctrl := game.New(game.Config{
		MaxPlayers:  cfg.MaxPlayers,
		RaceLength:  cfg.RaceLength,
		AnswerTime:  time.Duration(cfg.AnswerTime) * time.Second,
		PrepareTime: time.Duration(cfg.PrepareTime) * time.Second,
		OperandMin:  cfg.OperandMin,
		OperandMax:  cfg.OperandMax,
		Seed:        cfg.Seed,
	}, clients)
	ctrl.Start(ctx)

	opts := arena.Options{
		SendQueueSize: cfg.SendQueueSize,
		WriteTimeout:  time.Duration(cfg.WriteTimeout) * time.Second,
	}
	if cfg.FloodProtection {
		opts.FloodLimit = rate.Limit(cfg.MessageRate)
		opts.FloodBurst = cfg.MessageBurst
	}
	handler := arena.NewHandler(ctrl, clients, opts)

	srv := arena.NewServer(cfg.Addr, handler)

	// Run the TCP server and the optional WebSocket server in parallel
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting arena server", "addr", cfg.Addr)
		if err := srv.Run(gctx); err != nil {
			return fmt.Errorf("arena server: %w", err)
		}
		return nil
	})

	if cfg.WSAddr != "" {
		wsSrv := arena.NewWSServer(cfg.WSAddr, handler)
		g.Go(func() error {
			slog.Info("starting websocket server", "addr", cfg.WSAddr)
			if err := wsSrv.Run(gctx); err != nil {
				return fmt.Errorf("websocket server: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
