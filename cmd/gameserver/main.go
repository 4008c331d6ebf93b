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

	"github.com/dyewars/tileserver/internal/admission"
	"github.com/dyewars/tileserver/internal/bufpool"
	"github.com/dyewars/tileserver/internal/config"
	"github.com/dyewars/tileserver/internal/gameloop"
	"github.com/dyewars/tileserver/internal/player"
	"github.com/dyewars/tileserver/internal/protocol"
	"github.com/dyewars/tileserver/internal/server"
	"github.com/dyewars/tileserver/internal/telemetry"
	"github.com/dyewars/tileserver/internal/world"
)

const defaultConfigPath = "config/gameserver.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to the YAML config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadGame(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("tileserver starting", "addr", cfg.Addr(), "tick_rate_hz", cfg.TickRate, "log_level", cfg.LogLevel)

	w := world.New(cfg.MapWidth, cfg.MapHeight, cfg.CellSize, cfg.ViewRange)
	players := player.NewRegistry()
	actions := gameloop.NewActionQueue()
	conns := server.NewRegistry()

	limiter := admission.New(admission.Config{
		RateWindow:      cfg.RateWindow(),
		RateMax:         cfg.RateMax,
		PerIPCap:        cfg.PerIPCap,
		StrikeThreshold: cfg.StrikeThreshold,
		BanDuration:     cfg.BanDuration(),
	})

	sampler := telemetry.New(time.Now())
	readPool := bufpool.New(protocol.HeaderSize + protocol.MaxPayload).WithRecorder(sampler)
	sendPool := bufpool.New(256).WithRecorder(sampler)

	deps := &server.Deps{
		World:     w,
		Players:   players,
		Actions:   actions,
		Conns:     conns,
		Admission: limiter,
		ReadPool:  readPool,
		SendPool:  sendPool,
		Cfg:       cfg,
	}

	loop := &gameloop.Loop{
		World:             w,
		Players:           players,
		Actions:           actions,
		Sender:            conns,
		Pool:              sendPool,
		Sampler:           sampler,
		Logger:            logger,
		TickPeriod:        cfg.TickPeriod(),
		PingIntervalTicks: cfg.PingIntervalTicks,
		ActiveConnections: conns.Count,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		loop.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return server.AcceptLoop(gctx, deps)
	})

	g.Go(func() error {
		<-gctx.Done()
		conns.CloseAll()
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server group: %w", err)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
