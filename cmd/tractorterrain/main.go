package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/orchardguard/tractor/server"
	"github.com/orchardguard/tractor/server/cmd/builtin"
	"github.com/orchardguard/tractor/server/console"
)

func main() {
	configPath := flag.String("config", "config.toml", "path of the TOML or YAML configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if err := run(*configPath, log); err != nil {
		log.Error("Server stopped with an error.", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, log *slog.Logger) error {
	uc, err := server.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	conf, err := uc.Config(log)
	if err != nil {
		return fmt.Errorf("convert config: %w", err)
	}
	srv, err := conf.New()
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	builtin.Register(srv)
	if err := srv.Listen(); err != nil {
		_ = srv.Close()
		return err
	}
	log.Info("Terrain server running.", "seed", uc.World.Seed, "chunks", srv.World().ChunkCount())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go console.New(srv, log).Run(ctx)

	select {
	case <-ctx.Done():
	case <-srv.Done():
	}
	return srv.Close()
}
