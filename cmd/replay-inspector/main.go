package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joeycumines/replay-inspector/internal/command"
	"github.com/joeycumines/replay-inspector/internal/config"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		return err
	}

	registry := command.NewRegistry()
	registry.Register(command.NewHelpCommand(registry))
	registry.Register(command.NewVersionCommand(version))
	registry.Register(command.NewConfigCommand(cfg, configPath))
	registry.Register(command.NewRunCommand(cfg))
	registry.Register(command.NewStateCommand(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return registry.Dispatch(ctx, os.Args[1:], os.Stdout, os.Stderr)
}
