package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/cometbft/cometbft/abci/server"

	"veilpoker/internal/app"
)

var cli struct {
	Config    string `short:"c" default:"vpd.hcl" help:"Path to HCL configuration file"`
	Home      string `help:"App home directory, state lives under <home>/app (overrides config)"`
	Addr      string `short:"a" help:"ABCI listen address (overrides config)"`
	Transport string `short:"t" help:"ABCI transport, socket or grpc (overrides config)"`
	LogLevel  string `short:"l" help:"Log level (overrides config)"`
}

func main() {
	ctx := kong.Parse(&cli)

	cfg, err := LoadNodeConfig(cli.Config)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		ctx.Exit(1)
	}
	if cli.Home != "" {
		cfg.Node.Home = cli.Home
	}
	if cli.Addr != "" {
		cfg.Node.Addr = cli.Addr
	}
	if cli.Transport != "" {
		cfg.Node.Transport = cli.Transport
	}
	if cli.LogLevel != "" {
		cfg.Node.LogLevel = cli.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		ctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Node.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	a, err := app.New(cfg.Node.Home, logger)
	if err != nil {
		logger.Error("init app", "error", err)
		ctx.Exit(1)
	}

	srv, err := server.NewServer(cfg.Node.Addr, cfg.Node.Transport, a)
	if err != nil {
		logger.Error("build abci server", "error", err)
		ctx.Exit(1)
	}
	if err := srv.Start(); err != nil {
		logger.Error("start abci server", "error", err)
		ctx.Exit(1)
	}
	defer func() { _ = srv.Stop() }()

	logger.Info("vpd listening",
		"addr", cfg.Node.Addr,
		"transport", cfg.Node.Transport,
		"home", cfg.Node.Home)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")
}
