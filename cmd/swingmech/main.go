// Command swingmech computes baseball swing joint angles from motion
// capture files.
//
// Subcommands:
//
//	compute    run the pipeline once and write the combined angle CSV
//	evaluate   compare the computed angles against the reference export
//	serve      run the HTTP API (with optional dataset watcher)
//	version    print version information
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/obplab/swingmech/internal/config"
	"github.com/obplab/swingmech/internal/log"
	"github.com/obplab/swingmech/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}
	cmd, rest := args[0], args[1:]

	if cmd == "version" || cmd == "-version" || cmd == "--version" {
		fmt.Printf("swingmech %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		return 0
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file (YAML)")
	if err := fs.Parse(rest); err != nil {
		return 2
	}

	// Safe defaults until the config is loaded.
	log.Configure(log.Config{Level: "info", Service: "swingmech", Version: version.Version})
	logger := log.WithComponent("main")

	cfg, err := config.NewLoader(*configPath, version.Version).Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
		return 1
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Service: cfg.LogService, Version: cfg.Version})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "compute":
		err = runCompute(ctx, cfg)
	case "evaluate":
		err = runEvaluate(cfg)
	case "serve":
		err = runServe(ctx, cfg, *configPath)
	default:
		usage()
		return 2
	}
	if err != nil {
		logger.Error().Err(err).Str("command", cmd).Msg("command failed")
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: swingmech <compute|evaluate|serve|version> [-config path]")
}
