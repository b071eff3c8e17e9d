package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/conorfennell/flashdeck/internal/cli"
	"github.com/conorfennell/flashdeck/internal/config"
	"github.com/conorfennell/flashdeck/internal/kvstore"
	"github.com/conorfennell/flashdeck/internal/persist"
	"github.com/conorfennell/flashdeck/internal/storage"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("flashdeck", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	config.RegisterFlags(flags)
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: flashdeck [flags] <command> [args]")
		fmt.Fprintln(os.Stderr, "\nCommands:")
		cli.Usage(os.Stderr)
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flashdeck: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	db, err := storage.Open(cfg.Storage.Path, cfg.Storage.QuotaBytes)
	if err != nil {
		logger.Error("failed to open storage", "path", cfg.Storage.Path, "error", err)
		return 1
	}
	defer db.Close()
	logger.Debug("storage opened", "path", cfg.Storage.Path, "quota_bytes", cfg.Storage.QuotaBytes)

	bridge := persist.NewBridge(kvstore.New(db, kvstore.WithLogger(logger)), logger)
	runner := &cli.Runner{
		Store:    bridge.Restore(),
		Bridge:   bridge,
		ReposDir: cfg.Import.ReposDir,
		Out:      os.Stdout,
		Progress: os.Stderr,
	}

	if err := runner.Run(flags.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "flashdeck: %v\n", err)
		if errors.Is(err, cli.ErrUsage) {
			flags.Usage()
			return 2
		}
		return 1
	}
	return 0
}
