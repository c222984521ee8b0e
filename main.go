package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pixscale/config"
	"pixscale/logger"
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	opts, err := parseFlags(args, &cfg, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if opts.showVersion {
		fmt.Println(versionString())
		return 0
	}
	if len(args) == 0 && cfg.InputDir == "" && cfg.OutputDir == "" {
		parseFlags([]string{"-h"}, &cfg, os.Stderr)
		return 2
	}

	if err := logger.Init(cfg.LogFile, true, logger.ParseLevel(cfg.LogLevel)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logger.Close()
	logger.Infof("%s starting...", versionString())

	if opts.history {
		if err := showHistory(cfg, os.Stdout); err != nil {
			logger.Errorf("%v", err)
			return 1
		}
		return 0
	}

	if err := cfg.Validate(); err != nil {
		logger.Errorf("%v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := run(ctx, cfg, os.Stdout)
	if err != nil {
		logger.Errorf("%v", err)
		return 1
	}
	if ctx.Err() != nil {
		logger.Warn("Interrupted; remaining conversions were not run")
		return 130
	}
	if cfg.Strict && res.Summary.FailedCount() > 0 {
		return 1
	}
	return 0
}
