package main

import (
	"flag"
	"fmt"
	"io"

	"pixscale/config"
	"pixscale/scale"
)

// cliOptions are flags that do not live in config.Config
type cliOptions struct {
	showVersion bool
	history     bool
}

const usageHeader = `Usage: pixscale -i <input folder> -o <output folder> [options]

Converts every vector file in the input folder to PNG at each screen density
and writes the results to <output>/<prefix><density>/<name>.png.

Options:
`

// parseFlags applies command-line flags on top of cfg. Only flags that were
// given override values loaded from the environment.
func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (cliOptions, error) {
	var (
		opts     cliOptions
		input    string
		output   string
		fileType string
		baseSize int
		workers  int
		prefix   string
		scales   string
		dryRun   bool
		planFile string
		publish  string
		strict   bool
		dataDir  string
		logFile  string
		logLevel string
	)

	fs := flag.NewFlagSet("pixscale", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usageHeader)
		fs.PrintDefaults()
	}

	fs.StringVar(&input, "i", "", "input folder (shorthand)")
	fs.StringVar(&input, "input", "", "input folder with the source vector files")
	fs.StringVar(&output, "o", "", "output folder (shorthand)")
	fs.StringVar(&output, "output", "", "output folder for the density folders")
	fs.StringVar(&fileType, "f", cfg.FileType, "source file type (shorthand)")
	fs.StringVar(&fileType, "filetype", cfg.FileType, "source file type: svg, pdf or eps")
	fs.IntVar(&baseSize, "b", cfg.BaseSize, "base size in pixels (shorthand)")
	fs.IntVar(&baseSize, "basesize", cfg.BaseSize, "base size in pixels at multiplier 1")
	fs.IntVar(&workers, "j", cfg.Workers, "parallel conversions (shorthand)")
	fs.IntVar(&workers, "workers", cfg.Workers, "parallel conversions; 0 uses one per CPU")
	fs.StringVar(&prefix, "prefix", cfg.SizePrefix, "density folder prefix")
	fs.StringVar(&scales, "scales", scale.Format(cfg.Scales), "density table as name=multiplier pairs")
	fs.BoolVar(&dryRun, "dry-run", false, "build the job list without converting")
	fs.StringVar(&planFile, "plan", "", "write the job list as JSON to this file")
	fs.StringVar(&publish, "publish", cfg.Publish, "upload results to file://, s3://, gs:// or sftp:// target")
	fs.BoolVar(&strict, "strict", false, "exit with status 1 when any conversion failed")
	fs.StringVar(&dataDir, "data-dir", cfg.DataDir, "folder for the run ledger; empty disables it")
	fs.StringVar(&logFile, "log-file", cfg.LogFile, "also write logs to this file")
	fs.StringVar(&logLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&opts.history, "history", false, "list recorded runs from the ledger and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	var scaleErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i", "input":
			cfg.InputDir = input
		case "o", "output":
			cfg.OutputDir = output
		case "f", "filetype":
			cfg.FileType = fileType
		case "b", "basesize":
			cfg.BaseSize = baseSize
		case "j", "workers":
			cfg.Workers = workers
		case "prefix":
			cfg.SizePrefix = prefix
		case "scales":
			parsed, err := scale.Parse(scales)
			if err != nil {
				scaleErr = fmt.Errorf("--scales: %w", err)
				return
			}
			cfg.Scales = parsed
		case "dry-run":
			cfg.DryRun = dryRun
		case "plan":
			cfg.PlanFile = planFile
		case "publish":
			cfg.Publish = publish
		case "strict":
			cfg.Strict = strict
		case "data-dir":
			cfg.DataDir = dataDir
		case "log-file":
			cfg.LogFile = logFile
		case "log-level":
			cfg.LogLevel = logLevel
		}
	})
	return opts, scaleErr
}
