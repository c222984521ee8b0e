package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"pixscale/batch"
	"pixscale/config"
	"pixscale/encoder"
	"pixscale/job"
	"pixscale/ledger"
	"pixscale/logger"
	"pixscale/models"
	"pixscale/progress"
	writerbackends "pixscale/writerBackends"
)

// ledger records older than this are dropped when a run opens the ledger
const ledgerRetention = 30 * 24 * time.Hour

// runResult is what a finished run reports back to main
type runResult struct {
	Summary   models.BatchSummary
	Jobs      []models.JobDescriptor
	Published writerbackends.Result
	RunID     string
}

// run performs one batch: discover, build, convert, record, publish.
// Startup problems are returned as errors; failed conversions are not.
func run(ctx context.Context, cfg config.Config, out io.Writer) (runResult, error) {
	var res runResult

	registry := encoder.NewRegistry()
	for fileType, command := range cfg.Commands {
		if err := registry.Set(fileType, command); err != nil {
			return res, fmt.Errorf("command override for %s: %w", fileType, err)
		}
	}
	invoker, err := registry.NewInvoker(cfg.FileType)
	if err != nil {
		return res, err
	}

	var target writerbackends.Target
	if cfg.Publish != "" && !cfg.DryRun {
		if target, err = writerbackends.ParseTarget(cfg.Publish); err != nil {
			return res, err
		}
	}

	if err := cfg.ResolvePaths(); err != nil {
		return res, err
	}
	files, err := job.Discover(cfg.InputDir, cfg.FileType)
	if err != nil {
		return res, err
	}
	logger.Infof("Found %d files of type %s", len(files), cfg.FileType)
	if len(files) == 0 {
		logger.Warnf("No .%s files found in %s", cfg.FileType, cfg.InputDir)
	}
	job.SniffSources(cfg.InputDir, cfg.FileType, files)

	layout := job.Layout{
		InputRoot:  cfg.InputDir,
		OutputRoot: cfg.OutputDir,
		SizePrefix: cfg.SizePrefix,
		FileType:   cfg.FileType,
	}
	jobs, err := job.Build(files, cfg.Scales, cfg.BaseSize, layout)
	if err != nil {
		return res, err
	}
	res.Jobs = jobs
	warnCollisions(jobs)

	if cfg.PlanFile != "" {
		plan := job.Plan{
			CreatedAt: time.Now().UTC(),
			Layout:    layout,
			BaseSize:  cfg.BaseSize,
			Scales:    cfg.Scales,
			Jobs:      jobs,
		}
		if err := job.WritePlan(cfg.PlanFile, plan); err != nil {
			return res, err
		}
		logger.Infof("Wrote plan with %d jobs to %s", len(jobs), cfg.PlanFile)
	}
	if cfg.DryRun {
		logger.Infof("Dry run: %d conversions planned, nothing converted", len(jobs))
		res.Summary = models.BatchSummary{TotalJobs: len(jobs)}
		return res, nil
	}

	if err := job.PrepareOutputDirs(layout, cfg.Scales); err != nil {
		return res, err
	}

	led := openLedger(cfg)
	if led != nil {
		defer led.Close()
		res.RunID = beginRun(led, cfg, len(jobs))
	}

	limit := cfg.Workers
	if limit <= 0 {
		limit = batch.DefaultLimit()
	}
	if limit > len(jobs) && len(jobs) > 0 {
		limit = len(jobs)
	}
	logger.Infof("Scheduled %d resizes, always %d in parallel", len(jobs), limit)

	reporter := progress.New(out, len(jobs))
	var produced []string
	ledgerErrs := 0
	summary := batch.Run(ctx, jobs, limit, invoker, func(o models.JobOutcome) {
		reporter.Done(o)
		if !o.Failed() {
			produced = append(produced, o.Descriptor.DestinationPath)
		}
		if res.RunID != "" {
			if err := led.RecordOutcome(res.RunID, o); err != nil {
				ledgerErrs++
				if ledgerErrs == 1 {
					logger.Warnf("Could not record outcome in ledger: %v", err)
				}
			}
		}
	})
	res.Summary = summary

	if res.RunID != "" {
		if err := led.FinishRun(res.RunID, summary); err != nil {
			logger.Warnf("Could not finish ledger run %s: %v", res.RunID, err)
		}
	}

	reportFailures(summary)
	logger.Successf("%s", summary.String())

	if cfg.Publish != "" && len(produced) > 0 {
		sort.Strings(produced)
		res.Published = publish(ctx, target, cfg.OutputDir, produced)
	}
	return res, nil
}

func warnCollisions(jobs []models.JobDescriptor) {
	collisions := job.Collisions(jobs)
	dests := make([]string, 0, len(collisions))
	for dest := range collisions {
		dests = append(dests, dest)
	}
	sort.Strings(dests)
	for _, dest := range dests {
		logger.Warnf("%s is written by %d sources %v; the last one wins", dest, len(collisions[dest]), collisions[dest])
	}
}

func reportFailures(summary models.BatchSummary) {
	for _, f := range summary.Failed {
		d := f.Descriptor
		logger.Errorf("Failed to convert %s to %s (%dpx, exit code %d)", d.SourcePath, d.DestinationPath, d.TargetSize, f.ExitCode)
		if f.Output != "" {
			logger.Debugf("Converter output for %s:\n%s", d.SourcePath, f.Output)
		}
	}
	if n := summary.FailedCount(); n > 0 {
		logger.Warnf("%d of %d conversions failed", n, summary.TotalJobs)
	}
}

// openLedger returns nil when the ledger is disabled or cannot be opened
func openLedger(cfg config.Config) *ledger.Ledger {
	path := cfg.LedgerPath()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Warnf("Ledger disabled, cannot create %s: %v", cfg.DataDir, err)
		return nil
	}
	led, err := ledger.Open(path)
	if err != nil {
		logger.Warnf("Ledger disabled: %v", err)
		return nil
	}
	if removed, err := led.CleanupOlderThan(ledgerRetention); err != nil {
		logger.Warnf("Failed to clean up old ledger runs: %v", err)
	} else if removed > 0 {
		logger.Debugf("Removed %d ledger runs older than %v", removed, ledgerRetention)
	}
	return led
}

func beginRun(led *ledger.Ledger, cfg config.Config, total int) string {
	id, err := led.BeginRun(ledger.RunInfo{
		InputDir:  cfg.InputDir,
		OutputDir: cfg.OutputDir,
		FileType:  cfg.FileType,
		BaseSize:  cfg.BaseSize,
		Scales:    cfg.Scales,
		TotalJobs: total,
	})
	if err != nil {
		logger.Warnf("Could not record run in ledger: %v", err)
		return ""
	}
	logger.Debugf("Ledger run %s started", id)
	return id
}

func publish(ctx context.Context, target writerbackends.Target, outputRoot string, files []string) writerbackends.Result {
	logger.Infof("Publishing %d images to %s", len(files), target)
	result, err := writerbackends.Publish(ctx, target, outputRoot, files)
	if err != nil {
		logger.Errorf("Publishing to %s failed: %v", target, err)
		result.Failed = files
		return result
	}
	if len(result.Failed) > 0 {
		logger.Warnf("Published %d images, %d failed", result.Uploaded, len(result.Failed))
	} else {
		logger.Successf("Published %d images to %s", result.Uploaded, target)
	}
	return result
}

// showHistory prints the runs recorded in the ledger and the failures of each
func showHistory(cfg config.Config, out io.Writer) error {
	path := cfg.LedgerPath()
	if path == "" {
		return errors.New("no ledger configured; set PIXSCALE_DATA_DIR or --data-dir")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no ledger at %s: %w", path, err)
	}
	led, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer led.Close()

	runs, err := led.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}
	for _, r := range runs {
		state := "unfinished"
		if r.Finished() {
			state = fmt.Sprintf("%d jobs, %d failed, %.0fs", r.Info.TotalJobs, r.Failed, r.Elapsed)
		}
		fmt.Fprintf(out, "%s  %s  %s -> %s  %s\n",
			r.StartedAt.Local().Format(time.DateTime), r.ID, r.Info.InputDir, r.Info.OutputDir, state)

		failures, err := led.ListFailures(r.ID)
		if err != nil {
			return err
		}
		for _, f := range failures {
			d := f.Outcome.Descriptor
			fmt.Fprintf(out, "    failed: %s @ %s (exit %d)\n", d.SourcePath, d.Scale, f.Outcome.ExitCode)
		}
	}
	return nil
}
