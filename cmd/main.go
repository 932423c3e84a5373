package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"fincal/internal/bootstrap"
	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
	"fincal/pkg/logger"
)

func main() {
	job := flag.String("run", "", "Run one job once and exit (e.g. earnings_week)")
	from := flag.String("from", "", "Override window start, YYYY-MM-DD (with -run)")
	to := flag.String("to", "", "Override window end, YYYY-MM-DD (with -run)")
	flag.Parse()

	c := bootstrap.NewContainer()
	c.MustInit()

	if *job != "" {
		os.Exit(runOnce(c, *job, *from, *to))
	}

	if err := c.Start(); err != nil {
		c.Log.Errorw("Failed to start", "error", err)
		c.Shutdown()
		os.Exit(1)
	}

	waitForShutdown(c.Context, c.Log)
	c.Shutdown()
}

// runOnce runs a single job in the foreground; SIGINT stops it at the next batch
func runOnce(c *bootstrap.Container, job, from, to string) int {
	defer c.Shutdown()

	var window *calendar.Window
	if from != "" || to != "" {
		w, err := calendar.ParseWindow(from, to)
		if err != nil {
			c.Log.Errorw("Invalid window", "error", err)
			return 2
		}
		window = &w
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := c.RunOnce(ctx, job, window)
	if report != nil {
		c.Log.Infow("Run finished",
			"job", report.Job,
			"success", report.Success,
			"processed", report.Processed,
			"inserted", report.Inserted,
			"deduplicated", report.Deduplicated,
			"errors", report.Errors,
			"source", report.SourceUsed,
			"duration_ms", report.DurationMs,
		)
	}

	switch {
	case errors.Is(err, errors.ErrLocked):
		return 0
	case err != nil:
		c.Log.Errorw("Run failed", "job", job, "error", err)
		return 1
	case report != nil && !report.Success:
		return 1
	}
	return 0
}

// waitForShutdown blocks until a shutdown signal or a fatal component error
func waitForShutdown(ctx context.Context, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infow("Shutting down...", "signal", sig.String())
	case <-ctx.Done():
		log.Info("Shutting down after component failure...")
	}
}
