package bootstrap

import (
	calendarsvc "fincal/internal/services/calendar"
	"fincal/internal/workers"
	calendarworkers "fincal/internal/workers/calendar"
	"fincal/pkg/logger"
)

// provideWorkers registers one sync worker per job
func provideWorkers(jobs []calendarsvc.Job, syncer calendarworkers.Syncer, log *logger.Logger) (*workers.Scheduler, *workers.Registry) {
	log.Info("Initializing workers...")

	scheduler := workers.NewScheduler()
	registry := workers.NewRegistry()

	for _, job := range jobs {
		w := calendarworkers.NewSyncWorker(job.Name, syncer, job.Interval, job.Enabled)
		if err := registry.Register(w); err != nil {
			log.Warnw("Skipping duplicate worker", "worker", job.Name, "error", err)
			continue
		}
		scheduler.RegisterWorker(w)
	}

	log.Infow("✓ Workers initialized", "count", registry.Count())
	return scheduler, registry
}
