package bootstrap

import (
	"context"
	"sync"
	"time"

	chclient "fincal/internal/adapters/clickhouse"
	"fincal/internal/adapters/kafka"
	pgclient "fincal/internal/adapters/postgres"
	redisclient "fincal/internal/adapters/redis"
	"fincal/internal/api"
	"fincal/internal/workers"
	"fincal/pkg/errors"
	"fincal/pkg/logger"
)

// Lifecycle manages graceful startup and shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 150 * time.Second,
	}
}

// Shutdown performs coordinated cleanup of all components in the correct order:
// 1. No new requests accepted
// 2. Workers finish their current run
// 3. Kafka consumers unblock before waiting for goroutines
// 4. Producer closes after consumers
// 5. Logs and errors flushed
// 6. Database connections last (in-flight runs persist until the end)
func (l *Lifecycle) Shutdown(
	wg *sync.WaitGroup,
	httpServer *api.Server,
	workerScheduler *workers.Scheduler,
	kafkaProducer *kafka.Producer,
	kafkaConsumers map[string]*kafka.Consumer,
	pgClient *pgclient.Client,
	chClient *chclient.Client,
	redisClient *redisclient.Client,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	log.Info("[1/8] Stopping HTTP server...")
	if httpServer != nil {
		httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
		if err := httpServer.Shutdown(httpCtx); err != nil {
			log.Errorw("HTTP server shutdown failed", "error", err)
		} else {
			log.Info("✓ HTTP server stopped")
		}
		httpCancel()
	}

	log.Info("[2/8] Stopping background workers...")
	if workerScheduler != nil && workerScheduler.IsRunning() {
		if err := workerScheduler.Stop(); err != nil {
			log.Errorw("Workers shutdown failed", "error", err)
		} else {
			log.Info("✓ Workers stopped")
		}
	}

	// Consumers are closed before waiting so blocked reads return
	log.Info("[3/8] Closing Kafka consumers...")
	l.closeKafkaConsumers(kafkaConsumers, log)

	log.Info("[4/8] Waiting for goroutines...")
	l.waitForGoroutines(wg, 5*time.Second, log)

	log.Info("[5/8] Closing Kafka producer...")
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Errorw("Kafka producer close failed", "error", err)
		} else {
			log.Info("✓ Kafka producer closed")
		}
	}

	log.Info("[6/8] Flushing error tracker...")
	l.flushErrorTracker(shutdownCtx, errorTracker, log)

	log.Info("[7/8] Syncing logs...")
	if err := logger.Sync(); err != nil {
		log.Warn("Log sync completed with warnings")
	}

	log.Info("[8/8] Closing database connections...")
	l.closeDatabases(pgClient, chClient, redisClient, log)

	log.Info("✅ Graceful shutdown complete")
}

func (l *Lifecycle) closeKafkaConsumers(consumers map[string]*kafka.Consumer, log *logger.Logger) {
	for name, consumer := range consumers {
		if consumer == nil {
			continue
		}
		if err := consumer.Close(); err != nil {
			log.Errorw("Kafka consumer close failed", "consumer", name, "error", err)
		}
	}
}

// waitForGoroutines waits for all goroutines with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("✓ All goroutines finished")
	case <-time.After(timeout):
		log.Warnw("⚠ Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

func (l *Lifecycle) flushErrorTracker(ctx context.Context, tracker errors.Tracker, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 3*time.Second)
	defer flushCancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Errorw("Error tracker flush failed", "error", err)
	}
}

func (l *Lifecycle) closeDatabases(
	pgClient *pgclient.Client,
	chClient *chclient.Client,
	redisClient *redisclient.Client,
	log *logger.Logger,
) {
	var merr errors.MultiError

	if pgClient != nil {
		merr.Add(errors.Wrap(pgClient.Close(), "postgres"))
	}
	if chClient != nil {
		merr.Add(errors.Wrap(chClient.Close(), "clickhouse"))
	}
	if redisClient != nil {
		merr.Add(errors.Wrap(redisClient.Close(), "redis"))
	}

	if err := merr.ToError(); err != nil {
		log.Errorw("Database close errors", "errors", merr.Errors)
		return
	}
	log.Info("✓ Database connections closed")
}
