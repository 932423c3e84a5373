package bootstrap

import (
	"context"
	"sync"

	chclient "fincal/internal/adapters/clickhouse"
	"fincal/internal/adapters/config"
	"fincal/internal/adapters/kafka"
	pgclient "fincal/internal/adapters/postgres"
	"fincal/internal/adapters/providers/ratelimit"
	redisclient "fincal/internal/adapters/redis"
	"fincal/internal/adapters/telegram"
	"fincal/internal/api"
	"fincal/internal/api/health"
	"fincal/internal/consumers"
	"fincal/internal/domain/calendar"
	"fincal/internal/events"
	chrepo "fincal/internal/repository/clickhouse"
	pgrepo "fincal/internal/repository/postgres"
	redisrepo "fincal/internal/repository/redis"
	calendarsvc "fincal/internal/services/calendar"
	"fincal/internal/workers"
	"fincal/pkg/errors"
	"fincal/pkg/logger"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer (Data stores). CH and Redis are nil when disabled.
	PG    *pgclient.Client
	CH    *chclient.Client
	Redis *redisclient.Client

	Repos       *Repositories
	Adapters    *Adapters
	Services    *Services
	Application *Application
	Background  *Background

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Repositories groups the stores
type Repositories struct {
	Events       *pgrepo.CalendarEventRepository
	Reports      *chrepo.RunReportRepository
	Fingerprints *redisrepo.FingerprintStore
}

// Adapters groups external adapters
type Adapters struct {
	Limiters *ratelimit.Registry
	Locker   *redisclient.Locker

	// Kafka
	KafkaProducer        *kafka.Producer
	SyncRequestsConsumer *kafka.Consumer
	Publisher            *events.CalendarPublisher

	Alerter *telegram.Alerter

	// Provider chains per kind, primary first
	Providers map[calendar.Kind][]calendar.Provider
}

// Services groups the sync pipeline
type Services struct {
	Catalogs calendarsvc.Catalogs
	Jobs     []calendarsvc.Job
	Runner   *calendarsvc.Runner
	Calendar *calendarsvc.Service
}

// Application groups application layer components
type Application struct {
	HTTPServer    *api.Server
	HealthHandler *health.Handler
}

// Background groups all background processing components
type Background struct {
	WorkerScheduler *workers.Scheduler
	WorkerRegistry  *workers.Registry
	SyncRequestsSvc *consumers.SyncRequestConsumer
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Repos:       &Repositories{},
		Adapters:    &Adapters{},
		Services:    &Services{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// MustInit initializes all components in the correct order
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitRepositories()
	c.MustInitAdapters()
	c.MustInitServices()
	c.MustInitBackground()
	c.MustInitApplication()
}

// Start starts all background components
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	if err := c.startConsumers(); err != nil {
		return err
	}

	// Start HTTP server
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal HTTP error
		}
	}()

	if err := c.Background.WorkerScheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start workers")
	}

	c.Log.Infow("✓ All systems operational",
		"jobs", len(c.Services.Jobs),
		"workers", c.Background.WorkerRegistry.Count(),
	)
	return nil
}

// startConsumers starts Kafka consumers in background goroutines
func (c *Container) startConsumers() error {
	if c.Background.SyncRequestsSvc == nil {
		return nil
	}

	svc := c.Background.SyncRequestsSvc
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := svc.Start(c.Context); err != nil && c.Context.Err() == nil {
			c.Log.Errorw("Sync request consumer failed", "error", err)
		}
	}()

	c.Log.Infow("✓ Event consumers started", "consumers", []string{kafka.TopicSyncRequests})
	return nil
}

// RunOnce runs a single job synchronously, for the command line
func (c *Container) RunOnce(ctx context.Context, job string, window *calendar.Window) (*calendar.RunReport, error) {
	return c.Services.Calendar.Sync(ctx, job, window)
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	// Cancel application context to signal all components to stop
	c.Cancel()

	c.Lifecycle.Shutdown(
		c.WG,
		c.Application.HTTPServer,
		c.Background.WorkerScheduler,
		c.Adapters.KafkaProducer,
		map[string]*kafka.Consumer{
			kafka.TopicSyncRequests: c.Adapters.SyncRequestsConsumer,
		},
		c.PG,
		c.CH,
		c.Redis,
		c.ErrorTracker,
		c.Log,
	)
}
