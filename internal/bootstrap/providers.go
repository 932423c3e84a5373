package bootstrap

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	chclient "fincal/internal/adapters/clickhouse"
	"fincal/internal/adapters/config"
	errnoop "fincal/internal/adapters/errors/noop"
	"fincal/internal/adapters/errors/sentry"
	"fincal/internal/adapters/kafka"
	pgclient "fincal/internal/adapters/postgres"
	"fincal/internal/adapters/providers/ratelimit"
	redisclient "fincal/internal/adapters/redis"
	"fincal/internal/adapters/telegram"
	"fincal/internal/api"
	"fincal/internal/api/admin"
	"fincal/internal/api/health"
	"fincal/internal/consumers"
	"fincal/internal/events"
	"fincal/internal/metrics"
	chrepo "fincal/internal/repository/clickhouse"
	pgrepo "fincal/internal/repository/postgres"
	redisrepo "fincal/internal/repository/redis"
	calendarsvc "fincal/internal/services/calendar"
	"fincal/internal/workers"
	"fincal/migrations"
	"fincal/pkg/errors"
	"fincal/pkg/logger"
)

const connectTimeout = 15 * time.Second

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s %s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// MustInitInfrastructure connects the data stores. Postgres is required;
// ClickHouse and Redis are optional and left nil when disabled.
func (c *Container) MustInitInfrastructure() {
	var err error

	ctx, cancel := context.WithTimeout(c.Context, connectTimeout)
	defer cancel()

	c.Log.Info("Connecting to PostgreSQL...")
	c.PG, err = pgclient.NewClient(ctx, c.Config.Postgres)
	if err != nil {
		c.Log.Fatalf("failed to connect postgres: %v", err)
	}
	c.Log.Info("✓ PostgreSQL connected")

	if c.Config.ClickHouse.Enabled {
		c.Log.Info("Connecting to ClickHouse...")
		c.CH, err = chclient.NewClient(ctx, c.Config.ClickHouse)
		if err != nil {
			c.Log.Fatalf("failed to connect clickhouse: %v", err)
		}
		c.Log.Info("✓ ClickHouse connected")
	}

	if c.Config.Redis.Enabled {
		c.Log.Info("Connecting to Redis...")
		c.Redis, err = redisclient.NewClient(ctx, c.Config.Redis)
		if err != nil {
			c.Log.Fatalf("failed to connect redis: %v", err)
		}
		c.Log.Info("✓ Redis connected")
	}

	if c.Config.App.Migrate {
		if err := c.migrate(ctx); err != nil {
			c.Log.Fatalf("failed to apply migrations: %v", err)
		}
		c.Log.Info("✓ Schema migrations applied")
	}
}

// migrate applies the embedded schema; every statement is idempotent
func (c *Container) migrate(ctx context.Context) error {
	stmts, err := migrations.Postgres()
	if err != nil {
		return errors.Wrap(err, "read postgres migrations")
	}
	for _, stmt := range stmts {
		if _, err := c.PG.DB().ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "postgres migration")
		}
	}

	if c.CH == nil {
		return nil
	}
	stmts, err = migrations.ClickHouse()
	if err != nil {
		return errors.Wrap(err, "read clickhouse migrations")
	}
	for _, stmt := range stmts {
		if err := c.CH.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "clickhouse migration")
		}
	}
	return nil
}

// ========================================
// Phase 3: Repositories
// ========================================

// MustInitRepositories initializes the stores
func (c *Container) MustInitRepositories() {
	c.Repos.Events = pgrepo.NewCalendarEventRepository(c.PG.DB())

	if c.CH != nil {
		c.Repos.Reports = chrepo.NewRunReportRepository(c.CH.Conn())
	}
	if c.Redis != nil {
		c.Repos.Fingerprints = redisrepo.NewFingerprintStore(c.Redis.Client(), c.Config.Sync.FingerprintTTL)
	}

	c.Log.Infow("✓ Repositories initialized",
		"run_history", c.Repos.Reports != nil,
		"cross_run_dedup", c.Repos.Fingerprints != nil,
	)
}

// ========================================
// Phase 4: External Adapters
// ========================================

// MustInitAdapters initializes provider clients, Kafka and alerting
func (c *Container) MustInitAdapters() {
	c.Adapters.Limiters = ratelimit.NewRegistry()
	c.Adapters.Providers = provideProviders(c.Config, c.Adapters.Limiters, c.Log)

	if c.Redis != nil {
		c.Adapters.Locker = redisclient.NewLocker(c.Redis)
	}

	if c.Config.Kafka.Enabled {
		c.Adapters.KafkaProducer = provideKafkaProducer(c.Config, c.Log)
		c.Adapters.Publisher = events.NewCalendarPublisher(c.Adapters.KafkaProducer, c.Log)
		if c.Config.Sync.ConsumeRequests {
			c.Adapters.SyncRequestsConsumer = provideKafkaConsumer(c.Config, kafka.TopicSyncRequests, c.Log)
		}
	}

	c.Adapters.Alerter = provideAlerter(c.Config, c.Log)
}

// ========================================
// Phase 5: Sync pipeline
// ========================================

// MustInitServices builds catalogs, jobs and the sync service
func (c *Container) MustInitServices() {
	catalogs, err := calendarsvc.LoadCatalogs(c.Config.Sync.CatalogFile)
	if err != nil {
		c.Log.Fatalf("failed to load catalogs: %v", err)
	}
	c.Services.Catalogs = catalogs

	translations, err := calendarsvc.LoadTranslations(c.Config.Sync.TranslationsFile)
	if err != nil {
		c.Log.Fatalf("failed to load translations: %v", err)
	}

	c.Services.Jobs = BuildJobs(c.Config.Jobs, catalogs, c.Adapters.Providers)

	gateway := calendarsvc.NewGateway(c.Repos.Events, calendarsvc.GatewayConfig{
		BatchSize:  c.Config.Sync.StoreBatchSize,
		Timeout:    c.Config.Sync.StoreTimeout,
		Retries:    c.Config.Sync.StoreRetries,
		RetryDelay: c.Config.Sync.StoreRetryDelay,
	}, c.Log)

	// Optional collaborators stay untyped nil when their store is disabled
	var fingerprints calendarsvc.FingerprintStore
	if c.Repos.Fingerprints != nil {
		fingerprints = c.Repos.Fingerprints
	}
	var sink calendarsvc.EventSink
	deps := calendarsvc.ServiceDeps{Tracker: c.ErrorTracker}
	if c.Adapters.Publisher != nil {
		sink = c.Adapters.Publisher
		deps.ReportSink = c.Adapters.Publisher
	}
	if c.Repos.Reports != nil {
		deps.Reports = c.Repos.Reports
	}
	if c.Adapters.Locker != nil {
		deps.Locker = c.Adapters.Locker
	}
	if c.Adapters.Alerter != nil {
		deps.Alerter = c.Adapters.Alerter
	}

	c.Services.Runner = calendarsvc.NewRunner(
		calendarsvc.NewNormalizer(c.Log),
		calendarsvc.NewClassifier(translations),
		gateway,
		fingerprints,
		sink,
		calendarsvc.RunnerConfig{
			PacingDelay:  c.Config.Sync.PacingDelay,
			FetchTimeout: c.Config.Sync.FetchTimeout,
		},
		c.Log,
	)

	c.Services.Calendar = calendarsvc.NewService(c.Services.Jobs, c.Services.Runner, deps, c.Config.Sync.LockTTL, c.Log)

	c.Log.Infow("✓ Sync service initialized",
		"jobs", len(c.Services.Jobs),
		"indicators", c.Services.Catalogs.Indicators.Len(),
		"earnings", c.Services.Catalogs.Earnings.Len(),
	)
}

// ========================================
// Phase 6: Background processing
// ========================================

// MustInitBackground registers one worker per job and the on-demand consumer
func (c *Container) MustInitBackground() {
	c.Background.WorkerScheduler, c.Background.WorkerRegistry = provideWorkers(c.Services.Jobs, c.Services.Calendar, c.Log)

	if c.Adapters.SyncRequestsConsumer != nil {
		c.Background.SyncRequestsSvc = consumers.NewSyncRequestConsumer(c.Adapters.SyncRequestsConsumer, c.Services.Calendar, c.Log)
	}
}

// ========================================
// Phase 7: Application layer
// ========================================

// MustInitApplication builds health checks and the HTTP server
func (c *Container) MustInitApplication() {
	metrics.Init()
	var chConn driver.Conn
	if c.CH != nil {
		chConn = c.CH.Conn()
	}
	if err := metrics.RegisterCollector(metrics.NewCalendarCollector(c.Log, c.PG.DB(), chConn)); err != nil {
		c.Log.Warnw("Failed to register store collector", "error", err)
	}

	c.Application.HealthHandler = health.New(c.Log, provideHealthChecks(c), c.Config.App.Name, c.Config.App.Version)

	cfg := api.ServerConfig{
		Port:        c.Config.HTTP.Port,
		ServiceName: c.Config.App.Name,
		Version:     c.Config.App.Version,
		AdminToken:  c.Config.HTTP.AdminToken,
	}
	if cfg.AdminToken != "" {
		cfg.Admin = admin.NewHandler(c.Services.Calendar, c.Log)
	} else {
		c.Log.Warn("ADMIN_TOKEN not set, admin endpoints disabled")
	}

	c.Application.HTTPServer = api.NewServer(cfg, c.Application.HealthHandler, c.Log)
}

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.App.Version)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

func provideKafkaProducer(cfg *config.Config, log *logger.Logger) *kafka.Producer {
	log.Info("Initializing Kafka producer...")
	if len(cfg.Kafka.Brokers) == 0 {
		log.Warn("Kafka brokers not configured, using default localhost:9092")
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
	})
	log.Info("✓ Kafka producer initialized")
	return producer
}

func provideKafkaConsumer(cfg *config.Config, topic string, log *logger.Logger) *kafka.Consumer {
	log.Infow("Initializing Kafka consumer", "topic", topic)
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topic:   topic,
	})
	log.Infow("✓ Kafka consumer initialized", "topic", topic)
	return consumer
}

func provideAlerter(cfg *config.Config, log *logger.Logger) *telegram.Alerter {
	if cfg.Alerts.TelegramBotToken == "" || len(cfg.Alerts.TelegramChatIDs) == 0 {
		log.Info("Telegram alerts disabled")
		return nil
	}

	alerter, err := telegram.NewAlerter(telegram.Config{
		Token:       cfg.Alerts.TelegramBotToken,
		ChatIDs:     cfg.Alerts.TelegramChatIDs,
		HTTPTimeout: 10 * time.Second,
	}, log)
	if err != nil {
		log.Warnw("Failed to initialize Telegram alerter", "error", err)
		return nil
	}

	log.Infow("✓ Telegram alerts enabled", "chats", len(cfg.Alerts.TelegramChatIDs))
	return alerter
}

// provideHealthChecks lists a check per enabled store plus the worker registry
func provideHealthChecks(c *Container) map[string]health.Checker {
	checks := map[string]health.Checker{
		"postgres": c.PG.Health,
	}
	if c.CH != nil {
		checks["clickhouse"] = c.CH.Health
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis.Health
	}
	if reg := c.Background.WorkerRegistry; reg != nil {
		checks["workers"] = workersCheck(reg)
	}
	return checks
}

// workersCheck fails when any enabled worker missed three intervals or mostly fails
func workersCheck(reg *workers.Registry) health.Checker {
	return func(ctx context.Context) error {
		if names := reg.GetUnhealthyWorkers(time.Now(), 3); len(names) > 0 {
			return errors.Wrapf(errors.ErrUnavailable, "unhealthy workers: %v", names)
		}
		return nil
	}
}
