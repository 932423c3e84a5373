package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"fincal/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Alerts        AlertsConfig
	ErrorTracking ErrorTrackingConfig
	Providers     ProvidersConfig
	Sync          SyncConfig
	Jobs          JobsConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"fincal"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
	Migrate  bool   `envconfig:"APP_MIGRATE" default:"true"` // apply embedded schema on startup
}

type HTTPConfig struct {
	Port       int    `envconfig:"HTTP_PORT" default:"8080"`
	AdminToken string `envconfig:"ADMIN_TOKEN"` // empty disables the admin endpoints
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Enabled  bool   `envconfig:"CLICKHOUSE_ENABLED" default:"true"`
	Host     string `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"fincal"`
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"true"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"true"`
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"fincal"`
}

// AlertsConfig routes fatal run alerts to Telegram admin chats
type AlertsConfig struct {
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatIDs  []int64 `envconfig:"TELEGRAM_ALERT_CHAT_IDS"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// ProviderConfig is the connection setting of one data provider.
// Variables are prefixed per provider, e.g. PROVIDERS_FRED_API_KEY.
type ProviderConfig struct {
	APIKey            string        `split_words:"true"`
	BaseURL           string        `split_words:"true"`
	Timeout           time.Duration `default:"30s"`
	RequestsPerMinute int           `split_words:"true" default:"60"`
	MaxBatch          int           `split_words:"true"`
}

// ProvidersConfig holds one section per provider; API keys come only from the environment
type ProvidersConfig struct {
	FRED             ProviderConfig `envconfig:"FRED"`
	TradingEconomics ProviderConfig `envconfig:"TRADINGECONOMICS"`
	EODHD            ProviderConfig `envconfig:"EODHD"`
	Finnhub          ProviderConfig `envconfig:"FINNHUB"`

	RetryMax          int           `envconfig:"PROVIDER_RETRY_MAX" default:"3"`
	RetryInitialDelay time.Duration `envconfig:"PROVIDER_RETRY_INITIAL_DELAY" default:"2s"`
	RetryMaxDelay     time.Duration `envconfig:"PROVIDER_RETRY_MAX_DELAY" default:"30s"`
}

// SyncConfig tunes the shared pipeline
type SyncConfig struct {
	PacingDelay      time.Duration `envconfig:"SYNC_PACING_DELAY" default:"2s"`
	FetchTimeout     time.Duration `envconfig:"SYNC_FETCH_TIMEOUT" default:"5m"`
	StoreBatchSize   int           `envconfig:"SYNC_STORE_BATCH_SIZE" default:"200"`
	StoreTimeout     time.Duration `envconfig:"SYNC_STORE_TIMEOUT" default:"15s"`
	StoreRetries     int           `envconfig:"SYNC_STORE_RETRIES" default:"1"`
	StoreRetryDelay  time.Duration `envconfig:"SYNC_STORE_RETRY_DELAY" default:"1s"`
	FingerprintTTL   time.Duration `envconfig:"SYNC_FINGERPRINT_TTL" default:"24h"`
	LockTTL          time.Duration `envconfig:"SYNC_LOCK_TTL" default:"2m"`
	CatalogFile      string        `envconfig:"SYNC_CATALOG_FILE"`
	TranslationsFile string        `envconfig:"SYNC_TRANSLATIONS_FILE"`
	ConsumeRequests  bool          `envconfig:"SYNC_CONSUME_REQUESTS" default:"true"`
}

// JobSchedule is one job's cadence and sliding window,
// e.g. JOBS_EARNINGS_WEEK_INTERVAL or JOBS_EARNINGS_WEEK_FORWARD_DAYS.
type JobSchedule struct {
	Enabled       bool `default:"true"`
	Interval      time.Duration
	BackDays      int `split_words:"true"`
	ForwardDays   int `split_words:"true"`
	ForwardMonths int `split_words:"true"`
}

// JobsConfig lists the pipeline invocations run on a schedule
type JobsConfig struct {
	IndicatorsRecent  JobSchedule `envconfig:"INDICATORS_RECENT"`
	IndicatorsOutlook JobSchedule `envconfig:"INDICATORS_OUTLOOK"`
	EarningsWeek      JobSchedule `envconfig:"EARNINGS_WEEK"`
	EarningsQuarter   JobSchedule `envconfig:"EARNINGS_QUARTER"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	cfg.Jobs.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills the window and cadence of jobs the environment leaves unset
func (j *JobsConfig) applyDefaults() {
	fill(&j.IndicatorsRecent, JobSchedule{Interval: 6 * time.Hour, BackDays: 7, ForwardDays: 30})
	fill(&j.IndicatorsOutlook, JobSchedule{Interval: 24 * time.Hour, ForwardMonths: 3})
	fill(&j.EarningsWeek, JobSchedule{Interval: 6 * time.Hour, BackDays: 3, ForwardDays: 14})
	fill(&j.EarningsQuarter, JobSchedule{Interval: 24 * time.Hour, ForwardMonths: 3})
}

func fill(s *JobSchedule, def JobSchedule) {
	if s.Interval <= 0 {
		s.Interval = def.Interval
	}
	if s.BackDays == 0 && s.ForwardDays == 0 && s.ForwardMonths == 0 {
		s.BackDays = def.BackDays
		s.ForwardDays = def.ForwardDays
		s.ForwardMonths = def.ForwardMonths
	}
}
