package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Dispatcher   DispatcherConfig
	Cron         CronConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// validate catches values envconfig accepts but the services cannot run with.
func (c *Config) validate() error {
	positive := func(name string, v int) error {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
		return nil
	}
	errs := multierr.Combine(
		positive("SURPLUSX_OUTBOX_PUBLISH_BATCH_SIZE", c.Outbox.BatchSize),
		positive("SURPLUSX_OUTBOX_MAX_ATTEMPTS", c.Outbox.MaxAttempts),
		positive(EnvNotifyQueueSize, c.Dispatcher.QueueSize),
		positive("SURPLUSX_NOTIFY_WORKERS", c.Dispatcher.Workers),
		positive("SURPLUSX_CRON_OUTBOX_RETENTION_DAYS", c.Cron.OutboxRetentionDays),
		positive("SURPLUSX_CRON_NOTIFICATION_RETENTION_DAYS", c.Cron.NotificationRetentionDays),
	)
	if c.Cron.LockTTL < c.Cron.JobTimeout {
		errs = multierr.Append(errs, fmt.Errorf("cron lock ttl %s is shorter than job timeout %s", c.Cron.LockTTL, c.Cron.JobTimeout))
	}
	return errs
}

type AppConfig struct {
	Env          string `envconfig:"SURPLUSX_APP_ENV" required:"true"`
	Port         string `envconfig:"SURPLUSX_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SURPLUSX_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"SURPLUSX_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"SURPLUSX_LOG_WARN_STACK" default:"false"`
	// MetricsAddr, when set, serves /metrics from background binaries.
	MetricsAddr string `envconfig:"SURPLUSX_METRICS_ADDR"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SURPLUSX_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SURPLUSX_DB_DSN"`
	Driver string `envconfig:"SURPLUSX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SURPLUSX_DB_HOST"`
	LegacyPort     int    `envconfig:"SURPLUSX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SURPLUSX_DB_USER"`
	LegacyPassword string `envconfig:"SURPLUSX_DB_PASSWORD"`
	LegacyName     string `envconfig:"SURPLUSX_DB_NAME"`
	LegacySSLMode  string `envconfig:"SURPLUSX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SURPLUSX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SURPLUSX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SURPLUSX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SURPLUSX_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQuery is the threshold above which statements are logged at warn.
	SlowQuery time.Duration `envconfig:"SURPLUSX_DB_SLOW_QUERY" default:"250ms"`
}

// IsSQLite reports whether the local sqlite driver is configured.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"SURPLUSX_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SURPLUSX_REDIS_ADDR"`
	Password     string        `envconfig:"SURPLUSX_REDIS_PASSWORD"`
	DB           int           `envconfig:"SURPLUSX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SURPLUSX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SURPLUSX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SURPLUSX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SURPLUSX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SURPLUSX_REDIS_WRITE_TIMEOUT" default:"5s"`

	// IdempotencyTTL bounds how long an HTTP Idempotency-Key response is replayed.
	IdempotencyTTL time.Duration `envconfig:"SURPLUSX_REDIS_IDEMPOTENCY_TTL" default:"24h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SURPLUSX_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SURPLUSX_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SURPLUSX_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SURPLUSX_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"SURPLUSX_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SURPLUSX_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SURPLUSX_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SURPLUSX_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	TransfersTopic           string `envconfig:"SURPLUSX_PUBSUB_TRANSFERS_TOPIC" default:"sx-transfer-events"`
	TransfersSubscription    string `envconfig:"SURPLUSX_PUBSUB_TRANSFERS_SUBSCRIPTION"`
	NotificationTopic        string `envconfig:"SURPLUSX_PUBSUB_NOTIFICATION_TOPIC" default:"sx-notification-events"`
	NotificationSubscription string `envconfig:"SURPLUSX_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SURPLUSX_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SURPLUSX_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SURPLUSX_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// DispatcherConfig sizes the in-process notification queue.
type DispatcherConfig struct {
	QueueSize      int           `envconfig:"SURPLUSX_NOTIFY_QUEUE_SIZE" default:"256"`
	Workers        int           `envconfig:"SURPLUSX_NOTIFY_WORKERS" default:"2"`
	EnqueueTimeout time.Duration `envconfig:"SURPLUSX_NOTIFY_ENQUEUE_TIMEOUT" default:"50ms"`
	DeliverTimeout time.Duration `envconfig:"SURPLUSX_NOTIFY_DELIVER_TIMEOUT" default:"5s"`
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"SURPLUSX_CRON_INTERVAL" default:"24h"`
	LockTTL                   time.Duration `envconfig:"SURPLUSX_CRON_LOCK_TTL" default:"30m"`
	JobTimeout                time.Duration `envconfig:"SURPLUSX_CRON_JOB_TIMEOUT" default:"5m"`
	OutboxRetentionDays       int           `envconfig:"SURPLUSX_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	NotificationRetentionDays int           `envconfig:"SURPLUSX_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SURPLUSX_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
