package config

// EnvPrefix is empty because every field carries its fully qualified variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "SURPLUSX_APP_ENV"
	EnvPort     = "SURPLUSX_APP_PORT"
	EnvLogLevel = "SURPLUSX_LOG_LEVEL"

	EnvDBDSN    = "SURPLUSX_DB_DSN"
	EnvDBDriver = "SURPLUSX_DB_DRIVER"
	EnvDBHost   = "SURPLUSX_DB_HOST"
	EnvDBUser   = "SURPLUSX_DB_USER"
	EnvDBName   = "SURPLUSX_DB_NAME"

	EnvRedisURL = "SURPLUSX_REDIS_URL"

	EnvJWTSecret  = "SURPLUSX_JWT_SECRET"
	EnvJWTIssuer  = "SURPLUSX_JWT_ISSUER"
	EnvJWTExpMins = "SURPLUSX_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "SURPLUSX_GCP_PROJECT_ID"

	EnvPubSubTransfersTopic    = "SURPLUSX_PUBSUB_TRANSFERS_TOPIC"
	EnvPubSubNotificationTopic = "SURPLUSX_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub   = "SURPLUSX_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvNotifyQueueSize = "SURPLUSX_NOTIFY_QUEUE_SIZE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
