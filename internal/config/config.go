package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const ConfigTagName = "env"
const ConfigDefaultTagName = "default"

var config *Config

// Config holds every configuration value used by the campaign engine.
// Only this struct must be used to hold configuration values, no direct
// access to env, ini or any other config source should be made.
type Config struct {
	AppEnv   string `env:"APP_ENV" default:"dev"`
	AppName  string `env:"APP_NAME" default:"whatsx_campaigns"`
	AppDebug bool   `env:"APP_DEBUG" default:"1"`

	HttpListenAddr         string `env:"HTTP_LISTEN_ADDR" validation:"mustExists"`
	HttpServerReadTimeout  int    `env:"HTTP_SERVER_READ_TIMEOUT"`
	HttpServerWriteTimeout int    `env:"HTTP_SERVER_WRITE_TIMEOUT"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace string `env:"PROM_NAMESPACE"`

	LogLevel []string `env:"LOG_LEVEL"`

	QueueName              string        `env:"QUEUE_NAME" default:"campaign:dispatch"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP" default:"dispatchers"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ"`

	// External WhatsApp gateway (the Node bridge that owns the sessions).
	GatewayBaseURL        string        `env:"GATEWAY_BASE_URL" default:"http://127.0.0.1:3001"`
	GatewaySendTimeout    time.Duration `env:"GATEWAY_SEND_TIMEOUT" default:"15s"`
	GatewayControlTimeout time.Duration `env:"GATEWAY_CONTROL_TIMEOUT" default:"30s"`
	GatewayStatusTimeout  time.Duration `env:"GATEWAY_STATUS_TIMEOUT" default:"10s"`

	// Generative drafting provider. An empty API key disables the
	// drafts endpoint with a 503.
	AssistBaseURL string `env:"ASSIST_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	AssistModel   string `env:"ASSIST_MODEL" default:"gemini-2.5-flash-preview-09-2025"`
	AssistAPIKey  string `env:"ASSIST_API_KEY"`

	PhoneCountryCode  string `env:"PHONE_COUNTRY_CODE" default:"92"`
	PhoneMobilePrefix string `env:"PHONE_MOBILE_PREFIX" default:"3"`

	DispatchConcurrency int           `env:"DISPATCH_CONCURRENCY" default:"8"`
	SchedulerInterval   time.Duration `env:"SCHEDULER_INTERVAL" default:"15s"`
	SchedulerStaleAfter time.Duration `env:"SCHEDULER_STALE_AFTER" default:"10m"`
	SchedulerClaimLimit int           `env:"SCHEDULER_CLAIM_LIMIT" default:"50"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.New("failed to load configuration file " + path + " error: " + err.Error())
		}
	}

	_, err = env.UnmarshalFromEnviron(c)

	if err != nil {
		return errors.New("failed to map env variables to Configuration object " + " error: " + err.Error())
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
