package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURL   string
	AMQPQueue string

	BrainBaseURL string
	BrainAPIKey  string
	BrainModel   string

	CommerceWebhookSecret string
	WebhookRatePerSecond  float64
	WebhookBurst          int

	UpgradeBaseURL   string
	DefaultConnector string

	OTLPEnabled  bool
	OTLPEndpoint string
	OTLPProtocol string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "conversa"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "conversa"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		AMQPURL:   getenv("AMQP_URL", ""),
		AMQPQueue: getenv("AMQP_QUEUE", "conversa.events"),

		BrainBaseURL: getenv("BRAIN_BASE_URL", "https://openrouter.ai/api/v1"),
		BrainAPIKey:  strings.TrimSpace(getenv("BRAIN_API_KEY", "")),
		BrainModel:   getenv("BRAIN_MODEL", "openai/gpt-4o-mini"),

		CommerceWebhookSecret: strings.TrimSpace(getenv("COMMERCE_WEBHOOK_SECRET", "")),
		WebhookRatePerSecond:  getenvFloat("WEBHOOK_RATE_PER_SECOND", 20),
		WebhookBurst:          getenvInt("WEBHOOK_BURST", 40),

		UpgradeBaseURL:   getenv("UPGRADE_BASE_URL", "https://app.conversa.bot"),
		DefaultConnector: getenv("DEFAULT_CONNECTOR", "ifood"),

		OTLPEnabled:  getenvBool("OTLP_ENABLED", false),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		OTLPProtocol: strings.ToLower(getenv("OTLP_PROTOCOL", "grpc")),
	}
}

// Module provides the application configuration.
var Module = fx.Module("config",
	fx.Provide(Load),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
