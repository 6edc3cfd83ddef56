package config

import (
	"errors"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"clover-api"`
	Version                       string   `env:"APP_VERSION" env-default:"dev"`
	Port                          int      `env:"PORT" env-default:"3000"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Backend REST API that owns communities, platforms and modules
	BackendBaseURL string `env:"BACKEND_BASE_URL" env-default:"http://localhost:8080/api/v1"`
	// Backend request timeout
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" env-default:"15s"`
	// Retries for idempotent backend reads
	BackendMaxRetries int `env:"BACKEND_MAX_RETRIES" env-default:"3"`
	// Discord CDN used to build guild icon URLs
	DiscordCDN string `env:"DISCORD_CDN" env-default:"https://cdn.discordapp.com/"`

	// Session store: redis or memory
	SessionStore string `env:"SESSION_STORE" env-default:"redis"`
	// How long a stored community record lives without being touched
	SessionTTL time.Duration `env:"SESSION_TTL" env-default:"720h"`

	// Redis host
	RedisHost string `env:"REDIS_HOST" env-default:"localhost"`
	// Redis port
	RedisPort int `env:"REDIS_PORT" env-default:"6379"`
	// Redis password
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	// Redis database number
	RedisDB int `env:"REDIS_DB" env-default:"0"`

	// Enable/disable settings change events
	KafkaEnabled bool `env:"KAFKA_ENABLED" env-default:"false"`
	// Kafka brokers (comma-separated)
	KafkaBrokers string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	// Kafka topic for settings change events
	KafkaSettingsTopic string `env:"KAFKA_SETTINGS_TOPIC" env-default:"community-settings"`

	// Quiet period before a community name edit is sent
	CommunityNameDebounce time.Duration `env:"COMMUNITY_NAME_DEBOUNCE" env-default:"1s"`
	// Google Drive tab is "coming soon" until this is switched on
	HivemindGDriveEnabled bool `env:"HIVEMIND_GDRIVE_ENABLED" env-default:"false"`

	// Tracing settings
	// Enable OTLP tracing export (set to true to send traces to collector)
	OTLPEnabled bool `env:"OTLP_ENABLED" env-default:"false"`
	// OTLP collector endpoint
	OTLPEndpoint string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	// OTLP protocol (grpc or http)
	OTLPProtocol string `env:"OTLP_PROTOCOL" env-default:"grpc"`
	// Disable TLS for OTLP (for local development)
	OTLPInsecure bool `env:"OTLP_INSECURE" env-default:"true"`

	// Auth Enabled - when false, allows X-User-ID headers for testing
	AuthEnabled bool `env:"AUTH_ENABLED" env-default:"false"`
	// Auth Issuer URL
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" env-default:""`
	// Auth Client ID
	AuthClientID string `env:"AUTH_CLIENT_ID" env-default:""`
}

// Load reads .env (when present) and then the process environment
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks combinations cleanenv cannot express
func (c *Config) Validate() error {
	if c.BackendBaseURL == "" {
		return errors.New("BACKEND_BASE_URL is required")
	}
	if c.SessionStore != "redis" && c.SessionStore != "memory" {
		return errors.New("SESSION_STORE must be redis or memory")
	}
	if c.AuthEnabled && (c.AuthIssuerURL == "" || c.AuthClientID == "") {
		return errors.New("AUTH_ISSUER_URL and AUTH_CLIENT_ID are required when AUTH_ENABLED is true")
	}
	if c.CommunityNameDebounce <= 0 {
		return errors.New("COMMUNITY_NAME_DEBOUNCE must be positive")
	}
	return nil
}
