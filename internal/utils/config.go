package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	UserStoreMongo    = "mongo"
	UserStorePostgres = "postgres"
	UserStoreMemory   = "memory"
)

var ErrJWTSecretRequired = errors.New("config: JWT_SECRET is required")

type Config struct {
	ServerPort      string
	JWTSecret       string
	TokenTTL        time.Duration
	UserStore       string
	FrontendOrigins []string
	Postgres        PostgresConfig
	Mongo           MongoConfig
	Redis           RedisConfig
	Logging         LoggingConfig
	Gemini          GeminiConfig
}

type PostgresConfig struct {
	DSN               string
	Host              string
	Port              int
	User              string
	Password          string
	Database          string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// RedisConfig is optional; an empty URL keeps token revocation in memory.
type RedisConfig struct {
	URL string
}

type LoggingConfig struct {
	Level        string
	Encoding     string
	Development  bool
	EnableCaller bool
	ServiceName  string
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

const defaultFrontendOrigins = "http://localhost:5173,https://vishai.netlify.app,https://vish-ai.vercel.app"

func LoadConfig() (*Config, error) {
	pgPort, _ := strconv.Atoi(envOrDefault("POSTGRES_PORT", "5432"))
	maxConns := parseInt32(envOrDefault("POSTGRES_MAX_CONNS", "8"), 8)
	minConns := parseInt32(envOrDefault("POSTGRES_MIN_CONNS", "1"), 1)

	logging := LoggingConfig{
		Level:        strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		Encoding:     strings.ToLower(envOrDefault("LOG_ENCODING", "console")),
		Development:  parseBool(envOrDefault("LOG_DEVELOPMENT", "false"), false),
		EnableCaller: parseBool(envOrDefault("LOG_CALLER", "false"), false),
		ServiceName:  envOrDefault("SERVICE_NAME", "vishai-server"),
	}

	cfg := &Config{
		ServerPort:      envOrDefault("PORT", "5000"),
		JWTSecret:       strings.TrimSpace(os.Getenv("JWT_SECRET")),
		TokenTTL:        parseDuration(envOrDefault("JWT_TTL", "24h"), 24*time.Hour),
		UserStore:       strings.ToLower(envOrDefault("USER_STORE", UserStoreMongo)),
		FrontendOrigins: ParseOrigins(envOrDefault("FRONTEND_URLS", defaultFrontendOrigins)),
		Postgres: PostgresConfig{
			DSN:               os.Getenv("POSTGRES_DSN"),
			Host:              envOrDefault("POSTGRES_HOST", "localhost"),
			Port:              pgPort,
			User:              envOrDefault("POSTGRES_USER", "postgres"),
			Password:          os.Getenv("POSTGRES_PASSWORD"),
			Database:          envOrDefault("POSTGRES_DB", "postgres"),
			MaxConns:          maxConns,
			MinConns:          minConns,
			MaxConnLifetime:   parseDuration(envOrDefault("POSTGRES_MAX_CONN_LIFETIME", "1h"), time.Hour),
			MaxConnIdleTime:   parseDuration(envOrDefault("POSTGRES_MAX_CONN_IDLE", "30m"), 30*time.Minute),
			HealthCheckPeriod: parseDuration(envOrDefault("POSTGRES_HEALTH_CHECK_PERIOD", "1m"), time.Minute),
			ConnectTimeout:    parseDuration(envOrDefault("POSTGRES_CONNECT_TIMEOUT", "5s"), 5*time.Second),
		},
		Mongo: LoadMongoConfig(),
		Redis: RedisConfig{
			URL: strings.TrimSpace(os.Getenv("REDIS_URL")),
		},
		Logging: logging,
		Gemini: GeminiConfig{
			APIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Model:   envOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
			BaseURL: envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
			Timeout: parseDuration(envOrDefault("AI_TIMEOUT", "60s"), 60*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadMongoConfig reads only the Mongo settings; it needs no JWT secret, so
// maintenance scripts can use it.
func LoadMongoConfig() MongoConfig {
	return MongoConfig{
		URI:            envOrDefault("MONGO_URI", "mongodb://127.0.0.1:27017"),
		Database:       envOrDefault("MONGO_DATABASE", "vishai"),
		ConnectTimeout: parseDuration(envOrDefault("MONGO_CONNECT_TIMEOUT", "5s"), 5*time.Second),
	}
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return ErrJWTSecretRequired
	}

	switch c.UserStore {
	case UserStoreMongo, UserStoreMemory:
	case UserStorePostgres:
		if c.Postgres.DSN == "" && c.Postgres.Password == "" {
			return fmt.Errorf("config: USER_STORE=postgres requires POSTGRES_DSN or POSTGRES_PASSWORD")
		}
	default:
		return fmt.Errorf("config: unknown USER_STORE %q", c.UserStore)
	}

	return nil
}

func (c PostgresConfig) BuildDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.Database)
}

// ParseOrigins splits a comma-separated origin list, dropping blanks and
// trailing slashes.
func ParseOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimRight(strings.TrimSpace(part), "/")
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func envOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt32(value string, fallback int32) int32 {
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return int32(i)
}

func parseBool(value string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}
