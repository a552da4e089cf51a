package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Transports supported by the tool server.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Leave store backends.
const (
	LeaveStoreMemory   = "memory"
	LeaveStoreRedis    = "redis"
	LeaveStorePostgres = "postgres"
)

type Config struct {
	Env           string
	Port          int
	APIPrefix     string
	ServerName    string
	ServerVersion string
	Transport     string
	MaxDuration   time.Duration
	RESTEnabled   bool

	Database DatabaseConfig
	Redis    RedisConfig
	Leave    LeaveConfig
	Course   CourseConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig points at the optional shared cache/session backend. URL wins over the
// discrete host fields when both are present.
type RedisConfig struct {
	URL      string
	Host     string
	Port     int
	Password string
	DB       int

	SessionStoreEnabled bool
	SessionTTL          time.Duration
}

// Configured reports whether any Redis connection settings were supplied.
func (c RedisConfig) Configured() bool {
	return c.URL != "" || c.Host != ""
}

// LeaveConfig selects the leave store backend.
type LeaveConfig struct {
	Store string
	Seed  bool
}

// CourseConfig configures the external class search proxy.
type CourseConfig struct {
	BaseURL       string
	DetailTimeout time.Duration
	SearchTimeout time.Duration
	CacheEnabled  bool
	CacheTTL      time.Duration
}

// AuthConfig guards the HTTP surfaces. Either a JWT signed with Secret or an API key
// matching APIKeyHash (bcrypt) is accepted.
type AuthConfig struct {
	Enabled    bool
	Secret     string
	APIKeyHash string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig toggles Prometheus instrumentation.
type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.ServerName = v.GetString("SERVER_NAME")
	cfg.ServerVersion = v.GetString("SERVER_VERSION")
	cfg.Transport = strings.ToLower(strings.TrimSpace(v.GetString("TRANSPORT")))
	cfg.MaxDuration = parseDuration(v.GetString("MAX_DURATION"), time.Minute)
	cfg.RESTEnabled = v.GetBool("ENABLE_REST_API")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		URL:      strings.TrimSpace(v.GetString("REDIS_URL")),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}
	cfg.Redis.SessionStoreEnabled = v.GetBool("ENABLE_SESSION_STORE") && cfg.Redis.Configured()
	cfg.Redis.SessionTTL = parseDuration(v.GetString("SESSION_TTL"), 24*time.Hour)

	cfg.Leave = LeaveConfig{
		Store: strings.ToLower(strings.TrimSpace(v.GetString("LEAVE_STORE"))),
		Seed:  v.GetBool("LEAVE_SEED"),
	}

	cfg.Course = CourseConfig{
		BaseURL:       strings.TrimSpace(v.GetString("COURSE_API_BASE_URL")),
		DetailTimeout: parseDuration(v.GetString("COURSE_DETAIL_TIMEOUT"), 15*time.Second),
		SearchTimeout: parseDuration(v.GetString("COURSE_SEARCH_TIMEOUT"), 20*time.Second),
		CacheEnabled:  v.GetBool("ENABLE_COURSE_CACHE"),
		CacheTTL:      parseDuration(v.GetString("COURSE_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Auth = AuthConfig{
		Enabled:    v.GetBool("AUTH_ENABLED"),
		Secret:     v.GetString("JWT_SECRET"),
		APIKeyHash: v.GetString("API_KEY_HASH"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Transport {
	case TransportHTTP, TransportStdio:
	default:
		return fmt.Errorf("unsupported TRANSPORT %q", c.Transport)
	}
	switch c.Leave.Store {
	case LeaveStoreMemory, LeaveStorePostgres:
	case LeaveStoreRedis:
		if !c.Redis.Configured() {
			return errors.New("LEAVE_STORE=redis requires REDIS_URL or REDIS_HOST")
		}
	default:
		return fmt.Errorf("unsupported LEAVE_STORE %q", c.Leave.Store)
	}
	if c.Course.BaseURL == "" {
		return errors.New("COURSE_API_BASE_URL must not be empty")
	}
	if c.Auth.Enabled && c.Auth.Secret == "" && c.Auth.APIKeyHash == "" {
		return errors.New("AUTH_ENABLED requires JWT_SECRET or API_KEY_HASH")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("SERVER_NAME", "campus-tools")
	v.SetDefault("SERVER_VERSION", "0.1.0")
	v.SetDefault("TRANSPORT", TransportHTTP)
	v.SetDefault("MAX_DURATION", "60s")
	v.SetDefault("ENABLE_REST_API", true)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "campus_tools")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ENABLE_SESSION_STORE", true)
	v.SetDefault("SESSION_TTL", "24h")

	v.SetDefault("LEAVE_STORE", LeaveStoreMemory)
	v.SetDefault("LEAVE_SEED", true)

	v.SetDefault("COURSE_API_BASE_URL", "https://api.example.edu/v1/classes/search")
	v.SetDefault("COURSE_DETAIL_TIMEOUT", "15s")
	v.SetDefault("COURSE_SEARCH_TIMEOUT", "20s")
	v.SetDefault("ENABLE_COURSE_CACHE", false)
	v.SetDefault("COURSE_CACHE_TTL", "5m")

	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("API_KEY_HASH", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ENABLE_METRICS", true)
}

// viper surfaces a plain fs error when SetConfigFile points at a missing path.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
