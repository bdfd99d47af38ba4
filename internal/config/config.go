package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	AppName       string
	AppEnv        string
	AppPort       string
	PublicBaseURL string

	Log       LogConfig
	DB        DBConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	RabbitMQ  RabbitMQConfig
	Worker    WorkerConfig
	JWT       JWTConfig
	CORS      CORSConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host          string
	Port          string
	RedisPassword string
	RedisDB       string
}

// Enabled reports whether a Redis server was configured at all.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type RateLimitConfig struct {
	Capacity   int
	RefillRate float64
}

type RabbitMQConfig struct {
	URL         string
	EventsQueue string
}

// Enabled reports whether task events should be published.
func (c RabbitMQConfig) Enabled() bool {
	return c.URL != ""
}

type WorkerConfig struct {
	Count       int
	MetricsPort string
}

type JWTConfig struct {
	Secret         string
	AccessLifespan time.Duration
	RefreshGrace   time.Duration
}

type CORSConfig struct {
	AllowOrigins []string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables always win over it.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}

	return &Config{
		AppName:       getEnv("APP_NAME", "todo-api"),
		AppEnv:        getEnv("APP_ENV", "development"),
		AppPort:       getEnv("APP_PORT", "8087"),
		PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),

		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},

		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "todo"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		Redis: RedisConfig{
			Host:          os.Getenv("REDIS_HOST"),
			Port:          getEnv("REDIS_PORT", "6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getEnv("REDIS_DB", "0"),
		},

		RateLimit: RateLimitConfig{
			Capacity:   getEnvInt("RATE_LIMIT_CAPACITY", 20),
			RefillRate: getEnvFloat("RATE_LIMIT_REFILL_RATE", 10.0),
		},

		RabbitMQ: RabbitMQConfig{
			URL:         os.Getenv("RABBITMQ_URL"),
			EventsQueue: getEnv("TASK_EVENTS_QUEUE", "task_events"),
		},

		Worker: WorkerConfig{
			Count:       getEnvInt("WORKER_COUNT", 3),
			MetricsPort: getEnv("WORKER_METRICS_PORT", "8088"),
		},

		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessLifespan: getEnvDuration("JWT_ACCESS_LIFESPAN", 20*time.Minute),
			RefreshGrace:   getEnvDuration("JWT_REFRESH_GRACE", 0),
		},

		CORS: CORSConfig{
			AllowOrigins: getEnvList("CORS_ALLOW_ORIGINS", []string{"*"}),
		},
	}
}

// Validate checks the values the service cannot start without.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWT.AccessLifespan <= 0 {
		return errors.New("JWT_ACCESS_LIFESPAN must be positive")
	}
	if c.JWT.RefreshGrace < 0 {
		return errors.New("JWT_REFRESH_GRACE must not be negative")
	}
	if c.RateLimit.Capacity < 1 || c.RateLimit.RefillRate <= 0 {
		return errors.New("rate limit capacity and refill rate must be positive")
	}
	if c.Worker.Count < 1 {
		return errors.New("WORKER_COUNT must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logrus.WithField("key", key).Warnf("Invalid integer %q, using default %d", value, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logrus.WithField("key", key).Warnf("Invalid number %q, using default %v", value, fallback)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logrus.WithField("key", key).Warnf("Invalid duration %q, using default %s", value, fallback)
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
