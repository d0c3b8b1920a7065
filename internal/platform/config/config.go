package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string
	// DatabaseURL is the Postgres DSN backing every store.
	DatabaseURL string
	// AdminTokenHash is the bcrypt hash of the operator token guarding
	// the admin surface. Empty disables the admin routes.
	AdminTokenHash string
	// JWTSigningKey verifies bearer tokens on the read surface.
	JWTSigningKey string
	Redis         RedisConfig
	// RegistryCacheTTL bounds staleness of decision-time registry reads.
	RegistryCacheTTL time.Duration
}

// RedisConfig configures the optional registry cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays
// lean.
func FromEnv() Server {
	cfg := Server{
		Addr:             envOr("LABTRAIL_ADDR", ":8080"),
		DatabaseURL:      os.Getenv("LABTRAIL_DATABASE_URL"),
		AdminTokenHash:   os.Getenv("LABTRAIL_ADMIN_TOKEN_HASH"),
		JWTSigningKey:    os.Getenv("LABTRAIL_JWT_SIGNING_KEY"),
		RegistryCacheTTL: durationOr("LABTRAIL_REGISTRY_CACHE_TTL", 5*time.Minute),
		Redis: RedisConfig{
			URL:          os.Getenv("LABTRAIL_REDIS_URL"),
			PoolSize:     intOr("LABTRAIL_REDIS_POOL_SIZE", 10),
			MinIdleConns: intOr("LABTRAIL_REDIS_MIN_IDLE", 2),
			DialTimeout:  durationOr("LABTRAIL_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationOr("LABTRAIL_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationOr("LABTRAIL_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
