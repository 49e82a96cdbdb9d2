package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"bookit/utils"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Environment   string
	MongoURI      string
	MongoDB       string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string
	JWTIssuer     string
	// AdminBootstrapUIDs grants admin to these subjects without a role record.
	AdminBootstrapUIDs string
	MediaRoot          string
	MediaURL           string
	PublicBaseURL      string
	CacheTTL           time.Duration
	CORSOrigins        []string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests need not touch
// the process environment.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:               getenv("PORT"),
		Environment:        getenv("ENV"),
		MongoURI:           getenv("MONGO_URI"),
		MongoDB:            getenv("MONGO_DB"),
		RedisAddr:          getenv("REDIS_ADDR"),
		RedisPassword:      getenv("REDIS_PASSWORD"),
		JWTSecret:          getenv("JWT_SECRET"),
		JWTIssuer:          getenv("JWT_ISSUER"),
		AdminBootstrapUIDs: getenv("ADMIN_BOOTSTRAP_UIDS"),
		MediaRoot:          getenv("MEDIA_ROOT"),
		MediaURL:           getenv("MEDIA_URL"),
		PublicBaseURL:      getenv("PUBLIC_BASE_URL"),
		CORSOrigins:        utils.SplitList(getenv("CORS_ORIGINS")),
	}

	if cfg.Port == "" {
		cfg.Port = ":8080"
	} else if cfg.Port[0] != ':' {
		cfg.Port = ":" + cfg.Port
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.MongoURI == "" {
		cfg.MongoURI = "mongodb://localhost:27017"
	}
	if cfg.MongoDB == "" {
		cfg.MongoDB = "bookings"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if cfg.MediaRoot == "" {
		cfg.MediaRoot = "static/media"
	}
	if cfg.MediaURL == "" {
		cfg.MediaURL = "/media/"
	}
	if !strings.HasPrefix(cfg.MediaURL, "/") {
		cfg.MediaURL = "/" + cfg.MediaURL
	}
	if !strings.HasSuffix(cfg.MediaURL, "/") {
		cfg.MediaURL += "/"
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	cfg.CacheTTL = 5 * time.Minute
	if raw := getenv("CACHE_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = ttl
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	return cfg, nil
}
