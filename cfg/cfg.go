package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Cfg struct {
	HTTPPort    string
	IngestPort  string
	Host        string
	Environment string
	LogLevel    string

	DatabasePath   string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBQueryTimeout time.Duration

	RedisURL     string
	RedisTimeout time.Duration

	MaxPasteSize  int
	LRUCacheSize  int
	SweepInterval time.Duration

	AdmitPermits   int
	AdmitWindow    time.Duration
	AdmitQueueSize int

	ContextTimeout time.Duration
	IngestTimeout  time.Duration
}

func Load() (*Cfg, error) {
	c := &Cfg{}
	c.HTTPPort = getEnv("HTTP_PORT", "8080")
	c.IngestPort = getEnv("INGEST_PORT", "9999")
	c.Host = getEnv("HOST", "localhost")
	c.Environment = getEnv("ENVIRONMENT", "development")
	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.DatabasePath = getEnv("DATABASE_PATH", "flybin.db")
	var err error
	c.DBMaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 100)
	if err != nil {
		return nil, err
	}
	c.DBMaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, err
	}
	c.DBQueryTimeout, err = getDuration("DB_QUERY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	c.RedisURL = getEnv("REDIS_URL", "")
	c.RedisTimeout, err = getDuration("REDIS_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	c.MaxPasteSize, err = getInt("MAX_PASTE_SIZE", 4096)
	if err != nil {
		return nil, err
	}
	c.LRUCacheSize, err = getInt("LRU_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	c.SweepInterval, err = getDuration("SWEEP_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	c.AdmitPermits, err = getInt("ADMIT_PERMITS", 5)
	if err != nil {
		return nil, err
	}
	c.AdmitWindow, err = getDuration("ADMIT_WINDOW", 30*time.Second)
	if err != nil {
		return nil, err
	}
	c.AdmitQueueSize, err = getInt("ADMIT_QUEUE_SIZE", 1024)
	if err != nil {
		return nil, err
	}
	c.ContextTimeout, err = getDuration("CONTEXT_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	c.IngestTimeout, err = getDuration("INGEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func Validate(c *Cfg) error {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT is required")
	}
	if _, err := strconv.Atoi(c.HTTPPort); err != nil {
		return errors.New("HTTP_PORT must be a number")
	}
	if c.IngestPort == "" {
		return errors.New("INGEST_PORT is required")
	}
	if _, err := strconv.Atoi(c.IngestPort); err != nil {
		return errors.New("INGEST_PORT must be a number")
	}
	if c.IngestPort == c.HTTPPort {
		return errors.New("INGEST_PORT and HTTP_PORT must differ")
	}
	if c.Host == "" {
		return errors.New("HOST is required")
	}
	if c.DatabasePath == "" {
		return errors.New("DATABASE_PATH is required")
	}
	if c.RedisURL != "" {
		if !strings.HasPrefix(c.RedisURL, "redis://") && !strings.HasPrefix(c.RedisURL, "rediss://") {
			return errors.New("REDIS_URL must start with redis:// or rediss://")
		}
	}
	if c.MaxPasteSize <= 0 {
		return errors.New("MAX_PASTE_SIZE must be positive")
	}
	if c.MaxPasteSize > 10*1024*1024 {
		return errors.New("MAX_PASTE_SIZE cannot exceed 10MB")
	}
	if c.LRUCacheSize <= 0 {
		return errors.New("LRU_CACHE_SIZE must be positive")
	}
	if c.AdmitPermits <= 0 {
		return errors.New("ADMIT_PERMITS must be positive")
	}
	if c.AdmitWindow < time.Second {
		return errors.New("ADMIT_WINDOW must be at least 1s")
	}
	if c.AdmitQueueSize <= 0 {
		return errors.New("ADMIT_QUEUE_SIZE must be positive")
	}
	if c.SweepInterval < time.Minute {
		return errors.New("SWEEP_INTERVAL must be at least 1 minute")
	}
	return nil
}

// BaseURL is the public retrieval prefix quoted back to clients in the
// ingestion and delete confirmations.
func (c *Cfg) BaseURL() string {
	return fmt.Sprintf("http://%s:%s", c.Host, c.HTTPPort)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return v, nil
}
