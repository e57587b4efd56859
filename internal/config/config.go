package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centralizes configuration loaded from the environment.
type Config struct {
	Port                 int
	DBDSN                string
	RedisURL             string
	JWTSecret            string
	JWTAccessTTL         time.Duration
	AllowOrigins         []string
	WSAllowedOrigins     []string
	RateLimitPublic      RateLimitConfig
	RateLimitAuth        RateLimitConfig
	RateLimitSubmit      RateLimitConfig
	Classifier           ClassifierConfig
	Kafka                KafkaConfig
	Pagination           PaginationConfig
	StaffDepartmentScope bool
	ShutdownTimeout      time.Duration
}

// RateLimitConfig represents simple throttling limits.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// ClassifierConfig points at the external classification service.
type ClassifierConfig struct {
	URL     string
	Timeout time.Duration
}

// KafkaConfig enables complaint event publication when Brokers and Topic are set.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// PaginationConfig bounds list endpoints.
type PaginationConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Load reads environment variables and applies safe defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "4000")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT invalid")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN required")
	}

	// empty keeps notifications in-process only
	cfg.RedisURL = strings.TrimSpace(getEnv("REDIS_URL", ""))

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET must be at least 32 characters")
	}
	cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.AllowOrigins = splitList(getEnv("ALLOW_ORIGINS", ""))
	cfg.WSAllowedOrigins = splitList(getEnv("WS_ALLOWED_ORIGINS", ""))

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	// each submission costs a classifier call
	perMinute, err := parseIntEnv("SUBMIT_RATE_PER_MINUTE", 6)
	if err != nil {
		return nil, err
	}
	submitBurst, err := parseIntEnv("SUBMIT_RATE_BURST", 3)
	if err != nil {
		return nil, err
	}
	if perMinute < 1 || submitBurst < 1 {
		return nil, errors.New("SUBMIT_RATE_PER_MINUTE and SUBMIT_RATE_BURST must be positive")
	}
	cfg.RateLimitSubmit = RateLimitConfig{RequestsPerSecond: float64(perMinute) / 60, Burst: submitBurst}

	cfg.Classifier.URL = strings.TrimRight(strings.TrimSpace(getEnv("CLASSIFIER_URL", "http://localhost:5001")), "/")
	if cfg.Classifier.URL == "" {
		return nil, errors.New("CLASSIFIER_URL required")
	}
	timeout, err := parseDurationEnv("CLASSIFIER_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, errors.New("CLASSIFIER_TIMEOUT must be positive")
	}
	cfg.Classifier.Timeout = timeout

	cfg.Kafka.Brokers = splitList(getEnv("KAFKA_BROKERS", ""))
	cfg.Kafka.Topic = strings.TrimSpace(getEnv("KAFKA_TOPIC", "complaint-events"))

	cfg.Pagination.DefaultPageSize, err = parseIntEnv("DEFAULT_PAGE_SIZE", 20)
	if err != nil {
		return nil, err
	}
	cfg.Pagination.MaxPageSize, err = parseIntEnv("MAX_PAGE_SIZE", 100)
	if err != nil {
		return nil, err
	}
	if cfg.Pagination.DefaultPageSize < 1 || cfg.Pagination.MaxPageSize < 1 {
		return nil, errors.New("page sizes must be positive")
	}
	if cfg.Pagination.DefaultPageSize > cfg.Pagination.MaxPageSize {
		return nil, errors.New("DEFAULT_PAGE_SIZE cannot exceed MAX_PAGE_SIZE")
	}

	scope, err := parseBoolEnv("STAFF_DEPARTMENT_SCOPE", false)
	if err != nil {
		return nil, err
	}
	cfg.StaffDepartmentScope = scope

	cfg.ShutdownTimeout, err = parseDurationEnv("SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " invalid")
	}
	return dur, nil
}

func parseIntEnv(key string, def int) (int, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.New(key + " invalid")
	}
	return n, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, errors.New(key + " invalid")
	}
	return b, nil
}
