package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type DBConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	MaxOpenConns int
	MaxIdleConns int
}

func LoadConfigDB() (*DBConfig, error) {
	err := godotenv.Load(filepath.Join("config.env"))
	if err != nil {
		return nil, err
	}

	port, err := strconv.Atoi(os.Getenv("DB_PORT"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxOpen, err := strconv.Atoi(os.Getenv("DB_MAX_OPEN_CONNS"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}

	maxIdle, err := strconv.Atoi(os.Getenv("DB_MAX_IDLE_CONNS"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}

	return &DBConfig{
		Host:         os.Getenv("DB_HOST"),
		Port:         port,
		User:         os.Getenv("DB_USER"),
		Password:     os.Getenv("DB_PASSWORD"),
		Name:         os.Getenv("DB_NAME"),
		MaxOpenConns: maxOpen,
		MaxIdleConns: maxIdle,
	}, nil
}

// ProcessingConfig carries every tunable of the transaction validation and
// processing engine. Defaults match the production RPA settings.
type ProcessingConfig struct {
	BatchSize        int
	BatchDelay       time.Duration
	ScheduleInterval time.Duration // 0 disables the periodic batch trigger

	DailyLimit    decimal.Decimal
	MinConfidence float64

	DuplicateWindow time.Duration
	DailyWindow     time.Duration

	RapidWindow   time.Duration
	RapidCount    int64
	NewAccountAge time.Duration
	LargeAmount   decimal.Decimal
	RoundTrip     time.Duration
	RoundTripEach int64

	AuditFailures bool

	KafkaBrokers []string
	KafkaTopic   string
}

func DefaultProcessingConfig() ProcessingConfig {
	return ProcessingConfig{
		BatchSize:        100,
		BatchDelay:       100 * time.Millisecond,
		ScheduleInterval: 5 * time.Minute,
		DailyLimit:       decimal.NewFromInt(10000),
		MinConfidence:    0.7,
		DuplicateWindow:  time.Minute,
		DailyWindow:      24 * time.Hour,
		RapidWindow:      5 * time.Minute,
		RapidCount:       5,
		NewAccountAge:    7 * 24 * time.Hour,
		LargeAmount:      decimal.NewFromInt(1000),
		RoundTrip:        time.Hour,
		RoundTripEach:    3,
		AuditFailures:    true,
		KafkaTopic:       "transaction_processed",
	}
}

// LoadProcessingConfig reads RPA_* environment overrides on top of the defaults.
func LoadProcessingConfig() (ProcessingConfig, error) {
	cfg := DefaultProcessingConfig()

	var err error
	if cfg.BatchSize, err = intFromEnv("RPA_TRANSACTION_BATCH_SIZE", cfg.BatchSize); err != nil {
		return ProcessingConfig{}, err
	}
	if cfg.BatchDelay, err = durationFromEnv("RPA_TRANSACTION_BATCH_DELAY", cfg.BatchDelay); err != nil {
		return ProcessingConfig{}, err
	}
	if cfg.ScheduleInterval, err = durationFromEnv("RPA_TRANSACTION_INTERVAL", cfg.ScheduleInterval); err != nil {
		return ProcessingConfig{}, err
	}
	if cfg.DailyLimit, err = decimalFromEnv("RPA_DAILY_LIMIT", cfg.DailyLimit); err != nil {
		return ProcessingConfig{}, err
	}
	if cfg.LargeAmount, err = decimalFromEnv("RPA_LARGE_AMOUNT", cfg.LargeAmount); err != nil {
		return ProcessingConfig{}, err
	}
	if v := os.Getenv("RPA_MIN_CONFIDENCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ProcessingConfig{}, fmt.Errorf("invalid RPA_MIN_CONFIDENCE: %w", err)
		}
		cfg.MinConfidence = f
	}
	if v := os.Getenv("RPA_AUDIT_FAILURES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ProcessingConfig{}, fmt.Errorf("invalid RPA_AUDIT_FAILURES: %w", err)
		}
		cfg.AuditFailures = b
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		for _, broker := range strings.Split(v, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.KafkaTopic = v
	}

	if cfg.BatchSize <= 0 {
		return ProcessingConfig{}, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}

	return cfg, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func decimalFromEnv(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
