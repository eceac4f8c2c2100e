package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// MaxDBOpenConns caps the postgres pool size.
const MaxDBOpenConns = 20

type Config struct {
	TelegramBotToken string
	GeminiAPIKey     string
	GeminiModel      string
	SpeechAPIKey     string
	SpeechLanguage   string
	DatabaseURL      string
	Port             string
	LogLevel         string
	LogDir           string
	Timezone         string

	// USD amounts are converted to UZS at this rate
	USDRate float64

	DBMaxOpenConns int
	DBMaxIdleConns int

	WorkerCount      int
	WorkerQueueSize  int
	MaxConcurrentOps int

	MaxVoiceSeconds int
}

func Load() (*Config, error) {
	// .env is optional; hosted deployments inject the environment directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		SpeechLanguage:   getEnvOrDefault("SPEECH_LANGUAGE", "uz-UZ"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		Port:             getEnvOrDefault("PORT", "8080"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		LogDir:           getEnvOrDefault("LOG_DIR", "logs"),
		Timezone:         getEnvOrDefault("BOT_TIMEZONE", "Asia/Tashkent"),
	}
	cfg.SpeechAPIKey = getEnvOrDefault("SPEECH_API_KEY", cfg.GeminiAPIKey)

	var err error
	if cfg.USDRate, err = getFloatOrDefault("USD_RATE", 12800); err != nil {
		return nil, err
	}

	ints := []struct {
		key   string
		dst   *int
		value int
	}{
		{"DB_MAX_OPEN_CONNS", &cfg.DBMaxOpenConns, MaxDBOpenConns},
		{"DB_MAX_IDLE_CONNS", &cfg.DBMaxIdleConns, 1},
		{"WORKER_COUNT", &cfg.WorkerCount, 8},
		{"WORKER_QUEUE_SIZE", &cfg.WorkerQueueSize, 100},
		{"MAX_CONCURRENT_OPS", &cfg.MaxConcurrentOps, 20},
		{"MAX_VOICE_SECONDS", &cfg.MaxVoiceSeconds, 60},
	}
	for _, v := range ints {
		if *v.dst, err = getIntOrDefault(v.key, v.value); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"TELEGRAM_BOT_TOKEN": c.TelegramBotToken,
		"DATABASE_URL":       c.DatabaseURL,
	}

	for key, value := range required {
		if value == "" {
			return fmt.Errorf("required environment variable %s is not set", key)
		}
	}

	if c.USDRate <= 0 {
		return fmt.Errorf("USD_RATE must be positive, got %v", c.USDRate)
	}
	if c.DBMaxOpenConns > MaxDBOpenConns {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be at most %d, got %d", MaxDBOpenConns, c.DBMaxOpenConns)
	}
	if c.DBMaxOpenConns < 1 || c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
		return fmt.Errorf("invalid database pool bounds: idle=%d open=%d", c.DBMaxIdleConns, c.DBMaxOpenConns)
	}
	if c.WorkerCount < 1 || c.WorkerQueueSize < 1 || c.MaxConcurrentOps < 1 {
		return fmt.Errorf("worker settings must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid BOT_TIMEZONE %q: %w", c.Timezone, err)
	}

	return nil
}

func (c *Config) HasLLMConfig() bool {
	return c.GeminiAPIKey != "" && c.GeminiModel != ""
}

func (c *Config) HasSpeechConfig() bool {
	return c.SpeechAPIKey != "" && c.SpeechLanguage != ""
}

// Location returns the configured time zone, UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnvOrDefault returns the environment variable value or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return v, nil
}

func getFloatOrDefault(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be a number: %w", key, err)
	}
	return v, nil
}
