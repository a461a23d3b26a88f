package config

import (
	"fmt"
	"time"

	"github.com/UkralStul/localized-view-service/internal/translator"
	"github.com/caarlos0/env/v11"
)

// Config - настройки сервиса из переменных окружения.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Storage     string `env:"STORAGE" envDefault:"in-memory"`
	DatabaseURL string `env:"DATABASE_URL"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	JWTSecret   string `env:"JWT_SECRET" envDefault:"dev-secret"`

	TranslationProvider string        `env:"TRANSLATION_PROVIDER" envDefault:"openai"`
	TranslationTimeout  time.Duration `env:"TRANSLATION_TIMEOUT" envDefault:"60s"`
	CacheSize           int           `env:"TRANSLATION_CACHE_SIZE" envDefault:"4096"`
	OpenAIKey           string        `env:"OPENAI_API_KEY"`
	OpenAIModel         string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	GeminiKey           string        `env:"GEMINI_API_KEY"`
	GeminiModel         string        `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
}

// Load читает конфигурацию из окружения.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch c.Storage {
	case "in-memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage %q (in-memory or postgres)", c.Storage)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("TRANSLATION_CACHE_SIZE must be positive")
	}
	return nil
}

// Translator возвращает настройки провайдера перевода.
func (c Config) Translator() translator.Config {
	return translator.Config{
		Provider:    c.TranslationProvider,
		OpenAIKey:   c.OpenAIKey,
		OpenAIModel: c.OpenAIModel,
		GeminiKey:   c.GeminiKey,
		GeminiModel: c.GeminiModel,
		Timeout:     c.TranslationTimeout,
	}
}
