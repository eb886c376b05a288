// Package config загружает конфигурацию сервера из переменных окружения
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultProductionSlack допуск превышения выработки над остатком по
// умолчанию. Унаследованная константа без документированного обоснования;
// сохранена как настраиваемый порог.
const DefaultProductionSlack = 50

// Config конфигурация сервера
type Config struct {
	// Сервер
	Port string

	// База данных
	DatabasePath    string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Сверка
	ProductionSlack float64

	// Ограничение загрузок выгрузок
	UploadRPS   float64
	UploadBurst int
}

// LoadConfig загружает конфигурацию из переменных окружения с значениями
// по умолчанию
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DatabasePath:    getEnv("DATABASE_PATH", "./plant.db"),
		MaxOpenConns:    getEnvInt("MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvInt("MAX_IDLE_CONNS", 3),
		ConnMaxLifetime: getEnvDuration("CONN_MAX_LIFETIME", 5*time.Minute),
		ProductionSlack: getEnvFloat("PRODUCTION_SLACK", DefaultProductionSlack),
		UploadRPS:       getEnvFloat("UPLOAD_RPS", 1),
		UploadBurst:     getEnvInt("UPLOAD_BURST", 5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.ProductionSlack < 0 {
		return fmt.Errorf("production slack must not be negative, got %v", c.ProductionSlack)
	}
	if c.UploadRPS <= 0 {
		return fmt.Errorf("upload rps must be positive, got %v", c.UploadRPS)
	}
	if c.UploadBurst <= 0 {
		return fmt.Errorf("upload burst must be positive, got %v", c.UploadBurst)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
