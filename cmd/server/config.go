package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/regforecast/backend/internal/ml"
)

type Config struct {
	DatabaseURL     string
	Port            string
	Env             string
	DataFile        string
	ForecastStart   int
	ForecastEnd     int
	ModelBackend    string
	Epochs          int
	LearningRate    float64
	TrainSeed       int64
	MaxConcurrency  int
	ForecastTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("GO_ENV", "development"),
		DataFile:        getEnv("DATA_FILE", ""),
		ForecastStart:   getEnvInt("FORECAST_START_YEAR", 2021),
		ForecastEnd:     getEnvInt("FORECAST_END_YEAR", 2030),
		ModelBackend:    getEnv("MODEL_BACKEND", "neural"),
		Epochs:          getEnvInt("EPOCHS", 500),
		LearningRate:    getEnvFloat("LEARNING_RATE", 0.01),
		TrainSeed:       int64(getEnvInt("TRAIN_SEED", 0)),
		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 4),
		ForecastTimeout: getEnvDuration("FORECAST_TIMEOUT", 2*time.Minute),
	}
}

// FutureYears expands the configured horizon
func (c *Config) FutureYears() ([]int, error) {
	if c.ForecastEnd < c.ForecastStart {
		return nil, fmt.Errorf("config: forecast end %d before start %d", c.ForecastEnd, c.ForecastStart)
	}
	years := make([]int, 0, c.ForecastEnd-c.ForecastStart+1)
	for y := c.ForecastStart; y <= c.ForecastEnd; y++ {
		years = append(years, y)
	}
	return years, nil
}

// Trainer builds the configured fitting backend
func (c *Config) Trainer() (ml.Trainer, error) {
	switch c.ModelBackend {
	case "neural":
		return ml.NewNeuralTrainer(ml.NeuralConfig{
			Epochs:       c.Epochs,
			LearningRate: c.LearningRate,
			Seed:         c.TrainSeed,
		}), nil
	case "linear":
		return ml.NewLinearTrainer(), nil
	default:
		return nil, fmt.Errorf("config: unknown MODEL_BACKEND %q", c.ModelBackend)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Invalid %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return d
}
