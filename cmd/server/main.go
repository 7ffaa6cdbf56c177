package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/regforecast/backend/internal/delivery/http"
	"github.com/regforecast/backend/internal/ingest"
	"github.com/regforecast/backend/internal/repository/postgres"
	"github.com/regforecast/backend/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Configuration
	cfg := loadConfig()

	futureYears, err := cfg.FutureYears()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	trainer, err := cfg.Trainer()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err == nil {
			err = pool.Ping(ctx)
		}
		if err != nil {
			log.Printf("Warning: Could not connect to database: %v", err)
			log.Println("Running with in-memory registrations only")
			if pool != nil {
				pool.Close()
			}
			pool = nil
		} else {
			defer pool.Close()
			log.Println("Connected to PostgreSQL")
		}
	}

	// Dependency Injection: Repositories
	var dataRepo service.DataRepository
	if pool != nil {
		pgRepo := postgres.NewPostgresRepository(pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			log.Fatalf("Database setup failed: %v", err)
		}
		dataRepo = pgRepo
	} else {
		dataRepo = postgres.NewMemoryRepository()
	}

	if cfg.DataFile != "" {
		records, err := ingest.LoadFile(cfg.DataFile)
		if err != nil {
			log.Fatalf("Failed to load %s: %v", cfg.DataFile, err)
		}
		if err := dataRepo.SaveRecords(ctx, records); err != nil {
			log.Fatalf("Failed to import %s: %v", cfg.DataFile, err)
		}
		log.Printf("Imported %d registration rows from %s", len(records), cfg.DataFile)
	}

	// Dependency Injection: Services
	orchestrator := service.NewOrchestrator(trainer, cfg.MaxConcurrency)
	forecastSvc := service.NewForecastService(dataRepo, orchestrator, futureYears)
	log.Printf("Forecasting %d-%d with %s backend", cfg.ForecastStart, cfg.ForecastEnd, trainer.Name())

	// Fiber App
	app := http.NewApp(http.NewHandler(forecastSvc, dataRepo, cfg.ForecastTimeout))

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	forecastSvc.WaitBackground()
	log.Println("Server exited gracefully")
}
