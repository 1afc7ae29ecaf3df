package main

import (
	"context"
	"log"
	"time"

	"gofunnel/adapters/excel"
	"gofunnel/adapters/postgres"
	"gofunnel/app"
	"gofunnel/internal/config"
	"gofunnel/internal/errors"
	"gofunnel/ui"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// initDatabase initializes the PostgreSQL connection and schema
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.StorageFailed("failed to connect to database", err)
	}

	if err := db.Ping(); err != nil {
		return nil, errors.StorageFailed("failed to ping database", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, errors.StorageFailed("schema setup failed", err)
	}

	return db, nil
}

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		log.Println("[Main] no .env file found, using environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("[Main] configuration error: %v", err)
	}

	db, err := initDatabase(appConfig)
	if err != nil {
		log.Fatalf("[Main] database error: %v", err)
	}
	defer db.Close()
	log.Println("[Main] database connected, schema ready")

	service := app.NewAnalysisService(
		excel.NewObservationReader(),
		postgres.NewAnalysisRepository(db),
		int64(appConfig.Funnel.MaxConcurrency),
	)

	gin.SetMode(appConfig.Server.GinMode)
	server := ui.NewServer(service)
	addr := ":" + appConfig.Server.Port
	if err := server.Start(addr); err != nil {
		log.Fatalf("[Main] server error: %v", err)
	}
}
