// cmd/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"genmon-backend/internal/config"
	"genmon-backend/internal/database"
	"genmon-backend/internal/handlers"
	"genmon-backend/internal/logger"
	"genmon-backend/internal/middleware"
	"genmon-backend/internal/workers"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.LoadConfig()
	log := logger.New(cfg.LogLevel)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db := connectDatabase(cfg, log)
	if db != nil {
		defer db.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if db != nil {
		migrator := workers.NewSchemaMigrator(db, log)
		bootstrap := workers.NewAdminBootstrapper(db, log, cfg.AdminUsername, cfg.AdminPassword)
		go func() {
			if err := migrator.Run(ctx); err != nil {
				return
			}
			if cfg.AdminConfigured() {
				bootstrap.Run(ctx)
			}
		}()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	handlers.RegisterRoutes(r, db, log, cfg.IsDevelopment())

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":        cfg.Port,
			"environment": cfg.Environment,
		}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	<-sigCh
	log.Info("Gracefully shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
}

// connectDatabase возвращает nil, только если DATABASE_URL не задан или не разбирается.
// Недоступная при старте база не мешает запуску: пул подключится позже,
// а до тех пор /health отвечает "Database connection failed".
func connectDatabase(cfg *config.Config, log *logrus.Logger) *database.DB {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL is not set, database routes will respond with 503")
		return nil
	}

	db, err := database.Open(cfg.DatabaseURL, database.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.WithError(err).Error("Invalid DATABASE_URL, database routes will respond with 503")
		return nil
	}

	if err := db.Ping(); err != nil {
		log.WithError(err).WithField("code", database.ErrorCode(err)).Warn("Database is not reachable, will keep retrying")
		return db
	}

	log.WithField("dialect", db.Dialect.String()).Info("Connected to database")
	return db
}
