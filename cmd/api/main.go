package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farmdirect/farmdirect-golang/internal/auth"
	"github.com/farmdirect/farmdirect-golang/internal/config"
	"github.com/farmdirect/farmdirect-golang/internal/database"
	"github.com/farmdirect/farmdirect-golang/internal/handlers"
	"github.com/farmdirect/farmdirect-golang/internal/migrations"
	"github.com/farmdirect/farmdirect-golang/internal/routes"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := godotenv.Load(); err != nil {
		logrus.Warn("no .env file found, reading configuration from environment")
	}

	cfg := config.Load()
	auth.SetSecret(cfg.JWTSecret)

	db, err := database.Open(cfg.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("could not connect to the database")
	}
	defer db.Close()

	if err := migrations.Migrate(db); err != nil {
		logrus.WithError(err).Fatal("could not run database migrations")
	}

	h := &handlers.Handlers{DB: db}
	router := routes.SetupRouter(h, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logrus.WithField("addr", cfg.HTTPAddr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Fatal("forced shutdown")
	}

	logrus.Info("server stopped")
}
