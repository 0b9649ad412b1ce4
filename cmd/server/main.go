package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/baijianruoli/bot-chat/internal/bootstrap"
)

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize application")
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logrus.Info("Shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		app.Shutdown(ctx)
		os.Exit(0)
	}()

	if err := app.Start(); err != nil {
		logrus.WithError(err).Fatal("Server exited with error")
	}
}
