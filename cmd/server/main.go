package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/gochat-rooms/internal/logging"
	"github.com/Tyrowin/gochat-rooms/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be set.
	envErr := godotenv.Load()

	config, err := server.LoadConfig()
	if err != nil {
		return err
	}

	log, err := logging.New(config.LoggingConfig())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if envErr != nil {
		log.Debug("no .env file loaded", zap.Error(envErr))
	}

	srv := server.New(*config, log)
	httpServer := server.CreateServer(config.Port, srv.SetupRoutes())
	shutdownTimeout := srv.Config().ShutdownTimeout

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	srv.StartHub()
	g.Go(func() error {
		return server.StartServer(httpServer, log)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down gracefully")
		httpErr := server.ShutdownServer(httpServer, shutdownTimeout, log)
		if err := srv.Hub().Shutdown(shutdownTimeout); err != nil {
			log.Warn("hub shutdown incomplete", zap.Error(err))
		}
		return httpErr
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped cleanly")
	return nil
}
