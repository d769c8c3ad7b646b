package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"github.com/videostream/videostream_server/internal"
	"github.com/videostream/videostream_server/internal/storage"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", internal.DefaultConfigPath, "path to the YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	config, err := internal.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
		return
	}
	internal.SetupLogging(config.Log)

	backend, err := storage.NewBackend(&config.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing storage")
		return
	}

	var db *sql.DB
	if config.Database.Driver == internal.DatabaseDriverPostgres {
		db, err = internal.NewDB(config.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing database")
			return
		}
		defer db.Close()
	} else {
		log.Warn().Msg("Using in-memory repositories, data is lost on restart")
	}

	app, err := internal.NewApp(config, backend, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Error wiring application")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Seed(ctx, config.Seed, backend); err != nil {
		log.Fatal().Err(err).Msg("Error seeding data")
		return
	}

	server := &fasthttp.Server{
		Handler:               app.Handler,
		Name:                  "videostream",
		ReadTimeout:           config.Server.ReadTimeout,
		IdleTimeout:           config.Server.IdleTimeout,
		NoDefaultServerHeader: true,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Hub.Run(gctx)
	})
	g.Go(func() error {
		return app.Cleanup.Run(gctx)
	})
	g.Go(func() error {
		log.Info().
			Str("address", config.Server.Address).
			Str("version", config.Server.Version).
			Str("storage", string(config.Storage.Type)).
			Str("database", config.Database.Driver).
			Msg("Starting server")
		return server.ListenAndServe(config.Server.Address)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
		defer cancel()
		return server.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
	log.Info().Msg("Server stopped")
}
