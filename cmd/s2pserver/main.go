package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kacperjurak/gos2pcore/pkg/cache"
	"github.com/kacperjurak/gos2pcore/pkg/config"
	"github.com/kacperjurak/gos2pcore/pkg/server"
	"github.com/kacperjurak/gos2pcore/pkg/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server exited")
}

// run returns instead of exiting so deferred cleanup always runs.
func run() error {
	cfg, serverConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if serverConfig.Env == "dev" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	opts := server.Options{
		Config:       cfg,
		ServerConfig: serverConfig,
	}

	if cfg.CacheEnabled {
		bc, err := cache.NewBadgerCache(cache.BadgerConfig{Path: cfg.CachePath})
		if err != nil {
			return fmt.Errorf("open decode cache: %w", err)
		}
		defer func() {
			if err := bc.Close(); err != nil {
				log.Warn().Err(err).Msg("decode cache close error")
			}
		}()
		opts.Cache = bc
	}

	if cfg.S3Bucket != "" {
		src, err := openObjects(cfg)
		if err != nil {
			return err
		}
		opts.Objects = src
	}

	srv := server.New(opts)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var startErr error
	select {
	case <-quit:
		log.Info().Msg("received shutdown signal")
	case startErr = <-serverErr:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	return startErr
}

func openObjects(cfg *config.Config) (*storage.S3Source, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	src, err := storage.NewS3Source(ctx, storage.S3Config{
		Bucket:   cfg.S3Bucket,
		Endpoint: cfg.S3Endpoint,
		Region:   cfg.AWSRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("create object source: %w", err)
	}
	// Local MinIO setups start without the bucket.
	if cfg.S3Endpoint != "" {
		if err := src.EnsureBucket(ctx); err != nil {
			log.Warn().Err(err).Str("bucket", cfg.S3Bucket).Msg("could not ensure bucket")
		}
	}
	return src, nil
}
