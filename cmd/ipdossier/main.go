// MIT License
//
// Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ipdossier/internal/api"
	"ipdossier/internal/api/handlers"
	"ipdossier/internal/banner"
	"ipdossier/internal/config"
	"ipdossier/internal/database"
	"ipdossier/internal/database/repositories"
	"ipdossier/internal/enrichment"
	"ipdossier/internal/ingestion"
	"ipdossier/internal/investigation"
	"ipdossier/internal/logging"
	"ipdossier/internal/metrics"
	"ipdossier/internal/storage"

	"github.com/pterm/pterm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		pterm.Error.Println("Invalid configuration:", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	if cfg.ShowBanner {
		banner.Print(bannerSettings(cfg))
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("IPDossier stopped with an error", logger.Args("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *pterm.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapter, closeAdapter, err := openAdapter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeAdapter()

	opts := []investigation.Option{
		investigation.WithTrendRetention(cfg.TrendRetention),
		investigation.WithSaveRetries(cfg.SaveRetries),
	}
	if cfg.MetricsEnabled {
		opts = append(opts, investigation.WithRecorder(metrics.Recorder{}))
	}

	geoIP := enrichment.NewGeoIPEnricher(cfg.GeoIPCityDB, cfg.GeoIPCountryDB, cfg.GeoIPASNDB, logger, cfg.GeoIPCacheSize)
	defer geoIP.Close()
	if geoIP.IsEnabled() {
		opts = append(opts, investigation.WithEnricher(geoIP))
	}

	store, err := investigation.Open(ctx, adapter, logger, opts...)
	if err != nil {
		return err
	}
	if rec := store.Recovery(); rec != nil {
		logger.Warn("Started on an empty document, the stored one is overwritten on the next write",
			logger.Args("reason", rec))
	}

	flusher := investigation.NewFlushService(store, logger, cfg.FlushInterval)
	flusher.Start()

	var inbox *ingestion.Inbox
	var inboxStats handlers.InboxStats
	if cfg.InboxEnabled {
		inbox = ingestion.NewInbox(cfg.InboxDir, store, logger)
		if err := inbox.Start(ctx); err != nil {
			logger.Warn("Submission inbox not started", logger.Args("dir", cfg.InboxDir, "error", err))
			inbox = nil
		} else {
			inboxStats = inbox
		}
	}

	server := api.NewServer(api.Config{
		Addr:           cfg.Addr(),
		Production:     cfg.ServerProduction,
		MetricsEnabled: cfg.MetricsEnabled,
	},
		handlers.NewInvestigationHandler(store, logger),
		handlers.NewSystemHandler(store, inboxStats, logger, cfg.StoreBackend, cfg.StoreNamespace),
		logger,
	)
	serverErr := server.Start()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err, ok := <-serverErr:
		if ok && err != nil {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if inbox != nil {
		inbox.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", logger.Args("error", err))
	}
	flusher.Stop()
	if err := store.Close(shutdownCtx); err != nil {
		logger.WithCaller().Error("Unsaved investigation changes were lost", logger.Args("error", err))
		runErr = errors.Join(runErr, err)
	}

	logger.Info("IPDossier stopped")
	return runErr
}

func bannerSettings(cfg *config.Config) banner.Settings {
	location := cfg.DBPath
	switch cfg.StoreBackend {
	case config.BackendBolt:
		location = cfg.BoltPath
	case config.BackendRedis:
		location = "remote"
	}
	inbox := ""
	if cfg.InboxEnabled {
		inbox = cfg.InboxDir
	}
	return banner.Settings{
		Backend:   cfg.StoreBackend,
		Location:  location,
		Namespace: cfg.StoreNamespace,
		Listen:    cfg.Addr(),
		InboxDir:  inbox,
		GeoIP:     cfg.GeoIPCityDB != "" || cfg.GeoIPCountryDB != "" || cfg.GeoIPASNDB != "",
	}
}

// openAdapter connects the configured backend. The returned func releases it.
func openAdapter(ctx context.Context, cfg *config.Config, logger *pterm.Logger) (investigation.Adapter, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendBolt:
		adapter, err := storage.OpenBolt(cfg.BoltPath, cfg.StoreNamespace, logger)
		if err != nil {
			return nil, nil, err
		}
		return adapter, closer(adapter, logger), nil

	case config.BackendRedis:
		adapter, err := storage.NewRedisAdapter(ctx, cfg.RedisURL, cfg.StoreNamespace, logger)
		if err != nil {
			return nil, nil, err
		}
		return adapter, closer(adapter, logger), nil

	default:
		db, err := database.NewConnection(&database.Config{
			Path:               cfg.DBPath,
			MaxOpenConns:       cfg.DBMaxOpenConns,
			MaxIdleConns:       cfg.DBMaxIdleConns,
			ConnMaxLife:        cfg.DBConnMaxLife,
			SlowQueryThreshold: cfg.DBSlowThreshold,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		release := func() {
			if err := database.Close(db); err != nil {
				logger.Warn("Failed to close database", logger.Args("error", err))
			}
		}
		return repositories.NewDocumentRepository(db, logger, cfg.StoreNamespace), release, nil
	}
}

func closer(c io.Closer, logger *pterm.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Warn("Failed to close store backend", logger.Args("error", err))
		}
	}
}
