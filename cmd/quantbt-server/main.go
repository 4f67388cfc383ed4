package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"quantbt/internal/config"
	"quantbt/internal/data"
	"quantbt/internal/engine"
	"quantbt/internal/httpapi"
	"quantbt/internal/store"
	"quantbt/internal/util"
)

func main() {
	cfgPath := os.Getenv("QUANTBT_CONFIG")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	history, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open history store: %v", err)
	}
	defer history.Close()

	bars := store.NewParquetStore(cfg.Storage.DataDir)
	remote := data.NewAlpacaLoader(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.RateLimitPerMin, logger)
	loader := data.NewCachingLoader(remote, bars, logger)

	universe, err := data.LoadCSVUniverse(cfg.Search.UniversePath)
	if err != nil {
		logger.Warn("universe file unavailable, ticker searches will find nothing",
			"path", cfg.Search.UniversePath, "err", err)
		universe = &data.CSVUniverse{}
	}

	eng := engine.New(engine.Options{
		Loader:   loader,
		Universe: universe,
		History:  history,
		Workers:  cfg.Search.Workers,
		Logger:   logger,
	})

	api := httpapi.NewServer(eng, logger)
	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := &http.Server{
		Addr:    addr,
		Handler: api.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	}()

	logger.Info("quantbt-server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	logger.Info("quantbt-server stopped")
}
