package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quantbt/internal/config"
	"quantbt/internal/data"
	"quantbt/internal/ingest"
	"quantbt/internal/store"
	"quantbt/internal/util"
)

func main() {
	cfgFlag := flag.String("config", os.Getenv("QUANTBT_CONFIG"), "path to config file")
	startFlag := flag.String("start", "", "start date (YYYY-MM-DD)")
	endFlag := flag.String("end", "", "end date (YYYY-MM-DD), default yesterday")
	topFlag := flag.Int("top", 0, "number of top universe candidates, default from config")
	flag.Parse()

	cfg, err := config.Load(*cfgFlag)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, "text")
	util.SetDefault(logger)

	start, err := time.Parse("2006-01-02", *startFlag)
	if err != nil {
		log.Fatalf("invalid -start %q", *startFlag)
	}
	// Default to the most recent finished business day.
	end := time.Now().UTC().AddDate(0, 0, -1)
	for !util.IsBusinessDay(end) {
		end = end.AddDate(0, 0, -1)
	}
	if *endFlag != "" {
		if end, err = time.Parse("2006-01-02", *endFlag); err != nil {
			log.Fatalf("invalid -end %q", *endFlag)
		}
	}

	topN := cfg.Search.TopCompanies
	if *topFlag > 0 {
		topN = *topFlag
	}

	universe, err := data.LoadCSVUniverse(cfg.Search.UniversePath)
	if err != nil {
		log.Fatalf("failed to load universe: %v", err)
	}

	bars := store.NewParquetStore(cfg.Storage.DataDir)
	ing := ingest.NewDailyBarIngestor(ingest.Options{
		APIKey:          cfg.Alpaca.APIKey,
		APISecret:       cfg.Alpaca.APISecret,
		DataURL:         cfg.Alpaca.DataURL,
		RateLimitPerMin: cfg.Alpaca.RateLimitPerMin,
		Workers:         cfg.Search.Workers,
	}, bars, universe, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("fetching daily bars for top %d universe candidates\n", topN)
	if err := ing.Run(ctx, topN, start, end); err != nil {
		log.Fatalf("ingest error: %v", err)
	}
}
