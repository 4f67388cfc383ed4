package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"quantbt/internal/config"
	"quantbt/internal/data"
	"quantbt/internal/domain"
	"quantbt/internal/engine"
	"quantbt/internal/store"
	"quantbt/internal/strategy/builtins"
	"quantbt/internal/util"
)

const version = "0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: quantbt-cli <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  backtest    Run one backtest with fixed parameters\n")
	fmt.Fprintf(os.Stderr, "  optimise    Grid-search strategy parameters\n")
	fmt.Fprintf(os.Stderr, "  tickers     Search the universe for the best single ticker\n")
	fmt.Fprintf(os.Stderr, "  pairs       Search the universe for the best ticker pair\n")
	fmt.Fprintf(os.Stderr, "  history     List recent recorded runs\n")
	fmt.Fprintf(os.Stderr, "  strategies  List available strategies\n")
	fmt.Fprintf(os.Stderr, "  version     Print the CLI version\n")
	fmt.Fprintf(os.Stderr, "\n")
}

func main() {
	flag.Usage = usage
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "backtest":
		err = runBacktest(ctx, os.Args[2:])
	case "optimise":
		err = runOptimise(ctx, os.Args[2:])
	case "tickers":
		err = runTickers(ctx, os.Args[2:])
	case "pairs":
		err = runPairs(ctx, os.Args[2:])
	case "history":
		err = runHistory(ctx, os.Args[2:])
	case "strategies":
		err = runStrategies(ctx, os.Args[2:])
	case "version":
		fmt.Printf("quantbt-cli %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Command wiring
// ---------------------------------------------------------------------------

type commonFlags struct {
	config string
	start  string
	end    string
}

func addCommon(fs *flag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.config, "config", os.Getenv("QUANTBT_CONFIG"), "path to config file")
	fs.StringVar(&c.start, "start", "", "start date (YYYY-MM-DD)")
	fs.StringVar(&c.end, "end", "", "end date (YYYY-MM-DD)")
	return c
}

func (c *commonFlags) dates() (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", c.start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -start %q", c.start)
	}
	end, err := time.Parse("2006-01-02", c.end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -end %q", c.end)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("-end before -start")
	}
	return start, end, nil
}

func buildEngine(cfgPath string) (*engine.Engine, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	logger := util.NewLogger(cfg.Logging.Level, "text")
	util.SetDefault(logger)

	history, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history store: %w", err)
	}

	bars := store.NewParquetStore(cfg.Storage.DataDir)
	remote := data.NewAlpacaLoader(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.RateLimitPerMin, logger)
	loader := data.NewCachingLoader(remote, bars, logger)

	universe, err := data.LoadCSVUniverse(cfg.Search.UniversePath)
	if err != nil {
		logger.Warn("universe file unavailable", "path", cfg.Search.UniversePath, "err", err)
		universe = &data.CSVUniverse{}
	}

	eng := engine.New(engine.Options{
		Loader:   loader,
		Universe: universe,
		History:  history,
		Workers:  cfg.Search.Workers,
		Logger:   logger,
	})
	return eng, func() { history.Close() }, nil
}

// progress writes search progress labels to stderr, overwriting in place.
func progress(index, total int, label string) {
	fmt.Fprintf(os.Stderr, "\r\033[K%s", label)
	if index+1 == total {
		fmt.Fprintln(os.Stderr)
	}
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func runBacktest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	common := addCommon(fs)
	strategyType := fs.String("strategy", builtins.NameBuyAndHold, "strategy name")
	paramsFlag := fs.String("params", "", "parameters, e.g. window=20,std_dev=2")
	tickersFlag := fs.String("tickers", "", "one ticker, or two comma-separated for pairs")
	fs.Parse(args)

	start, end, err := common.dates()
	if err != nil {
		return err
	}
	params, err := parseParams(*paramsFlag)
	if err != nil {
		return err
	}
	tickers := splitList(*tickersFlag)
	if len(tickers) == 0 {
		return fmt.Errorf("-tickers is required")
	}

	eng, cleanup, err := buildEngine(common.config)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := eng.Evaluate(ctx, *strategyType, params, tickers, start, end)
	if err != nil {
		return err
	}
	printMetrics(res.Tickers, res.Params, res.Metrics)
	return nil
}

func runOptimise(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("optimise", flag.ExitOnError)
	common := addCommon(fs)
	strategyType := fs.String("strategy", builtins.NameMeanReversion, "strategy name")
	gridFlag := fs.String("grid", "", "parameter grid, e.g. window=10|20|50,std_dev=1.5|2")
	tickersFlag := fs.String("tickers", "", "one ticker, or two comma-separated for pairs")
	fs.Parse(args)

	start, end, err := common.dates()
	if err != nil {
		return err
	}
	grid, err := parseGrid(*gridFlag)
	if err != nil {
		return err
	}
	tickers := splitList(*tickersFlag)
	if len(tickers) == 0 {
		return fmt.Errorf("-tickers is required")
	}

	eng, cleanup, err := buildEngine(common.config)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := eng.SearchParameters(ctx, *strategyType, grid, tickers, start, end, progress)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func runTickers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tickers", flag.ExitOnError)
	common := addCommon(fs)
	strategyType := fs.String("strategy", builtins.NameBuyAndHold, "strategy name")
	paramsFlag := fs.String("params", "", "parameters, e.g. window=20,std_dev=2")
	topN := fs.Int("top", 20, "number of top universe candidates to try")
	fs.Parse(args)

	start, end, err := common.dates()
	if err != nil {
		return err
	}
	params, err := parseParams(*paramsFlag)
	if err != nil {
		return err
	}

	eng, cleanup, err := buildEngine(common.config)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := eng.SearchSingleTicker(ctx, *strategyType, params, *topN, start, end, progress)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func runPairs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pairs", flag.ExitOnError)
	common := addCommon(fs)
	gridFlag := fs.String("grid", "window=50,entry_z_score=2,exit_z_score=0.5",
		"parameter grid; single values unless -optimise")
	optimiseFlag := fs.Bool("optimise", false, "grid-search parameters per pair")
	topN := fs.Int("top", 20, "number of top universe candidates to pair")
	fs.Parse(args)

	start, end, err := common.dates()
	if err != nil {
		return err
	}
	grid, err := parseGrid(*gridFlag)
	if err != nil {
		return err
	}

	eng, cleanup, err := buildEngine(common.config)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := eng.SearchTickerPairs(ctx, grid, *optimiseFlag, *topN, start, end, progress)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	common := addCommon(fs)
	limit := fs.Int("limit", 20, "number of records to show")
	fs.Parse(args)

	eng, cleanup, err := buildEngine(common.config)
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := eng.History(ctx, *limit)
	if err != nil {
		return err
	}
	for _, rec := range records {
		sharpe := "n/a"
		if rec.Metrics.SharpeDefined() {
			sharpe = fmt.Sprintf("%.4f", rec.Metrics.SharpeRatio)
		}
		fmt.Printf("%4d  %s  %-26s %-18s return=%8.4f  sharpe=%s  maxdd=%8.4f\n",
			rec.ID,
			rec.DateCreated.Format("2006-01-02 15:04"),
			rec.Name,
			strings.Join(rec.Tickers, ","),
			rec.Metrics.TotalReturn,
			sharpe,
			rec.Metrics.MaxDrawdown,
		)
	}
	return nil
}

func runStrategies(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("strategies", flag.ExitOnError)
	fs.Parse(args)

	for _, name := range builtins.NewRegistry().List() {
		fmt.Println(name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Output and flag parsing helpers
// ---------------------------------------------------------------------------

func printResult(res *domain.OptimisationResult) {
	printMetrics(res.Tickers, res.Params, res.Metrics)
	if res.Partial {
		fmt.Println("note: interrupted, best result so far")
	}
}

func printMetrics(tickers []string, params domain.Params, metrics domain.Metrics) {
	fmt.Printf("tickers:      %s\n", strings.Join(tickers, ", "))
	if len(params) > 0 {
		var parts []string
		for _, name := range sortedKeys(params) {
			parts = append(parts, fmt.Sprintf("%s=%g", name, params[name]))
		}
		fmt.Printf("params:       %s\n", strings.Join(parts, " "))
	}
	fmt.Printf("total return: %.4f\n", metrics.TotalReturn)
	if metrics.SharpeDefined() {
		fmt.Printf("sharpe:       %.4f\n", metrics.SharpeRatio)
	} else {
		fmt.Printf("sharpe:       n/a\n")
	}
	fmt.Printf("max drawdown: %.4f\n", metrics.MaxDrawdown)
}

func sortedKeys(params domain.Params) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}

// parseParams parses "window=20,std_dev=2" into Params.
func parseParams(s string) (domain.Params, error) {
	if s == "" {
		return nil, nil
	}
	params := domain.Params{}
	for _, part := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("invalid parameter %q, want name=value", part)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %q", name, value)
		}
		params[name] = v
	}
	return params, nil
}

// parseGrid parses "window=10|20,std_dev=1.5|2" into an ordered grid.
func parseGrid(s string) (domain.ParamGrid, error) {
	if s == "" {
		return nil, nil
	}
	var grid domain.ParamGrid
	for _, part := range strings.Split(s, ",") {
		name, values, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("invalid grid entry %q, want name=v1|v2", part)
		}
		d := domain.ParamDomain{Name: name}
		for _, raw := range strings.Split(values, "|") {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value for %s: %q", name, raw)
			}
			d.Values = append(d.Values, v)
		}
		grid = append(grid, d)
	}
	return grid, nil
}
