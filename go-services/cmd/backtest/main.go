// Command backtest runs one strategy's signal generator through the core
// simulator and writes the results out. It replaces the teacher's three
// near-identical run_ema_atr/run_donchian_basis/run_ichimoku_baseline
// mains with one CLI selecting among the strategies package's generators.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"backtest/go-services/services/datasource/clickhouse"
	"backtest/go-services/services/engine"
	"backtest/go-services/services/report/accountdetails"
	"backtest/go-services/services/report/arrowexport"
	"backtest/go-services/strategies"
)

type signalGenerator interface {
	LoadCSV(filename string) error
	CalculateIndicators() error
	GenerateSignals() (entries, exits []int, prices []float64, dates []int64)
}

func newStrategy(name string) (signalGenerator, error) {
	switch name {
	case "ema_atr":
		return strategies.NewEMAATRStrategy(), nil
	case "donchian_basis":
		return strategies.NewDonchianBasisStrategy(), nil
	case "ichimoku_baseline":
		return strategies.NewIchimokuBaselineStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (want ema_atr, donchian_basis, or ichimoku_baseline)", name)
	}
}

func main() {
	strategyName := flag.String("strategy", "ema_atr", "strategy to run: ema_atr, donchian_basis, ichimoku_baseline")
	csvPath := flag.String("csv", "", "path to local OHLCV CSV; if set, skip ClickHouse")
	chAddr := flag.String("ch-addr", "localhost:9000", "ClickHouse host:port")
	chDB := flag.String("ch-db", "backtest", "ClickHouse database")
	chUser := flag.String("ch-user", "default", "ClickHouse user")
	chPass := flag.String("ch-pass", "", "ClickHouse password")
	symbol := flag.String("symbol", "BTCUSDT", "trading symbol (ClickHouse source)")
	timeframe := flag.String("timeframe", "5m", "bar timeframe (ClickHouse source)")
	from := flag.String("from", "2020-01-01", "start date, YYYY-MM-DD (ClickHouse source)")
	to := flag.String("to", "2024-01-01", "end date, YYYY-MM-DD (ClickHouse source)")
	initialCapital := flag.Float64("initial-capital", 10000.0, "starting capital")
	outCSV := flag.String("out", "account_details.csv", "account-details CSV output path")
	outArrow := flag.String("out-arrow", "", "equity curve Arrow IPC output path (empty to skip)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	strat, err := newStrategy(*strategyName)
	if err != nil {
		logger.Fatal("invalid strategy", zap.Error(err))
	}

	var (
		prices []float64
		dates  []int64
		times  []time.Time
	)

	if *csvPath != "" {
		if err := strat.LoadCSV(*csvPath); err != nil {
			logger.Fatal("load csv", zap.Error(err))
		}
		if err := strat.CalculateIndicators(); err != nil {
			logger.Fatal("calculate indicators", zap.Error(err))
		}
		var entries, exits []int
		entries, exits, prices, dates = strat.GenerateSignals()
		times = make([]time.Time, len(dates))
		for i, d := range dates {
			times[i] = time.Unix(d, 0).UTC()
		}
		runAndReport(logger, *strategyName, prices, entries, exits, dates, times, *initialCapital, *outCSV, *outArrow)
		return
	}

	// ClickHouse path: pull bars, materialize a temp CSV in the shape the
	// strategy loader expects, then run the same signal-generation path.
	loader, err := clickhouse.NewLoader(clickhouse.Config{
		Addr:     []string{*chAddr},
		Database: *chDB,
		Username: *chUser,
		Password: *chPass,
	}, logger)
	if err != nil {
		logger.Fatal("connect clickhouse", zap.Error(err))
	}
	defer loader.Close()

	fromT, err := time.Parse("2006-01-02", *from)
	if err != nil {
		logger.Fatal("parse from date", zap.Error(err))
	}
	toT, err := time.Parse("2006-01-02", *to)
	if err != nil {
		logger.Fatal("parse to date", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	chPrices, chDates, err := loader.LoadSeries(ctx, *symbol, *timeframe, fromT, toT)
	if err != nil {
		logger.Fatal("load series", zap.Error(err))
	}
	if len(chPrices) == 0 {
		logger.Fatal("no bars returned for symbol/timeframe/range")
	}

	tmp, err := os.CreateTemp("", "backtest-*.csv")
	if err != nil {
		logger.Fatal("create temp csv", zap.Error(err))
	}
	defer os.Remove(tmp.Name())
	fmt.Fprintln(tmp, "timestamp,open,high,low,close,volume")
	for i, p := range chPrices {
		ts := chDates[i].UnixMilli()
		fmt.Fprintf(tmp, "%d,%f,%f,%f,%f,0\n", ts, p, p, p, p)
	}
	tmp.Close()

	if err := strat.LoadCSV(tmp.Name()); err != nil {
		logger.Fatal("load generated csv", zap.Error(err))
	}
	if err := strat.CalculateIndicators(); err != nil {
		logger.Fatal("calculate indicators", zap.Error(err))
	}
	entries, exits, sPrices, sDates := strat.GenerateSignals()
	times = make([]time.Time, len(sDates))
	for i, d := range sDates {
		times[i] = time.Unix(d, 0).UTC()
	}
	runAndReport(logger, *strategyName, sPrices, entries, exits, sDates, times, *initialCapital, *outCSV, *outArrow)
}

func runAndReport(logger *zap.Logger, name string, prices []float64, entries, exits []int, dates []int64, times []time.Time, initialCapital float64, outCSV, outArrow string) {
	cfg := engine.DefaultConfig()
	cfg.InitialCapital = initialCapital

	result, err := engine.Simulate(cfg, prices, entries, exits, dates)
	if err != nil {
		logger.Fatal("simulate", zap.Error(err))
	}

	logger.Info("backtest complete",
		zap.String("strategy", name),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("total_return_pct", result.Metrics.TotalReturnPct),
		zap.Float64("max_drawdown_pct", result.Metrics.MaxDrawdownPct),
		zap.Float64("win_rate_pct", result.Metrics.WinRatePct))

	f, err := os.Create(outCSV)
	if err != nil {
		logger.Fatal("create account-details csv", zap.Error(err))
	}
	defer f.Close()
	if err := accountdetails.Write(f, result.Trades, prices, times, initialCapital, logger); err != nil {
		logger.Fatal("write account-details csv", zap.Error(err))
	}

	if outArrow != "" {
		af, err := os.Create(outArrow)
		if err != nil {
			logger.Fatal("create arrow output", zap.Error(err))
		}
		defer af.Close()
		if err := arrowexport.WriteEquityCurve(af, result.Equity, times); err != nil {
			logger.Fatal("write arrow equity curve", zap.Error(err))
		}
	}
}
