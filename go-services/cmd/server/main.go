// Package main runs the HTTP orchestration surface over the multi-runner:
// submit a named set of (entries, exits) signal pairs against a price
// series pulled from ClickHouse or a local CSV, and poll for the resulting per-name
// metrics. There is no gRPC/Rust-engine half here — see DESIGN.md.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"backtest/go-services/services/config"
	"backtest/go-services/services/datasource/clickhouse"
	csvsource "backtest/go-services/services/datasource/csv"
	"backtest/go-services/services/engine"
)

// jobStatus is the lifecycle state of one submitted multi-run.
type jobStatus string

const (
	jobRunning   jobStatus = "running"
	jobCompleted jobStatus = "completed"
	jobFailed    jobStatus = "failed"
)

type job struct {
	Status jobStatus           `json:"status"`
	Result *engine.MultiResult `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// server holds the shared dependencies HTTP handlers close over.
type server struct {
	logger *zap.Logger
	cfg    *config.Config
	loader *clickhouse.Loader

	mu   sync.Mutex
	jobs map[string]*job
}

// signalPairRequest is the wire shape of one named entries/exits vector
// pair; the client owns signal generation, matching §1's "signal
// generation is external input" boundary.
type signalPairRequest struct {
	Entries []int `json:"entries"`
	Exits   []int `json:"exits"`
}

// backtestRequest sources its price/date series from either a local CSV
// (CSVPath set) or a ClickHouse symbol/timeframe/range query. At least one
// of the two must be provided; when both are, CSVPath is used.
type backtestRequest struct {
	CSVPath   string                       `json:"csv_path,omitempty"`
	Symbol    string                       `json:"symbol,omitempty"`
	Timeframe string                       `json:"timeframe,omitempty"`
	From      time.Time                    `json:"from,omitempty"`
	To        time.Time                    `json:"to,omitempty"`
	Config    engine.Config                `json:"config"`
	Signals   map[string]signalPairRequest `json:"signals" binding:"required"`
}

func (s *server) handleSubmitBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Signals) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signals must name at least one entries/exits pair"})
		return
	}
	if req.CSVPath == "" && req.Symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either csv_path or symbol/timeframe/from/to must be set"})
		return
	}

	jobID := uuid.New().String()
	s.mu.Lock()
	s.jobs[jobID] = &job{Status: jobRunning}
	s.mu.Unlock()

	s.logger.Info("backtest job accepted",
		zap.String("job_id", jobID),
		zap.String("symbol", req.Symbol),
		zap.String("timeframe", req.Timeframe),
		zap.Int("signal_sets", len(req.Signals)))

	go s.runJob(jobID, req)

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

func (s *server) runJob(jobID string, req backtestRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var (
		prices []float64
		dates  []time.Time
		err    error
	)
	if req.CSVPath != "" {
		prices, dates, err = csvsource.LoadSeries(req.CSVPath)
	} else {
		prices, dates, err = s.loader.LoadSeries(ctx, req.Symbol, req.Timeframe, req.From, req.To)
	}
	if err != nil {
		s.finishJob(jobID, nil, fmt.Errorf("load series: %w", err))
		return
	}

	dateIdx := make([]int64, len(dates))
	for i, d := range dates {
		dateIdx[i] = d.Unix()
	}

	pairs := make(map[string]engine.SignalPair, len(req.Signals))
	for name, p := range req.Signals {
		pairs[name] = engine.SignalPair{Entries: p.Entries, Exits: p.Exits}
	}

	result, err := engine.RunMulti(req.Config, prices, dateIdx, pairs, s.cfg.Engine.MaxWorkers)
	if err != nil {
		s.finishJob(jobID, nil, fmt.Errorf("run multi: %w", err))
		return
	}
	s.finishJob(jobID, &result, nil)
}

func (s *server) finishJob(jobID string, result *engine.MultiResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.jobs[jobID]
	if err != nil {
		j.Status = jobFailed
		j.Error = err.Error()
		s.logger.Error("backtest job failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	j.Status = jobCompleted
	j.Result = result
	s.logger.Info("backtest job completed", zap.String("job_id", jobID))
}

func (s *server) handleGetBacktest(c *gin.Context) {
	jobID := c.Param("job_id")

	s.mu.Lock()
	j, ok := s.jobs[jobID]
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job_id"})
		return
	}
	c.JSON(http.StatusOK, j)
}

func (s *server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api/v1")
	{
		api.POST("/backtests", s.handleSubmitBacktest)
		api.GET("/backtests/:job_id", s.handleGetBacktest)
	}
	r.GET("/healthz", s.handleHealthz)
	return r
}

func main() {
	configPath := flag.String("config", "", "path to service config file (yaml/json/toml)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadServiceConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	loader, err := clickhouse.NewLoader(clickhouse.Config{
		Addr:     []string{cfg.ClickHouse.Addr},
		Database: cfg.ClickHouse.Database,
		Username: cfg.ClickHouse.Username,
		Password: cfg.ClickHouse.Password,
	}, logger)
	if err != nil {
		logger.Fatal("failed to connect to clickhouse", zap.Error(err))
	}
	defer loader.Close()

	srv := &server{
		logger: logger,
		cfg:    cfg,
		loader: loader,
		jobs:   make(map[string]*job),
	}

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting http server", zap.String("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
