package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tradewind/papertrader/internal/config"
	"github.com/tradewind/papertrader/internal/database"
	"github.com/tradewind/papertrader/internal/events"
	"github.com/tradewind/papertrader/internal/identity"
	"github.com/tradewind/papertrader/internal/marketdata"
	"github.com/tradewind/papertrader/internal/modules/analytics"
	"github.com/tradewind/papertrader/internal/modules/execution"
	"github.com/tradewind/papertrader/internal/modules/history"
	"github.com/tradewind/papertrader/internal/modules/portfolio"
	"github.com/tradewind/papertrader/internal/modules/positions"
	"github.com/tradewind/papertrader/internal/modules/signals"
	"github.com/tradewind/papertrader/internal/scheduler"
	"github.com/tradewind/papertrader/internal/server"
	"github.com/tradewind/papertrader/pkg/logger"
)

func main() {
	// Load configuration first so the logger honors LOG_LEVEL
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting papertrader")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Shared collaborators
	ev := events.NewManager(log)
	oracle := marketdata.NewClient(cfg.PriceFeedURL, time.Duration(cfg.PriceFeedTimeoutSec)*time.Second, log)
	provider := identity.NewStaticProvider(cfg.APIKeys)

	// Repositories
	signalRepo := signals.NewRepository(db.Conn(), log)
	positionRepo := positions.NewRepository(db.Conn(), log)
	portfolioRepo := portfolio.NewRepository(db.Conn(), log)
	historyRepo := history.NewRepository(db.Conn(), log)

	// Services
	lifecycle := signals.NewLifecycle(signalRepo, ev, log)
	simulator := execution.NewSimulator(cfg.SlippageRate)
	executor := execution.NewService(db.Conn(), lifecycle, positionRepo, oracle, simulator, ev, log)
	ledger := positions.NewLedger(positionRepo, historyRepo, oracle, ev, cfg.MarkConcurrent, log)
	aggregator := portfolio.NewAggregator(portfolioRepo, positionRepo, ev, log)
	engine := analytics.NewEngine(positionRepo, log)
	suggester := analytics.NewSuggester(historyRepo, log)

	// Background sweep
	sched := scheduler.New(log)
	sweep := scheduler.NewMarkSweepJob(ledger, aggregator, ev, log)
	if err := sched.AddJob(cfg.SweepSchedule, sweep); err != nil {
		log.Fatal().Err(err).Msg("Failed to register sweep job")
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Log:       log,
		DB:        db,
		Identity:  provider,
		Scheduler: sched,
		SweepJob:  sweep,
		Signals:   signals.NewHandlers(lifecycle, log),
		Execution: execution.NewHandlers(executor, log),
		Positions: positions.NewHandlers(ledger, log),
		Portfolio: portfolio.NewHandlers(aggregator, log),
		Analytics: analytics.NewHandlers(engine, suggester, log),
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
