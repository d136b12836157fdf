package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nathangreen1632/MineralCache-sub000/internal/api/rest"
	"github.com/nathangreen1632/MineralCache-sub000/internal/api/websocket"
	"github.com/nathangreen1632/MineralCache-sub000/internal/infrastructure/cache"
	"github.com/nathangreen1632/MineralCache-sub000/internal/infrastructure/config"
	"github.com/nathangreen1632/MineralCache-sub000/internal/infrastructure/database"
	"github.com/nathangreen1632/MineralCache-sub000/internal/infrastructure/repository"
	"github.com/nathangreen1632/MineralCache-sub000/internal/metrics"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/bidding"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/lifecycle"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/watchlist"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("fatal error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPool(ctx, &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := cache.NewRedisClient(&cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewAuction(registry)

	hub := websocket.NewAuctionEventHub(cfg.Broadcaster, m, logger)
	go hub.Run(ctx)

	store := repository.NewAuctionStore(db)
	actors := bidding.NewActorRegistry(cfg.Auction.MailboxTimeout, logger)
	defer actors.Close()

	policy := bidding.Policy{
		DefaultIncrementCents: cfg.Auction.DefaultIncrementCents,
		AntiSnipeWindow:       cfg.Auction.AntiSnipeWindow,
		AntiSnipeExtension:    cfg.Auction.AntiSnipeExtension,
		MaxTotalExtension:     cfg.Auction.MaxTotalExtension,
		BidsPerMinute:         cfg.Auction.BidsPerMinute,
	}
	// Eligibility is enforced at the API layer from token claims; the
	// engine-level checker stays unset until account standing checks exist.
	engine := bidding.NewService(store, actors, hub, nil,
		bidding.LoggedHandoff{Logger: logger}, m, policy, logger)

	scheduler := lifecycle.NewScheduler(engine, store, logger,
		cfg.Auction.SchedulerPoll, cfg.Auction.SchedulerResync)
	engine.WithPlanner(scheduler)
	go scheduler.Run(ctx)
	go engine.RunTicker(ctx, cfg.Broadcaster.TickInterval)

	wl := watchlist.NewService(redisClient, logger)
	auth := rest.NewAuthMiddleware(cfg.Security.JWTSecret)
	wsHandler := websocket.NewHandler(hub, logger)
	handler := rest.NewHandler(engine, wl, wsHandler, auth,
		cfg.Auction.DefaultIncrementCents, logger)
	server := rest.NewServer(cfg.Server, handler, registry, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("auction service started",
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	hub.Stop()
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	var zcfg zap.Config
	if cfg.Environment == "development" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
