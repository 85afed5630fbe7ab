// Package main provides the combat server binary: WebSocket seats in
// front of the encounter controller, backed by PostgreSQL.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/Aion-Studio/aion-backend-sub000/internal/config"
	"github.com/Aion-Studio/aion-backend-sub000/internal/content"
	"github.com/Aion-Studio/aion-backend-sub000/internal/controller"
	"github.com/Aion-Studio/aion-backend-sub000/internal/events"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/dice"
	"github.com/Aion-Studio/aion-backend-sub000/internal/game/encounter"
	"github.com/Aion-Studio/aion-backend-sub000/internal/observability"
	"github.com/Aion-Studio/aion-backend-sub000/internal/scripting"
	"github.com/Aion-Studio/aion-backend-sub000/internal/server"
	"github.com/Aion-Studio/aion-backend-sub000/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	contentDir := flag.String("content", "", "override content directory from config")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting combat server",
		zap.String("addr", cfg.Server.Addr()),
	)

	// Load card, spell, monster, and hero definitions.
	dir := cfg.Combat.ContentDir
	if *contentDir != "" {
		dir = *contentDir
	}
	contentStart := time.Now()
	catalog, err := content.LoadCatalogFromDir(dir)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("cards", catalog.CardCount()),
		zap.Int("monsters", len(catalog.MonsterIDs())),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	// Optional Lua policy for CPU opponents.
	var policy *scripting.Policy
	if cfg.Combat.PolicyScript != "" {
		policy, err = scripting.LoadPolicy(cfg.Combat.PolicyScript, scripting.DefaultInstructionLimit, logger)
		if err != nil {
			logger.Fatal("loading CPU policy script",
				zap.String("path", cfg.Combat.PolicyScript), zap.Error(err))
		}
		logger.Info("CPU policy loaded", zap.String("path", cfg.Combat.PolicyScript))
	}

	// Connect to PostgreSQL for encounter persistence.
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	store := postgres.NewEncounterStore(pool.DB())

	bus := events.NewChannelBus(logger, 64)

	ctrl := controller.New(controller.Deps{
		Store:  store,
		Bus:    bus,
		Logger: logger,
		Rules: encounter.Rules{
			StartingMana:    cfg.Combat.StartingMana,
			OpeningHandSize: cfg.Combat.OpeningHandSize,
		},
		Dice:         dice.NewCryptoSource(),
		Policy:       policy,
		CPUTurnDelay: cfg.Combat.CPUTurnDelay,
	})

	ws := server.NewCombatServer(cfg.Server, ctrl, bus, catalog, logger)

	lifecycle := server.NewLifecycle(logger)

	ctrlCtx, ctrlCancel := context.WithCancel(ctx)
	ctrlDone := make(chan struct{})
	lifecycle.Add("controller",
		func() error {
			defer close(ctrlDone)
			ctrl.Run(ctrlCtx)
			return nil
		},
		func() {
			ctrlCancel()
			<-ctrlDone
		},
	)

	lifecycle.Add("websocket", ws.Start, ws.Stop)

	healthCtx, healthCancel := context.WithCancel(ctx)
	lifecycle.Add("postgres",
		func() error {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-healthCtx.Done():
					return nil
				case <-ticker.C:
					if err := pool.Health(healthCtx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
						continue
					}
					stat := pool.Stat()
					logger.Debug("database pool",
						zap.Int32("total_conns", stat.TotalConns()),
						zap.Int32("idle_conns", stat.IdleConns()),
					)
				}
			}
		},
		func() {
			healthCancel()
			bus.Close()
			pool.Close()
		},
	)

	logger.Info("combat server initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
