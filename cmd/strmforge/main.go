package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/strmforge/strmforge/internal/api"
	"github.com/strmforge/strmforge/internal/auth"
	"github.com/strmforge/strmforge/internal/config"
	"github.com/strmforge/strmforge/internal/database"
	"github.com/strmforge/strmforge/internal/logger"
	"github.com/strmforge/strmforge/internal/metadata/tmdb"
	"github.com/strmforge/strmforge/internal/orchestrator"
	"github.com/strmforge/strmforge/internal/progress"
	"github.com/strmforge/strmforge/internal/scheduler"
	"github.com/strmforge/strmforge/internal/session"
	"github.com/strmforge/strmforge/internal/websocket"
)

func main() {
	// .env is optional, real environment always wins
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:           cfg.Logging.Level,
		Format:          cfg.Logging.Format,
		Path:            cfg.Logging.Path,
		MaxSizeMB:       cfg.Logging.MaxSizeMB,
		MaxBackups:      cfg.Logging.MaxBackups,
		MaxAgeDays:      cfg.Logging.MaxAgeDays,
		Compress:        cfg.Logging.Compress,
		EnableStreaming: true,
	})
	defer log.Close()

	log.Info().
		Str("version", api.Version).
		Str("logLevel", cfg.Logging.Level).
		Msg("starting StrmForge")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	log.Info().Msg("running database migrations")
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	hub := websocket.NewHub()
	go hub.Run()
	if b := log.Broadcaster(); b != nil {
		b.SetHub(hub)
	}

	authService, err := auth.NewService(db, cfg.Auth.JWTSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth")
	}
	if cfg.Auth.AdminPassword != "" && !authService.IsPasswordSet(context.Background()) {
		if err := authService.SetPassword(context.Background(), cfg.Auth.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("failed to set configured admin password")
		}
		log.Info().Msg("admin password set from configuration")
	}

	store := session.NewStore(db, log.Logger)
	if err := store.Restore(context.Background()); err != nil {
		log.Warn().Err(err).Msg("failed to restore sessions")
	}

	progressManager := progress.NewManager(hub, log.Logger)
	tmdbClient := tmdb.NewClient(cfg.TMDB, log.Logger)
	if !tmdbClient.IsConfigured() {
		log.Warn().Msg("TMDB API key is not configured, metadata features are disabled")
	}

	orch := orchestrator.New(cfg, log.Logger, store, db, progressManager, tmdbClient)

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	registerMaintenanceTasks(sched, cfg, store, orch, log)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	server := api.NewServer(cfg, api.Deps{
		Hub:          hub,
		Auth:         authService,
		Store:        store,
		Orchestrator: orch,
		Progress:     progressManager,
		Scheduler:    sched,
		Logs:         log,
	}, log.Logger)

	go func() {
		if err := server.Start(cfg.Server.Address()); err != nil {
			log.Info().Msg("server stopped")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown error")
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	log.Info().Msg("server stopped")
}

// registerMaintenanceTasks wires the periodic jobs: idle session
// expiry and storage directory cache sweeps.
func registerMaintenanceTasks(sched *scheduler.Scheduler, cfg *config.Config, store *session.Store, orch *orchestrator.Orchestrator, log *logger.Logger) {
	sweepInterval := cfg.Session.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = time.Hour
	}

	if err := sched.RegisterTask(scheduler.TaskConfig{
		ID:          "session-sweep",
		Name:        "Session sweep",
		Description: "Removes sessions idle beyond the configured TTL",
		Interval:    sweepInterval,
		Func: func(ctx context.Context) error {
			_, err := store.Sweep(ctx, cfg.Session.TTL)
			return err
		},
	}); err != nil {
		log.Warn().Err(err).Msg("failed to register session sweep task")
	}

	cacheInterval := cfg.Storage.CacheTTL
	if cacheInterval <= 0 {
		cacheInterval = 5 * time.Minute
	}

	if err := sched.RegisterTask(scheduler.TaskConfig{
		ID:          "storage-cache-sweep",
		Name:        "Storage cache sweep",
		Description: "Purges expired directory cache entries from pooled storage clients",
		Interval:    cacheInterval,
		Func: func(ctx context.Context) error {
			purged := orch.SourcePool().Sweep() + orch.TargetPool().Sweep()
			if purged > 0 {
				log.Debug().Int("purged", purged).Msg("storage cache entries purged")
			}
			return nil
		},
	}); err != nil {
		log.Warn().Err(err).Msg("failed to register storage cache sweep task")
	}
}
