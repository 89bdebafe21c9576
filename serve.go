package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Ananth-NQI/botfleet-backend/database"
	"github.com/Ananth-NQI/botfleet-backend/internal/config"
	"github.com/Ananth-NQI/botfleet-backend/internal/jobs"
	"github.com/Ananth-NQI/botfleet-backend/internal/middleware"
	"github.com/Ananth-NQI/botfleet-backend/internal/observability"
	"github.com/Ananth-NQI/botfleet-backend/internal/protocol"
	"github.com/Ananth-NQI/botfleet-backend/internal/routes"
	"github.com/Ananth-NQI/botfleet-backend/internal/services"
	"github.com/Ananth-NQI/botfleet-backend/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func serve(ctx context.Context, v *viper.Viper) error {
	envFile := config.LoadEnvFiles()

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	format := cfg.LogFormat
	if format == "" && cfg.Production() {
		format = "json"
	}
	log := observability.InitLogger("botfleet", cfg.LogLevel, format)
	if envFile == "" {
		log.Debug().Msg("no .env file found, using process environment")
	} else {
		log.Debug().Str("file", envFile).Msg("loaded .env file")
	}
	observability.RegisterMetrics()

	store, pingDB, err := openStore(cfg, log)
	if err != nil {
		return err
	}

	var notifier services.Notifier
	if cfg.Twilio.Enabled() {
		twilioService, err := services.NewTwilioService(cfg.Twilio, log)
		if err != nil {
			return err
		}
		notifier = twilioService
		log.Info().Msg("twilio notices enabled")
	} else {
		log.Warn().Msg("twilio credentials not found, logged-out notices disabled")
	}

	manager := services.NewBotManager(protocol.NewSimulated(), store, notifier, managerOptions(cfg), log)
	statsJob := jobs.NewFleetStatsJob(manager, cfg.Lifecycle.StatsInterval, log)

	app := fiber.New(fiber.Config{
		AppName:               "BotFleet Backend v" + routes.Version,
		DisableStartupMessage: cfg.Production(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + middleware.APIKeyHeader,
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(middleware.RequestMetrics())
	routes.SetupRoutes(app, manager, cfg.APIKey, pingDB, log)

	if cfg.APIKey == "" {
		log.Warn().Msg("API_KEY not set, bot routes are unauthenticated")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	statsJob.Start(gctx)

	g.Go(func() error {
		log.Info().
			Str("port", cfg.Port).
			Str("environment", cfg.Environment).
			Str("storage", cfg.StorageType()).
			Int("max_bots", cfg.MaxBots).
			Msg("botfleet backend starting")
		if err := app.Listen(":" + cfg.Port); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("gracefully shutting down")

		statsJob.Stop()
		var errs []error
		// the manager goes first so open event streams end and the server
		// can drain
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := manager.Shutdown(sctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown bot manager: %w", err))
		}
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("botfleet backend stopped with error")
		return err
	}
	log.Info().Msg("botfleet backend stopped")
	return nil
}

// openStore returns the credential store and, for PostgreSQL, a health probe
func openStore(cfg config.Config, log zerolog.Logger) (storage.CredentialStore, func() error, error) {
	if cfg.UseMemoryStore {
		log.Warn().Msg("using in-memory credential storage, sessions will not survive a restart")
		return storage.NewMemoryStore(), nil, nil
	}
	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewDatabaseStore(db), func() error { return database.Ping(db) }, nil
}

func managerOptions(cfg config.Config) services.Options {
	lc := cfg.Lifecycle
	return services.Options{
		MaxBots: cfg.MaxBots,
		Reconnect: services.ReconnectPolicy{
			InitialDelay: lc.ReconnectDelay,
			Multiplier:   lc.ReconnectMultiplier,
			MaxDelay:     lc.ReconnectMaxDelay,
			MaxAttempts:  lc.ReconnectMaxAttempts,
		},
		PairingTimeout: lc.PairingTimeout,
		PairingTTL:     lc.PairingTTL,
		RestartDelay:   lc.RestartDelay,
		EventBacklog:   lc.EventBacklog,
	}
}
