package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/pqoptimizer/internal/api"
	"github.com/goodtune/pqoptimizer/internal/config"
	"github.com/goodtune/pqoptimizer/internal/metrics"
	"github.com/goodtune/pqoptimizer/internal/optimizer"
	"github.com/goodtune/pqoptimizer/internal/storage"
	"github.com/goodtune/pqoptimizer/internal/storage/bolt"
	"github.com/goodtune/pqoptimizer/internal/storage/memory"
	"github.com/goodtune/pqoptimizer/internal/storage/redis"
	"github.com/goodtune/pqoptimizer/internal/storage/sqlite"
	"github.com/goodtune/pqoptimizer/internal/systemd"
	"github.com/goodtune/pqoptimizer/internal/usage"
	"github.com/goodtune/pqoptimizer/web"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the optimizer server",
	Long:  `Start the HTTP API, embedded UI and metrics endpoints.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting pqoptimizer")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	// Initialize storage
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Str("key", cfg.Storage.Key).
		Msg("Storage initialized")

	recorder := newRecorder(cfg, store, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Without a key, optimizations fail with a configuration error.
	var gen optimizer.Generator
	if cfg.Gemini.APIKey != "" {
		gemini, err := optimizer.NewGeminiGenerator(ctx, cfg.Gemini.APIKey)
		if err != nil {
			return fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		gen = gemini
		logger.Info().Str("model", cfg.Gemini.Model).Msg("Gemini client initialized")
	} else {
		logger.Warn().Msgf("No Gemini API key configured; set %s to enable optimization", config.APIKeyEnv)
	}
	opt := optimizer.New(gen, cfg.Gemini.Model, logger)

	apiServer := api.NewServer(api.Config{
		ListenAddr:       fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.HTTPPort),
		APIKey:           cfg.Gemini.APIKey,
		StorageType:      cfg.Storage.Type,
		RecordOnOptimize: cfg.Analytics.RecordOnOptimize,
		RateLimit:        cfg.Server.RateLimit,
		RateLimitWindow:  config.Duration(cfg.Server.RateLimitWindow, time.Minute),
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		ReadTimeout:      config.Duration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout:     config.Duration(cfg.Server.WriteTimeout, 5*time.Minute),
		Location:         cfg.Analytics.Location(),
		UI:               web.Handler(),
	}, opt, recorder, usage.RealClock{}, logger)
	if sdListeners.HTTP != nil {
		apiServer.SetListener(sdListeners.HTTP)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return apiServer.Run(gctx)
	})

	if cfg.Server.MetricsPort != 0 || sdListeners.Metrics != nil {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort)
		metricsServer := metrics.NewServer(metricsAddr, logger)
		if sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}
		g.Go(func() error {
			return metricsServer.Run(gctx)
		})
		logger.Info().Msgf("Metrics: http://%s/metrics", metricsAddr)
	}

	g.Go(func() error {
		return systemd.RunWatchdog(gctx)
	})

	logger.Info().Msgf("API: http://%s:%d", cfg.Server.BindAddress, cfg.Server.HTTPPort)
	logger.Info().Msg("pqoptimizer startup complete")

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd of readiness")
	}

	err = g.Wait()

	logger.Info().Msg("Shutting down")
	if nerr := systemd.NotifyStopping(); nerr != nil {
		logger.Warn().Err(nerr).Msg("Failed to notify systemd of shutdown")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info().Msg("pqoptimizer stopped")
	return nil
}

// openStorage opens the configured key-value backend.
func openStorage(cfg config.StorageConfig) (storage.KVStore, error) {
	storageType := cfg.Type
	if storageType == "" {
		storageType = storage.TypeBolt
	}

	switch storageType {
	case storage.TypeBolt:
		return bolt.Open(cfg.Path)
	case storage.TypeRedis:
		return redis.Open(cfg.Redis)
	case storage.TypeSQLite:
		return sqlite.Open(cfg.Path)
	case storage.TypeMemory:
		return memory.Open(cfg.Memory.Size)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// newRecorder builds the usage recorder for cfg.
func newRecorder(cfg *config.Config, store storage.KVStore, logger zerolog.Logger) *usage.Recorder {
	return usage.NewRecorder(store, usage.Config{
		Key:    cfg.Storage.Key,
		Locale: usage.NewEnvLocale(cfg.Analytics.Location(), cfg.Analytics.Language),
	}, logger)
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
