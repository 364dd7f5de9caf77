package main

import (
	"context"
	"fanous-live/auth"
	"fanous-live/infrastructure/http/server"
	"fanous-live/infrastructure/socket"
	"fanous-live/internal"
	"fanous-live/moderation"
	"fanous-live/observability"
	"fanous-live/repositories"
	"fanous-live/runtime"
	"fanous-live/runtime/workers"
	"fanous-live/services"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run owns every resource so deferred cleanup happens before the exit code is returned.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(ctx, config, logger))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, StorageMapper)
	}

	blugeWriter, err := bluge.OpenWriter(buildBlugeConfig(config))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	moderator, err := moderation.NewDefaultModerator(charReplacement, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("moderator init failed: %w", err)
	}

	// 3. Real-time core
	monitoring := observability.NewMonitoringManager(logger)
	registry := runtime.NewRegistry()
	observability.RegisterOnlineUsers(registry.Count)
	router := runtime.NewRouter(logger, registry)

	userRepository := repositories.NewUserRepository(db)
	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	notificationRepository := repositories.NewNotificationRepository(db, logger)
	searchIndex := repositories.NewSearchIndex(blugeWriter, logger)

	issuer := auth.NewTokenIssuer(config.AuthSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(userRepository, issuer)
	chatService := services.NewChatService(
		logger, router, messageRepository, userRepository, searchIndex,
		moderator, monitoring, config.MaxBodyLength,
	)
	notificationService := services.NewNotificationService(logger, router, notificationRepository, monitoring)
	hub := runtime.NewHub(logger, registry, router, chatService, userRepository)

	// 4. Transports
	socketConfig := socket.Config{
		SendBufferSize: config.SendBufferSize,
		MaxMessageSize: config.MaxMessageSize,
		WriteTimeout:   config.WriteTimeout,
		PongTimeout:    config.PongTimeout,
		RateBurst:      config.RateBurst,
		RateInterval:   config.RateInterval,
		RequireToken:   config.RequireToken,
	}
	origins := socket.NewOriginPolicy(logger, config.Origins())
	handler := server.NewHandler(logger, server.Dependencies{
		Auth:            authService,
		Chat:            chatService,
		Notifications:   notificationService,
		Registry:        registry,
		Monitoring:      monitoring,
		Issuer:          issuer,
		EventTransport:  socket.NewEventTransport(logger, hub, issuer, origins, socketConfig),
		LegacyTransport: socket.NewLegacyTransport(logger, hub, issuer, chatService, notificationService, origins, socketConfig),
	})

	// 5. Supervision
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		workers.NewHTTPServerWorker(logger, config.Address(), handler, config.ShutdownTimeout),
		workers.NewHealthServerWorker(logger, config.AdminAddress()),
		workers.NewStatsWorker(logger, monitoring, registry.Count, config.StatsInterval),
	)

	logger.Info("Starting realtime server", "address", config.Address(), "admin", config.AdminAddress())
	sup.Run(ctx)

	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(ctx context.Context, config internal.Config, logger *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

// Without a path the search index lives in memory and is rebuilt from nothing on restart.
func buildBlugeConfig(config internal.Config) bluge.Config {
	if config.BlugeFilepath == "" {
		return bluge.InMemoryOnlyConfig()
	}
	return bluge.DefaultConfig(config.BlugeFilepath)
}

// StorageMapper renders stored records in the debug inspector.
func StorageMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	described := repositories.Describe([]byte(key), val)
	row.Type = strings.ToUpper(described.Kind)
	row.Detail = described.Summary
	return row
}
