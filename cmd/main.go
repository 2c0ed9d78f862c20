package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pictura/imagegen/internal/config"
	"pictura/imagegen/internal/handler"
	"pictura/imagegen/internal/metrics"
	"pictura/imagegen/internal/model"
	"pictura/imagegen/internal/provider"
	"pictura/imagegen/internal/repository"
	"pictura/imagegen/internal/service"
	"pictura/imagegen/pkg/crypto"
	jwtpkg "pictura/imagegen/pkg/jwt"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	issueToken := flag.String("issue-token", "", "print a bearer token for the named client and exit")
	newSigningKey := flag.Bool("new-signing-key", false, "print a random value for auth.signing_key and exit")
	flag.Parse()

	if *newSigningKey {
		key, err := crypto.GenerateSigningKey()
		if err != nil {
			log.Fatalf("failed to generate signing key: %v", err)
		}
		fmt.Println(key)
		return
	}

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 3. JWT manager (optional auth)
	var jwtManager *jwtpkg.Manager
	if cfg.Auth.SigningKey != "" {
		jwtManager = jwtpkg.NewManager(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	}
	if *issueToken != "" {
		if jwtManager == nil {
			logger.Fatal("auth.signing_key must be set to issue tokens")
		}
		token, err := jwtManager.Issue(*issueToken)
		if err != nil {
			logger.Fatal("failed to issue token", zap.Error(err))
		}
		fmt.Println(token)
		return
	}
	if cfg.Auth.Enabled && jwtManager == nil {
		logger.Fatal("auth.enabled requires auth.signing_key")
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// 4. Initialize state store (memory, Redis or PostgreSQL)
	stateStore, err := newStateStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to init state store", zap.String("backend", cfg.State.Backend), zap.Error(err))
	}

	// 5. Image provider
	imageProvider, err := provider.New(provider.Options{
		Backend:     cfg.Provider.Backend,
		BaseURL:     cfg.Provider.OpenAI.BaseURL,
		APIKey:      cfg.Provider.OpenAI.APIKey,
		StaticURL:   cfg.Provider.Static.URL,
		StaticDelay: cfg.Provider.Static.Delay,
	})
	if err != nil {
		logger.Fatal("failed to init image provider", zap.Error(err))
	}
	logger.Info("image provider initialized",
		zap.String("backend", cfg.Provider.Backend),
		zap.String("model", cfg.Provider.Model),
	)

	// 6. Services
	collector := metrics.NewCollector("imagegen")
	statuses := repository.NewStatusRepository(stateStore, cfg.Generation.Retention)
	generationService := service.NewGenerationService(statuses, imageProvider, service.GenerationConfig{
		Model:           cfg.Provider.Model,
		Size:            cfg.Provider.Size,
		N:               cfg.Provider.N,
		ProviderTimeout: cfg.Generation.ProviderTimeout,
		ResponseWait:    cfg.Generation.ResponseWait,
	}, logger, collector)

	sweeper := service.NewSweeper(stateStore, cfg.Generation.SweepInterval, logger, collector)
	go sweeper.Run(rootCtx)

	// 7. Setup router
	generateHandler := handler.NewGenerateHandler(generationService, logger)
	router := handler.SetupRouter(rootCtx, cfg, logger, collector, jwtManager, generateHandler)

	// 8. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 9. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 10. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	stop()
	if err := generationService.Shutdown(ctx); err != nil {
		logger.Warn("in-flight generations abandoned", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func newStateStore(cfg *config.Config, logger *zap.Logger) (repository.StateStore, error) {
	switch cfg.State.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		logger.Info("using Redis state store")
		return repository.NewRedisStateStore(redisClient), nil
	case "postgres":
		db, err := config.NewPostgresDB(cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		if cfg.Database.Postgres.AutoMigrate {
			if err := model.AutoMigrate(db); err != nil {
				return nil, fmt.Errorf("auto-migrate: %w", err)
			}
			logger.Info("database migration completed")
		}
		logger.Info("using PostgreSQL state store")
		return repository.NewPGStateStore(db), nil
	case "memory", "":
		logger.Info("using in-memory state store")
		return repository.NewMemoryStateStore(), nil
	default:
		return nil, fmt.Errorf("unknown state backend: %s", cfg.State.Backend)
	}
}
