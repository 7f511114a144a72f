package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/locojk/GNG-5300-Group-Backend/internal/audit"
	"github.com/locojk/GNG-5300-Group-Backend/internal/auth"
	"github.com/locojk/GNG-5300-Group-Backend/internal/cache"
	"github.com/locojk/GNG-5300-Group-Backend/internal/config"
	"github.com/locojk/GNG-5300-Group-Backend/internal/database"
	"github.com/locojk/GNG-5300-Group-Backend/internal/handlers"
	"github.com/locojk/GNG-5300-Group-Backend/internal/mailer"
	"github.com/locojk/GNG-5300-Group-Backend/internal/middleware"
	"github.com/locojk/GNG-5300-Group-Backend/internal/observability"
	"github.com/locojk/GNG-5300-Group-Backend/internal/recommendation"
	"github.com/locojk/GNG-5300-Group-Backend/internal/repository"
	"github.com/locojk/GNG-5300-Group-Backend/internal/routes"
	"github.com/locojk/GNG-5300-Group-Backend/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	if cfg.MongoURI == "" {
		return errors.New("MONGO_URI is required")
	}
	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := database.Close(closeCtx, client); err != nil {
			logger.Warn("database disconnect failed", slog.String("error", err.Error()))
		}
	}()

	db := client.Database(cfg.MongoDBName)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	store := database.NewStore(db, logger)

	users := repository.NewUserRepository(store, logger)
	goals := repository.NewFitnessGoalRepository(store, logger)
	logs := repository.NewWorkoutLogRepository(store, logger)

	// 3. Optional infrastructure
	rdb := cache.Connect(ctx, cfg.RedisURL, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	var refresh services.RefreshStore
	if rdb != nil {
		refresh = auth.NewRedisRefreshStore(rdb)
	}

	var mail mailer.Mailer = mailer.NewLogMailer(logger, cfg.FrontendURL)
	if cfg.AWSRegion != "" && cfg.SESFromEmail != "" {
		sesMailer, err := mailer.NewSESMailer(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.FrontendURL)
		if err != nil {
			logger.Warn("ses unavailable, logging reset links instead", slog.String("error", err.Error()))
		} else {
			mail = sesMailer
		}
	}

	var sinks []audit.Sink
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		kafkaSink := audit.NewKafkaSink(brokers, cfg.AuditTopic)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}
	recorder := audit.NewRecorder(logger, sinks...)

	var engine recommendation.Engine
	if cfg.RecommendationEnabled() {
		llm := recommendation.NewChatLLM(recommendation.LLMConfig{
			APIKey:      cfg.LLMAPIKey,
			BaseURL:     cfg.LLMBaseURL,
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
		})
		var embedder recommendation.Embedder
		var retriever recommendation.Retriever
		if cfg.RetrievalEnabled() {
			embedder = recommendation.NewOpenAIEmbedder(cfg.EmbeddingAPIKey, cfg.EmbeddingBaseURL, cfg.EmbeddingModel)
			pc, err := recommendation.NewPineconeRetriever(cfg.PineconeIndexHost, cfg.PineconeAPIKey, cfg.PineconeNamespace, cfg.PineconeTopK)
			if err != nil {
				return fmt.Errorf("connect pinecone: %w", err)
			}
			defer pc.Close()
			retriever = pc
		}
		engine = recommendation.NewRAGEngine(llm, embedder, retriever, logger)
	} else {
		logger.Info("LLM_API_KEY not set, recommendation endpoints will report unavailable")
	}

	// 4. Services and handlers
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := services.NewAuthService(users, tokens, services.AuthServiceOptions{
		Refresh:  refresh,
		Mailer:   mail,
		Audit:    recorder,
		Logger:   logger,
		ResetTTL: cfg.PasswordResetTTL,
	})
	userService := services.NewUserService(users, goals, logs, recorder)
	goalService := services.NewFitnessGoalService(goals, recorder)
	logService := services.NewWorkoutLogService(logs, recorder)
	recService := services.NewRecommendationService(engine, users, goals, services.RecommendationOptions{
		Timeout:    cfg.RecommendationTimeout,
		MaxRetries: cfg.RecommendationMaxRetries,
		Cache:      cache.NewJSONCache(rdb, "recommendation:"),
		CacheTTL:   cfg.RecommendationCacheTTL,
		Logger:     logger,
	})

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{AppName: "Fitness API"})
	prom := fiberprometheus.New("fitness-api")

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.Correlation())
	app.Use(prom.Middleware)
	app.Use(helmet.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Origins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))

	if err := routes.RegisterRoutes(app, cfg, routes.Dependencies{
		Auth:     handlers.NewAuthHandler(authService, logger),
		User:     handlers.NewUserHandler(userService, logger),
		Workout:  handlers.NewWorkoutHandler(goalService, logService, logger),
		AIChat:   handlers.NewAIChatHandler(recService, logger),
		Health:   handlers.NewHealthHandler(database.ClientPinger{Client: client}, logger),
		Tokens:   tokens,
		Accounts: users,
		Redis:    rdb,
		Metrics:  prom,
		Logger:   logger,
	}); err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	// 6. Start Server
	listenErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("port", cfg.Port), slog.String("env", cfg.AppEnv))
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
