package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"coursedrive/internal/auth"
	"coursedrive/internal/capabilities"
	"coursedrive/internal/config"
	"coursedrive/internal/domain/repositories"
	repoDrive "coursedrive/internal/domain/repositories/drive"
	"coursedrive/internal/domain/services"
	"coursedrive/internal/handler"
	"coursedrive/internal/middleware"
	"coursedrive/internal/repository/memory"
	"coursedrive/internal/repository/mongodb"
	"coursedrive/internal/repository/postgres"
	"coursedrive/internal/service/drive"
	"coursedrive/internal/service/quiz"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

// stores bundles the repositories of the selected backend
type stores struct {
	nodes     repoDrive.NodeRepository
	quizzes   repositories.QuizRepository
	txManager repositories.TransactionManager
	close     func()
}

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup structured logging, optionally teed to a rotating log file
	var logOutput io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to setup log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}
	logger := config.NewLogger(cfg.Environment, logOutput)
	slog.SetDefault(logger)

	handler.SetExposeInternalErrors(!cfg.IsProduction())

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"store", cfg.StoreDriver,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session verification: JWKS when configured, shared secret otherwise
	var jwtVerifier auth.JWTVerifier
	if cfg.AuthJWKSURL != "" {
		jwtVerifier, err = auth.NewJWKSVerifier(ctx, cfg.AuthJWKSURL, logger)
	} else {
		jwtVerifier, err = auth.NewHMACVerifier(cfg.AuthSecret, logger)
	}
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer st.close()

	// Initialize capability registry
	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}
	if _, err := capabilityRegistry.GetModelCapabilities(cfg.QuizProvider, cfg.QuizModel); err != nil {
		fallback, defErr := capabilityRegistry.DefaultModel(cfg.QuizProvider)
		if defErr != nil {
			log.Fatalf("Unknown quiz provider %q: %v", cfg.QuizProvider, defErr)
		}
		logger.Warn("quiz model not in registry, using provider default",
			"provider", cfg.QuizProvider,
			"requested", cfg.QuizModel,
			"model", fallback,
		)
		cfg.QuizModel = fallback
	}

	generator, err := setupQuizGenerator(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to setup quiz generator: %v", err)
	}

	var locker quiz.Locker
	if cfg.RedisURL != "" {
		redisClient, err := quiz.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		locker = quiz.NewRedisLocker(redisClient, cfg.TablePrefix+"quiz-lock:", 2*time.Minute)
		logger.Info("quiz generation lock enabled", "backend", "redis")
	}

	// Create services
	driveService := drive.NewDriveService(st.nodes, st.quizzes, st.txManager, drive.Options{
		DefaultThumbnail: cfg.DefaultThumbnail,
		MaxTreeDepth:     cfg.MaxTreeDepth,
		TablePageSize:    cfg.TablePageSize,
	}, logger)
	quizService := quiz.NewQuizService(st.nodes, st.quizzes, generator, locker, cfg.QuizModel, logger)

	// Create handlers
	driveHandler := handler.NewDriveHandler(driveService, logger)
	sidebarHandler := handler.NewSidebarHandler(driveService, logger)
	quizHandler := handler.NewQuizHandler(quizService, logger)
	modelsHandler := handler.NewModelsHandler(cfg, logger, capabilityRegistry)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Drive routes
	mux.HandleFunc("GET /api/drive", driveHandler.List)
	mux.HandleFunc("POST /api/drive", driveHandler.Create)
	mux.HandleFunc("PUT /api/drive", driveHandler.Update)
	mux.HandleFunc("DELETE /api/drive", driveHandler.Delete)
	mux.HandleFunc("GET /api/drive/tree", driveHandler.Tree)   // Must come before {id} route
	mux.HandleFunc("GET /api/drive/table", driveHandler.Table) // Must come before {id} route
	mux.HandleFunc("GET /api/drive/{id}", driveHandler.Get)
	mux.HandleFunc("POST /api/drive/{id}/restore", driveHandler.Restore)

	// Sidebar routes
	mux.HandleFunc("GET /api/sidebar-items", sidebarHandler.Items)

	// Quiz routes
	mux.HandleFunc("GET /api/quiz", quizHandler.GetQuiz)

	// Model capabilities routes
	mux.HandleFunc("GET /api/models/capabilities", modelsHandler.GetCapabilities)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → RequestLogger → Auth → Routes
	h = middleware.Auth(jwtVerifier, middleware.AuthOptions{
		CookieName:  cfg.AuthCookieName,
		PublicPaths: []string{"/health"},
	}, logger)(h)
	h = middleware.RequestLogger(logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // Quiz generation can take tens of seconds
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}
}

// openStores connects the configured backend and prepares its schema
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.Migrate(ctx, pool, tables); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("database connected", "driver", "postgres")

		repoConfig := &postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger}
		return &stores{
			nodes:     postgres.NewNodeRepository(repoConfig),
			quizzes:   postgres.NewQuizRepository(repoConfig),
			txManager: postgres.NewTransactionManager(pool, logger),
			close:     pool.Close,
		}, nil

	case config.StoreMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDatabase)
		names := mongodb.NewCollectionNames(cfg.TablePrefix)
		if err := mongodb.EnsureIndexes(ctx, db, names); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		logger.Info("database connected", "driver", "mongo", "database", cfg.MongoDatabase)

		repoConfig := &mongodb.RepositoryConfig{Client: client, Database: db, Collections: names, Logger: logger}
		return &stores{
			nodes:     mongodb.NewNodeRepository(repoConfig),
			quizzes:   mongodb.NewQuizRepository(repoConfig),
			txManager: mongodb.NewTransactionManager(client),
			close: func() {
				disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(disconnectCtx)
			},
		}, nil

	default:
		logger.Warn("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		return &stores{
			nodes:     memory.NewNodeRepository(store),
			quizzes:   memory.NewQuizRepository(store),
			txManager: memory.NewTransactionManager(),
			close:     func() {},
		}, nil
	}
}

// setupQuizGenerator returns nil (quiz endpoint answers 503) when the provider has no credentials
func setupQuizGenerator(cfg *config.Config, logger *slog.Logger) (services.QuizGenerator, error) {
	switch cfg.QuizProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			logger.Warn("ANTHROPIC_API_KEY not set, quiz generation disabled")
			return nil, nil
		}
		generator, err := quiz.NewAnthropicGenerator(cfg.AnthropicAPIKey, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("quiz generator ready", "provider", "anthropic", "model", cfg.QuizModel)
		return generator, nil
	case "openrouter":
		if cfg.OpenRouterAPIKey == "" {
			logger.Warn("OPENROUTER_API_KEY not set, quiz generation disabled")
			return nil, nil
		}
		generator, err := quiz.NewOpenRouterGenerator(cfg.OpenRouterAPIKey, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("quiz generator ready", "provider", "openrouter", "model", cfg.QuizModel)
		return generator, nil
	case "lorem":
		logger.Info("quiz generator ready", "provider", "lorem")
		return quiz.NewLoremGenerator(), nil
	}
	return nil, errors.New("unknown QUIZ_PROVIDER " + cfg.QuizProvider)
}
