package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"redline.app/engine/common/id"
	"redline.app/engine/common/llm"
	"redline.app/engine/common/logger"
	"redline.app/engine/common/otel"
	"redline.app/engine/core/config"
	"redline.app/engine/core/db"
	"redline.app/engine/internal/analyzer"
	"redline.app/engine/internal/cache"
	"redline.app/engine/internal/decision"
	"redline.app/engine/internal/engine"
	"redline.app/engine/internal/filter"
	"redline.app/engine/internal/http/handler"
	"redline.app/engine/internal/http/middleware"
	httprouter "redline.app/engine/internal/http/router"
	"redline.app/engine/internal/refiner"
	"redline.app/engine/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Logger is not set up yet at this point
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "engine starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	var refinements store.RefinementStore
	if cfg.DB.Enabled() {
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()
		if err := store.EnsureSchema(ctx, database.Pool()); err != nil {
			slog.ErrorContext(ctx, "failed to ensure schema", "error", err)
			os.Exit(1)
		}
		refinements = store.NewRefinementStore(database.Pool())
		slog.InfoContext(ctx, "database connected")
	} else {
		slog.InfoContext(ctx, "database disabled, refinement stats will not be recorded")
	}

	suggestionCache := cache.Cache(cache.NewMemory(cfg.Cache.TTL))
	var allowList filter.AllowListProvider
	if cfg.Redis.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		suggestionCache = cache.NewRedis(redisClient, cfg.Cache.TTL)
		allowList = filter.NewRedisProvider(redisClient)
		slog.InfoContext(ctx, "redis connected")
	} else {
		slog.InfoContext(ctx, "redis disabled, using in-memory cache")
	}

	var ref *refiner.Refiner
	if cfg.OpenAI.Enabled() {
		llmClient, err := llm.New(llm.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create llm client", "error", err)
			os.Exit(1)
		}
		ref = refiner.New(llmClient, refinements)
		slog.InfoContext(ctx, "remote refiner enabled", "model", cfg.OpenAI.Model)
	} else {
		slog.InfoContext(ctx, "remote refiner disabled (no api key), serving local analysis only")
	}

	service := engine.NewService(
		analyzer.New(),
		ref,
		decision.New(cfg.Decision),
		suggestionCache,
		allowList,
		slog.Default(),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, service, refinements)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, service *engine.Service, refinements store.RefinementStore) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router,
		handler.NewAnalyzeHandler(service),
		handler.NewStatsHandler(refinements),
		httprouter.RouterConfig{AdminAPIKey: cfg.AdminAPIKey},
	)

	return router
}

const banner = `
██████╗ ███████╗██████╗ ██╗     ██╗███╗   ██╗███████╗
██╔══██╗██╔════╝██╔══██╗██║     ██║████╗  ██║██╔════╝
██████╔╝█████╗  ██║  ██║██║     ██║██╔██╗ ██║█████╗
██╔══██╗██╔══╝  ██║  ██║██║     ██║██║╚██╗██║██╔══╝
██║  ██║███████╗██████╔╝███████╗██║██║ ╚████║███████╗
╚═╝  ╚═╝╚══════╝╚═════╝ ╚══════╝╚═╝╚═╝  ╚═══╝╚══════╝
`
