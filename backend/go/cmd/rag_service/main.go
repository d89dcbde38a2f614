package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"Aethena/backend/go/internal/config"
	"Aethena/backend/go/internal/rag_service/api"
	"Aethena/backend/go/internal/rag_service/bootstrap"
	"Aethena/backend/go/pkg/http"
	"Aethena/backend/go/pkg/logger"
	"Aethena/backend/go/pkg/ratelimiter"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. 初始化日志
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("RAGService", "", "")
	appLogger.WithField("version", cfg.App.Version).Info("Starting RAG Service...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. 初始化依赖
	app, err := bootstrap.Build(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize dependencies: " + err.Error())
	}
	defer app.Close()

	// 4. 路由与中间件
	var limiter ratelimiter.KeyedRateLimiter
	if rl := cfg.Middleware.RateLimiter; rl.Enabled {
		limiter, err = ratelimiter.NewKeyedTokenBucket(rl.TokenBucket.Rate, rl.TokenBucket.Capacity, rl.MaxTenants)
		if err != nil {
			appLogger.Fatal("Failed to create rate limiter: " + err.Error())
		}
	}
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(api.NewHandler(app.Server, appLogger), api.RouterConfig{
		JwtSecret: cfg.Auth.JwtSecret,
		Limiter:   limiter,
		Logger:    appLogger.WithField("component", "http"),
	})

	// 5. 启动 HTTP 服务, 收到信号后优雅关闭
	srv, err := http.NewServer(cfg.Server, router, http.WithLogger(appLogger))
	if err != nil {
		appLogger.Fatal("Failed to create HTTP server: " + err.Error())
	}
	if err := srv.Run(ctx); err != nil {
		appLogger.Error("HTTP server stopped with error: " + err.Error())
		return
	}
	appLogger.Info("Server gracefully stopped")
}
