package api

import (
	"Aethena/backend/go/pkg/httpmiddleware"
	"Aethena/backend/go/pkg/logger"
	"Aethena/backend/go/pkg/ratelimiter"
	"github.com/gin-gonic/gin"
)

// RouterConfig 汇总构建路由所需的依赖。Limiter 为空时不启用限流。
type RouterConfig struct {
	JwtSecret string
	Limiter   ratelimiter.KeyedRateLimiter
	Logger    *logger.Logger
}

// SetupRouter 配置和返回一个 Gin 引擎实例。
func SetupRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(cfg.Logger))

	// 健康检查不需要认证
	r.GET("/healthz", h.Healthz)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(AuthMiddleware(cfg.JwtSecret))
	if cfg.Limiter != nil {
		// 限流放在认证之后, 这样按租户而不是按 IP 计数
		apiV1.Use(httpmiddleware.RateLimit(cfg.Limiter, httpmiddleware.TenantOrIP))
	}
	{
		apiV1.POST("/documents", h.UploadDocument)
		apiV1.GET("/documents", h.ListDocuments)

		apiV1.POST("/ingest", h.Ingest)
		apiV1.POST("/ingest/batch", h.IngestBatch)
		apiV1.POST("/ingest/async", h.IngestAsync)
		apiV1.GET("/jobs/:id", h.GetJob)

		apiV1.POST("/query", h.Query)

		apiV1.GET("/history", h.ListHistory)
		apiV1.GET("/history/export", h.ExportHistory)
		apiV1.DELETE("/history/:id", h.DeleteHistory)
	}

	return r
}
