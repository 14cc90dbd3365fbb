package router

import (
	"context"

	"resume-match-go/internal/api/handler"
	"resume-match-go/internal/config"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
)

// Handlers 汇集全部API处理器，由main构造后注入
type Handlers struct {
	Match   *handler.MatchHandler
	Rank    *handler.RankHandler
	Job     *handler.JobHandler
	Resume  *handler.ResumeHandler
	Metrics *handler.MetricsHandler
}

// New 创建带链路追踪的HTTP服务器并注册路由
func New(cfg *config.Config, hs *Handlers) *server.Hertz {
	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	RegisterRoutes(h, cfg, hs)
	return h
}

// RegisterRoutes 注册 API 路由
// 健康检查不走鉴权，其余接口在配置了api_keys时要求X-API-Key
func RegisterRoutes(h *server.Hertz, cfg *config.Config, hs *Handlers) {
	h.GET("/api/v1/health", hs.Metrics.HandleHealth)

	api := h.Group("/api/v1")
	if len(cfg.Server.APIKeys) > 0 {
		api.Use(apiKeyAuth(cfg.Server.APIKeys))
	}

	api.POST("/match", hs.Match.HandleMatch)
	api.POST("/jobs/rank", hs.Rank.HandleRankJobs)
	api.POST("/jobs", hs.Job.HandleSubmitJob)
	api.GET("/jobs", hs.Job.HandleListJobs)
	api.POST("/resumes/upload", hs.Resume.HandleResumeUpload)
	api.GET("/metrics/cache", hs.Metrics.HandleCacheStats)
}

// apiKeyAuth 基于固定key列表的请求鉴权
func apiKeyAuth(keys []string) app.HandlerFunc {
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}

	return keyauth.New(
		keyauth.WithKeyLookUp("header:X-API-Key", ""),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			_, ok := allowed[key]
			return ok, nil
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			c.JSON(consts.StatusUnauthorized, utils.H{"error": "无效的API Key"})
			c.Abort()
		}),
	)
}
