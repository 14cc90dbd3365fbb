package handler

import (
	"context"

	"resume-match-go/internal/matcher"
	"resume-match-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// MetricsHandler 暴露运行指标与健康状态
type MetricsHandler struct {
	matcher *matcher.Service
	store   *storage.Storage
}

// NewMetricsHandler 创建指标处理器
func NewMetricsHandler(m *matcher.Service, store *storage.Storage) *MetricsHandler {
	return &MetricsHandler{
		matcher: m,
		store:   store,
	}
}

// HandleCacheStats 处理 GET /api/v1/metrics/cache
func (h *MetricsHandler) HandleCacheStats(c context.Context, ctx *app.RequestContext) {
	if h.matcher == nil {
		ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "匹配服务未初始化"})
		return
	}
	ctx.JSON(consts.StatusOK, h.matcher.CacheStats())
}

// HandleHealth 处理 GET /api/v1/health
// 逐个上报存储组件的可用状态，任一组件缺失不影响整体up
func (h *MetricsHandler) HandleHealth(c context.Context, ctx *app.RequestContext) {
	components := utils.H{}

	if h.store != nil {
		components["mysql"] = componentStatus(h.store.MySQL != nil)
		components["minio"] = componentStatus(h.store.MinIO != nil)
		components["qdrant"] = componentStatus(h.store.Qdrant != nil)
		components["rabbitmq"] = componentStatus(h.store.RabbitMQ != nil)

		redisStatus := "down"
		if h.store.Redis != nil {
			redisStatus = "up"
			if err := h.store.Redis.Ping(c); err != nil {
				redisStatus = "degraded"
			}
		}
		components["redis"] = redisStatus
	}

	ctx.JSON(consts.StatusOK, utils.H{
		"status":     "ok",
		"components": components,
	})
}

func componentStatus(up bool) string {
	if up {
		return "up"
	}
	return "down"
}
