package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"resume-match-go/internal/config"
	"resume-match-go/internal/constants"
	"resume-match-go/internal/embedding"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/matcher"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/textproc"
	"resume-match-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const (
	defaultRankPageSize   = 10
	maxRankPageSize       = 50
	rankRetryAfterSeconds = 2
	// 响应中岗位描述的截断长度，完整文本走岗位详情
	rankDescriptionLimit = 500
)

// RankHandler 处理简历对岗位库的批量排序请求
// 排序结果按(简历哈希, 条件哈希)作为会话缓存在Redis ZSET中，
// 分页请求直接读缓存；并发的首次计算用分布式锁合并成一次
type RankHandler struct {
	cfg     *config.Config
	matcher *matcher.Service
	store   *storage.Storage
}

// NewRankHandler 创建排序处理器，store可为nil（退化为每次实时计算）
func NewRankHandler(cfg *config.Config, m *matcher.Service, store *storage.Storage) *RankHandler {
	return &RankHandler{
		cfg:     cfg,
		matcher: m,
		store:   store,
	}
}

// RankRequest 排序请求体
type RankRequest struct {
	ResumeText string               `json:"resume_text"`
	TopK       int                  `json:"top_k,omitempty"`
	Cursor     int64                `json:"cursor,omitempty"`
	Limit      int64                `json:"limit,omitempty"`
	Filters    types.FilterCriteria `json:"filters,omitempty"`
}

// RankResponse 排序响应体
type RankResponse struct {
	Status     string            `json:"status"`
	TotalCount int64             `json:"total_count"`
	Cursor     int64             `json:"cursor"`
	NextCursor int64             `json:"next_cursor"` // -1 表示没有更多结果
	Results    []types.RankedJob `json:"results"`
}

// HandleRankJobs 处理 POST /api/v1/jobs/rank
func (h *RankHandler) HandleRankJobs(c context.Context, ctx *app.RequestContext) {
	var req RankRequest
	if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是合法的JSON"})
		return
	}

	if err := textproc.ValidateInputText(req.ResumeText, "resume_text"); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}
	if req.Cursor < 0 {
		req.Cursor = 0
	}
	if req.Limit <= 0 {
		req.Limit = defaultRankPageSize
	}
	if req.Limit > maxRankPageSize {
		req.Limit = maxRankPageSize
	}
	topK := req.TopK
	if topK <= 0 {
		topK = h.cfg.Qdrant.DefaultSearchLimit
	}

	// 无Redis时退化为每次实时计算，不分会话
	if h.store == nil || h.store.Redis == nil {
		h.rankWithoutCache(c, ctx, &req, topK)
		return
	}

	resumeHash := embedding.ContentHash(textproc.CleanText(req.ResumeText))
	criteriaHash := rankCriteriaHash(topK, req.Filters)
	sessionKey := storage.RankSessionKey(resumeHash, criteriaHash)
	lockKey := storage.RankLockKey(resumeHash, criteriaHash)

	// 1. 先查会话缓存
	cached, total, err := h.store.Redis.GetCachedRankSession(c, sessionKey, req.Cursor, req.Limit)
	if err != nil {
		logger.Ctx(c).Warn().Err(err).Str("session_key", sessionKey).Msg("读取排序会话缓存失败")
	}
	if total > 0 {
		ctx.JSON(consts.StatusOK, buildRankResponse(cached, total, req.Cursor, req.Limit))
		return
	}

	// 2. 缓存未命中且不是首页：会话已过期，要求客户端重新发起
	if req.Cursor > 0 {
		ctx.JSON(consts.StatusNotFound, utils.H{
			"error": "排序会话不存在或已过期，请从 cursor=0 重新发起",
		})
		return
	}

	// 3. 首页未命中：抢锁计算，并发请求只有一个执行流水线
	lockValue, err := h.store.Redis.AcquireLock(c, lockKey, constants.RankLockDuration)
	if err != nil {
		logger.Ctx(c).Error().Err(err).Str("lock_key", lockKey).Msg("获取排序锁失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "内部错误"})
		return
	}
	if lockValue == "" {
		// 其他请求正在计算同一会话
		ctx.JSON(consts.StatusAccepted, utils.H{
			"status":      "processing",
			"retry_after": rankRetryAfterSeconds,
		})
		return
	}
	defer func() {
		if _, err := h.store.Redis.ReleaseLock(c, lockKey, lockValue); err != nil {
			logger.Ctx(c).Warn().Err(err).Str("lock_key", lockKey).Msg("释放排序锁失败")
		}
	}()

	results, err := h.matcher.RankJobsForResume(c, req.ResumeText, topK, req.Filters)
	if err != nil {
		logger.Ctx(c).Error().Err(err).Msg("岗位排序失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "岗位排序失败"})
		return
	}

	if err := h.store.Redis.CacheRankSession(c, sessionKey, results, constants.RankSessionCacheDuration); err != nil {
		logger.Ctx(c).Warn().Err(err).Str("session_key", sessionKey).Msg("写入排序会话缓存失败")
	}

	page := pageOf(results, req.Cursor, req.Limit)
	ctx.JSON(consts.StatusOK, buildRankResponse(page, int64(len(results)), req.Cursor, req.Limit))
}

func (h *RankHandler) rankWithoutCache(c context.Context, ctx *app.RequestContext, req *RankRequest, topK int) {
	results, err := h.matcher.RankJobsForResume(c, req.ResumeText, topK, req.Filters)
	if err != nil {
		var vErr *textproc.ValidationError
		if errors.As(err, &vErr) {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": vErr.Error()})
			return
		}
		logger.Ctx(c).Error().Err(err).Msg("岗位排序失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "岗位排序失败"})
		return
	}
	page := pageOf(results, req.Cursor, req.Limit)
	ctx.JSON(consts.StatusOK, buildRankResponse(page, int64(len(results)), req.Cursor, req.Limit))
}

// rankCriteriaHash 对topK与过滤条件做确定性哈希，同样的查询落到同一会话
func rankCriteriaHash(topK int, f types.FilterCriteria) string {
	canonical := fmt.Sprintf("%d|%d|%s|%s|%s",
		topK,
		f.MinSalary,
		strings.ToLower(strings.TrimSpace(f.Location)),
		strings.ToLower(strings.TrimSpace(f.ExperienceLevel)),
		strings.ToLower(strings.TrimSpace(f.EmploymentType)),
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func pageOf(results []types.RankedJob, cursor, limit int64) []types.RankedJob {
	if cursor >= int64(len(results)) {
		return nil
	}
	end := cursor + limit
	if end > int64(len(results)) {
		end = int64(len(results))
	}
	return results[cursor:end]
}

func buildRankResponse(page []types.RankedJob, total, cursor, limit int64) *RankResponse {
	out := make([]types.RankedJob, len(page))
	for i, job := range page {
		out[i] = job
		out[i].Candidate.Description = truncateDescription(job.Candidate.Description)
	}

	nextCursor := cursor + int64(len(page))
	if nextCursor >= total || len(page) == 0 {
		nextCursor = -1
	}

	return &RankResponse{
		Status:     "completed",
		TotalCount: total,
		Cursor:     cursor,
		NextCursor: nextCursor,
		Results:    out,
	}
}

func truncateDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= rankDescriptionLimit {
		return s
	}
	return string(runes[:rankDescriptionLimit]) + "..."
}
