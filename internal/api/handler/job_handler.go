package handler

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"resume-match-go/internal/config"
	"resume-match-go/internal/embedding"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/textproc"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
)

// JobHandler 处理岗位的提交与查询
// 提交走异步链路：去重→发MQ→消费者入库，接口本身只确认受理
type JobHandler struct {
	cfg   *config.Config
	store *storage.Storage
}

// NewJobHandler 创建岗位处理器
func NewJobHandler(cfg *config.Config, store *storage.Storage) *JobHandler {
	return &JobHandler{
		cfg:   cfg,
		store: store,
	}
}

// SubmitJobRequest 岗位提交请求体
type SubmitJobRequest struct {
	Title           string `json:"title"`
	Company         string `json:"company"`
	Location        string `json:"location"`
	Description     string `json:"description"`
	SalaryMin       int    `json:"salary_min,omitempty"`
	SalaryMax       int    `json:"salary_max,omitempty"`
	EmploymentType  string `json:"employment_type,omitempty"`
	ExperienceLevel string `json:"experience_level,omitempty"`
}

// HandleSubmitJob 处理 POST /api/v1/jobs
func (h *JobHandler) HandleSubmitJob(c context.Context, ctx *app.RequestContext) {
	var req SubmitJobRequest
	if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是合法的JSON"})
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "岗位标题不能为空"})
		return
	}
	if err := textproc.ValidateInputText(req.Description, "description"); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}

	if h.store == nil || h.store.RabbitMQ == nil {
		ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "消息队列不可用，暂时无法受理岗位"})
		return
	}

	contentHash := embedding.ContentHash(textproc.CleanText(req.Description))

	// 内容去重：同样的岗位描述只受理一次
	if h.store.Redis != nil {
		exists, err := h.store.Redis.CheckAndAddJobContentHash(c, contentHash)
		if err != nil {
			logger.Ctx(c).Warn().Err(err).Msg("岗位内容去重检查失败，继续受理")
		} else if exists {
			ctx.JSON(consts.StatusConflict, utils.H{
				"error":        "重复的岗位内容",
				"content_hash": contentHash,
			})
			return
		}
	}

	jobID := uuid.NewString()
	msg := &storage.JobSubmittedMessage{
		JobID:           jobID,
		Title:           req.Title,
		Company:         req.Company,
		Location:        req.Location,
		Description:     req.Description,
		SalaryMin:       req.SalaryMin,
		SalaryMax:       req.SalaryMax,
		EmploymentType:  req.EmploymentType,
		ExperienceLevel: req.ExperienceLevel,
		SubmittedAt:     time.Now(),
		ContentHash:     contentHash,
	}

	if err := h.store.RabbitMQ.PublishJobSubmitted(c, msg); err != nil {
		logger.Ctx(c).Error().Err(err).Str("job_id", jobID).Msg("发布岗位提交消息失败")
		// 发布失败时撤销去重记录，允许客户端重试
		if h.store.Redis != nil {
			if rbErr := h.store.Redis.RemoveJobContentHash(c, contentHash); rbErr != nil {
				logger.Ctx(c).Warn().Err(rbErr).Msg("回滚岗位去重记录失败")
			}
		}
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "岗位受理失败，请稍后重试"})
		return
	}

	ctx.JSON(consts.StatusAccepted, utils.H{
		"job_id":       jobID,
		"status":       "queued",
		"content_hash": contentHash,
	})
}

// HandleListJobs 处理 GET /api/v1/jobs，按入库时间倒序分页返回在招岗位
func (h *JobHandler) HandleListJobs(c context.Context, ctx *app.RequestContext) {
	if h.store == nil || h.store.MySQL == nil {
		ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "数据库不可用"})
		return
	}

	offset := parsePositiveInt(ctx.Query("offset"), 0)
	limit := parsePositiveInt(ctx.Query("limit"), defaultRankPageSize)
	if limit > maxRankPageSize {
		limit = maxRankPageSize
	}

	jobs, total, err := h.store.MySQL.ListActiveJobs(c, offset, limit)
	if err != nil {
		logger.Ctx(c).Error().Err(err).Msg("查询岗位列表失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "查询岗位列表失败"})
		return
	}

	items := make([]utils.H, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, utils.H{
			"job_id":           job.JobID,
			"title":            job.Title,
			"company":          job.Company,
			"location":         job.Location,
			"description":      truncateDescription(job.DescriptionText),
			"salary_min":       job.SalaryMin,
			"salary_max":       job.SalaryMax,
			"employment_type":  job.EmploymentType,
			"experience_level": job.ExperienceLevel,
			"status":           job.Status,
		})
	}

	ctx.JSON(consts.StatusOK, utils.H{
		"total_count": total,
		"offset":      offset,
		"limit":       limit,
		"jobs":        items,
	})
}

func parsePositiveInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}
