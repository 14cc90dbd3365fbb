package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-match-go/internal/config"
	"resume-match-go/internal/embedding"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/matcher"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/storage/models"
	"resume-match-go/internal/textproc"
	"resume-match-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// 摘要行前缀，覆盖的要求用对勾，缺口用警告
const (
	strengthGlyph = "✓ "
	gapGlyph      = "⚠ "
)

// MatchHandler 处理单次简历-JD匹配请求
type MatchHandler struct {
	cfg     *config.Config
	matcher *matcher.Service
	store   *storage.Storage
}

// NewMatchHandler 创建匹配处理器，store可为nil（不落库评估记录）
func NewMatchHandler(cfg *config.Config, m *matcher.Service, store *storage.Storage) *MatchHandler {
	return &MatchHandler{
		cfg:     cfg,
		matcher: m,
		store:   store,
	}
}

// MatchRequest 匹配请求体
// job_description与job_id二选一，同时给出时以job_description为准
type MatchRequest struct {
	ResumeText     string `json:"resume_text"`
	JobDescription string `json:"job_description,omitempty"`
	JobID          string `json:"job_id,omitempty"`
}

// MatchSummary 面向展示的摘要行，已带状态前缀
type MatchSummary struct {
	Strengths []string `json:"strengths"`
	Gaps      []string `json:"gaps"`
}

// MatchResponse 匹配响应体
type MatchResponse struct {
	MatchScore float64                  `json:"match_score"`
	Summary    MatchSummary             `json:"summary"`
	Strengths  []types.MatchRequirement `json:"strengths"`
	Gaps       []types.MatchRequirement `json:"gaps"`
	Skills     types.SkillMatch         `json:"skills"`
	Degraded   bool                     `json:"degraded"`
}

// HandleMatch 处理 POST /api/v1/match
func (h *MatchHandler) HandleMatch(c context.Context, ctx *app.RequestContext) {
	var req MatchRequest
	if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是合法的JSON"})
		return
	}

	if err := textproc.ValidateInputText(req.ResumeText, "resume_text"); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}

	jdText, err := h.resolveJobDescription(c, &req)
	if err != nil {
		var vErr *textproc.ValidationError
		if errors.As(err, &vErr) {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": vErr.Error()})
			return
		}
		ctx.JSON(consts.StatusNotFound, utils.H{"error": err.Error()})
		return
	}

	result, err := h.matcher.AnalyzeMatch(c, req.ResumeText, jdText)
	if err != nil {
		logger.Ctx(c).Error().Err(err).Msg("匹配分析失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "匹配分析失败"})
		return
	}

	h.persistEvaluation(c, &req, jdText, result)

	ctx.JSON(consts.StatusOK, buildMatchResponse(result))
}

// resolveJobDescription 确定参与匹配的JD文本
// 直接给出文本时校验后返回；仅给出job_id时先查Redis缓存再回源MySQL
func (h *MatchHandler) resolveJobDescription(ctx context.Context, req *MatchRequest) (string, error) {
	if req.JobDescription != "" {
		if err := textproc.ValidateInputText(req.JobDescription, "job_description"); err != nil {
			return "", err
		}
		return req.JobDescription, nil
	}

	if req.JobID == "" {
		return "", &textproc.ValidationError{Field: "job_description", Reason: "job_description与job_id必须至少提供一个"}
	}

	if h.store != nil && h.store.Redis != nil {
		text, err := h.store.Redis.GetJobDescription(ctx, req.JobID)
		if err == nil && text != "" {
			return text, nil
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			logger.Ctx(ctx).Warn().Err(err).Str("job_id", req.JobID).Msg("查询JD缓存失败，回源数据库")
		}
	}

	if h.store != nil && h.store.MySQL != nil {
		job, err := h.store.MySQL.GetJobByID(ctx, req.JobID)
		if err == nil && job != nil {
			return job.DescriptionText, nil
		}
	}

	return "", fmt.Errorf("岗位不存在: %s", req.JobID)
}

// persistEvaluation 将匹配结果落库，失败仅告警不影响响应
func (h *MatchHandler) persistEvaluation(ctx context.Context, req *MatchRequest, jdText string, result *types.MatchResult) {
	if h.store == nil || h.store.MySQL == nil {
		return
	}

	strengthsJSON, _ := json.Marshal(result.Strengths)
	gapsJSON, _ := json.Marshal(result.Gaps)
	skillsJSON, _ := json.Marshal(result.Skills)

	eval := &models.MatchEvaluation{
		ResumeHash:       embedding.ContentHash(textproc.CleanText(req.ResumeText)),
		JobHash:          embedding.ContentHash(textproc.CleanText(jdText)),
		MatchScore:       result.MatchScore,
		StrengthsJSON:    strengthsJSON,
		GapsJSON:         gapsJSON,
		SkillsJSON:       skillsJSON,
		Degraded:         result.Degraded,
		EmbeddingVersion: h.matcher.EmbeddingVersion(),
		EvaluatedAt:      time.Now(),
	}
	if req.JobID != "" {
		jobID := req.JobID
		eval.JobID = &jobID
	}

	if err := h.store.MySQL.SaveMatchEvaluation(ctx, eval); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("保存匹配评估记录失败")
	}
}

func buildMatchResponse(result *types.MatchResult) *MatchResponse {
	summary := MatchSummary{
		Strengths: make([]string, 0, len(result.Strengths)),
		Gaps:      make([]string, 0, len(result.Gaps)),
	}
	for _, s := range result.Strengths {
		summary.Strengths = append(summary.Strengths, strengthGlyph+s.Sentence)
	}
	for _, g := range result.Gaps {
		summary.Gaps = append(summary.Gaps, gapGlyph+g.Sentence)
	}

	return &MatchResponse{
		MatchScore: result.MatchScore,
		Summary:    summary,
		Strengths:  result.Strengths,
		Gaps:       result.Gaps,
		Skills:     result.Skills,
		Degraded:   result.Degraded,
	}
}
