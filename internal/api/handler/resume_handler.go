package handler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"resume-match-go/internal/config"
	"resume-match-go/internal/constants"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/matcher"
	"resume-match-go/internal/parser"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/storage/models"
	"resume-match-go/internal/textproc"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
)

// ResumeHandler 处理简历PDF的上传、解析与可选的即时匹配
type ResumeHandler struct {
	cfg       *config.Config
	store     *storage.Storage
	extractor *parser.PDFTextExtractor
	matcher   *matcher.Service
}

// NewResumeHandler 创建简历处理器
// matcher可为nil，此时忽略上传时附带的job_id
func NewResumeHandler(cfg *config.Config, store *storage.Storage, extractor *parser.PDFTextExtractor, m *matcher.Service) *ResumeHandler {
	return &ResumeHandler{
		cfg:       cfg,
		store:     store,
		extractor: extractor,
		matcher:   m,
	}
}

// HandleResumeUpload 处理 POST /api/v1/resumes/upload
// multipart字段：file必填；job_id可选，给出时同步返回与该岗位的匹配结果
func (h *ResumeHandler) HandleResumeUpload(c context.Context, ctx *app.RequestContext) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".pdf" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "仅支持PDF格式的简历"})
		return
	}

	if h.store == nil || h.store.MinIO == nil || h.extractor == nil {
		ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "对象存储不可用，暂时无法受理简历"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开上传文件失败"})
		return
	}
	defer file.Close()

	resumeUUID := uuid.NewString()

	// 1. 流式上传原始文件，同时计算内容哈希
	objectKey, hashHex, err := h.store.MinIO.UploadResumeFile(c, resumeUUID, ext, file, fileHeader.Size)
	if err != nil {
		logger.Ctx(c).Error().Err(err).Str("filename", fileHeader.Filename).Msg("上传简历原始文件失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "上传文件失败"})
		return
	}

	// 2. 内容去重：同一份文件直接返回已有记录
	if dup := h.checkDuplicate(c, ctx, objectKey, hashHex); dup {
		return
	}

	// 3. 先落PENDING记录，解析失败时状态可追溯
	if h.store.MySQL != nil {
		doc := &models.ResumeDocument{
			ResumeUUID:          resumeUUID,
			OriginalFilename:    fileHeader.Filename,
			OriginalFilePathOSS: objectKey,
			ContentHash:         hashHex,
			ProcessingStatus:    constants.ResumeStatusPendingParsing,
			ParserVersion:       parser.ExtractorVersion,
		}
		if err := h.store.MySQL.CreateResumeDocument(c, doc); err != nil {
			logger.Ctx(c).Error().Err(err).Str("resume_uuid", resumeUUID).Msg("创建简历文档记录失败")
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "保存简历记录失败"})
			return
		}
	}

	// 4. 回读并解析PDF文本
	data, err := h.store.MinIO.GetResumeFile(c, objectKey)
	if err != nil {
		h.markParseFailed(c, resumeUUID)
		logger.Ctx(c).Error().Err(err).Str("object_key", objectKey).Msg("回读简历文件失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取简历文件失败"})
		return
	}

	text, _, err := h.extractor.ExtractTextFromBytes(c, data, fileHeader.Filename)
	if err != nil {
		h.markParseFailed(c, resumeUUID)
		logger.Ctx(c).Error().Err(err).Str("resume_uuid", resumeUUID).Msg("解析简历PDF失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "简历解析失败"})
		return
	}
	if err := textproc.ValidateInputText(text, "resume_text"); err != nil {
		h.markParseFailed(c, resumeUUID)
		ctx.JSON(consts.StatusUnprocessableEntity, utils.H{"error": "解析出的简历文本不可用: " + err.Error()})
		return
	}

	// 5. 存解析文本并更新记录
	parsedPath, err := h.store.MinIO.UploadParsedText(c, resumeUUID, text)
	if err != nil {
		h.markParseFailed(c, resumeUUID)
		logger.Ctx(c).Error().Err(err).Str("resume_uuid", resumeUUID).Msg("上传解析文本失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "保存解析文本失败"})
		return
	}
	if h.store.MySQL != nil {
		if err := h.store.MySQL.MarkResumeParsed(c, resumeUUID, parsedPath); err != nil {
			logger.Ctx(c).Warn().Err(err).Str("resume_uuid", resumeUUID).Msg("更新简历解析状态失败")
		}
	}

	resp := utils.H{
		"resume_uuid":      resumeUUID,
		"object_key":       objectKey,
		"parsed_text_path": parsedPath,
		"content_hash":     hashHex,
		"status":           constants.ResumeStatusCompleted,
		"text_length":      len([]rune(text)),
	}

	// 6. 可选的即时匹配
	if jobID := ctx.PostForm("job_id"); jobID != "" && h.matcher != nil {
		if match := h.matchAgainstJob(c, text, jobID); match != nil {
			resp["match"] = match
		}
	}

	ctx.JSON(consts.StatusOK, resp)
}

// checkDuplicate 去重检查，命中时清理刚上传的副本并返回已有记录
// 返回true表示响应已写出
func (h *ResumeHandler) checkDuplicate(c context.Context, ctx *app.RequestContext, objectKey, hashHex string) bool {
	if h.store.Redis == nil {
		return false
	}

	exists, err := h.store.Redis.CheckAndAddResumeContentHash(c, hashHex)
	if err != nil {
		logger.Ctx(c).Warn().Err(err).Msg("简历内容去重检查失败，继续处理")
		return false
	}
	if !exists {
		return false
	}

	var existing *models.ResumeDocument
	if h.store.MySQL != nil {
		existing, err = h.store.MySQL.GetResumeDocumentByHash(c, hashHex)
		if err != nil {
			logger.Ctx(c).Warn().Err(err).Str("content_hash", hashHex).Msg("查询已有简历记录失败")
		}
	}
	if existing == nil {
		// 去重集合有记录但库里查不到，按新简历继续处理
		return false
	}

	if err := h.store.MinIO.DeleteFile(c, objectKey); err != nil {
		logger.Ctx(c).Warn().Err(err).Str("object_key", objectKey).Msg("清理重复上传的文件失败")
	}

	ctx.JSON(consts.StatusOK, utils.H{
		"resume_uuid":  existing.ResumeUUID,
		"content_hash": hashHex,
		"status":       "duplicate",
	})
	return true
}

func (h *ResumeHandler) markParseFailed(ctx context.Context, resumeUUID string) {
	if h.store.MySQL == nil {
		return
	}
	if err := h.store.MySQL.UpdateResumeProcessingStatus(ctx, resumeUUID, constants.ResumeStatusParseFailed); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("resume_uuid", resumeUUID).Msg("更新简历失败状态失败")
	}
}

// matchAgainstJob 对指定岗位做即时匹配，任何失败只记日志不影响上传结果
func (h *ResumeHandler) matchAgainstJob(ctx context.Context, resumeText, jobID string) *MatchResponse {
	jdText := ""
	if h.store.Redis != nil {
		text, err := h.store.Redis.GetJobDescription(ctx, jobID)
		if err == nil {
			jdText = text
		} else if !errors.Is(err, storage.ErrNotFound) {
			logger.Ctx(ctx).Warn().Err(err).Str("job_id", jobID).Msg("查询JD缓存失败")
		}
	}
	if jdText == "" && h.store.MySQL != nil {
		job, err := h.store.MySQL.GetJobByID(ctx, jobID)
		if err != nil || job == nil {
			logger.Ctx(ctx).Warn().Err(err).Str("job_id", jobID).Msg("即时匹配指定的岗位不存在")
			return nil
		}
		jdText = job.DescriptionText
	}
	if jdText == "" {
		return nil
	}

	result, err := h.matcher.AnalyzeMatch(ctx, resumeText, jdText)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("job_id", jobID).Msg("即时匹配失败")
		return nil
	}
	return buildMatchResponse(result)
}
