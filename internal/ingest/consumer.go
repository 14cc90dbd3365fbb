package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resume-match-go/internal/config"
	"resume-match-go/internal/embedding"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/skills"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/storage/models"
	"resume-match-go/internal/textproc"
	"resume-match-go/internal/types"
)

var ingestTracer = otel.Tracer("resume-match-go/ingest")

// Consumer 消费岗位提交消息并完成入库流程:
// 校验 -> 词表打标 -> 向量化 -> MySQL -> Qdrant -> Redis缓存预热
type Consumer struct {
	store     *storage.Storage
	embed     *embedding.Service
	extractor skills.Extractor
	cfg       *config.Config
	stopChs   []chan struct{}
}

// NewConsumer 创建岗位入库消费者
func NewConsumer(store *storage.Storage, embed *embedding.Service, extractor skills.Extractor, cfg *config.Config) (*Consumer, error) {
	if store == nil || store.RabbitMQ == nil {
		return nil, fmt.Errorf("RabbitMQ未初始化，无法启动岗位入库消费者")
	}
	if embed == nil {
		return nil, fmt.Errorf("嵌入服务不能为空")
	}
	if extractor == nil {
		extractor = skills.NewVocabularyExtractor(skills.DefaultVocabulary())
	}
	return &Consumer{
		store:     store,
		embed:     embed,
		extractor: extractor,
		cfg:       cfg,
	}, nil
}

// Start 声明拓扑并启动消费协程
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.store.RabbitMQ.SetupJobIngestTopology(); err != nil {
		return fmt.Errorf("声明岗位入库拓扑失败: %w", err)
	}

	workers := c.cfg.RabbitMQ.IngestWorkers
	if workers <= 0 {
		workers = 1
	}
	prefetch := c.cfg.RabbitMQ.PrefetchCount
	if prefetch <= 0 {
		prefetch = 4
	}

	for i := 0; i < workers; i++ {
		stopCh, err := c.store.RabbitMQ.StartConsumer(c.cfg.RabbitMQ.JobIngestQueue, prefetch, func(body []byte) bool {
			return c.handleMessage(ctx, body)
		})
		if err != nil {
			c.Stop()
			return fmt.Errorf("启动岗位入库消费者失败: %w", err)
		}
		c.stopChs = append(c.stopChs, stopCh)
	}

	logger.Info().
		Int("workers", workers).
		Str("queue", c.cfg.RabbitMQ.JobIngestQueue).
		Msg("岗位入库消费者已启动")
	return nil
}

// Stop 停止所有消费协程
func (c *Consumer) Stop() {
	for _, ch := range c.stopChs {
		close(ch)
	}
	c.stopChs = nil
}

// handleMessage 处理一条岗位提交消息
// 返回true表示Ack，false表示Nack并重新入队
func (c *Consumer) handleMessage(ctx context.Context, body []byte) bool {
	ctx, span := ingestTracer.Start(ctx, "Ingest.HandleJobSubmitted",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var msg storage.JobSubmittedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		// 消息格式损坏，重新入队没有意义
		logger.Error().Err(err).Msg("解析岗位提交消息失败，丢弃")
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid message")
		return true
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID),
		attribute.String("job.title", msg.Title),
	)

	if err := c.ingestJob(ctx, &msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		var verr *textproc.ValidationError
		if errors.As(err, &verr) {
			// 校验失败属于永久性错误，Ack后回滚去重记录
			logger.Warn().Err(err).Str("job_id", msg.JobID).Msg("岗位描述校验失败，丢弃消息")
			c.rollbackDedup(ctx, msg.ContentHash)
			return true
		}

		logger.Error().Err(err).Str("job_id", msg.JobID).Msg("岗位入库失败，消息将重新入队")
		return false
	}

	span.SetStatus(codes.Ok, "")
	return true
}

// ingestJob 完成单个岗位的入库流程
func (c *Consumer) ingestJob(ctx context.Context, msg *storage.JobSubmittedMessage) error {
	if err := textproc.ValidateInputText(msg.Description, "description"); err != nil {
		return err
	}

	unit := textproc.NewTextUnit(msg.Description)

	// 词表打标: 技能 + 岗位角色
	tags := c.extractor.ExtractSkills(unit.NormalizedText)
	tags = append(tags, c.extractor.ExtractRoles(unit.NormalizedText)...)

	vector, err := c.embed.GetVector(ctx, unit.NormalizedText)
	if err != nil {
		return fmt.Errorf("计算岗位向量失败: %w", err)
	}

	contentHash := msg.ContentHash
	if contentHash == "" {
		contentHash = embedding.ContentHash(unit.NormalizedText)
	}

	// 写MySQL主记录
	if c.store.MySQL != nil {
		tagsJSON, err := models.StringSliceToJSON(tags)
		if err != nil {
			return fmt.Errorf("序列化岗位标签失败: %w", err)
		}
		job := &models.Job{
			JobID:           msg.JobID,
			Title:           msg.Title,
			Company:         msg.Company,
			Location:        msg.Location,
			DescriptionText: msg.Description,
			ContentHash:     contentHash,
			TagsJSON:        tagsJSON,
			SalaryMin:       msg.SalaryMin,
			SalaryMax:       msg.SalaryMax,
			EmploymentType:  msg.EmploymentType,
			ExperienceLevel: msg.ExperienceLevel,
			Status:          "ACTIVE",
		}
		if err := c.store.MySQL.UpsertJob(ctx, job); err != nil {
			return fmt.Errorf("写入岗位记录失败: %w", err)
		}

		vectorJSON, err := json.Marshal(vector)
		if err != nil {
			return fmt.Errorf("序列化岗位向量失败: %w", err)
		}
		jobVector := &models.JobVector{
			JobID:                 msg.JobID,
			VectorRepresentation:  vectorJSON,
			EmbeddingModelVersion: c.embed.ModelVersion(),
			Dimension:             len(vector),
			QdrantPointID:         storage.JobPointID(msg.JobID),
		}
		if err := c.store.MySQL.SaveJobVector(ctx, jobVector); err != nil {
			return fmt.Errorf("写入岗位向量记录失败: %w", err)
		}
	}

	// 写Qdrant向量索引
	if c.store.Qdrant != nil {
		candidate := types.JobCandidate{
			JobID:           msg.JobID,
			Title:           msg.Title,
			Company:         msg.Company,
			Location:        msg.Location,
			Description:     msg.Description,
			Tags:            tags,
			SalaryMin:       msg.SalaryMin,
			SalaryMax:       msg.SalaryMax,
			EmploymentType:  msg.EmploymentType,
			ExperienceLevel: msg.ExperienceLevel,
		}
		if _, err := c.store.Qdrant.UpsertJobVectors(ctx, []types.JobCandidate{candidate}, [][]float64{vector}); err != nil {
			return fmt.Errorf("写入Qdrant向量失败: %w", err)
		}
	}

	// Redis缓存预热，失败只记录不回滚
	if c.store.Redis != nil {
		if err := c.store.Redis.SetJobDescription(ctx, msg.JobID, msg.Description); err != nil {
			logger.Warn().Err(err).Str("job_id", msg.JobID).Msg("预热岗位描述缓存失败")
		}
		if err := c.store.Redis.SetJobVector(ctx, msg.JobID, vector, c.embed.ModelVersion()); err != nil {
			logger.Warn().Err(err).Str("job_id", msg.JobID).Msg("预热岗位向量缓存失败")
		}
	}

	logger.Info().
		Str("job_id", msg.JobID).
		Str("title", msg.Title).
		Int("tags", len(tags)).
		Int("dimension", len(vector)).
		Msg("岗位入库完成")
	return nil
}

// rollbackDedup 丢弃消息时回滚去重记录，允许修正后重新提交
func (c *Consumer) rollbackDedup(ctx context.Context, contentHash string) {
	if contentHash == "" || c.store.Redis == nil {
		return
	}
	rollbackCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.store.Redis.RemoveJobContentHash(rollbackCtx, contentHash); err != nil {
		logger.Warn().Err(err).Str("content_hash", contentHash).Msg("回滚岗位去重记录失败")
	}
}
