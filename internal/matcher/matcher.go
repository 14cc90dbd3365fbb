// Package matcher 承担简历与岗位匹配的编排逻辑
package matcher

import (
	"context"
	"fmt"

	"resume-match-go/internal/analyzer"
	"resume-match-go/internal/config"
	"resume-match-go/internal/embedding"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/ranker"
	"resume-match-go/internal/similarity"
	"resume-match-go/internal/skills"
	"resume-match-go/internal/textproc"
	"resume-match-go/internal/types"
)

// JobSearcher 向量召回接口，由Qdrant存储层实现
type JobSearcher interface {
	SearchSimilarJobs(ctx context.Context, vector []float64, limit int) ([]types.JobCandidate, error)
}

// Service 匹配服务，在启动时显式构造并注入全部依赖
type Service struct {
	embed     *embedding.Service
	extractor skills.Extractor
	analyzer  *analyzer.Analyzer
	ranker    *ranker.Ranker
	searcher  JobSearcher
	cfg       config.MatcherConfig
}

// NewService 创建匹配服务
func NewService(embed *embedding.Service, extractor skills.Extractor, searcher JobSearcher, cfg config.MatcherConfig) (*Service, error) {
	if embed == nil {
		return nil, fmt.Errorf("嵌入服务不能为空")
	}
	if extractor == nil {
		extractor = skills.NewVocabularyExtractor(nil)
	}
	return &Service{
		embed:     embed,
		extractor: extractor,
		analyzer:  analyzer.New(embed, extractor, cfg),
		ranker:    ranker.New(extractor, cfg),
		searcher:  searcher,
		cfg:       cfg,
	}, nil
}

// AnalyzeMatch 计算一份简历与一个JD的完整匹配结果
// 全文向量计算失败是致命错误；句子级分析失败只会降级，不会让请求失败
func (s *Service) AnalyzeMatch(ctx context.Context, resumeText, jdText string) (*types.MatchResult, error) {
	if err := textproc.ValidateInputText(resumeText, "resume_text"); err != nil {
		return nil, err
	}
	if err := textproc.ValidateInputText(jdText, "job_description"); err != nil {
		return nil, err
	}

	resume := textproc.NewTextUnit(resumeText)
	jd := textproc.NewTextUnit(jdText)

	// 全文向量决定总分，必须成功
	vectors, err := s.embed.GetVectors(ctx, []string{resume.NormalizedText, jd.NormalizedText})
	if err != nil {
		return nil, fmt.Errorf("计算全文向量失败: %w", err)
	}
	matchScore := similarity.Score(vectors[0], vectors[1])

	alignment := s.analyzer.Analyze(ctx, resume, jd)

	skillMatch := skills.MatchSkills(
		s.extractor.ExtractSkills(resume.NormalizedText),
		s.extractor.ExtractSkills(jd.NormalizedText),
		s.cfg.MaxSkillList,
	)

	logger.Ctx(ctx).Info().
		Float64("match_score", matchScore).
		Int("strengths", len(alignment.Strengths)).
		Int("gaps", len(alignment.Gaps)).
		Bool("degraded", alignment.Degraded).
		Msg("匹配分析完成")

	return &types.MatchResult{
		MatchScore: matchScore,
		Strengths:  alignment.Strengths,
		Gaps:       alignment.Gaps,
		Skills:     skillMatch,
		Degraded:   alignment.Degraded,
	}, nil
}

// RankJobsForResume 为一份简历召回并排序最匹配的岗位
func (s *Service) RankJobsForResume(ctx context.Context, resumeText string, topK int, criteria types.FilterCriteria) ([]types.RankedJob, error) {
	if err := textproc.ValidateInputText(resumeText, "resume_text"); err != nil {
		return nil, err
	}
	if s.searcher == nil {
		return nil, fmt.Errorf("未配置向量召回，无法执行岗位排序")
	}

	resume := textproc.NewTextUnit(resumeText)

	vector, err := s.embed.GetVector(ctx, resume.NormalizedText)
	if err != nil {
		return nil, fmt.Errorf("计算简历向量失败: %w", err)
	}

	candidates, err := s.searcher.SearchSimilarJobs(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("岗位召回失败: %w", err)
	}

	return s.ranker.RankAndFilter(ctx, resume.NormalizedText, candidates, criteria)
}

// CacheStats 暴露向量缓存的运行统计
func (s *Service) CacheStats() types.CacheStats {
	return s.embed.Cache().Stats()
}

// EmbeddingVersion 当前嵌入模型版本，用于评估记录溯源
func (s *Service) EmbeddingVersion() string {
	return s.embed.ModelVersion()
}
