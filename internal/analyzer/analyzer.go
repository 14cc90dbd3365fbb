// Package analyzer 对简历与JD做句子级的优势/差距分析
package analyzer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/similarity"
	"resume-match-go/internal/skills"
	"resume-match-go/internal/types"
)

// VectorSource 批量向量来源，由嵌入服务实现
type VectorSource interface {
	GetVectors(ctx context.Context, texts []string) ([][]float64, error)
}

// Analyzer 优势/差距分析器
type Analyzer struct {
	vectors   VectorSource
	extractor skills.Extractor
	cfg       config.MatcherConfig
}

// New 创建分析器
func New(vectors VectorSource, extractor skills.Extractor, cfg config.MatcherConfig) *Analyzer {
	return &Analyzer{
		vectors:   vectors,
		extractor: extractor,
		cfg:       cfg,
	}
}

// Analyze 识别简历对JD要求的覆盖情况
// 任何中途失败都不向上传播，而是降级为纯关键词分析并置Degraded标记
func (a *Analyzer) Analyze(ctx context.Context, resume, jd types.TextUnit) types.AlignmentResult {
	matched, missing := a.keywordOverlap(resume.NormalizedText, jd.NormalizedText)

	jdSentences := jd.Sentences
	if len(jdSentences) > a.cfg.MaxRequirements {
		jdSentences = jdSentences[:a.cfg.MaxRequirements]
	}

	// 任一侧没有可分析的句子时只做关键词分析
	if len(jdSentences) == 0 || len(resume.Sentences) == 0 {
		logger.Ctx(ctx).Warn().Msg("没有可分析的句子，仅输出关键词结论")
		return a.keywordOnlyResult(matched, missing)
	}

	// 一次批量请求拿到两侧全部句向量
	all := make([]string, 0, len(jdSentences)+len(resume.Sentences))
	all = append(all, jdSentences...)
	all = append(all, resume.Sentences...)

	vectors, err := a.vectors.GetVectors(ctx, all)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("句向量计算失败，降级为关键词分析")
		return a.keywordOnlyResult(matched, missing)
	}
	jdVecs := vectors[:len(jdSentences)]
	resumeVecs := vectors[len(jdSentences):]

	threshold := a.cfg.SimilarityThreshold * 100

	// 原始余弦参与排序，负相关的差距才能保持升序而不是并列0分
	type alignment struct {
		req types.MatchRequirement
		raw float64
	}

	var aligned, gapsRaw []alignment
	for i, jdSent := range jdSentences {
		bestRaw := math.Inf(-1)
		bestIdx := -1
		for j := range resumeVecs {
			if c := similarity.Cosine(jdVecs[i], resumeVecs[j]); c > bestRaw {
				bestRaw = c
				bestIdx = j
			}
		}
		best := similarity.FromCosine(bestRaw)
		req := types.MatchRequirement{
			Sentence:  truncate(jdSent, a.cfg.MaxSentenceChars),
			BestScore: best,
			Covered:   best > threshold,
		}
		if req.Covered {
			if bestIdx >= 0 {
				req.Match = truncate(resume.Sentences[bestIdx], a.cfg.MaxSentenceChars)
			}
			aligned = append(aligned, alignment{req: req, raw: bestRaw})
		} else {
			gapsRaw = append(gapsRaw, alignment{req: req, raw: bestRaw})
		}
	}

	// 优势按相似度降序，差距按相似度升序；排序稳定，同分保持JD原句顺序
	sort.SliceStable(aligned, func(i, j int) bool { return aligned[i].raw > aligned[j].raw })
	sort.SliceStable(gapsRaw, func(i, j int) bool { return gapsRaw[i].raw < gapsRaw[j].raw })

	if len(aligned) > a.cfg.MaxOutput {
		aligned = aligned[:a.cfg.MaxOutput]
	}
	if len(gapsRaw) > a.cfg.MaxOutput {
		gapsRaw = gapsRaw[:a.cfg.MaxOutput]
	}

	strengths := make([]types.MatchRequirement, 0, len(aligned))
	for _, s := range aligned {
		strengths = append(strengths, s.req)
	}
	gaps := make([]types.MatchRequirement, 0, len(gapsRaw))
	for _, g := range gapsRaw {
		gaps = append(gaps, g.req)
	}

	// 关键词结论插入到句子结论之前，总量仍受上限约束
	if len(matched) > 0 {
		strengths = prepend(strengths, a.skillSummary("Matching skills", matched, true), a.cfg.MaxOutput)
	}
	if len(missing) > 0 {
		gaps = prepend(gaps, a.skillSummary("Missing skills", missing, false), a.cfg.MaxOutput)
	}

	return types.AlignmentResult{
		Strengths:     strengths,
		Gaps:          gaps,
		MatchedSkills: matched,
		MissingSkills: missing,
		Degraded:      false,
	}
}

// keywordOverlap 抽取两侧关键词并求交集/差集，结果按字典序
func (a *Analyzer) keywordOverlap(resumeText, jdText string) (matched, missing []string) {
	resumeSkills := a.extractor.ExtractSkills(resumeText)
	jdSkills := a.extractor.ExtractSkills(jdText)

	match := skills.MatchSkills(resumeSkills, jdSkills, a.cfg.MaxSkillList)
	return match.Matched, match.Missing
}

// keywordOnlyResult 纯关键词的降级结果
func (a *Analyzer) keywordOnlyResult(matched, missing []string) types.AlignmentResult {
	var strengths, gaps []types.MatchRequirement

	if len(matched) > 0 {
		strengths = append(strengths, a.skillSummary("Matching skills", matched, true))
	} else {
		strengths = append(strengths, types.MatchRequirement{Sentence: "Basic qualifications met", Covered: true})
	}
	if len(missing) > 0 {
		gaps = append(gaps, a.skillSummary("Missing skills", missing, false))
	} else {
		gaps = append(gaps, types.MatchRequirement{Sentence: "Consider adding more specific details"})
	}

	return types.AlignmentResult{
		Strengths:     strengths,
		Gaps:          gaps,
		MatchedSkills: matched,
		MissingSkills: missing,
		Degraded:      true,
	}
}

// skillSummary 将技能列表压缩为一条结论，最多列出5个
func (a *Analyzer) skillSummary(label string, skillList []string, covered bool) types.MatchRequirement {
	list := skillList
	if len(list) > 5 {
		list = list[:5]
	}
	return types.MatchRequirement{
		Sentence: fmt.Sprintf("%s: %s", label, strings.Join(list, ", ")),
		Covered:  covered,
	}
}

func prepend(reqs []types.MatchRequirement, head types.MatchRequirement, max int) []types.MatchRequirement {
	out := append([]types.MatchRequirement{head}, reqs...)
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
