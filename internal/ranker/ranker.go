// Package ranker 对向量召回的岗位候选做综合打分、排序和过滤
package ranker

import (
	"context"
	"math"
	"sort"

	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/skills"
	"resume-match-go/internal/types"
)

// Ranker 岗位排序器
type Ranker struct {
	extractor skills.Extractor
	cfg       config.MatcherConfig
}

// New 创建排序器
func New(extractor skills.Extractor, cfg config.MatcherConfig) *Ranker {
	return &Ranker{extractor: extractor, cfg: cfg}
}

// Rank 对候选岗位打分并按综合得分降序排序
// 综合得分 = VectorWeight*向量分 + SkillWeight*技能分
// 排序稳定：同分候选保持输入顺序，相同输入恒定产出相同输出
// 每轮迭代检查ctx，取消时立即返回
func (r *Ranker) Rank(ctx context.Context, resumeText string, candidates []types.JobCandidate) ([]types.RankedJob, error) {
	resumeSkills := r.extractor.ExtractSkills(resumeText)

	ranked := make([]types.RankedJob, 0, len(candidates))
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		jobSkills := r.extractor.ExtractSkills(candidate.Description)
		skillMatch := skills.MatchSkills(resumeSkills, jobSkills, r.cfg.MaxSkillList)

		vectorScore := round2(candidate.RawScore * 100)
		skillScore := skillMatch.MatchPercentage
		combined := round2(vectorScore*r.cfg.VectorWeight + skillScore*r.cfg.SkillWeight)

		ranked = append(ranked, types.RankedJob{
			Candidate:     candidate,
			VectorScore:   vectorScore,
			SkillScore:    skillScore,
			CombinedScore: combined,
			FitPercentage: int(math.Round(combined)),
			MatchedSkills: skillMatch.Matched,
			MissingSkills: skillMatch.Missing,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CombinedScore > ranked[j].CombinedScore
	})

	if len(ranked) > 0 {
		logger.Ctx(ctx).Debug().
			Int("candidates", len(candidates)).
			Float64("top_score", ranked[0].CombinedScore).
			Float64("bottom_score", ranked[len(ranked)-1].CombinedScore).
			Msg("岗位排序完成")
	}
	return ranked, nil
}

// RankAndFilter 先过滤再排序，过滤条件之间取与
func (r *Ranker) RankAndFilter(ctx context.Context, resumeText string, candidates []types.JobCandidate, criteria types.FilterCriteria) ([]types.RankedJob, error) {
	return r.Rank(ctx, resumeText, FilterCandidates(candidates, criteria))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
