package ranker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-match-go/internal/config"
	"resume-match-go/internal/skills"
	"resume-match-go/internal/types"
)

func rankerConfig() config.MatcherConfig {
	return config.MatcherConfig{
		SimilarityThreshold: 0.5,
		MaxRequirements:     10,
		MaxOutput:           5,
		MaxSentenceChars:    100,
		VectorWeight:        0.7,
		SkillWeight:         0.3,
		MaxSkillList:        10,
	}
}

func newRanker() *Ranker {
	return New(skills.NewVocabularyExtractor(nil), rankerConfig())
}

const rankerResume = "Backend engineer working with Python and FastAPI, shipping Docker containers daily."

func TestRankCombinedScore(t *testing.T) {
	r := newRanker()

	candidates := []types.JobCandidate{
		{
			JobID:       "job-high-vector",
			Description: "We need Python and FastAPI experience plus Kubernetes, AWS and Docker operations.",
			RawScore:    0.90,
		},
		{
			JobID:       "job-perfect-skills",
			Description: "Python and Docker are required for this position in our platform team.",
			RawScore:    0.60,
		},
	}

	ranked, err := r.Rank(context.Background(), rankerResume, candidates)
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	// job-high-vector: 向量90，技能3/5=60 => 0.7*90+0.3*60=81
	// job-perfect-skills: 向量60，技能2/2=100 => 0.7*60+0.3*100=72
	assert.Equal(t, "job-high-vector", ranked[0].Candidate.JobID)
	assert.Equal(t, 81.0, ranked[0].CombinedScore)
	assert.Equal(t, 81, ranked[0].FitPercentage)
	assert.Equal(t, 90.0, ranked[0].VectorScore)
	assert.Equal(t, 60.0, ranked[0].SkillScore)

	assert.Equal(t, "job-perfect-skills", ranked[1].Candidate.JobID)
	assert.Equal(t, 72.0, ranked[1].CombinedScore)
	assert.Equal(t, 100.0, ranked[1].SkillScore)

	assert.ElementsMatch(t, []string{"docker", "fastapi", "python"}, ranked[0].MatchedSkills)
	assert.ElementsMatch(t, []string{"aws", "kubernetes"}, ranked[0].MissingSkills)
}

func TestRankHigherVectorBeatsPerfectSkills(t *testing.T) {
	// 0.7*90 + 0.3*50 = 78 应排在 0.7*60 + 0.3*100 = 72 之前
	r := newRanker()

	candidates := []types.JobCandidate{
		{
			JobID:       "skills-only",
			Description: "Python and Docker are everything we need here, nothing else matters.",
			RawScore:    0.60,
		},
		{
			JobID:       "vector-heavy",
			Description: "Python plus Kubernetes operations on cloud platforms required.",
			RawScore:    0.90,
		},
	}

	ranked, err := r.Rank(context.Background(), rankerResume, candidates)
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	assert.Equal(t, "vector-heavy", ranked[0].Candidate.JobID)
	assert.Equal(t, 78.0, ranked[0].CombinedScore)
	assert.Equal(t, "skills-only", ranked[1].Candidate.JobID)
	assert.Equal(t, 72.0, ranked[1].CombinedScore)
}

func TestRankStableAndIdempotent(t *testing.T) {
	r := newRanker()

	candidates := []types.JobCandidate{
		{JobID: "a", Description: "Python work in a small team.", RawScore: 0.5},
		{JobID: "b", Description: "Python work in a bigger team.", RawScore: 0.5},
		{JobID: "c", Description: "Python work in a remote team.", RawScore: 0.5},
	}

	first, err := r.Rank(context.Background(), rankerResume, candidates)
	require.NoError(t, err)
	second, err := r.Rank(context.Background(), rankerResume, candidates)
	require.NoError(t, err)

	assert.Equal(t, first, second, "相同输入必须产出相同排序")
	assert.Equal(t, "a", first[0].Candidate.JobID, "同分候选保持输入顺序")
	assert.Equal(t, "b", first[1].Candidate.JobID)
	assert.Equal(t, "c", first[2].Candidate.JobID)
}

func TestRankCancelled(t *testing.T) {
	r := newRanker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Rank(ctx, rankerResume, []types.JobCandidate{{JobID: "x", Description: "Python"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilterCandidates(t *testing.T) {
	candidates := []types.JobCandidate{
		{JobID: "sf-senior", Location: "San Francisco, CA", SalaryMax: 200000, ExperienceLevel: "senior", EmploymentType: "full-time"},
		{JobID: "ny-mid", Location: "New York, NY", SalaryMax: 140000, ExperienceLevel: "mid", EmploymentType: "full-time"},
		{JobID: "sf-contract", Location: "san francisco bay area", SalaryMax: 90000, ExperienceLevel: "senior", EmploymentType: "contract"},
	}

	t.Run("空条件返回全部", func(t *testing.T) {
		assert.Len(t, FilterCandidates(candidates, types.FilterCriteria{}), 3)
	})

	t.Run("薪资下限", func(t *testing.T) {
		out := FilterCandidates(candidates, types.FilterCriteria{MinSalary: 150000})
		require.Len(t, out, 1)
		assert.Equal(t, "sf-senior", out[0].JobID)
	})

	t.Run("地点子串不区分大小写", func(t *testing.T) {
		out := FilterCandidates(candidates, types.FilterCriteria{Location: "SAN FRANCISCO"})
		assert.Len(t, out, 2)
	})

	t.Run("条件取与", func(t *testing.T) {
		out := FilterCandidates(candidates, types.FilterCriteria{
			Location:        "san francisco",
			ExperienceLevel: "senior",
			EmploymentType:  "full-time",
			MinSalary:       100000,
		})
		require.Len(t, out, 1)
		assert.Equal(t, "sf-senior", out[0].JobID)
	})

	t.Run("无匹配返回空", func(t *testing.T) {
		out := FilterCandidates(candidates, types.FilterCriteria{ExperienceLevel: "junior"})
		assert.Empty(t, out)
	})
}
