package matcher

import (
	"context"
	"strings"
	"testing"

	einoembedding "github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-match-go/internal/config"
	"resume-match-go/internal/embedding"
	"resume-match-go/internal/textproc"
	"resume-match-go/internal/types"
)

// hashEmbedder 基于文本内容生成确定性向量（相同文本必得相同向量）
type hashEmbedder struct{}

func (h *hashEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...einoembedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec := make([]float64, 8)
		for j, r := range t {
			vec[j%8] += float64(r%17) / 17.0
		}
		out[i] = vec
	}
	return out, nil
}

func (h *hashEmbedder) GetDimensions() int { return 8 }

func (h *hashEmbedder) ModelVersion() string { return "hash-v1" }

// stubSearcher 返回固定候选
type stubSearcher struct {
	candidates []types.JobCandidate
	lastLimit  int
}

func (s *stubSearcher) SearchSimilarJobs(ctx context.Context, vector []float64, limit int) ([]types.JobCandidate, error) {
	s.lastLimit = limit
	return s.candidates, nil
}

func matcherConfig() config.MatcherConfig {
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

func newTestService(t *testing.T, searcher JobSearcher) *Service {
	t.Helper()
	embedSvc, err := embedding.NewService(&hashEmbedder{}, embedding.NewVectorCache(),
		config.EmbeddingConfig{Workers: 2, BatchSize: 4})
	require.NoError(t, err)

	svc, err := NewService(embedSvc, nil, searcher, matcherConfig())
	require.NoError(t, err)
	return svc
}

const testResume = "Experienced backend engineer building REST services with Python and FastAPI. " +
	"Ships production workloads as Docker containers with automated pipelines. " +
	"Comfortable owning services end to end including monitoring and rollout."

const testJD = "We are hiring an engineer with strong Python and FastAPI background. " +
	"You will run our workloads on Kubernetes clusters inside AWS accounts. " +
	"Docker knowledge is required for the packaging and release workflow."

func TestAnalyzeMatch(t *testing.T) {
	svc := newTestService(t, nil)

	result, err := svc.AnalyzeMatch(context.Background(), testResume, testJD)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.MatchScore, 0.0)
	assert.LessOrEqual(t, result.MatchScore, 100.0)

	for _, s := range []string{"python", "fastapi", "docker"} {
		assert.Contains(t, result.Skills.Matched, s)
	}
	for _, s := range []string{"kubernetes", "aws"} {
		assert.Contains(t, result.Skills.Missing, s)
	}
	assert.Equal(t, 60.0, result.Skills.MatchPercentage)

	assert.NotEmpty(t, result.Strengths)
	assert.NotEmpty(t, result.Gaps)
	assert.LessOrEqual(t, len(result.Strengths), 5)
	assert.LessOrEqual(t, len(result.Gaps), 5)
}

func TestAnalyzeMatchDeterministic(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.AnalyzeMatch(ctx, testResume, testJD)
	require.NoError(t, err)
	second, err := svc.AnalyzeMatch(ctx, testResume, testJD)
	require.NoError(t, err)

	assert.Equal(t, first, second, "相同输入必须产出相同结果")
}

func TestAnalyzeMatchValidation(t *testing.T) {
	svc := newTestService(t, nil)

	t.Run("简历过短", func(t *testing.T) {
		_, err := svc.AnalyzeMatch(context.Background(), "go dev 123", testJD)
		var vErr *textproc.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "resume_text", vErr.Field)
		assert.Contains(t, vErr.Reason, "最少需要 50")
	})

	t.Run("JD为空", func(t *testing.T) {
		_, err := svc.AnalyzeMatch(context.Background(), testResume, "  ")
		var vErr *textproc.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "job_description", vErr.Field)
	})
}

func TestRankJobsForResume(t *testing.T) {
	searcher := &stubSearcher{candidates: []types.JobCandidate{
		{
			JobID:           "remote-python",
			Location:        "Remote, US",
			Description:     "Python and Docker shop looking for backend help.",
			SalaryMax:       150000,
			EmploymentType:  "full-time",
			ExperienceLevel: "senior",
			RawScore:        0.8,
		},
		{
			JobID:           "onsite-java",
			Location:        "Berlin, Germany",
			Description:     "Java and Kubernetes platform engineering role.",
			SalaryMax:       90000,
			EmploymentType:  "full-time",
			ExperienceLevel: "mid",
			RawScore:        0.9,
		},
	}}
	svc := newTestService(t, searcher)

	t.Run("无过滤条件", func(t *testing.T) {
		ranked, err := svc.RankJobsForResume(context.Background(), testResume, 5, types.FilterCriteria{})
		require.NoError(t, err)
		assert.Len(t, ranked, 2)
		assert.Equal(t, 5, searcher.lastLimit)
	})

	t.Run("过滤条件取与", func(t *testing.T) {
		ranked, err := svc.RankJobsForResume(context.Background(), testResume, 5, types.FilterCriteria{
			MinSalary: 120000,
			Location:  "remote",
		})
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, "remote-python", ranked[0].Candidate.JobID)
	})

	t.Run("输入校验", func(t *testing.T) {
		_, err := svc.RankJobsForResume(context.Background(), "too short", 5, types.FilterCriteria{})
		var vErr *textproc.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})
}

func TestCacheStatsExposed(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.AnalyzeMatch(context.Background(), testResume, testJD)
	require.NoError(t, err)

	stats := svc.CacheStats()
	assert.Greater(t, stats.TotalRequests, int64(0))
	assert.Greater(t, stats.CacheSize, 0)
	assert.GreaterOrEqual(t, stats.CacheHitRate, 0.0)
}

func TestAnalyzeMatchLongGarbage(t *testing.T) {
	svc := newTestService(t, nil)
	garbage := strings.Repeat("!@#$%^ ", 20)
	_, err := svc.AnalyzeMatch(context.Background(), garbage, testJD)
	var vErr *textproc.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "占比过低")
}
