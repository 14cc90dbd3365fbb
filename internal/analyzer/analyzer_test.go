package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-match-go/internal/config"
	"resume-match-go/internal/skills"
	"resume-match-go/internal/textproc"
	"resume-match-go/internal/types"
)

// mapVectorSource 按文本查表返回预设向量
type mapVectorSource struct {
	vectors map[string][]float64
	err     error
}

func (m *mapVectorSource) GetVectors(ctx context.Context, texts []string) ([][]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec, ok := m.vectors[t]
		if !ok {
			return nil, fmt.Errorf("测试向量表中没有文本: %q", t)
		}
		out[i] = vec
	}
	return out, nil
}

func testConfig() config.MatcherConfig {
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

const analyzerResumeText = "I build backend services with Python and FastAPI for production teams. " +
	"All my projects ship as Docker images with automated builds. " +
	"I enjoy long walks and photography when not programming anything."

const analyzerJDText = "Experience building REST services with Python and FastAPI frameworks. " +
	"Operate workloads on Kubernetes clusters hosted in AWS infrastructure. " +
	"Package and release applications as Docker containers every sprint."

func analyzerVectors() map[string][]float64 {
	return map[string][]float64{
		// JD句子
		"Experience building REST services with Python and FastAPI frameworks":  {1, 0, 0},
		"Operate workloads on Kubernetes clusters hosted in AWS infrastructure": {0, 1, 0},
		"Package and release applications as Docker containers every sprint":    {0, 0, 1},
		// 简历句子
		"I build backend services with Python and FastAPI for production teams": {0.95, 0.05, 0},
		"All my projects ship as Docker images with automated builds":           {0, 0.1, 0.9},
		"I enjoy long walks and photography when not programming anything":      {0.1, 0.1, 0.1},
	}
}

func TestAnalyzeStrengthsAndGaps(t *testing.T) {
	extractor := skills.NewVocabularyExtractor(nil)
	source := &mapVectorSource{vectors: analyzerVectors()}
	a := New(source, extractor, testConfig())

	resume := textproc.NewTextUnit(analyzerResumeText)
	jd := textproc.NewTextUnit(analyzerJDText)

	result := a.Analyze(context.Background(), resume, jd)

	assert.False(t, result.Degraded)

	// 关键词层面
	for _, s := range []string{"python", "fastapi", "docker"} {
		assert.Contains(t, result.MatchedSkills, s)
	}
	for _, s := range []string{"kubernetes", "aws"} {
		assert.Contains(t, result.MissingSkills, s)
	}

	// 第一条优势是关键词结论
	require.NotEmpty(t, result.Strengths)
	assert.True(t, strings.HasPrefix(result.Strengths[0].Sentence, "Matching skills:"))

	// Kubernetes/AWS的JD要求应落入差距
	require.NotEmpty(t, result.Gaps)
	foundK8s := false
	for _, g := range result.Gaps {
		if strings.Contains(g.Sentence, "Kubernetes") {
			foundK8s = true
			assert.False(t, g.Covered)
		}
	}
	assert.True(t, foundK8s, "Kubernetes要求应被识别为差距")

	// Python/FastAPI的JD要求应落入优势，按得分降序，并带有最相近的简历句
	foundPython := false
	for _, s := range result.Strengths[1:] {
		if strings.Contains(s.Sentence, "Python") {
			foundPython = true
			assert.True(t, s.Covered)
			assert.Greater(t, s.BestScore, 50.0)
			assert.Equal(t, "I build backend services with Python and FastAPI for production teams", s.Match)
		}
	}
	assert.True(t, foundPython, "Python要求应被识别为优势")

	for i := 2; i < len(result.Strengths); i++ {
		assert.GreaterOrEqual(t, result.Strengths[i-1].BestScore, result.Strengths[i].BestScore)
	}

	// 差距没有达标的简历句，不应给出Match
	for _, g := range result.Gaps {
		assert.Empty(t, g.Match)
	}
}

func TestAnalyzeGapsOrderedByRawSimilarity(t *testing.T) {
	extractor := skills.NewVocabularyExtractor(nil)

	// 三条差距的余弦分别为-1、-0.6、0，展示分都被夹到0，排序仍需按真实相似度升序
	vectors := map[string][]float64{
		"Design distributed consensus protocols for replicated state machines": {-1, 0, 0},
		"Operate on-call rotations for large scale streaming clusters":         {-0.6, 0.8, 0},
		"Author whitepapers about emerging virtualization techniques":          {0, 1, 0},
		"I build backend services with Python for production teams":           {1, 0, 0},
	}

	a := New(&mapVectorSource{vectors: vectors}, extractor, testConfig())

	resume := textproc.NewTextUnit("I build backend services with Python for production teams.")
	jd := textproc.NewTextUnit("Design distributed consensus protocols for replicated state machines. " +
		"Author whitepapers about emerging virtualization techniques. " +
		"Operate on-call rotations for large scale streaming clusters.")

	result := a.Analyze(context.Background(), resume, jd)

	require.False(t, result.Degraded)
	require.Len(t, result.Gaps, 3)

	assert.Contains(t, result.Gaps[0].Sentence, "consensus protocols")
	assert.Contains(t, result.Gaps[1].Sentence, "on-call rotations")
	assert.Contains(t, result.Gaps[2].Sentence, "whitepapers")
	for _, g := range result.Gaps {
		assert.Equal(t, 0.0, g.BestScore, "负相关的展示分应夹到0")
	}
}

func TestAnalyzeMatchSentenceTruncated(t *testing.T) {
	extractor := skills.NewVocabularyExtractor(nil)

	longResume := "I build backend services with Python " + strings.Repeat("for very large production teams ", 5) + "every single day"
	vectors := map[string][]float64{
		"Experience building backend services with Python": {1, 0, 0},
		longResume: {0.9, 0.1, 0},
	}

	a := New(&mapVectorSource{vectors: vectors}, extractor, testConfig())

	resume := textproc.NewTextUnit(longResume + ".")
	jd := textproc.NewTextUnit("Experience building backend services with Python.")

	result := a.Analyze(context.Background(), resume, jd)

	require.False(t, result.Degraded)
	var covered *types.MatchRequirement
	for i := range result.Strengths {
		if strings.Contains(result.Strengths[i].Sentence, "backend services") {
			covered = &result.Strengths[i]
		}
	}
	require.NotNil(t, covered)
	assert.Len(t, []rune(covered.Match), 100)
	assert.True(t, strings.HasPrefix(longResume, covered.Match))
}

func TestAnalyzeDegradesOnEmbeddingFailure(t *testing.T) {
	extractor := skills.NewVocabularyExtractor(nil)
	source := &mapVectorSource{err: errors.New("provider unavailable")}
	a := New(source, extractor, testConfig())

	resume := textproc.NewTextUnit(analyzerResumeText)
	jd := textproc.NewTextUnit(analyzerJDText)

	result := a.Analyze(context.Background(), resume, jd)

	assert.True(t, result.Degraded, "嵌入失败时必须显式标记降级")
	require.NotEmpty(t, result.Strengths)
	assert.True(t, strings.HasPrefix(result.Strengths[0].Sentence, "Matching skills:"))
	require.NotEmpty(t, result.Gaps)
	assert.True(t, strings.HasPrefix(result.Gaps[0].Sentence, "Missing skills:"))
	assert.Contains(t, result.MatchedSkills, "python")
	assert.Contains(t, result.MissingSkills, "kubernetes")
}

func TestAnalyzeNoSentences(t *testing.T) {
	extractor := skills.NewVocabularyExtractor(nil)
	a := New(&mapVectorSource{}, extractor, testConfig())

	resume := types.TextUnit{NormalizedText: "python docker", Sentences: nil}
	jd := types.TextUnit{NormalizedText: "python kubernetes", Sentences: nil}

	result := a.Analyze(context.Background(), resume, jd)

	assert.True(t, result.Degraded)
	require.Len(t, result.Strengths, 1)
	require.Len(t, result.Gaps, 1)
}

func TestAnalyzeOutputCapped(t *testing.T) {
	extractor := skills.NewVocabularyExtractor(nil)

	vectors := make(map[string][]float64)
	var jdParts []string
	for i := 0; i < 12; i++ {
		s := fmt.Sprintf("Requirement number %d demands a very specific rare capability", i)
		jdParts = append(jdParts, s+".")
		vectors[s] = []float64{0, 1, 0}
	}
	resumeSentence := "I build backend services with Python for production teams"
	vectors[resumeSentence] = []float64{1, 0, 0}

	a := New(&mapVectorSource{vectors: vectors}, extractor, testConfig())

	resume := textproc.NewTextUnit(resumeSentence + ".")
	jd := textproc.NewTextUnit(strings.Join(jdParts, " "))

	result := a.Analyze(context.Background(), resume, jd)

	assert.False(t, result.Degraded)
	assert.LessOrEqual(t, len(result.Gaps), 5, "差距条目数不能超过MaxOutput")
	assert.LessOrEqual(t, len(result.Strengths), 5)
}
