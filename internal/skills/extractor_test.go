package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSkills(t *testing.T) {
	extractor := NewVocabularyExtractor(nil)

	t.Run("基础抽取", func(t *testing.T) {
		text := "Built a REST API with Python and FastAPI, deployed with Docker."
		found := extractor.ExtractSkills(text)
		assert.Contains(t, found, "python")
		assert.Contains(t, found, "fastapi")
		assert.Contains(t, found, "docker")
		assert.Contains(t, found, "rest api")
	})

	t.Run("词边界不产生误报", func(t *testing.T) {
		found := extractor.ExtractSkills("Worked at Google on Golang-adjacent tooling.")
		assert.NotContains(t, found, "go")
	})

	t.Run("符号词条", func(t *testing.T) {
		found := extractor.ExtractSkills("Modern C++ and C# development, Node.js services.")
		assert.Contains(t, found, "c++")
		assert.Contains(t, found, "c#")
		assert.Contains(t, found, "node.js")
	})

	t.Run("结果去重且有序", func(t *testing.T) {
		found := extractor.ExtractSkills("python Python PYTHON docker")
		assert.Equal(t, []string{"docker", "python"}, found)
	})
}

func TestExtractRoles(t *testing.T) {
	extractor := NewVocabularyExtractor(nil)
	found := extractor.ExtractRoles("Senior Backend Developer with tech lead experience")
	assert.Contains(t, found, "backend developer")
	assert.Contains(t, found, "tech lead")
}

func TestMatchSkills(t *testing.T) {
	resume := []string{"python", "fastapi", "docker", "git"}
	job := []string{"python", "fastapi", "docker", "kubernetes", "aws"}

	result := MatchSkills(resume, job, 10)

	assert.ElementsMatch(t, []string{"python", "fastapi", "docker"}, result.Matched)
	assert.ElementsMatch(t, []string{"kubernetes", "aws"}, result.Missing)
	assert.Equal(t, 60.0, result.MatchPercentage)
}

func TestMatchSkillsEmptyJob(t *testing.T) {
	result := MatchSkills([]string{"python"}, nil, 10)
	assert.Empty(t, result.Matched)
	assert.Empty(t, result.Missing)
	assert.Equal(t, 0.0, result.MatchPercentage)
}

func TestMatchSkillsCapsLists(t *testing.T) {
	job := []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9", "b1", "b2", "b3"}
	result := MatchSkills(nil, job, 10)
	assert.Len(t, result.Missing, 10)
}

func TestLoadVocabulary(t *testing.T) {
	t.Run("空路径使用内置词表", func(t *testing.T) {
		vocab, err := LoadVocabulary("")
		require.NoError(t, err)
		assert.Contains(t, vocab.Skills, "python")
		assert.Contains(t, vocab.Roles, "backend developer")
	})

	t.Run("自定义词表", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vocab.yaml")
		content := "skills:\n  - golang\n  - hertz\nroles:\n  - platform engineer\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		vocab, err := LoadVocabulary(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"golang", "hertz"}, vocab.Skills)

		extractor := NewVocabularyExtractor(vocab)
		assert.Equal(t, []string{"golang", "hertz"}, extractor.ExtractSkills("Golang services on Hertz"))
	})

	t.Run("缺少技能条目报错", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vocab.yaml")
		require.NoError(t, os.WriteFile(path, []byte("roles:\n  - x\n"), 0644))
		_, err := LoadVocabulary(path)
		assert.Error(t, err)
	})
}
