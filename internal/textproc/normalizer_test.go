package textproc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "hello world", CleanText("  hello   world  "))
	assert.Equal(t, "a b c", CleanText("a\tb\n\nc"))
	assert.Equal(t, "", CleanText("   \n\t  "))
}

func TestSplitSentences(t *testing.T) {
	text := "I built backend services with Go. Short. Deployed containers with Docker and Kubernetes! What about monitoring? Yes"
	sentences := SplitSentences(text)

	require.Len(t, sentences, 3)
	assert.Equal(t, "I built backend services with Go", sentences[0])
	assert.Equal(t, "Deployed containers with Docker and Kubernetes", sentences[1])
	assert.Equal(t, "What about monitoring", sentences[2])
}

func TestSplitSentencesDropsShortFragments(t *testing.T) {
	sentences := SplitSentences("Yes. No. Ok. This sentence is long enough to keep.")
	require.Len(t, sentences, 1)
	assert.Contains(t, sentences[0], "long enough")
}

func TestNewTextUnit(t *testing.T) {
	raw := "  Backend engineer   with Go experience.  Built REST APIs with Python and FastAPI.  "
	unit := NewTextUnit(raw)

	assert.Equal(t, raw, unit.RawText)
	assert.Equal(t, "Backend engineer with Go experience. Built REST APIs with Python and FastAPI.", unit.NormalizedText)
	require.Len(t, unit.Sentences, 2)
}

func TestValidateInputText(t *testing.T) {
	longText := strings.Repeat("experienced backend engineer ", 5)

	t.Run("合法文本", func(t *testing.T) {
		assert.NoError(t, ValidateInputText(longText, "resume_text"))
	})

	t.Run("空文本", func(t *testing.T) {
		err := ValidateInputText("   ", "resume_text")
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "resume_text", vErr.Field)
	})

	t.Run("过短文本", func(t *testing.T) {
		err := ValidateInputText("go dev 123", "resume_text")
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Reason, "最少需要 50")
	})

	t.Run("过长文本", func(t *testing.T) {
		err := ValidateInputText(strings.Repeat("a", 50001), "job_text")
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Reason, "过长")
	})

	t.Run("乱码文本", func(t *testing.T) {
		err := ValidateInputText(strings.Repeat("@#$%^&*() ", 10), "resume_text")
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Reason, "占比过低")
	})
}
