package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	t.Run("相同向量", func(t *testing.T) {
		v := []float64{1, 2, 3}
		assert.InDelta(t, 1.0, Cosine(v, v), 1e-9)
	})

	t.Run("正交向量", func(t *testing.T) {
		assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	})

	t.Run("反向向量", func(t *testing.T) {
		assert.InDelta(t, -1.0, Cosine([]float64{1, 1}, []float64{-1, -1}), 1e-9)
	})

	t.Run("零向量不报错", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine([]float64{0, 0, 0}, []float64{1, 2, 3}))
	})

	t.Run("维度不一致", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine([]float64{1, 2}, []float64{1, 2, 3}))
	})

	t.Run("空向量", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine(nil, nil))
	})
}

func TestScore(t *testing.T) {
	t.Run("满分上限", func(t *testing.T) {
		v := []float64{0.5, 0.5}
		assert.Equal(t, 100.0, Score(v, v))
	})

	t.Run("负相似度截断为0", func(t *testing.T) {
		assert.Equal(t, 0.0, Score([]float64{1, 0}, []float64{-1, 0}))
	})

	t.Run("保留两位小数", func(t *testing.T) {
		score := Score([]float64{1, 0}, []float64{1, 1})
		assert.Equal(t, 70.71, score)
	})
}
