// Package similarity 提供向量相似度计算
// 所有API都不会因输入向量本身返回错误，退化输入一律得0分
package similarity

import "math"

// Cosine 计算两个向量的余弦相似度
// 维度不一致或任一向量模长为0时返回0
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Score 将余弦相似度换算为0-100的匹配分
// 结果限制在[0,100]并保留两位小数
func Score(a, b []float64) float64 {
	return FromCosine(Cosine(a, b))
}

// FromCosine 将已算出的余弦相似度换算为0-100的匹配分
// 负相关一律得0分，排序需要保留负值时应直接使用Cosine
func FromCosine(c float64) float64 {
	score := c * 100
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return math.Round(score*100) / 100
}
