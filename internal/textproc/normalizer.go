package textproc

import (
	"regexp"
	"strings"

	"resume-match-go/internal/constants"
	"resume-match-go/internal/types"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	sentenceRe   = regexp.MustCompile(`[.!?]+|\n+`)
)

// CleanText 清洗文本：去除首尾空白并把连续空白压缩为单个空格
func CleanText(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// SplitSentences 按句号/感叹号/问号和换行切分句子
// 仅保留去除空白后长度超过MinSentenceChars的句子
func SplitSentences(text string) []string {
	parts := sentenceRe.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if len(s) > constants.MinSentenceChars {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// NewTextUnit 从原始文本构建匹配流水线的文本单元
func NewTextUnit(raw string) types.TextUnit {
	normalized := CleanText(raw)
	return types.TextUnit{
		RawText:        raw,
		NormalizedText: normalized,
		Sentences:      SplitSentences(normalized),
	}
}
