package textproc

import (
	"fmt"
	"strings"
	"unicode"

	"resume-match-go/internal/constants"
)

// ValidationError 输入文本校验失败
// 属于调用方错误，不重试，同步返回给调用方
type ValidationError struct {
	Field  string // 出错的字段名，例如 "resume_text"
	Reason string // 人类可读的失败原因
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	return fmt.Sprintf("字段 %s 校验失败: %s", e.Field, e.Reason)
}

// ValidateInputText 校验输入文本是否可以进入匹配流水线
// 规则：非空、长度在[MinInputChars, MaxInputChars]之间、字母数字占比不低于MinAlphaNumericRatio
func ValidateInputText(text string, field string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &ValidationError{Field: field, Reason: "文本不能为空"}
	}

	runes := []rune(trimmed)
	if len(runes) < constants.MinInputChars {
		return &ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("文本过短: %d 字符，最少需要 %d 字符", len(runes), constants.MinInputChars),
		}
	}
	if len(runes) > constants.MaxInputChars {
		return &ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("文本过长: %d 字符，最多允许 %d 字符", len(runes), constants.MaxInputChars),
		}
	}

	alnum := 0
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	ratio := float64(alnum) / float64(len(runes))
	if ratio < constants.MinAlphaNumericRatio {
		return &ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("有效字符占比过低: %.0f%%，疑似乱码或二进制内容", ratio*100),
		}
	}

	return nil
}
