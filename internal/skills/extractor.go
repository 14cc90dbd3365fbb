package skills

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"resume-match-go/internal/types"
)

// Extractor 从自由文本中抽取技能关键词
// 词表实现可以被NER等更重的实现替换而不影响调用方
type Extractor interface {
	ExtractSkills(text string) []string
	ExtractRoles(text string) []string
}

// VocabularyExtractor 基于词表的抽取器
// 使用不区分大小写的词边界匹配，避免"go"命中"google"这类误报
type VocabularyExtractor struct {
	skillPatterns map[string]*regexp.Regexp
	rolePatterns  map[string]*regexp.Regexp
}

// NewVocabularyExtractor 从词表构建抽取器
func NewVocabularyExtractor(vocab *Vocabulary) *VocabularyExtractor {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &VocabularyExtractor{
		skillPatterns: compilePatterns(vocab.Skills),
		rolePatterns:  compilePatterns(vocab.Roles),
	}
}

// compilePatterns 为每个词条预编译匹配正则
// 词条首尾是字母数字时加\b边界；"c++"这类以符号结尾的词条不加尾边界
func compilePatterns(terms []string) map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(terms))
	for _, term := range terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		expr := regexp.QuoteMeta(t)
		runes := []rune(t)
		if isWordRune(runes[0]) {
			expr = `\b` + expr
		}
		if isWordRune(runes[len(runes)-1]) {
			expr = expr + `\b`
		}
		re, err := regexp.Compile(`(?i)` + expr)
		if err != nil {
			continue
		}
		patterns[t] = re
	}
	return patterns
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// ExtractSkills 返回文本中命中的技能关键词，统一小写并按字典序排序
func (e *VocabularyExtractor) ExtractSkills(text string) []string {
	return matchTerms(e.skillPatterns, text)
}

// ExtractRoles 返回文本中命中的职位角色关键词
func (e *VocabularyExtractor) ExtractRoles(text string) []string {
	return matchTerms(e.rolePatterns, text)
}

func matchTerms(patterns map[string]*regexp.Regexp, text string) []string {
	found := make([]string, 0, 8)
	for term, re := range patterns {
		if re.MatchString(text) {
			found = append(found, term)
		}
	}
	sort.Strings(found)
	return found
}

// MatchSkills 计算简历技能与JD技能的匹配情况
// 匹配度 = 100 * |交集| / |JD技能|，JD技能为空时为0
// 输出列表截断到maxList条，保持字典序
func MatchSkills(resumeSkills, jobSkills []string, maxList int) types.SkillMatch {
	resumeSet := toSet(resumeSkills)

	matched := make([]string, 0, len(jobSkills))
	missing := make([]string, 0, len(jobSkills))
	jobSet := toSet(jobSkills)

	jobList := make([]string, 0, len(jobSet))
	for s := range jobSet {
		jobList = append(jobList, s)
	}
	sort.Strings(jobList)

	for _, s := range jobList {
		if resumeSet[s] {
			matched = append(matched, s)
		} else {
			missing = append(missing, s)
		}
	}

	pct := 0.0
	if len(jobList) > 0 {
		pct = math.Round(100*float64(len(matched))/float64(len(jobList))*100) / 100
	}

	return types.SkillMatch{
		Matched:         capList(matched, maxList),
		Missing:         capList(missing, maxList),
		MatchPercentage: pct,
	}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = true
		}
	}
	return set
}

func capList(items []string, max int) []string {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}
