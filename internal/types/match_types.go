package types

// TextUnit 规范化后的文本单元，是匹配流水线的基本输入
type TextUnit struct {
	RawText        string   // 原始文本
	NormalizedText string   // 清洗后的文本
	Sentences      []string // 切分出的句子
}

// MatchRequirement 一条JD要求与简历的对齐情况
type MatchRequirement struct {
	Sentence  string  `json:"sentence"`        // JD中的要求句（可能被截断）
	Match     string  `json:"match,omitempty"` // 覆盖该要求的最相近简历句（可能被截断），仅覆盖时给出
	BestScore float64 `json:"best_score"`      // 简历中最相近句子的相似度得分 (0-100)
	Covered   bool    `json:"covered"`         // 是否达到匹配阈值
}

// AlignmentResult 优势/差距分析结果
type AlignmentResult struct {
	Strengths     []MatchRequirement `json:"strengths"`      // 简历覆盖的JD要求，按得分降序
	Gaps          []MatchRequirement `json:"gaps"`           // 简历未覆盖的JD要求，按得分升序
	MatchedSkills []string           `json:"matched_skills"` // 命中的技能关键词
	MissingSkills []string           `json:"missing_skills"` // 缺失的技能关键词
	Degraded      bool               `json:"degraded"`       // 是否降级为纯关键词分析
}

// MatchResult 单次简历-JD匹配的完整结果
type MatchResult struct {
	MatchScore float64            `json:"match_score"` // 整体语义相似度 (0-100)
	Strengths  []MatchRequirement `json:"strengths"`
	Gaps       []MatchRequirement `json:"gaps"`
	Skills     SkillMatch         `json:"skills"`
	Degraded   bool               `json:"degraded"`
}

// SkillMatch 技能集合的匹配结果
type SkillMatch struct {
	Matched         []string `json:"matched"`          // 交集，上限截断后
	Missing         []string `json:"missing"`          // JD有而简历没有的技能
	MatchPercentage float64  `json:"match_percentage"` // 100 * |交集| / |JD技能|
}

// JobCandidate 参与排序的岗位候选，载荷来自向量库或数据库
type JobCandidate struct {
	JobID           string   `json:"job_id"`
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	Location        string   `json:"location"`
	Description     string   `json:"description"`
	Tags            []string `json:"tags"`
	SalaryMin       int      `json:"salary_min"`
	SalaryMax       int      `json:"salary_max"`
	EmploymentType  string   `json:"employment_type"`  // full-time, part-time, contract...
	ExperienceLevel string   `json:"experience_level"` // junior, mid, senior...
	RawScore        float64  `json:"raw_score"`        // 向量库返回的原始相似度 (0-1)
}

// RankedJob 排序后的岗位条目
type RankedJob struct {
	Candidate     JobCandidate `json:"job"`
	VectorScore   float64      `json:"vector_score"`   // 原始相似度×100
	SkillScore    float64      `json:"skill_score"`    // 技能匹配百分比
	CombinedScore float64      `json:"combined_score"` // 加权综合得分
	FitPercentage int          `json:"fit_percentage"` // 综合得分四舍五入
	MatchedSkills []string     `json:"matched_skills"`
	MissingSkills []string     `json:"missing_skills"`
}

// FilterCriteria 岗位过滤条件，全部可选，同时给出时取与
type FilterCriteria struct {
	MinSalary       int    `json:"min_salary,omitempty"`       // 要求 SalaryMax >= MinSalary
	Location        string `json:"location,omitempty"`         // 不区分大小写的子串匹配
	ExperienceLevel string `json:"experience_level,omitempty"` // 精确匹配（不区分大小写）
	EmploymentType  string `json:"employment_type,omitempty"`  // 精确匹配（不区分大小写）
}

// IsZero 判断过滤条件是否为空
func (f FilterCriteria) IsZero() bool {
	return f.MinSalary == 0 && f.Location == "" && f.ExperienceLevel == "" && f.EmploymentType == ""
}

// CacheStats 向量缓存的运行统计
type CacheStats struct {
	TotalRequests       int64   `json:"total_requests"`
	CacheHits           int64   `json:"cache_hits"`
	CacheMisses         int64   `json:"cache_misses"`
	TotalProcessingTime float64 `json:"total_processing_time"` // 秒
	CacheSize           int     `json:"cache_size"`
	CacheHitRate        float64 `json:"cache_hit_rate"`
}
