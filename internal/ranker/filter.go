package ranker

import (
	"strings"

	"resume-match-go/internal/types"
)

// FilterCandidates 按条件过滤岗位候选
// 所有条件可选，给出的条件之间取与；缺失的岗位字段不会报错，只是不通过对应条件
func FilterCandidates(candidates []types.JobCandidate, criteria types.FilterCriteria) []types.JobCandidate {
	if criteria.IsZero() {
		return candidates
	}

	out := make([]types.JobCandidate, 0, len(candidates))
	for _, c := range candidates {
		if matchesCriteria(c, criteria) {
			out = append(out, c)
		}
	}
	return out
}

func matchesCriteria(c types.JobCandidate, criteria types.FilterCriteria) bool {
	// 薪资：岗位上限需覆盖期望下限
	if criteria.MinSalary > 0 && c.SalaryMax < criteria.MinSalary {
		return false
	}

	// 地点：不区分大小写的子串匹配
	if criteria.Location != "" &&
		!strings.Contains(strings.ToLower(c.Location), strings.ToLower(criteria.Location)) {
		return false
	}

	// 经验级别：精确匹配
	if criteria.ExperienceLevel != "" &&
		!strings.EqualFold(c.ExperienceLevel, criteria.ExperienceLevel) {
		return false
	}

	// 雇佣类型：精确匹配
	if criteria.EmploymentType != "" &&
		!strings.EqualFold(c.EmploymentType, criteria.EmploymentType) {
		return false
	}

	return true
}
