package storage

import "time"

// JobSubmittedMessage 岗位提交消息
// API接受岗位后发布到入库交换机，由入库消费者异步处理
type JobSubmittedMessage struct {
	JobID           string    `json:"job_id"`                     // 岗位UUID，主键
	Title           string    `json:"title"`                      // 岗位名称
	Company         string    `json:"company,omitempty"`          // 公司名称
	Location        string    `json:"location,omitempty"`         // 工作地点
	Description     string    `json:"description"`                // 岗位描述原文
	SalaryMin       int       `json:"salary_min,omitempty"`       // 最低薪资
	SalaryMax       int       `json:"salary_max,omitempty"`       // 最高薪资
	EmploymentType  string    `json:"employment_type,omitempty"`  // 雇佣类型
	ExperienceLevel string    `json:"experience_level,omitempty"` // 经验要求
	SubmittedAt     time.Time `json:"submitted_at"`               // 提交时间戳
	ContentHash     string    `json:"content_hash,omitempty"`     // 描述的SHA-256，用于失败时回滚去重记录
}

// ResumeParsedMessage 简历解析完成消息
// PDF解析流程完成后记录解析产物的位置
type ResumeParsedMessage struct {
	ResumeUUID        string `json:"resume_uuid"`                    // 简历UUID
	ParsedTextPathOSS string `json:"parsed_text_path_oss,omitempty"` // 解析文本在MinIO中的路径
	ProcessingStatus  string `json:"processing_status,omitempty"`    // 处理状态
	ProcessedAt       int64  `json:"processed_at,omitempty"`         // 处理时间戳
	Error             string `json:"error,omitempty"`                // 错误信息
}
