package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Job 岗位信息表
type Job struct {
	JobID           string         `gorm:"type:char(36);primaryKey"`
	Title           string         `gorm:"type:varchar(255);not null"`
	Company         string         `gorm:"type:varchar(255);index:idx_jobs_company"`
	Location        string         `gorm:"type:varchar(255)"`
	DescriptionText string         `gorm:"type:text;not null"`
	ContentHash     string         `gorm:"type:char(64);uniqueIndex:idx_jobs_content_hash"`
	TagsJSON        datatypes.JSON `gorm:"type:json"` // 词表抽取的技能和岗位角色标签
	SalaryMin       int            `gorm:"type:int"`
	SalaryMax       int            `gorm:"type:int;index:idx_jobs_salary_max"`
	EmploymentType  string         `gorm:"type:varchar(50)"`
	ExperienceLevel string         `gorm:"type:varchar(50)"`
	Status          string         `gorm:"type:varchar(50);default:'ACTIVE';index:idx_jobs_status"`
	CreatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Job) TableName() string {
	return "jobs"
}

// JobVector 存储岗位的向量表示
type JobVector struct {
	JobID                 string    `gorm:"type:char(36);primaryKey"`
	VectorRepresentation  []byte    `gorm:"type:mediumblob;not null"` // 存储JSON序列化后的向量
	EmbeddingModelVersion string    `gorm:"type:varchar(100);not null"`
	Dimension             int       `gorm:"type:int;not null"`
	QdrantPointID         string    `gorm:"type:char(36);index:idx_jv_point_id"`
	CreatedAt             time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt             time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
	Job                   Job       `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (JobVector) TableName() string {
	return "job_vectors"
}

// ResumeDocument 上传的简历文档表
type ResumeDocument struct {
	ResumeUUID          string    `gorm:"type:char(36);primaryKey"`
	OriginalFilename    string    `gorm:"type:varchar(255)"`
	OriginalFilePathOSS string    `gorm:"type:varchar(1024)"`
	ParsedTextPathOSS   string    `gorm:"type:varchar(1024)"`
	ContentHash         string    `gorm:"type:char(64);index:idx_rd_content_hash"`
	ProcessingStatus    string    `gorm:"type:varchar(50);default:'PENDING_PARSING';index:idx_rd_processing_status"`
	ParserVersion       string    `gorm:"type:varchar(50)"`
	CreatedAt           time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt           time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (ResumeDocument) TableName() string {
	return "resume_documents"
}

// MatchEvaluation 简历-岗位匹配评估记录表
type MatchEvaluation struct {
	EvaluationID     uint64         `gorm:"primaryKey;autoIncrement"`
	ResumeHash       string         `gorm:"type:char(64);not null;index:idx_me_resume_hash;uniqueIndex:idx_me_resume_job_unique,priority:1"`
	JobHash          string         `gorm:"type:char(64);not null;uniqueIndex:idx_me_resume_job_unique,priority:2"`
	JobID            *string        `gorm:"type:char(36);index:idx_me_job_id"` // 岗位库外的临时JD为NULL
	MatchScore       float64        `gorm:"type:double;not null"`
	StrengthsJSON    datatypes.JSON `gorm:"type:json"`
	GapsJSON         datatypes.JSON `gorm:"type:json"`
	SkillsJSON       datatypes.JSON `gorm:"type:json"`
	Degraded         bool           `gorm:"default:false"`
	EmbeddingVersion string         `gorm:"type:varchar(100)"`
	EvaluatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_me_evaluated_at"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Job *Job `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (MatchEvaluation) TableName() string {
	return "match_evaluations"
}

// StringToJSON Helper function to convert string to datatypes.JSON
func StringToJSON(s string) datatypes.JSON {
	return datatypes.JSON(s)
}

// MapToJSON Helper function to convert map[string]interface{} to datatypes.JSON
func MapToJSON(m map[string]interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

// StringSliceToJSON Helper function to convert []string to datatypes.JSON
func StringSliceToJSON(s []string) (datatypes.JSON, error) {
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
