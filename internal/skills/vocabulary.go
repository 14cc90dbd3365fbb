package skills

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Vocabulary 技能与职位角色词表
// 词表是纯数据，更换词表不需要改代码
type Vocabulary struct {
	Skills []string `yaml:"skills"`
	Roles  []string `yaml:"roles"`
}

// defaultSkills 内置技能词表
var defaultSkills = []string{
	// 编程语言
	"python", "java", "javascript", "typescript", "c++", "c#", "ruby", "php",
	"swift", "kotlin", "go", "rust", "scala", "r", "matlab",
	// Web技术
	"html", "css", "react", "angular", "vue", "node.js", "express",
	"django", "flask", "fastapi", "spring boot", "asp.net",
	// 数据库
	"sql", "mysql", "postgresql", "mongodb", "redis", "elasticsearch",
	"dynamodb", "cassandra", "oracle", "sqlite",
	// 云与DevOps
	"aws", "azure", "gcp", "docker", "kubernetes", "jenkins", "gitlab ci",
	"github actions", "terraform", "ansible", "ci/cd",
	// 数据科学与机器学习
	"machine learning", "deep learning", "tensorflow", "pytorch", "scikit-learn",
	"pandas", "numpy", "matplotlib", "jupyter", "data analysis",
	// 工具与架构
	"git", "jira", "agile", "scrum", "rest api", "graphql", "microservices",
	"oauth", "jwt", "rabbitmq", "kafka",
}

// defaultRoles 内置职位角色词表
var defaultRoles = []string{
	"software engineer", "backend developer", "frontend developer",
	"full stack developer", "data scientist", "machine learning engineer",
	"devops engineer", "cloud engineer", "data engineer", "qa engineer",
	"product manager", "project manager", "tech lead", "architect",
}

// DefaultVocabulary 返回内置词表的副本
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Skills: append([]string(nil), defaultSkills...),
		Roles:  append([]string(nil), defaultRoles...),
	}
}

// LoadVocabulary 从YAML文件加载词表，路径为空时返回内置词表
func LoadVocabulary(path string) (*Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取词表文件失败: %w", err)
	}

	var vocab Vocabulary
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return nil, fmt.Errorf("解析词表文件失败: %w", err)
	}
	if len(vocab.Skills) == 0 {
		return nil, fmt.Errorf("词表文件 '%s' 中没有技能条目", path)
	}
	if len(vocab.Roles) == 0 {
		vocab.Roles = append([]string(nil), defaultRoles...)
	}
	return &vocab, nil
}
