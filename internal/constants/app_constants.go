package constants

import "time"

const (
	// DefaultEmbeddingModelVersion 默认的嵌入模型版本标识，缓存的向量与其绑定
	DefaultEmbeddingModelVersion = "text-embedding-v3"

	// JDCacheDuration JD文本缓存的过期时间
	JDCacheDuration = 24 * time.Hour
	// JobVectorCacheDuration JD向量缓存的过期时间
	JobVectorCacheDuration = 24 * time.Hour
	// RankSessionCacheDuration 排序会话缓存的过期时间
	RankSessionCacheDuration = 30 * time.Minute
	// RankLockDuration 排序计算分布式锁的持有时间
	RankLockDuration = 30 * time.Second

	// MinInputChars 输入文本的最小字符数，低于该值拒绝处理
	MinInputChars = 50
	// MaxInputChars 输入文本的最大字符数，高于该值拒绝处理
	MaxInputChars = 50000
	// MinAlphaNumericRatio 输入文本中字母数字字符的最低占比
	MinAlphaNumericRatio = 0.5

	// MinSentenceChars 句子切分后保留的最小字符数
	MinSentenceChars = 10

	// ResumeStatusPendingParsing 简历已上传，等待解析
	ResumeStatusPendingParsing = "PENDING_PARSING"
	// ResumeStatusCompleted 简历解析完成
	ResumeStatusCompleted = "COMPLETED"
	// ResumeStatusParseFailed 简历解析失败
	ResumeStatusParseFailed = "PARSE_FAILED"

	// JobStatusActive 在招岗位
	JobStatusActive = "ACTIVE"
)
