package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// RankModulePrefix 排序模块
	RankModulePrefix = "rank"
	// JobModulePrefix 岗位模块
	JobModulePrefix = "job"
	// ResumeModulePrefix 简历模块
	ResumeModulePrefix = "resume"

	// EntitySession 排序会话实体
	EntitySession = "session"
	// EntityLock 分布式锁实体
	EntityLock = "lock"
	// EntityText 文本实体
	EntityText = "text"
	// EntityVector 向量实体
	EntityVector = "vector"
	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"

	// KeyRankSession 排序会话缓存 (ZSET)
	// 格式: app:rank:session:{resumeHash}:{criteriaHash}
	KeyRankSession = AppPrefix + ":" + RankModulePrefix + ":" + EntitySession + ":%s:%s"

	// KeyRankLock 排序分布式锁 (STRING)
	// 格式: app:rank:lock:{resumeHash}:{criteriaHash}
	KeyRankLock = AppPrefix + ":" + RankModulePrefix + ":" + EntityLock + ":%s:%s"

	// KeyJobDescriptionText JD文本缓存 (STRING)
	// 格式: app:job:text:{jobID}
	KeyJobDescriptionText = AppPrefix + ":" + JobModulePrefix + ":" + EntityText + ":%s"

	// KeyJobDescriptionVector JD向量缓存 (HASH)
	// 格式: app:job:vector:{jobID}
	KeyJobDescriptionVector = AppPrefix + ":" + JobModulePrefix + ":" + EntityVector + ":%s"

	// KeyJobContentHashSet 岗位描述SHA-256集合，用于入库去重 (SET)
	// 格式: app:job:dedup_set
	KeyJobContentHashSet = AppPrefix + ":" + JobModulePrefix + ":" + EntityDedupSet

	// KeyResumeContentHashSet 简历文本SHA-256集合，用于上传去重 (SET)
	// 格式: app:resume:dedup_set
	KeyResumeContentHashSet = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityDedupSet
)
