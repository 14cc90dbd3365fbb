package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"resume-match-go/internal/config"
	"resume-match-go/internal/constants"
	"resume-match-go/internal/types"
)

// ErrNotFound is returned when a key is not found in Redis.
// It wraps the underlying redis.Nil error for abstraction.
var ErrNotFound = redis.Nil

// 为Redis操作定义专用tracer
var redisTracer = otel.Tracer("resume-match-go/storage/redis")

// Redis操作前缀采样率配置
var redisKeySamplingRates = map[string]float64{
	"app:rank:lock:":    0.5,  // 锁操作采样50%
	"app:rank:session:": 0.25, // 排序会话操作采样25%
	"app:job:":          0.1,  // 岗位缓存操作采样10%
	"app:resume:":       0.1,  // 简历去重操作采样10%
}

// 随机数生成器
var (
	rnd      *rand.Rand
	rndMutex sync.Mutex
)

func init() {
	source := rand.NewSource(time.Now().UnixNano())
	rnd = rand.New(source)
}

// shouldSampleRedisOp 根据key前缀决定是否需要创建span
func shouldSampleRedisOp(key string) bool {
	if key == "" {
		return false
	}

	for prefix, rate := range redisKeySamplingRates {
		if strings.HasPrefix(key, prefix) {
			return randFloat() < rate
		}
	}

	// 默认采样率5%
	return randFloat() < 0.05
}

// 生成0-1之间的随机数
func randFloat() float64 {
	rndMutex.Lock()
	defer rndMutex.Unlock()
	return rnd.Float64()
}

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter creates a new Redis client connection
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 重试设置
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,

		// 连接生命周期
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// GetHashExpireDuration 返回配置的内容哈希记录过期时间
func (r *Redis) GetHashExpireDuration() time.Duration {
	days := r.config.HashRecordExpireDays
	if days <= 0 {
		days = 365 // 默认1年
	}
	return time.Duration(days) * 24 * time.Hour
}

// checkAndAddHashAtomic 原子地检查并添加内容哈希到指定集合
// 返回true表示哈希已存在（重复内容）
func (r *Redis) checkAndAddHashAtomic(ctx context.Context, spanName, setKey, hashHex string) (exists bool, err error) {
	ctx, span := redisTracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("db.redis.database", fmt.Sprintf("%d", r.config.DB)),
		attribute.String("net.peer.name", r.config.Address),
		attribute.String("db.operation", "EVAL"),
		attribute.String("db.redis.key", setKey),
		attribute.String("db.redis.member", hashHex),
	)

	if r.Client == nil {
		err = fmt.Errorf("redis client is not initialized")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	// 使用Lua脚本保证检查和添加的原子性
	script := `
		local exists = redis.call('SISMEMBER', KEYS[1], ARGV[1])
		redis.call('SADD', KEYS[1], ARGV[1])
		redis.call('EXPIRE', KEYS[1], ARGV[2])
		return exists
	`

	expiry := r.GetHashExpireDuration().Seconds()

	res, err := r.Client.Eval(ctx, script, []string{setKey}, hashHex, expiry).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("执行原子检查和添加操作失败: %w", err)
	}

	existsVal, ok := res.(int64)
	if !ok {
		err := fmt.Errorf("意外的Redis返回类型: %T", res)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	exists = existsVal == 1
	span.SetAttributes(attribute.Bool("already_exists", exists))
	span.SetStatus(codes.Ok, "")

	return exists, nil
}

// CheckAndAddJobContentHash 检查并添加岗位描述哈希，用于入库去重
func (r *Redis) CheckAndAddJobContentHash(ctx context.Context, hashHex string) (bool, error) {
	return r.checkAndAddHashAtomic(ctx, "Redis.CheckAndAddJobContentHash", constants.KeyJobContentHashSet, hashHex)
}

// CheckAndAddResumeContentHash 检查并添加简历文本哈希，用于上传去重
func (r *Redis) CheckAndAddResumeContentHash(ctx context.Context, hashHex string) (bool, error) {
	return r.checkAndAddHashAtomic(ctx, "Redis.CheckAndAddResumeContentHash", constants.KeyResumeContentHashSet, hashHex)
}

// RemoveJobContentHash 从去重集合中移除岗位描述哈希
func (r *Redis) RemoveJobContentHash(ctx context.Context, hashHex string) error {
	ctx, span := redisTracer.Start(ctx, "Redis.RemoveJobContentHash",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("db.redis.database", fmt.Sprintf("%d", r.config.DB)),
		attribute.String("net.peer.name", r.config.Address),
		attribute.String("db.operation", "SREM"),
		attribute.String("db.redis.key", constants.KeyJobContentHashSet),
		attribute.String("db.redis.member", hashHex),
	)

	result, err := r.Client.SRem(ctx, constants.KeyJobContentHashSet, hashHex).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("从集合中移除哈希失败: %w", err)
	}

	span.SetAttributes(attribute.Int64("removed_count", result))
	span.SetStatus(codes.Ok, "")

	return nil
}

// SetJobDescription 缓存岗位描述原文
func (r *Redis) SetJobDescription(ctx context.Context, jobID string, text string) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	key := fmt.Sprintf(constants.KeyJobDescriptionText, jobID)
	return r.Client.Set(ctx, key, text, constants.JDCacheDuration).Err()
}

// GetJobDescription 获取缓存的岗位描述原文
func (r *Redis) GetJobDescription(ctx context.Context, jobID string) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis client is not initialized")
	}
	key := fmt.Sprintf(constants.KeyJobDescriptionText, jobID)
	return r.Client.Get(ctx, key).Result()
}

// SetJobVector 将岗位向量和模型版本存入Redis HASH
// 使用HASH可以将向量和模型版本存在同一个key下，便于版本校验
func (r *Redis) SetJobVector(ctx context.Context, jobID string, vector []float64, modelVersion string) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}

	cacheKey := fmt.Sprintf(constants.KeyJobDescriptionVector, jobID)

	vectorJSON, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("序列化向量失败: %w", err)
	}

	pipe := r.Client.Pipeline()
	pipe.HSet(ctx, cacheKey, "vector", vectorJSON)
	pipe.HSet(ctx, cacheKey, "model_version", modelVersion)
	pipe.Expire(ctx, cacheKey, constants.JobVectorCacheDuration)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("设置岗位向量缓存失败: %w", err)
	}
	return nil
}

// GetJobVector 从Redis HASH中获取岗位向量和模型版本
func (r *Redis) GetJobVector(ctx context.Context, jobID string) ([]float64, string, error) {
	if r.Client == nil {
		return nil, "", fmt.Errorf("redis client is not initialized")
	}

	cacheKey := fmt.Sprintf(constants.KeyJobDescriptionVector, jobID)

	vals, err := r.Client.HMGet(ctx, cacheKey, "vector", "model_version").Result()
	if err != nil {
		return nil, "", err
	}

	if len(vals) < 2 {
		return nil, "", ErrNotFound
	}

	if vals[0] == nil {
		return nil, "", fmt.Errorf("未找到岗位向量缓存，jobID=%s: %w", jobID, ErrNotFound)
	}
	vectorJSON, ok := vals[0].(string)
	if !ok || vectorJSON == "" {
		return nil, "", fmt.Errorf("向量缓存格式错误")
	}
	var vector []float64
	if err := json.Unmarshal([]byte(vectorJSON), &vector); err != nil {
		return nil, "", fmt.Errorf("反序列化向量失败: %w", err)
	}

	if vals[1] == nil {
		return vector, "", fmt.Errorf("向量模型版本未找到")
	}
	modelVersion, ok := vals[1].(string)
	if !ok {
		return vector, "", fmt.Errorf("向量模型版本格式错误")
	}

	return vector, modelVersion, nil
}

// RankSessionKey 生成排序会话的缓存key
func RankSessionKey(resumeHash, criteriaHash string) string {
	return fmt.Sprintf(constants.KeyRankSession, resumeHash, criteriaHash)
}

// RankLockKey 生成排序会话的分布式锁key
func RankLockKey(resumeHash, criteriaHash string) string {
	return fmt.Sprintf(constants.KeyRankLock, resumeHash, criteriaHash)
}

// CacheRankSession 将完整的、已排序的岗位排序结果缓存到Redis的ZSET中
func (r *Redis) CacheRankSession(ctx context.Context, sessionKey string, results []types.RankedJob, ttl time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	if len(results) == 0 {
		return nil // 不缓存空结果
	}

	pipe := r.Client.Pipeline()

	// 先删除旧的key，确保缓存是最新的
	pipe.Del(ctx, sessionKey)

	members := make([]redis.Z, len(results))
	for i, res := range results {
		payload, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("序列化排序结果失败: %w", err)
		}
		members[i] = redis.Z{
			// 使用倒序排名作为分数，ZREVRANGE可以直接按原始排名取出
			// 组合分数相同时保持排序时确定的顺序
			Score:  float64(len(results) - i),
			Member: string(payload),
		}
	}

	pipe.ZAdd(ctx, sessionKey, members...)
	pipe.Expire(ctx, sessionKey, ttl)

	_, err := pipe.Exec(ctx)
	return err
}

// GetCachedRankSession 从Redis ZSET中获取分页的岗位排序结果
func (r *Redis) GetCachedRankSession(ctx context.Context, sessionKey string, cursor, limit int64) (jobs []types.RankedJob, totalCount int64, err error) {
	ctx, span := redisTracer.Start(ctx, "GetCachedRankSession", trace.WithAttributes(
		semconv.DBSystemRedis,
		attribute.String("redis.key", sessionKey),
		attribute.Int64("redis.cursor", cursor),
		attribute.Int64("redis.limit", limit),
	))
	defer span.End()

	pipe := r.Client.Pipeline()
	countCmd := pipe.ZCard(ctx, sessionKey)
	// 按分数从高到低即按原始排名取出
	rangeCmd := pipe.ZRevRange(ctx, sessionKey, cursor, cursor+limit-1)
	_, err = pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		span.RecordError(err)
		return nil, 0, err
	}

	payloads, err := rangeCmd.Result()
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to get cached rank results: %w", err)
	}

	jobs = make([]types.RankedJob, 0, len(payloads))
	for _, p := range payloads {
		var job types.RankedJob
		if err := json.Unmarshal([]byte(p), &job); err != nil {
			span.RecordError(err)
			return nil, 0, fmt.Errorf("反序列化缓存的排序结果失败: %w", err)
		}
		jobs = append(jobs, job)
	}

	totalCount, err = countCmd.Result()
	if err != nil {
		return jobs, 0, err
	}

	return jobs, totalCount, nil
}

// AcquireLock 尝试获取一个分布式锁
func (r *Redis) AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis client is not initialized")
	}
	// 生成一个随机值作为锁的持有者标识
	lockValue := fmt.Sprintf("%d", time.Now().UnixNano())
	// SetNX保证了原子性
	ok, err := r.Client.SetNX(ctx, lockKey, lockValue, expiration).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return lockValue, nil
	}
	// 未能获取锁
	return "", nil
}

// ReleaseLock 释放一个分布式锁，使用Lua脚本保证原子性
func (r *Redis) ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis client is not initialized")
	}
	// 如果key存在且值匹配，则删除key
	script := `
        if redis.call("get", KEYS[1]) == ARGV[1] then
            return redis.call("del", KEYS[1])
        else
            return 0
        end
    `
	res, err := r.Client.Eval(ctx, script, []string{lockKey}, lockValue).Result()
	if err != nil {
		return false, err
	}

	if released, ok := res.(int64); ok && released == 1 {
		return true, nil
	}

	return false, nil // 锁不存在或不属于当前持有者
}

// Get 获取键的值
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span

	// 根据key前缀决定是否创建span
	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Get", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		span.SetAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", "GET"),
			attribute.String("db.redis.key", key),
			// 避免与redisotel hook产生的span重复
			attribute.Bool("otel.propagate_to_child", false),
		)
	}

	val, err := r.Client.Get(ctx, key).Result()

	if span != nil {
		if err != nil {
			// key不存在不算错误
			if err == redis.Nil {
				span.SetStatus(codes.Ok, "key not found")
				span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
			} else {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return "", err
		}

		span.SetAttributes(
			attribute.Bool("db.redis.key_exists", true),
			attribute.Int("db.redis.value_length", len(val)),
		)
		span.SetStatus(codes.Ok, "")
	}

	return val, nil
}

// Set 设置键的值
func (r *Redis) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span

	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Set", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		span.SetAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", "SET"),
			attribute.String("db.redis.key", key),
			attribute.Int("db.redis.value_length", len(value)),
			attribute.Bool("otel.propagate_to_child", false),
		)

		if expiration > 0 {
			span.SetAttributes(attribute.Int64("db.redis.expiration_ms", expiration.Milliseconds()))
		}
	}

	err := r.Client.Set(ctx, key, value, expiration).Err()

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Ok, "")
	}

	return nil
}
