package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sync"
	"sync/atomic"

	"resume-match-go/internal/types"
)

// ContentHash 计算文本内容的SHA-256哈希，作为缓存键
// 相同内容恒定得到相同键，与调用时间无关
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// VectorCache 进程内向量缓存
// 显式构造、显式注入，不使用包级全局状态
type VectorCache struct {
	mu      sync.RWMutex
	vectors map[string][]float64

	// 运行统计，读写均为原子操作
	totalRequests int64
	cacheHits     int64
	cacheMisses   int64
	totalNanos    int64
}

// NewVectorCache 创建一个空的向量缓存
func NewVectorCache() *VectorCache {
	return &VectorCache{
		vectors: make(map[string][]float64),
	}
}

// Get 按内容哈希读取缓存向量，并记录命中/未命中
func (c *VectorCache) Get(hash string) ([]float64, bool) {
	atomic.AddInt64(&c.totalRequests, 1)

	c.mu.RLock()
	vec, ok := c.vectors[hash]
	c.mu.RUnlock()

	if ok {
		atomic.AddInt64(&c.cacheHits, 1)
		return vec, true
	}
	atomic.AddInt64(&c.cacheMisses, 1)
	return nil, false
}

// Put 写入缓存向量
func (c *VectorCache) Put(hash string, vector []float64) {
	c.mu.Lock()
	c.vectors[hash] = vector
	c.mu.Unlock()
}

// Delete 删除单个缓存条目，用于剔除维度异常的脏数据
func (c *VectorCache) Delete(hash string) {
	c.mu.Lock()
	delete(c.vectors, hash)
	c.mu.Unlock()
}

// Clear 清空全部缓存条目，统计计数保留
func (c *VectorCache) Clear() {
	c.mu.Lock()
	c.vectors = make(map[string][]float64)
	c.mu.Unlock()
}

// Size 返回当前缓存条目数
func (c *VectorCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}

// AddProcessingTime 累加嵌入计算耗时（纳秒）
func (c *VectorCache) AddProcessingTime(nanos int64) {
	atomic.AddInt64(&c.totalNanos, nanos)
}

// Stats 返回缓存运行统计的快照
func (c *VectorCache) Stats() types.CacheStats {
	total := atomic.LoadInt64(&c.totalRequests)
	hits := atomic.LoadInt64(&c.cacheHits)
	misses := atomic.LoadInt64(&c.cacheMisses)
	nanos := atomic.LoadInt64(&c.totalNanos)

	hitRate := 0.0
	if total > 0 {
		hitRate = math.Round(float64(hits)/float64(total)*10000) / 100
	}

	return types.CacheStats{
		TotalRequests:       total,
		CacheHits:           hits,
		CacheMisses:         misses,
		TotalProcessingTime: float64(nanos) / 1e9,
		CacheSize:           c.Size(),
		CacheHitRate:        hitRate,
	}
}
