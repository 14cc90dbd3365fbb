package embedding

import (
	"context"
	"strings"
	"sync"
	"time"
)

// TokenBucket 实现令牌桶算法的限流器，用于约束对嵌入服务的QPM
type TokenBucket struct {
	rate           float64       // 每秒生成的令牌数
	capacity       float64       // 桶的容量
	tokens         float64       // 当前令牌数
	lastRefillTime time.Time     // 上次填充令牌的时间
	mutex          sync.Mutex    // 互斥锁，保证并发安全
	retryWaitTime  time.Duration // 重试等待时间
	maxRetries     int           // 最大重试次数
}

// NewTokenBucket 创建一个新的令牌桶限流器
func NewTokenBucket(qpm int, capacity int) *TokenBucket {
	// 如果未指定容量，设置为QPM的一半
	if capacity <= 0 {
		capacity = qpm / 2
		if capacity <= 0 {
			capacity = 1
		}
	}

	return &TokenBucket{
		rate:           float64(qpm) / 60.0,
		capacity:       float64(capacity),
		tokens:         float64(capacity), // 初始填满
		lastRefillTime: time.Now(),
		retryWaitTime:  1 * time.Second,
		maxRetries:     3,
	}
}

// WithRetryPolicy 设置重试策略
func (tb *TokenBucket) WithRetryPolicy(waitTime time.Duration, maxRetries int) *TokenBucket {
	tb.retryWaitTime = waitTime
	tb.maxRetries = maxRetries
	return tb
}

// refill 根据经过的时间填充令牌
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	tb.lastRefillTime = now

	newTokens := elapsed * tb.rate
	if tb.tokens+newTokens > tb.capacity {
		tb.tokens = tb.capacity
	} else {
		tb.tokens += newTokens
	}
}

// Wait 等待直到有令牌可用
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mutex.Lock()
		tb.refill()

		if tb.tokens >= 1.0 {
			tb.tokens -= 1.0
			tb.mutex.Unlock()
			return nil
		}

		waitTime := time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mutex.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
			// 继续尝试获取令牌
		}
	}
}

// RetryWithBackoff 使用指数退避执行函数并在可重试错误时重试
func (tb *TokenBucket) RetryWithBackoff(ctx context.Context, fn func() error) error {
	var err error

	for retry := 0; retry <= tb.maxRetries; retry++ {
		if err = tb.Wait(ctx); err != nil {
			return err
		}

		err = fn()
		if err == nil {
			return nil
		}

		if !isRetryableError(err) || retry >= tb.maxRetries {
			return err
		}

		backoffTime := tb.retryWaitTime * time.Duration(1<<uint(retry))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffTime):
			// 继续重试
		}
	}

	return err
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	for _, substr := range []string{
		"timeout",
		"deadline exceeded",
		"connection reset",
		"EOF",
		"connection refused",
		"429",
		"rate limit",
		"no such host",
	} {
		if strings.Contains(errStr, substr) {
			return true
		}
	}
	return false
}
