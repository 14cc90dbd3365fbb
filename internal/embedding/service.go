package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"
)

// Service 带缓存和并发控制的嵌入服务
// 在启动时显式构造并注入到所有消费方
type Service struct {
	embedder  TextEmbedder
	cache     *VectorCache
	limiter   *TokenBucket
	workers   int
	batchSize int
}

// NewService 创建嵌入服务
func NewService(embedder TextEmbedder, cache *VectorCache, cfg config.EmbeddingConfig) (*Service, error) {
	if embedder == nil {
		return nil, fmt.Errorf("嵌入器不能为空")
	}
	if cache == nil {
		cache = NewVectorCache()
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}

	var limiter *TokenBucket
	if cfg.QPM > 0 {
		limiter = NewTokenBucket(cfg.QPM, 0)
		if cfg.MaxRetries > 0 {
			limiter = limiter.WithRetryPolicy(time.Duration(cfg.RetryWaitSec)*time.Second, cfg.MaxRetries)
		}
	}

	return &Service{
		embedder:  embedder,
		cache:     cache,
		limiter:   limiter,
		workers:   workers,
		batchSize: batchSize,
	}, nil
}

// Cache 返回底层向量缓存，用于暴露统计信息
func (s *Service) Cache() *VectorCache {
	return s.cache
}

// Dimensions 返回嵌入向量的维度
func (s *Service) Dimensions() int {
	return s.embedder.GetDimensions()
}

// ModelVersion 返回当前嵌入模型版本
func (s *Service) ModelVersion() string {
	return s.embedder.ModelVersion()
}

// GetVector 获取单个文本的向量，优先读缓存
// 命中缓存时如发现维度与当前模型不符，剔除该条目并重新计算
func (s *Service) GetVector(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	hash := ContentHash(text)
	if vec, ok := s.cache.Get(hash); ok {
		if s.validDimension(vec) {
			return vec, nil
		}
		logger.Ctx(ctx).Warn().
			Str("hash", hash[:12]).
			Int("got_dim", len(vec)).
			Int("want_dim", s.Dimensions()).
			Msg("缓存向量维度异常，剔除后重新计算")
		s.cache.Delete(hash)
	}

	start := time.Now()
	vecs, err := s.callProvider(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	s.cache.AddProcessingTime(time.Since(start).Nanoseconds())

	if len(vecs) != 1 {
		return nil, NewResponseError(providerName(s.embedder), "embed", 0,
			fmt.Sprintf("期望1个向量，实际返回%d个", len(vecs)))
	}
	if !s.validDimension(vecs[0]) {
		return nil, fmt.Errorf("%w: 期望%d, 实际%d", ErrDimensionMismatch, s.Dimensions(), len(vecs[0]))
	}

	// 只有完整成功才写缓存
	s.cache.Put(hash, vecs[0])
	return vecs[0], nil
}

// GetVectors 批量获取向量，结果顺序与输入一致
// 只有缓存未命中的文本会提交给提供方，按batchSize分批并在有限工作池上并发执行
func (s *Service) GetVectors(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	results := make([][]float64, len(texts))

	// 先扫一遍缓存，收集未命中的文本（相同内容只请求一次）
	missIdx := make(map[string][]int)
	missTexts := make([]string, 0, len(texts))
	for i, text := range texts {
		if text == "" {
			return nil, ErrEmptyInput
		}
		hash := ContentHash(text)
		if vec, ok := s.cache.Get(hash); ok && s.validDimension(vec) {
			results[i] = vec
			continue
		}
		if _, seen := missIdx[hash]; !seen {
			missTexts = append(missTexts, text)
		}
		missIdx[hash] = append(missIdx[hash], i)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	// 分批
	batches := make([][]string, 0, (len(missTexts)+s.batchSize-1)/s.batchSize)
	for start := 0; start < len(missTexts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}
		batches = append(batches, missTexts[start:end])
	}

	type batchResult struct {
		batch   []string
		vectors [][]float64
		err     error
	}

	jobs := make(chan []string)
	out := make(chan batchResult, len(batches))

	workers := s.workers
	if workers > len(batches) {
		workers = len(batches)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				start := time.Now()
				vecs, err := s.callProvider(ctx, batch)
				if err == nil {
					s.cache.AddProcessingTime(time.Since(start).Nanoseconds())
				}
				out <- batchResult{batch: batch, vectors: vecs, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, batch := range batches {
			select {
			case <-ctx.Done():
				return
			case jobs <- batch:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	var firstErr error
	for res := range out {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		if len(res.vectors) != len(res.batch) {
			if firstErr == nil {
				firstErr = NewResponseError(providerName(s.embedder), "embed_batch", 0,
					fmt.Sprintf("期望%d个向量，实际返回%d个", len(res.batch), len(res.vectors)))
			}
			continue
		}
		for j, text := range res.batch {
			vec := res.vectors[j]
			if !s.validDimension(vec) {
				if firstErr == nil {
					firstErr = fmt.Errorf("%w: 期望%d, 实际%d", ErrDimensionMismatch, s.Dimensions(), len(vec))
				}
				continue
			}
			hash := ContentHash(text)
			s.cache.Put(hash, vec)
			for _, i := range missIdx[hash] {
				results[i] = vec
			}
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// callProvider 调用嵌入提供方，受令牌桶限流约束
func (s *Service) callProvider(ctx context.Context, texts []string) ([][]float64, error) {
	var vecs [][]float64
	call := func() error {
		var err error
		vecs, err = s.embedder.EmbedStrings(ctx, texts)
		return err
	}

	if s.limiter != nil {
		if err := s.limiter.RetryWithBackoff(ctx, call); err != nil {
			return nil, err
		}
		return vecs, nil
	}
	if err := call(); err != nil {
		return nil, err
	}
	return vecs, nil
}

// validDimension 校验向量维度是否符合当前模型配置
// 维度未配置时（为0）不做校验
func (s *Service) validDimension(vec []float64) bool {
	want := s.Dimensions()
	return want == 0 || len(vec) == want
}

func providerName(e TextEmbedder) string {
	if _, ok := e.(*AliyunEmbedder); ok {
		return providerAliyun
	}
	return "unknown"
}
