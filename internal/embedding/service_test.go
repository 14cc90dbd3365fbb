package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"

	einoembedding "github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-match-go/internal/config"
)

// fakeEmbedder 按文本长度生成确定性向量，便于断言
type fakeEmbedder struct {
	mu         sync.Mutex
	dimensions int
	callCount  int
	failAlways bool
}

func (f *fakeEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...einoembedding.Option) ([][]float64, error) {
	f.mu.Lock()
	f.callCount++
	f.mu.Unlock()

	if f.failAlways {
		return nil, NewResponseError("fake", "embed", 500, "provider down")
	}

	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec := make([]float64, f.dimensions)
		for d := range vec {
			vec[d] = float64(len(t)%7 + d)
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) GetDimensions() int { return f.dimensions }

func (f *fakeEmbedder) ModelVersion() string { return "fake-v1" }

func (f *fakeEmbedder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}

func newTestService(t *testing.T, embedder TextEmbedder) *Service {
	t.Helper()
	svc, err := NewService(embedder, NewVectorCache(), config.EmbeddingConfig{Workers: 2, BatchSize: 2})
	require.NoError(t, err)
	return svc
}

func TestContentHashDeterministic(t *testing.T) {
	assert.Equal(t, ContentHash("hello"), ContentHash("hello"))
	assert.NotEqual(t, ContentHash("hello"), ContentHash("hello "))
	assert.Len(t, ContentHash("x"), 64)
}

func TestGetVectorCachesResult(t *testing.T) {
	fake := &fakeEmbedder{dimensions: 4}
	svc := newTestService(t, fake)
	ctx := context.Background()

	v1, err := svc.GetVector(ctx, "golang backend engineer")
	require.NoError(t, err)
	require.Len(t, v1, 4)

	v2, err := svc.GetVector(ctx, "golang backend engineer")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, fake.calls(), "第二次读取应命中缓存")

	stats := svc.Cache().Stats()
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
	assert.Equal(t, 1, stats.CacheSize)
	assert.Equal(t, 50.0, stats.CacheHitRate)
}

func TestGetVectorProviderFailureWritesNothing(t *testing.T) {
	fake := &fakeEmbedder{dimensions: 4, failAlways: true}
	svc := newTestService(t, fake)

	_, err := svc.GetVector(context.Background(), "some resume text")

	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.True(t, errors.Is(err, ErrProviderBadResponse))
	assert.Equal(t, 0, svc.Cache().Size(), "失败时不应留下部分缓存")
}

func TestGetVectorEvictsCorruptedEntry(t *testing.T) {
	fake := &fakeEmbedder{dimensions: 4}
	svc := newTestService(t, fake)
	ctx := context.Background()

	text := "cached text with wrong dimension entry"
	// 手工写入一条维度错误的脏数据
	svc.Cache().Put(ContentHash(text), []float64{1, 2})

	vec, err := svc.GetVector(ctx, text)
	require.NoError(t, err)
	assert.Len(t, vec, 4, "应剔除脏数据并重新计算")

	again, ok := svc.Cache().Get(ContentHash(text))
	require.True(t, ok)
	assert.Len(t, again, 4)
}

func TestGetVectorEmptyInput(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{dimensions: 4})
	_, err := svc.GetVector(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestGetVectorsPreservesOrder(t *testing.T) {
	fake := &fakeEmbedder{dimensions: 4}
	svc := newTestService(t, fake)
	ctx := context.Background()

	texts := []string{"alpha text", "beta", "gamma longer text", "beta", "delta-delta"}
	vecs, err := svc.GetVectors(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))

	for i, text := range texts {
		expected, err := svc.GetVector(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, expected, vecs[i], "索引%d的向量与单独计算不一致", i)
	}

	// 重复文本只计算一次：4个不同文本，batchSize=2 => 2次调用
	assert.Equal(t, 2, fake.calls())
}

func TestGetVectorsOnlyMissesHitProvider(t *testing.T) {
	fake := &fakeEmbedder{dimensions: 4}
	svc := newTestService(t, fake)
	ctx := context.Background()

	_, err := svc.GetVector(ctx, "warm cached text")
	require.NoError(t, err)
	callsBefore := fake.calls()

	_, err = svc.GetVectors(ctx, []string{"warm cached text", "cold new text"})
	require.NoError(t, err)
	assert.Equal(t, callsBefore+1, fake.calls(), "只有未命中的文本应请求提供方")
}

func TestGetVectorsCancelled(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{dimensions: 4})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.GetVectors(ctx, []string{"text one long enough", "text two long enough"})
	assert.Error(t, err)
}
