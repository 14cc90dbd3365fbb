package embedding

import (
	"context"

	"github.com/cloudwego/eino/components/embedding"
)

// TextEmbedder 文本向量化接口 (符合 cloudwego/eino 规范)
type TextEmbedder interface {
	// EmbedStrings 将文本转换为向量表示
	EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error)

	// GetDimensions 返回嵌入向量的维度
	GetDimensions() int

	// ModelVersion 返回模型版本标识，缓存的向量与其绑定
	ModelVersion() string
}
