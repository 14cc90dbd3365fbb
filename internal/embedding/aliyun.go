package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"
)

const providerAliyun = "aliyun"

// AliyunEmbedder 阿里云DashScope嵌入客户端 (OpenAI兼容端点)
// 实现 embedding.Embedder 接口
type AliyunEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
	baseURL    string
}

// NewAliyunEmbedder 创建新的阿里云Embedder
func NewAliyunEmbedder(apiKey string, embeddingCfg config.EmbeddingConfig) (*AliyunEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}

	model := embeddingCfg.Model
	if model == "" {
		model = "text-embedding-v3"
	}
	baseURL := embeddingCfg.BaseURL
	if baseURL == "" {
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/embeddings"
	}
	timeout := time.Duration(embeddingCfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &AliyunEmbedder{
		apiKey:     apiKey,
		model:      model,
		dimensions: embeddingCfg.Dimensions,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}, nil
}

// GetDimensions 返回嵌入器配置的维度
func (a *AliyunEmbedder) GetDimensions() int {
	return a.dimensions
}

// ModelVersion 返回模型版本标识
func (a *AliyunEmbedder) ModelVersion() string {
	return a.model
}

// aliyunEmbeddingRequest 阿里云Embedding请求结构 (OpenAI兼容)
type aliyunEmbeddingRequest struct {
	Input          interface{} `json:"input"` // string 或 []string
	Model          string      `json:"model"`
	Dimensions     int         `json:"dimensions,omitempty"`
	EncodingFormat string      `json:"encoding_format,omitempty"`
}

// aliyunEmbeddingResponse 阿里云Embedding响应结构 (OpenAI兼容)
type aliyunEmbeddingResponse struct {
	Object string            `json:"object"`
	Data   []aliyunDataEntry `json:"data"`
	Model  string            `json:"model"`
	Usage  aliyunUsage       `json:"usage"`
	ID     string            `json:"id,omitempty"`
	Error  *aliyunAPIError   `json:"error,omitempty"`
}

type aliyunDataEntry struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type aliyunUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// aliyunAPIError API级错误，可能随200 OK一起返回
type aliyunAPIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param"`
	Code    string `json:"code"`
}

// EmbedStrings 将文本转换为向量, 实现 cloudwego/eino embedding.Embedder 接口
func (a *AliyunEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	options := &embedding.Options{}
	embedding.GetCommonOptions(options, opts...)

	effectiveModel := a.model
	if options.Model != nil && *options.Model != "" {
		effectiveModel = *options.Model
	}

	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	var inputBody interface{}
	if len(texts) == 1 {
		inputBody = texts[0]
	} else {
		inputBody = texts
	}

	reqBody := aliyunEmbeddingRequest{
		Input: inputBody,
		Model: effectiveModel,
	}
	if a.dimensions > 0 {
		reqBody.Dimensions = a.dimensions
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, NewRequestError(providerAliyun, "marshal", err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, NewRequestError(providerAliyun, "build_request", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, NewRequestError(providerAliyun, "http_post", err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewResponseError(providerAliyun, "read_body", resp.StatusCode, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		var apiError aliyunAPIError
		detail := string(body)
		if json.Unmarshal(body, &apiError) == nil && apiError.Message != "" {
			detail = fmt.Sprintf("类型=%s, 错误=%s, Code=%s", apiError.Type, apiError.Message, apiError.Code)
		}
		return nil, NewResponseError(providerAliyun, "embed", resp.StatusCode, detail)
	}

	var parsedResp aliyunEmbeddingResponse
	if err := json.Unmarshal(body, &parsedResp); err != nil {
		return nil, NewResponseError(providerAliyun, "unmarshal", resp.StatusCode, err.Error())
	}

	// 部分API错误会随200 OK返回
	if parsedResp.Error != nil && parsedResp.Error.Message != "" {
		return nil, NewResponseError(providerAliyun, "embed", resp.StatusCode,
			fmt.Sprintf("类型=%s, 错误=%s, Code=%s", parsedResp.Error.Type, parsedResp.Error.Message, parsedResp.Error.Code))
	}

	outputEmbeddings := make([][]float64, len(parsedResp.Data))
	for i, dataEntry := range parsedResp.Data {
		outputEmbeddings[i] = dataEntry.Embedding
	}

	logger.Ctx(ctx).Debug().
		Int("texts", len(texts)).
		Str("model", effectiveModel).
		Int("prompt_tokens", parsedResp.Usage.PromptTokens).
		Int("total_tokens", parsedResp.Usage.TotalTokens).
		Msg("嵌入请求完成")

	return outputEmbeddings, nil
}
