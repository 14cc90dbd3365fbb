package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"
)

// 定义Qdrant的专用tracer
var qdrantTracer = otel.Tracer("resume-match-go/storage/qdrant")

// QdrantPointIDNamespace 用于生成确定性的Qdrant点ID
// 同一个岗位恒定得到同一个点ID，重复入库是幂等的
var QdrantPointIDNamespace = uuid.Must(uuid.FromString("7b1d4f0a-9c2e-4f6b-b1a4-3d9f20cfe0b2"))

// VectorDatabase 向量数据库接口
type VectorDatabase interface {
	// UpsertJobVectors 写入或覆盖岗位向量
	UpsertJobVectors(ctx context.Context, jobs []types.JobCandidate, embeddings [][]float64) ([]string, error)

	// SearchSimilarJobs 按查询向量召回相似岗位
	SearchSimilarJobs(ctx context.Context, queryVector []float64, limit int) ([]types.JobCandidate, error)

	// DeletePoints 删除指定ID的向量点
	DeletePoints(ctx context.Context, pointIDs []string) error

	// CountPoints 获取集合中的点数量
	CountPoints(ctx context.Context) (int64, error)
}

// 确保Qdrant实现了VectorDatabase接口
var _ VectorDatabase = (*Qdrant)(nil)

// Qdrant 提供向量数据库功能
type Qdrant struct {
	endpoint       string
	collectionName string
	vectorSize     int
	distanceMetric string
	httpClient     *http.Client
}

// QdrantOption 定义Qdrant构造函数选项
type QdrantOption func(*Qdrant)

// WithDistanceMetric 设置距离度量
func WithDistanceMetric(metric string) QdrantOption {
	return func(q *Qdrant) {
		q.distanceMetric = metric
	}
}

// WithHTTPTimeout 设置HTTP客户端超时
func WithHTTPTimeout(timeout time.Duration) QdrantOption {
	return func(q *Qdrant) {
		q.httpClient = &http.Client{Timeout: timeout}
	}
}

// NewQdrant 创建Qdrant客户端并确保集合存在
func NewQdrant(cfg *config.Config, opts ...QdrantOption) (*Qdrant, error) {
	if cfg == nil {
		return nil, fmt.Errorf("qdrant配置不能为空")
	}

	endpoint := cfg.Qdrant.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:6333"
	}

	collectionName := cfg.Qdrant.Collection
	if collectionName == "" {
		collectionName = "jobs"
	}

	vectorSize := cfg.Qdrant.Dimension
	if vectorSize <= 0 {
		vectorSize = 1024 // 默认向量维度，与阿里云Embedding一致
	}

	q := &Qdrant{
		endpoint:       endpoint,
		collectionName: collectionName,
		vectorSize:     vectorSize,
		distanceMetric: "Cosine",
		httpClient:     &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(q)
	}

	if err := q.ensureCollectionExists(context.Background()); err != nil {
		return nil, fmt.Errorf("确保集合 '%s' 存在失败: %w", collectionName, err)
	}

	logger.Info().Str("endpoint", endpoint).Str("collection", collectionName).Msg("Qdrant客户端初始化成功")
	return q, nil
}

// ensureCollectionExists 确保向量集合存在，不存在时按当前配置创建
func (q *Qdrant) ensureCollectionExists(ctx context.Context) error {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.EnsureCollectionExists",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("net.peer.name", q.endpoint),
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", "check_collection"),
		attribute.String("db.collection", q.collectionName),
		attribute.Int("db.vector_size", q.vectorSize),
	)

	url := fmt.Sprintf("%s/collections/%s", q.endpoint, q.collectionName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return fmt.Errorf("创建检查集合请求失败: %w", err)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := q.httpClient.Do(req)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return fmt.Errorf("发送检查集合请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		span.AddEvent("collection_not_found", trace.WithAttributes(
			attribute.String("action", "create_collection"),
		))
		return q.createCollection(ctx)
	} else if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("检查集合失败，状态码: %d, 响应: %s", resp.StatusCode, string(body))
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return err
	}

	// 检查集合配置是否匹配当前配置
	var collectionInfo struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size     int    `json:"size"`
						Distance string `json:"distance"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return fmt.Errorf("读取集合信息响应失败: %w", err)
	}
	if err := json.Unmarshal(body, &collectionInfo); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return fmt.Errorf("解析集合信息失败: %w", err)
	}

	existingSize := collectionInfo.Result.Config.Params.Vectors.Size
	existingDistance := collectionInfo.Result.Config.Params.Vectors.Distance

	if existingSize != q.vectorSize || existingDistance != q.distanceMetric {
		logger.Warn().
			Int("existing_size", existingSize).
			Str("existing_distance", existingDistance).
			Int("expected_size", q.vectorSize).
			Str("expected_distance", q.distanceMetric).
			Msg("现有集合配置与当前配置不匹配")
		span.AddEvent("collection_config_mismatch", trace.WithAttributes(
			attribute.Int("expected_vector_size", q.vectorSize),
			attribute.String("expected_distance", q.distanceMetric),
		))
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// createCollection 创建新的向量集合
func (q *Qdrant) createCollection(ctx context.Context) error {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.CreateCollection",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", "create_collection"),
		attribute.String("db.collection", q.collectionName),
		attribute.Int("db.vector_size", q.vectorSize),
		attribute.String("db.vector.distance", q.distanceMetric),
	)

	createReqBody := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     q.vectorSize,
			"distance": q.distanceMetric,
		},
		"optimizers_config": map[string]interface{}{
			"default_segment_number": 2,
		},
	}

	if err := q.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", q.collectionName), createReqBody, nil); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return fmt.Errorf("创建集合失败: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	logger.Info().Str("collection", q.collectionName).Int("dimension", q.vectorSize).Msg("已创建Qdrant集合")
	return nil
}

// JobPointID 生成岗位的确定性点ID
func JobPointID(jobID string) string {
	return uuid.NewV5(QdrantPointIDNamespace, "job_id:"+jobID).String()
}

// UpsertJobVectors 写入或覆盖岗位向量及其载荷
// 点ID由jobID确定性生成，相同岗位重复写入是幂等的
func (q *Qdrant) UpsertJobVectors(ctx context.Context, jobs []types.JobCandidate, embeddings [][]float64) ([]string, error) {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.UpsertJobVectors",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", "upsert_points"),
		attribute.String("db.collection", q.collectionName),
		attribute.Int("vectors.count", len(embeddings)),
	)

	if len(jobs) != len(embeddings) {
		err := fmt.Errorf("岗位数量(%d)与向量数量(%d)不匹配", len(jobs), len(embeddings))
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, err
	}
	if len(jobs) == 0 {
		span.SetStatus(codes.Ok, "no points to upsert")
		return []string{}, nil
	}

	points := make([]interface{}, 0, len(jobs))
	ids := make([]string, 0, len(jobs))

	for i, job := range jobs {
		if len(embeddings[i]) != q.vectorSize {
			err := fmt.Errorf("向量维度(%d)与配置维度(%d)不匹配", len(embeddings[i]), q.vectorSize)
			tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
			return nil, err
		}

		pointID := JobPointID(job.JobID)
		ids = append(ids, pointID)

		payload := map[string]interface{}{
			"job_id":           job.JobID,
			"title":            job.Title,
			"company":          job.Company,
			"location":         job.Location,
			"description":      tracing.TruncateString(job.Description, 1000),
			"tags":             job.Tags,
			"salary_min":       job.SalaryMin,
			"salary_max":       job.SalaryMax,
			"employment_type":  job.EmploymentType,
			"experience_level": job.ExperienceLevel,
		}

		points = append(points, map[string]interface{}{
			"id":      pointID,
			"vector":  embeddings[i],
			"payload": payload,
		})
	}

	requestBody := map[string]interface{}{"points": points}

	var response struct {
		Result struct {
			Status string `json:"status"`
		} `json:"result"`
		Status string  `json:"status"`
		Time   float64 `json:"time"`
	}
	if err := q.doRequest(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s/points?wait=true", q.collectionName), requestBody, &response); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("qdrant.response_status", response.Status),
		attribute.Float64("qdrant.response_time", response.Time),
	)
	span.SetStatus(codes.Ok, "")
	return ids, nil
}

// SearchSimilarJobs 在Qdrant中搜索与查询向量最相似的岗位
// 返回的JobCandidate已从载荷还原，RawScore为Qdrant原始相似度(0-1)
func (q *Qdrant) SearchSimilarJobs(ctx context.Context, queryVector []float64, limit int) ([]types.JobCandidate, error) {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.SearchSimilarJobs",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", "search_points"),
		attribute.String("db.collection", q.collectionName),
		attribute.Int("search.limit", limit),
		attribute.Int("query_vector.size", len(queryVector)),
	)

	if len(queryVector) != q.vectorSize {
		err := fmt.Errorf("查询向量维度(%d)与配置维度(%d)不匹配", len(queryVector), q.vectorSize)
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	searchReq := map[string]interface{}{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}

	var result struct {
		Result []struct {
			ID      string                 `json:"id"`
			Score   float64                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
		Status string  `json:"status"`
		Time   float64 `json:"time"`
	}

	err := q.doRequest(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/search", q.collectionName), searchReq, &result)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, err
	}

	candidates := make([]types.JobCandidate, 0, len(result.Result))
	for _, point := range result.Result {
		candidate := candidateFromPayload(point.Payload)
		candidate.RawScore = point.Score
		candidates = append(candidates, candidate)
	}

	span.SetAttributes(
		attribute.Int("search.results.count", len(candidates)),
		attribute.String("qdrant.response_status", result.Status),
		attribute.Float64("qdrant.response_time", result.Time),
	)
	span.SetStatus(codes.Ok, "")
	return candidates, nil
}

// candidateFromPayload 从Qdrant载荷还原岗位候选
// 载荷字段缺失时保持零值，不报错
func candidateFromPayload(payload map[string]interface{}) types.JobCandidate {
	c := types.JobCandidate{
		JobID:           payloadString(payload, "job_id"),
		Title:           payloadString(payload, "title"),
		Company:         payloadString(payload, "company"),
		Location:        payloadString(payload, "location"),
		Description:     payloadString(payload, "description"),
		EmploymentType:  payloadString(payload, "employment_type"),
		ExperienceLevel: payloadString(payload, "experience_level"),
		SalaryMin:       payloadInt(payload, "salary_min"),
		SalaryMax:       payloadInt(payload, "salary_max"),
	}
	if raw, ok := payload["tags"].([]interface{}); ok {
		for _, t := range raw {
			if s, ok := t.(string); ok {
				c.Tags = append(c.Tags, s)
			}
		}
	}
	return c
}

func payloadString(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadInt(payload map[string]interface{}, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// DeletePoints 删除指定ID的向量点
func (q *Qdrant) DeletePoints(ctx context.Context, pointIDs []string) error {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.DeletePoints",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", "delete_points"),
		attribute.String("db.collection", q.collectionName),
		attribute.Int("points.count", len(pointIDs)),
	)

	if len(pointIDs) == 0 {
		span.SetStatus(codes.Ok, "no points to delete")
		return nil
	}

	reqBody := map[string]interface{}{"points": pointIDs}

	var result struct {
		Status string  `json:"status"`
		Time   float64 `json:"time"`
	}
	err := q.doRequest(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/delete?wait=true", q.collectionName), reqBody, &result)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return err
	}

	span.SetAttributes(attribute.String("qdrant.response_status", result.Status))
	span.SetStatus(codes.Ok, "")
	return nil
}

// CountPoints 获取集合中的点数量
func (q *Qdrant) CountPoints(ctx context.Context) (int64, error) {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.CountPoints",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", "count_points"),
		attribute.String("db.collection", q.collectionName),
	)

	countReqBody := map[string]interface{}{"exact": true}

	var result struct {
		Result struct {
			Count int64 `json:"count"`
		} `json:"result"`
		Status string  `json:"status"`
		Time   float64 `json:"time"`
	}
	err := q.doRequest(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/count", q.collectionName), countReqBody, &result)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return 0, err
	}

	span.SetAttributes(attribute.Int64("qdrant.points.count", result.Result.Count))
	span.SetStatus(codes.Ok, "")
	return result.Result.Count, nil
}

// doRequest 发送Qdrant REST请求并解析响应
func (q *Qdrant) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	ctx, span := qdrantTracer.Start(ctx, fmt.Sprintf("%s %s", method, path),
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("net.peer.name", q.endpoint),
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", path),
	)

	var req *http.Request
	var err error

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
			return err
		}
		req, err = http.NewRequestWithContext(ctx, method, q.endpoint+path, bytes.NewBuffer(jsonBody))
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		span.SetAttributes(attribute.Int("http.request.body.size", len(jsonBody)))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, q.endpoint+path, nil)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
			return err
		}
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := q.httpClient.Do(req)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeHTTP)
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeHTTP)
		return err
	}
	span.SetAttributes(attribute.Int("http.response.body.size", len(respBody)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err = fmt.Errorf("qdrant API error: status=%d, body=%s", resp.StatusCode, string(respBody))
		tracing.RecordHTTPError(span, err, resp.StatusCode)
		return err
	}

	if result != nil && len(respBody) > 0 {
		if err = json.Unmarshal(respBody, result); err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
			return err
		}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
