package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	einoembedding "github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-match-go/internal/config"
	"resume-match-go/internal/embedding"
	"resume-match-go/internal/skills"
	"resume-match-go/internal/storage"
)

// hashEmbedder 确定性向量，测试不访问外部API
type hashEmbedder struct{}

func (h *hashEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...einoembedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec := make([]float64, 8)
		for j, r := range t {
			vec[j%8] += float64(r%17) / 17.0
		}
		out[i] = vec
	}
	return out, nil
}

func (h *hashEmbedder) GetDimensions() int { return 8 }

func (h *hashEmbedder) ModelVersion() string { return "hash-v1" }

func newTestConsumer(t *testing.T, store *storage.Storage) *Consumer {
	t.Helper()
	embedSvc, err := embedding.NewService(&hashEmbedder{}, embedding.NewVectorCache(),
		config.EmbeddingConfig{Workers: 2, BatchSize: 4})
	require.NoError(t, err)

	return &Consumer{
		store:     store,
		embed:     embedSvc,
		extractor: skills.NewVocabularyExtractor(skills.DefaultVocabulary()),
		cfg:       &config.Config{},
	}
}

const testDescription = "We are hiring an engineer with strong Python and FastAPI background. " +
	"Docker knowledge is required for the packaging and release workflow."

func testMessage() *storage.JobSubmittedMessage {
	return &storage.JobSubmittedMessage{
		JobID:       "11111111-2222-3333-4444-555555555555",
		Title:       "Backend Engineer",
		Company:     "Acme",
		Location:    "Berlin",
		Description: testDescription,
		SalaryMin:   60000,
		SalaryMax:   90000,
		SubmittedAt: time.Now(),
	}
}

func TestHandleMessageDiscardsInvalidJSON(t *testing.T) {
	c := newTestConsumer(t, &storage.Storage{})

	ack := c.handleMessage(context.Background(), []byte("{not json"))
	assert.True(t, ack, "格式损坏的消息应被Ack丢弃")
}

func TestHandleMessageDiscardsValidationFailure(t *testing.T) {
	c := newTestConsumer(t, &storage.Storage{})

	msg := testMessage()
	msg.Description = "too short"
	body, err := json.Marshal(msg)
	require.NoError(t, err)

	ack := c.handleMessage(context.Background(), body)
	assert.True(t, ack, "校验失败的消息属于永久性错误，应被Ack丢弃")
}

// newFakeQdrant 返回一个最小可用的Qdrant假服务，捕获upsert的点
func newFakeQdrant(t *testing.T, upsertStatus int, captured *[]map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/collections/"):
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result":{"config":{"params":{"vectors":{"size":8,"distance":"Cosine"}}}}}`))
		case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/points"):
			var req struct {
				Points []map[string]interface{} `json:"points"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err == nil && captured != nil {
				*captured = append(*captured, req.Points...)
			}
			w.WriteHeader(upsertStatus)
			w.Write([]byte(`{"result":{"status":"acknowledged"},"status":"ok","time":0.01}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestHandleMessageIngestsJob(t *testing.T) {
	var captured []map[string]interface{}
	server := newFakeQdrant(t, http.StatusOK, &captured)
	defer server.Close()

	cfg := &config.Config{}
	cfg.Qdrant.Endpoint = server.URL
	cfg.Qdrant.Collection = "jobs"
	cfg.Qdrant.Dimension = 8
	qdrant, err := storage.NewQdrant(cfg)
	require.NoError(t, err)

	c := newTestConsumer(t, &storage.Storage{Qdrant: qdrant})

	msg := testMessage()
	body, err := json.Marshal(msg)
	require.NoError(t, err)

	ack := c.handleMessage(context.Background(), body)
	assert.True(t, ack)

	require.Len(t, captured, 1)
	assert.Equal(t, storage.JobPointID(msg.JobID), captured[0]["id"])

	payload, ok := captured[0]["payload"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, msg.JobID, payload["job_id"])
	assert.Equal(t, msg.Title, payload["title"])
}

func TestHandleMessageNacksOnStorageError(t *testing.T) {
	var captured []map[string]interface{}
	server := newFakeQdrant(t, http.StatusInternalServerError, &captured)
	defer server.Close()

	cfg := &config.Config{}
	cfg.Qdrant.Endpoint = server.URL
	cfg.Qdrant.Collection = "jobs"
	cfg.Qdrant.Dimension = 8
	qdrant, err := storage.NewQdrant(cfg)
	require.NoError(t, err)

	c := newTestConsumer(t, &storage.Storage{Qdrant: qdrant})

	body, err := json.Marshal(testMessage())
	require.NoError(t, err)

	ack := c.handleMessage(context.Background(), body)
	assert.False(t, ack, "存储写入失败应Nack重新入队")
}
