package storage_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-match-go/internal/config"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/types"
)

func testQdrantConfig(endpoint string) *config.Config {
	cfg := &config.Config{}
	cfg.Qdrant.Endpoint = endpoint
	cfg.Qdrant.Collection = "test_jobs"
	cfg.Qdrant.Dimension = 4
	return cfg
}

// TestQdrant_NewQdrant 测试Qdrant客户端初始化
func TestQdrant_NewQdrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/test_jobs" && r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"result": {
					"config": {
						"params": {
							"vectors": {
								"size": 4,
								"distance": "Cosine"
							}
						}
					}
				}
			}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	q, err := storage.NewQdrant(testQdrantConfig(server.URL))
	require.NoError(t, err)
	require.NotNil(t, q)
}

// TestQdrant_CreateCollectionWhenMissing 测试集合不存在时自动创建
func TestQdrant_CreateCollectionWhenMissing(t *testing.T) {
	created := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/collections/test_jobs" && r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/collections/test_jobs" && r.Method == http.MethodPut:
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			vectors := body["vectors"].(map[string]interface{})
			assert.Equal(t, float64(4), vectors["size"])
			assert.Equal(t, "Cosine", vectors["distance"])
			created = true
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": true, "status": "ok", "time": 0.01}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	_, err := storage.NewQdrant(testQdrantConfig(server.URL))
	require.NoError(t, err)
	assert.True(t, created, "应当自动创建缺失的集合")
}

// TestQdrant_JobPointID 测试点ID的确定性
func TestQdrant_JobPointID(t *testing.T) {
	id1 := storage.JobPointID("job-123")
	id2 := storage.JobPointID("job-123")
	id3 := storage.JobPointID("job-456")

	assert.Equal(t, id1, id2, "同一岗位应生成相同的点ID")
	assert.NotEqual(t, id1, id3, "不同岗位应生成不同的点ID")
	assert.Len(t, id1, 36)
}

// TestQdrant_UpsertAndSearch 测试岗位向量写入和搜索的载荷往返
func TestQdrant_UpsertAndSearch(t *testing.T) {
	var upsertedPoints []map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/collections/test_jobs" && r.Method == http.MethodGet:
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result":{"config":{"params":{"vectors":{"size":4,"distance":"Cosine"}}}}}`))
		case r.URL.Path == "/collections/test_jobs/points" && r.Method == http.MethodPut:
			var body struct {
				Points []map[string]interface{} `json:"points"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			upsertedPoints = body.Points
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result":{"status":"acknowledged"},"status":"ok","time":0.01}`))
		case r.URL.Path == "/collections/test_jobs/points/search" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"result": [
					{
						"id": "00000000-0000-0000-0000-000000000001",
						"score": 0.92,
						"payload": {
							"job_id": "job-1",
							"title": "Backend Engineer",
							"company": "Acme",
							"location": "Remote",
							"description": "Go services",
							"tags": ["go", "docker"],
							"salary_min": 100000,
							"salary_max": 150000,
							"employment_type": "full-time",
							"experience_level": "senior"
						}
					}
				],
				"status": "ok",
				"time": 0.02
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	q, err := storage.NewQdrant(testQdrantConfig(server.URL))
	require.NoError(t, err)

	jobs := []types.JobCandidate{
		{
			JobID:       "job-1",
			Title:       "Backend Engineer",
			Company:     "Acme",
			Description: "Go services",
			Tags:        []string{"go", "docker"},
			SalaryMax:   150000,
		},
	}
	ids, err := q.UpsertJobVectors(context.Background(), jobs, [][]float64{{0.1, 0.2, 0.3, 0.4}})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, storage.JobPointID("job-1"), ids[0])
	require.Len(t, upsertedPoints, 1)
	payload := upsertedPoints[0]["payload"].(map[string]interface{})
	assert.Equal(t, "Backend Engineer", payload["title"])

	candidates, err := q.SearchSimilarJobs(context.Background(), []float64{0.1, 0.2, 0.3, 0.4}, 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "job-1", candidates[0].JobID)
	assert.Equal(t, "Acme", candidates[0].Company)
	assert.Equal(t, []string{"go", "docker"}, candidates[0].Tags)
	assert.Equal(t, 150000, candidates[0].SalaryMax)
	assert.InDelta(t, 0.92, candidates[0].RawScore, 1e-9)
}

// TestQdrant_UpsertDimensionMismatch 测试维度不匹配时报错
func TestQdrant_UpsertDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"result":{"config":{"params":{"vectors":{"size":4,"distance":"Cosine"}}}}}`))
	}))
	defer server.Close()

	q, err := storage.NewQdrant(testQdrantConfig(server.URL))
	require.NoError(t, err)

	_, err = q.UpsertJobVectors(context.Background(),
		[]types.JobCandidate{{JobID: "job-1"}}, [][]float64{{0.1, 0.2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "维度")
}
