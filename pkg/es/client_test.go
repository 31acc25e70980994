package es

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hr-assistant-go/internal/query"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchBody(t *testing.T) {
	body := buildSearchBody(query.KnowledgeQuery{
		Terms:           []string{"vacaciones", "solicitar"},
		Category:        "incidencias",
		AllAudienceOnly: true,
	})
	assert.Equal(t, 5, body["size"])

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, `"query":"vacaciones solicitar"`)
	assert.Contains(t, s, `{"term":{"category":"incidencias"}}`)
	assert.Contains(t, s, `{"term":{"audience":"all"}}`)

	open := buildSearchBody(query.KnowledgeQuery{Size: 3})
	raw, err = json.Marshal(open)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "audience")
	assert.NotContains(t, string(raw), "multi_match")
	assert.Equal(t, 3, open["size"])
}

func TestKnowledgeSearcher_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/kb_articles/_search", r.URL.Path)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_source":{"id":"7","title":"Cómo pedir vacaciones","body":"Desde el portal"}}]}}`))
	}))
	defer srv.Close()

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	rows, err := NewKnowledgeSearcher(client, "kb_articles").Search(context.Background(), query.KnowledgeQuery{Terms: []string{"vacaciones"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Cómo pedir vacaciones", rows[0].String("title"))
}

func TestKnowledgeSearcher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}, MaxRetries: 0, DisableRetry: true})
	require.NoError(t, err)
	_, err = NewKnowledgeSearcher(client, "kb_articles").Search(context.Background(), query.KnowledgeQuery{})
	assert.Error(t, err)
}
