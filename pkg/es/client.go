// Package es 提供了基于 Elasticsearch 的知识库检索。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"hr-assistant-go/internal/config"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/query"
	"hr-assistant-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端并确保知识库索引存在。
func InitES(esCfg config.ElasticsearchConfig) error {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	return createIndexIfNotExists(esCfg.IndexName)
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func createIndexIfNotExists(indexName string) error {
	res, err := ESClient.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	defer res.Body.Close()
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// 西班牙语分析器；category 与 audience 用于精确过滤。
	mapping := `{
		"mappings": {
			"properties": {
				"id":         { "type": "keyword" },
				"title":      { "type": "text", "analyzer": "spanish" },
				"body":       { "type": "text", "analyzer": "spanish" },
				"category":   { "type": "keyword" },
				"audience":   { "type": "keyword" },
				"updated_at": { "type": "date" }
			}
		}
	}`

	created, err := ESClient.Indices.Create(
		indexName,
		ESClient.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	defer created.Body.Close()
	if created.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, created.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// KnowledgeSearcher 在知识库索引中检索文章，实现 query.KnowledgeSearcher。
type KnowledgeSearcher struct {
	client *elasticsearch.Client
	index  string
}

// NewKnowledgeSearcher 创建一个知识库检索器。
func NewKnowledgeSearcher(client *elasticsearch.Client, index string) *KnowledgeSearcher {
	return &KnowledgeSearcher{client: client, index: index}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source map[string]interface{} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search 执行检索，只读访问者只能看到 audience=all 的文章。
func (s *KnowledgeSearcher) Search(ctx context.Context, q query.KnowledgeQuery) ([]model.Row, error) {
	body, err := json.Marshal(buildSearchBody(q))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search body: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("knowledge search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("knowledge search returned error: %s", res.String())
	}

	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	rows := make([]model.Row, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		rows = append(rows, model.Row(h.Source))
	}
	return rows, nil
}

func buildSearchBody(q query.KnowledgeQuery) map[string]interface{} {
	filters := make([]interface{}, 0, 2)
	if q.Category != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"category": q.Category}})
	}
	if q.AllAudienceOnly {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"audience": "all"}})
	}

	boolQuery := map[string]interface{}{"filter": filters}
	if len(q.Terms) > 0 {
		boolQuery["must"] = []interface{}{map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  strings.Join(q.Terms, " "),
				"fields": []string{"title^2", "body"},
			},
		}}
	}

	size := q.Size
	if size <= 0 {
		size = 5
	}
	return map[string]interface{}{
		"size":    size,
		"query":   map[string]interface{}{"bool": boolQuery},
		"sort":    []interface{}{"_score", map[string]interface{}{"updated_at": map[string]string{"order": "desc"}}},
		"_source": []string{"id", "title", "body", "category", "updated_at"},
	}
}
