package elastic

import (
	"EduHub/internal/models"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

type CourseSearchRepo struct {
	client *elasticsearch.Client
	index  string
}

func NewCourseSearchRepository(client *elasticsearch.Client, index string) *CourseSearchRepo {
	if index == "" {
		index = CourseIndex
	}
	return &CourseSearchRepo{client: client, index: index}
}

type courseDocument struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	UpdatedAt   string `json:"updated_at"`
}

var courseIndexSettings = map[string]any{
	"settings": map[string]any{
		"analysis": map[string]any{
			"analyzer": map[string]any{
				"edge_ngram_analyzer": map[string]any{
					"tokenizer": "edge_ngram_tokenizer",
					"filter":    []string{"lowercase"},
				},
			},
			"tokenizer": map[string]any{
				"edge_ngram_tokenizer": map[string]any{
					"type":        "edge_ngram",
					"min_gram":    2,
					"max_gram":    20,
					"token_chars": []string{"letter", "digit"},
				},
			},
		},
	},
	"mappings": map[string]any{
		"properties": map[string]any{
			"title": map[string]any{
				"type":            "text",
				"analyzer":        "edge_ngram_analyzer",
				"search_analyzer": "standard",
			},
			"description": map[string]any{
				"type":            "text",
				"analyzer":        "edge_ngram_analyzer",
				"search_analyzer": "standard",
			},
			"updated_at": map[string]any{"type": "date"},
		},
	},
}

func (r *CourseSearchRepo) CreateIndexIfNotExist(ctx context.Context) error {
	existsRes, err := esapi.IndicesExistsRequest{Index: []string{r.index}}.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("error checking index existence: %w", err)
	}
	defer existsRes.Body.Close()

	switch {
	case existsRes.StatusCode == http.StatusNotFound:
	case existsRes.StatusCode >= 300:
		return fmt.Errorf("index existence check failed with status code %d", existsRes.StatusCode)
	default:
		return nil
	}

	body, err := json.Marshal(courseIndexSettings)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}
	res, err := esapi.IndicesCreateRequest{Index: r.index, Body: bytes.NewReader(body)}.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("mapping creation failed: %s", res.String())
	}
	return nil
}

// Index creates or replaces the search document of a course.
func (r *CourseSearchRepo) Index(ctx context.Context, course models.Course) error {
	data, err := json.Marshal(courseDocument{
		Title:       course.Title,
		Description: course.Description,
		UpdatedAt:   course.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}
	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: course.ID.String(),
		Refresh:    "true",
		Body:       bytes.NewReader(data),
	}
	return r.do(ctx, req, "index")
}

// Delete removes a course document. A document that is already gone is
// not an error.
func (r *CourseSearchRepo) Delete(ctx context.Context, id uuid.UUID) error {
	req := esapi.DeleteRequest{
		Index:      r.index,
		DocumentID: id.String(),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete error: %s", res.String())
	}
	return nil
}

func (r *CourseSearchRepo) do(ctx context.Context, req esapi.Request, op string) error {
	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("%s request: %w", op, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%s error: %s", op, res.String())
	}
	return nil
}

func multiMatch(query string) map[string]any {
	return map[string]any{
		"multi_match": map[string]any{
			"query":                query,
			"fields":               []string{"title^3", "description"},
			"type":                 "best_fields",
			"fuzziness":            "AUTO",
			"operator":             "or",
			"minimum_should_match": "2<75%",
		},
	}
}

// Search returns the ids of matching courses in score order and the total
// number of hits.
func (r *CourseSearchRepo) Search(ctx context.Context, query string, from, size int) ([]uuid.UUID, int, error) {
	if size <= 0 {
		size = 10
	}
	if from < 0 {
		from = 0
	}
	buf := &bytes.Buffer{}
	q := map[string]any{
		"query":            multiMatch(query),
		"from":             from,
		"size":             size,
		"track_total_hits": true,
		"_source":          false,
	}
	if err := json.NewEncoder(buf).Encode(q); err != nil {
		return nil, 0, fmt.Errorf("encode search body: %w", err)
	}
	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(buf),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return nil, 0, fmt.Errorf("search error: %s", string(bodyBytes))
	}
	var esRes struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esRes); err != nil {
		return nil, 0, fmt.Errorf("decode response: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(esRes.Hits.Hits))
	for _, h := range esRes.Hits.Hits {
		if id, err := uuid.Parse(h.ID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, esRes.Hits.Total.Value, nil
}
