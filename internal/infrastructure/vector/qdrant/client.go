// Package qdrant indexes document vectors over the Qdrant HTTP API.
// Points are keyed by a UUID derived deterministically from the
// document id, so re-ingesting a reading overwrites its point instead
// of duplicating it.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
)

// Namespace for deterministic point ids; stable across deployments so
// the same document always maps to the same point.
var pointNamespace = uuid.MustParse("3f1a7c52-9b44-4c1e-8a6d-2e5b9f0d71aa")

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// PointID returns the deterministic point id for a document id.
func PointID(docID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(docID)).String()
}

func (c *Client) Upsert(ctx context.Context, docs []domain.Document, vectors [][]float32) error {
	if len(docs) == 0 {
		return nil
	}
	if len(docs) != len(vectors) {
		return fmt.Errorf("documents/vectors mismatch: %d vs %d", len(docs), len(vectors))
	}
	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(docs))
	for i, doc := range docs {
		payload := map[string]any{
			"doc_id":        doc.ID,
			"title":         doc.Title,
			"source":        doc.Source,
			"type":          string(doc.Type),
			"state":         doc.State,
			"recorded_at":   doc.RecordedAt,
			"recorded_date": doc.RecordedDate,
			"text":          doc.Text,
		}
		if doc.Value != nil {
			payload["value"] = *doc.Value
		}
		points = append(points, point{
			ID:      PointID(doc.ID),
			Vector:  vectors[i],
			Payload: payload,
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	return c.do(ctx, http.MethodPut, url, map[string]any{"points": points}, nil, "upsert")
}

func (c *Client) Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.Hit, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if clause := buildFilter(filter); clause != nil {
		reqBody["filter"] = clause
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodPost, url, reqBody, &searchResp, "search"); err != nil {
		return nil, err
	}

	hits := make([]domain.Hit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		hits = append(hits, domain.Hit{
			Document: documentFromPayload(r.Payload),
			Score:    r.Score,
		})
	}
	return hits, nil
}

// DeleteAll removes every point; used by replace ingests.
func (c *Client) DeleteAll(ctx context.Context) error {
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, c.collection)
	err := c.do(ctx, http.MethodPost, url, map[string]any{"filter": map[string]any{}}, nil, "delete")
	if err != nil && strings.Contains(err.Error(), "404") {
		// Collection not created yet: nothing to clear.
		return nil
	}
	return err
}

// buildFilter maps the metadata filter to Qdrant must clauses. The
// state clause matches any synonym so documents stored under a legacy
// alias are still found. Date ranges are not expressed here: they are
// applied by the engine after ranking.
func buildFilter(filter domain.SearchFilter) map[string]any {
	var must []map[string]any
	if filter.State != "" {
		must = append(must, map[string]any{
			"key":   "state",
			"match": map[string]any{"any": domain.StateSynonyms(filter.State)},
		})
	}
	if filter.Type != "" {
		must = append(must, map[string]any{
			"key":   "type",
			"match": map[string]any{"value": string(filter.Type)},
		})
	}
	if filter.RecordedDate != "" {
		must = append(must, map[string]any{
			"key":   "recorded_date",
			"match": map[string]any{"value": filter.RecordedDate},
		})
	}
	if must == nil {
		return nil
	}
	return map[string]any{"must": must}
}

func documentFromPayload(payload map[string]any) domain.Document {
	doc := domain.Document{
		ID:           stringPayload(payload, "doc_id"),
		Title:        stringPayload(payload, "title"),
		Source:       stringPayload(payload, "source"),
		Type:         domain.DocType(stringPayload(payload, "type")),
		State:        strings.ToUpper(stringPayload(payload, "state")),
		RecordedAt:   stringPayload(payload, "recorded_at"),
		RecordedDate: stringPayload(payload, "recorded_date"),
		Text:         stringPayload(payload, "text"),
	}
	if v, ok := payload["value"].(float64); ok {
		doc.Value = &v
	}
	return doc
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(req))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if it already exists.
	if resp.StatusCode != http.StatusConflict && resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return fmt.Errorf("qdrant ensure collection status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("qdrant ensure collection status: %s", resp.Status)
	}

	c.ensureMu.Lock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s status: %s", operation, resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func stringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
