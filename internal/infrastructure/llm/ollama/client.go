// Package ollama talks to the Ollama HTTP API: /api/embed for document
// and query vectors, /api/generate for answer phrasing, /api/tags as a
// lightweight liveness probe.
package ollama

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hydrointel-my/infobanjir-rag/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

// Alive probes the backend without generating anything.
func (c *Client) Alive(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create liveness request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama liveness request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &HTTPStatusError{Operation: "liveness", StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return nil
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

// Embed returns one unit-normalized vector per input text. Normalizing
// here makes cosine distance in the index equal inner-product
// similarity, which is what the min-score floor is calibrated against.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "embed", "/api/embed", request, &response); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(texts), len(response.Embeddings))
	}
	for i := range response.Embeddings {
		normalize(response.Embeddings[i])
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func normalize(vector []float32) {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}
}

type Generator struct {
	client *Client
	clock  clockwork.Clock
}

func NewGenerator(client *Client, clock clockwork.Clock) *Generator {
	return &Generator{client: client, clock: clock}
}

// Phrase asks the model for a final answer grounded in the retrieved
// context block. Callers treat any error as recoverable.
func (g *Generator) Phrase(ctx context.Context, question, contextBlock string) (string, error) {
	request := map[string]any{
		"model":  g.client.genModel,
		"prompt": buildAnswerPrompt(question, contextBlock, g.clock.Now()),
		"stream": false,
	}
	var response struct {
		Response string `json:"response"`
	}
	if err := g.client.call(ctx, "generate", "/api/generate", request, &response); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) call(ctx context.Context, operation, path string, request, response any) error {
	fn := func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, request, response, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, fn, classifyOllamaError)
	} else {
		err = fn(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}
