package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
	"github.com/hydrointel-my/infobanjir-rag/internal/core/ports"
)

// Retrieval modes reported alongside hits, for logging and metrics.
const (
	ModeSemantic = "semantic"
	ModeKeyword  = "keyword"
)

// Over-fetch factor when a date range is requested: date filtering
// happens after ranking and would otherwise starve relevant hits.
const dateRangeCandidateFactor = 5

// RetrievalEngine ranks corpus documents against a question, semantic
// first with an unconditional keyword fallback on zero hits.
type RetrievalEngine struct {
	store    *CorpusStore
	embedder ports.Embedder
	index    ports.VectorIndex
	topK     int
	minScore float64
	logger   *slog.Logger
}

func NewRetrievalEngine(store *CorpusStore, embedder ports.Embedder, index ports.VectorIndex, topK int, minScore float64, logger *slog.Logger) *RetrievalEngine {
	if topK <= 0 {
		topK = 4
	}
	return &RetrievalEngine{
		store:    store,
		embedder: embedder,
		index:    index,
		topK:     topK,
		minScore: minScore,
		logger:   logger,
	}
}

// Retrieve returns the top hits for the question and the mode that
// produced them. Semantic failures degrade to the keyword path with the
// same filters; they are never surfaced as request errors.
func (e *RetrievalEngine) Retrieve(ctx context.Context, question string, filter domain.SearchFilter) ([]domain.Hit, string, error) {
	hits, err := e.retrieveSemantic(ctx, question, filter)
	if err != nil {
		e.logger.Warn("semantic retrieval degraded to keyword", "error", err)
	}
	if len(hits) > 0 {
		return hits, ModeSemantic, nil
	}

	keywordHits, err := e.retrieveKeyword(ctx, question, filter)
	if err != nil {
		return nil, ModeKeyword, err
	}
	return keywordHits, ModeKeyword, nil
}

func (e *RetrievalEngine) retrieveSemantic(ctx context.Context, question string, filter domain.SearchFilter) ([]domain.Hit, error) {
	queryVector, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	candidateK := e.topK
	if filter.HasDateRange() {
		candidateK = e.topK * dateRangeCandidateFactor
	}

	candidates, err := e.index.Search(ctx, queryVector, candidateK, filter)
	if err != nil {
		return nil, err
	}

	hits := make([]domain.Hit, 0, e.topK)
	for _, hit := range candidates {
		if hit.Score < e.minScore {
			continue
		}
		if !matchesDateRange(hit.Document.RecordedDate, filter) {
			continue
		}
		hits = append(hits, hit)
		if len(hits) >= e.topK {
			break
		}
	}
	return hits, nil
}

func (e *RetrievalEngine) retrieveKeyword(ctx context.Context, question string, filter domain.SearchFilter) ([]domain.Hit, error) {
	docs, err := e.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	tokens := distinctTokens(question)
	scored := make([]domain.Hit, 0, len(docs))
	for _, doc := range docs {
		if !matchesFilter(doc, filter) {
			continue
		}
		score := keywordScore(doc.Text, tokens)
		if score == 0 {
			continue
		}
		scored = append(scored, domain.Hit{Document: doc, Score: float64(score)})
	}

	// Stable: ties keep original corpus order.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > e.topK {
		scored = scored[:e.topK]
	}
	return scored, nil
}

// keywordScore counts how many distinct question tokens the text
// contains, by case-insensitive substring containment.
func keywordScore(text string, tokens []string) int {
	lowered := strings.ToLower(text)
	score := 0
	for _, token := range tokens {
		if strings.Contains(lowered, token) {
			score++
		}
	}
	return score
}

func distinctTokens(question string) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, token := range strings.Fields(strings.ToLower(question)) {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens
}

func matchesFilter(doc domain.Document, filter domain.SearchFilter) bool {
	if filter.State != "" {
		docState := strings.ToUpper(doc.State)
		matched := false
		for _, syn := range domain.StateSynonyms(filter.State) {
			if docState == syn {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if filter.Type != "" && !strings.EqualFold(string(doc.Type), string(filter.Type)) {
		return false
	}
	if filter.RecordedDate != "" && doc.RecordedDate != filter.RecordedDate {
		return false
	}
	return matchesDateRange(doc.RecordedDate, filter)
}

// matchesDateRange compares recorded_date strings lexicographically;
// ISO-8601 dates sort correctly as strings.
func matchesDateRange(recordedDate string, filter domain.SearchFilter) bool {
	if filter.DateFrom != "" && recordedDate < filter.DateFrom {
		return false
	}
	if filter.DateTo != "" && recordedDate > filter.DateTo {
		return false
	}
	return true
}
