package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
)

var errFakeBackend = errors.New("backend unavailable")

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fakeRepo struct {
	docs      []domain.Document
	failLoad  bool
	deleted   int
	upserted  int
	failWrite bool
}

func (r *fakeRepo) UpsertAll(_ context.Context, docs []domain.Document) error {
	if r.failWrite {
		return errFakeBackend
	}
	r.upserted += len(docs)
	for _, doc := range docs {
		replaced := false
		for i := range r.docs {
			if r.docs[i].ID == doc.ID {
				r.docs[i] = doc
				replaced = true
				break
			}
		}
		if !replaced {
			r.docs = append(r.docs, doc)
		}
	}
	return nil
}

func (r *fakeRepo) DeleteAll(context.Context) error {
	r.deleted++
	r.docs = nil
	return nil
}

func (r *fakeRepo) LoadAll(context.Context) ([]domain.Document, error) {
	if r.failLoad {
		return nil, errFakeBackend
	}
	out := make([]domain.Document, len(r.docs))
	copy(out, r.docs)
	return out, nil
}

func (r *fakeRepo) CountByState(context.Context) (int, map[string]int, error) {
	byState := make(map[string]int)
	for _, doc := range r.docs {
		state := doc.State
		if state == "" {
			state = "UNKNOWN"
		}
		byState[state]++
	}
	return len(r.docs), byState, nil
}

type fakeIndex struct {
	hits       []domain.Hit
	upserted   []domain.Document
	deleted    int
	failSearch bool
	failUpsert bool
	lastLimit  int
	lastFilter domain.SearchFilter
}

func (x *fakeIndex) Upsert(_ context.Context, docs []domain.Document, _ [][]float32) error {
	if x.failUpsert {
		return errFakeBackend
	}
	x.upserted = append(x.upserted, docs...)
	return nil
}

func (x *fakeIndex) Search(_ context.Context, _ []float32, limit int, filter domain.SearchFilter) ([]domain.Hit, error) {
	if x.failSearch {
		return nil, errFakeBackend
	}
	x.lastLimit = limit
	x.lastFilter = filter
	if len(x.hits) > limit {
		return x.hits[:limit], nil
	}
	return x.hits, nil
}

func (x *fakeIndex) DeleteAll(context.Context) error {
	x.deleted++
	return nil
}

type fakeEmbedder struct {
	failEmbed bool
	failQuery bool
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.failEmbed {
		return nil, errFakeBackend
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func (e *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if e.failQuery {
		return nil, errFakeBackend
	}
	return []float32{1, 0, 0}, nil
}

type fakeGenerator struct {
	text     string
	err      error
	question string
	context  string
	calls    int
}

func (g *fakeGenerator) Phrase(_ context.Context, question, contextBlock string) (string, error) {
	g.calls++
	g.question = question
	g.context = contextBlock
	return g.text, g.err
}

type fakeSource struct {
	rain     []domain.Reading
	water    []domain.Reading
	rainErr  error
	waterErr error
}

func (s *fakeSource) LatestRainfall(context.Context, string, int) ([]domain.Reading, error) {
	return s.rain, s.rainErr
}

func (s *fakeSource) LatestWaterLevel(context.Context, string, int) ([]domain.Reading, error) {
	return s.water, s.waterErr
}

type fakeStatusStore struct {
	mu        sync.Mutex
	successes []int
	failures  []string
	current   domain.IngestStatus
}

func (s *fakeStatusStore) RecordSuccess(_ context.Context, at time.Time, count int, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes = append(s.successes, count)
	t := at
	s.current.LastSuccessAt = &t
	s.current.LastCount = count
	s.current.Message = message
	return nil
}

func (s *fakeStatusStore) RecordFailure(_ context.Context, at time.Time, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, message)
	t := at
	s.current.LastFailureAt = &t
	s.current.Message = message
	return nil
}

func (s *fakeStatusStore) Load(context.Context) (domain.IngestStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, nil
}

func (s *fakeStatusStore) failureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failures)
}

type fakeBus struct {
	published int
}

func (b *fakeBus) PublishCorpusUpdated(context.Context) error {
	b.published++
	return nil
}

func (b *fakeBus) SubscribeCorpusUpdated(ctx context.Context, _ func(context.Context)) error {
	<-ctx.Done()
	return nil
}

func floatPtr(v float64) *float64 {
	return &v
}

func newTestStore(repo *fakeRepo, index *fakeIndex, embedder *fakeEmbedder) *CorpusStore {
	return NewCorpusStore(repo, index, embedder, "readings")
}
